// Package mutable allows to change node state on the render side. A node
// kind embeds Context and returns mutations from its setters. Mutations are
// routed to the node by the context and applied at a quantum boundary, so
// the closure can safely touch render-owned state.
package mutable

import "github.com/rs/xid"

// zero value for context is immutable.
var immutable = Context{}

type (
	// Context can be embedded to make structure behaviour mutable.
	Context xid.ID

	// Mutation is mutator function associated with a certain mutable context.
	Mutation struct {
		Context
		mutator MutatorFunc
	}

	// MutatorFunc mutates the object.
	MutatorFunc func() error
)

// Mutable returns new mutable context.
func Mutable() Context {
	return Context(xid.New())
}

// Immutable returns immutable context.
func Immutable() Context {
	return immutable
}

// Mutate associates provided mutator with mutable and return mutation.
func (c Context) Mutate(m MutatorFunc) Mutation {
	if c == immutable {
		panic("mutate immutable")
	}
	return Mutation{
		Context: c,
		mutator: m,
	}
}

// IsMutable returns true if object is mutable.
func (c Context) IsMutable() bool {
	return c != immutable
}

func (c Context) String() string {
	if c == immutable {
		return "immutable"
	}
	return xid.ID(c).String()
}

// Apply mutator function.
func (m Mutation) Apply() error {
	if m.mutator == nil {
		return nil
	}
	return m.mutator()
}
