// Package runtime is the render side of the graph. It owns the node arena,
// derives the processing order from the edge list, renders quanta and
// decides when nodes are torn down.
//
// Everything in this package except constructors is touched only by the
// render goroutine. The control side talks to it through a message ring and
// reads notifications from another ring.
package runtime

import (
	"errors"
	"time"
)

var (
	// ErrPoolExhausted is a fatal error returned when the block pool has
	// no free block of a required class.
	ErrPoolExhausted = errors.New("block pool exhausted")
	// ErrChannelCorrupt is a fatal error returned when a message can not be
	// interpreted.
	ErrChannelCorrupt = errors.New("control channel corrupt")
	// ErrShutdown is returned by every quantum after shutdown was applied.
	ErrShutdown = errors.New("engine shut down")
	// ErrUnknownNode is the cause of error notifications for messages that
	// refer to a destroyed or unknown node.
	ErrUnknownNode = errors.New("unknown node")
	// ErrPanic is the fault cause of a node that panicked in Process.
	ErrPanic = errors.New("node panicked")
	// ErrNonFinite is the fault cause of a node that produced NaN or Inf.
	ErrNonFinite = errors.New("node produced non-finite samples")
	// ErrBudget is the fault cause of a node that exceeded its time budget.
	ErrBudget = errors.New("node exceeded time budget")
)

// Config of the scheduler.
type Config struct {
	SampleRate  float64
	QuantumSize int
	// Budget is a per-node wall-clock budget. Zero disables the check.
	Budget time.Duration
	// Observe is called with wall time spent on every quantum if not nil.
	Observe func(time.Duration)
}
