// Package param implements sample-accurate parameter automation.
//
// A Timeline holds automation events ordered by start time and computes the
// value of a parameter for every sample frame. Events take effect at their
// start frame and stay in effect until the next event starts, so an event
// scheduled in the middle of a ramp truncates that ramp at its own start.
package param

import "math"

// Rate defines how often a parameter value is computed.
type Rate int

const (
	// ARate parameters are computed for every sample of a quantum.
	ARate Rate = iota
	// KRate parameters are computed once per quantum, at its first sample.
	KRate
)

func (r Rate) String() string {
	if r == KRate {
		return "k-rate"
	}
	return "a-rate"
}

// Descriptor describes a parameter exposed by a node.
type Descriptor struct {
	Name    string
	Default float32
	Min     float32
	Max     float32
	Rate    Rate
}

// Clamp limits v to the nominal range of parameter.
func (d Descriptor) Clamp(v float32) float32 {
	switch {
	case v < d.Min:
		return d.Min
	case v > d.Max:
		return d.Max
	default:
		return v
	}
}

// Unbounded is the widest nominal range of float32 parameters.
const Unbounded = math.MaxFloat32
