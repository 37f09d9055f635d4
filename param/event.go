package param

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidEvent is returned when event arguments are out of range.
	ErrInvalidEvent = errors.New("invalid automation event")
	// ErrExponentialRamp is returned when an exponential ramp would start at
	// zero or cross zero.
	ErrExponentialRamp = errors.New("exponential ramp crosses zero")
)

// EventType is a type of automation event.
type EventType int

const (
	// SetValue steps to Value at Time.
	SetValue EventType = iota + 1
	// LinearRamp interpolates linearly from the current value at Time to
	// Value at End.
	LinearRamp
	// ExponentialRamp interpolates exponentially from the current value at
	// Time to Value at End.
	ExponentialRamp
	// SetTarget approaches Value exponentially starting at Time with
	// TimeConstant.
	SetTarget
	// ValueCurve resamples Curve across [Time, End].
	ValueCurve
	// Cancel removes all events starting at or after Time.
	Cancel
)

func (t EventType) String() string {
	switch t {
	case SetValue:
		return "setValue"
	case LinearRamp:
		return "linearRamp"
	case ExponentialRamp:
		return "exponentialRamp"
	case SetTarget:
		return "setTarget"
	case ValueCurve:
		return "valueCurve"
	case Cancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Event is an automation event. Times are in seconds of engine time.
type Event struct {
	Type         EventType
	Time         float64
	End          float64
	Value        float32
	TimeConstant float64
	Curve        []float32
}

// Set returns an event that steps to v at time.
func Set(v float32, time float64) Event {
	return Event{Type: SetValue, Time: time, End: time, Value: v}
}

// Linear returns a linear ramp to v over [start, end].
func Linear(v float32, start, end float64) Event {
	return Event{Type: LinearRamp, Time: start, End: end, Value: v}
}

// Exponential returns an exponential ramp to v over [start, end].
func Exponential(v float32, start, end float64) Event {
	return Event{Type: ExponentialRamp, Time: start, End: end, Value: v}
}

// Target returns an exponential approach to target starting at start.
func Target(target float32, start, timeConstant float64) Event {
	return Event{Type: SetTarget, Time: start, End: start, Value: target, TimeConstant: timeConstant}
}

// Curve returns a value curve played over [start, start+duration]. The curve
// is copied.
func Curve(values []float32, start, duration float64) Event {
	c := make([]float32, len(values))
	copy(c, values)
	return Event{Type: ValueCurve, Time: start, End: start + duration, Curve: c}
}

// CancelFrom returns an event that removes events starting at or after time.
func CancelFrom(time float64) Event {
	return Event{Type: Cancel, Time: time, End: time}
}

// Validate checks event arguments that do not depend on timeline state.
func (e Event) Validate() error {
	if !finite(e.Time) || e.Time < 0 {
		return fmt.Errorf("%w: %v time %v", ErrInvalidEvent, e.Type, e.Time)
	}
	if !finite(float64(e.Value)) {
		return fmt.Errorf("%w: %v value %v", ErrInvalidEvent, e.Type, e.Value)
	}
	switch e.Type {
	case SetValue, Cancel:
	case LinearRamp:
		if !finite(e.End) || e.End < e.Time {
			return fmt.Errorf("%w: ramp ends at %v before it starts at %v", ErrInvalidEvent, e.End, e.Time)
		}
	case ExponentialRamp:
		if !finite(e.End) || e.End < e.Time {
			return fmt.Errorf("%w: ramp ends at %v before it starts at %v", ErrInvalidEvent, e.End, e.Time)
		}
		if e.Value == 0 {
			return fmt.Errorf("%w: target value is zero", ErrExponentialRamp)
		}
	case SetTarget:
		if !finite(e.TimeConstant) || e.TimeConstant < 0 {
			return fmt.Errorf("%w: time constant %v", ErrInvalidEvent, e.TimeConstant)
		}
	case ValueCurve:
		if len(e.Curve) < 2 {
			return fmt.Errorf("%w: curve needs at least 2 values, got %d", ErrInvalidEvent, len(e.Curve))
		}
		if !finite(e.End) || e.End <= e.Time {
			return fmt.Errorf("%w: curve duration %v", ErrInvalidEvent, e.End-e.Time)
		}
		for i, v := range e.Curve {
			if !finite(float64(v)) {
				return fmt.Errorf("%w: curve value %d is %v", ErrInvalidEvent, i, v)
			}
		}
	default:
		return fmt.Errorf("%w: unknown type %d", ErrInvalidEvent, e.Type)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
