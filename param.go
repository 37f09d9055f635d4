package graph

import (
	"fmt"
	"math"

	"pipelined.dev/graph/internal/runtime"
	"pipelined.dev/graph/node"
	"pipelined.dev/graph/param"
)

// Param is a handle of a node parameter. Events scheduled with it are
// validated synchronously and applied by the render side at the next
// quantum boundary.
type Param struct {
	c     *Context
	node  node.Handle
	index int
	desc  param.Descriptor
}

// Param returns parameter of a node by its name.
func (c *Context) Param(h node.Handle, name string) (*Param, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := c.lookup(h)
	if err != nil {
		return nil, err
	}
	i, ok := m.desc.Param(name)
	if !ok {
		return nil, reject(fmt.Errorf("%w: %s has no %q", ErrUnknownParam, m.kind, name))
	}
	return &Param{
		c:     c,
		node:  h,
		index: i,
		desc:  m.desc.Params[i],
	}, nil
}

// Node returns handle of the node that owns parameter.
func (p *Param) Node() node.Handle {
	return p.node
}

// Descriptor returns parameter descriptor.
func (p *Param) Descriptor() param.Descriptor {
	return p.desc
}

// Value returns intrinsic value of the parameter at current time. Audio-rate
// modulation is not included.
func (p *Param) Value() (float32, error) {
	var v float32
	err := p.timeline(func(tl *param.Timeline, now float64) error {
		v = p.desc.Clamp(tl.ValueAtTime(now))
		return nil
	})
	return v, err
}

// SetValue sets value at current time.
func (p *Param) SetValue(v float32) error {
	return p.schedule(func(_ *param.Timeline, now float64) param.Event {
		return param.Set(v, now)
	})
}

// SetValueAtTime steps to value at time.
func (p *Param) SetValueAtTime(v float32, time float64) error {
	return p.Schedule(param.Set(v, time))
}

// LinearRampToValueAtTime ramps linearly from the end of the previous event
// to value at end time.
func (p *Param) LinearRampToValueAtTime(v float32, end float64) error {
	return p.schedule(func(tl *param.Timeline, now float64) param.Event {
		return param.Linear(v, math.Max(tl.LastEnd(), now), end)
	})
}

// ExponentialRampToValueAtTime ramps exponentially from the end of the
// previous event to value at end time. The ramp must not cross zero.
func (p *Param) ExponentialRampToValueAtTime(v float32, end float64) error {
	return p.schedule(func(tl *param.Timeline, now float64) param.Event {
		return param.Exponential(v, math.Max(tl.LastEnd(), now), end)
	})
}

// SetTargetAtTime approaches target value exponentially starting at time.
func (p *Param) SetTargetAtTime(target float32, start, timeConstant float64) error {
	return p.Schedule(param.Target(target, start, timeConstant))
}

// SetValueCurveAtTime plays values over duration starting at time.
func (p *Param) SetValueCurveAtTime(values []float32, start, duration float64) error {
	return p.Schedule(param.Curve(values, start, duration))
}

// CancelScheduledValues removes all events starting at or after time.
func (p *Param) CancelScheduledValues(time float64) error {
	return p.Schedule(param.CancelFrom(time))
}

// Schedule inserts automation event.
func (p *Param) Schedule(e param.Event) error {
	return p.schedule(func(*param.Timeline, float64) param.Event {
		return e
	})
}

func (p *Param) schedule(event func(tl *param.Timeline, now float64) param.Event) error {
	return p.timeline(func(tl *param.Timeline, now float64) error {
		e := event(tl, now)
		if err := tl.Check(e); err != nil {
			return &ConfigError{Node: p.node, Field: p.desc.Name, Err: err}
		}
		if err := p.c.send(runtime.Message{
			Type:   runtime.ScheduleEvent,
			Handle: p.node,
			Index:  p.index,
			Event:  e,
			Spare:  runtime.Spare{Events: p.c.reserve.Events(p.node, p.index, tl.Len())},
		}); err != nil {
			return err
		}
		return tl.Schedule(e)
	})
}

// timeline calls fn with the control-side mirror of parameter timeline
// moved to current frame.
func (p *Param) timeline(fn func(tl *param.Timeline, now float64) error) error {
	c := p.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.accepting(); err != nil {
		return err
	}
	m, err := c.lookup(p.node)
	if err != nil {
		return err
	}
	frame := c.scheduler.Frame()
	tl := m.timelines[p.index]
	tl.Prune(frame)
	return fn(tl, float64(frame)/float64(c.sampleRate))
}
