// Package mock provides deterministic node kinds for tests of the render
// side. Kinds are pointers: processors update counters of the kind that
// created them, so counters must be checked only between quanta.
package mock

import (
	"errors"
	"math"

	"pipelined.dev/graph/mutable"
	"pipelined.dev/graph/node"
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/signal"
)

// ErrClose is returned by Source.Close if Source.ErrorOnClose is set.
var ErrClose = errors.New("mock close error")

// Source outputs Value on every channel. If Ramp is set, it outputs frame
// numbers instead. It reports tail until Limit quanta are processed, zero
// Limit means forever.
type Source struct {
	counter
	Value        float32
	Ramp         bool
	Channels     int
	Limit        int
	Closed       bool
	ErrorOnClose bool
	ctx          mutable.Context
}

// New implements node.Kind.
func (m *Source) New(cfg node.Config) (node.Descriptor, node.Processor, error) {
	if m.Channels == 0 {
		m.Channels = 1
	}
	m.ctx = cfg.Context
	return node.Descriptor{
		Kind:    "mock-source",
		Outputs: []node.Output{{Channels: m.Channels}},
		Params: []param.Descriptor{
			{Name: "level", Default: 1, Min: -param.Unbounded, Max: param.Unbounded},
		},
	}, (*source)(m), nil
}

// SetValue returns mutation that changes output value.
func (m *Source) SetValue(v float32) mutable.Mutation {
	return m.ctx.Mutate(func() error {
		m.Value = v
		return nil
	})
}

// Close implements io.Closer.
func (m *Source) Close() error {
	m.Closed = true
	if m.ErrorOnClose {
		return ErrClose
	}
	return nil
}

type source Source

func (m *source) Process(_, out []*signal.Block, params node.Params, q node.Quantum) bool {
	m.advance(q.Size)
	for _, c := range out[0].Channels() {
		for i := range c {
			v := m.Value
			if m.Ramp {
				v = float32(q.Frame) + float32(i)
			}
			c[i] = v * params[0][i]
		}
	}
	return m.Limit == 0 || m.Quanta < m.Limit
}

func (m *source) Close() error {
	return (*Source)(m).Close()
}

// Tail passes input through and keeps adding Level to the output for
// Quanta quanta after its input went silent.
type Tail struct {
	counter
	Quanta int
	Level  float32
	// Remaining is number of tail quanta left.
	Remaining int
}

// New implements node.Kind.
func (m *Tail) New(node.Config) (node.Descriptor, node.Processor, error) {
	m.Remaining = m.Quanta
	return node.Descriptor{
		Kind:    "mock-tail",
		Inputs:  []node.Input{{Channels: 1, Mode: node.Max}},
		Outputs: []node.Output{{}},
	}, (*tail)(m), nil
}

type tail Tail

func (m *tail) Process(in, out []*signal.Block, _ node.Params, q node.Quantum) bool {
	m.advance(q.Size)
	out[0].CopyFrom(in[0])
	if !in[0].IsSilent() {
		m.Remaining = m.Quanta
		return true
	}
	if m.Remaining == 0 {
		return false
	}
	m.Remaining--
	for _, c := range out[0].Channels() {
		for i := range c {
			c[i] += m.Level
		}
	}
	return true
}

// Pass copies input to output.
type Pass struct {
	counter
	Mode node.ChannelCountMode
	// Channels of the input, 2 if zero.
	Channels int
}

// New implements node.Kind.
func (m *Pass) New(node.Config) (node.Descriptor, node.Processor, error) {
	if m.Channels == 0 {
		m.Channels = 2
	}
	return node.Descriptor{
		Kind:    "mock-pass",
		Inputs:  []node.Input{{Channels: m.Channels, Mode: m.Mode}},
		Outputs: []node.Output{{}},
		Params: []param.Descriptor{
			{Name: "gain", Default: 1, Min: 0, Max: 10, Rate: param.KRate},
		},
	}, (*pass)(m), nil
}

type pass Pass

func (m *pass) Process(in, out []*signal.Block, params node.Params, q node.Quantum) bool {
	m.advance(q.Size)
	out[0].CopyFrom(in[0])
	out[0].Scale(params[0][0])
	return false
}

// Panic panics on call number After+1.
type Panic struct {
	counter
	After int
}

// New implements node.Kind.
func (m *Panic) New(node.Config) (node.Descriptor, node.Processor, error) {
	return node.Descriptor{
		Kind:    "mock-panic",
		Inputs:  []node.Input{{Channels: 1}},
		Outputs: []node.Output{{}},
	}, (*panicking)(m), nil
}

type panicking Panic

func (m *panicking) Process(in, out []*signal.Block, _ node.Params, q node.Quantum) bool {
	if m.Quanta == m.After {
		panic("mock panic")
	}
	m.advance(q.Size)
	out[0].CopyFrom(in[0])
	return true
}

// NaN outputs NaN starting with call number After+1.
type NaN struct {
	counter
	After int
}

// New implements node.Kind.
func (m *NaN) New(node.Config) (node.Descriptor, node.Processor, error) {
	return node.Descriptor{
		Kind:    "mock-nan",
		Outputs: []node.Output{{Channels: 1}},
	}, (*nan)(m), nil
}

type nan NaN

func (m *nan) Process(_, out []*signal.Block, _ node.Params, q node.Quantum) bool {
	v := float32(1)
	if m.Quanta >= m.After {
		v = float32(math.NaN())
	}
	m.advance(q.Size)
	c := out[0].Channel(0)
	for i := range c {
		c[i] = v
	}
	return true
}

// Failing returns Err from New.
type Failing struct {
	Err error
}

// New implements node.Kind.
func (m Failing) New(node.Config) (node.Descriptor, node.Processor, error) {
	return node.Descriptor{}, nil, m.Err
}

// counter counts quanta and frames.
type counter struct {
	Quanta int
	Frames int
}

func (c *counter) advance(size int) {
	c.Quanta++
	c.Frames += size
}

// Count returns quanta and frames metrics.
func (c *counter) Count() (int, int) {
	return c.Quanta, c.Frames
}
