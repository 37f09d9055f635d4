package node

import (
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/signal"
)

// Channels configures the first input of a node. Zero values select the
// defaults of the node kind.
type Channels struct {
	Count          int
	Mode           ChannelCountMode
	Interpretation signal.Interpretation
}

func (c Channels) input(count int) Input {
	if c.Count == 0 {
		c.Count = count
	}
	return Input{Channels: c.Count, Mode: c.Mode, Interpretation: c.Interpretation}
}

// Destination is the final node of a graph. It is created by the graph.
type Destination struct {
	Channels int
}

// New implements Kind.
func (d Destination) New(cfg Config) (Descriptor, Processor, error) {
	if d.Channels < 1 || d.Channels > signal.MaxChannels {
		return Descriptor{}, nil, optionError(kindDestination, "Channels", d.Channels)
	}
	return Descriptor{
		Kind:    kindDestination,
		Inputs:  []Input{{Channels: d.Channels, Mode: Explicit, Interpretation: signal.Speakers}},
		Outputs: []Output{{}},
	}, destination{}, nil
}

type destination struct{}

func (destination) Process(in, out []*signal.Block, _ Params, _ Quantum) bool {
	out[0].CopyFrom(in[0])
	return false
}

// ConstantSource outputs a mono signal equal to its offset parameter
// between start and stop times.
type ConstantSource struct {
	Offset float32
	source
}

// New implements Kind.
func (c *ConstantSource) New(cfg Config) (Descriptor, Processor, error) {
	p := &constantSource{}
	c.bind(cfg, &p.schedule)
	return Descriptor{
		Kind:    kindConstant,
		Outputs: []Output{{Channels: 1}},
		Params: []param.Descriptor{
			{Name: "offset", Default: c.Offset, Min: -param.Unbounded, Max: param.Unbounded},
		},
	}, p, nil
}

type constantSource struct {
	schedule
}

func (p *constantSource) Process(_, out []*signal.Block, params Params, q Quantum) bool {
	from, to, ended := p.window(q)
	silence(out, from, to)
	copy(out[0].Channel(0)[from:to], params[0][from:to])
	return !ended
}

// Gain multiplies its input by the gain parameter.
type Gain struct {
	Gain float32
	Channels
}

// New implements Kind.
func (g Gain) New(Config) (Descriptor, Processor, error) {
	in := g.Channels.input(2)
	if err := in.Validate(); err != nil {
		return Descriptor{}, nil, err
	}
	return Descriptor{
		Kind:    kindGain,
		Inputs:  []Input{in},
		Outputs: []Output{{}},
		Params: []param.Descriptor{
			{Name: "gain", Default: g.Gain, Min: -param.Unbounded, Max: param.Unbounded},
		},
	}, gain{}, nil
}

type gain struct{}

func (gain) Process(in, out []*signal.Block, params Params, _ Quantum) bool {
	g := params[0]
	for c, dst := range out[0].Channels() {
		src := in[0].Channel(c)
		for i := range dst {
			dst[i] = src[i] * g[i]
		}
	}
	return false
}
