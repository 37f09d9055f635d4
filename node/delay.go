package node

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/delay"

	"pipelined.dev/graph/param"
	"pipelined.dev/graph/signal"
)

// maxDelayTime is the upper bound of Delay.MaxDelayTime in seconds.
const maxDelayTime = 180

// Delay delays its input by the delayTime parameter. It is a delaying node:
// it can be part of a feedback cycle, in which case the delay is at least one
// quantum long.
//
// The input channel count is clamped to the configured count (2 by default).
type Delay struct {
	DelayTime float64
	// MaxDelayTime is 1 second if zero.
	MaxDelayTime float64
	Channels
}

// New implements Kind.
func (d Delay) New(cfg Config) (Descriptor, Processor, error) {
	maxTime := d.MaxDelayTime
	if maxTime == 0 {
		maxTime = 1
	}
	if maxTime < 0 || maxTime >= maxDelayTime {
		return Descriptor{}, nil, optionError(kindDelay, "MaxDelayTime", d.MaxDelayTime)
	}
	if d.DelayTime < 0 || d.DelayTime > maxTime {
		return Descriptor{}, nil, optionError(kindDelay, "DelayTime", d.DelayTime)
	}
	in := d.Channels.input(2)
	if in.Mode == Max {
		in.Mode = ClampedMax
	}
	if err := in.Validate(); err != nil {
		return Descriptor{}, nil, err
	}

	maxFrames := maxTime * cfg.SampleRate
	size := int(math.Ceil(maxFrames)) + cfg.QuantumSize + 8
	p := &delayLine{
		lines:      make([]*delay.Line, in.Channels),
		maxFrames:  maxFrames,
		sampleRate: cfg.SampleRate,
	}
	for i := range p.lines {
		line, err := delay.New(size)
		if err != nil {
			return Descriptor{}, nil, err
		}
		p.lines[i] = line
	}
	// starts quiet: a new line holds nothing to drain
	p.quiet = math.MaxInt32
	return Descriptor{
		Kind:    kindDelay,
		Inputs:  []Input{in},
		Outputs: []Output{{}},
		Params: []param.Descriptor{
			{Name: "delayTime", Default: float32(d.DelayTime), Min: 0, Max: float32(maxTime)},
		},
	}, p, nil
}

type delayLine struct {
	lines      []*delay.Line
	maxFrames  float64
	sampleRate float64
	// quiet is number of frames since the last non-silent input.
	quiet int
}

func (p *delayLine) Process(in, out []*signal.Block, params Params, q Quantum) bool {
	d := params[0]
	src, dst := in[0], out[0]
	longest := 0.0
	for i := 0; i < q.Size; i++ {
		frames := p.frames(d[i], 0)
		longest = math.Max(longest, frames)
		for c, line := range p.lines {
			if c >= src.NumChannels() {
				line.Write(0)
				continue
			}
			line.Write(float64(src.Channel(c)[i]))
			dst.Channel(c)[i] = float32(read(line, frames))
		}
	}
	return p.tail(src, q, longest)
}

// Emit produces a quantum from input absorbed in earlier quanta.
func (p *delayLine) Emit(out []*signal.Block, params Params, q Quantum) {
	d := params[0]
	dst := out[0]
	minFrames := float64(q.Size)
	for c := 0; c < dst.NumChannels(); c++ {
		ch := dst.Channel(c)
		if c >= len(p.lines) {
			for i := range ch {
				ch[i] = 0
			}
			continue
		}
		for i := range ch {
			// nothing of this quantum is written yet: Read(k) is k frames
			// before the quantum start
			ch[i] = float32(readBack(p.lines[c], p.frames(d[i], minFrames)-float64(i)))
		}
	}
}

// Absorb writes the quantum input into delay lines.
func (p *delayLine) Absorb(in []*signal.Block, params Params, q Quantum) bool {
	src := in[0]
	for c, line := range p.lines {
		if c >= src.NumChannels() {
			for i := 0; i < q.Size; i++ {
				line.Write(0)
			}
			continue
		}
		for _, v := range src.Channel(c) {
			line.Write(float64(v))
		}
	}
	longest := 0.0
	for _, v := range params[0] {
		longest = math.Max(longest, p.frames(v, float64(q.Size)))
	}
	return p.tail(src, q, longest)
}

func (p *delayLine) frames(seconds float32, min float64) float64 {
	f := float64(seconds) * p.sampleRate
	if f > p.maxFrames {
		f = p.maxFrames
	}
	if f < min {
		f = min
	}
	return f
}

func (p *delayLine) tail(src *signal.Block, q Quantum, longest float64) bool {
	if !src.IsSilent() {
		p.quiet = 0
	} else if p.quiet < math.MaxInt32-q.Size {
		p.quiet += q.Size
	}
	return float64(p.quiet) < longest+3
}

// read returns the sample written frames ago, the current sample is written
// already.
func read(line *delay.Line, frames float64) float64 {
	if frames >= 1 {
		return line.ReadFractional(frames + 1)
	}
	return (1-frames)*line.Read(1) + frames*line.Read(2)
}

// readBack returns the sample k frames back, Read(1) being the latest
// write. Hermite interpolation needs a neighbour after k, so reads closer
// than two frames are linear.
func readBack(line *delay.Line, k float64) float64 {
	if k < 2 {
		return (2-k)*line.Read(1) + (k-1)*line.Read(2)
	}
	return line.ReadFractional(k)
}
