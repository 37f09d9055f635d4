package node

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"

	"pipelined.dev/graph/mutable"
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/signal"
)

// FilterType selects the biquad filter response.
type FilterType int

// Biquad filter types.
const (
	Lowpass FilterType = iota
	Highpass
	Bandpass
	Notch
	Allpass
	Peaking
	Lowshelf
	Highshelf
)

func (t FilterType) String() string {
	switch t {
	case Lowpass:
		return "lowpass"
	case Highpass:
		return "highpass"
	case Bandpass:
		return "bandpass"
	case Notch:
		return "notch"
	case Allpass:
		return "allpass"
	case Peaking:
		return "peaking"
	case Lowshelf:
		return "lowshelf"
	case Highshelf:
		return "highshelf"
	default:
		return "unknown"
	}
}

// tailThreshold is the output level below which a filter with silent input
// is considered quiet.
const tailThreshold = 1e-7

// BiquadFilter is a second order IIR filter. Coefficients are computed once
// per quantum from k-rate parameters. Frequency is 350 Hz and Q is 1 if
// zero.
type BiquadFilter struct {
	Type      FilterType
	Frequency float32
	Q         float32
	// Gain in dB, used by peaking and shelving filters.
	Gain float32
	// Detune in cents.
	Detune float32
	Channels

	mctx mutable.Context
	proc *biquadFilter
}

// New implements Kind.
func (f *BiquadFilter) New(cfg Config) (Descriptor, Processor, error) {
	if f.Type < Lowpass || f.Type > Highshelf {
		return Descriptor{}, nil, optionError(kindBiquad, "Type", f.Type)
	}
	in := f.Channels.input(2)
	if err := in.Validate(); err != nil {
		return Descriptor{}, nil, err
	}
	frequency, q := f.Frequency, f.Q
	if frequency == 0 {
		frequency = 350
	}
	if q == 0 {
		q = 1
	}
	p := &biquadFilter{
		typ:        f.Type,
		sampleRate: cfg.SampleRate,
		scratch:    make([]float64, cfg.QuantumSize),
		sections:   make([]*biquad.Section, signal.MaxChannels),
	}
	for i := range p.sections {
		p.sections[i] = biquad.NewSection(biquad.Coefficients{B0: 1})
	}
	f.mctx, f.proc = cfg.Context, p
	nyquist := float32(cfg.SampleRate / 2)
	return Descriptor{
		Kind:    kindBiquad,
		Inputs:  []Input{in},
		Outputs: []Output{{}},
		Params: []param.Descriptor{
			{Name: "frequency", Default: frequency, Min: 0, Max: nyquist, Rate: param.KRate},
			{Name: "detune", Default: f.Detune, Min: -153600, Max: 153600, Rate: param.KRate},
			{Name: "Q", Default: q, Min: 0.0001, Max: 1000, Rate: param.KRate},
			{Name: "gain", Default: f.Gain, Min: -60, Max: 60, Rate: param.KRate},
		},
	}, p, nil
}

// SetType returns a mutation that changes filter type. Filter state is kept.
func (f *BiquadFilter) SetType(t FilterType) mutable.Mutation {
	if f.proc == nil {
		return mutable.Mutation{}
	}
	p := f.proc
	return mutate(f.mctx, func() error {
		if t < Lowpass || t > Highshelf {
			return optionError(kindBiquad, "Type", t)
		}
		p.typ = t
		p.valid = false
		return nil
	})
}

type biquadFilter struct {
	typ        FilterType
	sampleRate float64
	sections   []*biquad.Section
	scratch    []float64
	// last computed coefficients inputs.
	valid                    bool
	frequency, q, gain, tune float32
}

func (p *biquadFilter) Process(in, out []*signal.Block, params Params, q Quantum) bool {
	p.update(params[0][0], params[1][0], params[2][0], params[3][0])
	src, dst := in[0], out[0]
	peak := 0.0
	for c := 0; c < dst.NumChannels(); c++ {
		s := p.sections[c]
		for i, v := range src.Channel(c) {
			p.scratch[i] = float64(v)
		}
		s.ProcessBlock(p.scratch[:q.Size])
		ch := dst.Channel(c)
		for i := range ch {
			ch[i] = float32(p.scratch[i])
			peak = math.Max(peak, math.Abs(p.scratch[i]))
		}
	}
	if peak < tailThreshold && src.IsSilent() {
		for _, s := range p.sections {
			s.Reset()
		}
		return false
	}
	return true
}

func (p *biquadFilter) update(frequency, detune, q, gain float32) {
	if p.valid && frequency == p.frequency && detune == p.tune && q == p.q && gain == p.gain {
		return
	}
	p.valid = true
	p.frequency, p.tune, p.q, p.gain = frequency, detune, q, gain

	f := float64(frequency)
	if detune != 0 {
		f *= math.Exp2(float64(detune) / 1200)
	}
	nyquist := p.sampleRate / 2
	f = math.Max(1, math.Min(f, nyquist*0.9999))
	c := p.coefficients(f, float64(q), float64(gain))
	for _, s := range p.sections {
		s.Coefficients = c
	}
}

func (p *biquadFilter) coefficients(f, q, gain float64) biquad.Coefficients {
	switch p.typ {
	case Highpass:
		return design.Highpass(f, q, p.sampleRate)
	case Bandpass:
		return design.Bandpass(f, q, p.sampleRate)
	case Notch:
		return design.Notch(f, q, p.sampleRate)
	case Allpass:
		return design.Allpass(f, q, p.sampleRate)
	case Peaking:
		return design.Peak(f, gain, q, p.sampleRate)
	case Lowshelf:
		return design.LowShelf(f, gain, q, p.sampleRate)
	case Highshelf:
		return design.HighShelf(f, gain, q, p.sampleRate)
	default:
		return design.Lowpass(f, q, p.sampleRate)
	}
}
