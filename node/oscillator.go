package node

import (
	"errors"
	"math"

	"pipelined.dev/graph/mutable"
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/signal"
)

// Waveform is the shape of oscillator output.
type Waveform int

// Oscillator waveforms.
const (
	Sine Waveform = iota
	Square
	Sawtooth
	Triangle
	// Custom waveform is set with a PeriodicWave.
	Custom
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Sawtooth:
		return "sawtooth"
	case Triangle:
		return "triangle"
	case Custom:
		return "custom"
	default:
		return "unknown"
	}
}

// ErrCustomWaveform is returned when custom waveform is set without a wave.
var ErrCustomWaveform = errors.New("custom waveform requires periodic wave")

// Oscillator is a periodic mono source. Frequency is 440 Hz if zero.
type Oscillator struct {
	Type      Waveform
	Frequency float32
	// Detune in cents.
	Detune float32
	// Wave is required for Custom waveform.
	Wave *PeriodicWave
	source
	proc *oscillator
}

// New implements Kind.
func (o *Oscillator) New(cfg Config) (Descriptor, Processor, error) {
	if o.Type < Sine || o.Type > Custom {
		return Descriptor{}, nil, optionError(kindOscillator, "Type", o.Type)
	}
	p := &oscillator{
		waveform:   o.Type,
		sampleRate: cfg.SampleRate,
	}
	if o.Wave != nil {
		p.waveform, p.wave = Custom, o.Wave.table
	} else if o.Type == Custom {
		return Descriptor{}, nil, ErrCustomWaveform
	}
	frequency := o.Frequency
	if frequency == 0 {
		frequency = 440
	}
	nyquist := float32(cfg.SampleRate / 2)
	o.proc = p
	o.bind(cfg, &p.schedule)
	return Descriptor{
		Kind:    kindOscillator,
		Outputs: []Output{{Channels: 1}},
		Params: []param.Descriptor{
			{Name: "frequency", Default: frequency, Min: -nyquist, Max: nyquist},
			{Name: "detune", Default: o.Detune, Min: -153600, Max: 153600},
		},
	}, p, nil
}

// SetType returns a mutation that changes the waveform. Custom waveform is
// set with SetPeriodicWave.
func (o *Oscillator) SetType(w Waveform) mutable.Mutation {
	if o.proc == nil {
		return mutable.Mutation{}
	}
	p := o.proc
	return mutate(o.mctx, func() error {
		if w < Sine || w >= Custom {
			return optionError(kindOscillator, "Type", w)
		}
		p.waveform, p.wave = w, nil
		return nil
	})
}

// SetPeriodicWave returns a mutation that switches the oscillator to the
// custom waveform.
func (o *Oscillator) SetPeriodicWave(w *PeriodicWave) mutable.Mutation {
	if o.proc == nil {
		return mutable.Mutation{}
	}
	p := o.proc
	return mutate(o.mctx, func() error {
		if w == nil {
			return ErrCustomWaveform
		}
		p.waveform, p.wave = Custom, w.table
		return nil
	})
}

type oscillator struct {
	schedule
	waveform   Waveform
	wave       []float32
	sampleRate float64
	// phase is position in the period, in [0, 1).
	phase float64
	// last is the state of triangle integrator.
	last float64
}

func (p *oscillator) Process(_, out []*signal.Block, params Params, q Quantum) bool {
	from, to, ended := p.window(q)
	silence(out, from, to)
	frequency, detune := params[0], params[1]
	nyquist := p.sampleRate / 2
	dst := out[0].Channel(0)
	for i := from; i < to; i++ {
		f := float64(frequency[i])
		if d := detune[i]; d != 0 {
			f *= math.Exp2(float64(d) / 1200)
		}
		f = math.Max(-nyquist, math.Min(nyquist, f))
		inc := f / p.sampleRate
		dst[i] = p.sample(math.Abs(inc))
		p.phase += inc
		p.phase -= math.Floor(p.phase)
	}
	// unstarted oscillator must not be torn down before it plays
	return !ended
}

func (p *oscillator) sample(dt float64) float32 {
	switch p.waveform {
	case Square:
		return float32(square(p.phase, dt))
	case Sawtooth:
		return float32(2*p.phase - 1 - polyBLEP(p.phase, dt))
	case Triangle:
		// leaky integration of band limited square
		p.last = dt*square(p.phase, dt) + (1-dt)*p.last
		return float32(4 * p.last)
	case Custom:
		return lookup(p.wave, p.phase)
	default:
		return lookup(sineTable, p.phase)
	}
}

func square(phase, dt float64) float64 {
	v := -1.0
	if phase < 0.5 {
		v = 1
	}
	shifted := phase + 0.5
	shifted -= math.Floor(shifted)
	return v + polyBLEP(phase, dt) - polyBLEP(shifted, dt)
}

// polyBLEP returns the band limited step correction for phase t with phase
// increment dt.
func polyBLEP(t, dt float64) float64 {
	switch {
	case dt == 0:
		return 0
	case t < dt:
		t /= dt
		return t + t - t*t - 1
	case t > 1-dt:
		t = (t - 1) / dt
		return t*t + t + t + 1
	default:
		return 0
	}
}
