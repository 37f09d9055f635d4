package node

import (
	"errors"
	"math"
	"math/cmplx"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"

	"pipelined.dev/graph/internal/queue"
	"pipelined.dev/graph/signal"
)

// FFT size limits of the analyser.
const (
	MinFFTSize = 32
	MaxFFTSize = 32768
)

var (
	// ErrFFTSize is returned when FFT size is not a power of two in range.
	ErrFFTSize = errors.New("fft size must be power of two in [32, 32768]")
	// ErrDecibels is returned when decibel range is empty.
	ErrDecibels = errors.New("min decibels must be less than max decibels")
	// ErrSmoothing is returned when smoothing is out of [0, 1].
	ErrSmoothing = errors.New("smoothing must be in [0, 1]")
)

// Analyser passes its input through and provides the latest time and
// frequency domain data of its mono down-mix to the control side.
//
// FFTSize is 2048, Smoothing is 0.8 and the decibel range is [-100, -30]
// if zero. Data methods are safe for concurrent use.
type Analyser struct {
	FFTSize     int
	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64
	Channels

	mu       sync.Mutex
	size     atomic.Int32
	frames   *queue.Latest[*frame]
	computed uint64
	plan     *algofft.Plan[complex128]
	window   []float64
	input    []complex128
	spectrum []complex128
	smoothed []float64
}

// frame is a time domain window handed over by the render side.
type frame struct {
	samples []float32
	size    int
	// end is the frame index after the last sample, zero if not rendered.
	end uint64
}

// New implements Kind.
func (a *Analyser) New(cfg Config) (Descriptor, Processor, error) {
	if a.FFTSize == 0 {
		a.FFTSize = 2048
	}
	if a.Smoothing == 0 {
		a.Smoothing = 0.8
	}
	if a.MinDecibels == 0 && a.MaxDecibels == 0 {
		a.MinDecibels, a.MaxDecibels = -100, -30
	}
	if err := validFFTSize(a.FFTSize); err != nil {
		return Descriptor{}, nil, err
	}
	if a.Smoothing < 0 || a.Smoothing > 1 {
		return Descriptor{}, nil, ErrSmoothing
	}
	if a.MinDecibels >= a.MaxDecibels {
		return Descriptor{}, nil, ErrDecibels
	}
	in := a.Channels.input(2)
	if err := in.Validate(); err != nil {
		return Descriptor{}, nil, err
	}
	if err := a.resize(a.FFTSize); err != nil {
		return Descriptor{}, nil, err
	}
	a.frames = queue.NewLatest(newFrame(), newFrame(), newFrame())
	p := &analyser{
		history: make([]float32, MaxFFTSize),
		mono:    make([]float32, cfg.QuantumSize),
		size:    &a.size,
		frames:  a.frames,
	}
	return Descriptor{
		Kind:    kindAnalyser,
		Inputs:  []Input{in},
		Outputs: []Output{{}},
	}, p, nil
}

func newFrame() *frame {
	return &frame{samples: make([]float32, MaxFFTSize)}
}

func validFFTSize(n int) error {
	if n < MinFFTSize || n > MaxFFTSize || n&(n-1) != 0 {
		return ErrFFTSize
	}
	return nil
}

// resize allocates frequency analysis state for size n.
func (a *Analyser) resize(n int) error {
	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return err
	}
	w, err := window.Blackman(n, window.WithPeriodic())
	if err != nil {
		return err
	}
	a.plan, a.window = plan, w
	a.input = make([]complex128, n)
	a.spectrum = make([]complex128, n)
	a.smoothed = make([]float64, n/2)
	a.computed = 0
	a.FFTSize = n
	a.size.Store(int32(n))
	return nil
}

// SetFFTSize changes the size of analysed window. Smoothing state is reset.
func (a *Analyser) SetFFTSize(n int) error {
	if err := validFFTSize(n); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resize(n)
}

// SetSmoothing sets the time smoothing constant of frequency data.
func (a *Analyser) SetSmoothing(s float64) error {
	if s < 0 || s > 1 || math.IsNaN(s) {
		return ErrSmoothing
	}
	a.mu.Lock()
	a.Smoothing = s
	a.mu.Unlock()
	return nil
}

// SetDecibels sets the range used to scale byte frequency data.
func (a *Analyser) SetDecibels(min, max float64) error {
	if min >= max {
		return ErrDecibels
	}
	a.mu.Lock()
	a.MinDecibels, a.MaxDecibels = min, max
	a.mu.Unlock()
	return nil
}

// FrequencyBinCount returns number of frequency data values.
func (a *Analyser) FrequencyBinCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.FFTSize / 2
}

// FloatTimeDomainData copies the latest window of samples into dst and
// returns number of copied samples.
func (a *Analyser) FloatTimeDomainData(dst []float32) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	f := a.latest()
	return copy(dst, f.samples[:a.FFTSize])
}

// ByteTimeDomainData is FloatTimeDomainData scaled to [0, 255] with silence
// at 128.
func (a *Analyser) ByteTimeDomainData(dst []byte) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	f := a.latest()
	n := min(len(dst), a.FFTSize)
	for i, v := range f.samples[:n] {
		dst[i] = toByte(128 * (1 + float64(v)))
	}
	return n
}

// FloatFrequencyData copies smoothed magnitudes in dB into dst and returns
// number of copied values.
func (a *Analyser) FloatFrequencyData(dst []float32) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.analyse()
	norm := 20 * math.Log10(math.Sqrt(float64(a.FFTSize)))
	n := min(len(dst), len(a.smoothed))
	for i, v := range a.smoothed[:n] {
		dst[i] = float32(20*math.Log10(v) - norm)
	}
	return n
}

// ByteFrequencyData is FloatFrequencyData scaled from the decibel range to
// [0, 255].
func (a *Analyser) ByteFrequencyData(dst []byte) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.analyse()
	norm := 20 * math.Log10(math.Sqrt(float64(a.FFTSize)))
	scale := 255 / (a.MaxDecibels - a.MinDecibels)
	n := min(len(dst), len(a.smoothed))
	for i, v := range a.smoothed[:n] {
		db := 20*math.Log10(v) - norm
		dst[i] = toByte(scale * (db - a.MinDecibels))
	}
	return n
}

// latest returns the most recent frame. Frames rendered with another size
// are returned as silence of current size.
func (a *Analyser) latest() *frame {
	if a.frames == nil {
		return &frame{samples: make([]float32, a.FFTSize)}
	}
	f, _ := a.frames.Front()
	if f.size != a.FFTSize {
		clear(f.samples[:a.FFTSize])
		f.size = a.FFTSize
	}
	return f
}

// analyse updates smoothed magnitudes if a new frame was rendered.
func (a *Analyser) analyse() {
	f := a.latest()
	if f.end == a.computed {
		return
	}
	a.computed = f.end
	for i, v := range f.samples[:a.FFTSize] {
		a.input[i] = complex(float64(v)*a.window[i], 0)
	}
	if err := a.plan.Forward(a.spectrum, a.input); err != nil {
		return
	}
	s := a.Smoothing
	for i := range a.smoothed {
		a.smoothed[i] = s*a.smoothed[i] + (1-s)*cmplx.Abs(a.spectrum[i])
	}
}

func toByte(v float64) byte {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 255:
		return 255
	default:
		return byte(v)
	}
}

type analyser struct {
	history []float32
	// pos is the next write position in history.
	pos    int
	mono   []float32
	size   *atomic.Int32
	frames *queue.Latest[*frame]
}

func (p *analyser) Process(in, out []*signal.Block, _ Params, q Quantum) bool {
	out[0].CopyFrom(in[0])
	clear(p.mono)
	signal.MixMono(p.mono, in[0])
	for _, v := range p.mono {
		p.history[p.pos] = v
		p.pos = (p.pos + 1) & (MaxFFTSize - 1)
	}

	n := int(p.size.Load())
	f := p.frames.Back()
	start := (p.pos - n) & (MaxFFTSize - 1)
	copied := copy(f.samples[:n], p.history[start:])
	copy(f.samples[copied:n], p.history)
	f.size = n
	f.end = q.Frame + uint64(q.Size)
	p.frames.Publish()
	return false
}
