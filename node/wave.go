package node

import (
	"errors"
	"math"
)

// tableSize is the number of samples in one wavetable period.
const tableSize = 2048

// ErrWave is returned when periodic wave coefficients are invalid.
var ErrWave = errors.New("invalid periodic wave")

var sineTable = func() []float32 {
	t := make([]float32, tableSize)
	for i := range t {
		t[i] = float32(math.Sin(2 * math.Pi * float64(i) / tableSize))
	}
	return t
}()

// PeriodicWave is a single period waveform defined by Fourier coefficients.
// It is immutable and can be shared by oscillators.
type PeriodicWave struct {
	table []float32
}

// NewPeriodicWave builds a wave from cosine (real) and sine (imag) terms.
// The first term of both is ignored. A nil slice is treated as zeros of the
// other's length. Normalized waves have peak amplitude of 1.
func NewPeriodicWave(real, imag []float32, normalize bool) (*PeriodicWave, error) {
	switch {
	case real == nil && imag == nil:
		real, imag = []float32{0, 0}, []float32{0, 1}
	case real == nil:
		real = make([]float32, len(imag))
	case imag == nil:
		imag = make([]float32, len(real))
	}
	if len(real) != len(imag) {
		return nil, errors.Join(ErrWave, errors.New("real and imag lengths differ"))
	}
	if len(real) < 2 {
		return nil, errors.Join(ErrWave, errors.New("at least two coefficients required"))
	}

	table := make([]float64, tableSize)
	// harmonics above half the table are aliased
	harmonics := min(len(real), tableSize/2)
	for n := 1; n < harmonics; n++ {
		re, im := float64(real[n]), float64(imag[n])
		if re == 0 && im == 0 {
			continue
		}
		for i := range table {
			phase := 2 * math.Pi * float64(n) * float64(i) / tableSize
			table[i] += re*math.Cos(phase) + im*math.Sin(phase)
		}
	}

	scale := 1.0
	if normalize {
		peak := 0.0
		for _, v := range table {
			peak = math.Max(peak, math.Abs(v))
		}
		if peak > 0 {
			scale = 1 / peak
		}
	}
	w := PeriodicWave{table: make([]float32, tableSize)}
	for i, v := range table {
		w.table[i] = float32(v * scale)
	}
	return &w, nil
}

// lookup returns linear interpolated table value at phase in [0, 1).
func lookup(table []float32, phase float64) float32 {
	pos := phase * tableSize
	i := int(pos)
	frac := float32(pos - float64(i))
	i &= tableSize - 1
	next := (i + 1) & (tableSize - 1)
	return table[i] + frac*(table[next]-table[i])
}
