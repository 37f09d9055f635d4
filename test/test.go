// Package test contains helper functions useful for testing graph packages.
package test

import (
	"io"
	"math"
)

// Source is an in-memory media source of planar data.
type Source struct {
	Rate int
	Data [][]float32
	// Limit is the maximum number of frames returned by a single read, zero
	// means no limit.
	Limit  int
	Closed bool
	pos    int
}

// SampleRate implements media.Source.
func (s *Source) SampleRate() int { return s.Rate }

// Channels implements media.Source.
func (s *Source) Channels() int { return len(s.Data) }

// Close implements media.Source.
func (s *Source) Close() error {
	s.Closed = true
	return nil
}

// Read implements media.Source.
func (s *Source) Read(dst [][]float32) (int, error) {
	left := len(s.Data[0]) - s.pos
	if left == 0 {
		return 0, io.EOF
	}
	n := min(len(dst[0]), left)
	if s.Limit > 0 {
		n = min(n, s.Limit)
	}
	for c := range dst {
		copy(dst[c], s.Data[c][s.pos:s.pos+n])
	}
	s.pos += n
	return n, nil
}

// Ramp returns planar data where every sample is unique: channel c holds
// values c*frames, c*frames+1, ...
func Ramp(channels, frames int) [][]float32 {
	data := make([][]float32, channels)
	for c := range data {
		data[c] = make([]float32, frames)
		for i := range data[c] {
			data[c][i] = float32(c*frames + i)
		}
	}
	return data
}

// Sine returns frames of a full scale sine wave.
func Sine(freq, sampleRate float64, frames int) []float32 {
	s := make([]float32, frames)
	for i := range s {
		s[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
	}
	return s
}
