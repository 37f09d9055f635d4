// Package resample converts sample rate of media streams with polyphase
// FIR resamplers, one per channel.
package resample

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/resample"

	"pipelined.dev/graph/media"
)

// Quality selects resampling filter quality.
type Quality = resample.Quality

// Qualities of resampling filter.
const (
	Fast     = resample.QualityFast
	Balanced = resample.QualityBalanced
	Best     = resample.QualityBest
)

// Resampler converts planar frames between two sample rates.
type Resampler struct {
	channels []*resample.Resampler
	in       []float64
	out      [][]float32
}

// New returns resampler for provided rates and number of channels.
func New(inRate, outRate, channels int, q Quality) (*Resampler, error) {
	if channels < 1 || channels > media.MaxChannels {
		return nil, fmt.Errorf("resample: %d channels", channels)
	}
	r := Resampler{
		channels: make([]*resample.Resampler, channels),
		out:      make([][]float32, channels),
	}
	for i := range r.channels {
		c, err := resample.NewForRates(float64(inRate), float64(outRate), resample.WithQuality(q))
		if err != nil {
			return nil, fmt.Errorf("resample %d to %d: %w", inRate, outRate, err)
		}
		r.channels[i] = c
	}
	return &r, nil
}

// Func returns media.ResamplerFunc which creates resamplers of provided
// quality.
func Func(q Quality) media.ResamplerFunc {
	return func(inRate, outRate, channels int) (media.Resampler, error) {
		return New(inRate, outRate, channels, q)
	}
}

// Resample implements media.Resampler. The result is valid until the next
// call.
func (r *Resampler) Resample(src [][]float32) [][]float32 {
	for c, rs := range r.channels {
		r.in = r.in[:0]
		for _, v := range src[c] {
			r.in = append(r.in, float64(v))
		}
		converted := rs.Process(r.in)
		out := r.out[c][:0]
		for _, v := range converted {
			out = append(out, float32(v))
		}
		r.out[c] = out
	}
	return r.out
}
