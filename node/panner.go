package node

import (
	"math"

	"pipelined.dev/graph/param"
	"pipelined.dev/graph/signal"
)

// StereoPanner positions mono or stereo input in a stereo output with
// equal-power panning. Input channel count is clamped to 2.
type StereoPanner struct {
	Pan            float32
	Interpretation signal.Interpretation
}

// New implements Kind.
func (s StereoPanner) New(Config) (Descriptor, Processor, error) {
	if s.Pan < -1 || s.Pan > 1 {
		return Descriptor{}, nil, optionError(kindPanner, "Pan", s.Pan)
	}
	return Descriptor{
		Kind:    kindPanner,
		Inputs:  []Input{{Channels: 2, Mode: ClampedMax, Interpretation: s.Interpretation}},
		Outputs: []Output{{Channels: 2}},
		Params: []param.Descriptor{
			{Name: "pan", Default: s.Pan, Min: -1, Max: 1},
		},
	}, panner{}, nil
}

type panner struct{}

func (panner) Process(in, out []*signal.Block, params Params, _ Quantum) bool {
	pan := params[0]
	src := in[0]
	left, right := out[0].Channel(0), out[0].Channel(1)
	if src.NumChannels() == 1 {
		mono := src.Channel(0)
		for i, v := range mono {
			gl, gr := gains((float64(pan[i]) + 1) / 2)
			left[i], right[i] = v*gl, v*gr
		}
		return false
	}
	inL, inR := src.Channel(0), src.Channel(1)
	for i := range left {
		p := float64(pan[i])
		if p <= 0 {
			gl, gr := gains(p + 1)
			left[i] = inL[i] + inR[i]*gl
			right[i] = inR[i] * gr
		} else {
			gl, gr := gains(p)
			left[i] = inL[i] * gl
			right[i] = inR[i] + inL[i]*gr
		}
	}
	return false
}

// gains returns equal-power gains for position x in [0, 1].
func gains(x float64) (float32, float32) {
	return float32(math.Cos(x * math.Pi / 2)), float32(math.Sin(x * math.Pi / 2))
}
