package node_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/graph/mutable"
	"pipelined.dev/graph/node"
)

func TestBiquadFilter(t *testing.T) {
	dc := block(2, func(int, int) float32 { return 1 })
	nyquist := block(2, func(_, i int) float32 {
		if i%2 == 0 {
			return 1
		}
		return -1
	})
	tests := []struct {
		typ      node.FilterType
		dc       float64
		nyquist  float64
		expected string
	}{
		{typ: node.Lowpass, dc: 1, nyquist: 0, expected: "lowpass"},
		{typ: node.Highpass, dc: 0, nyquist: 1, expected: "highpass"},
		{typ: node.Allpass, dc: 1, nyquist: 1, expected: "allpass"},
		{typ: node.Notch, dc: 1, nyquist: 1, expected: "notch"},
	}
	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.typ.String())
			for _, input := range []struct {
				in       float64
				expected float64
			}{{in: 0, expected: test.dc}, {in: 1, expected: test.nyquist}} {
				h := newHarness(t, &node.BiquadFilter{Type: test.typ, Frequency: 1000})
				in := dc
				if input.in == 1 {
					in = nyquist
				}
				var peak float64
				for q := 0; q < 100; q++ {
					out, _ := h.process(in)
					peak = 0
					for _, v := range out.Channel(1) {
						peak = math.Max(peak, math.Abs(float64(v)))
					}
				}
				assert.InDelta(t, input.expected, peak, 0.01)
			}
		})
	}
}

func TestBiquadTail(t *testing.T) {
	h := newHarness(t, &node.BiquadFilter{Frequency: 1000})
	assert.Equal(t, "k-rate", h.desc.Params[0].Rate.String())
	_, tail := h.process(impulse(1))
	assert.True(t, tail)
	for q := 0; q < 100 && tail; q++ {
		_, tail = h.process(silent(1))
	}
	assert.False(t, tail, "ringing decays")
	out, tail := h.process(silent(1))
	assert.False(t, tail)
	assert.True(t, out.IsSilent())
}

func TestBiquadSetType(t *testing.T) {
	k := &node.BiquadFilter{Type: node.Lowpass, Frequency: 1000}
	assert.False(t, k.SetType(node.Highpass).IsMutable())
	h := newHarness(t, k)
	assert.NoError(t, k.SetType(node.Highpass).Apply())
	assert.ErrorIs(t, k.SetType(node.Highshelf+1).Apply(), node.ErrOption)

	var out = silent(1)
	for q := 0; q < 50; q++ {
		out, _ = h.process(block(1, func(int, int) float32 { return 1 }))
	}
	assert.InDelta(t, 0, out.Channel(0)[quantum-1], 0.01)
}

func TestBiquadGainFilters(t *testing.T) {
	// +6 dB shelf below the corner passes DC with double amplitude
	h := newHarness(t, &node.BiquadFilter{Type: node.Lowshelf, Frequency: 1000, Gain: 6.0206, Q: math.Sqrt2 / 2})
	out := silent(1)
	for q := 0; q < 100; q++ {
		out, _ = h.process(block(1, func(int, int) float32 { return 1 }))
	}
	assert.InDelta(t, 2, out.Channel(0)[quantum-1], 0.01)
}

func TestStereoPanner(t *testing.T) {
	_, _, err := node.StereoPanner{Pan: 2}.New(node.Config{Context: mutable.Mutable()})
	assert.ErrorIs(t, err, node.ErrOption)

	mono := block(1, func(int, int) float32 { return 1 })
	stereo := block(2, func(c, _ int) float32 { return float32(c + 1) })
	half := float32(math.Sqrt2 / 2)
	tests := []struct {
		pan         float32
		in          int
		left, right float32
	}{
		{pan: -1, in: 1, left: 1, right: 0},
		{pan: 0, in: 1, left: half, right: half},
		{pan: 1, in: 1, left: 0, right: 1},
		{pan: 0, in: 2, left: 1, right: 2},
		{pan: -1, in: 2, left: 3, right: 0},
		{pan: 1, in: 2, left: 0, right: 3},
	}
	for _, test := range tests {
		h := newHarness(t, node.StereoPanner{Pan: test.pan})
		in := mono
		if test.in == 2 {
			in = stereo
		}
		out, tail := h.process(in)
		assert.False(t, tail)
		assert.Equal(t, 2, out.NumChannels())
		assert.InDelta(t, test.left, out.Channel(0)[7], 1e-6, "pan %v in %d", test.pan, test.in)
		assert.InDelta(t, test.right, out.Channel(1)[7], 1e-6, "pan %v in %d", test.pan, test.in)
	}
}
