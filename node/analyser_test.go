package node_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/graph/node"
)

func TestAnalyserOptions(t *testing.T) {
	tests := []*node.Analyser{
		{FFTSize: 100},
		{FFTSize: 16},
		{FFTSize: 65536},
		{Smoothing: 2},
		{MinDecibels: -10, MaxDecibels: -20},
	}
	for _, k := range tests {
		_, _, err := k.New(node.Config{SampleRate: sampleRate, QuantumSize: quantum})
		assert.Error(t, err)
	}

	a := &node.Analyser{}
	newHarness(t, a)
	assert.Equal(t, 1024, a.FrequencyBinCount())
	assert.ErrorIs(t, a.SetFFTSize(1000), node.ErrFFTSize)
	assert.NoError(t, a.SetFFTSize(512))
	assert.Equal(t, 256, a.FrequencyBinCount())
	assert.ErrorIs(t, a.SetSmoothing(-1), node.ErrSmoothing)
	assert.ErrorIs(t, a.SetDecibels(0, 0), node.ErrDecibels)
}

func TestAnalyserTimeDomain(t *testing.T) {
	a := &node.Analyser{FFTSize: 256}
	h := newHarness(t, a)

	data := make([]byte, 256)
	assert.Equal(t, 256, a.ByteTimeDomainData(data))
	assert.Equal(t, byte(128), data[0], "silence before rendering")

	for q := 0; q < 3; q++ {
		base := float32(q * quantum)
		in := block(2, func(c, i int) float32 { return (base + float32(i)) / 1000 })
		out, tail := h.process(in)
		assert.False(t, tail)
		assert.Equal(t, in.Channels(), out.Channels(), "input passes through")
	}
	samples := make([]float32, 300)
	assert.Equal(t, 256, a.FloatTimeDomainData(samples))
	// the latest 256 frames are 128..383
	assert.InDelta(t, 0.128, samples[0], 1e-6)
	assert.InDelta(t, 0.383, samples[255], 1e-6)
}

func TestAnalyserFrequency(t *testing.T) {
	const (
		size = 2048
		bin  = 64
	)
	a := &node.Analyser{FFTSize: size, Smoothing: 1e-9}
	h := newHarness(t, a)
	for q := 0; q < size/quantum; q++ {
		base := q * quantum
		h.process(block(1, func(_, i int) float32 {
			return float32(math.Sin(2 * math.Pi * bin * float64(base+i) / size))
		}))
	}
	db := make([]float32, a.FrequencyBinCount())
	require.Equal(t, size/2, a.FloatFrequencyData(db))
	peak := 0
	for i := range db {
		if db[i] > db[peak] {
			peak = i
		}
	}
	assert.Equal(t, bin, peak)

	bytes := make([]byte, a.FrequencyBinCount())
	a.ByteFrequencyData(bytes)
	assert.Equal(t, byte(255), bytes[bin], "sine peak is above max decibels")
	assert.Less(t, bytes[bin+20], bytes[bin])
}
