package node_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/graph/node"
)

func startedOscillator(t *testing.T, k *node.Oscillator) *harness {
	t.Helper()
	h := newHarness(t, k)
	require.NoError(t, k.Start(0).Apply())
	return h
}

func TestOscillatorSine(t *testing.T) {
	h := startedOscillator(t, &node.Oscillator{Frequency: sampleRate / 4})
	out, tail := h.process()
	assert.True(t, tail)
	expected := []float32{0, 1, 0, -1}
	for i, v := range out.Channel(0)[:8] {
		assert.InDelta(t, expected[i%4], v, 1e-6, "frame %d", i)
	}
}

func TestOscillatorDetune(t *testing.T) {
	h := startedOscillator(t, &node.Oscillator{Frequency: sampleRate / 8, Detune: 1200})
	out, _ := h.process()
	assert.InDelta(t, 1, out.Channel(0)[1], 1e-5)
	assert.InDelta(t, -1, out.Channel(0)[3], 1e-5)
}

func TestOscillatorDefaults(t *testing.T) {
	h := newHarness(t, &node.Oscillator{})
	assert.Equal(t, float32(440), h.desc.Params[0].Default)
	assert.Equal(t, float32(sampleRate/2), h.desc.Params[0].Max)
	assert.Equal(t, 1, h.desc.Outputs[0].Channels)

	_, _, err := (&node.Oscillator{Type: node.Custom}).New(node.Config{SampleRate: sampleRate})
	assert.ErrorIs(t, err, node.ErrCustomWaveform)
}

func TestOscillatorWaveforms(t *testing.T) {
	tests := []node.Waveform{node.Square, node.Sawtooth, node.Triangle}
	for _, w := range tests {
		t.Run(w.String(), func(t *testing.T) {
			h := startedOscillator(t, &node.Oscillator{Type: w, Frequency: 375})
			var sum, peak float64
			// settle triangle integrator
			for q := 0; q < 4; q++ {
				h.process()
			}
			// 375 Hz period is exactly 128 frames
			for q := 0; q < 16; q++ {
				out, _ := h.process()
				for _, v := range out.Channel(0) {
					sum += float64(v)
					if a := float64(v); a > peak {
						peak = a
					}
				}
			}
			assert.InDelta(t, 0, sum/(16*quantum), 0.05, "no dc offset")
			assert.InDelta(t, 1, peak, 0.2)
		})
	}
}

func TestOscillatorSetType(t *testing.T) {
	k := &node.Oscillator{Type: node.Square, Frequency: sampleRate / 4}
	h := startedOscillator(t, k)
	require.NoError(t, k.SetType(node.Sine).Apply())
	out, _ := h.process()
	assert.InDelta(t, 1, out.Channel(0)[1], 1e-6)

	assert.ErrorIs(t, k.SetType(node.Custom).Apply(), node.ErrOption)
	assert.ErrorIs(t, k.SetPeriodicWave(nil).Apply(), node.ErrCustomWaveform)
}

func TestPeriodicWave(t *testing.T) {
	_, err := node.NewPeriodicWave([]float32{0, 1}, []float32{0, 1, 2}, true)
	assert.ErrorIs(t, err, node.ErrWave)
	_, err = node.NewPeriodicWave([]float32{0}, nil, true)
	assert.ErrorIs(t, err, node.ErrWave)

	// pure sine term equals built-in sine
	w, err := node.NewPeriodicWave(nil, []float32{0, 3}, true)
	require.NoError(t, err)
	k := &node.Oscillator{Frequency: sampleRate / 4}
	h := startedOscillator(t, k)
	require.NoError(t, k.SetPeriodicWave(w).Apply())
	out, _ := h.process()
	assert.InDelta(t, 1, out.Channel(0)[1], 1e-6)
	assert.InDelta(t, -1, out.Channel(0)[3], 1e-6)

	// without normalization amplitude is kept
	w, err = node.NewPeriodicWave(nil, []float32{0, 0.5}, false)
	require.NoError(t, err)
	h = startedOscillator(t, &node.Oscillator{Frequency: sampleRate / 4, Wave: w})
	out, _ = h.process()
	assert.InDelta(t, 0.5, out.Channel(0)[1], 1e-6)
}
