package node_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/graph/node"
	"pipelined.dev/graph/signal"
)

func impulse(channels int) *signal.Block {
	return block(channels, func(c, i int) float32 {
		if i == 0 {
			return 1
		}
		return 0
	})
}

func TestDelayOptions(t *testing.T) {
	tests := []node.Delay{
		{MaxDelayTime: -1},
		{MaxDelayTime: 180},
		{DelayTime: 2},
		{DelayTime: -0.1},
	}
	for _, k := range tests {
		_, _, err := k.New(node.Config{SampleRate: sampleRate, QuantumSize: quantum})
		assert.ErrorIs(t, err, node.ErrOption, "%+v", k)
	}

	h := newHarness(t, node.Delay{})
	assert.Equal(t, node.ClampedMax, h.desc.Inputs[0].Mode)
	assert.Equal(t, 2, h.desc.Inputs[0].Channels)
	assert.Equal(t, float32(1), h.desc.Params[0].Max)
	_, tail := h.process(silent(2))
	assert.False(t, tail, "new delay has nothing to drain")
}

func TestDelayProcess(t *testing.T) {
	// 0.125 seconds is 6000 frames: quantum 46, frame 112
	h := newHarness(t, node.Delay{DelayTime: 0.125})
	_, tail := h.process(impulse(2))
	assert.True(t, tail)
	for i := 1; i < 46; i++ {
		out, tail := h.process(silent(2))
		require.True(t, out.IsSilent(), "quantum %d", i)
		require.True(t, tail)
	}
	out, _ := h.process(silent(2))
	assert.InDelta(t, 1, out.Channel(0)[112], 1e-6)
	assert.InDelta(t, 1, out.Channel(1)[112], 1e-6)
	assert.InDelta(t, 0, out.Channel(0)[111], 1e-6)
	assert.InDelta(t, 0, out.Channel(0)[113], 1e-6)

	// the buffer is drained after delay and interpolation margin
	_, tail = h.process(silent(2))
	assert.False(t, tail)
}

func TestDelayZero(t *testing.T) {
	h := newHarness(t, node.Delay{})
	in := block(1, func(_, i int) float32 { return float32(i + 1) })
	out, _ := h.process(in)
	assert.Equal(t, 1, out.NumChannels())
	assert.Equal(t, in.Channel(0), out.Channel(0))
}

func TestDelayFractional(t *testing.T) {
	h := newHarness(t, node.Delay{})
	h.set(t, "delayTime", 0.5/sampleRate)
	in := block(1, func(_, i int) float32 { return float32(i) })
	out, _ := h.process(in)
	assert.InDelta(t, 9.5, out.Channel(0)[10], 1e-4)
}

func TestDelayCycle(t *testing.T) {
	h := newHarness(t, node.Delay{})
	d, ok := h.proc.(node.Delayer)
	require.True(t, ok)

	out := silent(2)
	d.Emit([]*signal.Block{out}, h.params, h.quantum())
	assert.True(t, out.IsSilent())
	assert.True(t, d.Absorb([]*signal.Block{impulse(2)}, h.params, h.quantum()))
	h.frame += quantum

	// zero delay in a cycle is one quantum
	d.Emit([]*signal.Block{out}, h.params, h.quantum())
	assert.InDelta(t, 1, out.Channel(0)[0], 1e-6)
	assert.InDelta(t, 0, out.Channel(0)[1], 1e-6)
	assert.InDelta(t, 1, out.Channel(1)[0], 1e-6)
}

func TestDelayCycleOneQuantum(t *testing.T) {
	h := newHarness(t, node.Delay{DelayTime: float64(quantum) / sampleRate})
	d, ok := h.proc.(node.Delayer)
	require.True(t, ok)

	out := silent(1)
	step := block(1, func(int, int) float32 { return 1 })
	d.Emit([]*signal.Block{out}, h.params, h.quantum())
	d.Absorb([]*signal.Block{step}, h.params, h.quantum())
	h.frame += quantum

	d.Emit([]*signal.Block{out}, h.params, h.quantum())
	for i, v := range out.Channel(0) {
		require.InDelta(t, 1, v, 1e-4, "frame %d", i)
	}
}

func TestDelayCycleFractional(t *testing.T) {
	// half a frame above the minimum reads between the last two writes
	h := newHarness(t, node.Delay{DelayTime: (quantum + 0.5) / sampleRate})
	d, ok := h.proc.(node.Delayer)
	require.True(t, ok)

	out := silent(1)
	d.Emit([]*signal.Block{out}, h.params, h.quantum())
	d.Absorb([]*signal.Block{block(1, func(_, i int) float32 { return float32(i) })}, h.params, h.quantum())
	h.frame += quantum

	d.Emit([]*signal.Block{out}, h.params, h.quantum())
	assert.InDelta(t, 126.5, out.Channel(0)[quantum-1], 1e-2)
	assert.InDelta(t, 125.5, out.Channel(0)[quantum-2], 1e-2)
}
