package param_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/graph/param"
)

const sampleRate = 1000

var gain = param.Descriptor{Name: "gain", Default: 1, Min: -10, Max: 10}

func render(tl *param.Timeline, frames int) []float32 {
	values := make([]float32, frames)
	for i := range values {
		values[i] = tl.ValueAt(uint64(i))
	}
	return values
}

func TestDefault(t *testing.T) {
	tl := param.NewTimeline(gain, sampleRate)
	assert.Equal(t, float32(1), tl.ValueAt(0))
	assert.Equal(t, float32(1), tl.ValueAt(100))
}

func TestSetValue(t *testing.T) {
	tl := param.NewTimeline(gain, sampleRate)
	require.NoError(t, tl.Schedule(param.Set(0.5, 0.010)))
	require.NoError(t, tl.Schedule(param.Set(0.25, 0.0105)))
	values := render(tl, 20)
	assert.Equal(t, float32(1), values[9])
	assert.Equal(t, float32(0.5), values[10])
	assert.Equal(t, float32(0.25), values[11], "start is rounded up to the next frame")
}

func TestLinearRampMidpoint(t *testing.T) {
	tests := []struct {
		a, b   float32
		t0, t1 float64
	}{
		{a: 0, b: 1, t0: 0, t1: 0.1},
		{a: 1, b: -1, t0: 0.013, t1: 0.077},
		{a: 5, b: 6, t0: 0.0004, t1: 0.0991},
	}
	for _, test := range tests {
		tl := param.NewTimeline(gain, sampleRate)
		require.NoError(t, tl.Schedule(param.Set(test.a, test.t0)))
		require.NoError(t, tl.Schedule(param.Linear(test.b, test.t0, test.t1)))
		mid := uint64(math.Round((test.t0 + test.t1) / 2 * sampleRate))
		step := math.Abs(float64(test.b-test.a)) / ((test.t1 - test.t0) * sampleRate)
		got := render(tl, int(mid)+1)[mid]
		assert.InDelta(t, (test.a+test.b)/2, got, step, "%+v", test)
	}
}

func TestLinearRampTruncation(t *testing.T) {
	tl := param.NewTimeline(gain, sampleRate)
	require.NoError(t, tl.Schedule(param.Set(0, 0)))
	require.NoError(t, tl.Schedule(param.Linear(1, 0, 0.100)))
	require.NoError(t, tl.Schedule(param.Linear(0, 0.050, 0.060)))
	values := render(tl, 100)

	assert.InDelta(t, 0.49, values[49], 1e-6, "first ramp before truncation")
	assert.InDelta(t, 0.5, values[50], 1e-6, "second ramp starts from the value reached")
	assert.InDelta(t, 0.45, values[51], 1e-6, "second ramp is in effect after its start sample")
	assert.Equal(t, float32(0), values[60])
	assert.Equal(t, float32(0), values[99], "first ramp does not resume")
}

func TestExponentialRamp(t *testing.T) {
	tl := param.NewTimeline(gain, sampleRate)
	require.NoError(t, tl.Schedule(param.Set(1, 0)))
	require.NoError(t, tl.Schedule(param.Exponential(4, 0, 0.010)))
	values := render(tl, 12)
	assert.InDelta(t, 2, values[5], 1e-5)
	assert.Equal(t, float32(4), values[10])
	assert.Equal(t, float32(4), values[11])
}

func TestExponentialRampRejected(t *testing.T) {
	tests := []struct {
		description string
		from        float32
		to          float32
	}{
		{description: "zero target", from: 1, to: 0},
		{description: "crosses zero", from: 1, to: -1},
		{description: "starts at zero", from: 0, to: 1},
		{description: "starts negative", from: -1, to: 2},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			tl := param.NewTimeline(gain, sampleRate)
			require.NoError(t, tl.Schedule(param.Set(test.from, 0)))
			e := param.Exponential(test.to, 0.001, 0.010)
			assert.True(t, errors.Is(tl.Check(e), param.ErrExponentialRamp))
			err := tl.Schedule(e)
			assert.True(t, errors.Is(err, param.ErrExponentialRamp))
			assert.Equal(t, 1, tl.Len(), "nothing changed")
		})
	}
}

func TestExponentialRampFailsOnActivation(t *testing.T) {
	tl := param.NewTimeline(gain, sampleRate)
	require.NoError(t, tl.Schedule(param.Exponential(2, 0.005, 0.010)))
	// a later set value moves the start value of the ramp below zero
	require.NoError(t, tl.Schedule(param.Set(-1, 0.001)))
	values := render(tl, 12)
	assert.True(t, tl.Failed())
	assert.False(t, tl.Failed())
	assert.Equal(t, float32(-1), values[5])
	assert.Equal(t, float32(-1), values[11], "failed ramp holds its start value")
}

func TestSetTarget(t *testing.T) {
	tl := param.NewTimeline(gain, sampleRate)
	require.NoError(t, tl.Schedule(param.Set(1, 0)))
	require.NoError(t, tl.Schedule(param.Target(0, 0.010, 0.010)))
	values := render(tl, 40)
	assert.Equal(t, float32(1), values[10])
	assert.InDelta(t, math.Exp(-1), values[20], 1e-6)
	assert.InDelta(t, math.Exp(-2), values[30], 1e-6)
}

func TestValueCurve(t *testing.T) {
	tl := param.NewTimeline(gain, sampleRate)
	require.NoError(t, tl.Schedule(param.Curve([]float32{0, 1, 0}, 0, 0.010)))
	values := render(tl, 12)
	assert.Equal(t, float32(0), values[0])
	assert.InDelta(t, 0.4, values[2], 1e-6)
	assert.InDelta(t, 1, values[5], 1e-6)
	assert.InDelta(t, 0.4, values[8], 1e-6)
	assert.Equal(t, float32(0), values[11])
}

func TestClampToPosition(t *testing.T) {
	tl := param.NewTimeline(gain, sampleRate)
	tl.Fill(make([]float32, 8), 0)
	tl.Advance(8)
	require.NoError(t, tl.Schedule(param.Set(3, 0.002)))
	assert.Equal(t, float32(3), tl.ValueAt(8))
}

func TestCancel(t *testing.T) {
	tl := param.NewTimeline(gain, sampleRate)
	require.NoError(t, tl.Schedule(param.Set(2, 0.001)))
	require.NoError(t, tl.Schedule(param.Set(3, 0.005)))
	require.NoError(t, tl.Schedule(param.Linear(4, 0.006, 0.010)))
	require.NoError(t, tl.Schedule(param.CancelFrom(0.005)))
	assert.Equal(t, 1, tl.Len())
	values := render(tl, 12)
	assert.Equal(t, float32(2), values[11])
}

func TestFill(t *testing.T) {
	tl := param.NewTimeline(gain, sampleRate)
	require.NoError(t, tl.Schedule(param.Set(0, 0)))
	require.NoError(t, tl.Schedule(param.Linear(1, 0.004, 0.008)))

	block := make([]float32, 4)
	tl.Fill(block, 0)
	assert.Equal(t, []float32{0, 0, 0, 0}, block)
	tl.Advance(4)
	tl.Fill(block, 4)
	assert.InDeltaSlice(t, []float64{0, 0.25, 0.5, 0.75}, toFloat64(block), 1e-6)
	tl.Advance(4)
	tl.Fill(block, 8)
	assert.Equal(t, []float32{1, 1, 1, 1}, block)
}

func TestLastEndAndPrune(t *testing.T) {
	tl := param.NewTimeline(gain, sampleRate)
	require.NoError(t, tl.Schedule(param.Set(0, 0)))
	require.NoError(t, tl.Schedule(param.Linear(1, 0, 0.050)))
	require.NoError(t, tl.Schedule(param.Set(2, 0.020)))
	assert.Equal(t, 0.050, tl.LastEnd())

	tl.Prune(30)
	assert.Equal(t, 1, tl.Len())
	assert.Equal(t, uint64(30), tl.Position())
	assert.Equal(t, float32(2), tl.ValueAtTime(0.030))
}

func TestInvalidEvents(t *testing.T) {
	tests := []struct {
		description string
		event       param.Event
	}{
		{description: "negative time", event: param.Set(1, -1)},
		{description: "nan value", event: param.Set(float32(math.NaN()), 0)},
		{description: "ramp ends before start", event: param.Linear(1, 2, 1)},
		{description: "negative time constant", event: param.Target(1, 0, -1)},
		{description: "short curve", event: param.Curve([]float32{1}, 0, 1)},
		{description: "empty curve duration", event: param.Curve([]float32{1, 2}, 0, 0)},
		{description: "unknown type", event: param.Event{Type: 42}},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			tl := param.NewTimeline(gain, sampleRate)
			assert.True(t, errors.Is(tl.Schedule(test.event), param.ErrInvalidEvent))
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, float32(10), gain.Clamp(11))
	assert.Equal(t, float32(-10), gain.Clamp(-11))
	assert.Equal(t, float32(1), gain.Clamp(1))
}

func toFloat64(v []float32) []float64 {
	r := make([]float64, len(v))
	for i := range v {
		r[i] = float64(v[i])
	}
	return r
}

func TestAdopt(t *testing.T) {
	tl := param.NewTimeline(gain, sampleRate)
	require.NoError(t, tl.Schedule(param.Set(0.5, 0.010)))
	assert.Equal(t, param.EventCapacity, tl.Cap())

	tl.Adopt(param.NewStorage(4))
	assert.Equal(t, param.EventCapacity, tl.Cap(), "smaller storage is ignored")

	tl.Adopt(param.NewStorage(64))
	assert.Equal(t, 64, tl.Cap())
	for i := 0; i < 40; i++ {
		require.NoError(t, tl.Schedule(param.Set(float32(i)/100, 0.020+float64(i)/1000)))
	}
	assert.Equal(t, 64, tl.Cap())
	allocs := testing.AllocsPerRun(10, func() {
		_ = tl.Schedule(param.Set(1, 0.1))
	})
	assert.Zero(t, allocs, "schedule within capacity")
	values := render(tl, 30)
	assert.Equal(t, float32(0.5), values[10], "events are kept")
	assert.Equal(t, float32(0.05), values[25])
}
