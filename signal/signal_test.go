package signal_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/graph/signal"
)

func blockOf(size int, channels ...float32) *signal.Block {
	b := signal.NewBlock(len(channels), size)
	b.SetNumChannels(len(channels))
	for i, v := range channels {
		c := b.Channel(i)
		for j := range c {
			c[j] = v
		}
	}
	return b
}

func TestBlock(t *testing.T) {
	b := signal.NewBlock(4, 8)
	assert.Equal(t, 1, b.NumChannels())
	assert.Equal(t, 4, b.Capacity())
	assert.Equal(t, 8, b.Size())
	assert.True(t, b.IsSilent())

	b.SetNumChannels(3)
	b.Channel(2)[7] = 1
	assert.False(t, b.IsSilent())
	b.Scale(0.5)
	assert.Equal(t, float32(0.5), b.Channel(2)[7])
	b.Zero()
	assert.True(t, b.IsSilent())

	b.Channel(0)[0] = float32(math.NaN())
	assert.False(t, b.IsFinite())

	assert.Panics(t, func() { b.SetNumChannels(5) })
	assert.Panics(t, func() { b.SetNumChannels(0) })
}

func TestCopyFrom(t *testing.T) {
	dst := blockOf(4, 9, 9, 9)
	dst.CopyFrom(blockOf(4, 1, 2))
	assert.Equal(t, []float32{1, 1, 1, 1}, dst.Channel(0))
	assert.Equal(t, []float32{2, 2, 2, 2}, dst.Channel(1))
	assert.Equal(t, []float32{0, 0, 0, 0}, dst.Channel(2))
}

func TestClass(t *testing.T) {
	tests := []struct {
		channels int
		class    int
	}{
		{1, 0}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {6, 3}, {8, 3}, {9, 4}, {32, 5},
	}
	for _, test := range tests {
		assert.Equal(t, test.class, signal.Class(test.channels), "channels %d", test.channels)
	}
}

func TestMix(t *testing.T) {
	const h = float32(math.Sqrt2 / 2)
	tests := []struct {
		description string
		src         []float32
		dst         int
		interp      signal.Interpretation
		expected    []float32
	}{
		{
			description: "same layout",
			src:         []float32{1, 2},
			dst:         2,
			expected:    []float32{1, 2},
		},
		{
			description: "mono to stereo",
			src:         []float32{1},
			dst:         2,
			expected:    []float32{1, 1},
		},
		{
			description: "mono to quad",
			src:         []float32{1},
			dst:         4,
			expected:    []float32{1, 1, 0, 0},
		},
		{
			description: "mono to 5.1",
			src:         []float32{1},
			dst:         6,
			expected:    []float32{0, 0, 1, 0, 0, 0},
		},
		{
			description: "mono to 3 replicates",
			src:         []float32{1},
			dst:         3,
			expected:    []float32{1, 1, 1},
		},
		{
			description: "stereo to mono",
			src:         []float32{1, 3},
			dst:         1,
			expected:    []float32{2},
		},
		{
			description: "quad to stereo",
			src:         []float32{1, 2, 3, 4},
			dst:         2,
			expected:    []float32{2, 3},
		},
		{
			description: "quad to 5.1",
			src:         []float32{1, 2, 3, 4},
			dst:         6,
			expected:    []float32{1, 2, 0, 0, 3, 4},
		},
		{
			description: "5.1 to stereo",
			src:         []float32{1, 1, 1, 1, 1, 1},
			dst:         2,
			expected:    []float32{1 + 2*h, 1 + 2*h},
		},
		{
			description: "3 to 2 folds",
			src:         []float32{3, 3, 3},
			dst:         2,
			expected:    []float32{4, 2},
		},
		{
			description: "discrete up",
			src:         []float32{1},
			dst:         2,
			interp:      signal.Discrete,
			expected:    []float32{1, 0},
		},
		{
			description: "discrete down",
			src:         []float32{1, 2, 3},
			dst:         2,
			interp:      signal.Discrete,
			expected:    []float32{1, 2},
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			src := blockOf(2, test.src...)
			dst := signal.NewBlock(test.dst, 2)
			dst.SetNumChannels(test.dst)
			signal.Mix(dst, src, test.interp)
			for i, v := range test.expected {
				assert.InDelta(t, v, dst.Channel(i)[0], 1e-6, "channel %d", i)
				assert.InDelta(t, v, dst.Channel(i)[1], 1e-6, "channel %d", i)
			}
		})
	}
}

func TestMixAccumulates(t *testing.T) {
	dst := signal.NewBlock(1, 4)
	signal.Mix(dst, blockOf(4, 0.25), signal.Speakers)
	signal.Mix(dst, blockOf(4, 0.5), signal.Speakers)
	assert.Equal(t, []float32{0.75, 0.75, 0.75, 0.75}, dst.Channel(0))

	signal.MixChannel(dst, []float32{1, 1, 1, 1}, signal.Speakers)
	assert.Equal(t, []float32{1.75, 1.75, 1.75, 1.75}, dst.Channel(0))
}

func TestMixMono(t *testing.T) {
	dst := make([]float32, 2)
	signal.MixMono(dst, blockOf(2, 1, 1, 1, 1))
	assert.Equal(t, []float32{1, 1}, dst)
}

func TestInterIntPlanar(t *testing.T) {
	tests := []struct {
		ints        []int
		numChannels int
		bitDepth    signal.BitDepth
		frames      int
		expected    [][]float32
	}{
		{
			ints:        []int{1, 2, 1, 2, 1, 2},
			numChannels: 2,
			frames:      3,
			expected:    [][]float32{{1, 1, 1, 0}, {2, 2, 2, 0}},
		},
		{
			ints:        []int{math.MaxInt16, -math.MaxInt16},
			numChannels: 2,
			bitDepth:    signal.BitDepth16,
			frames:      1,
			expected:    [][]float32{{1, 0, 0, 0}, {-1, 0, 0, 0}},
		},
		{
			ints:     nil,
			frames:   0,
			expected: [][]float32{{0, 0, 0, 0}, {0, 0, 0, 0}},
		},
	}
	for _, test := range tests {
		dst := [][]float32{make([]float32, 4), make([]float32, 4)}
		ints := signal.InterInt{Data: test.ints, NumChannels: test.numChannels, BitDepth: test.bitDepth}
		assert.Equal(t, test.frames, ints.Planar(dst))
		assert.Equal(t, test.expected, dst)
	}
}

func TestAppendInterInt(t *testing.T) {
	b := blockOf(2, 1, -2)
	ints := signal.AppendInterInt(nil, b, signal.BitDepth16)
	assert.Equal(t, []int{math.MaxInt16 - 1, -(math.MaxInt16 - 1), math.MaxInt16 - 1, -(math.MaxInt16 - 1)}, ints)
}

func TestInterleave(t *testing.T) {
	b := blockOf(2, 1, 2)
	dst := make([]float32, 4)
	signal.Interleave(dst, b)
	assert.Equal(t, []float32{1, 2, 1, 2}, dst)
}
