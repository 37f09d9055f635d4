// Package signal provides the sample containers used by the graph:
// 	- Block, a planar multichannel buffer that holds exactly one render quantum
//	- channel up/down-mixing between blocks of different layouts
//	- interleaving and bit depth conversion for sinks and decoders
package signal

import "math"

// MaxChannels is the largest channel count a block can carry.
const MaxChannels = 32

// Block is a non-interleaved float32 buffer of one render quantum.
// Its capacity (number of allocated channels) is fixed at construction,
// the number of active channels can be changed within that capacity.
type Block struct {
	data     []float32
	channels [][]float32
	size     int
	scratch  [1][]float32
}

// NewBlock allocates a block with capacity channels of size samples each.
// One channel is active after allocation.
func NewBlock(capacity, size int) *Block {
	if capacity < 1 {
		capacity = 1
	}
	b := Block{
		data:     make([]float32, capacity*size),
		channels: make([][]float32, capacity),
		size:     size,
	}
	for i := range b.channels {
		b.channels[i] = b.data[i*size : (i+1)*size : (i+1)*size]
	}
	b.channels = b.channels[:1]
	return &b
}

// NumChannels returns number of active channels.
func (b *Block) NumChannels() int {
	return len(b.channels)
}

// Capacity returns number of allocated channels.
func (b *Block) Capacity() int {
	return cap(b.channels)
}

// Size returns number of samples in every channel.
func (b *Block) Size() int {
	return b.size
}

// SetNumChannels changes number of active channels. It panics if n is out of
// [1, Capacity()] range.
func (b *Block) SetNumChannels(n int) {
	if n < 1 || n > cap(b.channels) {
		panic("signal: channel count out of block capacity")
	}
	b.channels = b.channels[:n]
}

// Channel returns samples of channel i.
func (b *Block) Channel(i int) []float32 {
	return b.channels[i]
}

// Channels returns active channels. The returned slice must not be resized.
func (b *Block) Channels() [][]float32 {
	return b.channels
}

// Zero fills active channels with silence.
func (b *Block) Zero() {
	for _, c := range b.channels {
		for i := range c {
			c[i] = 0
		}
	}
}

// IsSilent reports whether all active samples are zero.
func (b *Block) IsSilent() bool {
	for _, c := range b.channels {
		for _, v := range c {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

// IsFinite reports whether block contains neither NaN nor infinity.
func (b *Block) IsFinite() bool {
	for _, c := range b.channels {
		for _, v := range c {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return false
			}
		}
	}
	return true
}

// CopyFrom copies samples of src into b. Channels are matched by index, if
// src has fewer channels the rest of b is zeroed.
func (b *Block) CopyFrom(src *Block) {
	for i, c := range b.channels {
		if i < len(src.channels) {
			copy(c, src.channels[i])
			continue
		}
		for j := range c {
			c[j] = 0
		}
	}
}

// Scale multiplies all active samples by g.
func (b *Block) Scale(g float32) {
	for _, c := range b.channels {
		for i := range c {
			c[i] *= g
		}
	}
}

// Class returns the pool class of a channel count: the index of the smallest
// power of two that fits n channels.
func Class(n int) int {
	c := 0
	for 1<<c < n {
		c++
	}
	return c
}
