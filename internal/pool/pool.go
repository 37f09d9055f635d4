// Package pool provides the render-side block pool. It is owned by a single
// render goroutine and is not safe for concurrent use.
package pool

import "pipelined.dev/graph/signal"

// NumClasses is the number of channel-count classes: 1, 2, 4, 8, 16 and 32
// channels.
const NumClasses = 6

// Pool keeps free lists of blocks per channel-count class. Blocks are only
// allocated by Reserve, Acquire never allocates.
type Pool struct {
	size    int
	classes [NumClasses]class
	stats   Stats
}

type class struct {
	free      []*signal.Block
	allocated int
}

// Stats contains pool counters.
type Stats struct {
	Acquired  uint64
	Released  uint64
	Allocated uint64
}

// New returns an empty pool of blocks with size samples per channel.
func New(size int) *Pool {
	return &Pool{size: size}
}

// Size returns number of samples per channel.
func (p *Pool) Size() int {
	return p.size
}

// Reserve makes sure that class of channels has at least n blocks in total.
// It may allocate and must be called outside of the quantum hot path.
func (p *Pool) Reserve(channels, n int) {
	c := &p.classes[signal.Class(channels)]
	if n <= c.allocated {
		return
	}
	capacity := 1 << signal.Class(channels)
	if cap(c.free) < n {
		free := make([]*signal.Block, len(c.free), n)
		copy(free, c.free)
		c.free = free
	}
	for c.allocated < n {
		c.free = append(c.free, signal.NewBlock(capacity, p.size))
		c.allocated++
		p.stats.Allocated++
	}
}

// Acquire returns a block with channels active channels. Block content is
// undefined. It returns false if the class is exhausted.
func (p *Pool) Acquire(channels int) (*signal.Block, bool) {
	c := &p.classes[signal.Class(channels)]
	n := len(c.free)
	if n == 0 {
		return nil, false
	}
	b := c.free[n-1]
	c.free[n-1] = nil
	c.free = c.free[:n-1]
	b.SetNumChannels(channels)
	p.stats.Acquired++
	return b, true
}

// AcquireZeroed returns a silent block with channels active channels.
func (p *Pool) AcquireZeroed(channels int) (*signal.Block, bool) {
	b, ok := p.Acquire(channels)
	if ok {
		b.Zero()
	}
	return b, ok
}

// Release returns block to the pool.
func (p *Pool) Release(b *signal.Block) {
	c := &p.classes[signal.Class(b.Capacity())]
	c.free = append(c.free, b)
	p.stats.Released++
}

// Free returns number of free blocks in the class of channels.
func (p *Pool) Free(channels int) int {
	return len(p.classes[signal.Class(channels)].free)
}

// Allocated returns number of blocks allocated in the class of channels.
func (p *Pool) Allocated(channels int) int {
	return p.classes[signal.Class(channels)].allocated
}

// Stats returns pool counters.
func (p *Pool) Stats() Stats {
	return p.stats
}

// Outstanding returns number of acquired blocks not yet released.
func (s Stats) Outstanding() int64 {
	return int64(s.Acquired) - int64(s.Released)
}
