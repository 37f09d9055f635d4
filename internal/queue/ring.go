// Package queue provides non-blocking queues that connect the control side
// and the render side of the graph.
package queue

import "sync/atomic"

const cacheLine = 64

// Ring is a bounded lock-free queue for exactly one producer goroutine and
// exactly one consumer goroutine. Neither Push nor Pop blocks or allocates.
type Ring[T any] struct {
	buf  []T
	mask uint64
	_    [cacheLine]byte
	head atomic.Uint64
	_    [cacheLine - 8]byte
	tail atomic.Uint64
}

// NewRing returns a ring with capacity rounded up to a power of two.
func NewRing[T any](capacity int) *Ring[T] {
	n := 1
	for n < capacity {
		n <<= 1
	}
	return &Ring[T]{
		buf:  make([]T, n),
		mask: uint64(n - 1),
	}
}

// Push appends v. It returns false if the ring is full. Producer only.
func (r *Ring[T]) Push(v T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() == uint64(len(r.buf)) {
		return false
	}
	r.buf[tail&r.mask] = v
	r.tail.Store(tail + 1)
	return true
}

// Pop removes the oldest value. It returns false if the ring is empty.
// Consumer only.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	head := r.head.Load()
	if head == r.tail.Load() {
		return zero, false
	}
	i := head & r.mask
	v := r.buf[i]
	r.buf[i] = zero
	r.head.Store(head + 1)
	return v, true
}

// Len returns number of queued values. The result is approximate when called
// concurrently with Push or Pop.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns capacity of the ring.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}
