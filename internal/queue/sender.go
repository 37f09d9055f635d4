package queue

import (
	"errors"
	"sync"
)

// ErrBackpressure is returned when the overflow of a sender exceeds its
// high-water mark.
var ErrBackpressure = errors.New("queue: backpressure")

// Sender is the producer end of a ring used by many control-side goroutines.
// Values that do not fit into the ring are kept in an overflow buffer and
// moved into the ring by later sends or flushes, so the order of values is
// preserved and the consumer is never waited for.
type Sender[T any] struct {
	mu        sync.Mutex
	ring      *Ring[T]
	overflow  []T
	highWater int
}

// NewSender wraps the ring. Overflow is bounded by highWater values.
func NewSender[T any](r *Ring[T], highWater int) *Sender[T] {
	return &Sender[T]{
		ring:      r,
		highWater: highWater,
	}
}

// Send enqueues values in order. Either all values are accepted or none is:
// if accepting them would grow the overflow beyond the high-water mark,
// ErrBackpressure is returned.
func (s *Sender[T]) Send(values ...T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flush()
	free := s.ring.Cap() - s.ring.Len()
	if len(s.overflow) > 0 {
		free = 0
	}
	if spill := len(values) - free; spill > 0 && len(s.overflow)+spill > s.highWater {
		return ErrBackpressure
	}
	for i, v := range values {
		if len(s.overflow) == 0 && s.ring.Push(v) {
			continue
		}
		s.overflow = append(s.overflow, values[i:]...)
		break
	}
	return nil
}

// SendAlways enqueues values in order ignoring the high-water mark.
func (s *Sender[T]) SendAlways(values ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flush()
	for i, v := range values {
		if len(s.overflow) == 0 && s.ring.Push(v) {
			continue
		}
		s.overflow = append(s.overflow, values[i:]...)
		break
	}
}

// Flush moves overflow into the ring and returns number of values left in
// overflow.
func (s *Sender[T]) Flush() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flush()
	return len(s.overflow)
}

// TryFlush is Flush that returns false without flushing if a producer
// holds the sender.
func (s *Sender[T]) TryFlush() bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()
	s.flush()
	return true
}

// Pending returns number of values in overflow.
func (s *Sender[T]) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.overflow)
}

func (s *Sender[T]) flush() {
	n := 0
	for n < len(s.overflow) && s.ring.Push(s.overflow[n]) {
		n++
	}
	if n == 0 {
		return
	}
	var zero T
	k := copy(s.overflow, s.overflow[n:])
	for i := k; i < len(s.overflow); i++ {
		s.overflow[i] = zero
	}
	s.overflow = s.overflow[:k]
}
