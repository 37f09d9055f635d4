package queue

import "sync/atomic"

const fresh = 1 << 31

// Latest hands the most recent value over from exactly one producer to
// exactly one consumer. Values are recycled between three slots, so the
// producer never waits and the consumer never sees a torn value.
type Latest[T any] struct {
	slots  [3]T
	middle atomic.Uint32
	// back is owned by producer, front by consumer.
	back  uint32
	front uint32
}

// NewLatest returns a handoff over three preallocated slots.
func NewLatest[T any](a, b, c T) *Latest[T] {
	l := Latest[T]{
		slots: [3]T{a, b, c},
		back:  0,
		front: 2,
	}
	l.middle.Store(1)
	return &l
}

// Back returns the slot owned by producer.
func (l *Latest[T]) Back() T {
	return l.slots[l.back]
}

// Publish makes the back slot the latest value. Producer only.
func (l *Latest[T]) Publish() {
	prev := l.middle.Swap(l.back | fresh)
	l.back = prev &^ fresh
}

// Front returns the latest published value. The flag is true if the value
// was published after the previous call. Consumer only.
func (l *Latest[T]) Front() (T, bool) {
	if l.middle.Load()&fresh == 0 {
		return l.slots[l.front], false
	}
	prev := l.middle.Swap(l.front)
	l.front = prev &^ fresh
	return l.slots[l.front], true
}
