package queue_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"pipelined.dev/graph/internal/queue"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRing(t *testing.T) {
	r := queue.NewRing[int](3)
	assert.Equal(t, 4, r.Cap())
	for i := 0; i < 4; i++ {
		assert.True(t, r.Push(i))
	}
	assert.False(t, r.Push(4))
	assert.Equal(t, 4, r.Len())
	for i := 0; i < 4; i++ {
		v, ok := r.Pop()
		assert.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := r.Pop()
	assert.False(t, ok)
}

func TestRingConcurrent(t *testing.T) {
	const n = 100000
	r := queue.NewRing[int](64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; {
			if r.Push(i) {
				i++
			}
		}
	}()
	expected := 0
	for expected < n {
		if v, ok := r.Pop(); ok {
			assert.Equal(t, expected, v)
			expected++
		}
	}
	wg.Wait()
}

func TestSender(t *testing.T) {
	r := queue.NewRing[int](2)
	s := queue.NewSender(r, 3)

	assert.NoError(t, s.Send(1, 2, 3))
	assert.Equal(t, 1, s.Pending())
	assert.NoError(t, s.Send(4, 5))
	assert.Equal(t, 3, s.Pending())
	assert.ErrorIs(t, s.Send(6), queue.ErrBackpressure)
	assert.Equal(t, 3, s.Pending(), "rejected values are not queued")

	got := drain(r)
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, 1, s.Flush())
	got = append(got, drain(r)...)
	assert.Equal(t, 0, s.Flush())
	got = append(got, drain(r)...)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)

	assert.NoError(t, s.Send(6))
	assert.Equal(t, []int{6}, drain(r))

	s.SendAlways(7, 8, 9, 10, 11, 12)
	assert.Equal(t, 4, s.Pending(), "high-water mark is ignored")
	assert.ErrorIs(t, s.Send(13), queue.ErrBackpressure)
	got = drain(r)
	for s.Flush() > 0 {
		got = append(got, drain(r)...)
	}
	got = append(got, drain(r)...)
	assert.Equal(t, []int{7, 8, 9, 10, 11, 12}, got)
}

func TestSenderTryFlush(t *testing.T) {
	r := queue.NewRing[int](2)
	s := queue.NewSender(r, 4)
	assert.NoError(t, s.Send(1, 2, 3, 4))
	assert.Equal(t, []int{1, 2}, drain(r))
	assert.True(t, s.TryFlush())
	assert.Zero(t, s.Pending())
	assert.Equal(t, []int{3, 4}, drain(r))
}

func TestSenderConcurrentOrder(t *testing.T) {
	const producers, perProducer = 4, 1000
	r := queue.NewRing[[2]int](16)
	s := queue.NewSender(r, producers*perProducer)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				assert.NoError(t, s.Send([2]int{p, i}))
			}
		}(p)
	}

	last := map[int]int{0: -1, 1: -1, 2: -1, 3: -1}
	received := 0
	for received < producers*perProducer {
		// consumer never waits for producers
		s.TryFlush()
		v, ok := r.Pop()
		if !ok {
			continue
		}
		assert.Equal(t, last[v[0]]+1, v[1], "producer %d order", v[0])
		last[v[0]] = v[1]
		received++
	}
	wg.Wait()
}

func drain(r *queue.Ring[int]) []int {
	var result []int
	for {
		v, ok := r.Pop()
		if !ok {
			return result
		}
		result = append(result, v)
	}
}

func TestLatest(t *testing.T) {
	l := queue.NewLatest(new(int), new(int), new(int))
	_, ok := l.Front()
	assert.False(t, ok)

	*l.Back() = 1
	l.Publish()
	*l.Back() = 2
	l.Publish()

	v, ok := l.Front()
	assert.True(t, ok)
	assert.Equal(t, 2, *v, "only the latest value is seen")
	v, ok = l.Front()
	assert.False(t, ok)
	assert.Equal(t, 2, *v, "front is kept until new value is published")
}

func TestLatestConcurrent(t *testing.T) {
	const n = 100000
	l := queue.NewLatest(new(int), new(int), new(int))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= n; i++ {
			*l.Back() = i
			l.Publish()
		}
	}()
	last := 0
	for last < n {
		v, ok := l.Front()
		if !ok {
			continue
		}
		assert.Greater(t, *v, last)
		last = *v
	}
	wg.Wait()
}
