package node

import (
	"errors"
	"math"

	"pipelined.dev/graph/mutable"
	"pipelined.dev/graph/signal"
)

var (
	// ErrStarted is returned when a source is started twice.
	ErrStarted = errors.New("source already started")
	// ErrNotStarted is returned when a source is stopped before it is started.
	ErrNotStarted = errors.New("source not started")
)

const frameEpsilon = 1e-6

func frameOf(t, sampleRate float64) uint64 {
	f := math.Ceil(t*sampleRate - frameEpsilon)
	if f < 0 {
		return 0
	}
	return uint64(f)
}

// schedule keeps start and stop frames of a source. It is owned by the
// render side.
type schedule struct {
	start   uint64
	stop    uint64
	started bool
}

func (s *schedule) setStart(frame uint64) error {
	if s.started {
		return ErrStarted
	}
	s.started = true
	s.start = frame
	s.stop = math.MaxUint64
	return nil
}

func (s *schedule) setStop(frame uint64) error {
	if !s.started {
		return ErrNotStarted
	}
	s.stop = frame
	return nil
}

// window returns range of quantum frames the source plays in. Ended is true
// once the stop frame is reached.
func (s *schedule) window(q Quantum) (from, to int, ended bool) {
	if !s.started {
		return 0, 0, false
	}
	first, last := q.Frame, q.Frame+uint64(q.Size)
	if s.stop <= first {
		return 0, 0, true
	}
	if s.start >= last {
		return 0, 0, false
	}
	if s.start > first {
		from = int(s.start - first)
	}
	to = q.Size
	if s.stop < last {
		to = int(s.stop - first)
	}
	if to < from {
		to = from
	}
	return from, to, false
}

// source is embedded by scheduled source kinds.
type source struct {
	mctx       mutable.Context
	sampleRate float64
	sched      *schedule
}

func (s *source) bind(cfg Config, sched *schedule) {
	s.mctx = cfg.Context
	s.sampleRate = cfg.SampleRate
	s.sched = sched
}

// Start returns a mutation that starts the source at time t.
func (s *source) Start(t float64) mutable.Mutation {
	if s.sched == nil {
		return mutable.Mutation{}
	}
	frame, sched := frameOf(t, s.sampleRate), s.sched
	return mutate(s.mctx, func() error {
		return sched.setStart(frame)
	})
}

// Stop returns a mutation that stops the source at time t.
func (s *source) Stop(t float64) mutable.Mutation {
	if s.sched == nil {
		return mutable.Mutation{}
	}
	frame, sched := frameOf(t, s.sampleRate), s.sched
	return mutate(s.mctx, func() error {
		return sched.setStop(frame)
	})
}

// silence zeroes frames of every block outside of [from, to).
func silence(out []*signal.Block, from, to int) {
	for _, b := range out {
		for _, c := range b.Channels() {
			for i := 0; i < from; i++ {
				c[i] = 0
			}
			for i := to; i < len(c); i++ {
				c[i] = 0
			}
		}
	}
}
