package graph

import (
	"context"
	"sync"

	"pipelined.dev/graph/signal"
)

type (
	// SinkAllocatorFunc returns sink for provided quantum size and signal
	// properties of the destination. It is responsible for pre-allocation
	// of all necessary buffers and structures.
	SinkAllocatorFunc func(quantumSize int, props SignalProperties) (Sink, error)

	// Sink consumes rendered quanta. Hooks are optional.
	Sink struct {
		SinkFunc
		StartFunc
		FlushFunc
	}

	// SinkFunc is called with one destination quantum. The block is valid
	// only during the call.
	SinkFunc func(*signal.Block) error

	// StartFunc is a closure that triggers sink start hook.
	StartFunc func(ctx context.Context) error

	// FlushFunc is a closure that triggers sink flush hook.
	FlushFunc func(ctx context.Context) error

	// SignalProperties contains information about rendered signal.
	SignalProperties struct {
		SampleRate int
		Channels   int
	}
)

// Start calls the start hook.
func (fn StartFunc) Start(ctx context.Context) error {
	return callHook(ctx, fn)
}

// Flush calls the flush hook.
func (fn FlushFunc) Flush(ctx context.Context) error {
	return callHook(ctx, fn)
}

func callHook(ctx context.Context, hook func(context.Context) error) error {
	if hook == nil {
		return nil
	}
	return hook(ctx)
}

// Recorder is an in-memory sink. It keeps copies of all rendered quanta.
type Recorder struct {
	mu      sync.Mutex
	data    [][]float32
	started bool
	flushed bool
}

// Sink returns allocator of the recording sink.
func (r *Recorder) Sink() SinkAllocatorFunc {
	return func(quantumSize int, props SignalProperties) (Sink, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.data = make([][]float32, props.Channels)
		return Sink{
			StartFunc: func(context.Context) error {
				r.mu.Lock()
				r.started = true
				r.mu.Unlock()
				return nil
			},
			SinkFunc: func(b *signal.Block) error {
				r.mu.Lock()
				defer r.mu.Unlock()
				for i := range r.data {
					r.data[i] = append(r.data[i], b.Channel(i)...)
				}
				return nil
			},
			FlushFunc: func(context.Context) error {
				r.mu.Lock()
				r.flushed = true
				r.mu.Unlock()
				return nil
			},
		}, nil
	}
}

// Data returns copy of recorded channels.
func (r *Recorder) Data() [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	data := make([][]float32, len(r.data))
	for i := range r.data {
		data[i] = append([]float32(nil), r.data[i]...)
	}
	return data
}

// Frames returns number of recorded frames.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.data) == 0 {
		return 0
	}
	return len(r.data[0])
}

// Flushed reports whether recorder was started and flushed.
func (r *Recorder) Flushed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started && r.flushed
}
