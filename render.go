package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"pipelined.dev/graph/internal/runtime"
	"pipelined.dev/graph/internal/state"
	"pipelined.dev/graph/metric"
	"pipelined.dev/graph/signal"
)

// maintenancePeriod defines how often control side is maintained while Run
// is active.
const maintenancePeriod = 10 * time.Millisecond

// executor pushes rendered quanta into a sink. If limit is positive,
// executor stops after limit quanta. Offline executor also moves overflowed
// messages and drains notifications between quanta, skipping both when
// the control side holds the locks.
type executor struct {
	c        *Context
	sink     Sink
	limit    int
	rendered int
	offline  bool
}

func (e *executor) Start(ctx context.Context) error {
	return e.sink.Start(ctx)
}

func (e *executor) Flush(ctx context.Context) error {
	return e.sink.Flush(ctx)
}

// Execute renders one quantum. io.EOF is returned if the limit is reached,
// context is done or graph is closed while running without limit.
func (e *executor) Execute(ctx context.Context) error {
	if e.limit > 0 && e.rendered == e.limit {
		return io.EOF
	}
	select {
	case <-ctx.Done():
		return io.EOF
	default:
	}
	if e.offline {
		e.c.sender.TryFlush()
	}
	b, err := e.c.quantum()
	if e.offline {
		e.c.tryPoll()
	}
	if err != nil {
		if e.limit == 0 && errors.Is(err, ErrClosed) {
			return io.EOF
		}
		return err
	}
	e.rendered++
	if e.sink.SinkFunc == nil {
		return nil
	}
	return e.sink.SinkFunc(b)
}

// quantum renders one quantum. Must be called with render lock held. It
// takes no locks shared with the control side.
func (c *Context) quantum() (*signal.Block, error) {
	b, err := c.scheduler.Quantum()
	if err == nil {
		return b, nil
	}
	if errors.Is(err, runtime.ErrShutdown) {
		return nil, ErrClosed
	}
	return nil, fmt.Errorf("%w: %w", ErrHalted, err)
}

func (c *Context) props() SignalProperties {
	return SignalProperties{
		SampleRate: c.sampleRate,
		Channels:   c.channels,
	}
}

// RenderQuantum renders one quantum on the calling goroutine and then
// drains notifications. Returned block is valid until the next call. It
// returns ErrRunning while Run is active.
func (c *Context) RenderQuantum() (*signal.Block, error) {
	b, err := c.renderQuantum()
	if errors.Is(err, ErrRunning) {
		return nil, err
	}
	c.Poll()
	return b, err
}

func (c *Context) renderQuantum() (*signal.Block, error) {
	if !c.render.TryLock() {
		return nil, ErrRunning
	}
	defer c.render.Unlock()
	if err := c.accepting(); err != nil {
		return nil, err
	}
	c.sender.TryFlush()
	return c.quantum()
}

// Render renders provided number of quanta into the sink on the calling
// goroutine.
func (c *Context) Render(alloc SinkAllocatorFunc, quanta int) error {
	if !c.render.TryLock() {
		return ErrRunning
	}
	defer c.render.Unlock()
	if err := c.accepting(); err != nil {
		return err
	}
	if quanta <= 0 {
		return nil
	}
	sink, err := alloc(c.quantumSize, c.props())
	if err != nil {
		return fmt.Errorf("error allocating sink: %w", err)
	}
	err = runtime.Run(context.Background(), &executor{
		c:       c,
		sink:    sink,
		limit:   quanta,
		offline: true,
	})
	c.Poll()
	return err
}

// Run renders quanta into the sink until context is done or graph is
// closed. It also flushes mutations that exceeded the queue capacity and
// drains notifications. Run returns nil when it is stopped, error is
// returned if sink failed or graph halted.
func (c *Context) Run(ctx context.Context, alloc SinkAllocatorFunc) error {
	if !c.render.TryLock() {
		return ErrRunning
	}
	defer c.render.Unlock()
	if err := c.accepting(); err != nil {
		return err
	}
	if _, err := c.machine.Handle(state.Run); err != nil {
		return err
	}
	defer func() {
		if c.machine.State() == state.Running {
			_, _ = c.machine.Handle(state.Done)
		}
	}()

	sink, err := alloc(c.quantumSize, c.props())
	if err != nil {
		return fmt.Errorf("error allocating sink: %w", err)
	}
	c.logger.Debug("run started")
	done := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(done)
		return runtime.Run(ctx, &executor{c: c, sink: sink})
	})
	g.Go(func() error {
		ticker := time.NewTicker(maintenancePeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return nil
			case <-ticker.C:
				c.maintain()
			}
		}
	})
	err = g.Wait()
	c.Poll()
	c.logger.WithError(err).Debug("run stopped")
	return err
}

// maintain moves overflowed messages into the queue, drains notifications
// and prunes parameter mirrors.
func (c *Context) maintain() {
	c.sender.Flush()
	c.Poll()
	frame := c.scheduler.Frame()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.nodes {
		for _, tl := range m.timelines {
			tl.Prune(frame)
		}
	}
}

// Close shuts the graph down. If Run is active, Close waits until it
// returns. Processors of live nodes are closed.
func (c *Context) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.stop(ErrClosed)
		c.mu.Unlock()
		c.sender.SendAlways(runtime.Message{Type: runtime.Shutdown})
		c.render.Lock()
		defer c.render.Unlock()
		for {
			c.sender.Flush()
			if _, err := c.scheduler.Quantum(); err != nil {
				break
			}
		}
		c.Poll()

		c.mu.Lock()
		var errs []error
		for h, m := range c.nodes {
			if h == Destination {
				continue
			}
			if m.closer != nil {
				if err := m.closer.Close(); err != nil {
					errs = append(errs, fmt.Errorf("error closing node %d: %w", h, err))
				}
			}
			if c.metrics {
				metric.Release(m.kind)
			}
		}
		c.mu.Unlock()
		_, _ = c.machine.Handle(state.Close)
		if c.metrics {
			c.meter.Forget()
		}
		c.closeErr = errors.Join(errs...)
		c.logger.Debug("graph closed")
	})
	return c.closeErr
}
