package graph

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"pipelined.dev/graph/internal/runtime"
	"pipelined.dev/graph/internal/state"
	"pipelined.dev/graph/metric"
	"pipelined.dev/graph/node"
)

type (
	// Notification is sent by the render side to report what happened to
	// nodes and the engine.
	Notification = runtime.Notification
	// NotificationType defines what happened on the render side.
	NotificationType = runtime.NotificationType
	// Snapshot is topology computed by the last rebuild.
	Snapshot = runtime.Snapshot
	// NodeInfo describes a node in a Snapshot.
	NodeInfo = runtime.NodeInfo
)

const (
	// NodeDestroyed confirms that a node was torn down. Its handle is dead.
	NodeDestroyed = runtime.NodeDestroyed
	// Error reports a mutation that could not be applied by the render
	// side.
	Error = runtime.Error
	// Fault reports a node silenced for the rest of its lifetime.
	Fault = runtime.Fault
	// Fatal reports that engine halted.
	Fatal = runtime.Fatal
)

// Poll drains notifications sent by the render side. Destroyed nodes are
// forgotten and their processors closed. Poll is called after every
// RenderQuantum and periodically while Run is active, so the notification
// handler is the usual way to receive notifications.
func (c *Context) Poll() []Notification {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	c.mu.Lock()
	received := c.drain()
	c.mu.Unlock()
	c.deliver(received)
	return received
}

// tryPoll is Poll that gives up if another goroutine holds the locks.
func (c *Context) tryPoll() {
	if !c.pollMu.TryLock() {
		return
	}
	defer c.pollMu.Unlock()
	if !c.mu.TryLock() {
		return
	}
	received := c.drain()
	c.mu.Unlock()
	c.deliver(received)
}

// Dropped returns number of notifications the render side could not send
// because the queue was full.
func (c *Context) Dropped() uint64 {
	return c.scheduler.Dropped()
}

// drain pops notifications and updates mirrors. Must be called with mu
// held.
func (c *Context) drain() []Notification {
	var received []Notification
	for {
		n, ok := c.notifications.Pop()
		if !ok {
			return received
		}
		switch n.Type {
		case NodeDestroyed:
			c.forget(n.Node)
		case Fatal:
			c.stop(fmt.Errorf("%w: %w", ErrHalted, n.Cause))
		}
		received = append(received, n)
	}
}

// deliver closes processors of destroyed nodes, logs notifications and
// passes them to the handler.
func (c *Context) deliver(received []Notification) {
	for _, n := range received {
		c.handle(n)
		if c.handler != nil {
			c.handler(n)
		}
	}
}

func (c *Context) handle(n Notification) {
	logger := c.logger.WithFields(logrus.Fields{
		"node":  n.Node,
		"frame": n.Frame,
	})
	if n.Kind != "" {
		logger = logger.WithField("kind", n.Kind)
	}
	switch n.Type {
	case NodeDestroyed:
		if n.Closer != nil {
			if err := n.Closer.Close(); err != nil {
				logger.WithError(err).Warn("error closing node")
			}
		}
		if c.metrics {
			metric.Release(n.Kind)
		}
		logger.Debug("node destroyed")
	case Error:
		logger.WithError(n.Cause).Warn("mutation failed")
	case Fault:
		if c.metrics {
			metric.Fault(n.Kind)
		}
		logger.WithError(n.Cause).Warn("node silenced")
	case Fatal:
		_, _ = c.machine.Handle(state.Halt)
		logger.WithError(n.Cause).Error("graph halted")
	}
}

// forget removes mirror of destroyed node and its edges. Must be called
// with mu held.
func (c *Context) forget(h node.Handle) {
	delete(c.nodes, h)
	c.reserve.Forget(h)
	for e := range c.edges {
		if e.From == h || e.To == h {
			delete(c.edges, e)
		}
	}
}
