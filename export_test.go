package graph

import (
	"pipelined.dev/graph/internal/pool"
	"pipelined.dev/graph/internal/runtime"
	"pipelined.dev/graph/signal"
)

// PoolStats returns block pool counters of the graph.
func PoolStats(c *Context) pool.Stats {
	c.render.Lock()
	defer c.render.Unlock()
	return c.scheduler.Stats()
}

// Corrupt sends a message render side can not interpret.
func Corrupt(c *Context) {
	c.sender.SendAlways(runtime.Message{})
}

// RenderLocked renders one quantum and drains notifications while the
// control side holds the mirror lock.
func RenderLocked(c *Context) (*signal.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := c.renderQuantum()
	c.tryPoll()
	return b, err
}
