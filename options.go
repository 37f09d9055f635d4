package graph

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"pipelined.dev/graph/signal"
)

const (
	// DefaultSampleRate is used if WithSampleRate is not provided.
	DefaultSampleRate = 44100
	// DefaultQuantumSize is used if WithQuantumSize is not provided.
	DefaultQuantumSize = 128
	// DefaultChannels is the default channel count of destination.
	DefaultChannels = 2

	defaultHighWaterMark = 4096
	defaultQueueCapacity = 1024

	minSampleRate  = 3000
	maxSampleRate  = 768000
	maxQuantumSize = 16384
)

// Option provides a way to set functional parameters to graph.
type Option func(c *Context) error

// WithSampleRate sets sample rate of the graph.
func WithSampleRate(sampleRate int) Option {
	return func(c *Context) error {
		if sampleRate < minSampleRate || sampleRate > maxSampleRate {
			return optionError("SampleRate", sampleRate)
		}
		c.sampleRate = sampleRate
		return nil
	}
}

// WithQuantumSize sets number of frames rendered at once.
func WithQuantumSize(size int) Option {
	return func(c *Context) error {
		if size < 1 || size > maxQuantumSize {
			return optionError("QuantumSize", size)
		}
		c.quantumSize = size
		return nil
	}
}

// WithChannels sets channel count of destination.
func WithChannels(channels int) Option {
	return func(c *Context) error {
		if channels < 1 || channels > signal.MaxChannels {
			return optionError("Channels", channels)
		}
		c.channels = channels
		return nil
	}
}

// WithHighWaterMark limits number of messages that wait for the render side
// to free up the queue. Mutations return ErrBackpressure when the limit is
// reached.
func WithHighWaterMark(n int) Option {
	return func(c *Context) error {
		if n < 0 {
			return optionError("HighWaterMark", n)
		}
		c.highWater = n
		return nil
	}
}

// WithQueueCapacity sets capacity of queues between control and render
// sides.
func WithQueueCapacity(n int) Option {
	return func(c *Context) error {
		if n < 1 {
			return optionError("QueueCapacity", n)
		}
		c.queueCapacity = n
		return nil
	}
}

// WithNodeBudget sets wall-clock time a node may spend on one quantum. Nodes
// exceeding it are silenced. Zero disables the check.
func WithNodeBudget(d time.Duration) Option {
	return func(c *Context) error {
		if d < 0 {
			return optionError("NodeBudget", d)
		}
		c.budget = d
		return nil
	}
}

// WithLogger sets logger to graph. If this option is not provided, logger
// of the log package is used.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Context) error {
		c.logger = logger
		return nil
	}
}

// WithNotificationHandler sets function called for every notification
// received from the render side. It is called by the goroutine that polls
// notifications.
func WithNotificationHandler(fn func(Notification)) Option {
	return func(c *Context) error {
		c.handler = fn
		return nil
	}
}

// WithMetrics enables prometheus metrics of the graph and its nodes.
func WithMetrics() Option {
	return func(c *Context) error {
		c.metrics = true
		return nil
	}
}

func optionError(field string, value interface{}) error {
	return &ConfigError{Field: field, Err: fmt.Errorf("%w: %v", ErrInvalidOption, value)}
}

// NodeOption configures a node when it is created.
type NodeOption func(*nodeOptions)

type nodeOptions struct {
	pinned bool
}

// Pinned protects node from automatic teardown until it is released.
func Pinned() NodeOption {
	return func(o *nodeOptions) {
		o.pinned = true
	}
}
