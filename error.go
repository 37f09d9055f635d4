package graph

import (
	"errors"
	"fmt"

	"pipelined.dev/graph/internal/queue"
	"pipelined.dev/graph/internal/runtime"
	"pipelined.dev/graph/node"
)

var (
	// ErrRejected is wrapped by every error of a rejected mutation. Nothing
	// is changed when a mutation is rejected.
	ErrRejected = errors.New("mutation rejected")
	// ErrUnknownNode is returned when a handle does not refer to a live node.
	ErrUnknownNode = runtime.ErrUnknownNode
	// ErrUnknownParam is returned when a node has no parameter with the name.
	ErrUnknownParam = errors.New("unknown parameter")
	// ErrPortRange is returned when a port index is out of range.
	ErrPortRange = errors.New("port index out of range")
	// ErrChannelRange is returned when a channel index is out of range.
	ErrChannelRange = errors.New("channel index out of range")
	// ErrDestination is returned for operations not allowed on the
	// destination node.
	ErrDestination = errors.New("operation not allowed on destination")
	// ErrNotConnected is returned when disconnecting a missing edge.
	ErrNotConnected = errors.New("not connected")
	// ErrBackpressure is returned when the control side queue exceeds its
	// high-water mark. The mutation may be retried later.
	ErrBackpressure = queue.ErrBackpressure
	// ErrClosed is returned when graph is closed.
	ErrClosed = errors.New("graph closed")
	// ErrHalted is returned when graph halted after a fatal error.
	ErrHalted = errors.New("graph halted")
	// ErrRunning is returned when the graph is rendered by Run.
	ErrRunning = errors.New("graph is running")
	// ErrInvalidOption is returned when option value is out of range.
	ErrInvalidOption = errors.New("invalid option")
)

// ConfigError is returned when a node or graph configuration is rejected.
type ConfigError struct {
	Node  node.Handle
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("node %d: %s: %v", e.Node, e.Field, e.Err)
}

// Unwrap returns the cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is matches ErrRejected.
func (e *ConfigError) Is(err error) bool {
	return err == ErrRejected
}

// reject wraps err into ErrRejected.
func reject(err error) error {
	return fmt.Errorf("%w: %w", ErrRejected, err)
}
