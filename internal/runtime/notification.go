package runtime

import (
	"io"

	"pipelined.dev/graph/node"
)

// NotificationType defines what happened on the render side.
type NotificationType uint8

const (
	// NodeDestroyed confirms that a node was torn down. Its handle is dead.
	NodeDestroyed NotificationType = iota + 1
	// Error reports a message that could not be applied.
	Error
	// Fault reports a node silenced for the rest of its lifetime.
	Fault
	// Fatal reports that engine halted.
	Fatal
)

func (t NotificationType) String() string {
	switch t {
	case NodeDestroyed:
		return "NodeDestroyed"
	case Error:
		return "Error"
	case Fault:
		return "Fault"
	case Fatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// Notification is sent from the render side to the control side.
type Notification struct {
	Type  NotificationType
	Node  node.Handle
	Kind  string
	Cause error
	// Closer is the processor of a destroyed node if it has to be closed.
	// It must be closed on the control side.
	Closer io.Closer
	Frame  uint64
}
