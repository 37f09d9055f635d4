package runtime

import (
	"pipelined.dev/graph/mutable"
	"pipelined.dev/graph/node"
	"pipelined.dev/graph/param"
)

// MessageType defines what a message changes on the render side.
type MessageType uint8

const (
	// CreateNode adds Message.Node to the arena.
	CreateNode MessageType = iota + 1
	// ConnectEdge adds Message.Edge.
	ConnectEdge
	// DisconnectEdge removes Message.Edge. Missing edges are ignored.
	DisconnectEdge
	// ScheduleEvent inserts Message.Event into timeline of parameter
	// Message.Index of node Message.Handle.
	ScheduleEvent
	// SetNodeConfig applies Message.Mutation.
	SetNodeConfig
	// SetChannelConfig replaces configuration of input Message.Index of
	// node Message.Handle with Message.Input.
	SetChannelConfig
	// ReleaseNode unpins node Message.Handle and makes it eligible for
	// teardown.
	ReleaseNode
	// Shutdown releases all blocks and stops rendering.
	Shutdown
)

func (t MessageType) String() string {
	switch t {
	case CreateNode:
		return "CreateNode"
	case ConnectEdge:
		return "ConnectEdge"
	case DisconnectEdge:
		return "DisconnectEdge"
	case ScheduleEvent:
		return "ScheduleEvent"
	case SetNodeConfig:
		return "SetNodeConfig"
	case SetChannelConfig:
		return "SetChannelConfig"
	case ReleaseNode:
		return "ReleaseNode"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Message is a graph mutation sent from the control side. Only fields
// relevant to the type are set.
type Message struct {
	Type     MessageType
	Handle   node.Handle
	Index    int
	Node     *Node
	Edge     Edge
	Event    param.Event
	Mutation mutable.Mutation
	Input    node.Input
	// Spare grows render-side storage the message needs.
	Spare Spare
}

// Edge connects an output of a node to an input port or to a parameter of
// another node.
type Edge struct {
	From   node.Handle
	Output int
	// Channel selects a single channel of the output. Negative value routes
	// all channels.
	Channel int
	To      node.Handle
	// Input is an input port index, or a parameter index if Param is set.
	Input int
	Param bool
}

// AllChannels is the Channel value of edges that route whole outputs.
const AllChannels = -1

// channels returns channel count the edge carries from an output with n
// channels.
func (e Edge) channels(n int) int {
	if e.Channel >= 0 {
		return 1
	}
	return n
}
