package runtime

import (
	"pipelined.dev/graph/node"
	"pipelined.dev/graph/param"
)

// Initial capacities of render-side storage.
const (
	arenaSize  = 64
	inputEdges = 4
	paramEdges = 2
)

// Spare is storage allocated by the control side for a message that would
// grow render-side storage. Empty fields mean there is room.
type Spare struct {
	Nodes  []*Node
	Edges  []Edge
	Events param.Storage
}

type port struct {
	node  node.Handle
	index int
	param bool
}

// Reserve follows capacities of render-side storage on the control side.
// Counts passed to it must not be less than what the render side holds, so
// the control side counts its own view, which is never behind. Capacities
// change only when a message carrying spare storage is committed. Reserve
// is not safe for concurrent use.
type Reserve struct {
	nodes  int
	edges  map[port]int
	events map[port]int
}

// NewReserve returns reserve for a new scheduler.
func NewReserve() *Reserve {
	return &Reserve{
		nodes:  arenaSize,
		edges:  make(map[port]int),
		events: make(map[port]int),
	}
}

// Nodes returns spare arena for a node created when live nodes exist.
func (r *Reserve) Nodes(live int) []*Node {
	if live < r.nodes {
		return nil
	}
	return make([]*Node, 0, grown(live))
}

// Edges returns spare edges for e if its port already has n edges.
func (r *Reserve) Edges(e Edge, n int) []Edge {
	c, ok := r.edges[edgePort(e)]
	if !ok {
		c = inputEdges
		if e.Param {
			c = paramEdges
		}
	}
	if n < c {
		return nil
	}
	return make([]Edge, 0, grown(n))
}

// Events returns spare storage for an event scheduled on a parameter
// timeline that holds n events.
func (r *Reserve) Events(h node.Handle, index, n int) param.Storage {
	c, ok := r.events[paramPort(h, index)]
	if !ok {
		c = param.EventCapacity
	}
	if n < c {
		return param.Storage{}
	}
	return param.NewStorage(grown(n))
}

// Commit records spare storage of a sent message.
func (r *Reserve) Commit(m Message) {
	if c := cap(m.Spare.Nodes); c > r.nodes {
		r.nodes = c
	}
	if c := cap(m.Spare.Edges); c > 0 {
		r.edges[edgePort(m.Edge)] = c
	}
	if c := m.Spare.Events.Cap(); c > 0 {
		r.events[paramPort(m.Handle, m.Index)] = c
	}
}

// Forget drops capacities of a destroyed node.
func (r *Reserve) Forget(h node.Handle) {
	for p := range r.edges {
		if p.node == h {
			delete(r.edges, p)
		}
	}
	for p := range r.events {
		if p.node == h {
			delete(r.events, p)
		}
	}
}

func edgePort(e Edge) port {
	return port{node: e.To, index: e.Input, param: e.Param}
}

func paramPort(h node.Handle, index int) port {
	return port{node: h, index: index, param: true}
}

func grown(n int) int {
	return 2 * (n + 1)
}
