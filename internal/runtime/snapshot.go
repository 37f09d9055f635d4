package runtime

import "pipelined.dev/graph/node"

// Snapshot describes topology computed by a rebuild.
type Snapshot struct {
	// Frame is the first frame rendered with this topology.
	Frame uint64
	// Order is the processing order.
	Order []node.Handle
	// Breakers are delaying nodes that break cycles.
	Breakers []node.Handle
	// Silenced are nodes of cycles without delaying nodes.
	Silenced []node.Handle
	Nodes    []NodeInfo
}

// NodeInfo describes a node in a snapshot.
type NodeInfo struct {
	Handle node.Handle
	Kind   string
	// Inputs and Outputs are computed channel counts of ports.
	Inputs    []int
	Outputs   []int
	Reachable bool
}

// Node returns info of node with handle h.
func (s *Snapshot) Node(h node.Handle) (NodeInfo, bool) {
	for _, n := range s.Nodes {
		if n.Handle == h {
			return n, true
		}
	}
	return NodeInfo{}, false
}

func (s *Scheduler) snap() *Snapshot {
	snap := Snapshot{
		Frame:    s.frame,
		Order:    make([]node.Handle, 0, len(s.order)),
		Breakers: make([]node.Handle, 0, len(s.breaks)),
		Nodes:    make([]NodeInfo, 0, len(s.nodes)),
	}
	for _, n := range s.order {
		snap.Order = append(snap.Order, n.Handle)
	}
	for _, n := range s.breaks {
		snap.Breakers = append(snap.Breakers, n.Handle)
	}
	for _, n := range s.nodes {
		if n.silenced {
			snap.Silenced = append(snap.Silenced, n.Handle)
		}
		snap.Nodes = append(snap.Nodes, NodeInfo{
			Handle:    n.Handle,
			Kind:      n.Desc.Kind,
			Inputs:    append([]int(nil), n.inCh...),
			Outputs:   append([]int(nil), n.outCh...),
			Reachable: n.reachable,
		})
	}
	return &snap
}
