package runtime

import (
	"io"

	"pipelined.dev/graph/metric"
	"pipelined.dev/graph/node"
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/signal"
)

// Node is the render-side state of a node.
type Node struct {
	Handle node.Handle
	Desc   node.Descriptor
	Proc   node.Processor
	// Pinned nodes are never torn down until released.
	Pinned bool
	// Measure is called after every processed quantum if not nil.
	Measure metric.MeasureFunc

	delayer   node.Delayer
	closer    io.Closer
	timelines []*param.Timeline
	params    node.Params

	inputs  []node.Input
	in      [][]Edge
	paramIn [][]Edge
	inCh    []int
	outCh   []int
	inBuf   []*signal.Block
	outBuf  []*signal.Block
	// consumers is number of edges reading every output.
	consumers []int
	refs      []int

	released     bool
	hadInputs    bool
	reachable    bool
	wasReachable bool
	breaker      bool
	silenced     bool
	faulted      bool
	tail         bool

	// tarjan bookkeeping
	index   int
	low     int
	onStack bool
	visited bool
}

// NewNode prepares render-side state of a node. It allocates and must be
// called on the control side.
func NewNode(h node.Handle, desc node.Descriptor, proc node.Processor, sampleRate float64, quantumSize int) *Node {
	n := Node{
		Handle:    h,
		Desc:      desc,
		Proc:      proc,
		timelines: make([]*param.Timeline, len(desc.Params)),
		params:    make(node.Params, len(desc.Params)),
		inputs:    make([]node.Input, len(desc.Inputs)),
		in:        make([][]Edge, len(desc.Inputs)),
		paramIn:   make([][]Edge, len(desc.Params)),
		inCh:      make([]int, len(desc.Inputs)),
		outCh:     make([]int, len(desc.Outputs)),
		inBuf:     make([]*signal.Block, len(desc.Inputs)),
		outBuf:    make([]*signal.Block, len(desc.Outputs)),
		consumers: make([]int, len(desc.Outputs)),
		refs:      make([]int, len(desc.Outputs)),
		tail:      true,
	}
	if d, ok := proc.(node.Delayer); ok {
		n.delayer = d
	}
	if c, ok := proc.(io.Closer); ok {
		n.closer = c
	}
	for i, p := range desc.Params {
		n.timelines[i] = param.NewTimeline(p, sampleRate)
		n.params[i] = make([]float32, quantumSize)
		n.paramIn[i] = make([]Edge, 0, paramEdges)
	}
	for i, in := range desc.Inputs {
		n.inputs[i] = in
		n.in[i] = make([]Edge, 0, inputEdges)
		n.inCh[i] = in.Channels
	}
	for i, out := range desc.Outputs {
		n.outCh[i] = out.Channels
		if n.outCh[i] == 0 {
			n.outCh[i] = n.inCh[0]
		}
	}
	return &n
}

// Closer returns processor of the node if it has to be closed.
func (n *Node) Closer() io.Closer {
	return n.closer
}

func (n *Node) incoming(e Edge) *[]Edge {
	if e.Param {
		return &n.paramIn[e.Input]
	}
	return &n.in[e.Input]
}

// connect adds edge. Edges move into spare first if it is larger.
func (n *Node) connect(e Edge, spare []Edge) {
	edges := n.incoming(e)
	for _, existing := range *edges {
		if existing == e {
			return
		}
	}
	if cap(spare) > cap(*edges) {
		*edges = append(spare[:0], *edges...)
	}
	*edges = append(*edges, e)
	if !e.Param {
		n.hadInputs = true
	}
}

// disconnect removes matching edge and keeps order of the rest. It returns
// false if the edge was not found.
func (n *Node) disconnect(e Edge) bool {
	edges := n.incoming(e)
	for i, existing := range *edges {
		if existing == e {
			*edges = append((*edges)[:i], (*edges)[i+1:]...)
			return true
		}
	}
	return false
}

// disconnectFrom removes all edges coming from node h.
func (n *Node) disconnectFrom(h node.Handle) bool {
	removed := false
	for i := range n.in {
		removed = removeFrom(&n.in[i], h) || removed
	}
	for i := range n.paramIn {
		removed = removeFrom(&n.paramIn[i], h) || removed
	}
	return removed
}

func removeFrom(edges *[]Edge, h node.Handle) bool {
	k := 0
	for _, e := range *edges {
		if e.From != h {
			(*edges)[k] = e
			k++
		}
	}
	removed := k != len(*edges)
	*edges = (*edges)[:k]
	return removed
}

func (n *Node) hasAudioInputs() bool {
	for _, edges := range n.in {
		if len(edges) > 0 {
			return true
		}
	}
	return false
}

// orphaned reports whether node lost its way to the destination or its
// inputs. A source node counts as input-less once it was reachable.
func (n *Node) orphaned() bool {
	switch {
	case n.Pinned:
		return false
	case n.released:
		return true
	case n.wasReachable && !n.reachable:
		return true
	case len(n.in) == 0:
		return n.wasReachable
	default:
		return n.hadInputs && !n.hasAudioInputs()
	}
}
