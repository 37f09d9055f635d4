package runtime

import (
	"pipelined.dev/graph/internal/pool"
	"pipelined.dev/graph/node"
	"pipelined.dev/graph/signal"
)

// poolMargin is the number of spare blocks reserved per channel class.
const poolMargin = 2

// topology is the arena of nodes and the processing order derived from it.
type topology struct {
	// nodes are ordered by handle.
	nodes  []*Node
	dest   *Node
	order  []*Node
	breaks []*Node
	dirty  bool

	// tarjan state
	index int
	stack []*Node
}

func newTopology(dest *Node) topology {
	t := topology{
		nodes: make([]*Node, 0, arenaSize),
		dirty: true,
	}
	t.add(dest)
	t.dest = dest
	return t
}

// find returns node by handle.
func (t *topology) find(h node.Handle) (*Node, bool) {
	lo, hi := 0, len(t.nodes)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if t.nodes[mid].Handle < h {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(t.nodes) && t.nodes[lo].Handle == h {
		return t.nodes[lo], true
	}
	return nil, false
}

// producer returns node the edge comes from.
func (t *topology) producer(e Edge) *Node {
	p, _ := t.find(e.From)
	return p
}

// grow moves the arena into spare if it is larger.
func (t *topology) grow(spare []*Node) {
	if cap(spare) <= cap(t.nodes) {
		return
	}
	t.nodes = append(spare[:0], t.nodes...)
}

func (t *topology) add(n *Node) bool {
	if _, ok := t.find(n.Handle); ok {
		return false
	}
	i := len(t.nodes)
	for i > 0 && t.nodes[i-1].Handle > n.Handle {
		i--
	}
	t.nodes = append(t.nodes, nil)
	copy(t.nodes[i+1:], t.nodes[i:])
	t.nodes[i] = n
	t.dirty = true
	return true
}

// remove deletes node and all edges coming from it.
func (t *topology) remove(n *Node) {
	k := 0
	for _, m := range t.nodes {
		if m == n {
			continue
		}
		m.disconnectFrom(n.Handle)
		t.nodes[k] = m
		k++
	}
	for i := k; i < len(t.nodes); i++ {
		t.nodes[i] = nil
	}
	t.nodes = t.nodes[:k]
	t.dirty = true
}

func (t *topology) producers(n *Node, fn func(e Edge, p *Node)) {
	for _, edges := range n.in {
		for _, e := range edges {
			if p, ok := t.find(e.From); ok {
				fn(e, p)
			}
		}
	}
	for _, edges := range n.paramIn {
		for _, e := range edges {
			if p, ok := t.find(e.From); ok {
				fn(e, p)
			}
		}
	}
}

// cut reports whether edge is ignored by ordering.
func cut(p, c *Node) bool {
	return p.breaker || (p.silenced && c.silenced)
}

// rebuild recomputes reachability, cycle breakers, silenced cycles,
// processing order and channel counts. It returns number of blocks the pool
// needs per channel class.
func (t *topology) rebuild() [pool.NumClasses]int {
	for _, n := range t.nodes {
		n.reachable = false
		n.breaker = false
		n.silenced = false
	}
	t.reach(t.dest)

	// delayers in cycles break them
	for _, scc := range t.cycles() {
		for _, n := range scc {
			if n.delayer != nil {
				n.breaker = true
			}
		}
	}
	// cycles left after breaking are silenced
	for _, scc := range t.cycles() {
		for _, n := range scc {
			n.silenced = true
		}
	}

	t.order = t.order[:0]
	t.breaks = t.breaks[:0]
	for _, n := range t.nodes {
		n.visited = false
		if n.breaker {
			t.breaks = append(t.breaks, n)
		}
	}
	t.visit(t.dest)
	for _, n := range t.nodes {
		t.visit(n)
	}
	t.layout()
	t.dirty = false
	return t.count()
}

func (t *topology) reach(n *Node) {
	if n.reachable {
		return
	}
	n.reachable = true
	n.wasReachable = true
	t.producers(n, func(_ Edge, p *Node) {
		t.reach(p)
	})
}

// cycles returns strongly connected components that form cycles over
// edges that are not cut.
func (t *topology) cycles() [][]*Node {
	for _, n := range t.nodes {
		n.index = -1
		n.onStack = false
	}
	t.index = 0
	t.stack = t.stack[:0]
	var sccs [][]*Node
	for _, n := range t.nodes {
		if n.index < 0 {
			sccs = t.strongConnect(n, sccs)
		}
	}
	return sccs
}

func (t *topology) strongConnect(n *Node, sccs [][]*Node) [][]*Node {
	n.index = t.index
	n.low = t.index
	t.index++
	t.stack = append(t.stack, n)
	n.onStack = true

	selfLoop := false
	t.producers(n, func(_ Edge, p *Node) {
		if cut(p, n) {
			return
		}
		if p == n {
			selfLoop = true
			return
		}
		if p.index < 0 {
			sccs = t.strongConnect(p, sccs)
			n.low = min(n.low, p.low)
		} else if p.onStack {
			n.low = min(n.low, p.index)
		}
	})
	if n.low != n.index {
		return sccs
	}
	i := len(t.stack) - 1
	for t.stack[i] != n {
		i--
	}
	scc := make([]*Node, len(t.stack)-i)
	copy(scc, t.stack[i:])
	for _, m := range scc {
		m.onStack = false
	}
	t.stack = t.stack[:i]
	if len(scc) > 1 || selfLoop {
		sccs = append(sccs, scc)
	}
	return sccs
}

// visit appends node to the order after its producers.
func (t *topology) visit(n *Node) {
	if n.visited {
		return
	}
	n.visited = true
	t.producers(n, func(_ Edge, p *Node) {
		if !cut(p, n) {
			t.visit(p)
		}
	})
	t.order = append(t.order, n)
}

// layout computes channel counts of inputs and outputs in processing order.
func (t *topology) layout() {
	for _, n := range t.breaks {
		for i, in := range n.inputs {
			n.inCh[i] = in.Channels
		}
		n.layoutOutputs()
	}
	for _, n := range t.order {
		if n.breaker {
			continue
		}
		for i, in := range n.inputs {
			n.inCh[i] = t.inputChannels(n.in[i], in)
		}
		n.layoutOutputs()
	}
}

func (n *Node) layoutOutputs() {
	for i, out := range n.Desc.Outputs {
		if out.Channels > 0 {
			n.outCh[i] = out.Channels
		} else {
			n.outCh[i] = n.inCh[0]
		}
	}
}

func (t *topology) inputChannels(edges []Edge, in node.Input) int {
	if in.Mode == node.Explicit {
		return in.Channels
	}
	channels := 1
	for _, e := range edges {
		if p, ok := t.find(e.From); ok {
			channels = max(channels, e.channels(p.outCh[e.Output]))
		}
	}
	if in.Mode == node.ClampedMax {
		channels = min(channels, in.Channels)
	}
	return channels
}

// count computes consumers of every output and the number of blocks the
// pool needs per channel class.
func (t *topology) count() (reserve [pool.NumClasses]int) {
	var inputs [pool.NumClasses]int
	for _, n := range t.nodes {
		for i := range n.consumers {
			n.consumers[i] = 0
		}
	}
	for _, n := range t.nodes {
		var own [pool.NumClasses]int
		for i, ch := range n.inCh {
			own[signal.Class(ch)]++
			for _, e := range n.in[i] {
				t.producer(e).consumers[e.Output]++
			}
		}
		for _, edges := range n.paramIn {
			for _, e := range edges {
				t.producer(e).consumers[e.Output]++
			}
		}
		for c := range own {
			inputs[c] = max(inputs[c], own[c])
		}
		for _, ch := range n.outCh {
			reserve[signal.Class(ch)]++
		}
	}
	for c := range reserve {
		reserve[c] += inputs[c] + poolMargin
	}
	return reserve
}
