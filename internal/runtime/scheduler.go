package runtime

import (
	"errors"
	"sync/atomic"
	"time"

	"pipelined.dev/graph/internal/pool"
	"pipelined.dev/graph/internal/queue"
	"pipelined.dev/graph/node"
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/signal"
)

// Scheduler renders quanta. Quantum must be called from one goroutine at a
// time. Frame, Snapshot and Dropped are safe to call from any goroutine.
type Scheduler struct {
	cfg           Config
	messages      *queue.Ring[Message]
	notifications *queue.Ring[Notification]
	pool          *pool.Pool
	topology

	frame     uint64
	published atomic.Uint64
	snapshot  atomic.Pointer[Snapshot]
	dropped   atomic.Uint64

	rendered  *signal.Block
	doomed    []*Node
	fatal     error
	fatalSent bool
	shutdown  bool
}

// NewScheduler returns a scheduler with destination node in its arena.
func NewScheduler(cfg Config, messages *queue.Ring[Message], notifications *queue.Ring[Notification], dest *Node) *Scheduler {
	s := Scheduler{
		cfg:           cfg,
		messages:      messages,
		notifications: notifications,
		pool:          pool.New(cfg.QuantumSize),
		topology:      newTopology(dest),
	}
	s.rebuildTopology()
	return &s
}

// Frame returns number of rendered frames.
func (s *Scheduler) Frame() uint64 {
	return s.published.Load()
}

// Snapshot returns topology computed by the last rebuild.
func (s *Scheduler) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Dropped returns number of notifications dropped because the ring was full.
func (s *Scheduler) Dropped() uint64 {
	return s.dropped.Load()
}

// Stats returns block pool counters. It must be called from the render
// goroutine or between quanta.
func (s *Scheduler) Stats() pool.Stats {
	return s.pool.Stats()
}

// Quantum drains pending messages and renders one quantum. The returned
// block is valid until the next call. After shutdown every call returns
// ErrShutdown. After a fatal error every call returns that error.
func (s *Scheduler) Quantum() (*signal.Block, error) {
	if s.shutdown {
		return nil, ErrShutdown
	}
	if s.fatal != nil {
		s.sendFatal()
		return nil, s.fatal
	}
	var started time.Time
	if s.cfg.Observe != nil {
		started = time.Now()
	}
	if s.rendered != nil {
		s.pool.Release(s.rendered)
		s.rendered = nil
	}
	if err := s.drain(); err != nil {
		return nil, err
	}
	if s.dirty {
		s.rebuildTopology()
	}

	q := node.Quantum{
		Frame:      s.frame,
		Size:       s.cfg.QuantumSize,
		SampleRate: s.cfg.SampleRate,
	}
	if err := s.render(q); err != nil {
		return nil, s.halt(err)
	}
	s.teardown()

	for _, n := range s.nodes {
		for _, tl := range n.timelines {
			tl.Advance(q.Size)
		}
	}
	s.frame += uint64(q.Size)
	s.published.Store(s.frame)
	if s.cfg.Observe != nil {
		s.cfg.Observe(time.Since(started))
	}
	return s.rendered, nil
}

func (s *Scheduler) drain() error {
	for {
		m, ok := s.messages.Pop()
		if !ok {
			return nil
		}
		switch err := s.apply(m); err {
		case nil:
		case ErrShutdown:
			s.releaseAll()
			s.shutdown = true
			return err
		default:
			return s.halt(err)
		}
	}
}

func (s *Scheduler) apply(m Message) error {
	switch m.Type {
	case CreateNode:
		s.grow(m.Spare.Nodes)
		if m.Node == nil || !s.add(m.Node) {
			return ErrChannelCorrupt
		}
		return nil
	case Shutdown:
		return ErrShutdown
	case ConnectEdge, DisconnectEdge:
		if _, ok := s.lookup(m.Edge.From); !ok {
			return nil
		}
		to, ok := s.lookup(m.Edge.To)
		if !ok {
			return nil
		}
		if !validEdge(to, m.Edge) {
			return ErrChannelCorrupt
		}
		if m.Type == ConnectEdge {
			to.connect(m.Edge, m.Spare.Edges)
			s.dirty = true
		} else if to.disconnect(m.Edge) {
			s.dirty = true
		}
		return nil
	}

	n, ok := s.lookup(m.Handle)
	if !ok {
		return nil
	}
	switch m.Type {
	case ScheduleEvent:
		if m.Index < 0 || m.Index >= len(n.timelines) {
			return ErrChannelCorrupt
		}
		tl := n.timelines[m.Index]
		tl.Adopt(m.Spare.Events)
		if err := tl.Schedule(m.Event); err != nil {
			cause := param.ErrInvalidEvent
			if errors.Is(err, param.ErrExponentialRamp) {
				cause = param.ErrExponentialRamp
			}
			s.notify(Notification{Type: Error, Node: n.Handle, Kind: n.Desc.Kind, Cause: cause, Frame: s.frame})
		}
	case SetNodeConfig:
		if err := m.Mutation.Apply(); err != nil {
			s.notify(Notification{Type: Error, Node: n.Handle, Kind: n.Desc.Kind, Cause: err, Frame: s.frame})
		}
	case SetChannelConfig:
		if m.Index < 0 || m.Index >= len(n.inputs) {
			return ErrChannelCorrupt
		}
		n.inputs[m.Index] = m.Input
		s.dirty = true
	case ReleaseNode:
		n.released = true
		n.Pinned = false
	default:
		return ErrChannelCorrupt
	}
	return nil
}

// lookup returns live node. Unknown handles are reported to the control
// side.
func (s *Scheduler) lookup(h node.Handle) (*Node, bool) {
	n, ok := s.find(h)
	if !ok {
		s.notify(Notification{Type: Error, Node: h, Cause: ErrUnknownNode, Frame: s.frame})
	}
	return n, ok
}

func validEdge(to *Node, e Edge) bool {
	if e.Param {
		return e.Input >= 0 && e.Input < len(to.paramIn)
	}
	return e.Input >= 0 && e.Input < len(to.in)
}

func (s *Scheduler) rebuildTopology() {
	reserve := s.rebuild()
	for c, n := range reserve {
		s.pool.Reserve(1<<c, n)
	}
	if cap(s.doomed) < len(s.nodes) {
		s.doomed = make([]*Node, 0, cap(s.nodes))
	}
	s.snapshot.Store(s.snap())
}

func (s *Scheduler) render(q node.Quantum) error {
	for _, n := range s.nodes {
		copy(n.refs, n.consumers)
	}
	for _, n := range s.breaks {
		if !s.acquireOutputs(n, n.faulted) {
			return ErrPoolExhausted
		}
		if n.faulted {
			continue
		}
		s.fillParams(n, q, false)
		if _, panicked := invoke(n, q, emit); panicked {
			s.fault(n, ErrPanic, q.Frame)
		}
	}
	for _, n := range s.order {
		if err := s.processNode(n, q); err != nil {
			return err
		}
	}
	s.rendered = s.dest.outBuf[0]
	s.dest.outBuf[0] = nil
	s.sweep()
	return nil
}

func (s *Scheduler) processNode(n *Node, q node.Quantum) error {
	mute := n.silenced || n.faulted
	if !n.breaker && !s.acquireOutputs(n, mute) {
		return ErrPoolExhausted
	}
	if mute {
		n.tail = false
		s.consume(n)
		s.releaseUnused(n)
		return nil
	}
	if !s.gather(n) {
		return ErrPoolExhausted
	}
	phase := process
	if n.breaker {
		phase = absorb
	} else {
		s.fillParams(n, q, true)
	}
	n.tail = s.run(n, q, phase)
	for i, b := range n.inBuf {
		s.pool.Release(b)
		n.inBuf[i] = nil
	}
	s.consume(n)
	s.releaseUnused(n)
	return nil
}

// run invokes processor and checks the result.
func (s *Scheduler) run(n *Node, q node.Quantum, phase int) bool {
	var started time.Time
	if s.cfg.Budget > 0 {
		started = time.Now()
	}
	tail, panicked := invoke(n, q, phase)
	switch {
	case panicked:
		s.fault(n, ErrPanic, q.Frame)
		return false
	case phase == process && !finite(n.outBuf):
		s.fault(n, ErrNonFinite, q.Frame)
		return false
	case s.cfg.Budget > 0 && time.Since(started) > s.cfg.Budget:
		s.fault(n, ErrBudget, q.Frame)
		return false
	}
	if n.Measure != nil {
		n.Measure(int64(q.Size))
	}
	return tail
}

const (
	process = iota
	emit
	absorb
)

func invoke(n *Node, q node.Quantum, phase int) (tail, panicked bool) {
	defer func() {
		if recover() != nil {
			panicked = true
		}
	}()
	switch phase {
	case emit:
		n.delayer.Emit(n.outBuf, n.params, q)
		return false, false
	case absorb:
		return n.delayer.Absorb(n.inBuf, n.params, q), false
	default:
		return n.Proc.Process(n.inBuf, n.outBuf, n.params, q), false
	}
}

func finite(blocks []*signal.Block) bool {
	for _, b := range blocks {
		if !b.IsFinite() {
			return false
		}
	}
	return true
}

// fault silences node for the rest of its lifetime.
func (s *Scheduler) fault(n *Node, cause error, frame uint64) {
	n.faulted = true
	for _, b := range n.outBuf {
		if b != nil {
			b.Zero()
		}
	}
	s.notify(Notification{Type: Fault, Node: n.Handle, Kind: n.Desc.Kind, Cause: cause, Frame: frame})
}

func (s *Scheduler) acquireOutputs(n *Node, zero bool) bool {
	for i, ch := range n.outCh {
		var (
			b  *signal.Block
			ok bool
		)
		if zero {
			b, ok = s.pool.AcquireZeroed(ch)
		} else {
			b, ok = s.pool.Acquire(ch)
		}
		if !ok {
			return false
		}
		n.outBuf[i] = b
	}
	return true
}

// gather mixes incoming edges into input blocks.
func (s *Scheduler) gather(n *Node) bool {
	for i := range n.inBuf {
		b, ok := s.pool.AcquireZeroed(n.inCh[i])
		if !ok {
			return false
		}
		n.inBuf[i] = b
		interp := n.inputs[i].Interpretation
		for _, e := range n.in[i] {
			src := s.producer(e).outBuf[e.Output]
			switch {
			case src == nil:
			case e.Channel < 0:
				signal.Mix(b, src, interp)
			case e.Channel < src.NumChannels():
				signal.MixChannel(b, src.Channel(e.Channel), interp)
			}
		}
	}
	return true
}

// fillParams computes parameter values of the quantum. Modulating edges are
// summed in if modulate is set.
func (s *Scheduler) fillParams(n *Node, q node.Quantum, modulate bool) {
	for i, tl := range n.timelines {
		d := &n.Desc.Params[i]
		values := n.params[i][:q.Size]
		if d.Rate == param.KRate {
			broadcast(values, tl.ValueAt(q.Frame))
		} else {
			tl.Fill(values, q.Frame)
		}
		if tl.Failed() {
			s.notify(Notification{Type: Error, Node: n.Handle, Kind: n.Desc.Kind, Cause: param.ErrExponentialRamp, Frame: q.Frame})
		}
		if modulate && len(n.paramIn[i]) > 0 {
			for _, e := range n.paramIn[i] {
				src := s.producer(e).outBuf[e.Output]
				switch {
				case src == nil:
				case e.Channel < 0:
					signal.MixMono(values, src)
				case e.Channel < src.NumChannels():
					for j, v := range src.Channel(e.Channel) {
						values[j] += v
					}
				}
			}
			if d.Rate == param.KRate {
				broadcast(values, values[0])
			}
		}
		for j, v := range values {
			values[j] = d.Clamp(v)
		}
	}
}

func broadcast(values []float32, v float32) {
	for i := range values {
		values[i] = v
	}
}

// consume releases producer blocks that have no readers left.
func (s *Scheduler) consume(n *Node) {
	for _, edges := range n.in {
		for _, e := range edges {
			s.unref(e)
		}
	}
	for _, edges := range n.paramIn {
		for _, e := range edges {
			s.unref(e)
		}
	}
}

func (s *Scheduler) unref(e Edge) {
	p := s.producer(e)
	p.refs[e.Output]--
	if p.refs[e.Output] == 0 && p != s.dest && p.outBuf[e.Output] != nil {
		s.pool.Release(p.outBuf[e.Output])
		p.outBuf[e.Output] = nil
	}
}

// releaseUnused releases outputs whose readers have already run.
func (s *Scheduler) releaseUnused(n *Node) {
	if n == s.dest {
		return
	}
	for i, b := range n.outBuf {
		if b != nil && n.refs[i] <= 0 {
			s.pool.Release(b)
			n.outBuf[i] = nil
		}
	}
}

// sweep releases blocks left after the quantum.
func (s *Scheduler) sweep() {
	for _, n := range s.nodes {
		for i, b := range n.outBuf {
			if b != nil {
				s.pool.Release(b)
				n.outBuf[i] = nil
			}
		}
	}
}

func (s *Scheduler) releaseAll() {
	if s.rendered != nil {
		s.pool.Release(s.rendered)
		s.rendered = nil
	}
	for _, n := range s.nodes {
		for i, b := range n.inBuf {
			if b != nil {
				s.pool.Release(b)
				n.inBuf[i] = nil
			}
		}
	}
	s.sweep()
}

// teardown destroys orphaned nodes without tail. Nodes are selected
// against the graph the quantum was rendered with, so a consumer orphaned
// by a destroyed producer is destroyed after the next quantum regardless
// of handle order.
func (s *Scheduler) teardown() {
	s.doomed = s.doomed[:0]
	for _, n := range s.nodes {
		if n != s.dest && !n.tail && n.orphaned() {
			s.doomed = append(s.doomed, n)
		}
	}
	for i, n := range s.doomed {
		s.destroy(n)
		s.doomed[i] = nil
	}
}

// destroy removes node if the control side can be notified. Otherwise node
// stays until the next quantum.
func (s *Scheduler) destroy(n *Node) {
	ok := s.notifications.Push(Notification{
		Type:   NodeDestroyed,
		Node:   n.Handle,
		Kind:   n.Desc.Kind,
		Closer: n.closer,
		Frame:  s.frame,
	})
	if ok {
		s.remove(n)
	}
}

func (s *Scheduler) notify(n Notification) {
	if !s.notifications.Push(n) {
		s.dropped.Add(1)
	}
}

func (s *Scheduler) halt(err error) error {
	s.fatal = err
	s.releaseAll()
	s.sendFatal()
	return err
}

func (s *Scheduler) sendFatal() {
	if s.fatalSent {
		return
	}
	s.fatalSent = s.notifications.Push(Notification{Type: Fatal, Cause: s.fatal, Frame: s.frame})
}
