package graph

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"pipelined.dev/graph/internal/queue"
	"pipelined.dev/graph/internal/runtime"
	"pipelined.dev/graph/internal/state"
	"pipelined.dev/graph/log"
	"pipelined.dev/graph/metric"
	"pipelined.dev/graph/mutable"
	"pipelined.dev/graph/node"
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/signal"
)

// Destination is the handle of the destination node of every graph.
const Destination = node.DestinationHandle

var errForeignMutation = errors.New("mutation belongs to another node")

// Context is the control side of an audio graph. All methods are safe for
// concurrent use. Mutations are accepted or rejected synchronously and
// applied by the render side at the next quantum boundary.
type Context struct {
	id            xid.ID
	sampleRate    int
	quantumSize   int
	channels      int
	highWater     int
	queueCapacity int
	budget        time.Duration
	metrics       bool
	logger        logrus.FieldLogger
	handler       func(Notification)

	mu    sync.Mutex
	next  node.Handle
	nodes map[node.Handle]*mirror
	edges map[runtime.Edge]struct{}

	// stopped holds the first reason the graph stopped accepting work. It
	// is read by the render path, so it is not guarded by mu.
	stopped atomic.Pointer[error]

	sender        *queue.Sender[runtime.Message]
	reserve       *runtime.Reserve
	notifications *queue.Ring[runtime.Notification]
	scheduler     *runtime.Scheduler
	machine       *state.Machine
	meter         metric.EngineMeter

	// render is held by the goroutine that drives the scheduler.
	render    sync.Mutex
	pollMu    sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// mirror is the control-side view of a live node.
type mirror struct {
	kind      string
	desc      node.Descriptor
	ctx       mutable.Context
	timelines []*param.Timeline
	inputs    []node.Input
	pinned    bool
	closer    io.Closer
}

// New creates a graph with a destination node.
func New(options ...Option) (*Context, error) {
	c := Context{
		id:            xid.New(),
		sampleRate:    DefaultSampleRate,
		quantumSize:   DefaultQuantumSize,
		channels:      DefaultChannels,
		highWater:     defaultHighWaterMark,
		queueCapacity: defaultQueueCapacity,
		next:          Destination + 1,
		nodes:         make(map[node.Handle]*mirror),
		edges:         make(map[runtime.Edge]struct{}),
		machine:       state.New(),
		reserve:       runtime.NewReserve(),
	}
	for _, option := range options {
		if err := option(&c); err != nil {
			return nil, err
		}
	}
	if c.logger == nil {
		c.logger = log.GetLogger()
	}
	c.logger = c.logger.WithField("engine", c.id.String())

	desc, proc, err := node.Destination{Channels: c.channels}.New(c.nodeConfig(mutable.Immutable()))
	if err != nil {
		return nil, &ConfigError{Node: Destination, Field: "Channels", Err: err}
	}
	c.nodes[Destination] = c.newMirror(desc, mutable.Immutable(), nil)
	c.nodes[Destination].pinned = true

	cfg := runtime.Config{
		SampleRate:  float64(c.sampleRate),
		QuantumSize: c.quantumSize,
		Budget:      c.budget,
	}
	if c.metrics {
		c.meter = metric.Engine(c.id.String())
		cfg.Observe = c.meter.Observe
	}
	messages := queue.NewRing[runtime.Message](c.queueCapacity)
	c.notifications = queue.NewRing[runtime.Notification](c.queueCapacity)
	c.sender = queue.NewSender(messages, c.highWater)
	dest := runtime.NewNode(Destination, desc, proc, float64(c.sampleRate), c.quantumSize)
	dest.Pinned = true
	c.scheduler = runtime.NewScheduler(cfg, messages, c.notifications, dest)
	c.logger.WithFields(logrus.Fields{
		"sampleRate":  c.sampleRate,
		"quantumSize": c.quantumSize,
		"channels":    c.channels,
	}).Debug("graph created")
	return &c, nil
}

// ID returns unique id of the graph.
func (c *Context) ID() string {
	return c.id.String()
}

// SampleRate returns sample rate of the graph.
func (c *Context) SampleRate() int {
	return c.sampleRate
}

// QuantumSize returns number of frames in one quantum.
func (c *Context) QuantumSize() int {
	return c.quantumSize
}

// Channels returns channel count of the destination.
func (c *Context) Channels() int {
	return c.channels
}

// CurrentTime returns time rendered so far in seconds.
func (c *Context) CurrentTime() float64 {
	return float64(c.scheduler.Frame()) / float64(c.sampleRate)
}

// Snapshot returns topology computed by the last rebuild.
func (c *Context) Snapshot() *Snapshot {
	return c.scheduler.Snapshot()
}

// Nodes returns handles of live nodes, destination included.
func (c *Context) Nodes() []node.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	handles := make([]node.Handle, 0, len(c.nodes))
	for h := range c.nodes {
		handles = append(handles, h)
	}
	return handles
}

// Descriptor returns descriptor of a live node.
func (c *Context) Descriptor(h node.Handle) (node.Descriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := c.lookup(h)
	if err != nil {
		return node.Descriptor{}, err
	}
	return m.desc, nil
}

func (c *Context) nodeConfig(ctx mutable.Context) node.Config {
	return node.Config{
		SampleRate:  float64(c.sampleRate),
		QuantumSize: c.quantumSize,
		Context:     ctx,
	}
}

func (c *Context) newMirror(desc node.Descriptor, ctx mutable.Context, closer io.Closer) *mirror {
	m := mirror{
		kind:      desc.Kind,
		desc:      desc,
		ctx:       ctx,
		timelines: make([]*param.Timeline, len(desc.Params)),
		inputs:    make([]node.Input, len(desc.Inputs)),
		closer:    closer,
	}
	for i := range desc.Params {
		m.timelines[i] = param.NewTimeline(desc.Params[i], float64(c.sampleRate))
	}
	copy(m.inputs, desc.Inputs)
	return &m
}

// accepting returns error if graph was halted or closed.
func (c *Context) accepting() error {
	if err := c.stopped.Load(); err != nil {
		return *err
	}
	return nil
}

// stop records the reason graph stops accepting work. Only the first
// reason is kept.
func (c *Context) stop(err error) {
	c.stopped.CompareAndSwap(nil, &err)
}

// lookup returns mirror of a live node. Must be called with mu held.
func (c *Context) lookup(h node.Handle) (*mirror, error) {
	m, ok := c.nodes[h]
	if !ok {
		return nil, reject(fmt.Errorf("%w: %d", ErrUnknownNode, h))
	}
	return m, nil
}

// send enqueues messages. Must be called with mu held.
func (c *Context) send(ms ...runtime.Message) error {
	if err := c.sender.Send(ms...); err != nil {
		return reject(err)
	}
	for _, m := range ms {
		c.reserve.Commit(m)
	}
	return nil
}

// CreateNode creates a node of provided kind. The kind is validated
// synchronously. The returned handle can be used right away: mutations
// that refer to it are applied after the node is created.
func (c *Context) CreateNode(kind node.Kind, options ...NodeOption) (node.Handle, error) {
	var opts nodeOptions
	for _, option := range options {
		option(&opts)
	}

	ctx := mutable.Mutable()
	desc, proc, err := kind.New(c.nodeConfig(ctx))
	if err != nil {
		return 0, &ConfigError{Field: "kind", Err: err}
	}
	closer, _ := proc.(io.Closer)
	if err := desc.Validate(); err != nil {
		closeProcessor(closer)
		return 0, &ConfigError{Field: desc.Kind, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.accepting(); err != nil {
		closeProcessor(closer)
		return 0, err
	}
	h := c.next
	n := runtime.NewNode(h, desc, proc, float64(c.sampleRate), c.quantumSize)
	n.Pinned = opts.pinned
	if c.metrics {
		n.Measure = metric.Meter(desc.Kind, c.sampleRate)()
	}
	if err := c.send(runtime.Message{
		Type:   runtime.CreateNode,
		Handle: h,
		Node:   n,
		Spare:  runtime.Spare{Nodes: c.reserve.Nodes(len(c.nodes))},
	}); err != nil {
		if c.metrics {
			metric.Release(desc.Kind)
		}
		closeProcessor(closer)
		return 0, err
	}
	c.next++
	m := c.newMirror(desc, ctx, closer)
	m.pinned = opts.pinned
	c.nodes[h] = m
	c.logger.WithFields(logrus.Fields{"node": h, "kind": desc.Kind}).Debug("node created")
	return h, nil
}

func closeProcessor(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// Connect connects output of src node to input of dst node. Connecting an
// existing edge is a no-op.
func (c *Context) Connect(src node.Handle, out int, dst node.Handle, in int) error {
	return c.connect(src, out, runtime.AllChannels, dst, in, false)
}

// ConnectChannel connects a single channel of src output to input of dst
// node. The channel is routed as a mono signal.
func (c *Context) ConnectChannel(src node.Handle, out, channel int, dst node.Handle, in int) error {
	if channel < 0 {
		return reject(fmt.Errorf("%w: %d", ErrChannelRange, channel))
	}
	return c.connect(src, out, channel, dst, in, false)
}

// ConnectParam connects output of src node to a parameter. The output is
// down-mixed to mono and added to the computed parameter value.
func (c *Context) ConnectParam(src node.Handle, out int, p *Param) error {
	return c.connect(src, out, runtime.AllChannels, p.node, p.index, true)
}

// Disconnect removes edge between output of src node and input of dst
// node.
func (c *Context) Disconnect(src node.Handle, out int, dst node.Handle, in int) error {
	return c.disconnect(src, out, runtime.AllChannels, dst, in, false)
}

// DisconnectChannel removes edge created with ConnectChannel.
func (c *Context) DisconnectChannel(src node.Handle, out, channel int, dst node.Handle, in int) error {
	return c.disconnect(src, out, channel, dst, in, false)
}

// DisconnectParam removes edge created with ConnectParam.
func (c *Context) DisconnectParam(src node.Handle, out int, p *Param) error {
	return c.disconnect(src, out, runtime.AllChannels, p.node, p.index, true)
}

func (c *Context) connect(src node.Handle, out, channel int, dst node.Handle, in int, isParam bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.edge(src, out, channel, dst, in, isParam)
	if err != nil {
		return err
	}
	if _, ok := c.edges[e]; ok {
		return nil
	}
	if err := c.send(runtime.Message{
		Type:  runtime.ConnectEdge,
		Edge:  e,
		Spare: runtime.Spare{Edges: c.reserve.Edges(e, c.portEdges(e))},
	}); err != nil {
		return err
	}
	c.edges[e] = struct{}{}
	return nil
}

func (c *Context) disconnect(src node.Handle, out, channel int, dst node.Handle, in int, isParam bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.edge(src, out, channel, dst, in, isParam)
	if err != nil {
		return err
	}
	if _, ok := c.edges[e]; !ok {
		return reject(ErrNotConnected)
	}
	if err := c.send(runtime.Message{Type: runtime.DisconnectEdge, Edge: e}); err != nil {
		return err
	}
	delete(c.edges, e)
	return nil
}

// portEdges returns number of edges into the port of e. Must be called with
// mu held.
func (c *Context) portEdges(e runtime.Edge) int {
	n := 0
	for existing := range c.edges {
		if existing.To == e.To && existing.Input == e.Input && existing.Param == e.Param {
			n++
		}
	}
	return n
}

// edge validates edge. Must be called with mu held.
func (c *Context) edge(src node.Handle, out, channel int, dst node.Handle, in int, isParam bool) (runtime.Edge, error) {
	if err := c.accepting(); err != nil {
		return runtime.Edge{}, err
	}
	if src == Destination {
		return runtime.Edge{}, reject(fmt.Errorf("%w: destination has no outgoing edges", ErrDestination))
	}
	from, err := c.lookup(src)
	if err != nil {
		return runtime.Edge{}, err
	}
	to, err := c.lookup(dst)
	if err != nil {
		return runtime.Edge{}, err
	}
	if out < 0 || out >= len(from.desc.Outputs) {
		return runtime.Edge{}, reject(fmt.Errorf("%w: output %d of %s", ErrPortRange, out, from.kind))
	}
	ports := len(to.desc.Inputs)
	if isParam {
		ports = len(to.desc.Params)
	}
	if in < 0 || in >= ports {
		return runtime.Edge{}, reject(fmt.Errorf("%w: input %d of %s", ErrPortRange, in, to.kind))
	}
	if channel != runtime.AllChannels {
		limit := from.desc.Outputs[out].Channels
		if limit == 0 {
			limit = signal.MaxChannels
		}
		if channel >= limit {
			return runtime.Edge{}, reject(fmt.Errorf("%w: %d", ErrChannelRange, channel))
		}
	}
	return runtime.Edge{
		From:    src,
		Output:  out,
		Channel: channel,
		To:      dst,
		Input:   in,
		Param:   isParam,
	}, nil
}

// Configure applies mutations returned by setters of the node kind. All
// mutations must belong to the node and are applied at the same quantum
// boundary.
func (c *Context) Configure(h node.Handle, mutations ...mutable.Mutation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.accepting(); err != nil {
		return err
	}
	m, err := c.lookup(h)
	if err != nil {
		return err
	}
	messages := make([]runtime.Message, 0, len(mutations))
	for _, mut := range mutations {
		if !mut.IsMutable() || mut.Context != m.ctx {
			return &ConfigError{Node: h, Field: "mutation", Err: errForeignMutation}
		}
		messages = append(messages, runtime.Message{Type: runtime.SetNodeConfig, Handle: h, Mutation: mut})
	}
	return c.send(messages...)
}

// ChannelConfig returns configuration of node input.
func (c *Context) ChannelConfig(h node.Handle, in int) (node.Input, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := c.lookup(h)
	if err != nil {
		return node.Input{}, err
	}
	if in < 0 || in >= len(m.inputs) {
		return node.Input{}, reject(fmt.Errorf("%w: input %d of %s", ErrPortRange, in, m.kind))
	}
	return m.inputs[in], nil
}

// SetChannelConfig changes channel configuration of node input. Only the
// interpretation of the destination input can be changed.
func (c *Context) SetChannelConfig(h node.Handle, in int, cfg node.Input) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.accepting(); err != nil {
		return err
	}
	m, err := c.lookup(h)
	if err != nil {
		return err
	}
	if in < 0 || in >= len(m.inputs) {
		return reject(fmt.Errorf("%w: input %d of %s", ErrPortRange, in, m.kind))
	}
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Node: h, Field: "input", Err: err}
	}
	// rendered block must keep the layout sinks were allocated with
	if h == Destination && (cfg.Channels != c.channels || cfg.Mode != node.Explicit) {
		return reject(fmt.Errorf("%w: destination input is %d explicit channels", ErrDestination, c.channels))
	}
	if err := c.send(runtime.Message{Type: runtime.SetChannelConfig, Handle: h, Index: in, Input: cfg}); err != nil {
		return err
	}
	m.inputs[in] = cfg
	return nil
}

// Release makes node eligible for teardown: a pinned node is unpinned and
// a never connected node is destroyed once it is silent.
func (c *Context) Release(h node.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.accepting(); err != nil {
		return err
	}
	if h == Destination {
		return reject(fmt.Errorf("%w: destination can not be released", ErrDestination))
	}
	m, err := c.lookup(h)
	if err != nil {
		return err
	}
	if err := c.send(runtime.Message{Type: runtime.ReleaseNode, Handle: h}); err != nil {
		return err
	}
	m.pinned = false
	return nil
}
