/*
Package graph renders audio graphs in fixed-size quanta.

Concept

A graph consists of nodes connected by edges. Nodes produce, transform or
consume audio. Every graph has exactly one destination node, created with
the graph, and everything that should be heard must reach it:

    Source nodes - oscillators, constant sources, buffers and media streams;
    Processing nodes - gain, delay, filters, panners, analysers;
    Destination - the final node, its output is the rendered quantum.

The graph is split into two sides. The control side is the Context and
can be used from many goroutines. The render side owns nodes, edges and
sample blocks and is driven by a single goroutine, either by RenderQuantum
and Render calls or by Run. The sides only exchange messages through
non-blocking queues, so the render side never waits for the control side.

Nodes

Nodes are created from kinds defined in the node package:

    osc, err := c.CreateNode(&node.Oscillator{Frequency: 440})
    gain, err := c.CreateNode(node.Gain{Gain: 0.5})

Kinds validate their options when a node is created and return mutations
that are applied on the render side at the next quantum boundary:

    err := c.Configure(osc, oscillator.Start(0))

Connections

Outputs are connected to inputs and to parameters of other nodes. Edges may
form cycles. A cycle that contains a delay node is rendered with at least
one quantum of latency, any other cycle is silenced while it exists:

    err := c.Connect(osc, 0, gain, 0)
    err = c.Connect(gain, 0, graph.Destination, 0)

Parameters

Parameters are automated with sample accuracy:

    p, err := c.Param(gain, "gain")
    err = p.LinearRampToValueAtTime(1, 2.5)

Lifetime

Nodes that lost their way to the destination are destroyed when their tail
ends. Pinned nodes live until released. Notifications about destroyed
nodes, errors and faults are received with Poll or a notification handler.

Rendering

Offline rendering is done with RenderQuantum or Render. Run starts the
render loop that pushes quanta into a sink until the context is done or
the graph is closed:

    err := c.Run(ctx, portaudio.Sink())
*/
package graph
