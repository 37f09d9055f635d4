package main

import (
	"errors"
	"flag"
	"io"

	"github.com/davecgh/go-spew/spew"

	"pipelined.dev/graph"
	"pipelined.dev/graph/log"
	"pipelined.dev/graph/node"
)

type inspectCommand struct {
	feedback float64
	delay    float64
}

func (cmd *inspectCommand) Name() string {
	return "inspect"
}

func (cmd *inspectCommand) Help() string {
	return "Render one quantum of a feedback delay graph and dump its topology"
}

func (cmd *inspectCommand) Register(fs *flag.FlagSet) {
	fs.Float64Var(&cmd.delay, "delay", 0.25, "delay time in seconds")
	fs.Float64Var(&cmd.feedback, "feedback", 0.5, "feedback gain")
}

// Run builds oscillator -> delay -> destination with delay -> gain -> delay
// feedback loop and a silent gain pair cycle.
func (cmd *inspectCommand) Run(out io.Writer) (err error) {
	c, err := graph.New(graph.WithLogger(log.GetLogger()))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, c.Close())
	}()

	osc := &node.Oscillator{}
	handles := make([]node.Handle, 0, 5)
	for _, kind := range []node.Kind{
		osc,
		node.Delay{DelayTime: cmd.delay},
		node.Gain{Gain: float32(cmd.feedback)},
		node.Gain{},
		node.Gain{},
	} {
		h, err := c.CreateNode(kind)
		if err != nil {
			return err
		}
		handles = append(handles, h)
	}
	src, delay, feedback, a, b := handles[0], handles[1], handles[2], handles[3], handles[4]
	if err := c.Configure(src, osc.Start(0)); err != nil {
		return err
	}
	for _, edge := range [][2]node.Handle{
		{src, delay},
		{delay, feedback},
		{feedback, delay},
		{delay, graph.Destination},
		{src, a},
		{a, b},
		{b, a},
		{a, graph.Destination},
	} {
		if err := c.Connect(edge[0], 0, edge[1], 0); err != nil {
			return err
		}
	}
	if _, err := c.RenderQuantum(); err != nil {
		return err
	}
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true}
	cfg.Fdump(out, c.Snapshot())
	return nil
}
