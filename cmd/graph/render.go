package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pipelined.dev/graph"
	"pipelined.dev/graph/log"
	"pipelined.dev/graph/mp3"
	"pipelined.dev/graph/signal"
	"pipelined.dev/graph/wav"
)

const (
	mp3BitRate = 192
	mp3Quality = 2
)

type renderCommand struct {
	voice
	out        string
	sampleRate int
}

func (cmd *renderCommand) Name() string {
	return "render"
}

func (cmd *renderCommand) Help() string {
	return "Render demo graph into wav or mp3 file"
}

func (cmd *renderCommand) Register(fs *flag.FlagSet) {
	cmd.voice.register(fs)
	fs.StringVar(&cmd.out, "out", "", "output .wav or .mp3 file (required)")
	fs.IntVar(&cmd.sampleRate, "rate", graph.DefaultSampleRate, "sample rate")
}

func (cmd *renderCommand) Validate() error {
	var messages []string
	if err := cmd.voice.validate(); err != nil {
		messages = append(messages, err.Error())
	}
	switch ext := strings.ToLower(filepath.Ext(cmd.out)); {
	case cmd.out == "":
		messages = append(messages, "Missing -out required flag")
	case ext != ".wav" && ext != ".mp3":
		messages = append(messages, fmt.Sprintf("Unsupported -out format %q", ext))
	}
	if len(messages) > 0 {
		return errors.New(strings.Join(messages, "\n"))
	}
	return nil
}

func (cmd *renderCommand) Run(out io.Writer) (err error) {
	if err := cmd.Validate(); err != nil {
		return err
	}
	c, err := graph.New(graph.WithSampleRate(cmd.sampleRate), graph.WithLogger(log.GetLogger()))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, c.Close())
	}()
	if err := cmd.voice.build(c, false); err != nil {
		return err
	}

	f, err := os.Create(cmd.out)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	var sink graph.SinkAllocatorFunc
	if strings.EqualFold(filepath.Ext(cmd.out), ".mp3") {
		sink = mp3.Sink(f, mp3BitRate, mp3Quality)
	} else {
		sink = wav.Sink(f, signal.BitDepth16)
	}
	quanta := cmd.voice.quanta(c)
	if err := c.Render(sink, quanta); err != nil {
		return err
	}
	fmt.Fprintf(out, "Rendered %v seconds into %s\n", c.CurrentTime(), cmd.out)
	return nil
}
