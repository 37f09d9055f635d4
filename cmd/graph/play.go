package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"pipelined.dev/graph"
	"pipelined.dev/graph/log"
	"pipelined.dev/graph/portaudio"
)

type playCommand struct {
	voice
}

func (cmd *playCommand) Name() string {
	return "play"
}

func (cmd *playCommand) Help() string {
	return "Play demo graph with the default output device"
}

func (cmd *playCommand) Register(fs *flag.FlagSet) {
	cmd.voice.register(fs)
}

func (cmd *playCommand) Run(out io.Writer) error {
	if err := cmd.voice.validate(); err != nil {
		return err
	}
	c, err := graph.New(graph.WithLogger(log.GetLogger()))
	if err != nil {
		return err
	}
	if err := cmd.voice.build(c, true); err != nil {
		return errors.Join(err, c.Close())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(cmd.duration*float64(time.Second)))
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return c.Run(ctx, portaudio.Sink())
	})
	g.Go(func() error {
		<-ctx.Done()
		return c.Close()
	})
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Played %v seconds\n", c.CurrentTime())
	return nil
}
