package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"pipelined.dev/graph/media"
	"pipelined.dev/graph/node"

	// register decoders
	_ "pipelined.dev/graph/aiff"
	_ "pipelined.dev/graph/mp3"
	_ "pipelined.dev/graph/vorbis"
	_ "pipelined.dev/graph/wav"
)

type kindsCommand struct{}

func (cmd *kindsCommand) Name() string {
	return "kinds"
}

func (cmd *kindsCommand) Help() string {
	return "Show node kinds and supported input formats"
}

func (cmd *kindsCommand) Register(*flag.FlagSet) {}

func (cmd *kindsCommand) Run(out io.Writer) error {
	fmt.Fprintln(out, "Node kinds:")
	for _, kind := range node.Kinds() {
		fmt.Fprintf(out, "\t%s\n", kind)
	}
	fmt.Fprintf(out, "Input formats:\n\t%s\n", strings.Join(media.Extensions(), " "))
	return nil
}
