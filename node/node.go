// Package node defines the processing contract of graph nodes and the node
// kinds shipped with the graph.
//
// A Kind is a control-side description of a node. The graph calls New once,
// when the node is created, and takes the returned Processor over to the
// render side. From then on the processor is touched only by the render
// goroutine: inside Process and inside mutations returned by the kind's
// setters.
//
// Processors must not allocate, block or read the wall clock in Process.
// For identical inputs and parameter values the output must be bit-identical.
package node

import (
	"fmt"

	"pipelined.dev/graph/mutable"
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/signal"
)

// Handle identifies a node for the lifetime of a graph.
type Handle uint64

// DestinationHandle is the handle of the graph destination.
const DestinationHandle Handle = 0

// Quantum describes the render quantum being processed.
type Quantum struct {
	// Frame is the index of the first frame of the quantum.
	Frame      uint64
	Size       int
	SampleRate float64
}

// Time returns time of the first frame of the quantum in seconds.
func (q Quantum) Time() float64 {
	return float64(q.Frame) / q.SampleRate
}

// Params holds values of node parameters for one quantum, in the order of
// Descriptor.Params. Every slice has one value per frame.
type Params [][]float32

// Processor is the render-side part of a node.
//
// Process consumes input blocks and writes output blocks. Inputs are read
// only. Output blocks are not zeroed: every active sample must be written.
// The returned tail flag reports that the node keeps producing sound even if
// its inputs are silent or disconnected.
type Processor interface {
	Process(in, out []*signal.Block, params Params, q Quantum) (tail bool)
}

// Delayer is implemented by processors that can break feedback cycles. When
// a delayer is part of a cycle, Emit is called at the beginning of the
// quantum and must produce output only from input absorbed in earlier
// quanta. Absorb is called after all other nodes with this quantum's input.
// Params passed to both calls are the same.
type Delayer interface {
	Processor
	Emit(out []*signal.Block, params Params, q Quantum)
	Absorb(in []*signal.Block, params Params, q Quantum) (tail bool)
}

// Config is passed to a kind when a node is created.
type Config struct {
	SampleRate  float64
	QuantumSize int
	// Context routes mutations returned by the kind to the created node.
	Context mutable.Context
}

// Kind creates nodes.
type Kind interface {
	New(Config) (Descriptor, Processor, error)
}

// Descriptor describes ports and parameters of a node.
type Descriptor struct {
	Kind    string
	Inputs  []Input
	Outputs []Output
	Params  []param.Descriptor
}

// Param returns index of parameter with provided name.
func (d Descriptor) Param(name string) (int, bool) {
	for i := range d.Params {
		if d.Params[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// Validate checks port configuration.
func (d Descriptor) Validate() error {
	for i, in := range d.Inputs {
		if err := in.Validate(); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
	}
	for i, out := range d.Outputs {
		if out.Channels < 0 || out.Channels > signal.MaxChannels {
			return fmt.Errorf("output %d: %w: %d", i, ErrChannels, out.Channels)
		}
		if out.Channels == 0 && len(d.Inputs) == 0 {
			return fmt.Errorf("output %d: follows input of a node without inputs", i)
		}
	}
	return nil
}

// ChannelCountMode defines how the channel count of an input is computed.
type ChannelCountMode int

const (
	// Max uses the largest channel count of connected outputs.
	Max ChannelCountMode = iota
	// ClampedMax is Max limited by the configured channel count.
	ClampedMax
	// Explicit always uses the configured channel count.
	Explicit
)

func (m ChannelCountMode) String() string {
	switch m {
	case Max:
		return "max"
	case ClampedMax:
		return "clamped-max"
	case Explicit:
		return "explicit"
	default:
		return "unknown"
	}
}

// Input describes channel configuration of an input port.
type Input struct {
	Channels       int
	Mode           ChannelCountMode
	Interpretation signal.Interpretation
}

// Validate checks channel configuration.
func (in Input) Validate() error {
	if in.Channels < 1 || in.Channels > signal.MaxChannels {
		return fmt.Errorf("%w: %d", ErrChannels, in.Channels)
	}
	if in.Mode < Max || in.Mode > Explicit {
		return fmt.Errorf("unknown channel count mode %d", in.Mode)
	}
	if in.Interpretation < signal.Speakers || in.Interpretation > signal.Discrete {
		return fmt.Errorf("unknown channel interpretation %d", in.Interpretation)
	}
	return nil
}

// Output describes an output port. Zero channels means the output follows
// the computed channel count of the first input.
type Output struct {
	Channels int
}

// Kinds lists names of node kinds provided by this package.
func Kinds() []string {
	return []string{
		kindAnalyser,
		kindBiquad,
		kindBuffer,
		kindConstant,
		kindDelay,
		kindDestination,
		kindGain,
		kindMedia,
		kindOscillator,
		kindPanner,
	}
}

const (
	kindAnalyser    = "analyser"
	kindBiquad      = "biquad"
	kindBuffer      = "buffer-source"
	kindConstant    = "constant-source"
	kindDelay       = "delay"
	kindDestination = "destination"
	kindGain        = "gain"
	kindMedia       = "media-source"
	kindOscillator  = "oscillator"
	kindPanner      = "stereo-panner"
)

// mutate returns an empty mutation if the node is not created yet. Such
// mutations are rejected by the graph.
func mutate(c mutable.Context, fn mutable.MutatorFunc) mutable.Mutation {
	if !c.IsMutable() {
		return mutable.Mutation{}
	}
	return c.Mutate(fn)
}
