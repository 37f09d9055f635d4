package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"strings"

	"pipelined.dev/graph"
	"pipelined.dev/graph/media"
	"pipelined.dev/graph/node"
	"pipelined.dev/graph/resample"
)

// fade is the length of gain ramp at the end of rendering, in seconds.
const fade = 0.05

// voice is a demo graph: source -> lowpass -> gain -> destination. Source
// is an oscillator or a decoded input file.
type voice struct {
	in       string
	freq     float64
	wave     string
	gain     float64
	cutoff   float64
	duration float64
}

func (v *voice) register(fs *flag.FlagSet) {
	fs.StringVar(&v.in, "in", "", "input audio file, oscillator is used if empty")
	fs.Float64Var(&v.freq, "freq", 440, "oscillator frequency in Hz")
	fs.StringVar(&v.wave, "wave", node.Sine.String(), "oscillator waveform: sine, square, sawtooth or triangle")
	fs.Float64Var(&v.gain, "gain", 0.5, "output gain")
	fs.Float64Var(&v.cutoff, "cutoff", 8000, "lowpass cutoff frequency in Hz")
	fs.Float64Var(&v.duration, "duration", 2, "duration in seconds")
}

func (v *voice) validate() error {
	var messages []string
	if v.duration <= 0 {
		messages = append(messages, fmt.Sprintf("Invalid -duration %v", v.duration))
	}
	if v.in == "" {
		if _, err := parseWave(v.wave); err != nil {
			messages = append(messages, err.Error())
		}
	}
	if len(messages) > 0 {
		return errors.New(strings.Join(messages, "\n"))
	}
	return nil
}

// quanta returns number of quanta that cover the duration.
func (v *voice) quanta(c *graph.Context) int {
	return int(math.Ceil(v.duration * float64(c.SampleRate()) / float64(c.QuantumSize())))
}

// build creates voice nodes. If stream is set, input file is decoded while
// rendering, otherwise it's loaded into memory.
func (v *voice) build(c *graph.Context, stream bool) error {
	src, err := v.source(c, stream)
	if err != nil {
		return err
	}
	filter, err := c.CreateNode(&node.BiquadFilter{Type: node.Lowpass, Frequency: float32(v.cutoff)})
	if err != nil {
		return err
	}
	gain, err := c.CreateNode(node.Gain{Gain: float32(v.gain)})
	if err != nil {
		return err
	}
	for _, edge := range [][2]node.Handle{{src, filter}, {filter, gain}, {gain, graph.Destination}} {
		if err := c.Connect(edge[0], 0, edge[1], 0); err != nil {
			return err
		}
	}
	p, err := c.Param(gain, "gain")
	if err != nil {
		return err
	}
	if err := p.SetValueAtTime(float32(v.gain), math.Max(0, v.duration-fade)); err != nil {
		return err
	}
	return p.LinearRampToValueAtTime(0, v.duration)
}

func (v *voice) source(c *graph.Context, stream bool) (node.Handle, error) {
	if v.in == "" {
		wave, err := parseWave(v.wave)
		if err != nil {
			return 0, err
		}
		osc := &node.Oscillator{Type: wave, Frequency: float32(v.freq)}
		h, err := c.CreateNode(osc)
		if err != nil {
			return 0, err
		}
		return h, c.Configure(h, osc.Start(0), osc.Stop(v.duration))
	}

	s, err := media.Open(v.in)
	if err != nil {
		return 0, err
	}
	resampler := resample.Func(resample.Balanced)
	if stream {
		k := &node.MediaSource{Source: s, Resampler: resampler}
		h, err := c.CreateNode(k)
		if err != nil {
			s.Close()
			return 0, err
		}
		return h, c.Configure(h, k.Start(0))
	}
	defer s.Close()
	buf, err := media.Load(s, c.SampleRate(), resampler)
	if err != nil {
		return 0, err
	}
	k := &node.BufferSource{Buffer: buf}
	h, err := c.CreateNode(k)
	if err != nil {
		return 0, err
	}
	return h, c.Configure(h, k.Start(0))
}

func parseWave(s string) (node.Waveform, error) {
	for _, w := range []node.Waveform{node.Sine, node.Square, node.Sawtooth, node.Triangle} {
		if w.String() == s {
			return w, nil
		}
	}
	return 0, fmt.Errorf("Unknown -wave %q", s)
}
