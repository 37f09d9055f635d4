//go:build portaudio

package portaudio_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"pipelined.dev/graph"
	"pipelined.dev/graph/portaudio"
	"pipelined.dev/graph/signal"
)

func TestSink(t *testing.T) {
	const (
		sampleRate = 44100
		quantum    = 512
	)
	sink, err := portaudio.Sink()(quantum, graph.SignalProperties{SampleRate: sampleRate, Channels: 2})
	require.NoError(t, err)
	require.NoError(t, sink.Start(context.Background()))

	b := signal.NewBlock(2, quantum)
	b.SetNumChannels(2)
	for q := 0; q < sampleRate/quantum; q++ {
		for c := 0; c < 2; c++ {
			for i := range b.Channel(c) {
				b.Channel(c)[i] = float32(0.1 * math.Sin(2*math.Pi*440*float64(q*quantum+i)/sampleRate))
			}
		}
		require.NoError(t, sink.SinkFunc(b))
	}
	require.NoError(t, sink.Flush(context.Background()))
}
