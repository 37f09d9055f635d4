package mp3_test

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/graph"
	"pipelined.dev/graph/media"
	"pipelined.dev/graph/mp3"
	"pipelined.dev/graph/signal"
)

const (
	sampleRate = 44100
	quantum    = 128
)

func TestRoundTrip(t *testing.T) {
	var encoded bytes.Buffer
	sink, err := mp3.Sink(&encoded, 192, 2)(quantum, graph.SignalProperties{SampleRate: sampleRate, Channels: 2})
	require.NoError(t, err)

	b := signal.NewBlock(2, quantum)
	b.SetNumChannels(2)
	quanta := sampleRate / quantum
	for q := 0; q < quanta; q++ {
		for c := 0; c < 2; c++ {
			for i := range b.Channel(c) {
				b.Channel(c)[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(q*quantum+i)/sampleRate))
			}
		}
		require.NoError(t, sink.SinkFunc(b))
	}
	require.NoError(t, sink.Flush(context.Background()))
	require.NotZero(t, encoded.Len())

	src, err := mp3.Decoder{}.Decode(bytes.NewReader(encoded.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, sampleRate, src.SampleRate())
	assert.Equal(t, 2, src.Channels())
	buf, err := media.Load(src, sampleRate, nil)
	require.NoError(t, err)
	// encoder adds padding frames
	assert.GreaterOrEqual(t, buf.Frames(), quanta*quantum)

	var peak float64
	for _, v := range buf.Data[0] {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	assert.InDelta(t, 0.5, peak, 0.1)
}

func TestInvalid(t *testing.T) {
	_, err := mp3.Decoder{}.Decode(bytes.NewReader([]byte("not an mp3")))
	assert.ErrorIs(t, err, media.ErrFormat)

	_, err = mp3.Sink(&bytes.Buffer{}, 192, 2)(quantum, graph.SignalProperties{SampleRate: sampleRate, Channels: 6})
	assert.ErrorIs(t, err, mp3.ErrChannels)
	assert.Contains(t, media.Extensions(), "mp3")
}
