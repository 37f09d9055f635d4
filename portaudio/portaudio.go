// Package portaudio plays rendered audio with the default output device.
package portaudio

import (
	"context"
	"errors"

	"github.com/gordonklaus/portaudio"

	"pipelined.dev/graph"
	"pipelined.dev/graph/signal"
)

// Sink returns allocator of the sink that writes every rendered quantum to
// the default output stream. The device is opened on start and released on
// flush.
func Sink() graph.SinkAllocatorFunc {
	return func(quantumSize int, props graph.SignalProperties) (graph.Sink, error) {
		var (
			buf    = make([]float32, quantumSize*props.Channels)
			stream *portaudio.Stream
		)
		return graph.Sink{
			StartFunc: func(context.Context) error {
				if err := portaudio.Initialize(); err != nil {
					return err
				}
				var err error
				stream, err = portaudio.OpenDefaultStream(0, props.Channels, float64(props.SampleRate), quantumSize, &buf)
				if err != nil {
					return errors.Join(err, portaudio.Terminate())
				}
				if err := stream.Start(); err != nil {
					return errors.Join(err, stream.Close(), portaudio.Terminate())
				}
				return nil
			},
			SinkFunc: func(b *signal.Block) error {
				signal.Interleave(buf, b)
				return stream.Write()
			},
			FlushFunc: func(context.Context) error {
				if stream == nil {
					return nil
				}
				err := errors.Join(stream.Stop(), stream.Close(), portaudio.Terminate())
				stream = nil
				return err
			},
		}, nil
	}
}
