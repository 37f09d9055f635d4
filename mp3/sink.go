package mp3

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/viert/lame"

	"pipelined.dev/graph"
	"pipelined.dev/graph/signal"
)

// ErrChannels is returned when sink is allocated for more than two
// channels.
var ErrChannels = errors.New("mp3: only mono and stereo are supported")

// Sink returns allocator of the sink that encodes rendered quanta into w
// with provided bit rate in kbps and lame quality from 0 (best) to 9. Flush
// flushes the encoder, w is not closed.
func Sink(w io.Writer, bitRate, quality int) graph.SinkAllocatorFunc {
	return func(quantumSize int, props graph.SignalProperties) (graph.Sink, error) {
		if props.Channels < 1 || props.Channels > channels {
			return graph.Sink{}, fmt.Errorf("%w: %d channels", ErrChannels, props.Channels)
		}
		wr := lame.NewWriter(w)
		wr.Encoder.SetBitrate(bitRate)
		wr.Encoder.SetQuality(quality)
		wr.Encoder.SetNumChannels(props.Channels)
		wr.Encoder.SetInSamplerate(props.SampleRate)
		if props.Channels == channels {
			wr.Encoder.SetMode(lame.JOINT_STEREO)
		}
		wr.Encoder.SetVBR(lame.VBR_RH)
		wr.Encoder.InitParams()

		ints := make([]int, 0, quantumSize*props.Channels)
		buf := make([]byte, quantumSize*props.Channels*bytesPerSample)
		return graph.Sink{
			SinkFunc: func(b *signal.Block) error {
				ints = signal.AppendInterInt(ints[:0], b, signal.BitDepth16)
				for i, v := range ints {
					binary.LittleEndian.PutUint16(buf[i*bytesPerSample:], uint16(int16(v)))
				}
				_, err := wr.Write(buf[:len(ints)*bytesPerSample])
				return err
			},
			FlushFunc: func(context.Context) error {
				return wr.Close()
			},
		}, nil
	}
}
