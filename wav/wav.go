// Package wav decodes and encodes WAVE files. Importing the package
// registers the decoder for .wav and .wave files.
package wav

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pipelined.dev/graph"
	"pipelined.dev/graph/media"
	"pipelined.dev/graph/signal"
)

// ErrBitDepth is returned when unsupported bit depth is used.
var ErrBitDepth = errors.New("wav: only 16, 24 and 32 bit depths are supported")

func init() {
	media.Register(Decoder{}, "wav", "wave")
}

// Decoder decodes PCM wav streams.
type Decoder struct{}

// Decode implements media.Decoder.
func (Decoder) Decode(rs io.ReadSeeker) (media.Source, error) {
	decoder := wav.NewDecoder(rs)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: wav is not valid", media.ErrFormat)
	}
	bitDepth := signal.BitDepth(decoder.BitDepth)
	if err := validate(bitDepth); err != nil {
		return nil, err
	}
	format := decoder.Format()
	return &source{
		decoder: decoder,
		ib: &audio.IntBuffer{
			Format:         format,
			SourceBitDepth: int(bitDepth),
		},
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		bitDepth:   bitDepth,
	}, nil
}

type source struct {
	decoder    *wav.Decoder
	ib         *audio.IntBuffer
	sampleRate int
	channels   int
	bitDepth   signal.BitDepth
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }

// Close is no-op, the reader is owned by the caller.
func (s *source) Close() error { return nil }

func (s *source) Read(dst [][]float32) (int, error) {
	samples := len(dst[0]) * s.channels
	if cap(s.ib.Data) < samples {
		s.ib.Data = make([]int, samples)
	}
	s.ib.Data = s.ib.Data[:samples]
	n, err := s.decoder.PCMBuffer(s.ib)
	if err != nil && err != io.EOF {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	ints := signal.InterInt{
		Data:        s.ib.Data[:n],
		NumChannels: s.channels,
		BitDepth:    s.bitDepth,
	}
	return ints.Planar(dst), nil
}

// Sink returns allocator of the sink that encodes rendered quanta into ws.
// Flush finalizes wav headers, ws is not closed.
func Sink(ws io.WriteSeeker, bitDepth signal.BitDepth) graph.SinkAllocatorFunc {
	return func(quantumSize int, props graph.SignalProperties) (graph.Sink, error) {
		if err := validate(bitDepth); err != nil {
			return graph.Sink{}, err
		}
		encoder := wav.NewEncoder(ws, props.SampleRate, int(bitDepth), props.Channels, 1)
		ib := &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: props.Channels,
				SampleRate:  props.SampleRate,
			},
			Data:           make([]int, 0, quantumSize*props.Channels),
			SourceBitDepth: int(bitDepth),
		}
		return graph.Sink{
			SinkFunc: func(b *signal.Block) error {
				ib.Data = signal.AppendInterInt(ib.Data[:0], b, bitDepth)
				return encoder.Write(ib)
			},
			FlushFunc: func(context.Context) error {
				return encoder.Close()
			},
		}, nil
	}
}

func validate(bitDepth signal.BitDepth) error {
	switch bitDepth {
	case signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrBitDepth, bitDepth)
	}
}
