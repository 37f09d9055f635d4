// Package aiff decodes AIFF files. Importing the package registers the
// decoder for .aiff and .aif files.
package aiff

import (
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"

	"pipelined.dev/graph/media"
	"pipelined.dev/graph/signal"
)

func init() {
	media.Register(Decoder{}, "aiff", "aif")
}

// Decoder decodes PCM aiff streams.
type Decoder struct{}

// Decode implements media.Decoder.
func (Decoder) Decode(rs io.ReadSeeker) (media.Source, error) {
	decoder := aiff.NewDecoder(rs)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: aiff is not valid", media.ErrFormat)
	}
	decoder.ReadInfo()
	format := decoder.Format()
	if format == nil || format.NumChannels < 1 {
		return nil, fmt.Errorf("%w: aiff has no sound data", media.ErrFormat)
	}
	bitDepth := signal.BitDepth(decoder.BitDepth)
	switch bitDepth {
	case signal.BitDepth8, signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
	default:
		return nil, fmt.Errorf("%w: %d bit depth", media.ErrFormat, bitDepth)
	}
	return &source{
		decoder:  decoder,
		ib:       &audio.IntBuffer{Format: format, SourceBitDepth: int(bitDepth)},
		format:   *format,
		bitDepth: bitDepth,
	}, nil
}

type source struct {
	decoder  *aiff.Decoder
	ib       *audio.IntBuffer
	format   audio.Format
	bitDepth signal.BitDepth
}

func (s *source) SampleRate() int { return s.format.SampleRate }
func (s *source) Channels() int   { return s.format.NumChannels }
func (s *source) Close() error    { return nil }

func (s *source) Read(dst [][]float32) (int, error) {
	samples := len(dst[0]) * s.format.NumChannels
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
		NumChannels: s.format.NumChannels,
		BitDepth:    s.bitDepth,
	}
	return ints.Planar(dst), nil
}
