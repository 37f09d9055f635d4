// Package vorbis decodes Ogg Vorbis files. Importing the package registers
// the decoder for .ogg and .oga files.
package vorbis

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"pipelined.dev/graph/media"
)

func init() {
	media.Register(Decoder{}, "ogg", "oga")
}

// Decoder decodes vorbis streams.
type Decoder struct{}

// Decode implements media.Decoder.
func (Decoder) Decode(rs io.ReadSeeker) (media.Source, error) {
	r, err := oggvorbis.NewReader(rs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrFormat, err)
	}
	if r.Channels() < 1 || r.Channels() > media.MaxChannels {
		return nil, fmt.Errorf("%w: %d channels", media.ErrFormat, r.Channels())
	}
	return &source{reader: r, channels: r.Channels()}, nil
}

type source struct {
	reader   *oggvorbis.Reader
	channels int
	buf      []float32
}

func (s *source) SampleRate() int { return s.reader.SampleRate() }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }

func (s *source) Read(dst [][]float32) (int, error) {
	size := len(dst[0]) * s.channels
	if cap(s.buf) < size {
		s.buf = make([]float32, size)
	}
	n, err := s.reader.Read(s.buf[:size])
	frames := n / s.channels
	for c := range dst {
		for i := 0; i < frames; i++ {
			dst[c][i] = s.buf[i*s.channels+c]
		}
	}
	return frames, err
}
