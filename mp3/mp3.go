// Package mp3 decodes mp3 files with go-mp3 and encodes rendered audio with
// lame. Importing the package registers the decoder for .mp3 files.
package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"pipelined.dev/graph/media"
	"pipelined.dev/graph/signal"
)

// go-mp3 always produces 16 bit stereo.
const (
	channels       = 2
	bytesPerSample = 2
	bytesPerFrame  = channels * bytesPerSample
)

func init() {
	media.Register(Decoder{}, "mp3")
}

// Decoder decodes mp3 streams.
type Decoder struct{}

// Decode implements media.Decoder.
func (Decoder) Decode(rs io.ReadSeeker) (media.Source, error) {
	d, err := gomp3.NewDecoder(rs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrFormat, err)
	}
	return &source{decoder: d}, nil
}

type source struct {
	decoder *gomp3.Decoder
	buf     []byte
	ints    []int
}

func (s *source) SampleRate() int { return s.decoder.SampleRate() }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }

func (s *source) Read(dst [][]float32) (int, error) {
	size := len(dst[0]) * bytesPerFrame
	if cap(s.buf) < size {
		s.buf = make([]byte, size)
		s.ints = make([]int, len(dst[0])*channels)
	}
	n, err := io.ReadFull(s.decoder, s.buf[:size])
	switch err {
	case nil, io.ErrUnexpectedEOF:
	case io.EOF:
		return 0, io.EOF
	default:
		return 0, err
	}
	samples := n / bytesPerSample
	ints := s.ints[:samples]
	for i := range ints {
		ints[i] = int(int16(binary.LittleEndian.Uint16(s.buf[i*bytesPerSample:])))
	}
	if samples < channels {
		return 0, io.EOF
	}
	return signal.InterInt{Data: ints, NumChannels: channels, BitDepth: signal.BitDepth16}.Planar(dst), nil
}
