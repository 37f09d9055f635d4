package media

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// MaxChannels is the maximum number of channels in media buffers.
const MaxChannels = 32

// ErrNoResampler is returned when source sample rate differs from the
// target and no resampler is provided.
var ErrNoResampler = errors.New("sample rate conversion requires resampler")

// readSize is number of frames read from sources at once.
const readSize = 4096

// Buffer is planar audio kept in memory.
type Buffer struct {
	SampleRate int
	Data       [][]float32
}

// NewBuffer checks data layout and returns a buffer.
func NewBuffer(sampleRate int, data [][]float32) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrFormat, sampleRate)
	}
	if len(data) == 0 || len(data) > MaxChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrFormat, len(data))
	}
	for i := range data {
		if len(data[i]) != len(data[0]) {
			return nil, fmt.Errorf("%w: channel %d length %d != %d", ErrFormat, i, len(data[i]), len(data[0]))
		}
	}
	return &Buffer{SampleRate: sampleRate, Data: data}, nil
}

// Channels returns number of channels.
func (b *Buffer) Channels() int {
	return len(b.Data)
}

// Frames returns number of frames.
func (b *Buffer) Frames() int {
	if len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Duration returns buffer duration.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// Load reads the whole source into a buffer at provided sample rate. The
// source is not closed.
func Load(src Source, sampleRate int, resampler ResamplerFunc) (*Buffer, error) {
	s, err := NewStream(src, sampleRate, resampler)
	if err != nil {
		return nil, err
	}
	data := make([][]float32, src.Channels())
	block := make([][]float32, src.Channels())
	for i := range block {
		block[i] = make([]float32, readSize)
	}
	for {
		n, err := s.Next(block)
		for i := range data {
			data[i] = append(data[i], block[i][:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return NewBuffer(sampleRate, data)
}

// Stream reads a source converted to the target sample rate.
type Stream struct {
	src       Source
	resampler Resampler
	in        [][]float32
	// pending holds converted frames not returned yet.
	pending [][]float32
	eof     bool
}

// NewStream returns a stream of src at provided sample rate.
func NewStream(src Source, sampleRate int, resampler ResamplerFunc) (*Stream, error) {
	channels := src.Channels()
	if channels < 1 || channels > MaxChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrFormat, channels)
	}
	s := Stream{
		src:     src,
		in:      make([][]float32, channels),
		pending: make([][]float32, channels),
	}
	for i := range s.in {
		s.in[i] = make([]float32, readSize)
	}
	if src.SampleRate() != sampleRate {
		if resampler == nil {
			return nil, ErrNoResampler
		}
		r, err := resampler(src.SampleRate(), sampleRate, channels)
		if err != nil {
			return nil, err
		}
		s.resampler = r
	}
	return &s, nil
}

// Channels returns number of stream channels.
func (s *Stream) Channels() int {
	return len(s.in)
}

// Next fills dst with converted frames and returns number of frames. dst
// must have one slice per stream channel. When the stream ends, Next returns
// the remaining frames along with io.EOF.
func (s *Stream) Next(dst [][]float32) (int, error) {
	size := len(dst[0])
	n := 0
	for n < size {
		if len(s.pending[0]) > 0 {
			copied := 0
			for c := range dst {
				copied = copy(dst[c][n:], s.pending[c])
				s.pending[c] = s.pending[c][copied:]
			}
			n += copied
			continue
		}
		if s.eof {
			return n, io.EOF
		}
		if err := s.read(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// read fills pending frames from the source.
func (s *Stream) read() error {
	for c := range s.in {
		s.in[c] = s.in[c][:readSize]
	}
	n, err := s.src.Read(s.in)
	switch {
	case err == io.EOF:
		s.eof = true
	case err != nil:
		return err
	case n == 0:
		return io.ErrNoProgress
	}
	for c := range s.pending {
		s.pending[c] = s.in[c][:n]
	}
	if s.resampler != nil && n > 0 {
		copy(s.pending, s.resampler.Resample(s.pending))
	}
	return nil
}
