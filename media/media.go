// Package media defines contracts of audio decoders and resamplers used to
// feed graph sources, and keeps the registry of decoders by file extension.
//
// Decoders live in format packages, which register themselves when
// imported:
//
//	import _ "pipelined.dev/graph/wav"
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnsupported is returned when no decoder is registered for a file.
	ErrUnsupported = errors.New("unsupported media format")
	// ErrFormat is returned by decoders when input is malformed.
	ErrFormat = errors.New("invalid media format")
)

type (
	// Source is a decoded stream of planar float samples.
	Source interface {
		SampleRate() int
		Channels() int
		// Read fills dst with up to len(dst[0]) frames and returns number
		// of read frames. It returns io.EOF when the stream is done.
		Read(dst [][]float32) (int, error)
		Close() error
	}

	// Decoder constructs a source from the input.
	Decoder interface {
		Decode(io.ReadSeeker) (Source, error)
	}

	// DecoderFunc is a function decoder.
	DecoderFunc func(io.ReadSeeker) (Source, error)

	// Resampler converts planar frames between sample rates. It keeps
	// state between calls, so subsequent blocks form a continuous stream.
	Resampler interface {
		// Resample returns converted frames. The result is valid until
		// the next call.
		Resample(src [][]float32) [][]float32
	}

	// ResamplerFunc creates a resampler for provided rates.
	ResamplerFunc func(inRate, outRate, channels int) (Resampler, error)
)

// Decode implements Decoder.
func (fn DecoderFunc) Decode(r io.ReadSeeker) (Source, error) {
	return fn(r)
}

var registry = struct {
	sync.RWMutex
	decoders map[string]Decoder
}{
	decoders: make(map[string]Decoder),
}

// Register binds decoder to file extensions. Extensions are matched case
// insensitive, with or without the leading dot.
func Register(d Decoder, extensions ...string) {
	registry.Lock()
	defer registry.Unlock()
	for _, ext := range extensions {
		registry.decoders[normalize(ext)] = d
	}
}

// Extensions returns sorted list of registered extensions.
func Extensions() []string {
	registry.RLock()
	defer registry.RUnlock()
	exts := make([]string, 0, len(registry.decoders))
	for ext := range registry.decoders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// DecoderFor returns decoder registered for extension of the path.
func DecoderFor(path string) (Decoder, error) {
	registry.RLock()
	defer registry.RUnlock()
	ext := normalize(filepath.Ext(path))
	if d, ok := registry.decoders[ext]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
}

// Open decodes the file at path. Closing the source closes the file.
func Open(path string) (Source, error) {
	d, err := DecoderFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	src, err := d.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return fileSource{Source: src, file: f}, nil
}

type fileSource struct {
	Source
	file *os.File
}

func (s fileSource) Close() error {
	return errors.Join(s.Source.Close(), s.file.Close())
}

func normalize(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
