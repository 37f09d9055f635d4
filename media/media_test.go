package media_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/graph/media"
	"pipelined.dev/graph/test"
)

func TestRegistry(t *testing.T) {
	var src *test.Source
	media.Register(media.DecoderFunc(func(r io.ReadSeeker) (media.Source, error) {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		src = &test.Source{Rate: 8000, Data: [][]float32{make([]float32, len(b))}}
		return src, nil
	}), ".Fake", "fk")

	assert.Contains(t, media.Extensions(), "fake")
	assert.Contains(t, media.Extensions(), "fk")
	_, err := media.DecoderFor("dir/sound.FAKE")
	assert.NoError(t, err)
	_, err = media.DecoderFor("sound.none")
	assert.ErrorIs(t, err, media.ErrUnsupported)

	path := filepath.Join(t.TempDir(), "sound.fk")
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0o644))
	s, err := media.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 8000, s.SampleRate())
	assert.Equal(t, 1, s.Channels())
	assert.NoError(t, s.Close())
	assert.True(t, src.Closed)

	_, err = media.Open(filepath.Join(t.TempDir(), "missing.fk"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewBuffer(t *testing.T) {
	tests := []struct {
		rate int
		data [][]float32
		err  bool
	}{
		{rate: 44100, data: test.Ramp(2, 10)},
		{rate: 0, data: test.Ramp(1, 10), err: true},
		{rate: 44100, data: nil, err: true},
		{rate: 44100, data: test.Ramp(33, 1), err: true},
		{rate: 44100, data: [][]float32{{1, 2}, {1}}, err: true},
	}
	for _, tt := range tests {
		b, err := media.NewBuffer(tt.rate, tt.data)
		if tt.err {
			assert.ErrorIs(t, err, media.ErrFormat)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, len(tt.data), b.Channels())
		assert.Equal(t, 10, b.Frames())
	}

	b, err := media.NewBuffer(1000, test.Ramp(1, 500))
	require.NoError(t, err)
	assert.Equal(t, "500ms", b.Duration().String())
}

func TestLoad(t *testing.T) {
	data := test.Ramp(2, 10000)
	src := &test.Source{Rate: 44100, Data: data, Limit: 3000}
	b, err := media.Load(src, 44100, nil)
	require.NoError(t, err)
	assert.Equal(t, 44100, b.SampleRate)
	assert.Equal(t, data, b.Data)
	assert.False(t, src.Closed, "load does not close the source")

	_, err = media.Load(&test.Source{Rate: 22050, Data: data}, 44100, nil)
	assert.ErrorIs(t, err, media.ErrNoResampler)

	_, err = media.Load(&test.Source{Rate: 44100, Data: test.Ramp(40, 1)}, 44100, nil)
	assert.ErrorIs(t, err, media.ErrFormat)
}

func TestStream(t *testing.T) {
	src := &test.Source{Rate: 48000, Data: test.Ramp(1, 250), Limit: 70}
	s, err := media.NewStream(src, 48000, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Channels())

	dst := [][]float32{make([]float32, 100)}
	var got []float32
	for _, expected := range []int{100, 100} {
		n, err := s.Next(dst)
		require.NoError(t, err)
		require.Equal(t, expected, n)
		got = append(got, dst[0][:n]...)
	}
	n, err := s.Next(dst)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 50, n)
	got = append(got, dst[0][:n]...)
	assert.Equal(t, src.Data[0], got)

	n, err = s.Next(dst)
	assert.Equal(t, io.EOF, err)
	assert.Zero(t, n)
}

type stuckSource struct {
	test.Source
}

func (*stuckSource) Read([][]float32) (int, error) {
	return 0, nil
}

func TestStreamNoProgress(t *testing.T) {
	s, err := media.NewStream(&stuckSource{test.Source{Rate: 1, Data: test.Ramp(1, 1)}}, 1, nil)
	require.NoError(t, err)
	_, err = s.Next([][]float32{make([]float32, 10)})
	assert.ErrorIs(t, err, io.ErrNoProgress)
}
