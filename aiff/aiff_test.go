package aiff_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	goaiff "github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/graph/aiff"
	"pipelined.dev/graph/media"
)

func TestDecode(t *testing.T) {
	const frames = 1000
	path := filepath.Join(t.TempDir(), "ramp.aiff")
	f, err := os.Create(path)
	require.NoError(t, err)
	e := goaiff.NewEncoder(f, 22050, 16, 2)
	ints := make([]int, 0, 2*frames)
	for i := 0; i < frames; i++ {
		ints = append(ints, i*16, -i*16)
	}
	require.NoError(t, e.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 22050},
		Data:           ints,
		SourceBitDepth: 16,
	}))
	require.NoError(t, e.Close())
	require.NoError(t, f.Close())

	src, err := media.Open(path)
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, 22050, src.SampleRate())
	assert.Equal(t, 2, src.Channels())

	buf, err := media.Load(src, 22050, nil)
	require.NoError(t, err)
	require.Equal(t, frames, buf.Frames())
	for i := 0; i < frames; i++ {
		expected := float32(i*16) / 32767
		require.InDelta(t, expected, buf.Data[0][i], 1e-6)
		require.InDelta(t, -expected, buf.Data[1][i], 1e-6)
	}
}

func TestInvalid(t *testing.T) {
	_, err := aiff.Decoder{}.Decode(bytes.NewReader([]byte("FORM, but not really")))
	assert.ErrorIs(t, err, media.ErrFormat)
	assert.Contains(t, media.Extensions(), "aif")
}
