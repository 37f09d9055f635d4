package signal

import (
	"math"
	"time"
)

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth24 is 24 bit depth.
	BitDepth24 = BitDepth(24)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// BitDepth contains values required for int-to-float and backward conversion.
type BitDepth int

// InterInt is an interleaved int signal.
type InterInt struct {
	Data        []int
	NumChannels int
	BitDepth
}

// devider is used when int to float conversion is done.
func (bitDepth BitDepth) devider() float32 {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8
	case BitDepth16:
		return math.MaxInt16
	case BitDepth24:
		return 1<<23 - 1
	case BitDepth32:
		return math.MaxInt32
	default:
		return 1
	}
}

// multiplier is used when float to int conversion is done.
func (bitDepth BitDepth) multiplier() float64 {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8 - 1
	case BitDepth16:
		return math.MaxInt16 - 1
	case BitDepth24:
		return 1<<23 - 2
	case BitDepth32:
		return math.MaxInt32 - 1
	default:
		return 1
	}
}

// DurationOf returns time duration of passed samples for this sample rate.
func DurationOf(sampleRate int, samples int64) time.Duration {
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}

// Frames returns number of whole frames in the interleaved data.
func (ints InterInt) Frames() int {
	if ints.NumChannels == 0 {
		return 0
	}
	return len(ints.Data) / ints.NumChannels
}

// Planar converts interleaved ints into planar floats. Channels of dst that
// are missing in the source are left untouched. It returns number of frames
// written, limited by the length of dst channels.
func (ints InterInt) Planar(dst [][]float32) int {
	frames := ints.Frames()
	if frames == 0 || len(dst) == 0 {
		return 0
	}
	if frames > len(dst[0]) {
		frames = len(dst[0])
	}
	devider := ints.BitDepth.devider()
	for c := 0; c < len(dst) && c < ints.NumChannels; c++ {
		for i := 0; i < frames; i++ {
			dst[c][i] = float32(ints.Data[i*ints.NumChannels+c]) / devider
		}
	}
	return frames
}

// AppendInterInt appends the block to interleaved int data and returns the
// extended slice. Samples are clipped to [-1, 1] before conversion.
func AppendInterInt(ints []int, b *Block, bitDepth BitDepth) []int {
	multiplier := bitDepth.multiplier()
	for i := 0; i < b.size; i++ {
		for _, c := range b.channels {
			ints = append(ints, int(float64(clip(c[i]))*multiplier))
		}
	}
	return ints
}

// Interleave writes the block into interleaved float32 samples. dst must hold
// at least Size()*NumChannels() samples.
func Interleave(dst []float32, b *Block) {
	n := len(b.channels)
	for c, ch := range b.channels {
		for i, v := range ch {
			dst[i*n+c] = v
		}
	}
}

func clip(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
