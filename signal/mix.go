package signal

import "math"

// Interpretation defines how channels are treated when a block is mixed
// into a block with a different channel count.
type Interpretation int

const (
	// Speakers applies the speaker layout table for mono, stereo, quad and
	// 5.1 layouts. Other layouts replicate mono sources and fold surplus
	// channels.
	Speakers Interpretation = iota
	// Discrete matches channels by index: missing channels stay silent,
	// surplus channels are dropped.
	Discrete
)

func (i Interpretation) String() string {
	switch i {
	case Speakers:
		return "speakers"
	case Discrete:
		return "discrete"
	default:
		return "unknown"
	}
}

// 5.1 channel order.
const (
	chL = iota
	chR
	chC
	chLFE
	chSL
	chSR
)

const sqrtHalf = float32(math.Sqrt2 / 2)

// Mix adds src into dst, converting channel layout if needed. dst must be
// prepared by the caller, usually zeroed.
func Mix(dst, src *Block, interp Interpretation) {
	mix(dst.channels, src.channels, interp)
}

// MixChannel adds a single channel into dst as a mono signal.
func MixChannel(dst *Block, src []float32, interp Interpretation) {
	dst.scratch[0] = src
	mix(dst.channels, dst.scratch[:], interp)
	dst.scratch[0] = nil
}

// MixMono adds the mono down-mix of src into dst.
func MixMono(dst []float32, src *Block) {
	mixMono(dst, src.channels)
}

func mixMono(dst []float32, in [][]float32) {
	switch len(in) {
	case 1:
		add(dst, in[0], 1)
	case 2:
		add(dst, in[chL], 0.5)
		add(dst, in[chR], 0.5)
	case 4:
		for _, c := range in {
			add(dst, c, 0.25)
		}
	case 6:
		add(dst, in[chL], sqrtHalf)
		add(dst, in[chR], sqrtHalf)
		add(dst, in[chC], 1)
		add(dst, in[chSL], 0.5)
		add(dst, in[chSR], 0.5)
	default:
		g := 1 / float32(len(in))
		for _, c := range in {
			add(dst, c, g)
		}
	}
}

func mix(out, in [][]float32, interp Interpretation) {
	n, m := len(in), len(out)
	switch {
	case n == m:
		for i := range in {
			add(out[i], in[i], 1)
		}
	case interp == Discrete:
		for i := 0; i < n && i < m; i++ {
			add(out[i], in[i], 1)
		}
	case n < m:
		upmix(out, in)
	default:
		downmix(out, in)
	}
}

func upmix(out, in [][]float32) {
	n, m := len(in), len(out)
	switch {
	case n == 1 && (m == 4):
		add(out[chL], in[0], 1)
		add(out[chR], in[0], 1)
	case n == 1 && m == 6:
		add(out[chC], in[0], 1)
	case n == 1:
		for i := range out {
			add(out[i], in[0], 1)
		}
	case n == 4 && m == 6:
		add(out[chL], in[0], 1)
		add(out[chR], in[1], 1)
		add(out[chSL], in[2], 1)
		add(out[chSR], in[3], 1)
	default:
		for i := range in {
			add(out[i], in[i], 1)
		}
	}
}

func downmix(out, in [][]float32) {
	n, m := len(in), len(out)
	switch {
	case m == 1 && (n == 2 || n == 4 || n == 6):
		mixMono(out[0], in)
	case n == 4 && m == 2:
		add(out[chL], in[0], 0.5)
		add(out[chL], in[2], 0.5)
		add(out[chR], in[1], 0.5)
		add(out[chR], in[3], 0.5)
	case n == 6 && m == 2:
		add(out[chL], in[chL], 1)
		add(out[chL], in[chC], sqrtHalf)
		add(out[chL], in[chSL], sqrtHalf)
		add(out[chR], in[chR], 1)
		add(out[chR], in[chC], sqrtHalf)
		add(out[chR], in[chSR], sqrtHalf)
	case n == 6 && m == 4:
		add(out[0], in[chL], 1)
		add(out[0], in[chC], sqrtHalf)
		add(out[1], in[chR], 1)
		add(out[1], in[chC], sqrtHalf)
		add(out[2], in[chSL], 1)
		add(out[3], in[chSR], 1)
	default:
		g := float32(m) / float32(n)
		for i := range in {
			add(out[i%m], in[i], g)
		}
	}
}

func add(dst, src []float32, g float32) {
	if g == 1 {
		for i := range dst {
			dst[i] += src[i]
		}
		return
	}
	for i := range dst {
		dst[i] += src[i] * g
	}
}
