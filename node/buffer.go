package node

import (
	"pipelined.dev/graph/media"
	"pipelined.dev/graph/param"
	"pipelined.dev/graph/signal"
)

// BufferSource plays a buffer kept in memory. Buffers with sample rate that
// differs from the graph rate are played at the correct pitch with linear
// interpolation, but resampling them on load gives better quality.
type BufferSource struct {
	Buffer *media.Buffer
	Loop   bool
	// LoopStart and LoopEnd bound the looped region in seconds. The whole
	// buffer is looped if LoopEnd is zero.
	LoopStart float64
	LoopEnd   float64
	// PlaybackRate is 1 if zero.
	PlaybackRate float32
	source
}

// New implements Kind.
func (b *BufferSource) New(cfg Config) (Descriptor, Processor, error) {
	if b.Buffer == nil || b.Buffer.Frames() == 0 {
		return Descriptor{}, nil, optionError(kindBuffer, "Buffer", "empty")
	}
	if b.Buffer.Channels() > signal.MaxChannels {
		return Descriptor{}, nil, optionError(kindBuffer, "Buffer", b.Buffer.Channels())
	}
	frames := float64(b.Buffer.Frames())
	bufferRate := float64(b.Buffer.SampleRate)
	loopStart, loopEnd := b.LoopStart*bufferRate, b.LoopEnd*bufferRate
	if loopEnd == 0 || loopEnd > frames {
		loopEnd = frames
	}
	if loopStart < 0 || loopStart >= loopEnd {
		return Descriptor{}, nil, optionError(kindBuffer, "LoopStart", b.LoopStart)
	}
	rate := b.PlaybackRate
	if rate == 0 {
		rate = 1
	}
	p := &bufferSource{
		data:      b.Buffer.Data,
		ratio:     bufferRate / cfg.SampleRate,
		loop:      b.Loop,
		loopStart: loopStart,
		loopEnd:   loopEnd,
	}
	b.bind(cfg, &p.schedule)
	return Descriptor{
		Kind:    kindBuffer,
		Outputs: []Output{{Channels: b.Buffer.Channels()}},
		Params: []param.Descriptor{
			{Name: "playbackRate", Default: rate, Min: -param.Unbounded, Max: param.Unbounded, Rate: param.KRate},
		},
	}, p, nil
}

type bufferSource struct {
	schedule
	data  [][]float32
	ratio float64
	loop  bool
	// loop bounds in buffer frames.
	loopStart, loopEnd float64
	// pos is the read position in buffer frames.
	pos  float64
	done bool
}

func (p *bufferSource) Process(_, out []*signal.Block, params Params, q Quantum) bool {
	from, to, ended := p.window(q)
	if p.done {
		from, to = 0, 0
	}
	silence(out, from, to)
	step := float64(params[0][0]) * p.ratio
	frames := len(p.data[0])
	dst := out[0]
	for i := from; i < to; i++ {
		if !p.loop && (p.pos < 0 || p.pos >= float64(frames)) {
			p.done = true
			silence(out, 0, i)
			break
		}
		idx := int(p.pos)
		frac := float32(p.pos - float64(idx))
		next := idx + 1
		if p.loop && float64(next) >= p.loopEnd {
			next = int(p.loopStart)
		}
		for c := range p.data {
			v := p.data[c][idx]
			var n float32
			if next < frames {
				n = p.data[c][next]
			}
			dst.Channel(c)[i] = v + frac*(n-v)
		}
		p.pos += step
		if p.loop {
			p.wrap(step)
		}
	}
	return !ended && !p.done
}

// wrap keeps looped position inside the loop region once it is reached.
func (p *bufferSource) wrap(step float64) {
	length := p.loopEnd - p.loopStart
	if step >= 0 {
		for p.pos >= p.loopEnd {
			p.pos -= length
		}
		return
	}
	for p.pos < p.loopStart {
		p.pos += length
	}
}
