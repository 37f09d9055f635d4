package node

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"pipelined.dev/graph/internal/queue"
	"pipelined.dev/graph/media"
	"pipelined.dev/graph/signal"
)

// MediaSource streams a decoded media source. Decoding and resampling run
// in a feeder goroutine that stays Buffering quanta ahead of rendering. If
// the feeder falls behind, the node outputs silence and counts an underrun.
//
// The node owns the source: it is closed when the node is destroyed or the
// graph is closed.
type MediaSource struct {
	Source    media.Source
	Resampler media.ResamplerFunc
	// Buffering is 16 quanta if zero.
	Buffering int
	source
	proc *mediaSource
}

// New implements Kind. It starts the feeder goroutine.
func (m *MediaSource) New(cfg Config) (Descriptor, Processor, error) {
	if m.Source == nil {
		return Descriptor{}, nil, optionError(kindMedia, "Source", nil)
	}
	buffering := m.Buffering
	if buffering == 0 {
		buffering = 16
	}
	if buffering < 2 {
		return Descriptor{}, nil, optionError(kindMedia, "Buffering", m.Buffering)
	}
	stream, err := media.NewStream(m.Source, int(cfg.SampleRate), m.Resampler)
	if err != nil {
		return Descriptor{}, nil, err
	}
	channels := stream.Channels()
	if channels > signal.MaxChannels {
		return Descriptor{}, nil, optionError(kindMedia, "Source", channels)
	}

	p := &mediaSource{
		full: queue.NewRing[*chunk](buffering),
		free: queue.NewRing[*chunk](buffering),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		src:  m.Source,
	}
	for i := 0; i < p.free.Cap(); i++ {
		c := chunk{data: make([][]float32, channels)}
		for j := range c.data {
			c.data[j] = make([]float32, cfg.QuantumSize)
		}
		p.free.Push(&c)
	}
	p.wg.Add(1)
	go p.feed(stream)

	m.proc = p
	m.bind(cfg, &p.schedule)
	return Descriptor{
		Kind:    kindMedia,
		Outputs: []Output{{Channels: channels}},
	}, p, nil
}

// Underruns returns number of quanta rendered as silence because decoded
// data was not ready.
func (m *MediaSource) Underruns() uint64 {
	if m.proc == nil {
		return 0
	}
	return m.proc.underruns.Load()
}

// Err returns the error that stopped decoding early.
func (m *MediaSource) Err() error {
	if m.proc == nil {
		return nil
	}
	if err, ok := m.proc.err.Load().(error); ok {
		return err
	}
	return nil
}

// chunk is one quantum of decoded frames.
type chunk struct {
	data   [][]float32
	frames int
	eof    bool
}

type mediaSource struct {
	schedule
	full      *queue.Ring[*chunk]
	free      *queue.Ring[*chunk]
	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	src       media.Source
	underruns atomic.Uint64
	err       atomic.Value
	// cur is the chunk being played from offset.
	cur    *chunk
	offset int
	ended  bool
}

// feed decodes chunks until the stream ends or the source is closed.
func (p *mediaSource) feed(stream *media.Stream) {
	defer p.wg.Done()
	for {
		c, ok := p.free.Pop()
		if !ok {
			select {
			case <-p.wake:
				continue
			case <-p.done:
				return
			}
		}
		n, err := stream.Next(c.data)
		c.frames, c.eof = n, false
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.err.Store(err)
			}
			c.eof = true
		}
		// full has room for every chunk
		p.full.Push(c)
		if c.eof {
			return
		}
		select {
		case <-p.done:
			return
		default:
		}
	}
}

func (p *mediaSource) Process(_, out []*signal.Block, _ Params, q Quantum) bool {
	from, to, ended := p.window(q)
	if p.ended {
		from, to = 0, 0
	}
	dst := out[0]
	i := from
	for i < to {
		if p.cur == nil {
			c, ok := p.full.Pop()
			if !ok {
				p.underruns.Add(1)
				break
			}
			p.cur, p.offset = c, 0
		}
		n := min(p.cur.frames-p.offset, to-i)
		for ch, data := range p.cur.data {
			copy(dst.Channel(ch)[i:i+n], data[p.offset:p.offset+n])
		}
		i += n
		p.offset += n
		if p.offset == p.cur.frames {
			eof := p.cur.eof
			p.recycle()
			if eof {
				p.ended = true
				break
			}
		}
	}
	silence(out, from, i)
	return !ended && !p.ended
}

// recycle returns current chunk to the feeder.
func (p *mediaSource) recycle() {
	p.free.Push(p.cur)
	p.cur = nil
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Close stops the feeder and closes the source.
func (p *mediaSource) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
		err = p.src.Close()
	})
	return err
}
