package param

import (
	"fmt"
	"math"
)

// EventCapacity is number of events a new timeline holds without growing.
const EventCapacity = 16

// frameEpsilon absorbs float rounding when event times are converted to
// frames, so 0.1s at 44100Hz is frame 4410 and not 4411.
const frameEpsilon = 1e-6

type point struct {
	Event
	start uint64
	t0    float64
	end   float64
	v0    float32
}

// Timeline computes values of a single parameter. Values must be queried with
// non-decreasing frames, the timeline keeps a cursor to the active event and
// never moves it back.
type Timeline struct {
	desc       Descriptor
	sampleRate float64
	events     []point
	cur        int
	value      float32
	pos        uint64
	failed     bool
}

// NewTimeline returns an empty timeline that holds the default value of d.
func NewTimeline(d Descriptor, sampleRate float64) *Timeline {
	return &Timeline{
		desc:       d,
		sampleRate: sampleRate,
		events:     make([]point, 0, EventCapacity),
		cur:        -1,
		value:      d.Default,
	}
}

// Storage is memory for timeline events allocated before it is needed, so a
// timeline owned by the render side can grow without allocating.
type Storage struct {
	events []point
}

// NewStorage allocates storage for n events.
func NewStorage(n int) Storage {
	return Storage{events: make([]point, 0, n)}
}

// Cap returns number of events the storage holds.
func (s Storage) Cap() int {
	return cap(s.events)
}

// Adopt moves events into s if it holds more events than the timeline
// does now. The storage must not be used after.
func (t *Timeline) Adopt(s Storage) {
	if cap(s.events) <= cap(t.events) {
		return
	}
	t.events = append(s.events[:0], t.events...)
}

// Cap returns number of events the timeline holds without growing.
func (t *Timeline) Cap() int {
	return cap(t.events)
}

// Descriptor returns descriptor of the parameter.
func (t *Timeline) Descriptor() Descriptor {
	return t.desc
}

// Position returns the next frame that is not yet rendered.
func (t *Timeline) Position() uint64 {
	return t.pos
}

// Len returns number of pending and active events.
func (t *Timeline) Len() int {
	return len(t.events)
}

// Advance moves the timeline position forward by n frames.
func (t *Timeline) Advance(n int) {
	t.pos += uint64(n)
}

// Schedule inserts an event. Events starting before the current position are
// clamped to start at the position. Events with equal start frames take effect
// in the order they were scheduled.
func (t *Timeline) Schedule(e Event) error {
	start, t0, err := t.check(e)
	if err != nil {
		return err
	}
	if e.Type == Cancel {
		t.cancel(start)
		return nil
	}
	end := e.End
	if end < t0 {
		end = t0
	}

	i := len(t.events)
	for i > t.cur+1 && t.events[i-1].start > start {
		i--
	}
	t.events = append(t.events, point{})
	copy(t.events[i+1:], t.events[i:])
	t.events[i] = point{Event: e, start: start, t0: t0, end: end}
	return nil
}

// Check returns error Schedule would return for e without changing the
// timeline.
func (t *Timeline) Check(e Event) error {
	_, _, err := t.check(e)
	return err
}

func (t *Timeline) check(e Event) (uint64, float64, error) {
	if err := e.Validate(); err != nil {
		return 0, 0, err
	}
	start, t0 := t.frameOf(e.Time), e.Time
	if start < t.pos {
		start, t0 = t.pos, t.timeOf(t.pos)
	}
	if e.Type == ExponentialRamp {
		if v0 := t.valueAtTime(t0); !sameSign(v0, e.Value) {
			return 0, 0, fmt.Errorf("%w: from %v to %v", ErrExponentialRamp, v0, e.Value)
		}
	}
	return start, t0, nil
}

// ValueAt returns parameter value at frame.
func (t *Timeline) ValueAt(frame uint64) float32 {
	t.activate(frame)
	return t.current(t.timeOf(frame))
}

// Fill writes values for consecutive frames starting at frame.
func (t *Timeline) Fill(dst []float32, frame uint64) {
	if len(dst) == 0 {
		return
	}
	t.activate(frame)
	if t.steady(frame, frame+uint64(len(dst))-1) {
		v := t.current(t.timeOf(frame))
		for i := range dst {
			dst[i] = v
		}
		return
	}
	for i := range dst {
		dst[i] = t.ValueAt(frame + uint64(i))
	}
}

// Failed reports whether an exponential ramp failed to activate since the
// last call. A failed ramp holds the value it started from.
func (t *Timeline) Failed() bool {
	f := t.failed
	t.failed = false
	return f
}

// LastEnd returns the latest time any scheduled event ends at.
func (t *Timeline) LastEnd() float64 {
	var last float64
	for i := range t.events {
		if t.events[i].end > last {
			last = t.events[i].end
		}
	}
	return last
}

// ValueAtTime returns value the timeline would produce at time, without
// moving the cursor.
func (t *Timeline) ValueAtTime(time float64) float32 {
	return t.valueAtTime(time)
}

// Prune moves position to frame and drops events that are superseded by then.
// It is meant for timelines that mirror a rendered one and are never queried
// with ValueAt.
func (t *Timeline) Prune(frame uint64) {
	if frame > t.pos {
		t.pos = frame
	}
	i, v0 := t.walk(t.timeOf(frame))
	if i <= 0 || t.cur >= 0 {
		return
	}
	t.value = v0
	t.drop(i)
}

func (t *Timeline) activate(frame uint64) {
	for t.cur+1 < len(t.events) && t.events[t.cur+1].start <= frame {
		next := &t.events[t.cur+1]
		next.v0 = t.current(next.t0)
		if next.Type == ExponentialRamp && !sameSign(next.v0, next.Value) {
			t.failed = true
		}
		t.cur++
	}
	if t.cur > 0 {
		t.drop(t.cur)
		t.cur = 0
	}
}

// drop removes first n events.
func (t *Timeline) drop(n int) {
	k := copy(t.events, t.events[n:])
	for i := k; i < len(t.events); i++ {
		t.events[i] = point{}
	}
	t.events = t.events[:k]
}

func (t *Timeline) cancel(start uint64) {
	k := t.cur + 1
	for i := t.cur + 1; i < len(t.events); i++ {
		if t.events[i].start < start {
			t.events[k] = t.events[i]
			k++
		}
	}
	for i := k; i < len(t.events); i++ {
		t.events[i] = point{}
	}
	t.events = t.events[:k]
}

func (t *Timeline) current(at float64) float32 {
	if t.cur < 0 {
		return t.value
	}
	p := &t.events[t.cur]
	return eval(p, p.v0, at)
}

// steady reports whether value is constant over frames [first, last].
func (t *Timeline) steady(first, last uint64) bool {
	if next := t.cur + 1; next < len(t.events) && t.events[next].start <= last {
		return false
	}
	if t.cur < 0 {
		return true
	}
	p := &t.events[t.cur]
	switch p.Type {
	case SetValue:
		return true
	case SetTarget:
		return p.TimeConstant == 0
	case ExponentialRamp:
		return !sameSign(p.v0, p.Value) || t.timeOf(first) >= p.end
	default:
		return t.timeOf(first) >= p.end
	}
}

// walk finds the event in effect at time and its start value.
func (t *Timeline) walk(at float64) (int, float32) {
	i, v0 := -1, t.value
	if t.cur >= 0 {
		i, v0 = t.cur, t.events[t.cur].v0
	}
	for i+1 < len(t.events) && t.events[i+1].t0 <= at {
		if i >= 0 {
			v0 = eval(&t.events[i], v0, t.events[i+1].t0)
		}
		i++
	}
	return i, v0
}

func (t *Timeline) valueAtTime(at float64) float32 {
	i, v0 := t.walk(at)
	if i < 0 {
		return t.value
	}
	return eval(&t.events[i], v0, at)
}

func (t *Timeline) frameOf(time float64) uint64 {
	f := math.Ceil(time*t.sampleRate - frameEpsilon)
	if f < 0 {
		return 0
	}
	return uint64(f)
}

func (t *Timeline) timeOf(frame uint64) float64 {
	return float64(frame) / t.sampleRate
}

func eval(p *point, v0 float32, at float64) float32 {
	if at < p.t0 {
		at = p.t0
	}
	switch p.Type {
	case LinearRamp:
		if at >= p.end {
			return p.Value
		}
		frac := (at - p.t0) / (p.end - p.t0)
		return float32(float64(v0) + float64(p.Value-v0)*frac)
	case ExponentialRamp:
		if !sameSign(v0, p.Value) {
			return v0
		}
		if at >= p.end {
			return p.Value
		}
		frac := (at - p.t0) / (p.end - p.t0)
		return float32(float64(v0) * math.Pow(float64(p.Value)/float64(v0), frac))
	case SetTarget:
		if p.TimeConstant == 0 {
			return p.Value
		}
		return float32(float64(p.Value) + float64(v0-p.Value)*math.Exp(-(at-p.t0)/p.TimeConstant))
	case ValueCurve:
		n := len(p.Curve)
		if at >= p.end {
			return p.Curve[n-1]
		}
		pos := (at - p.t0) / (p.end - p.t0) * float64(n-1)
		k := int(pos)
		frac := float32(pos - float64(k))
		return p.Curve[k] + (p.Curve[k+1]-p.Curve[k])*frac
	default:
		return p.Value
	}
}

func sameSign(a, b float32) bool {
	return a != 0 && b != 0 && (a > 0) == (b > 0)
}
