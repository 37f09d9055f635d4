// Package metric exposes prometheus metrics of graph nodes and engines.
//
// Meters are created on the control side. Closures returned by them only
// update prometheus counters, gauges and histograms, which is safe to do
// from the render goroutine.
package metric

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	kindLabel   = "kind"
	engineLabel = "engine"
)

// Vectors are registered in the default prometheus registry.
var (
	QuantaTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_node_quanta_total",
		Help: "Number of quanta processed by nodes",
	}, []string{kindLabel})
	SamplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_node_samples_total",
		Help: "Number of sample frames processed by nodes",
	}, []string{kindLabel})
	AudioSeconds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_node_audio_seconds_total",
		Help: "Duration of audio processed by nodes",
	}, []string{kindLabel})
	LatencySeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "graph_node_latency_seconds",
		Help: "Time between the last two process calls of a node",
	}, []string{kindLabel})
	Components = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "graph_node_components",
		Help: "Number of live nodes",
	}, []string{kindLabel})
	FaultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_node_faults_total",
		Help: "Number of nodes silenced after a render fault",
	}, []string{kindLabel})

	RenderSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "graph_render_quantum_seconds",
		Help:    "Wall time spent rendering one quantum",
		Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01},
	}, []string{engineLabel})
	RenderedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_rendered_quanta_total",
		Help: "Number of quanta rendered by engines",
	}, []string{engineLabel})
)

// ResetFunc returns new Measure closure. This closure is needed to postpone metrics
// capture until node is actually rendered.
type ResetFunc func() MeasureFunc

// MeasureFunc captures metrics when a quantum is processed.
type MeasureFunc func(frames int64)

var kinds = struct {
	sync.Mutex
	m map[string]kind
}{
	m: make(map[string]kind),
}

type kind struct {
	quanta     prometheus.Counter
	samples    prometheus.Counter
	seconds    prometheus.Counter
	latency    prometheus.Gauge
	components prometheus.Gauge
	faults     prometheus.Counter
}

func get(name string) kind {
	kinds.Lock()
	defer kinds.Unlock()
	if k, ok := kinds.m[name]; ok {
		return k
	}
	k := kind{
		quanta:     QuantaTotal.WithLabelValues(name),
		samples:    SamplesTotal.WithLabelValues(name),
		seconds:    AudioSeconds.WithLabelValues(name),
		latency:    LatencySeconds.WithLabelValues(name),
		components: Components.WithLabelValues(name),
		faults:     FaultsTotal.WithLabelValues(name),
	}
	kinds.m[name] = k
	return k
}

// Meter registers a live node of the kind and returns closure to capture
// its counters. Release must be called when the node is destroyed.
func Meter(kind string, sampleRate int) ResetFunc {
	m := get(kind)
	m.components.Inc()
	return func() MeasureFunc {
		calledAt := time.Now()
		var (
			frames  int64
			seconds float64
		)
		return func(n int64) {
			now := time.Now()
			m.latency.Set(now.Sub(calledAt).Seconds())
			m.quanta.Inc()
			m.samples.Add(float64(n))
			// recalculate quantum duration only when its size has changed
			if frames != n {
				frames = n
				seconds = float64(n) / float64(sampleRate)
			}
			m.seconds.Add(seconds)
			calledAt = now
		}
	}
}

// Release unregisters a live node of the kind.
func Release(kind string) {
	get(kind).components.Dec()
}

// Fault counts a node of the kind silenced after a render fault.
func Fault(kind string) {
	get(kind).faults.Inc()
}

// EngineMeter measures rendering of an engine.
type EngineMeter struct {
	id       string
	duration prometheus.Observer
	rendered prometheus.Counter
}

// Engine returns meter of the engine with provided id.
func Engine(id string) EngineMeter {
	return EngineMeter{
		id:       id,
		duration: RenderSeconds.WithLabelValues(id),
		rendered: RenderedTotal.WithLabelValues(id),
	}
}

// Observe captures wall time spent rendering one quantum.
func (m EngineMeter) Observe(d time.Duration) {
	m.duration.Observe(d.Seconds())
	m.rendered.Inc()
}

// Forget removes series of the engine.
func (m EngineMeter) Forget() {
	RenderSeconds.DeleteLabelValues(m.id)
	RenderedTotal.DeleteLabelValues(m.id)
}
