// Package metrics exports limiter metrics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/manenim/cringe-relay/pkg/limiter"
)

// Recorder implements limiter.MetricsRecorder on a Prometheus registry.
// Names it does not know are dropped.
type Recorder struct {
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	labels     map[string][]string
}

// NewRecorder registers the limiter metrics on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		labels:     make(map[string][]string),
	}

	r.counter(limiter.MetricCall, "cringe_ratelimit_store_calls_total",
		"Window store calls.", "backend")
	r.counter(limiter.MetricDenied, "cringe_ratelimit_denied_total",
		"Requests denied by the rate limiter.", "window")
	r.counter(limiter.MetricFailOpen, "cringe_ratelimit_fail_open_total",
		"Requests let through because the window store was unavailable.")
	r.counter(limiter.MetricJanitorEvicted, "cringe_ratelimit_janitor_evicted_total",
		"Idle clients evicted from the in-memory store.", "backend")

	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cringe_ratelimit_store_latency_seconds",
		Help:    "Window store call latency.",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
	}, []string{"backend"})
	r.registry.MustRegister(hv)
	r.histograms[limiter.MetricLatency] = hv
	r.labels[limiter.MetricLatency] = []string{"backend"}

	return r
}

func (r *Recorder) counter(name, promName, help string, labels ...string) {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{Name: promName, Help: help}, labels)
	r.registry.MustRegister(cv)
	r.counters[name] = cv
	r.labels[name] = labels
}

// labelValues picks the declared labels out of tags, in order. Missing
// tags become empty values so the label cardinality stays fixed.
func (r *Recorder) labelValues(name string, tags map[string]string) []string {
	keys := r.labels[name]
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = tags[k]
	}
	return values
}

func (r *Recorder) Add(name string, value float64, tags map[string]string) {
	if cv, ok := r.counters[name]; ok {
		cv.WithLabelValues(r.labelValues(name, tags)...).Add(value)
	}
}

func (r *Recorder) Observe(name string, value float64, tags map[string]string) {
	if hv, ok := r.histograms[name]; ok {
		hv.WithLabelValues(r.labelValues(name, tags)...).Observe(value)
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
