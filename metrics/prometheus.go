package metrics

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics on a dedicated Prometheus registry.
// Instruments are created lazily on first use and cached by name; the same
// name must always be used with the same label keys.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusMetrics creates a Prometheus-backed metrics provider with
// its own registry (not the default global one, so tests can create many).
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Handler returns an http.Handler exposing the registry in the Prometheus
// text format, for mounting on the metrics port.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func labelKeys(labels Labels) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Counter implements Metrics.
func (m *PrometheusMetrics) Counter(name string, labels Labels) Counter {
	m.mu.Lock()
	vec, ok := m.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, labelKeys(labels))
		m.registry.MustRegister(vec)
		m.counters[name] = vec
	}
	m.mu.Unlock()
	return &promCounter{c: vec.With(prometheus.Labels(labels))}
}

// Gauge implements Metrics.
func (m *PrometheusMetrics) Gauge(name string, labels Labels) Gauge {
	m.mu.Lock()
	vec, ok := m.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, labelKeys(labels))
		m.registry.MustRegister(vec)
		m.gauges[name] = vec
	}
	m.mu.Unlock()
	return &promGauge{g: vec.With(prometheus.Labels(labels))}
}

// Histogram implements Metrics.
func (m *PrometheusMetrics) Histogram(name string, labels Labels) Histogram {
	m.mu.Lock()
	vec, ok := m.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Buckets: prometheus.DefBuckets,
		}, labelKeys(labels))
		m.registry.MustRegister(vec)
		m.histograms[name] = vec
	}
	m.mu.Unlock()
	return &promHistogram{h: vec.With(prometheus.Labels(labels))}
}

// NewTimer implements Metrics.
func (m *PrometheusMetrics) NewTimer(histogram Histogram) Timer {
	return &inMemoryTimer{histogram: histogram, start: time.Now()}
}

type promCounter struct{ c prometheus.Counter }

func (c *promCounter) Inc()              { c.c.Inc() }
func (c *promCounter) Add(delta float64) { c.c.Add(delta) }

type promGauge struct{ g prometheus.Gauge }

func (g *promGauge) Set(value float64) { g.g.Set(value) }
func (g *promGauge) Inc()              { g.g.Inc() }
func (g *promGauge) Dec()              { g.g.Dec() }
func (g *promGauge) Add(delta float64) { g.g.Add(delta) }

type promHistogram struct{ h prometheus.Observer }

func (h *promHistogram) Observe(value float64) { h.h.Observe(value) }
