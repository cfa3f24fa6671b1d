// Package metrics exports assistant and HTTP metrics in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "barcin"

// DefaultLatencyBuckets covers fast local computations up to slow upstream
// fallbacks (seconds).
var DefaultLatencyBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30}

// Exporter owns a private registry so tests and multiple servers never
// collide on the global one.
type Exporter struct {
	registry *prometheus.Registry

	answers       *prometheus.CounterVec
	answerLatency *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	inFlight     prometheus.Gauge

	datasets prometheus.Gauge
	evicted  prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Exporter {
	e := &Exporter{registry: prometheus.NewRegistry()}

	e.answers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "answers_total",
			Help:      "Answers by route, intent and response type",
		},
		[]string{"route", "intent", "response_type"},
	)
	e.answerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "answer_latency_seconds",
			Help:      "Time to answer a query in seconds",
			Buckets:   DefaultLatencyBuckets,
		},
		[]string{"route"},
	)
	e.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code",
		},
		[]string{"method", "route", "code"},
	)
	e.httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   DefaultLatencyBuckets,
		},
		[]string{"method", "route"},
	)
	e.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "HTTP requests currently being served",
	})
	e.datasets = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "datasets_loaded",
		Help:      "Number of datasets loaded at startup",
	})
	e.evicted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "learning",
		Name:      "evicted_total",
		Help:      "Learning rows removed by the retention window",
	})

	e.registry.MustRegister(
		e.answers, e.answerLatency,
		e.httpRequests, e.httpLatency, e.inFlight,
		e.datasets, e.evicted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return e
}

// ObserveAnswer records one assistant answer.
func (e *Exporter) ObserveAnswer(route, intent, responseType string, elapsed time.Duration) {
	e.answers.WithLabelValues(route, intent, responseType).Inc()
	e.answerLatency.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveHTTP records one served request. route is the router pattern, not
// the raw path, to keep label cardinality bounded.
func (e *Exporter) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	e.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	e.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func (e *Exporter) TrackInFlight() func() {
	e.inFlight.Inc()
	return e.inFlight.Dec
}

// SetDatasets records how many datasets were loaded.
func (e *Exporter) SetDatasets(n int) {
	e.datasets.Set(float64(n))
}

// AddEvicted counts rows removed by a retention pass.
func (e *Exporter) AddEvicted(n int64) {
	if n > 0 {
		e.evicted.Add(float64(n))
	}
}

// Registry exposes the underlying registry for tests.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}
