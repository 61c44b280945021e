// Package telemetry exposes the shortener's prometheus metrics.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	customerrors "github.com/axellelanca/shortlink/internal/errors"
	"github.com/axellelanca/shortlink/internal/stats"
)

const namespace = "shorturl"

// Recorder is what the link service reports to.
type Recorder interface {
	ObserveCreate(d time.Duration, err error)
	ObserveResolve(d time.Duration, cacheHit bool, err error)
	CacheError(operation string)
}

// Metrics implements Recorder and stats.Sink on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	created        prometheus.Counter
	queried        *prometheus.CounterVec
	createDuration prometheus.Histogram
	queryDuration  prometheus.Histogram
	errors         *prometheus.CounterVec
	createQPS      prometheus.Gauge
	resolveQPS     prometheus.Gauge
	links          prometheus.Gauge
}

// NewMetrics registers the shortener collectors and the Go runtime
// collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "created_total",
			Help:      "Number of short links created.",
		}),
		queried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queried_total",
			Help:      "Number of successful alias resolutions.",
		}, []string{"cache_hit"}),
		createDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "creation_duration_seconds",
			Help:      "Time spent creating a short link.",
			Buckets:   prometheus.DefBuckets,
		}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time spent resolving an alias.",
			Buckets:   prometheus.DefBuckets,
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by category and operation.",
		}, []string{"type", "operation"}),
		createQPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "create_qps",
			Help:      "Creations per second over the last sampling interval.",
		}),
		resolveQPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "query_qps",
			Help:      "Resolutions per second over the last sampling interval.",
		}),
		links: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "links",
			Help:      "Number of stored short links.",
		}),
	}
	m.registry.MustRegister(
		m.created, m.queried, m.createDuration, m.queryDuration, m.errors,
		m.createQPS, m.resolveQPS, m.links,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCreate records the latency and outcome of one creation.
func (m *Metrics) ObserveCreate(d time.Duration, err error) {
	m.createDuration.Observe(d.Seconds())
	if err != nil {
		m.errors.WithLabelValues(customerrors.Category(err), "create").Inc()
		return
	}
	m.created.Inc()
}

// ObserveResolve records the latency and outcome of one resolution.
func (m *Metrics) ObserveResolve(d time.Duration, cacheHit bool, err error) {
	m.queryDuration.Observe(d.Seconds())
	if err != nil {
		m.errors.WithLabelValues(customerrors.Category(err), "resolve").Inc()
		return
	}
	m.queried.WithLabelValues(strconv.FormatBool(cacheHit)).Inc()
}

// CacheError counts a swallowed cache failure.
func (m *Metrics) CacheError(operation string) {
	m.errors.WithLabelValues("cache_unavailable", operation).Inc()
}

// Record publishes a stats sample on the gauges.
func (m *Metrics) Record(s stats.Sample) {
	m.createQPS.Set(s.CreateQPS)
	m.resolveQPS.Set(s.ResolveQPS)
	if s.Links >= 0 {
		m.links.Set(float64(s.Links))
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Nop discards everything.
type Nop struct{}

// ObserveCreate does nothing.
func (Nop) ObserveCreate(time.Duration, error) {}

// ObserveResolve does nothing.
func (Nop) ObserveResolve(time.Duration, bool, error) {}

// CacheError does nothing.
func (Nop) CacheError(string) {}
