// Package metrics defines the Prometheus collectors used by the retrieval
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpBuckets  = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	queryBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
	sizeBuckets  = []float64{0, 1, 5, 10, 25, 50, 100, 500}
)

// Metrics holds the service's collectors.
type Metrics struct {
	// HTTP layer, labelled by route pattern.
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Query evaluation, labelled by kind (boolean, proximity).
	QueriesTotal      *prometheus.CounterVec
	QueryLatency      *prometheus.HistogramVec
	QueryResultsCount *prometheus.HistogramVec

	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	CircuitBreakerState *prometheus.GaugeVec

	// Index lifecycle.
	IndexBuildsTotal    *prometheus.CounterVec
	IndexBuildDuration  prometheus.Histogram
	IndexedDocuments    prometheus.Gauge
	IndexedTerms        prometheus.Gauge
	CorpusInvalidations *prometheus.CounterVec
}

// New creates every collector on reg. It panics if reg already holds
// collectors with the same names.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return f.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	return &Metrics{
		HTTPRequestsTotal:    counter("http_requests_total", "HTTP requests by method, route and status.", "method", "path", "status"),
		HTTPRequestDuration:  histogram("http_request_duration_seconds", "HTTP request latency.", httpBuckets, "method", "path"),
		HTTPRequestsInFlight: gauge("http_requests_in_flight", "HTTP requests being served."),

		QueriesTotal:      counter("retrieval_queries_total", "Queries by kind and outcome (hit, zero_result, invalid, error).", "kind", "outcome"),
		QueryLatency:      histogram("retrieval_query_latency_seconds", "Query evaluation latency.", queryBuckets, "kind"),
		QueryResultsCount: histogram("retrieval_query_results_count", "Documents matched per query.", sizeBuckets, "kind"),

		CacheHitsTotal:      f.NewCounter(prometheus.CounterOpts{Name: "cache_hits_total", Help: "Result cache hits."}),
		CacheMissesTotal:    f.NewCounter(prometheus.CounterOpts{Name: "cache_misses_total", Help: "Result cache misses."}),
		CircuitBreakerState: f.NewGaugeVec(prometheus.GaugeOpts{Name: "circuit_breaker_state", Help: "0 closed, 1 open, 2 half-open."}, []string{"name"}),

		IndexBuildsTotal: counter("index_builds_total", "Index builds by status (success, error, timeout).", "status"),
		IndexBuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "index_build_duration_seconds",
			Help:    "Corpus load plus index build time.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		IndexedDocuments:    gauge("index_documents", "Documents in the current index."),
		IndexedTerms:        gauge("index_terms", "Distinct terms in the current index."),
		CorpusInvalidations: counter("corpus_invalidations_total", "Index invalidations by trigger (watcher, kafka, api).", "trigger"),
	}
}

// Handler serves gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
