package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the pricing service
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Cache Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Pipeline Metrics
	ImportRowsTotal     *prometheus.CounterVec
	NormalizeRowsTotal  *prometheus.CounterVec
	NormalizeRunSeconds *prometheus.HistogramVec
	LatestReferenceInfo *prometheus.GaugeVec
}

// NewMetricsRegistry registers every metric on reg. Tests pass a fresh
// prometheus.NewRegistry(); the server passes prometheus.DefaultRegisterer.
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fipe_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fipe_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fipe_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed, by method",
			},
			[]string{"method"},
		),

		// Cache Metrics
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fipe_cache_hits_total",
				Help: "Total cache hits by cache name",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fipe_cache_misses_total",
				Help: "Total cache misses by cache name",
			},
			[]string{"cache"},
		),

		// Pipeline Metrics
		ImportRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fipe_import_rows_total",
				Help: "Raw price rows seen by the importer, by outcome (inserted, skipped, failed)",
			},
			[]string{"outcome"},
		),
		NormalizeRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fipe_normalize_rows_total",
				Help: "Raw price rows handled by the normalizer, by outcome (inserted, updated, unchanged, skipped, failed)",
			},
			[]string{"outcome"},
		),
		NormalizeRunSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fipe_normalize_run_duration_seconds",
				Help:    "Normalization run execution time in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"mode", "status"},
		),
		LatestReferenceInfo: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fipe_latest_reference_month_info",
				Help: "Set to 1 for the reference month currently served",
			},
			[]string{"reference_month"},
		),
	}
}
