// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Remote API metrics
	APIRequests      *prometheus.CounterVec
	APIRequestErrors *prometheus.CounterVec
	APIRetries       prometheus.Counter
	APILatency       *prometheus.HistogramVec

	// Resolution metrics
	CombinationsExpanded prometheus.Counter
	CombinationsFailed   prometheus.Counter
	SeriesResolved       prometheus.Counter

	// Conversion metrics
	UnitConversions    prometheus.Counter
	NotConvertible     prometheus.Counter
	FactorCacheLookups *prometheus.CounterVec

	// Accumulation metrics
	SeriesAdded         prometheus.Counter
	PointsFetched       prometheus.Counter
	MaterializeDuration prometheus.Histogram
	FrameRows           prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "agridata"
	}

	return &Metrics{
		APIRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of remote API requests by endpoint",
		}, []string{"endpoint"}),
		APIRequestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_errors_total",
			Help:      "Total number of failed remote API requests by endpoint and status",
		}, []string{"endpoint", "status"}),
		APIRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "retries_total",
			Help:      "Total number of retried remote API requests",
		}),
		APILatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_latency_seconds",
			Help:      "Remote API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		CombinationsExpanded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolve",
			Name:      "combinations_expanded_total",
			Help:      "Total number of entity combinations produced by expansion",
		}),
		CombinationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolve",
			Name:      "combinations_failed_total",
			Help:      "Total number of combinations whose series listing failed",
		}),
		SeriesResolved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolve",
			Name:      "series_resolved_total",
			Help:      "Total number of concrete series returned by resolution",
		}),

		UnitConversions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "units",
			Name:      "conversions_total",
			Help:      "Total number of observations converted between units",
		}),
		NotConvertible: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "units",
			Name:      "not_convertible_total",
			Help:      "Total number of conversions rejected for lacking a factor",
		}),
		FactorCacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "units",
			Name:      "factor_cache_lookups_total",
			Help:      "Total number of conversion factor lookups by outcome",
		}, []string{"outcome"}),

		SeriesAdded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accumulate",
			Name:      "series_added_total",
			Help:      "Total number of series added to the selected list",
		}),
		PointsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accumulate",
			Name:      "points_fetched_total",
			Help:      "Total number of observations fetched",
		}),
		MaterializeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "accumulate",
			Name:      "materialize_duration_seconds",
			Help:      "Duration of draining the pending queue in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		FrameRows: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "accumulate",
			Name:      "frame_rows",
			Help:      "Current number of rows in the accumulated table",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordAPIRequest records a remote API request and its latency.
func RecordAPIRequest(endpoint string, seconds float64) {
	DefaultMetrics.APIRequests.WithLabelValues(endpoint).Inc()
	DefaultMetrics.APILatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordAPIError records a failed remote API request.
func RecordAPIError(endpoint, status string) {
	DefaultMetrics.APIRequestErrors.WithLabelValues(endpoint, status).Inc()
}

// RecordAPIRetry increments the retry counter.
func RecordAPIRetry() {
	DefaultMetrics.APIRetries.Inc()
}

// RecordResolution records one resolution pass.
func RecordResolution(combinations, failed, series int) {
	DefaultMetrics.CombinationsExpanded.Add(float64(combinations))
	DefaultMetrics.CombinationsFailed.Add(float64(failed))
	DefaultMetrics.SeriesResolved.Add(float64(series))
}

// RecordConversion increments the conversion counter.
func RecordConversion() {
	DefaultMetrics.UnitConversions.Inc()
}

// RecordNotConvertible increments the rejected-conversion counter.
func RecordNotConvertible() {
	DefaultMetrics.NotConvertible.Inc()
}

// RecordSeriesAdded increments the selected-series counter.
func RecordSeriesAdded() {
	DefaultMetrics.SeriesAdded.Inc()
}

// RecordMaterialize records a drain of the pending queue.
func RecordMaterialize(points int, seconds float64, frameRows int) {
	DefaultMetrics.PointsFetched.Add(float64(points))
	DefaultMetrics.MaterializeDuration.Observe(seconds)
	DefaultMetrics.FrameRows.Set(float64(frameRows))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
