// Package metrics provides Prometheus metrics for the growthdesk service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the growthdesk service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Core Business Metrics - How much of each growth list survives
	filterRuns             prometheus.Counter
	candidatesChecked      prometheus.Counter
	candidatesExcluded     *prometheus.CounterVec
	candidatesUnidentified prometheus.Counter
	filterLatency          prometheus.Histogram

	// Reference Data Metrics
	invitesLogged       prometheus.Counter
	inviteBatches       prometheus.Counter
	connectionsImported prometheus.Counter
	totalInvites        prometheus.Gauge
	totalConnections    prometheus.Gauge

	// Reference Cache Metrics
	referenceCache *prometheus.CounterVec

	// Store Metrics - SQLite query timings
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec
	storeRetries prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Enhanced Error Metrics - Detailed error tracking
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "growthdesk",
		subsystem:        "dedupe",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Core Business Metrics
	m.filterRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "filter_runs_total",
		Help:        "Total number of candidate lists filtered",
		ConstLabels: m.constLabels,
	})

	m.candidatesChecked = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "candidates_checked_total",
		Help:        "Total number of candidates run through the filter",
		ConstLabels: m.constLabels,
	})

	m.candidatesExcluded = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "candidates_excluded_total",
			Help:        "Total number of candidates excluded, by reason",
			ConstLabels: m.constLabels,
		},
		[]string{"reason"},
	)

	m.candidatesUnidentified = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "candidates_unidentified_total",
		Help:        "Total number of candidates without a usable profile URL (data quality)",
		ConstLabels: m.constLabels,
	})

	m.filterLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "filter_latency_milliseconds",
		Help:        "Histogram of end-to-end filter latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	// Reference Data Metrics
	m.invitesLogged = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "invites_logged_total",
		Help:        "Total number of invited profiles recorded",
		ConstLabels: m.constLabels,
	})

	m.inviteBatches = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "invite_batches_total",
		Help:        "Total number of invite batches recorded",
		ConstLabels: m.constLabels,
	})

	m.connectionsImported = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "connections_imported_total",
		Help:        "Total number of connections imported",
		ConstLabels: m.constLabels,
	})

	m.totalInvites = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "total_invites",
		Help:        "Number of invited profiles in the store",
		ConstLabels: m.constLabels,
	})

	m.totalConnections = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "total_connections",
		Help:        "Number of connections in the store",
		ConstLabels: m.constLabels,
	})

	m.referenceCache = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "reference_cache_requests_total",
			Help:        "Reference set lookups by result (hit or miss)",
			ConstLabels: m.constLabels,
		},
		[]string{"result"},
	)

	// Store Metrics
	m.storeLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "store_latency_milliseconds",
			Help:        "Store operation latency in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"operation"},
	)

	m.storeErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "store_errors_total",
			Help:        "Store operation failures",
			ConstLabels: m.constLabels,
		},
		[]string{"operation"},
	)

	m.storeRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_busy_retries_total",
		Help:        "Write transactions retried because the database was busy",
		ConstLabels: m.constLabels,
	})

	// HTTP Performance Metrics - User experience indicators
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds (user experience)",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Enhanced Error Metrics
	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_type_total",
			Help:        "Total number of errors by type and severity",
			ConstLabels: m.constLabels,
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_endpoint_total",
			Help:        "Total number of errors by HTTP endpoint",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "error_latency_milliseconds",
			Help:        "Latency of operations that resulted in errors",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "System memory usage in bytes",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: m.constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.constLabels,
	})
}

// Core Business Metrics Functions.

// RecordFilterRun records the outcome of one filter run.
func RecordFilterRun(checked, invited, connected, byName, unidentified int) {
	globalManager.filterRuns.Inc()
	globalManager.candidatesChecked.Add(float64(checked))
	globalManager.candidatesExcluded.WithLabelValues("invited").Add(float64(invited))
	globalManager.candidatesExcluded.WithLabelValues("connected").Add(float64(connected))
	globalManager.candidatesExcluded.WithLabelValues("name").Add(float64(byName))
	globalManager.candidatesUnidentified.Add(float64(unidentified))
}

// RecordFilterLatency records filter latency in milliseconds.
func RecordFilterLatency(latencyMs float64) {
	globalManager.filterLatency.Observe(latencyMs)
}

// RecordInvitesLogged records one invite batch of n profiles.
func RecordInvitesLogged(n int) {
	globalManager.inviteBatches.Inc()
	globalManager.invitesLogged.Add(float64(n))
}

// RecordConnectionsImported records n imported connections.
func RecordConnectionsImported(n int) {
	globalManager.connectionsImported.Add(float64(n))
}

// UpdateTotalInvites sets the number of stored invites.
func UpdateTotalInvites(count int) {
	globalManager.totalInvites.Set(float64(count))
}

// UpdateTotalConnections sets the number of stored connections.
func UpdateTotalConnections(count int) {
	globalManager.totalConnections.Set(float64(count))
}

// RecordReferenceCacheHit increments the reference cache hit counter.
func RecordReferenceCacheHit() {
	globalManager.referenceCache.WithLabelValues("hit").Inc()
}

// RecordReferenceCacheMiss increments the reference cache miss counter.
func RecordReferenceCacheMiss() {
	globalManager.referenceCache.WithLabelValues("miss").Inc()
}

// Store Metrics Functions.

// RecordStoreLatency records the latency of a store operation in milliseconds.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreError increments the store error counter for an operation.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// RecordStoreRetry increments the busy retry counter.
func RecordStoreRetry() {
	globalManager.storeRetries.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Enhanced Error Metrics Functions.

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
