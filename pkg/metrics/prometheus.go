// Package metrics provides Prometheus metrics for the gNBS review service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the review service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Dataset metrics
	datasetsLoaded      *prometheus.CounterVec
	datasetLoadDuration prometheus.Histogram
	genesRecognized     prometheus.Gauge
	respondents         prometheus.Gauge
	surveyColumns       prometheus.Gauge
	ignoredColumns      prometheus.Gauge
	ambiguousHeaders    prometheus.Counter
	droppedValues       prometheus.Counter
	recommendations     *prometheus.GaugeVec

	// Review ledger metrics
	reviewsRecorded *prometheus.CounterVec
	reviewsCleared  prometheus.Counter
	reviewsStored   prometheus.Gauge
	ledgerLatency   *prometheus.HistogramVec

	// Export metrics
	exportsGenerated *prometheus.CounterVec
	exportRows       prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System metrics
	systemMemoryUsage   prometheus.Gauge
	systemGoroutines    prometheus.Gauge
	systemGCPauseMillis prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gnbs",
		subsystem:        "review",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.datasetsLoaded = auto.NewCounterVec(
		m.counterOpts("datasets_loaded_total", "Survey datasets loaded, by result"),
		[]string{"result"},
	)
	m.datasetLoadDuration = auto.NewHistogram(
		m.histogramOpts("dataset_load_duration_milliseconds", "Time to parse, aggregate and classify a dataset"),
	)
	m.genesRecognized = auto.NewGauge(
		m.gaugeOpts("genes", "Genes recognized in the current dataset"),
	)
	m.respondents = auto.NewGauge(
		m.gaugeOpts("respondents", "Respondent rows in the current dataset"),
	)
	m.surveyColumns = auto.NewGauge(
		m.gaugeOpts("survey_columns", "Columns recognized as survey columns in the current dataset"),
	)
	m.ignoredColumns = auto.NewGauge(
		m.gaugeOpts("ignored_columns", "Columns that are not survey columns in the current dataset"),
	)
	m.ambiguousHeaders = auto.NewCounter(
		m.counterOpts("ambiguous_headers_total", "Headers that carried both track keywords"),
	)
	m.droppedValues = auto.NewCounter(
		m.counterOpts("dropped_values_total", "Response values that matched no answer label"),
	)
	m.recommendations = auto.NewGaugeVec(
		m.gaugeOpts("recommendations", "Genes per recommendation in the current dataset"),
		[]string{"category"},
	)

	m.reviewsRecorded = auto.NewCounterVec(
		m.counterOpts("reviews_recorded_total", "Reviewer decisions saved, by decision"),
		[]string{"decision"},
	)
	m.reviewsCleared = auto.NewCounter(
		m.counterOpts("reviews_cleared_total", "Reviewer entries cleared"),
	)
	m.reviewsStored = auto.NewGauge(
		m.gaugeOpts("reviews_stored", "Reviewer entries currently held by the ledger"),
	)
	m.ledgerLatency = auto.NewHistogramVec(
		m.histogramOpts("ledger_operation_duration_milliseconds", "Review ledger operation latency"),
		[]string{"backend", "operation"},
	)

	m.exportsGenerated = auto.NewCounterVec(
		m.counterOpts("exports_total", "Exports generated, by format"),
		[]string{"format"},
	)
	m.exportRows = auto.NewGauge(
		m.gaugeOpts("export_rows", "Rows in the most recent export"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by HTTP endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_bytes", "Heap bytes allocated by the process"),
	)
	m.systemGoroutines = auto.NewGauge(
		m.gaugeOpts("system_goroutines", "Number of running goroutines"),
	)
	m.systemGCPauseMillis = auto.NewGauge(
		m.gaugeOpts("system_gc_pause_milliseconds", "Average GC pause in milliseconds"),
	)
}

// Dataset Metrics Functions.

// RecordDatasetLoaded counts a dataset load with result "ok" or "error".
func RecordDatasetLoaded(result string) {
	globalManager.datasetsLoaded.WithLabelValues(result).Inc()
}

// RecordDatasetLoadDuration records the build time of a session in milliseconds.
func RecordDatasetLoadDuration(ms float64) {
	globalManager.datasetLoadDuration.Observe(ms)
}

// UpdateDatasetShape sets the gauges describing the current dataset.
func UpdateDatasetShape(genes, respondents, surveyColumns, ignoredColumns int) {
	globalManager.genesRecognized.Set(float64(genes))
	globalManager.respondents.Set(float64(respondents))
	globalManager.surveyColumns.Set(float64(surveyColumns))
	globalManager.ignoredColumns.Set(float64(ignoredColumns))
}

// RecordAmbiguousHeaders adds n ambiguous headers.
func RecordAmbiguousHeaders(n int) {
	if n > 0 {
		globalManager.ambiguousHeaders.Add(float64(n))
	}
}

// RecordDroppedValues adds n unrecognized response values.
func RecordDroppedValues(n int) {
	if n > 0 {
		globalManager.droppedValues.Add(float64(n))
	}
}

// UpdateRecommendations replaces the per-category gene counts.
func UpdateRecommendations(counts map[string]int) {
	globalManager.recommendations.Reset()
	for category, n := range counts {
		globalManager.recommendations.WithLabelValues(category).Set(float64(n))
	}
}

// Review Ledger Metrics Functions.

// RecordReviewSaved counts a saved review by decision.
func RecordReviewSaved(decision string) {
	if decision == "" {
		decision = "notes_only"
	}
	globalManager.reviewsRecorded.WithLabelValues(decision).Inc()
}

// RecordReviewCleared counts a cleared review.
func RecordReviewCleared() {
	globalManager.reviewsCleared.Inc()
}

// UpdateReviewsStored sets the number of stored reviews.
func UpdateReviewsStored(n int) {
	globalManager.reviewsStored.Set(float64(n))
}

// RecordLedgerLatency records a ledger operation latency in milliseconds.
func RecordLedgerLatency(backend, operation string, ms float64) {
	globalManager.ledgerLatency.WithLabelValues(backend, operation).Observe(ms)
}

// Export Metrics Functions.

// RecordExport counts an export of the given format and its row count.
func RecordExport(format string, rows int) {
	globalManager.exportsGenerated.WithLabelValues(format).Inc()
	globalManager.exportRows.Set(float64(rows))
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Metrics Functions.

// UpdateSystemMemoryUsage sets the allocated heap size in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutines.Set(float64(n))
}

// RecordSystemGCPauseTime sets the average GC pause in milliseconds.
func RecordSystemGCPauseTime(ms float64) {
	globalManager.systemGCPauseMillis.Set(ms)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
