// Package metrics provides Prometheus metrics for the SongLab service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultNamespace       = "songlab"
	defaultRefreshInterval = 10 * time.Second
)

// defaultSNRBuckets spans the clamped SNR range in 5 dB steps.
var defaultSNRBuckets = []float64{0, 5, 10, 15, 20, 25, 30, 35, 40} //nolint:gochecknoglobals // fixed bucket layout

// Manager manages all Prometheus metrics for the SongLab service.
type Manager struct {
	namespace       string
	subsystem       string
	latencyBuckets  []float64
	snrBuckets      []float64
	refreshInterval time.Duration
	constLabels     map[string]string
	registry        prometheus.Registerer

	// Monitor Metrics - live input quality
	monitorTicks         prometheus.Counter
	monitorsActive       prometheus.Gauge
	monitorSNR           prometheus.Histogram
	monitorQuality       *prometheus.CounterVec
	monitorStartFailures *prometheus.CounterVec

	// Scoring Metrics - report production
	reportsScored    prometheus.Counter
	scoringLatency   prometheus.Histogram
	scoringFallbacks *prometheus.CounterVec
	resultsDuplicate prometheus.Counter

	// Queue Metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker Metrics
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Repository Metrics
	storedReports   prometheus.Gauge
	reportEvictions prometheus.Counter

	// HTTP Metrics
	httpRequests         *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	websocketConnections prometheus.Gauge

	// Error Metrics
	errorsByComponent *prometheus.CounterVec

	// System Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       defaultNamespace,
		latencyBuckets:  prometheus.DefBuckets,
		snrBuckets:      defaultSNRBuckets,
		refreshInterval: defaultRefreshInterval,
		constLabels:     make(map[string]string),
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often gauge-style system metrics should be sampled.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) opts(name, help string) prometheus.Opts {
	return prometheus.Opts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	o := m.opts(name, help)
	return prometheus.HistogramOpts{
		Namespace:   o.Namespace,
		Subsystem:   o.Subsystem,
		Name:        o.Name,
		Help:        o.Help,
		ConstLabels: o.ConstLabels,
		Buckets:     buckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.monitorTicks = auto.NewCounter(prometheus.CounterOpts(m.opts(
		"monitor_ticks_total", "Total number of monitor sampling ticks")))
	m.monitorsActive = auto.NewGauge(prometheus.GaugeOpts(m.opts(
		"monitors_active", "Number of monitors currently sampling a stream")))
	m.monitorSNR = auto.NewHistogram(m.histogramOpts(
		"monitor_snr_db", "Distribution of estimated signal-to-noise ratio in dB", m.snrBuckets))
	m.monitorQuality = auto.NewCounterVec(prometheus.CounterOpts(m.opts(
		"monitor_quality_total", "Snapshots published by quality class")), []string{"class"})
	m.monitorStartFailures = auto.NewCounterVec(prometheus.CounterOpts(m.opts(
		"monitor_start_failures_total", "Stream acquisition failures by kind")), []string{"kind"})

	m.reportsScored = auto.NewCounter(prometheus.CounterOpts(m.opts(
		"reports_scored_total", "Total number of analysis results turned into reports")))
	m.scoringLatency = auto.NewHistogram(m.histogramOpts(
		"scoring_latency_milliseconds", "Histogram of report evaluation latency in milliseconds", m.latencyBuckets))
	m.scoringFallbacks = auto.NewCounterVec(prometheus.CounterOpts(m.opts(
		"scoring_fallbacks_total", "Axis values replaced by a fallback because the metric was missing or unusable")),
		[]string{"axis"})
	m.resultsDuplicate = auto.NewCounter(prometheus.CounterOpts(m.opts(
		"results_duplicate_total", "Total number of duplicate result submissions")))

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts(m.opts(
		"queue_size", "Current number of queued submissions")))
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts(m.opts(
		"queue_capacity", "Maximum number of queued submissions")))
	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts(m.opts(
		"queue_utilization_ratio", "Queue fill ratio between 0 and 1")))
	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts(m.opts(
		"queue_enqueued_total", "Total number of submissions enqueued")))
	m.queueDequeued = auto.NewCounter(prometheus.CounterOpts(m.opts(
		"queue_dequeued_total", "Total number of submissions handed to workers")))
	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts(m.opts(
		"queue_enqueue_errors_total", "Total number of rejected enqueue attempts")))

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts(m.opts(
		"worker_count", "Number of running scoring workers")))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts(
		"worker_processing_latency_milliseconds", "Time a worker spends on one submission in milliseconds", m.latencyBuckets))
	m.workerErrors = auto.NewCounter(prometheus.CounterOpts(m.opts(
		"worker_errors_total", "Total number of submissions a worker failed to store")))

	m.storedReports = auto.NewGauge(prometheus.GaugeOpts(m.opts(
		"stored_reports", "Number of reports held in memory")))
	m.reportEvictions = auto.NewCounter(prometheus.CounterOpts(m.opts(
		"report_evictions_total", "Reports dropped to stay within store capacity")))

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts(m.opts(
		"http_requests_total", "Total number of HTTP requests by endpoint and method")),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts(
		"http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.latencyBuckets),
		[]string{"endpoint", "method", "status_code"})
	m.websocketConnections = auto.NewGauge(prometheus.GaugeOpts(m.opts(
		"websocket_connections", "Open monitor websocket connections")))

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts(m.opts(
		"errors_total", "Errors by component and type")), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts(m.opts(
		"system_memory_bytes", "Heap bytes in use")))
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts(m.opts(
		"system_goroutines", "Number of running goroutines")))
}

// RefreshInterval returns the sampling interval of the global manager.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// Monitor metrics

// RecordMonitorTick counts one sampling tick.
func RecordMonitorTick() {
	globalManager.monitorTicks.Inc()
}

// UpdateMonitorsActive adjusts the active monitor gauge by delta.
func UpdateMonitorsActive(delta int) {
	globalManager.monitorsActive.Add(float64(delta))
}

// RecordMonitorSNR observes an SNR estimate.
func RecordMonitorSNR(db float64) {
	globalManager.monitorSNR.Observe(db)
}

// RecordMonitorQuality counts a snapshot by its quality class.
func RecordMonitorQuality(class string) {
	globalManager.monitorQuality.WithLabelValues(class).Inc()
}

// RecordMonitorStartFailure counts a failed stream acquisition.
func RecordMonitorStartFailure(kind string) {
	globalManager.monitorStartFailures.WithLabelValues(kind).Inc()
}

// Scoring metrics

// RecordReportScored counts one produced report.
func RecordReportScored() {
	globalManager.reportsScored.Inc()
}

// RecordScoringLatency records evaluation latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordScoringFallback counts a fallback substitution on an axis.
func RecordScoringFallback(axis string) {
	globalManager.scoringFallbacks.WithLabelValues(axis).Inc()
}

// RecordResultDuplicate counts a duplicate submission.
func RecordResultDuplicate() {
	globalManager.resultsDuplicate.Inc()
}

// Queue metrics

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts a successful enqueue.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker metrics

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records per-submission latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed submission.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Repository metrics

// UpdateStoredReports sets the number of stored reports.
func UpdateStoredReports(count int) {
	globalManager.storedReports.Set(float64(count))
}

// RecordReportEviction counts an evicted report.
func RecordReportEviction() {
	globalManager.reportEvictions.Inc()
}

// HTTP metrics

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateWebsocketConnections adjusts the open websocket gauge by delta.
func UpdateWebsocketConnections(delta int) {
	globalManager.websocketConnections.Add(float64(delta))
}

// Error metrics

// RecordErrorByComponent counts an error raised by a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System metrics

// UpdateSystemMemoryUsage sets heap bytes in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
