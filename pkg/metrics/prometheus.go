// Package metrics provides Prometheus metrics for the pitwall feature pipeline.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// stageBuckets are in seconds; a full historical build sits well under a minute.
var stageBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Manager manages all Prometheus metrics for the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Pipeline volume
	resultRowsLoaded   prometheus.Counter
	qualifyingLoaded   prometheus.Counter
	featureRowsEmitted prometheus.Counter
	partitionRows      *prometheus.GaugeVec
	positiveRate       *prometheus.GaugeVec

	// Run health
	runsTotal        *prometheus.CounterVec
	violationsTotal  *prometheus.CounterVec
	lastRunTimestamp prometheus.Gauge
	lastRunDuration  prometheus.Gauge
	stageDuration    *prometheus.HistogramVec

	// Aggregation fan-out
	partitionScans prometheus.Counter
	scanErrors     prometheus.Counter
	workerCount    prometheus.Gauge
	queueSize      prometheus.Gauge
	queueCapacity  prometheus.Gauge

	// Read API
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	publishedRows       prometheus.Gauge

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pitwall",
		subsystem:        "features",
		histogramBuckets: stageBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.resultRowsLoaded = m.counter("result_rows_loaded_total", "Result rows read from the warehouse")
	m.qualifyingLoaded = m.counter("qualifying_rows_loaded_total", "Qualifying rows read from the warehouse")
	m.featureRowsEmitted = m.counter("feature_rows_emitted_total", "Feature rows produced by the assembler")
	m.partitionRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "partition_rows",
		Help: "Feature rows per temporal partition in the last successful run",
	}, []string{"partition"})
	m.positiveRate = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "target_positive_rate",
		Help: "Share of positive labels per target and partition in the last successful run",
	}, []string{"target", "partition"})

	m.runsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "runs_total",
		Help: "Pipeline runs by outcome",
	}, []string{"status"})
	m.violationsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "violations_total",
		Help: "Fatal input violations by kind (schema, ordering)",
	}, []string{"kind"})
	m.lastRunTimestamp = m.gauge("last_run_timestamp_seconds", "Unix time of the last finished run")
	m.lastRunDuration = m.gauge("last_run_duration_seconds", "Wall time of the last finished run")
	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: m.histogramBuckets,
	}, []string{"stage"})

	m.partitionScans = m.counter("partition_scans_total", "Grouping-key partitions scanned by the aggregator")
	m.scanErrors = m.counter("partition_scan_errors_total", "Partition scans that returned an error")
	m.workerCount = m.gauge("worker_count", "Workers in the aggregation pool")
	m.queueSize = m.gauge("queue_size", "Partition jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the partition job queue")

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.publishedRows = m.gauge("published_rows", "Rows in the feature table currently served")

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "errors_total",
		Help: "Errors by component and type",
	}, []string{"component", "error_type"})
}

// Pipeline volume.

// AddResultRowsLoaded counts result rows read from the warehouse.
func AddResultRowsLoaded(n int) { globalManager.resultRowsLoaded.Add(float64(n)) }

// AddQualifyingRowsLoaded counts qualifying rows read from the warehouse.
func AddQualifyingRowsLoaded(n int) { globalManager.qualifyingLoaded.Add(float64(n)) }

// AddFeatureRowsEmitted counts rows produced by the assembler.
func AddFeatureRowsEmitted(n int) { globalManager.featureRowsEmitted.Add(float64(n)) }

// SetPartitionRows records the row count of a temporal partition.
func SetPartitionRows(partition string, n int) {
	globalManager.partitionRows.WithLabelValues(partition).Set(float64(n))
}

// SetTargetPositiveRate records the positive label share of a target within a partition.
func SetTargetPositiveRate(target, partition string, rate float64) {
	globalManager.positiveRate.WithLabelValues(target, partition).Set(rate)
}

// Run health.

// RecordRun records a finished run with its outcome and wall time in seconds.
func RecordRun(status string, unixSeconds, durationSeconds float64) {
	globalManager.runsTotal.WithLabelValues(status).Inc()
	globalManager.lastRunTimestamp.Set(unixSeconds)
	globalManager.lastRunDuration.Set(durationSeconds)
}

// RecordViolation counts a fatal input violation by kind.
func RecordViolation(kind string) {
	globalManager.violationsTotal.WithLabelValues(kind).Inc()
}

// ObserveStage records how long a pipeline stage took, in seconds.
func ObserveStage(stage string, seconds float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// Aggregation fan-out.

// RecordPartitionScan counts one scanned partition.
func RecordPartitionScan() { globalManager.partitionScans.Inc() }

// RecordScanError counts one failed partition scan.
func RecordScanError() { globalManager.scanErrors.Inc() }

// UpdateWorkerCount sets the number of workers in the pool.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateQueueSize sets the number of queued jobs.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// Read API.

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, seconds float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}

// UpdatePublishedRows sets the number of rows in the served table.
func UpdatePublishedRows(n int) { globalManager.publishedRows.Set(float64(n)) }

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the current registry in text exposition format to
// path, creating parent directories. Batch runs use it in place of a scrape.
func WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}
