// Package metrics provides Prometheus metrics for the pnlboard ranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingestion metrics
	updatesAccepted  prometheus.Counter
	updatesDuplicate prometheus.Counter
	updatesRejected  prometheus.Counter

	// Board metrics - the Redis-backed ranking state
	boardUpdateLatency prometheus.Histogram
	boardQueryLatency  prometheus.Histogram
	boardUpdateErrors  prometheus.Counter
	boardQueryErrors   prometheus.Counter
	walletsUpserted    prometheus.Counter
	walletsRemoved     prometheus.Counter
	boardSize          *prometheus.GaugeVec

	// Queue metrics
	queueCapacity      prometheus.Gauge
	queueSize          prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueues      prometheus.Counter
	queueDequeues      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics - batch flushers
	workerActiveCount prometheus.Gauge
	flushLatency      prometheus.Histogram
	flushBatchSize    prometheus.Histogram
	workerErrors      prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "pnlboard",
		subsystem:        "ranking",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // metric declarations are naturally long
	auto := promauto.With(m.registry)

	m.updatesAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "updates_accepted_total",
		Help:      "Total number of PnL updates accepted for processing",
	})

	m.updatesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "updates_duplicate_total",
		Help:      "Total number of duplicate PnL updates dropped by the deduper",
	})

	m.updatesRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "updates_rejected_total",
		Help:      "Total number of PnL updates rejected (bad address or backpressure)",
	})

	m.boardUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "board_update_latency_milliseconds",
		Help:      "Latency of board write round trips in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.boardQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "board_query_latency_milliseconds",
		Help:      "Latency of board read round trips in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.boardUpdateErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "board_update_errors_total",
		Help:      "Total number of failed board writes",
	})

	m.boardQueryErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "board_query_errors_total",
		Help:      "Total number of failed board reads",
	})

	m.walletsUpserted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "wallets_upserted_total",
		Help:      "Total number of wallet score upserts sent to the board",
	})

	m.walletsRemoved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "wallets_removed_total",
		Help:      "Total number of wallet removals sent to the board",
	})

	m.boardSize = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "board_size",
			Help:      "Number of ranked wallets per timeframe",
		},
		[]string{"timeframe"},
	)

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum capacity of the update queue",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the update queue (backlog indicator)",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_ratio",
		Help:      "Queue utilization ratio (size / capacity)",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueues_total",
		Help:      "Total number of updates enqueued",
	})

	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeues_total",
		Help:      "Total number of updates dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total number of rejected enqueues (closed or full queue)",
	})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_active_count",
		Help:      "Current number of batch flush workers",
	})

	m.flushLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "flush_latency_milliseconds",
		Help:      "Latency of worker batch flushes in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.flushBatchSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "flush_batch_size",
		Help:      "Number of updates per flushed batch",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total number of worker flush errors",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_errors_total",
			Help:      "Total number of HTTP error responses by endpoint and type",
		},
		[]string{"endpoint", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordUpdateAccepted increments the accepted updates counter.
func RecordUpdateAccepted() {
	globalManager.updatesAccepted.Inc()
}

// RecordUpdateDuplicate increments the duplicate updates counter.
func RecordUpdateDuplicate() {
	globalManager.updatesDuplicate.Inc()
}

// RecordUpdateRejected increments the rejected updates counter.
func RecordUpdateRejected() {
	globalManager.updatesRejected.Inc()
}

// RecordBoardUpdateLatency records a board write round trip in milliseconds.
func RecordBoardUpdateLatency(latencyMs float64) {
	globalManager.boardUpdateLatency.Observe(latencyMs)
}

// RecordBoardQueryLatency records a board read round trip in milliseconds.
func RecordBoardQueryLatency(latencyMs float64) {
	globalManager.boardQueryLatency.Observe(latencyMs)
}

// RecordBoardUpdateError increments the board write error counter.
func RecordBoardUpdateError() {
	globalManager.boardUpdateErrors.Inc()
}

// RecordBoardQueryError increments the board read error counter.
func RecordBoardQueryError() {
	globalManager.boardQueryErrors.Inc()
}

// RecordWalletsUpserted adds n to the upserted wallets counter.
func RecordWalletsUpserted(n int) {
	globalManager.walletsUpserted.Add(float64(n))
}

// RecordWalletRemoved increments the removed wallets counter.
func RecordWalletRemoved() {
	globalManager.walletsRemoved.Inc()
}

// UpdateBoardSize sets the ranked wallet count for a timeframe.
func UpdateBoardSize(timeframe string, count int64) {
	globalManager.boardSize.WithLabelValues(timeframe).Set(float64(count))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueues.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeues.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerActiveCount sets the number of batch flush workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordFlushLatency records a batch flush duration in milliseconds.
func RecordFlushLatency(latencyMs float64) {
	globalManager.flushLatency.Observe(latencyMs)
}

// RecordFlushBatchSize records the size of a flushed batch.
func RecordFlushBatchSize(size int) {
	globalManager.flushBatchSize.Observe(float64(size))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an HTTP error response.
func RecordHTTPError(endpoint, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, errorType).Inc()
}

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
