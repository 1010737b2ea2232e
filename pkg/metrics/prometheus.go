// Package metrics provides Prometheus metrics for the tabulation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the tabulation service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Business metrics
	tabulationsTotal      prometheus.Counter
	advancementsTotal     prometheus.Counter
	advancementUndosTotal prometheus.Counter
	scoresheetsCreated    prometheus.Counter
	scoresheetsSubmitted  prometheus.Counter

	// Recompute pipeline
	recomputeLatency  prometheus.Histogram
	recomputeErrors   prometheus.Counter
	pendingRecomputes prometheus.Gauge

	// Queue health
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueTotal  prometheus.Counter
	queueDequeueTotal  prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker health
	workerCount             prometheus.Gauge
	workerErrors            prometheus.Counter
	workerProcessingLatency prometheus.Histogram

	// Scale
	totalTeams prometheus.Gauge

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "emdc",
		subsystem:        "tabulation",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.tabulationsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tabulations_total",
		Help:      "Total number of full contest tabulation runs",
	})

	m.advancementsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "advancements_total",
		Help:      "Total number of successful round advancements",
	})

	m.advancementUndosTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "advancement_undos_total",
		Help:      "Total number of successful advancement undos",
	})

	m.scoresheetsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoresheets_created_total",
		Help:      "Total number of blank scoresheets provisioned",
	})

	m.scoresheetsSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoresheets_submitted_total",
		Help:      "Total number of scoresheet submissions recorded",
	})

	m.recomputeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_latency_milliseconds",
		Help:      "Histogram of score recompute latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.recomputeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_errors_total",
		Help:      "Total number of background recompute failures",
	})

	m.pendingRecomputes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pending_recomputes",
		Help:      "Number of contests with a recompute currently pending",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the recompute task queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Configured capacity of the recompute task queue",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_ratio",
		Help:      "Queue utilization ratio (size / capacity)",
	})

	m.queueEnqueueTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_total",
		Help:      "Total number of tasks enqueued",
	})

	m.queueDequeueTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeue_total",
		Help:      "Total number of tasks dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total number of rejected enqueue attempts",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Current number of recompute workers",
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total number of worker processing errors",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Histogram of per-task worker processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.totalTeams = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "total_teams",
		Help:      "Total number of teams tracked by the store",
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

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total errors by component and error type",
		},
		[]string{"component", "error_type"},
	)
}

// Business metrics functions.

// RecordTabulation increments the tabulation run counter.
func RecordTabulation() { globalManager.tabulationsTotal.Inc() }

// RecordAdvancement increments the advancement counter.
func RecordAdvancement() { globalManager.advancementsTotal.Inc() }

// RecordAdvancementUndo increments the advancement undo counter.
func RecordAdvancementUndo() { globalManager.advancementUndosTotal.Inc() }

// RecordScoresheetCreated increments the provisioned scoresheet counter.
func RecordScoresheetCreated() { globalManager.scoresheetsCreated.Inc() }

// RecordScoresheetSubmitted increments the submission counter.
func RecordScoresheetSubmitted() { globalManager.scoresheetsSubmitted.Inc() }

// Recompute pipeline functions.

// RecordRecomputeLatency records recompute latency in milliseconds.
func RecordRecomputeLatency(latencyMs float64) { globalManager.recomputeLatency.Observe(latencyMs) }

// RecordRecomputeError increments the background recompute failure counter.
func RecordRecomputeError() { globalManager.recomputeErrors.Inc() }

// UpdatePendingRecomputes sets the number of pending recomputes.
func UpdatePendingRecomputes(n int64) { globalManager.pendingRecomputes.Set(float64(n)) }

// Queue metrics functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(ratio float64) { globalManager.queueUtilization.Set(ratio) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueueTotal.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeueTotal.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// Worker metrics functions.

// UpdateWorkerCount sets the number of recompute workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordWorkerProcessingLatency records per-task processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// Scale metrics functions.

// UpdateTotalTeams sets the total number of teams tracked.
func UpdateTotalTeams(count int) { globalManager.totalTeams.Set(float64(count)) }

// HTTP metrics functions.

// RecordHTTPRequest records an HTTP request by endpoint, method and status.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Error metrics functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
