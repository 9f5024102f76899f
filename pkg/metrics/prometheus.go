package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Rating
	competitionsApplied   *prometheus.CounterVec
	competitionsDuplicate prometheus.Counter
	upsets                prometheus.Counter
	rankSwing             prometheus.Histogram
	competeLatency        prometheus.Histogram
	competeErrors         prometheus.Counter

	// Selection
	matchupsServed    prometheus.Counter
	selectionFailures *prometheus.CounterVec
	corruptState      prometheus.Counter

	// Totals
	totalTags        prometheus.Gauge
	totalCompetitors prometheus.Gauge
	totalRecords     prometheus.Gauge

	// Store
	storeLatency *prometheus.HistogramVec

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueue           prometheus.Counter
	queueDequeue           prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Autoplay
	autoplayRuns *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
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

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tagrank",
		subsystem:        "rating",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.competitionsApplied = m.counterVec("competitions_applied_total",
		"Competitions applied, by how the winner was decided", "resolution")
	m.competitionsDuplicate = m.counter("competitions_duplicate_total",
		"Competitions rejected because their id was already seen")
	m.upsets = m.counter("upsets_total",
		"Competitions won by the lower rated competitor")
	m.rankSwing = m.histogram("rank_swing",
		"Absolute rank change of the winner per competition",
		[]float64{1, 5, 10, 25, 50, 100, 250, 500, 1000})
	m.competeLatency = m.histogram("compete_latency_milliseconds",
		"Time to load, resolve and persist one competition", m.histogramBuckets)
	m.competeErrors = m.counter("compete_errors_total",
		"Competitions that failed to apply")

	m.matchupsServed = m.counter("matchups_served_total",
		"Random pairings handed out")
	m.selectionFailures = m.counterVec("selection_failures_total",
		"Pair selections that failed, by reason", "reason")
	m.corruptState = m.counter("corrupt_state_total",
		"Duplicate rating records detected")

	m.totalTags = m.gauge("tags", "Number of tags")
	m.totalCompetitors = m.gauge("competitors", "Number of competitors")
	m.totalRecords = m.gauge("rating_records", "Number of rating records")

	m.storeLatency = m.histogramVec("store_latency_milliseconds",
		"Store operation latency in milliseconds", "op")

	m.queueSize = m.gauge("queue_size", "Current size of the competition queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Competitions enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Competitions dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Competitions refused by a full or closed queue")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds",
		"Time from enqueue to apply", m.histogramBuckets)

	m.workerCount = m.gauge("worker_count", "Configured number of workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently applying a competition")
	m.workerIdleCount = m.gauge("worker_idle_count", "Workers waiting for work")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Worker processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Competitions a worker failed to apply")

	m.autoplayRuns = m.counterVec("autoplay_runs_total",
		"Scheduled random competitions, by status", "status")

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Rating.

// RecordCompetitionApplied counts an applied competition; resolution is
// "explicit" or "random".
func RecordCompetitionApplied(resolution string) {
	globalManager.competitionsApplied.WithLabelValues(resolution).Inc()
}

// RecordCompetitionDuplicate counts a resubmitted competition.
func RecordCompetitionDuplicate() {
	globalManager.competitionsDuplicate.Inc()
}

// RecordUpset counts a win by the lower rated competitor.
func RecordUpset() {
	globalManager.upsets.Inc()
}

// RecordRankSwing observes the winner's rank change.
func RecordRankSwing(delta float64) {
	if delta < 0 {
		delta = -delta
	}
	globalManager.rankSwing.Observe(delta)
}

// RecordCompeteLatency records how long one competition took to apply.
func RecordCompeteLatency(latencyMs float64) {
	globalManager.competeLatency.Observe(latencyMs)
}

// RecordCompeteError counts a competition that failed to apply.
func RecordCompeteError() {
	globalManager.competeErrors.Inc()
}

// Selection.

// RecordMatchupServed counts a random pairing.
func RecordMatchupServed() {
	globalManager.matchupsServed.Inc()
}

// RecordSelectionFailure counts a failed selection by reason.
func RecordSelectionFailure(reason string) {
	globalManager.selectionFailures.WithLabelValues(reason).Inc()
}

// RecordCorruptState counts a duplicate rating record.
func RecordCorruptState() {
	globalManager.corruptState.Inc()
}

// UpdateTotals sets the store size gauges.
func UpdateTotals(tags, competitors, records int) {
	globalManager.totalTags.Set(float64(tags))
	globalManager.totalCompetitors.Set(float64(competitors))
	globalManager.totalRecords.Set(float64(records))
}

// RecordStoreLatency records a store operation latency.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records time spent waiting in the queue.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Workers.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordAutoplayRun counts a scheduled run by status.
func RecordAutoplayRun(status string) {
	globalManager.autoplayRuns.WithLabelValues(status).Inc()
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the heap memory in use.
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

// Sum gathers g and returns the total of every counter or gauge sample of
// the named family. Unknown families sum to zero.
func Sum(g prometheus.Gatherer, name string) (float64, error) {
	families, err := g.Gather()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrGatherFailed, err)
	}
	total := 0.0
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, s := range f.GetMetric() {
			switch {
			case s.GetCounter() != nil:
				total += s.GetCounter().GetValue()
			case s.GetGauge() != nil:
				total += s.GetGauge().GetValue()
			}
		}
	}
	return total, nil
}
