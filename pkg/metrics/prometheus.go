// Package metrics provides Prometheus metrics for the httcp selection service.
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every metric of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Selection metrics
	eventsProcessed  *prometheus.CounterVec
	eventsDuplicate  prometheus.Counter
	eventsSelected   *prometheus.CounterVec
	pairsGenerated   *prometheus.CounterVec
	cutPairs         *prometheus.CounterVec
	cutEvents        *prometheus.CounterVec
	tieBreakStages   *prometheus.CounterVec
	selectionLatency prometheus.Histogram
	selectionErrors  prometheus.Counter

	// Queue metrics
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueEnqueue           prometheus.Counter
	queueDequeue           prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Cutflow store metrics
	repositoryUpdateLatency prometheus.Histogram
	repositoryEvents        prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorsByComponent *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "httcp",
		subsystem:        "selection",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.eventsProcessed = auto.NewCounterVec(
		m.counterOpts("events_processed_total", "Total number of events run through the pair selection"),
		[]string{"channel"},
	)
	m.eventsDuplicate = auto.NewCounter(
		m.counterOpts("events_duplicate_total", "Total number of events skipped as already seen (run, lumi, event)"),
	)
	m.eventsSelected = auto.NewCounterVec(
		m.counterOpts("events_selected_total", "Total number of events with a selected pair"),
		[]string{"channel"},
	)
	m.pairsGenerated = auto.NewCounterVec(
		m.counterOpts("pairs_generated_total", "Total number of candidate pairs before preselection"),
		[]string{"channel"},
	)
	m.cutPairs = auto.NewCounterVec(
		m.counterOpts("cut_pairs_total", "Pairs surviving each cumulative preselection step"),
		[]string{"channel", "step"},
	)
	m.cutEvents = auto.NewCounterVec(
		m.counterOpts("cut_events_total", "Events with at least one pair surviving each cumulative preselection step"),
		[]string{"channel", "step"},
	)
	m.tieBreakStages = auto.NewCounterVec(
		m.counterOpts("tiebreak_stage_total", "Events by the tie-break stage that decided them"),
		[]string{"channel", "stage"},
	)
	m.selectionLatency = auto.NewHistogram(
		m.histogramOpts("selection_latency_milliseconds", "Latency of one selection chunk in milliseconds", m.histogramBuckets),
	)
	m.selectionErrors = auto.NewCounter(
		m.counterOpts("selection_errors_total", "Total number of rejected selection inputs"),
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current number of queued chunk jobs"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueEnqueue = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Total number of jobs enqueued"))
	m.queueDequeue = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Total number of jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Total number of rejected enqueues"))
	m.queueProcessingLatency = auto.NewHistogram(
		m.histogramOpts("queue_processing_latency_milliseconds", "Time a job spent queued in milliseconds", m.histogramBuckets),
	)

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Number of started workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Number of workers currently processing a job"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Worker job processing latency in milliseconds", m.histogramBuckets),
	)
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Total number of failed worker jobs"))

	m.repositoryUpdateLatency = auto.NewHistogram(
		m.histogramOpts("repository_update_latency_milliseconds", "Cutflow store update latency in milliseconds", m.histogramBuckets),
	)
	m.repositoryEvents = auto.NewGauge(m.gaugeOpts("repository_events", "Events accumulated in the cutflow store"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "Most recent GC pause in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// RecordEventsProcessed adds n processed events for channel.
func (m *Manager) RecordEventsProcessed(channel string, n int) {
	if m.enabled {
		m.eventsProcessed.WithLabelValues(channel).Add(float64(n))
	}
}

// RecordEventDuplicate increments the duplicate events counter.
func (m *Manager) RecordEventDuplicate() {
	if m.enabled {
		m.eventsDuplicate.Inc()
	}
}

// RecordEventsSelected adds n events with a selected pair.
func (m *Manager) RecordEventsSelected(channel string, n int) {
	if m.enabled {
		m.eventsSelected.WithLabelValues(channel).Add(float64(n))
	}
}

// RecordPairsGenerated adds n raw candidate pairs.
func (m *Manager) RecordPairsGenerated(channel string, n int) {
	if m.enabled {
		m.pairsGenerated.WithLabelValues(channel).Add(float64(n))
	}
}

// RecordCutStep adds the pair and event survivors of one cut step.
func (m *Manager) RecordCutStep(channel, step string, pairs, events int) {
	if m.enabled {
		m.cutPairs.WithLabelValues(channel, step).Add(float64(pairs))
		m.cutEvents.WithLabelValues(channel, step).Add(float64(events))
	}
}

// RecordTieBreakStage increments the counter of the deciding tie-break stage.
func (m *Manager) RecordTieBreakStage(channel, stage string) {
	if m.enabled {
		m.tieBreakStages.WithLabelValues(channel, stage).Inc()
	}
}

// RecordSelectionLatency records the latency of one selection chunk.
func (m *Manager) RecordSelectionLatency(latencyMs float64) {
	if m.enabled {
		m.selectionLatency.Observe(latencyMs)
	}
}

// RecordSelectionError increments the selection errors counter.
func (m *Manager) RecordSelectionError() {
	if m.enabled {
		m.selectionErrors.Inc()
	}
}

// UpdateQueueSize sets the current queue size.
func (m *Manager) UpdateQueueSize(size int) {
	if m.enabled {
		m.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func (m *Manager) UpdateQueueCapacity(capacity int) {
	if m.enabled {
		m.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func (m *Manager) RecordQueueEnqueue() {
	if m.enabled {
		m.queueEnqueue.Inc()
	}
}

// RecordQueueDequeue increments the dequeue counter.
func (m *Manager) RecordQueueDequeue() {
	if m.enabled {
		m.queueDequeue.Inc()
	}
}

// RecordQueueEnqueueError increments the enqueue error counter.
func (m *Manager) RecordQueueEnqueueError() {
	if m.enabled {
		m.queueEnqueueErrors.Inc()
	}
}

// RecordQueueProcessingLatency records how long a job waited in the queue.
func (m *Manager) RecordQueueProcessingLatency(latencyMs float64) {
	if m.enabled {
		m.queueProcessingLatency.Observe(latencyMs)
	}
}

// UpdateWorkerCount sets the number of started workers.
func (m *Manager) UpdateWorkerCount(count int) {
	if m.enabled {
		m.workerCount.Set(float64(count))
	}
}

// AddWorkerActive moves the active worker gauge by delta.
func (m *Manager) AddWorkerActive(delta int) {
	if m.enabled {
		m.workerActiveCount.Add(float64(delta))
	}
}

// RecordWorkerProcessingLatency records worker processing latency.
func (m *Manager) RecordWorkerProcessingLatency(latencyMs float64) {
	if m.enabled {
		m.workerProcessingLatency.Observe(latencyMs)
	}
}

// RecordWorkerError increments the worker error counter.
func (m *Manager) RecordWorkerError() {
	if m.enabled {
		m.workerErrors.Inc()
	}
}

// RecordRepositoryUpdateLatency records cutflow store update latency.
func (m *Manager) RecordRepositoryUpdateLatency(latencyMs float64) {
	if m.enabled {
		m.repositoryUpdateLatency.Observe(latencyMs)
	}
}

// UpdateRepositoryEvents sets the number of events in the cutflow store.
func (m *Manager) UpdateRepositoryEvents(n int64) {
	if m.enabled {
		m.repositoryEvents.Set(float64(n))
	}
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if m.enabled {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	if m.enabled {
		m.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// CollectSystemMetrics samples runtime memory, goroutine and GC figures.
func (m *Manager) CollectSystemMetrics() {
	if !m.enabled {
		return
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.systemMemoryUsage.Set(float64(ms.HeapInuse))
	m.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
	if ms.NumGC > 0 {
		pause := ms.PauseNs[(ms.NumGC+255)%256]
		m.systemGCPauseTime.Observe(float64(pause) / float64(time.Millisecond))
	}
}

// RunSystemCollector samples system metrics every refresh interval until ctx
// is done.
func (m *Manager) RunSystemCollector(ctx context.Context) {
	t := time.NewTicker(m.refreshInterval)
	defer t.Stop()
	for {
		m.CollectSystemMetrics()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Global shortcuts on the default manager.

func RecordEventsProcessed(channel string, n int)   { globalManager.RecordEventsProcessed(channel, n) }
func RecordEventDuplicate()                         { globalManager.RecordEventDuplicate() }
func RecordEventsSelected(channel string, n int)    { globalManager.RecordEventsSelected(channel, n) }
func RecordPairsGenerated(channel string, n int)    { globalManager.RecordPairsGenerated(channel, n) }
func RecordTieBreakStage(channel, stage string)     { globalManager.RecordTieBreakStage(channel, stage) }
func RecordSelectionLatency(latencyMs float64)      { globalManager.RecordSelectionLatency(latencyMs) }
func RecordSelectionError()                         { globalManager.RecordSelectionError() }
func UpdateQueueSize(size int)                      { globalManager.UpdateQueueSize(size) }
func UpdateQueueCapacity(capacity int)              { globalManager.UpdateQueueCapacity(capacity) }
func RecordQueueEnqueue()                           { globalManager.RecordQueueEnqueue() }
func RecordQueueDequeue()                           { globalManager.RecordQueueDequeue() }
func RecordQueueEnqueueError()                      { globalManager.RecordQueueEnqueueError() }
func RecordQueueProcessingLatency(latency float64)  { globalManager.RecordQueueProcessingLatency(latency) }
func UpdateWorkerCount(count int)                   { globalManager.UpdateWorkerCount(count) }
func AddWorkerActive(delta int)                     { globalManager.AddWorkerActive(delta) }
func RecordWorkerProcessingLatency(latency float64) { globalManager.RecordWorkerProcessingLatency(latency) }
func RecordWorkerError()                            { globalManager.RecordWorkerError() }
func RecordRepositoryUpdateLatency(latency float64) { globalManager.RecordRepositoryUpdateLatency(latency) }
func UpdateRepositoryEvents(n int64)                { globalManager.UpdateRepositoryEvents(n) }
func RecordErrorByComponent(component, errType string) {
	globalManager.RecordErrorByComponent(component, errType)
}

// RecordCutStep adds the survivors of one cut step on the default manager.
func RecordCutStep(channel, step string, pairs, events int) {
	globalManager.RecordCutStep(channel, step, pairs, events)
}

// RecordHTTPRequest records an HTTP request on the default manager.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RunSystemCollector runs the default manager's system collector.
func RunSystemCollector(ctx context.Context) { globalManager.RunSystemCollector(ctx) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
