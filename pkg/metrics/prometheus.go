// Package metrics provides Prometheus metrics for the SailRank service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Rating engine
	eventsAggregated     prometheus.Counter
	divisionsAggregated  prometheus.Counter
	divisionsSkipped     prometheus.Counter
	pairwiseComparisons  prometheus.Counter
	ratingUpdates        prometheus.Counter
	recalculations       prometheus.Counter
	recalculationLatency prometheus.Histogram
	decayedParticipants  prometheus.Counter

	// Ingestion
	submissions     *prometheus.CounterVec
	resultsIngested *prometheus.CounterVec
	ingestLatency   prometheus.Histogram

	// Queue and worker
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec
	workerLatency      prometheus.Histogram
	workerErrors       prometheus.Counter

	// Standings
	participantsTotal prometheus.Gauge
	eventsTotal       prometheus.Gauge
	standingsRebuild  prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // package-level recording helpers need a singleton

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // shared registry served at /metrics

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sailrank",
		subsystem:        "ratings",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.eventsAggregated = m.counter("events_aggregated_total", "Events whose divisions were aggregated incrementally")
	m.divisionsAggregated = m.counter("divisions_aggregated_total", "Divisions whose rating deltas were applied")
	m.divisionsSkipped = m.counter("divisions_skipped_total", "Divisions skipped for having fewer than two results")
	m.pairwiseComparisons = m.counter("pairwise_comparisons_total", "Pairwise comparisons evaluated")
	m.ratingUpdates = m.counter("rating_updates_total", "Participant rating updates written")
	m.recalculations = m.counter("recalculations_total", "Full rating recalculations completed")
	m.recalculationLatency = m.histogram("recalculation_duration_milliseconds", "Duration of full rating recalculations")
	m.decayedParticipants = m.counter("decayed_participants_total", "Participants whose rating was decayed for inactivity")

	m.submissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "submissions_total", Help: "Result submissions by outcome",
	}, []string{"outcome"})
	m.resultsIngested = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "results_ingested_total", Help: "Results written by ingestion, by kind",
	}, []string{"kind"})
	m.ingestLatency = m.histogram("ingest_duration_milliseconds", "Time to ingest and aggregate one submission")

	m.queueSize = m.gauge("queue_size", "Submissions waiting in the ingestion queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the ingestion queue")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Submissions enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Submissions dequeued")
	m.queueEnqueueErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_enqueue_errors_total", Help: "Rejected enqueues by reason",
	}, []string{"reason"})
	m.workerLatency = m.histogram("worker_processing_milliseconds", "Worker time per submission")
	m.workerErrors = m.counter("worker_errors_total", "Submissions the worker failed to process")

	m.participantsTotal = m.gauge("participants_total", "Participants in the standings")
	m.eventsTotal = m.gauge("events_total", "Events known to the store")
	m.standingsRebuild = m.histogram("standings_rebuild_milliseconds", "Time to rebuild the standings index")

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total", Help: "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_request_duration_milliseconds", Help: "HTTP request duration",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_errors_total", Help: "HTTP error responses by endpoint and type",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause")
}

// RecordEventAggregated counts an incrementally aggregated event.
func RecordEventAggregated() { globalManager.eventsAggregated.Inc() }

// RecordDivisionAggregated counts an applied division, its comparisons and
// the number of participants whose ratings were written.
func RecordDivisionAggregated(comparisons, participants int) {
	globalManager.divisionsAggregated.Inc()
	globalManager.pairwiseComparisons.Add(float64(comparisons))
	globalManager.ratingUpdates.Add(float64(participants))
}

// RecordDivisionSkipped counts a division too small to compare.
func RecordDivisionSkipped() { globalManager.divisionsSkipped.Inc() }

// RecordRecalculation records a completed full recalculation.
func RecordRecalculation(durationMs float64) {
	globalManager.recalculations.Inc()
	globalManager.recalculationLatency.Observe(durationMs)
}

// RecordDecayApplied counts participants decayed for inactivity.
func RecordDecayApplied(n int) { globalManager.decayedParticipants.Add(float64(n)) }

// RecordSubmission counts a submission by outcome: accepted, duplicate,
// rejected, failed or processed.
func RecordSubmission(outcome string) { globalManager.submissions.WithLabelValues(outcome).Inc() }

// RecordResultsIngested counts results added and updated by ingestion.
func RecordResultsIngested(added, updated int) {
	globalManager.resultsIngested.WithLabelValues("added").Add(float64(added))
	globalManager.resultsIngested.WithLabelValues("updated").Add(float64(updated))
}

// RecordIngestLatency records the time to ingest one submission.
func RecordIngestLatency(ms float64) { globalManager.ingestLatency.Observe(ms) }

// UpdateQueueSize sets the current queue depth.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue counts a successful enqueue.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordWorkerProcessingLatency records worker time per submission.
func RecordWorkerProcessingLatency(ms float64) { globalManager.workerLatency.Observe(ms) }

// RecordWorkerError counts a failed submission.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// UpdateParticipantsTotal sets the standings size.
func UpdateParticipantsTotal(n int) { globalManager.participantsTotal.Set(float64(n)) }

// UpdateEventsTotal sets the number of known events.
func UpdateEventsTotal(n int) { globalManager.eventsTotal.Set(float64(n)) }

// RecordStandingsRebuild records the time to rebuild the standings.
func RecordStandingsRebuild(ms float64) { globalManager.standingsRebuild.Observe(ms) }

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// RecordHTTPError counts an HTTP error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(ms float64) { globalManager.systemGCPauseTime.Observe(ms) }

// GetRegistry returns the registry served at /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
