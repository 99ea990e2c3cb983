// Package metrics exposes the Prometheus instrumentation for the memory
// engine: episode lifecycle counters, pattern extraction throughput,
// embedding provider call health, storage backend activity, and the
// pattern-extraction queue's depth and worker utilization.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EpisodesRecordedTotal counts episodes persisted through the facade.
	EpisodesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "episodes_recorded_total",
		Help: "Total number of episodes recorded by the memory facade.",
	})

	// EpisodesFilteredTotal counts episodes rejected by the quality gate,
	// by reason.
	EpisodesFilteredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "episodes_filtered_total",
		Help: "Total number of episodes rejected by the quality gate before pattern extraction.",
	}, []string{"reason"})

	// PatternsExtractedTotal counts patterns extracted, by pattern kind.
	PatternsExtractedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patterns_extracted_total",
		Help: "Total number of patterns extracted from completed episodes.",
	}, []string{"pattern_kind"})

	// PatternExtractionDuration records the wall-clock time spent
	// extracting patterns from a single episode.
	PatternExtractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pattern_extraction_duration_seconds",
		Help:    "Duration of pattern extraction for a single episode.",
		Buckets: prometheus.DefBuckets,
	})

	// PatternExtractionErrorsTotal counts pattern extraction failures, by
	// pattern kind and error type.
	PatternExtractionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pattern_extraction_errors_total",
		Help: "Total number of pattern extraction failures.",
	}, []string{"pattern_kind", "error_type"})

	// EmbeddingCallsTotal counts outbound embedding provider calls, by provider.
	EmbeddingCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "embedding_calls_total",
		Help: "Total number of embedding provider calls.",
	}, []string{"provider"})

	// EmbeddingErrorsTotal counts failed embedding provider calls, by
	// provider and error type.
	EmbeddingErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "embedding_errors_total",
		Help: "Total number of failed embedding provider calls.",
	}, []string{"provider", "error_type"})

	// EmbeddingDuration records the latency of an embedding provider call.
	EmbeddingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "embedding_duration_seconds",
		Help:    "Duration of embedding provider calls.",
		Buckets: prometheus.DefBuckets,
	})

	// StorageOperationsTotal counts storage backend operations, by
	// backend (durable/cache) and operation (the backend method, e.g.
	// get_episode or store_pattern).
	StorageOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_operations_total",
		Help: "Total number of storage backend operations.",
	}, []string{"backend", "operation"})

	// StorageOperationErrorsTotal counts storage backend operation failures.
	StorageOperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_operation_errors_total",
		Help: "Total number of storage backend operation failures.",
	}, []string{"backend", "operation"})

	// QueuePendingEpisodes is the current depth of the pattern extraction queue.
	QueuePendingEpisodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "queue_pending_episodes",
		Help: "Current number of episodes waiting in the pattern extraction queue.",
	})

	// QueueActiveWorkers is the current number of busy pattern extraction workers.
	QueueActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "queue_active_workers",
		Help: "Current number of pattern extraction workers processing an episode.",
	})

	// CircuitBreakerState reports each named circuit breaker's state: 0
	// closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Current state of a named circuit breaker (0=closed, 1=half_open, 2=open).",
	}, []string{"breaker"})

	// QueryCacheHitsTotal counts query cache hits, by cache name.
	QueryCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "query_cache_hits_total",
		Help: "Total number of query cache hits.",
	}, []string{"cache"})

	// QueryCacheMissesTotal counts query cache misses, by cache name.
	QueryCacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "query_cache_misses_total",
		Help: "Total number of query cache misses.",
	}, []string{"cache"})

	// FacadeRequestsTotal counts top-level facade calls, by outcome status.
	FacadeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "facade_requests_total",
		Help: "Total number of memory facade requests, by status.",
	}, []string{"status"})
)

// RecordEpisodeRecorded increments the episodes-recorded counter.
func RecordEpisodeRecorded() {
	EpisodesRecordedTotal.Inc()
}

// RecordEpisodeFiltered increments the episodes-filtered counter for reason.
func RecordEpisodeFiltered(reason string) {
	EpisodesFilteredTotal.WithLabelValues(reason).Inc()
}

// RecordPatternExtracted increments the patterns-extracted counter for kind.
func RecordPatternExtracted(kind string) {
	PatternsExtractedTotal.WithLabelValues(kind).Inc()
}

// RecordPatternExtractionDuration observes d in the extraction duration histogram.
func RecordPatternExtractionDuration(d time.Duration) {
	PatternExtractionDuration.Observe(d.Seconds())
}

// RecordPatternExtractionError increments the extraction error counter.
func RecordPatternExtractionError(kind, errorType string) {
	PatternExtractionErrorsTotal.WithLabelValues(kind, errorType).Inc()
}

// RecordEmbeddingCall increments the embedding calls counter for provider.
func RecordEmbeddingCall(provider string) {
	EmbeddingCallsTotal.WithLabelValues(provider).Inc()
}

// RecordEmbeddingError increments the embedding errors counter.
func RecordEmbeddingError(provider, errorType string) {
	EmbeddingErrorsTotal.WithLabelValues(provider, errorType).Inc()
}

// RecordEmbeddingDuration observes d in the embedding duration histogram.
func RecordEmbeddingDuration(d time.Duration) {
	EmbeddingDuration.Observe(d.Seconds())
}

// RecordStorageOperation increments the storage operations counter.
func RecordStorageOperation(backend, operation string) {
	StorageOperationsTotal.WithLabelValues(backend, operation).Inc()
}

// RecordStorageOperationError increments the storage operation errors counter.
func RecordStorageOperationError(backend, operation string) {
	StorageOperationErrorsTotal.WithLabelValues(backend, operation).Inc()
}

// SetQueuePending sets the current pattern extraction queue depth.
func SetQueuePending(n float64) {
	QueuePendingEpisodes.Set(n)
}

// IncrementActiveWorkers increments the active-workers gauge.
func IncrementActiveWorkers() {
	QueueActiveWorkers.Inc()
}

// DecrementActiveWorkers decrements the active-workers gauge.
func DecrementActiveWorkers() {
	QueueActiveWorkers.Dec()
}

// SetCircuitBreakerState sets the named breaker's state gauge (0/1/2).
func SetCircuitBreakerState(breaker string, state float64) {
	CircuitBreakerState.WithLabelValues(breaker).Set(state)
}

// RecordCacheHit increments the query cache hit counter.
func RecordCacheHit(cache string) {
	QueryCacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss increments the query cache miss counter.
func RecordCacheMiss(cache string) {
	QueryCacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordFacadeRequest increments the facade requests counter for status.
func RecordFacadeRequest(status string) {
	FacadeRequestsTotal.WithLabelValues(status).Inc()
}

// Timer measures elapsed wall-clock time for a single operation and
// records it against the relevant histogram when the operation completes.
type Timer struct {
	start time.Time
}

// NewTimer starts a new Timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the time elapsed since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// RecordPatternExtraction records the elapsed time as a pattern
// extraction duration and increments the extracted-patterns counter for kind.
func (t *Timer) RecordPatternExtraction(kind string) {
	RecordPatternExtractionDuration(t.Elapsed())
	RecordPatternExtracted(kind)
}

// RecordEmbeddingCall records the elapsed time as an embedding call
// duration and increments the embedding calls counter for provider.
func (t *Timer) RecordEmbeddingCall(provider string) {
	RecordEmbeddingDuration(t.Elapsed())
	RecordEmbeddingCall(provider)
}
