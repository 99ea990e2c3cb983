package metrics

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

var _ = Describe("Metrics", func() {
	Describe("RecordEpisodeRecorded", func() {
		It("should increment episodes recorded counter", func() {
			initial := testutil.ToFloat64(EpisodesRecordedTotal)

			RecordEpisodeRecorded()

			after := testutil.ToFloat64(EpisodesRecordedTotal)
			Expect(after).To(Equal(initial + 1.0))

			RecordEpisodeRecorded()

			final := testutil.ToFloat64(EpisodesRecordedTotal)
			Expect(final).To(Equal(initial + 2.0))
		})
	})

	Describe("RecordPatternExtracted", func() {
		It("should increment patterns extracted counter", func() {
			kind := "test_tool_sequence"

			initial := testutil.ToFloat64(PatternsExtractedTotal.WithLabelValues(kind))

			RecordPatternExtracted(kind)

			final := testutil.ToFloat64(PatternsExtractedTotal.WithLabelValues(kind))
			Expect(final).To(Equal(initial + 1.0))
		})
	})

	Describe("RecordPatternExtractionDuration", func() {
		It("should record duration in histogram", func() {
			RecordPatternExtractionDuration(2 * time.Second)

			metric := &dto.Metric{}
			err := PatternExtractionDuration.Write(metric)
			Expect(err).NotTo(HaveOccurred())

			Expect(metric.GetHistogram().GetSampleCount()).To(BeNumerically(">", 0))
		})
	})

	Describe("RecordEpisodeFiltered", func() {
		It("should increment episodes filtered counter", func() {
			reason := "test_low_reward"

			initial := testutil.ToFloat64(EpisodesFilteredTotal.WithLabelValues(reason))

			RecordEpisodeFiltered(reason)

			final := testutil.ToFloat64(EpisodesFilteredTotal.WithLabelValues(reason))
			Expect(final).To(Equal(initial + 1.0))
		})
	})

	Describe("RecordPatternExtractionError", func() {
		It("should increment pattern extraction error counter", func() {
			kind := "test_error_recovery"
			errorType := "invalid_state"

			initial := testutil.ToFloat64(PatternExtractionErrorsTotal.WithLabelValues(kind, errorType))

			RecordPatternExtractionError(kind, errorType)

			final := testutil.ToFloat64(PatternExtractionErrorsTotal.WithLabelValues(kind, errorType))
			Expect(final).To(Equal(initial + 1.0))
		})
	})

	Describe("RecordEmbeddingCall", func() {
		It("should increment embedding calls counter", func() {
			provider := "test_local"

			initial := testutil.ToFloat64(EmbeddingCallsTotal.WithLabelValues(provider))

			RecordEmbeddingCall(provider)

			final := testutil.ToFloat64(EmbeddingCallsTotal.WithLabelValues(provider))
			Expect(final).To(Equal(initial + 1.0))
		})
	})

	Describe("RecordEmbeddingError", func() {
		It("should increment embedding errors counter", func() {
			provider := "test_local"
			errorType := "timeout"

			initial := testutil.ToFloat64(EmbeddingErrorsTotal.WithLabelValues(provider, errorType))

			RecordEmbeddingError(provider, errorType)

			final := testutil.ToFloat64(EmbeddingErrorsTotal.WithLabelValues(provider, errorType))
			Expect(final).To(Equal(initial + 1.0))
		})
	})

	Describe("RecordStorageOperation", func() {
		It("should increment storage operations counter", func() {
			backend := "test_durable"
			operation := "get"

			initial := testutil.ToFloat64(StorageOperationsTotal.WithLabelValues(backend, operation))

			RecordStorageOperation(backend, operation)

			final := testutil.ToFloat64(StorageOperationsTotal.WithLabelValues(backend, operation))
			Expect(final).To(Equal(initial + 1.0))
		})
	})

	Describe("Queue gauges", func() {
		It("should track queue depth and active workers correctly", func() {
			SetQueuePending(5.0)
			Expect(testutil.ToFloat64(QueuePendingEpisodes)).To(Equal(5.0))

			SetQueuePending(3.0)
			Expect(testutil.ToFloat64(QueuePendingEpisodes)).To(Equal(3.0))

			initial := testutil.ToFloat64(QueueActiveWorkers)

			IncrementActiveWorkers()
			Expect(testutil.ToFloat64(QueueActiveWorkers)).To(Equal(initial + 1.0))

			IncrementActiveWorkers()
			Expect(testutil.ToFloat64(QueueActiveWorkers)).To(Equal(initial + 2.0))

			DecrementActiveWorkers()
			Expect(testutil.ToFloat64(QueueActiveWorkers)).To(Equal(initial + 1.0))

			DecrementActiveWorkers()
			Expect(testutil.ToFloat64(QueueActiveWorkers)).To(Equal(initial))
		})
	})

	Describe("SetCircuitBreakerState", func() {
		It("should set the named breaker's state gauge", func() {
			SetCircuitBreakerState("durable_store", 2.0)
			Expect(testutil.ToFloat64(CircuitBreakerState.WithLabelValues("durable_store"))).To(Equal(2.0))

			SetCircuitBreakerState("durable_store", 0.0)
			Expect(testutil.ToFloat64(CircuitBreakerState.WithLabelValues("durable_store"))).To(Equal(0.0))
		})
	})

	Describe("Query cache counters", func() {
		It("should increment hits and misses independently", func() {
			initialHits := testutil.ToFloat64(QueryCacheHitsTotal.WithLabelValues("episode_by_id"))
			initialMisses := testutil.ToFloat64(QueryCacheMissesTotal.WithLabelValues("episode_by_id"))

			RecordCacheHit("episode_by_id")
			RecordCacheMiss("episode_by_id")

			Expect(testutil.ToFloat64(QueryCacheHitsTotal.WithLabelValues("episode_by_id"))).To(Equal(initialHits + 1.0))
			Expect(testutil.ToFloat64(QueryCacheMissesTotal.WithLabelValues("episode_by_id"))).To(Equal(initialMisses + 1.0))
		})
	})

	Describe("RecordFacadeRequest", func() {
		It("should increment facade requests counter", func() {
			initialSuccess := testutil.ToFloat64(FacadeRequestsTotal.WithLabelValues("success"))
			initialError := testutil.ToFloat64(FacadeRequestsTotal.WithLabelValues("error"))

			RecordFacadeRequest("success")

			finalSuccess := testutil.ToFloat64(FacadeRequestsTotal.WithLabelValues("success"))
			Expect(finalSuccess).To(Equal(initialSuccess + 1.0))

			RecordFacadeRequest("error")

			finalError := testutil.ToFloat64(FacadeRequestsTotal.WithLabelValues("error"))
			Expect(finalError).To(Equal(initialError + 1.0))
		})
	})

	Describe("Timer", func() {
		It("should create and track elapsed time correctly", func() {
			timer := NewTimer()

			Expect(timer).ToNot(BeNil())
			Expect(timer.start.IsZero()).To(BeFalse())

			time.Sleep(10 * time.Millisecond)

			elapsed := timer.Elapsed()
			Expect(elapsed).To(BeNumerically(">=", 10*time.Millisecond))
			Expect(elapsed).To(BeNumerically("<", 200*time.Millisecond))
		})

		It("should record pattern extraction with timer", func() {
			timer := NewTimer()
			kind := "test_timer_pattern"

			initialCounter := testutil.ToFloat64(PatternsExtractedTotal.WithLabelValues(kind))

			time.Sleep(10 * time.Millisecond)

			timer.RecordPatternExtraction(kind)

			finalCounter := testutil.ToFloat64(PatternsExtractedTotal.WithLabelValues(kind))
			Expect(finalCounter).To(Equal(initialCounter + 1.0))
		})

		It("should record embedding call with timer", func() {
			timer := NewTimer()
			provider := "test_timer_provider"

			initialCounter := testutil.ToFloat64(EmbeddingCallsTotal.WithLabelValues(provider))

			time.Sleep(10 * time.Millisecond)

			timer.RecordEmbeddingCall(provider)

			finalCounter := testutil.ToFloat64(EmbeddingCallsTotal.WithLabelValues(provider))
			Expect(finalCounter).To(Equal(initialCounter + 1.0))

			metric := &dto.Metric{}
			err := EmbeddingDuration.Write(metric)
			Expect(err).NotTo(HaveOccurred())
			Expect(metric.GetHistogram().GetSampleCount()).To(BeNumerically(">", 0))
		})
	})

	Describe("Metrics Integration", func() {
		It("should handle a complete episode-to-pattern workflow", func() {
			uniqueKind := "test_integration_kind"
			provider := "test_integration_provider"

			initialEpisodes := testutil.ToFloat64(EpisodesRecordedTotal)
			initialPatterns := testutil.ToFloat64(PatternsExtractedTotal.WithLabelValues(uniqueKind))
			initialCalls := testutil.ToFloat64(EmbeddingCallsTotal.WithLabelValues(provider))
			initialFacade := testutil.ToFloat64(FacadeRequestsTotal.WithLabelValues("success"))
			initialActive := testutil.ToFloat64(QueueActiveWorkers)

			RecordFacadeRequest("success")

			numEpisodes := 3
			for i := 0; i < numEpisodes; i++ {
				RecordEpisodeRecorded()
				RecordEmbeddingCall(provider)
				RecordEmbeddingDuration(500 * time.Millisecond)
				IncrementActiveWorkers()
				RecordPatternExtracted(uniqueKind)
				DecrementActiveWorkers()
			}

			Expect(testutil.ToFloat64(EpisodesRecordedTotal)).To(Equal(initialEpisodes + float64(numEpisodes)))
			Expect(testutil.ToFloat64(PatternsExtractedTotal.WithLabelValues(uniqueKind))).To(Equal(initialPatterns + float64(numEpisodes)))
			Expect(testutil.ToFloat64(EmbeddingCallsTotal.WithLabelValues(provider))).To(Equal(initialCalls + float64(numEpisodes)))
			Expect(testutil.ToFloat64(FacadeRequestsTotal.WithLabelValues("success"))).To(Equal(initialFacade + 1.0))
			Expect(testutil.ToFloat64(QueueActiveWorkers)).To(Equal(initialActive))
		})
	})

	Describe("Metrics Naming", func() {
		It("should follow Prometheus naming conventions", func() {
			metricNames := []string{
				"episodes_recorded_total",
				"episodes_filtered_total",
				"patterns_extracted_total",
				"pattern_extraction_duration_seconds",
				"pattern_extraction_errors_total",
				"embedding_calls_total",
				"embedding_errors_total",
				"embedding_duration_seconds",
				"storage_operations_total",
				"storage_operation_errors_total",
				"queue_pending_episodes",
				"queue_active_workers",
				"circuit_breaker_state",
				"query_cache_hits_total",
				"query_cache_misses_total",
				"facade_requests_total",
			}

			for _, name := range metricNames {
				Expect(strings.Contains(name, "-")).To(BeFalse(), "Metric name %s should not contain hyphens", name)
				Expect(strings.Contains(name, " ")).To(BeFalse(), "Metric name %s should not contain spaces", name)

				if strings.Contains(name, "duration") {
					Expect(strings.HasSuffix(name, "_seconds")).To(BeTrue(), "Duration metric %s should end with _seconds", name)
				}

				if strings.Contains(name, "recorded") || strings.Contains(name, "extracted") ||
					strings.Contains(name, "filtered") || strings.Contains(name, "errors") ||
					strings.Contains(name, "calls") || strings.Contains(name, "requests") ||
					strings.Contains(name, "operations") || strings.Contains(name, "hits") ||
					strings.Contains(name, "misses") {
					Expect(strings.HasSuffix(name, "_total")).To(BeTrue(), "Counter metric %s should end with _total", name)
				}
			}
		})
	})
})
