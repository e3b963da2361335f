// Package metrics provides Prometheus collectors for chunking, embedding and tagging.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
)

const namespace = "sercha_notes"

var (
	// ChunksProduced counts chunks emitted by the pipeline.
	// Labels: mode (stream, node)
	ChunksProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chunking",
			Name:      "chunks_total",
			Help:      "Total number of chunks produced by the chunking pipeline",
		},
		[]string{"mode"},
	)

	// ChunksSkipped counts chunks dropped because their offsets did not match the stream.
	ChunksSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chunking",
			Name:      "chunks_skipped_total",
			Help:      "Total number of chunks skipped due to location mismatches",
		},
	)

	// DocumentsIndexed counts indexing runs.
	// Labels: result (success, error)
	DocumentsIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexing",
			Name:      "documents_total",
			Help:      "Total number of document indexing runs",
		},
		[]string{"result"},
	)

	// MatchOutcomes counts auto-tag resolutions.
	// Labels: reason (matched, below_threshold, no_candidates, insufficient_signal)
	MatchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "autotag",
			Name:      "match_outcomes_total",
			Help:      "Total number of auto-tag resolutions by outcome",
		},
		[]string{"reason"},
	)

	// CandidatesExcluded counts candidates dropped for a dimension mismatch.
	CandidatesExcluded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "autotag",
			Name:      "candidates_excluded_total",
			Help:      "Total number of candidates excluded for vector dimension mismatch",
		},
	)

	// EmbeddingDuration tracks embedding call latency.
	// Labels: kind (batch, query)
	EmbeddingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "request_duration_seconds",
			Help:      "Duration of embedding requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// EmbeddingCache counts embedding cache lookups.
	// Labels: result (hit, miss, error)
	EmbeddingCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "cache_lookups_total",
			Help:      "Total number of embedding cache lookups by result",
		},
		[]string{"result"},
	)

	// TasksProcessed counts worker task completions.
	// Labels: type, result (success, error, dropped)
	TasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "tasks_total",
			Help:      "Total number of tasks processed by workers",
		},
		[]string{"type", "result"},
	)

	// HTTPRequests counts API requests.
	// Labels: method, status
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{"method", "status"},
	)

	// HTTPDuration tracks API request latency.
	// Labels: method
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// ObserveRequest records one served HTTP request.
func ObserveRequest(method string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordChunks records the output of one pipeline run.
func RecordChunks(mode domain.ChunkMode, produced, skipped int) {
	ChunksProduced.WithLabelValues(string(mode)).Add(float64(produced))
	if skipped > 0 {
		ChunksSkipped.Add(float64(skipped))
	}
}

// RecordMatch records one auto-tag resolution.
func RecordMatch(result domain.MatchResult, excluded int) {
	MatchOutcomes.WithLabelValues(string(result.Reason)).Inc()
	if excluded > 0 {
		CandidatesExcluded.Add(float64(excluded))
	}
}

// ObserveEmbedding records the latency of an embedding call started at start.
func ObserveEmbedding(kind string, start time.Time) {
	EmbeddingDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
