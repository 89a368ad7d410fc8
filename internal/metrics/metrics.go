// Package metrics holds the Prometheus collectors of the document pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pawdocs"

var (
	// DocumentsIngested counts ingestion attempts.
	// Labels: result (success, error)
	DocumentsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Total number of document ingestion attempts",
		},
		[]string{"result"},
	)

	ChunksIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "chunks_indexed_total",
			Help:      "Total number of chunks stored in the vector index",
		},
	)

	// ExtractionStrategyFailures counts failed extraction strategies.
	// Labels: strategy
	ExtractionStrategyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "strategy_failures_total",
			Help:      "Total number of extraction strategies that failed or returned no text",
		},
		[]string{"strategy"},
	)

	EmbeddingBatchFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "batch_fallbacks_total",
			Help:      "Total number of batch embedding calls that fell back to sequential embedding",
		},
	)

	EmbeddingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "call_duration_seconds",
			Help:      "Duration of embedding model calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// UpsertBatches counts vector index upsert batches.
	// Labels: result (success, error)
	UpsertBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vectorindex",
			Name:      "upsert_batches_total",
			Help:      "Total number of upsert batches sent to the vector index",
		},
		[]string{"result"},
	)

	// Questions counts answered questions.
	// Labels: result (answered, degraded, no_context, error)
	Questions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "questions_total",
			Help:      "Total number of questions by outcome",
		},
		[]string{"result"},
	)

	// GenerationFailures counts failed generator candidates.
	// Labels: model
	GenerationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "generation_failures_total",
			Help:      "Total number of failed answer generation attempts per model",
		},
		[]string{"model"},
	)
)
