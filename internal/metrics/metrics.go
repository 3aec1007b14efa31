// Package metrics holds Prometheus series shared by the failover wrappers
// and the retrieval pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackendPromotions counts sticky failover promotions,
	// labeled by subsystem ("vector" or "llm").
	BackendPromotions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "canopya",
		Name:      "backend_promotions_total",
		Help:      "Number of failover promotions between backends.",
	}, []string{"subsystem"})

	// MirrorFailures counts best-effort mirror writes that were dropped
	// or failed against the backup backend.
	MirrorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "canopya",
		Name:      "mirror_failures_total",
		Help:      "Best-effort mirror writes that were dropped or failed.",
	}, []string{"subsystem", "reason"})

	// RetrievalDuration observes end-to-end retrieval latency per mode.
	RetrievalDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "canopya",
		Name:      "retrieval_duration_seconds",
		Help:      "Hybrid retrieval latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"mode"})

	// FallbackGenerations counts answers produced by the ungrounded
	// fallback path, labeled by trigger.
	FallbackGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "canopya",
		Name:      "fallback_generations_total",
		Help:      "Answers produced by the ungrounded fallback path.",
	}, []string{"trigger"})

	// LexicalIndexDocuments gauges the size of the lexical index corpus.
	LexicalIndexDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "canopya",
		Name:      "lexical_index_documents",
		Help:      "Documents in the lexical index, 0 when the build failed.",
	})
)
