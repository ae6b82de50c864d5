// Package metrics exposes Prometheus collectors for the feed pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// YouTubeAPIRequests counts outbound YouTube Data API calls by
	// endpoint and outcome.
	YouTubeAPIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yourfeed_youtube_api_requests_total",
		Help: "Outbound YouTube Data API requests.",
	}, []string{"endpoint", "outcome"})

	// CacheHits counts cache lookups by result.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yourfeed_cache_lookups_total",
		Help: "Cache lookups by result (hit or miss).",
	}, []string{"result"})

	// ReconcileDecisions counts per-channel reconciliation outcomes.
	ReconcileDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yourfeed_reconcile_decisions_total",
		Help: "Reconciliation decisions by kind (keep, upsert, supersede, insert, skip).",
	}, []string{"decision"})

	// RefreshFailures counts channels whose refresh could not be persisted.
	RefreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yourfeed_refresh_failures_total",
		Help: "Channels that failed to persist during a refresh run.",
	})

	// RefreshDuration observes end-to-end refresh run latency.
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "yourfeed_refresh_duration_seconds",
		Help:    "Wall time of a full feed refresh run.",
		Buckets: prometheus.DefBuckets,
	})
)
