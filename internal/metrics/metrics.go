package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Enrichment metrics
var (
	ImagesEnrichedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burstpick_images_enriched_total",
			Help: "Images processed during enrichment, by step and result",
		},
		[]string{"step", "result"},
	)

	EnrichBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "burstpick_enrich_batch_duration_seconds",
			Help:    "Time to enrich one batch of images",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Grouping metrics
var (
	GroupingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burstpick_grouping_runs_total",
			Help: "Grouping runs by outcome",
		},
		[]string{"status"},
	)

	GroupingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "burstpick_grouping_duration_seconds",
			Help:    "Duration of a full grouping run",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	GroupsCommitted = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "burstpick_groups",
			Help: "Groups in the current session",
		},
	)

	RejectsDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burstpick_rejects_deleted_total",
			Help: "Reject deletions by outcome",
		},
		[]string{"status"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burstpick_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "burstpick_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
