// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the insights API.
var (
	// Counters.
	BadgesUnlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_unlocked_total",
			Help: "Total number of badges unlocked",
		},
		[]string{"badge_type"},
	)

	BadgeChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badge_checks_total",
			Help: "Total badge check-unlock evaluations",
		},
		[]string{"status"},
	)

	RecapsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recaps_generated_total",
			Help: "Total weekly recaps generated, served from store, or skipped",
		},
		[]string{"status"},
	)

	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total LLM completion requests",
		},
		[]string{"status"},
	)

	BadgeSweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badge_sweep_runs_total",
			Help: "Total nightly badge sweep executions",
		},
		[]string{"status"},
	)

	// Histograms.
	LLMRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM completion request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2min
		},
	)

	BadgeEvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "badge_evaluation_duration_seconds",
			Help:    "Full badge evaluation duration per user in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	// Gauges.
	BadgeSweepLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "badge_sweep_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed badge sweep",
		},
	)
)

// RecordBadgeUnlocked increments the unlock counter for a badge type.
func RecordBadgeUnlocked(badgeType string) {
	BadgesUnlockedTotal.WithLabelValues(badgeType).Inc()
}

// RecordBadgeCheck records the outcome of a check-unlock evaluation and its
// duration.
func RecordBadgeCheck(status string, duration time.Duration) {
	BadgeChecksTotal.WithLabelValues(status).Inc()
	BadgeEvaluationDuration.Observe(duration.Seconds())
}

// RecordRecap records a recap pipeline outcome ("generated", "existing",
// "no_entries", "error").
func RecordRecap(status string) {
	RecapsGeneratedTotal.WithLabelValues(status).Inc()
}

// RecordLLMRequest records one completion attempt and its duration.
func RecordLLMRequest(status string, duration time.Duration) {
	LLMRequestsTotal.WithLabelValues(status).Inc()
	LLMRequestDuration.Observe(duration.Seconds())
}

// RecordBadgeSweepRun records a sweep outcome and stamps the last-run gauge.
func RecordBadgeSweepRun(status string) {
	BadgeSweepRunsTotal.WithLabelValues(status).Inc()
	BadgeSweepLastRun.SetToCurrentTime()
}
