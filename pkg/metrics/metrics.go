// Package metrics holds the Prometheus collectors shared by the checker and
// the notification dispatcher. They register on the default registry, which
// the ops server exposes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics. Registry lookups can
// take a while, hence the upper buckets.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30} //nolint: gochecknoglobals

//nolint: gochecknoglobals
var (
	// LookupsTotal counts registry lookups by outcome ("ok" or an error kind).
	LookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "domainwatch",
		Name:      "lookups_total",
		Help:      "Registry lookups by result.",
	}, []string{"result"})

	// LookupDuration observes registry lookup latency.
	LookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "domainwatch",
		Name:      "lookup_duration_seconds",
		Help:      "Registry lookup latency.",
		Buckets:   DefaultBuckets,
	})

	// DomainOutcomesTotal counts final per-domain outcomes of a run.
	DomainOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "domainwatch",
		Name:      "domain_outcomes_total",
		Help:      "Final outcome of each domain check: succeeded, preserved or errored.",
	}, []string{"outcome"})

	// RetryAttemptsTotal counts retry attempts by result.
	RetryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "domainwatch",
		Name:      "retry_attempts_total",
		Help:      "Retry pass lookups by result.",
	}, []string{"result"})

	// NotificationsTotal counts channel deliveries.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "domainwatch",
		Name:      "notifications_total",
		Help:      "Notification deliveries by channel type and result.",
	}, []string{"channel", "result"})

	// NotificationsSuppressedTotal counts notifications skipped by deduplication.
	NotificationsSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "domainwatch",
		Name:      "notifications_suppressed_total",
		Help:      "Notifications skipped because an identical one was sent recently.",
	})

	// RunDuration observes the wall time of complete runs.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "domainwatch",
		Name:      "run_duration_seconds",
		Help:      "Duration of complete check runs.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
	})

	// LastRunTimestamp is the unix time the last run finished.
	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "domainwatch",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last check run finished.",
	})
)
