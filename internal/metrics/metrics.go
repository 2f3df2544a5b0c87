// Package metrics defines Prometheus metrics for item-notifier.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "inotif"

// HTTP metrics.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthz_up",
		Help:      "1 if the last /healthz probe succeeded, 0 otherwise.",
	})

	ReadyzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readyz_up",
		Help:      "1 if the last /readyz probe succeeded, 0 otherwise.",
	})
)

// Poll cycle metrics.
var (
	PollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "polls_total",
		Help:      "Total number of completed poll cycles.",
	})

	PollErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_errors_total",
		Help:      "Total number of poll cycle failures by error kind.",
	}, []string{"kind"})

	PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "poll_duration_seconds",
		Help:      "Duration of poll cycles in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	TicksSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ticks_skipped_total",
		Help:      "Total number of timer ticks skipped because a cycle was still in flight.",
	})

	ItemsDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_detected_total",
		Help:      "Total number of new items detected.",
	})

	LastSeenItemID = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_seen_item_id",
		Help:      "Numeric value of the persisted last-seen item id (0 when unset or non-numeric).",
	})
)

// Catalog API metrics.
var (
	CatalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_requests_total",
		Help:      "Total catalog API requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	CatalogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "catalog_request_duration_seconds",
		Help:      "Duration of catalog API requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	DetailFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "detail_fallbacks_total",
		Help:      "Total number of notifications sent with placeholder detail.",
	})

	ListRecordsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "list_records_skipped_total",
		Help:      "Total number of malformed listing records skipped past the most recent entry.",
	})
)

// Notification metrics.
var (
	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Total number of notifications delivered, by sink.",
	}, []string{"sink"})

	NotificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Total number of notification send failures, by sink.",
	}, []string{"sink"})

	NotificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_duration_seconds",
		Help:      "Duration of notification sends in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	NotificationsDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_discarded_total",
		Help:      "Total number of notifications dropped because the notifier was stopped.",
	})
)
