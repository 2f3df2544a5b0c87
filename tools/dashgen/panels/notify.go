package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// NotificationsRate returns a timeseries panel showing deliveries by sink.
func NotificationsRate() *timeseries.PanelBuilder {
	return tableLegend(newTimeseries("Notifications Sent", "Notifications delivered per minute, by sink", TSWidth,
		PromQuery(`sum by (sink) (rate(`+sel("inotif_notifications_sent_total")+`[5m])) * 60`, "{{sink}}", "A"),
	), "mean", "max")
}

// NotificationLatency returns a timeseries panel showing the p95 send latency.
func NotificationLatency() *timeseries.PanelBuilder {
	return newTimeseries("Notification Latency (p95)", "95th percentile notification send latency", TSWidth,
		PromQuery(`inotif:notification_duration:p95_5m`, "p95", "A")).
		Unit("s").
		Thresholds(ThresholdsGreenYellowRed(1, 5))
}

// NotificationFailures returns a stat panel showing notification failures
// in the past 24 hours.
func NotificationFailures() *stat.PanelBuilder {
	return newStat("Notification Failures (24h)", "Failed notification deliveries in the last 24 hours",
		`sum(increase(`+sel("inotif_notification_failures_total")+`[24h]))`).
		Span(TSWidth).
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}

// NotificationsDiscarded returns a stat panel showing notifications dropped
// at shutdown.
func NotificationsDiscarded() *stat.PanelBuilder {
	return newStat("Discarded at Shutdown", "Notifications dropped because the notifier was stopped",
		sel("inotif_notifications_discarded_total")).
		Span(TSWidth).
		Thresholds(ThresholdsGreenYellowRed(1, 10))
}
