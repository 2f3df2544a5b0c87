package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// PollRate returns a timeseries panel showing completed poll cycles per minute.
func PollRate() *timeseries.PanelBuilder {
	return newTimeseries("Polls / min", "Completed poll cycles per minute", ThirdWidth,
		PromQuery(`inotif:polls:rate5m * 60`, "polls/min", "A"))
}

// PollErrors returns a timeseries panel showing poll failures per minute by kind.
func PollErrors() *timeseries.PanelBuilder {
	return tableLegend(newTimeseries("Poll Errors / min", "Poll cycle failures per minute, by error kind", ThirdWidth,
		PromQuery(`sum by (kind) (rate(`+sel("inotif_poll_errors_total")+`[5m])) * 60`, "{{kind}}", "A"),
	), "mean", "max").
		Thresholds(ThresholdsGreenYellowRed(0.1, 1))
}

// PollDuration returns a timeseries panel showing the p95 poll cycle duration.
func PollDuration() *timeseries.PanelBuilder {
	return newTimeseries("Cycle Duration (p95)", "95th percentile poll cycle duration", ThirdWidth,
		PromQuery(quantile("0.95", "inotif_poll_duration_seconds"), "p95", "A")).
		Unit("s")
}

// ItemsDetected returns a stat panel showing new items found in the past 24 hours.
func ItemsDetected() *stat.PanelBuilder {
	return newStat("New Items (24h)", "Items detected as new in the last 24 hours",
		`increase(`+sel("inotif_items_detected_total")+`[24h])`).
		Span(TSWidth).
		Thresholds(ThresholdsGreenOnly()).
		GraphMode(common.BigValueGraphModeArea)
}

// TicksSkipped returns a stat panel showing timer ticks dropped because a
// cycle was still running.
func TicksSkipped() *stat.PanelBuilder {
	return newStat("Ticks Skipped (1h)", "Timer ticks skipped while a poll cycle was in flight",
		`increase(`+sel("inotif_ticks_skipped_total")+`[1h])`).
		Span(TSWidth).
		Thresholds(ThresholdsGreenYellowRed(1, 10)).
		ColorMode(common.BigValueColorModeBackground)
}
