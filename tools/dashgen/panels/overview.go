package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
)

func probeStat(title, description, metric string) *stat.PanelBuilder {
	return newStat(title, description, metric).
		Thresholds(ThresholdsRedGreen(1)).
		ColorMode(common.BigValueColorModeBackground).
		TextMode(common.BigValueTextModeValue)
}

// HealthzStat returns a stat panel showing the health check status.
func HealthzStat() *stat.PanelBuilder {
	return probeStat("Healthz", "Health check status (1 = ok, 0 = failing)", "inotif_healthz_up")
}

// ReadyzStat returns a stat panel showing the readiness check status.
func ReadyzStat() *stat.PanelBuilder {
	return probeStat("Readyz", "Readiness check status (1 = state store reachable, 0 = not ready)", "inotif_readyz_up")
}

// LastSeenStat returns a stat panel showing the persisted checkpoint.
func LastSeenStat() *stat.PanelBuilder {
	return newStat("Last Seen Item", "Numeric value of the persisted last-seen item id", sel("inotif_last_seen_item_id")).
		Thresholds(ThresholdsGreenOnly()).
		GraphMode(common.BigValueGraphModeArea).
		TextMode(common.BigValueTextModeValue)
}

// UptimeStat returns a stat panel showing process uptime.
func UptimeStat() *stat.PanelBuilder {
	return newStat("Uptime", "Time since process start", `time() - `+sel("process_start_time_seconds")).
		Unit("s").
		Thresholds(ThresholdsGreenOnly())
}
