package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// CatalogRequests returns a timeseries panel showing catalog calls by
// endpoint and outcome.
func CatalogRequests() *timeseries.PanelBuilder {
	return tableLegend(newTimeseries("Catalog Requests", "Catalog API requests per second by endpoint and outcome", ThirdWidth,
		PromQuery(`inotif:catalog_requests:rate5m`, "{{endpoint}} {{outcome}}", "A"),
	), "mean", "max").
		Unit("reqps")
}

// CatalogLatency returns a timeseries panel showing p95 catalog latency per
// endpoint.
func CatalogLatency() *timeseries.PanelBuilder {
	return newTimeseries("Catalog Latency (p95)", "95th percentile catalog API latency by endpoint", ThirdWidth,
		PromQuery(quantile("0.95", "inotif_catalog_request_duration_seconds", "endpoint"), "{{endpoint}}", "A")).
		Unit("s").
		Thresholds(ThresholdsGreenYellowRed(2, 5))
}

// DetailFallbacks returns a stat panel showing notifications sent with
// placeholder detail in the past 24 hours.
func DetailFallbacks() *stat.PanelBuilder {
	return newStat("Detail Fallbacks (24h)", "Notifications sent with placeholder detail because enrichment failed",
		`increase(`+sel("inotif_detail_fallbacks_total")+`[24h])`).
		Height(TSHeight).
		Span(ThirdWidth).
		Thresholds(ThresholdsGreenYellowRed(1, 10)).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}
