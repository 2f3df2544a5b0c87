package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

const httpDuration = "inotif_http_request_duration_seconds"

// RequestRate returns a timeseries panel showing control API requests per
// second by route.
func RequestRate() *timeseries.PanelBuilder {
	return tableLegend(newTimeseries("Request Rate", "Control API requests per second", TSWidth,
		PromQuery(`inotif:http_requests:rate5m`, "total", "A"),
		PromQuery(`sum by (path) (rate(`+sel("inotif_http_requests_total")+`[5m]))`, "{{path}}", "B"),
	), "mean", "max").
		Unit("reqps")
}

// LatencyPercentiles returns a timeseries panel showing p50, p95 and p99
// request latency.
func LatencyPercentiles() *timeseries.PanelBuilder {
	return tableLegend(newTimeseries("Latency Percentiles", "Control API request duration percentiles", TSWidth,
		PromQuery(quantile("0.50", httpDuration), "p50", "A"),
		PromQuery(quantile("0.95", httpDuration), "p95", "B"),
		PromQuery(quantile("0.99", httpDuration), "p99", "C"),
	), "mean", "max").
		Unit("s")
}

// ErrorRate returns a timeseries panel showing the 5xx rate as a percentage.
func ErrorRate() *timeseries.PanelBuilder {
	return newTimeseries("Error Rate %", "HTTP 5xx responses as a percentage of all requests", FullWidth,
		PromQuery(`inotif:http_errors:rate5m / inotif:http_requests:rate5m * 100`, "error %", "A"),
	).
		Unit("percent").
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(colorMode(dashboard.FieldColorModeIdThresholds))
}
