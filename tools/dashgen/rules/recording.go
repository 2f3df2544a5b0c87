package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return newPrometheusRule("inotif-recording-rules", RuleGroup{
		Name: "inotif-recording",
		Rules: []Rule{
			{Record: "inotif:http_requests:rate5m", Expr: `sum(rate(inotif_http_requests_total[5m]))`},
			{Record: "inotif:http_errors:rate5m", Expr: `sum(rate(inotif_http_requests_total{status=~"5.."}[5m]))`},
			{Record: "inotif:polls:rate5m", Expr: `rate(inotif_polls_total[5m])`},
			{Record: "inotif:poll_errors:rate5m", Expr: `sum(rate(inotif_poll_errors_total[5m]))`},
			{
				Record: "inotif:catalog_requests:rate5m",
				Expr:   `sum by (endpoint, outcome) (rate(inotif_catalog_requests_total[5m]))`,
			},
			{
				Record: "inotif:notification_duration:p95_5m",
				Expr:   `histogram_quantile(0.95, sum(rate(inotif_notification_duration_seconds_bucket[5m])) by (le))`,
			},
		},
	})
}
