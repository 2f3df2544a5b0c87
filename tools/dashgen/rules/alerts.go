package rules

const (
	critical = "critical"
	warning  = "warning"
)

// AlertRules returns a PrometheusRule CR containing alert rules for
// item-notifier operational monitoring.
func AlertRules() PrometheusRule {
	return newPrometheusRule("inotif-alerts", RuleGroup{
		Name: "inotif-alerts",
		Rules: []Rule{
			alert("InotifDown", `absent(up{job="item-notifier"})`, "2m", critical,
				"Item notifier is down",
				"The item-notifier job has been absent for more than 2 minutes."),
			alert("InotifReadinessDown", `inotif_readyz_up == 0`, "2m", critical,
				"Item notifier readiness check is failing",
				"The state store has been unreachable for more than 2 minutes."),
			alert("InotifPollStalled", `inotif:polls:rate5m == 0`, "10m", warning,
				"No poll cycles are completing",
				"No poll cycle has completed successfully in the last 10 minutes."),
			alert("InotifPollErrors", `inotif:poll_errors:rate5m > 0`, "5m", warning,
				"Poll cycles are failing",
				"Fetching the catalog listing or persisting the checkpoint has been failing for more than 5 minutes."),
			alert("InotifHighErrorRate", `inotif:http_errors:rate5m / inotif:http_requests:rate5m > 0.05`, "5m", warning,
				"High HTTP error rate on the control API",
				"More than 5% of control API requests are returning 5xx errors over the last 5 minutes."),
			alert("InotifNotificationFailures", `sum(increase(inotif_notification_failures_total[5m])) > 0`, "1m", warning,
				"Notification delivery failures detected",
				"One or more notification sinks have failed to deliver."),
		},
	})
}
