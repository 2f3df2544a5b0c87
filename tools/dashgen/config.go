package main

import "errors"

// KnownMetrics is the set of metric names exported by item-notifier plus
// recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"inotif_http_request_duration_seconds": true,
	"inotif_http_requests_total":           true,

	// Health metrics.
	"inotif_healthz_up": true,
	"inotif_readyz_up":  true,

	// Poll cycle metrics.
	"inotif_polls_total":           true,
	"inotif_poll_errors_total":     true,
	"inotif_poll_duration_seconds": true,
	"inotif_ticks_skipped_total":   true,
	"inotif_items_detected_total":  true,
	"inotif_last_seen_item_id":     true,

	// Catalog metrics.
	"inotif_catalog_requests_total":           true,
	"inotif_catalog_request_duration_seconds": true,
	"inotif_detail_fallbacks_total":           true,
	"inotif_list_records_skipped_total":       true,

	// Notification metrics.
	"inotif_notifications_sent_total":      true,
	"inotif_notification_failures_total":   true,
	"inotif_notification_duration_seconds": true,
	"inotif_notifications_discarded_total": true,

	// Recording rules.
	"inotif:http_requests:rate5m":         true,
	"inotif:http_errors:rate5m":           true,
	"inotif:polls:rate5m":                 true,
	"inotif:poll_errors:rate5m":           true,
	"inotif:catalog_requests:rate5m":      true,
	"inotif:notification_duration:p95_5m": true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
