package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/donaldgifford/item-notifier/internal/config"
	"github.com/donaldgifford/item-notifier/internal/metrics"
)

// MultiNotifier delivers each notification to every sink in order and
// records per-sink metrics. A failing sink does not stop delivery to the
// others.
type MultiNotifier struct {
	sinks []Notifier
}

// NewMultiNotifier creates a fan-out over sinks.
func NewMultiNotifier(sinks ...Notifier) *MultiNotifier {
	return &MultiNotifier{sinks: sinks}
}

// Name implements Notifier.
func (*MultiNotifier) Name() string { return "multi" }

// Sinks returns the names of the wrapped sinks.
func (m *MultiNotifier) Sinks() []string {
	names := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		names = append(names, s.Name())
	}
	return names
}

// PartialDeliveryError reports a notification that reached some sinks but
// not all of them.
type PartialDeliveryError struct {
	Delivered []string
	Err       error
}

func (e *PartialDeliveryError) Error() string {
	return fmt.Sprintf("delivered to %d sink(s), failed: %v", len(e.Delivered), e.Err)
}

func (e *PartialDeliveryError) Unwrap() error { return e.Err }

// Notify implements Notifier. The returned error joins every sink failure;
// when at least one sink accepted the notification it is wrapped in a
// *PartialDeliveryError.
func (m *MultiNotifier) Notify(ctx context.Context, n *Notification) error {
	var errs []error
	var delivered []string
	for _, sink := range m.sinks {
		start := time.Now()
		err := sink.Notify(ctx, n)
		metrics.NotificationDuration.Observe(time.Since(start).Seconds())

		if err != nil {
			metrics.NotificationFailuresTotal.WithLabelValues(sink.Name()).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		metrics.NotificationsSentTotal.WithLabelValues(sink.Name()).Inc()
		delivered = append(delivered, sink.Name())
	}
	if len(errs) > 0 && len(delivered) > 0 {
		return &PartialDeliveryError{Delivered: delivered, Err: errors.Join(errs...)}
	}
	return errors.Join(errs...)
}

// New builds the fan-out for every enabled sink in cfg. With nothing enabled
// the fan-out holds a single NoOpNotifier.
func New(cfg config.NotificationsConfig, log *slog.Logger, opts ...Option) *MultiNotifier {
	var sinks []Notifier
	if cfg.Ntfy.Enabled {
		sinks = append(sinks, NewNtfyNotifier(cfg.Ntfy.URL, cfg.Ntfy.Token, cfg.Ntfy.Priority, opts...))
	}
	if cfg.Discord.Enabled {
		sinks = append(sinks, NewDiscordNotifier(cfg.Discord.WebhookURL, opts...))
	}
	if cfg.Webhook.Enabled {
		sinks = append(sinks, NewWebhookNotifier(cfg.Webhook.URL, cfg.Webhook.Headers, opts...))
	}
	if len(sinks) == 0 {
		sinks = append(sinks, NewNoOpNotifier(log))
	}
	return NewMultiNotifier(sinks...)
}
