package notify

import (
	"context"
	"log/slog"
)

// NoOpNotifier implements Notifier by logging discarded notifications. It is
// used when no notification backend is configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards notifications with a log
// message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &NoOpNotifier{log: log}
}

// Name implements Notifier.
func (*NoOpNotifier) Name() string { return "noop" }

// Notify logs and discards a notification.
func (n *NoOpNotifier) Notify(_ context.Context, notif *Notification) error {
	n.log.Info("notification discarded (no backend configured)",
		"item_id", notif.ItemID,
		"title", notif.Title,
		"body", notif.Body,
		"click_url", notif.ClickURL,
	)
	return nil
}
