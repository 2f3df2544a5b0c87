package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads the config file whenever it changes on disk and passes the
// result to onChange. A file that fails to parse or validate is reported to
// onError and the previous config stays in effect. The parent directory is
// watched so atomic-rename saves are observed. Watch blocks until ctx is done.
func Watch(
	ctx context.Context,
	path string,
	onChange func(*Config),
	onError func(error),
) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer w.Close()

	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching config directory: %w", err)
	}

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name, absErr := filepath.Abs(ev.Name)
			if absErr != nil || name != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			reload = timer.C

		case <-reload:
			reload = nil
			cfg, loadErr := Load(target)
			if loadErr != nil {
				if onError != nil {
					onError(loadErr)
				}
				continue
			}
			onChange(cfg)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(fmt.Errorf("config watcher: %w", watchErr))
			}
		}
	}
}

// RestartRequired lists the top-level sections that differ between old and
// next and cannot be applied without a restart. Poll settings are excluded
// because the scheduler applies them live.
func RestartRequired(old, next *Config) []string {
	var changed []string
	if !serverEqual(old.Server, next.Server) {
		changed = append(changed, "server")
	}
	if old.Catalog != next.Catalog {
		changed = append(changed, "catalog")
	}
	if old.State != next.State {
		changed = append(changed, "state")
	}
	if !notificationsEqual(old.Notifications, next.Notifications) {
		changed = append(changed, "notifications")
	}
	if old.Telemetry != next.Telemetry {
		changed = append(changed, "telemetry")
	}
	if old.Logging != next.Logging {
		changed = append(changed, "logging")
	}
	return changed
}

func serverEqual(a, b ServerConfig) bool {
	if a.IsEnabled() != b.IsEnabled() {
		return false
	}
	a.Enabled, b.Enabled = nil, nil
	return a == b
}

func notificationsEqual(a, b NotificationsConfig) bool {
	if a.Ntfy != b.Ntfy || a.Discord != b.Discord {
		return false
	}
	if a.Webhook.Enabled != b.Webhook.Enabled || a.Webhook.URL != b.Webhook.URL {
		return false
	}
	if len(a.Webhook.Headers) != len(b.Webhook.Headers) {
		return false
	}
	for k, v := range a.Webhook.Headers {
		if b.Webhook.Headers[k] != v {
			return false
		}
	}
	return true
}
