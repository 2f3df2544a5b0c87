package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/item-notifier/internal/engine"
	"github.com/donaldgifford/item-notifier/internal/telemetry"
)

func onceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single poll cycle and exit",
		Long: "Runs one poll cycle, waits for every triggered notification to be\n" +
			"delivered, and exits. Useful from cron or a systemd timer.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runOnce()
		},
	}
}

func runOnce() error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("closing notifier", "error", err)
		}
	}()

	if err := pollOnce(ctx, a.engine); err != nil {
		return err
	}

	st, err := a.engine.Status(ctx)
	if err != nil {
		return err
	}
	log.Info("poll complete",
		"last_seen_item_id", st.LastSeenItemID,
		"notified", st.Notified,
	)
	return nil
}

// pollOnce runs one cycle and waits for its notifications. Cancelling ctx
// stops the engine so a stalled delivery cannot hold the process open.
func pollOnce(ctx context.Context, eng *engine.Engine) error {
	if err := eng.Poll(ctx); err != nil {
		return fmt.Errorf("poll: %w", err)
	}

	stop := context.AfterFunc(ctx, eng.Stop)
	defer stop()
	eng.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("waiting for notifications: %w", err)
	}
	return nil
}
