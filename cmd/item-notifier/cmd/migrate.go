package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/donaldgifford/item-notifier/internal/config"
	"github.com/donaldgifford/item-notifier/internal/state"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations for the postgres state backend",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMigrate()
		},
	}
}

func runMigrate() error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.State.Backend != config.StateBackendPostgres {
		return fmt.Errorf("migrate applies to the postgres backend only (configured: %s)", cfg.State.Backend)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.State.DSN)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	log.Info("running migrations")
	if err := state.RunMigrations(ctx, pool); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("migrations complete")
	return nil
}
