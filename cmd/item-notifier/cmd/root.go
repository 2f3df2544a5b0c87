// Package cmd implements the CLI commands for item-notifier.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/item-notifier/internal/config"
	"github.com/donaldgifford/item-notifier/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "item-notifier",
	Short: "Announce new catalog items as they appear",
	Long: "item-notifier polls a storefront's featured-items listing, remembers the\n" +
		"newest item it has announced, and pushes a notification for every item\n" +
		"that appears after it.",
	SilenceUsage: true,
}

func init() {
	defaultConfig := "config.yaml"
	if v := os.Getenv("ITEM_NOTIFIER_CONFIG"); v != "" {
		defaultConfig = v
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfig,
		"config file path (env ITEM_NOTIFIER_CONFIG)")

	rootCmd.AddCommand(
		serveCommand(),
		onceCommand(),
		stateCommand(),
		migrateCommand(),
		versionCommand(),
	)
}

// Root returns the root command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the config file and builds the process logger from it.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)
	return cfg, log, nil
}
