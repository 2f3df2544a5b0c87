package cmd

import (
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show notifier status",
		Example: `  inctl status
  inctl status --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := newClient().Status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), st)
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}
