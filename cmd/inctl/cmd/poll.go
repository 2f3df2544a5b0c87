package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/item-notifier/internal/api/client"
)

func pollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run a poll cycle now",
		Long: "Triggers one poll cycle on the server. If a cycle is already running\n" +
			"the request is rejected rather than queued.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := newClient().Poll(cmd.Context())
			if apiclient.IsConflict(err) {
				return errors.New("a poll cycle is already in progress, try again shortly")
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Poll completed.")
			return nil
		},
	}
}
