package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func stateCmd() *cobra.Command {
	stateRoot := &cobra.Command{
		Use:   "state",
		Short: "Manage the last-seen checkpoint",
	}

	stateRoot.AddCommand(
		stateGetCmd(),
		stateSetCmd(),
		stateResetCmd(),
	)

	return stateRoot
}

func stateGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := newClient().GetState(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), st)
			}
			printState(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func stateSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <item-id>",
		Short: "Overwrite the checkpoint",
		Long: "Overwrites the last-seen item ID. Setting an older ID makes the next\n" +
			"poll announce the items after it again.",
		Args:    cobra.ExactArgs(1),
		Example: `  inctl state set 1183`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newClient().SetState(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), st)
			}
			printState(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func stateResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the checkpoint",
		Long:  "Clears the checkpoint. The next poll announces only the newest item.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := newClient().ResetState(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Checkpoint cleared.")
			return nil
		},
	}
}
