package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/item-notifier/internal/state"
	domain "github.com/donaldgifford/item-notifier/pkg/types"
)

const stateTimeout = 30 * time.Second

func stateCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "state",
		Short: "Inspect or override the last-seen checkpoint",
		Long: "Reads and writes the configured state backend directly. Stop the\n" +
			"service first when using the file or sqlite backend; use inctl for a\n" +
			"running instance.",
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the checkpoint",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(func(ctx context.Context, s state.Store) error {
					id, ok, err := s.Get(ctx)
					if err != nil {
						return err
					}
					if !ok {
						cmd.Println("no checkpoint (next poll is a first run)")
						return nil
					}
					cmd.Println(id)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:     "set <item-id>",
			Short:   "Overwrite the checkpoint",
			Args:    cobra.ExactArgs(1),
			Example: "  item-notifier state set 1183",
			RunE: func(cmd *cobra.Command, args []string) error {
				id := domain.ItemID(args[0])
				if id.IsZero() {
					return fmt.Errorf("item id must not be empty")
				}
				return withStore(func(ctx context.Context, s state.Store) error {
					if err := s.Set(ctx, id); err != nil {
						return err
					}
					cmd.Printf("checkpoint set to %s\n", id)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Clear the checkpoint",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(func(ctx context.Context, s state.Store) error {
					if err := s.Reset(ctx); err != nil {
						return err
					}
					cmd.Println("checkpoint cleared")
					return nil
				})
			},
		},
	)
	return root
}

func withStore(fn func(ctx context.Context, s state.Store) error) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), stateTimeout)
	defer cancel()

	s, err := state.Open(ctx, cfg.State)
	if err != nil {
		return fmt.Errorf("opening %s state: %w", cfg.State.Backend, err)
	}
	defer s.Close()

	return fn(ctx, s)
}
