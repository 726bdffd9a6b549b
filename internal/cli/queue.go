package cli

import (
	"fmt"

	"github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/sqlite"
	"github.com/spf13/cobra"
)

// NewQueueCommand groups the manual maintenance commands for the pending
// queue. Removing the head entry is the way to unblock a sale the back
// office keeps rejecting.
func NewQueueCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the pending-sale queue",
	}
	cmd.AddCommand(newQueueListCommand(opts))
	cmd.AddCommand(newQueueRemoveCommand(opts))
	return cmd
}

func newQueueListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued sales in upload order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts, cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			sales, err := store.List(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "list pending sales", err)
			}
			return writeQueue(cmd.OutOrStdout(), opts.Format, sales)
		},
	}
}

func newQueueRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Drop a queued sale without uploading it",
		Long: `Drop a queued sale without uploading it.

The sale is lost unless it was already accepted by the back office.
Removing an id that is not queued does nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts, cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Remove(cmd.Context(), args[0]); err != nil {
				return WrapExitError(ExitCommandError, "remove pending sale", err)
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"removed": args[0]})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return err
		},
	}
}

func openStore(opts *RootOptions, cmd *cobra.Command) (*sqlite.PendingStore, error) {
	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return nil, err
	}
	store, err := sqlite.Open(cfg.Terminal.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open pending store", err)
	}
	return store, nil
}
