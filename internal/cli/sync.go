package cli

import (
	"fmt"

	"github.com/cobasjano/JC-sistema-sub001/internal/bootstrap"
	"github.com/spf13/cobra"
)

type syncOutput struct {
	Synced    int    `json:"synced"`
	Remaining int    `json:"remaining"`
	FailedID  string `json:"failed_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewSyncCommand runs one drain pass and exits.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Upload queued sales once",
		Long: `Upload queued sales once, oldest first.

The pass stops at the first sale that fails and exits with status 1, leaving
that sale and everything after it queued.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, cmd)
			if err != nil {
				return err
			}
			term, err := bootstrap.NewTerminal(cmd.Context(), cfg)
			if err != nil {
				return WrapExitError(ExitCommandError, "start terminal", err)
			}
			defer term.Close()

			res, passErr := term.Driver.DrainOnce(cmd.Context())
			out := syncOutput{Synced: res.Synced, Remaining: res.Remaining, FailedID: res.FailedID}
			if passErr != nil {
				out.Error = passErr.Error()
			}

			w := cmd.OutOrStdout()
			if opts.Format == "json" {
				err = writeJSON(w, out)
			} else {
				_, err = fmt.Fprintf(w, "synced %d, remaining %d\n", out.Synced, out.Remaining)
			}
			if err != nil {
				return err
			}

			if passErr != nil {
				return WrapExitError(ExitFailure, "sync stopped", passErr)
			}
			return nil
		},
	}
}
