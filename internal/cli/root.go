package cli

import (
	"fmt"
	"slices"

	"github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags. Flags that are set override the
// configuration file and POS_* environment variables.
type RootOptions struct {
	DBPath    string
	RemoteURL string
	LogLevel  string
	Format    string // "json" | "text"
}

var validFormats = []string{"text", "json"}

// NewRootCommand creates the terminal agent command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "terminal",
		Short: "POS terminal agent",
		Long: `POS terminal agent.

Records checkout sales, keeps sales that could not reach the back office in a
local queue and uploads them in order once the back office is reachable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, validFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "path to the pending-sale database")
	cmd.PersistentFlags().StringVar(&opts.RemoteURL, "remote", "", "back-office base URL")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewQueueCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))

	return cmd
}

// loadConfig reads the terminal configuration and applies flag overrides.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadTerminal()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Terminal.DBPath = opts.DBPath
	}
	if flags.Changed("remote") {
		cfg.Terminal.RemoteURL = opts.RemoteURL
	}
	if flags.Changed("log-level") {
		cfg.Observability.LogLevel = opts.LogLevel
	}

	if err := cfg.ValidateTerminal(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}
