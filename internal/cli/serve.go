package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cobasjano/JC-sistema-sub001/internal/bootstrap"
	customMW "github.com/cobasjano/JC-sistema-sub001/internal/interfaces/http/middleware"
	"github.com/cobasjano/JC-sistema-sub001/internal/interfaces/terminal"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand runs the terminal agent until interrupted.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the checkout API and the background sync",
		Long: `Run the checkout API and the background sync.

Sales left in the queue by a previous run are uploaded as soon as the back
office is reachable.

Example:
  terminal serve --db /var/lib/pos/pending.db --remote https://backoffice.example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "local API listen address")
	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		cfg.Terminal.ListenAddr = opts.Listen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	term, err := bootstrap.NewTerminal(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "start terminal", err)
	}
	defer term.Close()

	handler := terminal.NewHandler(term.Capture, term.Queue, term.Driver, func() string {
		return term.Remote.BreakerState().String()
	})
	router := terminal.NewRouter(handler,
		chimw.RequestID,
		chimw.Recoverer,
		customMW.Tracing(),
		customMW.SecurityHeaders(),
		customMW.Metrics(term.Metrics),
	)
	router.Handle("/metrics", promhttp.HandlerFor(term.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.Terminal.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	term.Driver.Start(ctx)
	defer term.Driver.Stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return term.Monitor.Run(gCtx)
	})

	g.Go(func() error {
		term.Logger.Info().Str("addr", srv.Addr).Msg("Local API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		term.Logger.Info().Msg("Shutting down terminal...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "terminal stopped", err)
	}
	term.Logger.Info().Msg("Terminal exited")
	return nil
}
