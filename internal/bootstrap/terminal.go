package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cobasjano/JC-sistema-sub001/internal/application/offline"
	"github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/config"
	"github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/observability"
	"github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/remote"
	"github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/session"
	"github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/sqlite"
	"github.com/cobasjano/JC-sistema-sub001/pkg/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Terminal holds the components of a POS terminal agent. The pending store
// is reached through Queue so every append is announced on Bus.
type Terminal struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	Store   *sqlite.PendingStore
	Queue   *offline.NotifyingStore
	Remote  *remote.Client
	Session *session.Holder
	Bus     *offline.Bus
	Monitor *offline.ConnectivityMonitor
	Driver  *offline.Driver
	Capture *offline.CaptureUseCase
}

// NewTerminal opens the local store and wires the sync components. The
// remote service is probed once so the driver starts with a known state.
func NewTerminal(ctx context.Context, cfg *config.Config) (*Terminal, error) {
	logger := observability.InitConsoleLogger(cfg.Observability.LogLevel, os.Stderr).
		With().Str("service", "pos-terminal").Int("pos", cfg.Terminal.PosNumber).Logger()
	zerolog.DefaultContextLogger = &logger

	startTracing(ctx, logger, "pos-terminal", cfg.Observability)

	tc := cfg.Terminal
	store, err := sqlite.Open(tc.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open pending store: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics("pos_terminal", registry)

	httpClient := &http.Client{Timeout: tc.RemoteTimeout}
	client := remote.NewClient(tc.RemoteURL, tc.Token,
		remote.WithHTTPClient(httpClient),
		remote.WithBreaker(tc.CircuitBreakerThreshold, tc.CircuitBreakerTimeout),
		remote.WithStateListener(func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
			metrics.BreakerStateChanged(name, from, to)
		}),
	)

	holder := session.NewHolder(offline.SessionUser{
		UserID:    tc.UserID,
		TenantID:  tc.TenantID,
		PosNumber: tc.PosNumber,
	})

	bus := offline.NewBus()
	queue := offline.NewNotifyingStore(store, bus)
	monitor := offline.NewConnectivityMonitor(client, bus, tc.ProbeInterval, tc.ProbeTimeout, logger)
	online := monitor.Probe(ctx)
	logger.Info().Bool("online", online).Str("remote", tc.RemoteURL).Msg("Initial connectivity probe")

	driver := offline.NewDriver(queue, client, holder, bus,
		offline.WithTenantPolicy(offline.ParseTenantPolicy(tc.TenantPolicy)),
		offline.WithRemoteTimeout(tc.RemoteTimeout),
		offline.WithLogger(logger),
		offline.WithRecorder(metrics),
		offline.WithInitialOnline(online),
	)

	retryCfg := retry.Config{
		MaxAttempts:  tc.CaptureAttempts,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		OnRetry: func(attempt uint, err error) {
			logger.Debug().Uint("attempt", attempt).Err(err).Msg("Retrying sale submission")
		},
	}
	capture := offline.NewCaptureUseCase(queue, client, holder, monitor, retryCfg, logger)

	if n, err := store.Count(ctx); err == nil {
		metrics.PendingSales(n)
		logger.Info().Int("pending", n).Str("db", tc.DBPath).Msg("Pending store opened")
	}

	return &Terminal{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  metrics,
		Store:    store,
		Queue:    queue,
		Remote:   client,
		Session:  holder,
		Bus:      bus,
		Monitor:  monitor,
		Driver:   driver,
		Capture:  capture,
	}, nil
}

func (t *Terminal) Close() {
	if err := t.Store.Close(); err != nil {
		t.Logger.Warn().Err(err).Msg("Failed to close pending store")
	}
}
