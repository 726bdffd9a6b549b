package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/config"
	"github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/observability"
	infraRedis "github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/redis"
	"github.com/cobasjano/JC-sistema-sub001/internal/repository/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// App holds the shared dependencies of the back-office binaries.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics
}

func New(ctx context.Context, serviceName string, metricsNamespace string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(cfg.Observability.LogLevel, os.Stdout).
		With().Str("service", serviceName).Logger()
	zerolog.DefaultContextLogger = &logger
	logger.Info().Msg("Starting")

	startTracing(ctx, logger, serviceName, cfg.Observability)

	metrics := observability.NewMetrics(metricsNamespace, nil)

	pool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info().Msg("Connected to PostgreSQL")

	redisClient, err := infraRedis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Connected to Redis")

	return &App{
		Config:  cfg,
		Logger:  logger,
		Pool:    pool,
		Redis:   redisClient,
		Metrics: metrics,
	}, nil
}

func (a *App) Close() {
	if err := a.Redis.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close redis client")
	}
	a.Pool.Close()
}

// startTracing installs the Jaeger exporter when enabled. Failures are
// logged and tracing stays off.
func startTracing(ctx context.Context, logger zerolog.Logger, serviceName string, cfg config.ObservabilityConfig) {
	if !cfg.EnableTracing {
		return
	}
	tp, err := observability.InitTracer(serviceName, cfg.JaegerEndpoint)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		return
	}
	go func() {
		<-ctx.Done()
		observability.Shutdown(context.Background(), tp)
	}()
	logger.Info().Msg("Tracing enabled")
}
