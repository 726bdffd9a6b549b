package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	reportApp "github.com/cobasjano/JC-sistema-sub001/internal/application/report"
	"github.com/cobasjano/JC-sistema-sub001/internal/bootstrap"
	infraRedis "github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/redis"
	"github.com/cobasjano/JC-sistema-sub001/internal/repository/postgres"
	"github.com/cobasjano/JC-sistema-sub001/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "pos-worker", "pos_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	workerCfg := app.Config.Worker

	// --- Repositories ---
	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)
	producer := infraRedis.NewStreamProducer(app.Redis, workerCfg.Stream)
	ranking := infraRedis.NewRanking(app.Redis)

	// --- Use cases ---
	recordSaleUC := reportApp.NewRecordSaleUseCase(ranking)

	// --- Sale stream consumer ---
	stream := workerCfg.Stream
	if stream == "" {
		stream = infraRedis.SaleStream
	}
	reader := infraRedis.NewStreamConsumer(
		app.Redis,
		stream,
		workerCfg.ConsumerGroup,
		app.Config.InstanceID,
		workerCfg.BatchSize,
		workerCfg.BlockDuration,
	)
	if err := reader.CreateGroup(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to create consumer group")
	}

	relay := worker.NewOutboxRelay(txManager, outboxRepo, producer, workerCfg.OutboxBatchSize, app.Metrics, app.Logger)
	consumer := worker.NewRankingConsumer(reader, producer, recordSaleUC, stream, workerCfg.ClaimMinIdle, app.Metrics, app.Logger)

	app.Logger.Info().
		Str("stream", stream).
		Str("group", workerCfg.ConsumerGroup).
		Str("consumer", app.Config.InstanceID).
		Msg("Worker started, listening for messages...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Ranking consumer (reads sale.created from Redis Streams).
	g.Go(func() error {
		return consumer.Run(gCtx)
	})

	// 2. Outbox relay (polls the outbox table and publishes to Redis Streams).
	g.Go(func() error {
		return relay.Run(gCtx, workerCfg.OutboxPollInterval)
	})

	// 3. Expired idempotency keys.
	g.Go(func() error {
		return worker.RunIdempotencyCleanup(gCtx, idempotencyRepo, workerCfg.IdempotencyCleanup, app.Logger)
	})

	// 4. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}
