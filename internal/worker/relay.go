package worker

import (
	"context"
	"time"

	"github.com/cobasjano/JC-sistema-sub001/internal/domain/outbox"
	"github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/observability"
	"github.com/rs/zerolog"
)

// Publisher appends an outbox entry to the event stream.
type Publisher interface {
	PublishEvent(ctx context.Context, entry *outbox.Entry) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// OutboxRelay moves pending outbox entries to the event stream. Entries are
// locked for the duration of a batch, so several relays can run side by side.
// An entry published just before its status update fails is published again
// on the next batch.
type OutboxRelay struct {
	txManager TransactionManager
	repo      outbox.Repository
	publisher Publisher
	batchSize int
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

func NewOutboxRelay(
	txManager TransactionManager,
	repo outbox.Repository,
	publisher Publisher,
	batchSize int,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &OutboxRelay{
		txManager: txManager,
		repo:      repo,
		publisher: publisher,
		batchSize: batchSize,
		metrics:   metrics,
		logger:    logger.With().Str("component", "outbox_relay").Logger(),
	}
}

// RelayOnce publishes one batch and returns how many entries were published.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	var published int
	err := r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		published = 0
		entries, err := r.repo.GetPending(txCtx, r.batchSize)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := r.publisher.PublishEvent(ctx, entry); err != nil {
				status := "retry"
				if entry.Exhausted() {
					status = "failed"
				}
				r.logger.Error().Err(err).
					Str("outbox_id", entry.ID.String()).
					Int("retry_count", entry.RetryCount).
					Msg("Failed to publish outbox event")
				if err := r.repo.MarkFailed(txCtx, entry.ID); err != nil {
					return err
				}
				r.metrics.OutboxPublished.WithLabelValues(status).Inc()
				continue
			}
			if err := r.repo.MarkPublished(txCtx, entry.ID); err != nil {
				return err
			}
			published++
			r.metrics.OutboxPublished.WithLabelValues("published").Inc()
		}
		return nil
	})
	return published, err
}

// Run relays a batch on every tick until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context, pollInterval time.Duration) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		n, err := r.RelayOnce(ctx)
		if err != nil {
			r.logger.Error().Err(err).Msg("Outbox relay error")
			continue
		}
		if n > 0 {
			r.logger.Debug().Int("published", n).Msg("Outbox batch relayed")
		}
	}
}
