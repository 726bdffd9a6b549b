package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type IdempotencyCleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

// RunIdempotencyCleanup deletes expired idempotency records on every tick.
func RunIdempotencyCleanup(ctx context.Context, cleaner IdempotencyCleaner, interval time.Duration, logger zerolog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		n, err := cleaner.Cleanup(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Idempotency cleanup failed")
			continue
		}
		if n > 0 {
			logger.Info().Int64("deleted", n).Msg("Expired idempotency keys removed")
		}
	}
}
