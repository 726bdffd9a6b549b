package worker

import (
	"context"
	"errors"
	"time"

	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/outbox"
	"github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/observability"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type StreamReader interface {
	Read(ctx context.Context) ([]redis.XMessage, error)
	Ack(ctx context.Context, messageID string) error
	ClaimStale(ctx context.Context, minIdle time.Duration) ([]redis.XMessage, error)
}

type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, msg redis.XMessage, reason string) error
}

// EventHandler applies one event payload.
type EventHandler interface {
	Execute(ctx context.Context, payload []byte) error
}

// RankingConsumer feeds sale.created events into the product ranking.
// Malformed events go to the dead-letter stream; other failures leave the
// message pending so it is claimed again after claimMinIdle. A redelivered
// message is counted again.
type RankingConsumer struct {
	reader       StreamReader
	dlq          DeadLetterPublisher
	handler      EventHandler
	stream       string
	claimMinIdle time.Duration
	metrics      *observability.Metrics
	logger       zerolog.Logger
}

func NewRankingConsumer(
	reader StreamReader,
	dlq DeadLetterPublisher,
	handler EventHandler,
	stream string,
	claimMinIdle time.Duration,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *RankingConsumer {
	return &RankingConsumer{
		reader:       reader,
		dlq:          dlq,
		handler:      handler,
		stream:       stream,
		claimMinIdle: claimMinIdle,
		metrics:      metrics,
		logger:       logger.With().Str("component", "ranking_consumer").Logger(),
	}
}

// Run reads until ctx is cancelled, reclaiming stale messages every claimMinIdle.
func (c *RankingConsumer) Run(ctx context.Context) error {
	lastClaim := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if c.claimMinIdle > 0 && time.Since(lastClaim) >= c.claimMinIdle {
			lastClaim = time.Now()
			stale, err := c.reader.ClaimStale(ctx, c.claimMinIdle)
			if err != nil {
				c.logger.Error().Err(err).Msg("Failed to claim stale messages")
			} else if len(stale) > 0 {
				c.logger.Info().Int("count", len(stale)).Msg("Reclaimed stale messages")
				c.Handle(ctx, stale)
			}
		}

		msgs, err := c.reader.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error().Err(err).Msg("Failed to read from stream")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		c.Handle(ctx, msgs)
	}
}

// Handle processes a batch of messages in order.
func (c *RankingConsumer) Handle(ctx context.Context, msgs []redis.XMessage) {
	for _, msg := range msgs {
		c.handle(ctx, msg)
	}
}

func (c *RankingConsumer) handle(ctx context.Context, msg redis.XMessage) {
	logger := c.logger.With().Str("message_id", msg.ID).Logger()

	if eventType, _ := msg.Values["event_type"].(string); eventType != outbox.EventSaleCreated {
		logger.Debug().Str("event_type", eventType).Msg("Skipping event")
		c.ack(ctx, logger, msg.ID, "skipped")
		return
	}

	payload, ok := msg.Values["payload"].(string)
	if !ok {
		c.deadLetter(ctx, logger, msg, "missing payload")
		return
	}

	start := time.Now()
	err := c.handler.Execute(ctx, []byte(payload))
	c.metrics.WorkerProcessingDuration.WithLabelValues(c.stream).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		c.ack(ctx, logger, msg.ID, "success")
	case errors.Is(err, domainErrors.ErrInvalidInput), errors.Is(err, domainErrors.ErrValidationFailed):
		c.deadLetter(ctx, logger, msg, err.Error())
	default:
		logger.Error().Err(err).Msg("Failed to apply sale event, leaving pending")
		c.metrics.WorkerMessagesProcessed.WithLabelValues(c.stream, "retry").Inc()
	}
}

func (c *RankingConsumer) deadLetter(ctx context.Context, logger zerolog.Logger, msg redis.XMessage, reason string) {
	logger.Warn().Str("reason", reason).Msg("Moving message to DLQ")
	if err := c.dlq.PublishToDLQ(ctx, msg, reason); err != nil {
		logger.Error().Err(err).Msg("Failed to publish to DLQ, leaving pending")
		return
	}
	c.ack(ctx, logger, msg.ID, "dead_letter")
}

func (c *RankingConsumer) ack(ctx context.Context, logger zerolog.Logger, id, status string) {
	if err := c.reader.Ack(ctx, id); err != nil {
		logger.Error().Err(err).Msg("Failed to ack message")
		return
	}
	c.metrics.WorkerMessagesProcessed.WithLabelValues(c.stream, status).Inc()
}
