package idempotency

import (
	"context"
	"time"
)

// Record is a stored HTTP response replayed for repeated requests carrying
// the same idempotency key.
type Record struct {
	Key            string
	ResponseBody   string
	ResponseStatus int
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// Store persists idempotency records.
type Store interface {
	// Get returns the unexpired record for key, or nil when none exists.
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, rec *Record) error
}
