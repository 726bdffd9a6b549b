package outbox

import (
	"time"

	"github.com/google/uuid"
)

const (
	AggregateSale = "sale"

	EventSaleCreated = "sale.created"

	defaultMaxRetries = 5
)

type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	TenantID      string
	EventType     string
	Payload       map[string]any
	Status        Status
	RetryCount    int
	MaxRetries    int
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

func NewEntry(aggregateType string, aggregateID uuid.UUID, tenantID, eventType string, payload map[string]any) *Entry {
	return &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		TenantID:      tenantID,
		EventType:     eventType,
		Payload:       payload,
		Status:        StatusPending,
		RetryCount:    0,
		MaxRetries:    defaultMaxRetries,
		CreatedAt:     time.Now().UTC(),
	}
}

// Exhausted reports whether another failed publish would move the entry to failed.
func (e *Entry) Exhausted() bool {
	return e.RetryCount+1 >= e.MaxRetries
}
