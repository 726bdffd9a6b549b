package sale

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for sale persistence
type Repository interface {
	// Create persists a sale and its items
	Create(ctx context.Context, s *Sale) error

	// GetByID returns a sale scoped to a tenant
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*Sale, error)

	// GetByIdempotencyKey returns the sale created with the given key, or nil when none exists
	GetByIdempotencyKey(ctx context.Context, key string) (*Sale, error)

	// List returns sales for a tenant, newest first
	List(ctx context.Context, filter ListFilter) ([]*Sale, error)
}

// ListFilter holds filtering options for listing sales
type ListFilter struct {
	TenantID  string
	PosNumber *int
	Limit     int
	Offset    int
}
