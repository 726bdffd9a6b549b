package inventory

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository defines the interface for product and stock persistence
type Repository interface {
	// Upsert creates or replaces a product (name, price, stock)
	Upsert(ctx context.Context, p *Product) error

	// GetByID returns a product scoped to a tenant
	GetByID(ctx context.Context, tenantID, id string) (*Product, error)

	// List returns all products of a tenant ordered by name
	List(ctx context.Context, tenantID string) ([]*Product, error)

	// AdjustStock adds delta (negative for sales) and returns the new stock.
	// Returns ErrProductNotFound when the product does not exist.
	AdjustStock(ctx context.Context, tenantID, productID string, delta decimal.Decimal) (decimal.Decimal, error)

	// CreatePurchase persists a purchase record
	CreatePurchase(ctx context.Context, p *Purchase) error
}
