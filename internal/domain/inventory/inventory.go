package inventory

import (
	"time"

	"github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable item with its on-hand stock.
// Stock may go negative when offline sales are synchronized after the shelf ran out.
type Product struct {
	ID        string
	TenantID  string
	Name      string
	Price     decimal.Decimal
	Stock     decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProduct validates and builds a product.
func NewProduct(tenantID, id, name string, price, stock decimal.Decimal) (*Product, error) {
	if tenantID == "" {
		return nil, errors.NewValidationError("tenant_id", "required")
	}
	if id == "" {
		return nil, errors.NewValidationError("id", "required")
	}
	if name == "" {
		return nil, errors.NewValidationError("name", "required")
	}
	if price.IsNegative() {
		return nil, errors.ErrInvalidPrice
	}
	if stock.IsNegative() {
		return nil, errors.ErrInvalidStock
	}
	now := time.Now().UTC()
	return &Product{
		ID:        id,
		TenantID:  tenantID,
		Name:      name,
		Price:     price,
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Purchase records goods received from a supplier.
type Purchase struct {
	ID        uuid.UUID
	TenantID  string
	ActorID   string
	Supplier  string
	Items     []PurchaseItem
	CreatedAt time.Time
}

// PurchaseItem is one received line.
type PurchaseItem struct {
	ProductID string
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
}

// NewPurchase validates and builds a purchase.
func NewPurchase(tenantID, actorID, supplier string, items []PurchaseItem) (*Purchase, error) {
	if tenantID == "" {
		return nil, errors.NewValidationError("tenant_id", "required")
	}
	if len(items) == 0 {
		return nil, errors.NewValidationError("items", "at least one item required")
	}
	for _, it := range items {
		if it.ProductID == "" {
			return nil, errors.NewValidationError("product_id", "required")
		}
		if !it.Quantity.IsPositive() {
			return nil, errors.ErrInvalidQuantity
		}
		if it.UnitCost.IsNegative() {
			return nil, errors.ErrInvalidPrice
		}
	}
	return &Purchase{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ActorID:   actorID,
		Supplier:  supplier,
		Items:     items,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Total returns the cost of the purchase.
func (p *Purchase) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range p.Items {
		sum = sum.Add(it.UnitCost.Mul(it.Quantity))
	}
	return sum
}
