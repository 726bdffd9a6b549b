package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// SaleItemRequest is one line of a sale. Subtotal is accepted for
// compatibility with terminal clients but recomputed server-side.
type SaleItemRequest struct {
	ProductID   string          `json:"product_id" validate:"required"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// CreateSaleRequest is the HTTP request body for creating a sale.
type CreateSaleRequest struct {
	ActorID          string            `json:"actor_id"`
	PosNumber        int               `json:"pos_number" validate:"gte=0"`
	TenantID         string            `json:"tenant_id"`
	Items            []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
	Total            decimal.Decimal   `json:"total"`
	PaymentMethod    string            `json:"payment_method" validate:"max=32"`
	PaymentBreakdown json.RawMessage   `json:"payment_breakdown,omitempty"`
}

// UpsertProductRequest is the HTTP request body for creating or replacing a product.
type UpsertProductRequest struct {
	ID    string          `json:"id" validate:"required,max=64"`
	Name  string          `json:"name" validate:"required,max=200"`
	Price decimal.Decimal `json:"price"`
	Stock decimal.Decimal `json:"stock"`
}

type PurchaseItemRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// RecordPurchaseRequest is the HTTP request body for a supplier purchase.
type RecordPurchaseRequest struct {
	Supplier string                `json:"supplier" validate:"max=200"`
	Items    []PurchaseItemRequest `json:"items" validate:"required,min=1,dive"`
}
