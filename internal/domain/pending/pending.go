package pending

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QueuedSale is a sale captured on a terminal that has not yet been
// acknowledged by the remote sale service. Its ID is the removal key and is
// sent as the idempotency key on every delivery attempt.
type QueuedSale struct {
	ID               string          `json:"id"`
	PosNumber        int             `json:"pos_number"`
	TenantID         string          `json:"tenant_id,omitempty"`
	Items            []Item          `json:"items"`
	Total            decimal.Decimal `json:"total"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	PaymentBreakdown json.RawMessage `json:"payment_breakdown,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Item is a queued sale line. Price is the per-unit price, not a subtotal.
type Item struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// NewQueuedSale assigns a fresh identifier and capture time.
func NewQueuedSale(posNumber int, tenantID string, items []Item, total decimal.Decimal, method string, breakdown json.RawMessage) *QueuedSale {
	return &QueuedSale{
		ID:               uuid.NewString(),
		PosNumber:        posNumber,
		TenantID:         tenantID,
		Items:            items,
		Total:            total,
		PaymentMethod:    method,
		PaymentBreakdown: breakdown,
		CreatedAt:        time.Now().UTC(),
	}
}

// Clone returns a deep copy so callers can mutate it freely.
func (q QueuedSale) Clone() QueuedSale {
	c := q
	if q.Items != nil {
		c.Items = make([]Item, len(q.Items))
		copy(c.Items, q.Items)
	}
	if q.PaymentBreakdown != nil {
		c.PaymentBreakdown = make(json.RawMessage, len(q.PaymentBreakdown))
		copy(c.PaymentBreakdown, q.PaymentBreakdown)
	}
	return c
}

// LineSubtotal is Price x Quantity.
func (i Item) LineSubtotal() decimal.Decimal {
	return i.Price.Mul(i.Quantity)
}
