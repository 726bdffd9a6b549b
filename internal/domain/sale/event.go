package sale

import (
	"github.com/shopspring/decimal"
)

// CreatedEvent is the payload of the sale.created outbox event.
type CreatedEvent struct {
	SaleID    string      `json:"sale_id"`
	TenantID  string      `json:"tenant_id"`
	PosNumber int         `json:"pos_number"`
	Total     string      `json:"total"`
	Items     []EventItem `json:"items"`
}

type EventItem struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// EventPayload renders the sale.created payload as stored in the outbox.
// Quantities are aggregated per product.
func (s *Sale) EventPayload() map[string]any {
	order, qty := s.QuantityByProduct()
	items := make([]any, 0, len(order))
	for _, id := range order {
		items = append(items, map[string]any{
			"product_id": id,
			"quantity":   qty[id].String(),
		})
	}
	return map[string]any{
		"sale_id":    s.ID.String(),
		"tenant_id":  s.TenantID,
		"pos_number": s.PosNumber,
		"total":      s.Total.String(),
		"items":      items,
	}
}
