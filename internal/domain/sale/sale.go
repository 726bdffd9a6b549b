package sale

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is a free-form tender tag such as "Efectivo" or "Tarjeta".
// The empty value means unspecified.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "Efectivo"
	PaymentCard     PaymentMethod = "Tarjeta"
	PaymentTransfer PaymentMethod = "Transferencia"
	PaymentMixed    PaymentMethod = "Mixto"
)

// Sale is a confirmed point-of-sale transaction.
type Sale struct {
	ID               uuid.UUID
	TenantID         string
	ActorID          string
	PosNumber        int
	IdempotencyKey   string
	Items            []Item
	Total            decimal.Decimal
	PaymentMethod    PaymentMethod
	PaymentBreakdown json.RawMessage
	CreatedAt        time.Time
}

// Item is one line of a sale. UnitPrice is per unit; Subtotal is UnitPrice x Quantity.
type Item struct {
	ID          uuid.UUID
	SaleID      uuid.UUID
	ProductID   string
	ProductName string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// NewItem builds a sale line and computes its subtotal.
func NewItem(productID, productName string, quantity, unitPrice decimal.Decimal) (Item, error) {
	if productID == "" {
		return Item{}, errors.NewValidationError("product_id", "required")
	}
	if !quantity.IsPositive() {
		return Item{}, fmt.Errorf("product %s: %w", productID, errors.ErrInvalidQuantity)
	}
	if unitPrice.IsNegative() {
		return Item{}, fmt.Errorf("product %s: %w", productID, errors.ErrInvalidPrice)
	}
	return Item{
		ID:          uuid.New(),
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Subtotal:    unitPrice.Mul(quantity),
	}, nil
}

// NewSale validates the input and returns a sale ready to persist.
// The total is taken as captured; it is not recomputed from the items because
// the terminal may have applied rounding or discounts.
func NewSale(
	tenantID string,
	actorID string,
	posNumber int,
	items []Item,
	total decimal.Decimal,
	method PaymentMethod,
	breakdown json.RawMessage,
) (*Sale, error) {
	if tenantID == "" {
		return nil, errors.NewValidationError("tenant_id", "required")
	}
	if actorID == "" {
		return nil, errors.NewValidationError("actor_id", "required")
	}
	if posNumber < 0 {
		return nil, errors.ErrInvalidPosNumber
	}
	if len(items) == 0 {
		return nil, errors.ErrSaleWithoutItems
	}
	if total.IsNegative() {
		return nil, errors.ErrInvalidTotal
	}

	id := uuid.New()
	lines := make([]Item, len(items))
	for i, it := range items {
		it.SaleID = id
		lines[i] = it
	}

	return &Sale{
		ID:               id,
		TenantID:         tenantID,
		ActorID:          actorID,
		PosNumber:        posNumber,
		Items:            lines,
		Total:            total,
		PaymentMethod:    method,
		PaymentBreakdown: breakdown,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// ItemsTotal sums the line subtotals.
func (s *Sale) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range s.Items {
		sum = sum.Add(it.Subtotal)
	}
	return sum
}

// QuantityByProduct aggregates quantities per product id, preserving first-seen order.
func (s *Sale) QuantityByProduct() ([]string, map[string]decimal.Decimal) {
	order := make([]string, 0, len(s.Items))
	qty := make(map[string]decimal.Decimal, len(s.Items))
	for _, it := range s.Items {
		if _, ok := qty[it.ProductID]; !ok {
			order = append(order, it.ProductID)
			qty[it.ProductID] = decimal.Zero
		}
		qty[it.ProductID] = qty[it.ProductID].Add(it.Quantity)
	}
	return order, qty
}
