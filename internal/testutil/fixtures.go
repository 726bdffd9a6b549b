package testutil

import (
	"time"

	"github.com/cobasjano/JC-sistema-sub001/internal/domain/inventory"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/pending"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/sale"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func NewTestProduct(tenantID, id, name string, price, stock int64) *inventory.Product {
	now := time.Now()
	return &inventory.Product{
		ID:        id,
		TenantID:  tenantID,
		Name:      name,
		Price:     decimal.NewFromInt(price),
		Stock:     decimal.NewFromInt(stock),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func NewTestSale(tenantID string, posNumber int, items ...sale.Item) *sale.Sale {
	id := uuid.New()
	total := decimal.Zero
	for i := range items {
		items[i].SaleID = id
		total = total.Add(items[i].Subtotal)
	}
	return &sale.Sale{
		ID:             id,
		TenantID:       tenantID,
		ActorID:        "user-1",
		PosNumber:      posNumber,
		IdempotencyKey: uuid.NewString(),
		Items:          items,
		Total:          total,
		PaymentMethod:  sale.PaymentCash,
		CreatedAt:      time.Now(),
	}
}

func NewTestSaleItem(productID string, qty, unitPrice int64) sale.Item {
	q, p := decimal.NewFromInt(qty), decimal.NewFromInt(unitPrice)
	return sale.Item{
		ID:          uuid.New(),
		ProductID:   productID,
		ProductName: productID,
		Quantity:    q,
		UnitPrice:   p,
		Subtotal:    p.Mul(q),
	}
}

// NewTestQueuedSale builds a queued sale with a fixed id and one line per item.
func NewTestQueuedSale(id string, posNumber int, items ...pending.Item) pending.QueuedSale {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineSubtotal())
	}
	return pending.QueuedSale{
		ID:        id,
		PosNumber: posNumber,
		TenantID:  "tenant-1",
		Items:     items,
		Total:     total,
		CreatedAt: time.Now().UTC(),
	}
}

func NewTestPendingItem(productID string, qty, price int64) pending.Item {
	return pending.Item{
		ProductID:   productID,
		ProductName: productID,
		Quantity:    decimal.NewFromInt(qty),
		Price:       decimal.NewFromInt(price),
	}
}
