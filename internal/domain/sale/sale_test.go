package sale

import (
	"encoding/json"
	"errors"
	"testing"

	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItem_ComputesSubtotal(t *testing.T) {
	item, err := NewItem("p1", "Widget", decimal.NewFromInt(2), decimal.NewFromInt(10))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, item.ID)
	assert.True(t, item.Subtotal.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "Widget", item.ProductName)
}

func TestNewItem_FractionalQuantity(t *testing.T) {
	item, err := NewItem("cheese", "Queso", decimal.RequireFromString("0.250"), decimal.RequireFromString("8400"))
	require.NoError(t, err)
	assert.True(t, item.Subtotal.Equal(decimal.NewFromInt(2100)))
}

func TestNewItem_Validation(t *testing.T) {
	tests := []struct {
		name      string
		productID string
		qty       decimal.Decimal
		price     decimal.Decimal
		wantErr   error
	}{
		{"missing product", "", decimal.NewFromInt(1), decimal.NewFromInt(1), domainErrors.ErrValidationFailed},
		{"zero quantity", "p1", decimal.Zero, decimal.NewFromInt(1), domainErrors.ErrInvalidQuantity},
		{"negative quantity", "p1", decimal.NewFromInt(-1), decimal.NewFromInt(1), domainErrors.ErrInvalidQuantity},
		{"negative price", "p1", decimal.NewFromInt(1), decimal.NewFromInt(-5), domainErrors.ErrInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewItem(tt.productID, "x", tt.qty, tt.price)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestNewItem_ZeroPriceAllowed(t *testing.T) {
	item, err := NewItem("gift", "Regalo", decimal.NewFromInt(1), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, item.Subtotal.IsZero())
}

func TestNewSale_Success(t *testing.T) {
	item, _ := NewItem("p1", "Widget", decimal.NewFromInt(2), decimal.NewFromInt(10))
	breakdown := json.RawMessage(`{"cash":20}`)

	s, err := NewSale("tenant-1", "user-1", 3, []Item{item}, decimal.NewFromInt(20), PaymentCash, breakdown)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.Equal(t, "tenant-1", s.TenantID)
	assert.Equal(t, 3, s.PosNumber)
	assert.Equal(t, PaymentCash, s.PaymentMethod)
	assert.JSONEq(t, `{"cash":20}`, string(s.PaymentBreakdown))
	require.Len(t, s.Items, 1)
	assert.Equal(t, s.ID, s.Items[0].SaleID)
	assert.False(t, s.CreatedAt.IsZero())
}

func TestNewSale_TotalNotRecomputed(t *testing.T) {
	item, _ := NewItem("p1", "Widget", decimal.NewFromInt(2), decimal.NewFromInt(10))

	s, err := NewSale("tenant-1", "user-1", 1, []Item{item}, decimal.NewFromInt(18), "", nil)
	require.NoError(t, err)

	assert.True(t, s.Total.Equal(decimal.NewFromInt(18)))
	assert.True(t, s.ItemsTotal().Equal(decimal.NewFromInt(20)))
}

func TestNewSale_Validation(t *testing.T) {
	item, _ := NewItem("p1", "Widget", decimal.NewFromInt(1), decimal.NewFromInt(10))

	tests := []struct {
		name    string
		tenant  string
		actor   string
		pos     int
		items   []Item
		total   decimal.Decimal
		wantErr error
	}{
		{"missing tenant", "", "u", 1, []Item{item}, decimal.NewFromInt(10), domainErrors.ErrValidationFailed},
		{"missing actor", "t", "", 1, []Item{item}, decimal.NewFromInt(10), domainErrors.ErrValidationFailed},
		{"negative pos", "t", "u", -1, []Item{item}, decimal.NewFromInt(10), domainErrors.ErrInvalidPosNumber},
		{"no items", "t", "u", 1, nil, decimal.NewFromInt(10), domainErrors.ErrSaleWithoutItems},
		{"negative total", "t", "u", 1, []Item{item}, decimal.NewFromInt(-1), domainErrors.ErrInvalidTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSale(tt.tenant, tt.actor, tt.pos, tt.items, tt.total, "", nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestSale_QuantityByProduct(t *testing.T) {
	a, _ := NewItem("a", "A", decimal.NewFromInt(1), decimal.NewFromInt(1))
	b, _ := NewItem("b", "B", decimal.NewFromInt(2), decimal.NewFromInt(1))
	a2, _ := NewItem("a", "A", decimal.NewFromInt(3), decimal.NewFromInt(1))

	s, err := NewSale("t", "u", 1, []Item{a, b, a2}, decimal.NewFromInt(6), "", nil)
	require.NoError(t, err)

	order, qty := s.QuantityByProduct()
	assert.Equal(t, []string{"a", "b"}, order)
	assert.True(t, qty["a"].Equal(decimal.NewFromInt(4)))
	assert.True(t, qty["b"].Equal(decimal.NewFromInt(2)))
}

func TestSale_EventPayloadAggregatesQuantities(t *testing.T) {
	a, err := NewItem("p1", "Widget", decimal.NewFromInt(2), decimal.NewFromInt(10))
	require.NoError(t, err)
	b, err := NewItem("p2", "Gadget", decimal.NewFromInt(1), decimal.NewFromInt(5))
	require.NoError(t, err)
	c, err := NewItem("p1", "Widget", decimal.RequireFromString("0.5"), decimal.NewFromInt(10))
	require.NoError(t, err)

	s, err := NewSale("t1", "u1", 3, []Item{a, b, c}, decimal.NewFromInt(30), PaymentCash, nil)
	require.NoError(t, err)

	payload := s.EventPayload()
	assert.Equal(t, s.ID.String(), payload["sale_id"])
	assert.Equal(t, "t1", payload["tenant_id"])
	assert.Equal(t, "30", payload["total"])

	items := payload["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, map[string]any{"product_id": "p1", "quantity": "2.5"}, items[0])
	assert.Equal(t, map[string]any{"product_id": "p2", "quantity": "1"}, items[1])
}
