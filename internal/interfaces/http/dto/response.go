package dto

import (
	"encoding/json"
	"time"

	"github.com/cobasjano/JC-sistema-sub001/internal/application/report"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/inventory"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/sale"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SaleItemResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// SaleResponse is the HTTP response for a sale.
type SaleResponse struct {
	ID               uuid.UUID          `json:"id"`
	TenantID         string             `json:"tenant_id"`
	ActorID          string             `json:"actor_id"`
	PosNumber        int                `json:"pos_number"`
	IdempotencyKey   string             `json:"idempotency_key,omitempty"`
	Items            []SaleItemResponse `json:"items"`
	Total            decimal.Decimal    `json:"total"`
	PaymentMethod    string             `json:"payment_method,omitempty"`
	PaymentBreakdown json.RawMessage    `json:"payment_breakdown,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

// FromSale maps a domain Sale to a SaleResponse.
func FromSale(s *sale.Sale) *SaleResponse {
	resp := &SaleResponse{
		ID:               s.ID,
		TenantID:         s.TenantID,
		ActorID:          s.ActorID,
		PosNumber:        s.PosNumber,
		IdempotencyKey:   s.IdempotencyKey,
		Items:            make([]SaleItemResponse, 0, len(s.Items)),
		Total:            s.Total,
		PaymentMethod:    string(s.PaymentMethod),
		PaymentBreakdown: s.PaymentBreakdown,
		CreatedAt:        s.CreatedAt,
	}
	for _, it := range s.Items {
		resp.Items = append(resp.Items, SaleItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal,
		})
	}
	return resp
}

type SaleListResponse struct {
	Sales  []*SaleResponse `json:"sales"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type ProductResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     decimal.Decimal `json:"stock"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func FromProduct(p *inventory.Product) *ProductResponse {
	return &ProductResponse{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
		UpdatedAt: p.UpdatedAt,
	}
}

type PurchaseItemResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

type PurchaseResponse struct {
	ID        uuid.UUID              `json:"id"`
	Supplier  string                 `json:"supplier"`
	Items     []PurchaseItemResponse `json:"items"`
	Total     decimal.Decimal        `json:"total"`
	CreatedAt time.Time              `json:"created_at"`
}

func FromPurchase(p *inventory.Purchase) *PurchaseResponse {
	resp := &PurchaseResponse{
		ID:        p.ID,
		Supplier:  p.Supplier,
		Items:     make([]PurchaseItemResponse, 0, len(p.Items)),
		Total:     p.Total(),
		CreatedAt: p.CreatedAt,
	}
	for _, it := range p.Items {
		resp.Items = append(resp.Items, PurchaseItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitCost:  it.UnitCost,
		})
	}
	return resp
}

type ProductRankResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	Quantity  float64 `json:"quantity"`
}

func FromRanking(ranks []report.ProductRank) []ProductRankResponse {
	out := make([]ProductRankResponse, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, ProductRankResponse{ProductID: r.ProductID, Name: r.Name, Quantity: r.Quantity})
	}
	return out
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
