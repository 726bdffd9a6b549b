package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/inventory"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/sale"
)

// ProductRank is a product's cumulative quantity sold.
type ProductRank struct {
	ProductID string
	Name      string
	Quantity  float64
}

// Ranking stores per-tenant quantities sold per product.
type Ranking interface {
	Increment(ctx context.Context, tenantID, productID string, quantity float64) error
	Top(ctx context.Context, tenantID string, limit int) ([]ProductRank, error)
}

// TopProductsUseCase returns the best-selling products of a tenant.
type TopProductsUseCase struct {
	ranking     Ranking
	productRepo inventory.Repository
}

func NewTopProductsUseCase(ranking Ranking, productRepo inventory.Repository) *TopProductsUseCase {
	return &TopProductsUseCase{ranking: ranking, productRepo: productRepo}
}

func (uc *TopProductsUseCase) Execute(ctx context.Context, tenantID string, limit int) ([]ProductRank, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	ranks, err := uc.ranking.Top(ctx, tenantID, limit)
	if err != nil {
		return nil, err
	}
	for i := range ranks {
		p, err := uc.productRepo.GetByID(ctx, tenantID, ranks[i].ProductID)
		switch {
		case err == nil:
			ranks[i].Name = p.Name
		case errors.Is(err, domainErrors.ErrProductNotFound):
			// deleted product, keep the id only
		default:
			return nil, err
		}
	}
	return ranks, nil
}

// RecordSaleUseCase folds a sale.created event into the ranking.
type RecordSaleUseCase struct {
	ranking Ranking
}

func NewRecordSaleUseCase(ranking Ranking) *RecordSaleUseCase {
	return &RecordSaleUseCase{ranking: ranking}
}

// Execute decodes a sale.created payload and increments each product's score.
func (uc *RecordSaleUseCase) Execute(ctx context.Context, payload []byte) error {
	var evt sale.CreatedEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("%w: decode sale.created: %v", domainErrors.ErrInvalidInput, err)
	}
	if evt.TenantID == "" {
		return domainErrors.NewValidationError("tenant_id", "required")
	}
	for _, it := range evt.Items {
		qty, _ := it.Quantity.Float64()
		if err := uc.ranking.Increment(ctx, evt.TenantID, it.ProductID, qty); err != nil {
			return fmt.Errorf("rank product %s: %w", it.ProductID, err)
		}
	}
	return nil
}
