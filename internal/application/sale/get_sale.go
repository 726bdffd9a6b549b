package sale

import (
	"context"

	"github.com/cobasjano/JC-sistema-sub001/internal/domain/sale"
	"github.com/google/uuid"
)

// GetSaleUseCase retrieves a sale by ID within a tenant.
type GetSaleUseCase struct {
	saleRepo sale.Repository
}

func NewGetSaleUseCase(saleRepo sale.Repository) *GetSaleUseCase {
	return &GetSaleUseCase{saleRepo: saleRepo}
}

func (uc *GetSaleUseCase) Execute(ctx context.Context, tenantID string, id uuid.UUID) (*sale.Sale, error) {
	return uc.saleRepo.GetByID(ctx, tenantID, id)
}

// ListSalesUseCase lists a tenant's sales, newest first.
type ListSalesUseCase struct {
	saleRepo sale.Repository
}

func NewListSalesUseCase(saleRepo sale.Repository) *ListSalesUseCase {
	return &ListSalesUseCase{saleRepo: saleRepo}
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func (uc *ListSalesUseCase) Execute(ctx context.Context, filter sale.ListFilter) ([]*sale.Sale, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.saleRepo.List(ctx, filter)
}
