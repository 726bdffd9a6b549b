package inventory

import (
	"context"

	"github.com/cobasjano/JC-sistema-sub001/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// UpsertProductRequest holds the input for creating or replacing a product.
type UpsertProductRequest struct {
	TenantID string
	ID       string
	Name     string
	Price    decimal.Decimal
	Stock    decimal.Decimal
}

// UpsertProductUseCase creates or replaces a product.
type UpsertProductUseCase struct {
	productRepo inventory.Repository
}

func NewUpsertProductUseCase(productRepo inventory.Repository) *UpsertProductUseCase {
	return &UpsertProductUseCase{productRepo: productRepo}
}

func (uc *UpsertProductUseCase) Execute(ctx context.Context, req UpsertProductRequest) (*inventory.Product, error) {
	p, err := inventory.NewProduct(req.TenantID, req.ID, req.Name, req.Price, req.Stock)
	if err != nil {
		return nil, err
	}
	if err := uc.productRepo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProductUseCase retrieves a product within a tenant.
type GetProductUseCase struct {
	productRepo inventory.Repository
}

func NewGetProductUseCase(productRepo inventory.Repository) *GetProductUseCase {
	return &GetProductUseCase{productRepo: productRepo}
}

func (uc *GetProductUseCase) Execute(ctx context.Context, tenantID, id string) (*inventory.Product, error) {
	return uc.productRepo.GetByID(ctx, tenantID, id)
}

// ListProductsUseCase lists a tenant's products.
type ListProductsUseCase struct {
	productRepo inventory.Repository
}

func NewListProductsUseCase(productRepo inventory.Repository) *ListProductsUseCase {
	return &ListProductsUseCase{productRepo: productRepo}
}

func (uc *ListProductsUseCase) Execute(ctx context.Context, tenantID string) ([]*inventory.Product, error) {
	return uc.productRepo.List(ctx, tenantID)
}
