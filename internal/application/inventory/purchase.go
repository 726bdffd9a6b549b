package inventory

import (
	"context"
	"fmt"

	"github.com/cobasjano/JC-sistema-sub001/internal/domain/inventory"
)

// RecordPurchaseRequest holds the input for recording a supplier purchase.
type RecordPurchaseRequest struct {
	TenantID string
	ActorID  string
	Supplier string
	Items    []inventory.PurchaseItem
}

// RecordPurchaseUseCase persists a purchase and adds the received quantities to stock.
type RecordPurchaseUseCase struct {
	productRepo inventory.Repository
	txManager   TransactionManager
}

func NewRecordPurchaseUseCase(productRepo inventory.Repository, txManager TransactionManager) *RecordPurchaseUseCase {
	return &RecordPurchaseUseCase{productRepo: productRepo, txManager: txManager}
}

func (uc *RecordPurchaseUseCase) Execute(ctx context.Context, req RecordPurchaseRequest) (*inventory.Purchase, error) {
	p, err := inventory.NewPurchase(req.TenantID, req.ActorID, req.Supplier, req.Items)
	if err != nil {
		return nil, err
	}

	err = uc.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.productRepo.CreatePurchase(txCtx, p); err != nil {
			return err
		}
		for _, it := range p.Items {
			if _, err := uc.productRepo.AdjustStock(txCtx, p.TenantID, it.ProductID, it.Quantity); err != nil {
				return fmt.Errorf("product %s: %w", it.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
