package sale

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/inventory"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/outbox"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/sale"
	"github.com/shopspring/decimal"
)

// ItemInput is one requested sale line.
type ItemInput struct {
	ProductID   string
	ProductName string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// CreateSaleRequest holds the input for creating a sale.
type CreateSaleRequest struct {
	IdempotencyKey string
	// SessionTenantID is the tenant of the authenticated caller.
	SessionTenantID string
	// TenantID is the tenant named in the request body; empty means the session tenant.
	TenantID         string
	ActorID          string
	PosNumber        int
	Items            []ItemInput
	Total            decimal.Decimal
	PaymentMethod    string
	PaymentBreakdown json.RawMessage
}

// CreateSaleResponse holds the result of creating a sale.
type CreateSaleResponse struct {
	Sale *sale.Sale
	// Replayed is true when the idempotency key matched an earlier sale.
	Replayed bool
}

// CreateSaleUseCase orchestrates sale creation.
type CreateSaleUseCase struct {
	saleRepo    sale.Repository
	productRepo inventory.Repository
	outboxRepo  OutboxWriter
	txManager   TransactionManager
	recorder    Recorder
}

type CreateSaleOption func(*CreateSaleUseCase)

func WithRecorder(r Recorder) CreateSaleOption {
	return func(uc *CreateSaleUseCase) { uc.recorder = r }
}

// NewCreateSaleUseCase creates a new CreateSaleUseCase.
func NewCreateSaleUseCase(
	saleRepo sale.Repository,
	productRepo inventory.Repository,
	outboxRepo OutboxWriter,
	txManager TransactionManager,
	opts ...CreateSaleOption,
) *CreateSaleUseCase {
	uc := &CreateSaleUseCase{
		saleRepo:    saleRepo,
		productRepo: productRepo,
		outboxRepo:  outboxRepo,
		txManager:   txManager,
		recorder:    nopRecorder{},
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Execute validates the sale, decrements stock, persists the sale and
// writes the sale.created outbox entry in one transaction.
func (uc *CreateSaleUseCase) Execute(ctx context.Context, req CreateSaleRequest) (*CreateSaleResponse, error) {
	resp, err := uc.execute(ctx, req)
	if err != nil {
		uc.recorder.SaleRejected(rejectionReason(err))
		return nil, err
	}
	if !resp.Replayed {
		uc.recorder.SaleRecorded(resp.Sale)
	}
	return resp, nil
}

func (uc *CreateSaleUseCase) execute(ctx context.Context, req CreateSaleRequest) (*CreateSaleResponse, error) {
	tenantID := req.SessionTenantID
	if req.TenantID != "" && req.TenantID != req.SessionTenantID {
		return nil, domainErrors.ErrTenantMismatch
	}

	// 1. Check idempotency: if the sale already exists, return it.
	if req.IdempotencyKey != "" {
		existing, err := uc.saleRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("lookup idempotency key: %w", err)
		}
		if existing != nil {
			if existing.TenantID != tenantID {
				return nil, domainErrors.ErrDuplicateIdempotencyKey
			}
			return &CreateSaleResponse{Sale: existing, Replayed: true}, nil
		}
	}

	// 2. Build the sale entity.
	items := make([]sale.Item, 0, len(req.Items))
	for _, in := range req.Items {
		it, err := sale.NewItem(in.ProductID, in.ProductName, in.Quantity, in.UnitPrice)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	s, err := sale.NewSale(tenantID, req.ActorID, req.PosNumber, items, req.Total, sale.PaymentMethod(req.PaymentMethod), req.PaymentBreakdown)
	if err != nil {
		return nil, err
	}
	s.IdempotencyKey = req.IdempotencyKey

	// 3. Stock, sale and outbox in one transaction. Stock may go negative:
	// an offline sale has already happened.
	var negative int
	err = uc.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		negative = 0
		order, qty := s.QuantityByProduct()
		for _, productID := range order {
			left, err := uc.productRepo.AdjustStock(txCtx, tenantID, productID, qty[productID].Neg())
			if err != nil {
				return fmt.Errorf("product %s: %w", productID, err)
			}
			if left.IsNegative() {
				negative++
			}
		}

		if err := uc.saleRepo.Create(txCtx, s); err != nil {
			return err
		}

		return uc.outboxRepo.Insert(txCtx, outbox.NewEntry(
			outbox.AggregateSale,
			s.ID,
			tenantID,
			outbox.EventSaleCreated,
			s.EventPayload(),
		))
	})
	if err != nil {
		return nil, err
	}
	if negative > 0 {
		uc.recorder.StockWentNegative(negative)
	}

	return &CreateSaleResponse{Sale: s}, nil
}

func rejectionReason(err error) string {
	var ve *domainErrors.ValidationError
	switch {
	case errors.Is(err, domainErrors.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, domainErrors.ErrTenantMismatch):
		return "tenant_mismatch"
	case errors.Is(err, domainErrors.ErrDuplicateIdempotencyKey):
		return "duplicate_idempotency_key"
	case errors.As(err, &ve),
		errors.Is(err, domainErrors.ErrSaleWithoutItems),
		errors.Is(err, domainErrors.ErrInvalidQuantity),
		errors.Is(err, domainErrors.ErrInvalidPrice),
		errors.Is(err, domainErrors.ErrInvalidTotal),
		errors.Is(err, domainErrors.ErrInvalidPosNumber),
		errors.Is(err, domainErrors.ErrDuplicateSaleItem):
		return "validation"
	default:
		return "internal"
	}
}
