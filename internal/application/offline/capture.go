package offline

import (
	"context"
	"encoding/json"
	"fmt"

	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/pending"
	"github.com/cobasjano/JC-sistema-sub001/pkg/retry"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SaleInput is a sale as entered at checkout.
type SaleInput struct {
	Items            []pending.Item
	Total            decimal.Decimal
	PaymentMethod    string
	PaymentBreakdown json.RawMessage
}

// CaptureResult tells the caller whether the sale reached the back office
// or was queued for a later sync.
type CaptureResult struct {
	Queued   bool
	QueuedID string
	Sale     *CreatedSale
	Reason   error
}

// CaptureUseCase records checkout sales, handing failed or offline sales to
// the pending store.
type CaptureUseCase struct {
	store   pending.Store
	creator SaleCreator
	session SessionProvider
	state   OnlineState
	retry   retry.Config
	logger  zerolog.Logger
}

func NewCaptureUseCase(
	store pending.Store,
	creator SaleCreator,
	session SessionProvider,
	state OnlineState,
	retryCfg retry.Config,
	logger zerolog.Logger,
) *CaptureUseCase {
	return &CaptureUseCase{
		store:   store,
		creator: creator,
		session: session,
		state:   state,
		retry:   retryCfg,
		logger:  logger.With().Str("component", "capture").Logger(),
	}
}

// Capture submits the sale when online and queues it on any failure.
func (uc *CaptureUseCase) Capture(ctx context.Context, in SaleInput) (*CaptureResult, error) {
	user, q, err := uc.prepare(in)
	if err != nil {
		return nil, err
	}

	if !uc.state.Online() {
		return uc.enqueue(ctx, q, domainErrors.ErrOffline)
	}

	cfg := uc.retry
	cfg.RetryIf = func(err error) bool { return !domainErrors.IsRemoteRejection(err) }
	created, err := retry.DoWithResult(ctx, cfg, func() (*CreatedSale, error) {
		return uc.creator.CreateSale(ctx, toRemoteSale(user, q))
	})
	if err == nil && created == nil {
		err = fmt.Errorf("empty acknowledgment: %w", domainErrors.ErrRemoteRejected)
	}
	if err != nil {
		uc.logger.Warn().Err(err).Str("queued_id", q.ID).Msg("sale submission failed, queueing")
		return uc.enqueue(ctx, q, err)
	}

	return &CaptureResult{Sale: created}, nil
}

// RecordOffline appends the sale to the pending store without contacting the remote service.
func (uc *CaptureUseCase) RecordOffline(ctx context.Context, in SaleInput) (*CaptureResult, error) {
	_, q, err := uc.prepare(in)
	if err != nil {
		return nil, err
	}
	return uc.enqueue(ctx, q, nil)
}

func (uc *CaptureUseCase) prepare(in SaleInput) (SessionUser, pending.QueuedSale, error) {
	if err := validateInput(in); err != nil {
		return SessionUser{}, pending.QueuedSale{}, err
	}
	user, ok := uc.session.Current()
	if !ok {
		return SessionUser{}, pending.QueuedSale{}, domainErrors.ErrNoSession
	}
	q := pending.NewQueuedSale(user.PosNumber, user.TenantID, in.Items, in.Total, in.PaymentMethod, in.PaymentBreakdown)
	return user, *q, nil
}

func (uc *CaptureUseCase) enqueue(ctx context.Context, q pending.QueuedSale, reason error) (*CaptureResult, error) {
	if err := uc.store.Append(ctx, q); err != nil {
		return nil, fmt.Errorf("queue sale: %w", err)
	}
	return &CaptureResult{Queued: true, QueuedID: q.ID, Reason: reason}, nil
}

func validateInput(in SaleInput) error {
	if len(in.Items) == 0 {
		return domainErrors.ErrSaleWithoutItems
	}
	for _, it := range in.Items {
		if it.ProductID == "" {
			return domainErrors.NewValidationError("product_id", "required")
		}
		if !it.Quantity.IsPositive() {
			return fmt.Errorf("product %s: %w", it.ProductID, domainErrors.ErrInvalidQuantity)
		}
		if it.Price.IsNegative() {
			return fmt.Errorf("product %s: %w", it.ProductID, domainErrors.ErrInvalidPrice)
		}
	}
	if in.Total.IsNegative() {
		return domainErrors.ErrInvalidTotal
	}
	return nil
}

// toRemoteSale builds the request for a sale captured under the current session.
func toRemoteSale(user SessionUser, q pending.QueuedSale) RemoteSale {
	return RemoteSale{
		ActorID:          user.UserID,
		PosNumber:        q.PosNumber,
		TenantID:         user.TenantID,
		Items:            toRemoteItems(q.Items),
		Total:            q.Total,
		PaymentMethod:    q.PaymentMethod,
		PaymentBreakdown: q.PaymentBreakdown,
		IdempotencyKey:   q.ID,
	}
}
