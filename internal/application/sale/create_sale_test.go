package sale_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	saleApp "github.com/cobasjano/JC-sistema-sub001/internal/application/sale"
	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/outbox"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/sale"
	"github.com/cobasjano/JC-sistema-sub001/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest() saleApp.CreateSaleRequest {
	return saleApp.CreateSaleRequest{
		IdempotencyKey:  "queued-1",
		SessionTenantID: "tenant-1",
		TenantID:        "tenant-1",
		ActorID:         "user-1",
		PosNumber:       2,
		Items: []saleApp.ItemInput{
			{ProductID: "p1", ProductName: "Widget", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(10)},
			{ProductID: "p2", ProductName: "Gadget", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(5)},
		},
		Total:            decimal.NewFromInt(25),
		PaymentMethod:    "Efectivo",
		PaymentBreakdown: json.RawMessage(`{"cash":25}`),
	}
}

type fixture struct {
	sales    *testutil.MockSaleRepository
	products *testutil.MockProductRepository
	outbox   *testutil.MockOutboxRepository
	tx       *testutil.MockTransactionManager
	uc       *saleApp.CreateSaleUseCase
}

func newFixture() *fixture {
	f := &fixture{
		sales:    testutil.NewMockSaleRepository(),
		products: testutil.NewMockProductRepository(),
		outbox:   &testutil.MockOutboxRepository{},
		tx:       testutil.NewMockTransactionManager(),
	}
	f.products.AddProduct(testutil.NewTestProduct("tenant-1", "p1", "Widget", 10, 5))
	f.products.AddProduct(testutil.NewTestProduct("tenant-1", "p2", "Gadget", 5, 0))
	f.uc = saleApp.NewCreateSaleUseCase(f.sales, f.products, f.outbox, f.tx)
	return f
}

func TestCreateSale_Success(t *testing.T) {
	f := newFixture()

	resp, err := f.uc.Execute(context.Background(), newRequest())
	require.NoError(t, err)
	require.NotNil(t, resp.Sale)
	assert.False(t, resp.Replayed)

	s := resp.Sale
	assert.Equal(t, "tenant-1", s.TenantID)
	assert.Equal(t, "queued-1", s.IdempotencyKey)
	assert.Equal(t, sale.PaymentCash, s.PaymentMethod)
	require.Len(t, s.Items, 2)
	assert.True(t, s.Items[0].Subtotal.Equal(decimal.NewFromInt(20)))

	assert.True(t, f.products.Stock("tenant-1", "p1").Equal(decimal.NewFromInt(3)))
	// Stock may go negative.
	assert.True(t, f.products.Stock("tenant-1", "p2").Equal(decimal.NewFromInt(-1)))

	require.Len(t, f.outbox.Entries, 1)
	entry := f.outbox.Entries[0]
	assert.Equal(t, outbox.EventSaleCreated, entry.EventType)
	assert.Equal(t, s.ID, entry.AggregateID)
	assert.Equal(t, "tenant-1", entry.TenantID)
	assert.Equal(t, 1, f.sales.Count())
}

func TestCreateSale_IdempotentReplay(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.uc.Execute(ctx, newRequest())
	require.NoError(t, err)

	second, err := f.uc.Execute(ctx, newRequest())
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Sale.ID, second.Sale.ID)
	assert.Equal(t, 1, f.sales.Count())
	assert.Len(t, f.outbox.Entries, 1)
	assert.True(t, f.products.Stock("tenant-1", "p1").Equal(decimal.NewFromInt(3)))
}

func TestCreateSale_IdempotencyKeyFromOtherTenant(t *testing.T) {
	f := newFixture()
	existing := testutil.NewTestSale("tenant-2", 1, testutil.NewTestSaleItem("p1", 1, 1))
	existing.IdempotencyKey = "queued-1"
	require.NoError(t, f.sales.Create(context.Background(), existing))

	_, err := f.uc.Execute(context.Background(), newRequest())
	assert.ErrorIs(t, err, domainErrors.ErrDuplicateIdempotencyKey)
}

func TestCreateSale_TenantMismatch(t *testing.T) {
	f := newFixture()
	req := newRequest()
	req.TenantID = "tenant-other"

	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, domainErrors.ErrTenantMismatch)
	assert.Equal(t, 0, f.sales.Count())
}

func TestCreateSale_EmptyTenantUsesSession(t *testing.T) {
	f := newFixture()
	req := newRequest()
	req.TenantID = ""

	resp, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", resp.Sale.TenantID)
}

func TestCreateSale_UnknownProduct(t *testing.T) {
	f := newFixture()
	req := newRequest()
	req.Items[1].ProductID = "missing"

	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, domainErrors.ErrProductNotFound)
	assert.Equal(t, 0, f.sales.Count())
	assert.Empty(t, f.outbox.Entries)
}

func TestCreateSale_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*saleApp.CreateSaleRequest)
		wantErr error
	}{
		{"no items", func(r *saleApp.CreateSaleRequest) { r.Items = nil }, domainErrors.ErrSaleWithoutItems},
		{"zero quantity", func(r *saleApp.CreateSaleRequest) { r.Items[0].Quantity = decimal.Zero }, domainErrors.ErrInvalidQuantity},
		{"negative price", func(r *saleApp.CreateSaleRequest) { r.Items[0].UnitPrice = decimal.NewFromInt(-1) }, domainErrors.ErrInvalidPrice},
		{"negative total", func(r *saleApp.CreateSaleRequest) { r.Total = decimal.NewFromInt(-1) }, domainErrors.ErrInvalidTotal},
		{"missing actor", func(r *saleApp.CreateSaleRequest) { r.ActorID = "" }, domainErrors.ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := newRequest()
			tt.mutate(&req)

			_, err := f.uc.Execute(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateSale_TransactionFailure(t *testing.T) {
	f := newFixture()
	boom := errors.New("tx failed")
	f.tx.WithTransactionFunc = func(ctx context.Context, fn func(ctx context.Context) error) error {
		return boom
	}

	_, err := f.uc.Execute(context.Background(), newRequest())
	assert.ErrorIs(t, err, boom)
}

func TestCreateSale_OutboxFailureAbortsTransaction(t *testing.T) {
	f := newFixture()
	f.outbox.InsertFunc = func(context.Context, *outbox.Entry) error { return errors.New("outbox down") }

	_, err := f.uc.Execute(context.Background(), newRequest())
	assert.Error(t, err)
}

type recorder struct {
	recorded []string
	rejected []string
	negative int
}

func (r *recorder) SaleRecorded(s *sale.Sale)  { r.recorded = append(r.recorded, s.ID.String()) }
func (r *recorder) SaleRejected(reason string) { r.rejected = append(r.rejected, reason) }
func (r *recorder) StockWentNegative(n int)    { r.negative += n }

func TestCreateSale_Recorder(t *testing.T) {
	f := newFixture()
	rec := &recorder{}
	uc := saleApp.NewCreateSaleUseCase(f.sales, f.products, f.outbox, f.tx, saleApp.WithRecorder(rec))
	ctx := context.Background()

	first, err := uc.Execute(ctx, newRequest())
	require.NoError(t, err)
	_, err = uc.Execute(ctx, newRequest())
	require.NoError(t, err)

	bad := newRequest()
	bad.IdempotencyKey = "queued-2"
	bad.Items[0].ProductID = "missing"
	_, err = uc.Execute(ctx, bad)
	require.Error(t, err)

	empty := newRequest()
	empty.IdempotencyKey = "queued-3"
	empty.Items = nil
	_, err = uc.Execute(ctx, empty)
	require.Error(t, err)

	assert.Equal(t, []string{first.Sale.ID.String()}, rec.recorded, "replays are not recorded twice")
	assert.Equal(t, []string{"product_not_found", "validation"}, rec.rejected)
	assert.Equal(t, 1, rec.negative)
}
