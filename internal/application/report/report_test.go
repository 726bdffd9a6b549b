package report_test

import (
	"context"
	"testing"

	"github.com/cobasjano/JC-sistema-sub001/internal/application/report"
	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/cobasjano/JC-sistema-sub001/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSale_IncrementsRanking(t *testing.T) {
	ranking := testutil.NewMockRanking()
	uc := report.NewRecordSaleUseCase(ranking)

	payload := []byte(`{"sale_id":"s1","tenant_id":"t1","pos_number":1,"total":"25",
		"items":[{"product_id":"p1","quantity":"2"},{"product_id":"p2","quantity":"0.5"}]}`)
	require.NoError(t, uc.Execute(context.Background(), payload))
	require.NoError(t, uc.Execute(context.Background(), payload))

	assert.Equal(t, 4.0, ranking.Score("t1", "p1"))
	assert.Equal(t, 1.0, ranking.Score("t1", "p2"))
}

func TestRecordSale_BadPayload(t *testing.T) {
	uc := report.NewRecordSaleUseCase(testutil.NewMockRanking())
	assert.ErrorIs(t, uc.Execute(context.Background(), []byte(`not json`)), domainErrors.ErrInvalidInput)
	assert.ErrorIs(t, uc.Execute(context.Background(), []byte(`{"items":[]}`)), domainErrors.ErrValidationFailed)
}

func TestTopProducts_EnrichesNames(t *testing.T) {
	ranking := testutil.NewMockRanking()
	ctx := context.Background()
	require.NoError(t, ranking.Increment(ctx, "t1", "p1", 3))
	require.NoError(t, ranking.Increment(ctx, "t1", "p2", 7))
	require.NoError(t, ranking.Increment(ctx, "t1", "gone", 1))

	products := testutil.NewMockProductRepository()
	products.AddProduct(testutil.NewTestProduct("t1", "p1", "Widget", 1, 1))
	products.AddProduct(testutil.NewTestProduct("t1", "p2", "Gadget", 1, 1))

	ranks, err := report.NewTopProductsUseCase(ranking, products).Execute(ctx, "t1", 10)
	require.NoError(t, err)
	require.Len(t, ranks, 3)
	assert.Equal(t, "p2", ranks[0].ProductID)
	assert.Equal(t, "Gadget", ranks[0].Name)
	assert.Equal(t, "Widget", ranks[1].Name)
	assert.Equal(t, "", ranks[2].Name)
}
