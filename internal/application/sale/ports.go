package sale

import (
	"context"

	"github.com/cobasjano/JC-sistema-sub001/internal/domain/outbox"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/sale"
)

// TransactionManager defines the interface for transaction management.
// This is an application-layer port, not a domain concern.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// OutboxWriter defines the interface for writing to the transactional outbox.
type OutboxWriter interface {
	Insert(ctx context.Context, entry *outbox.Entry) error
}

// Recorder receives sale telemetry.
type Recorder interface {
	SaleRecorded(s *sale.Sale)
	SaleRejected(reason string)
	StockWentNegative(n int)
}

type nopRecorder struct{}

func (nopRecorder) SaleRecorded(*sale.Sale) {}
func (nopRecorder) SaleRejected(string)     {}
func (nopRecorder) StockWentNegative(int)   {}
