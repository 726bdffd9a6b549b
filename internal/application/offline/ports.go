package offline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RemoteItem is a sale line in the shape the remote sale service expects.
type RemoteItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// RemoteSale is the sale-creation request sent to the back office.
type RemoteSale struct {
	ActorID          string          `json:"actor_id"`
	PosNumber        int             `json:"pos_number"`
	TenantID         string          `json:"tenant_id"`
	Items            []RemoteItem    `json:"items"`
	Total            decimal.Decimal `json:"total"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	PaymentBreakdown json.RawMessage `json:"payment_breakdown,omitempty"`

	// IdempotencyKey travels as a header, not in the body.
	IdempotencyKey string `json:"-"`
}

// CreatedSale is the acknowledgment returned by the remote service.
type CreatedSale struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	PosNumber int             `json:"pos_number"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// SaleCreator submits a sale to the remote sale service.
// A nil sale with a nil error is treated as a failure by callers.
type SaleCreator interface {
	CreateSale(ctx context.Context, sale RemoteSale) (*CreatedSale, error)
}

// ConnectivityChecker probes whether the remote service is reachable.
type ConnectivityChecker interface {
	Check(ctx context.Context) error
}

// SessionUser is the authenticated operator of the terminal.
type SessionUser struct {
	UserID    string
	TenantID  string
	PosNumber int
}

// SessionProvider returns the current session user, if any.
type SessionProvider interface {
	Current() (SessionUser, bool)
}

// OnlineState reports the last known connectivity state.
type OnlineState interface {
	Online() bool
}

// TenantPolicy selects which tenant a queued sale is uploaded under.
type TenantPolicy string

const (
	// TenantFromSession uploads under the tenant of the session at sync time.
	TenantFromSession TenantPolicy = "session"
	// TenantFromQueued uploads under the tenant recorded at capture time,
	// falling back to the session tenant when none was recorded.
	TenantFromQueued TenantPolicy = "queued"
)

// ParseTenantPolicy maps a config value to a policy. Unknown values yield TenantFromSession.
func ParseTenantPolicy(s string) TenantPolicy {
	if TenantPolicy(s) == TenantFromQueued {
		return TenantFromQueued
	}
	return TenantFromSession
}

// SyncRecorder receives sync telemetry.
type SyncRecorder interface {
	SaleSynced()
	SyncFailed(reason string)
	PassCompleted(d time.Duration)
	PendingSales(n int)
}

type nopRecorder struct{}

func (nopRecorder) SaleSynced()                 {}
func (nopRecorder) SyncFailed(string)           {}
func (nopRecorder) PassCompleted(time.Duration) {}
func (nopRecorder) PendingSales(int)            {}
