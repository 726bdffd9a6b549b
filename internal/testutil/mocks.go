package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cobasjano/JC-sistema-sub001/internal/application/offline"
	"github.com/cobasjano/JC-sistema-sub001/internal/application/report"
	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/idempotency"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/inventory"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/outbox"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/pending"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/sale"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Sale Repository Mock ---

// MockSaleRepository is a mock implementation of sale.Repository.
type MockSaleRepository struct {
	mu    sync.Mutex
	sales map[uuid.UUID]*sale.Sale
	byKey map[string]*sale.Sale

	CreateFunc              func(ctx context.Context, s *sale.Sale) error
	GetByIDFunc             func(ctx context.Context, tenantID string, id uuid.UUID) (*sale.Sale, error)
	GetByIdempotencyKeyFunc func(ctx context.Context, key string) (*sale.Sale, error)
	ListFunc                func(ctx context.Context, filter sale.ListFilter) ([]*sale.Sale, error)
}

func NewMockSaleRepository() *MockSaleRepository {
	return &MockSaleRepository{
		sales: make(map[uuid.UUID]*sale.Sale),
		byKey: make(map[string]*sale.Sale),
	}
}

func (m *MockSaleRepository) Create(ctx context.Context, s *sale.Sale) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales[s.ID] = s
	if s.IdempotencyKey != "" {
		m.byKey[s.IdempotencyKey] = s
	}
	return nil
}

func (m *MockSaleRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*sale.Sale, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, tenantID, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[id]
	if !ok || s.TenantID != tenantID {
		return nil, domainErrors.ErrSaleNotFound
	}
	return s, nil
}

func (m *MockSaleRepository) GetByIdempotencyKey(ctx context.Context, key string) (*sale.Sale, error) {
	if m.GetByIdempotencyKeyFunc != nil {
		return m.GetByIdempotencyKeyFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byKey[key], nil
}

func (m *MockSaleRepository) List(ctx context.Context, filter sale.ListFilter) ([]*sale.Sale, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*sale.Sale, 0, len(m.sales))
	for _, s := range m.sales {
		if s.TenantID == filter.TenantID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// Count returns the number of stored sales (test helper).
func (m *MockSaleRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sales)
}

// --- Product Repository Mock ---

// MockProductRepository is a mock implementation of inventory.Repository.
type MockProductRepository struct {
	mu        sync.Mutex
	products  map[string]*inventory.Product
	purchases []*inventory.Purchase

	UpsertFunc         func(ctx context.Context, p *inventory.Product) error
	GetByIDFunc        func(ctx context.Context, tenantID, id string) (*inventory.Product, error)
	ListFunc           func(ctx context.Context, tenantID string) ([]*inventory.Product, error)
	AdjustStockFunc    func(ctx context.Context, tenantID, productID string, delta decimal.Decimal) (decimal.Decimal, error)
	CreatePurchaseFunc func(ctx context.Context, p *inventory.Purchase) error
}

func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{products: make(map[string]*inventory.Product)}
}

func productKey(tenantID, id string) string { return tenantID + "/" + id }

// AddProduct pre-populates the mock with a product.
func (m *MockProductRepository) AddProduct(p *inventory.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[productKey(p.TenantID, p.ID)] = p
}

// Stock returns the current stock of a product (test helper).
func (m *MockProductRepository) Stock(tenantID, id string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[productKey(tenantID, id)]; ok {
		return p.Stock
	}
	return decimal.Zero
}

// Purchases returns the recorded purchases (test helper).
func (m *MockProductRepository) Purchases() []*inventory.Purchase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*inventory.Purchase(nil), m.purchases...)
}

func (m *MockProductRepository) Upsert(ctx context.Context, p *inventory.Product) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, p)
	}
	m.AddProduct(p)
	return nil
}

func (m *MockProductRepository) GetByID(ctx context.Context, tenantID, id string) (*inventory.Product, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, tenantID, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productKey(tenantID, id)]
	if !ok {
		return nil, domainErrors.ErrProductNotFound
	}
	return p, nil
}

func (m *MockProductRepository) List(ctx context.Context, tenantID string) ([]*inventory.Product, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, tenantID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*inventory.Product, 0, len(m.products))
	for _, p := range m.products {
		if p.TenantID == tenantID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MockProductRepository) AdjustStock(ctx context.Context, tenantID, productID string, delta decimal.Decimal) (decimal.Decimal, error) {
	if m.AdjustStockFunc != nil {
		return m.AdjustStockFunc(ctx, tenantID, productID, delta)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productKey(tenantID, productID)]
	if !ok {
		return decimal.Zero, domainErrors.ErrProductNotFound
	}
	p.Stock = p.Stock.Add(delta)
	return p.Stock, nil
}

func (m *MockProductRepository) CreatePurchase(ctx context.Context, p *inventory.Purchase) error {
	if m.CreatePurchaseFunc != nil {
		return m.CreatePurchaseFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purchases = append(m.purchases, p)
	return nil
}

// --- Transaction Manager Mock ---

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// --- Outbox Repository Mock ---

// MockOutboxRepository is a mock implementation of outbox.Repository.
type MockOutboxRepository struct {
	mu      sync.Mutex
	Entries []*outbox.Entry

	InsertFunc        func(ctx context.Context, entry *outbox.Entry) error
	GetPendingFunc    func(ctx context.Context, limit int) ([]*outbox.Entry, error)
	MarkPublishedFunc func(ctx context.Context, id uuid.UUID) error
	MarkFailedFunc    func(ctx context.Context, id uuid.UUID) error
}

func (m *MockOutboxRepository) Insert(ctx context.Context, entry *outbox.Entry) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Entry, error) {
	if m.GetPendingFunc != nil {
		return m.GetPendingFunc(ctx, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*outbox.Entry
	for _, e := range m.Entries {
		if e.Status == outbox.StatusPending && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.ID == id {
			now := time.Now().UTC()
			e.Status = outbox.StatusPublished
			e.PublishedAt = &now
		}
	}
	return nil
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.ID == id {
			if e.Exhausted() {
				e.Status = outbox.StatusFailed
			}
			e.RetryCount++
		}
	}
	return nil
}

// --- Ranking Mock ---

// MockRanking is an in-memory report.Ranking.
type MockRanking struct {
	mu     sync.Mutex
	scores map[string]map[string]float64

	IncrementFunc func(ctx context.Context, tenantID, productID string, quantity float64) error
}

func NewMockRanking() *MockRanking {
	return &MockRanking{scores: make(map[string]map[string]float64)}
}

func (m *MockRanking) Increment(ctx context.Context, tenantID, productID string, quantity float64) error {
	if m.IncrementFunc != nil {
		return m.IncrementFunc(ctx, tenantID, productID, quantity)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scores[tenantID] == nil {
		m.scores[tenantID] = make(map[string]float64)
	}
	m.scores[tenantID][productID] += quantity
	return nil
}

func (m *MockRanking) Top(ctx context.Context, tenantID string, limit int) ([]report.ProductRank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ranks := make([]report.ProductRank, 0, len(m.scores[tenantID]))
	for id, q := range m.scores[tenantID] {
		ranks = append(ranks, report.ProductRank{ProductID: id, Quantity: q})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Quantity == ranks[j].Quantity {
			return ranks[i].ProductID < ranks[j].ProductID
		}
		return ranks[i].Quantity > ranks[j].Quantity
	})
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks, nil
}

// Score returns a product's score (test helper).
func (m *MockRanking) Score(tenantID, productID string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scores[tenantID][productID]
}

// --- Pending Store Mock ---

// MockPendingStore is an in-memory, ordered pending.Store.
type MockPendingStore struct {
	mu    sync.Mutex
	sales []pending.QueuedSale

	AppendFunc func(ctx context.Context, s pending.QueuedSale) error
	RemoveFunc func(ctx context.Context, id string) error
	ListFunc   func(ctx context.Context) ([]pending.QueuedSale, error)
}

func NewMockPendingStore() *MockPendingStore {
	return &MockPendingStore{}
}

func (m *MockPendingStore) Append(ctx context.Context, s pending.QueuedSale) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.sales {
		if q.ID == s.ID {
			return domainErrors.ErrDuplicateQueuedSale
		}
	}
	m.sales = append(m.sales, s.Clone())
	return nil
}

func (m *MockPendingStore) Remove(ctx context.Context, id string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, q := range m.sales {
		if q.ID == id {
			m.sales = append(m.sales[:i:i], m.sales[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MockPendingStore) List(ctx context.Context) ([]pending.QueuedSale, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]pending.QueuedSale, len(m.sales))
	for i, q := range m.sales {
		out[i] = q.Clone()
	}
	return out, nil
}

func (m *MockPendingStore) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sales), nil
}

// IDs returns the queued ids in order (test helper).
func (m *MockPendingStore) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.sales))
	for i, q := range m.sales {
		ids[i] = q.ID
	}
	return ids
}

// --- Sale Creator Mock ---

// MockSaleCreator is a mock implementation of offline.SaleCreator that
// records every request and the peak number of concurrent calls.
type MockSaleCreator struct {
	mu       sync.Mutex
	calls    []offline.RemoteSale
	inFlight int
	peak     int

	CreateSaleFunc func(ctx context.Context, s offline.RemoteSale) (*offline.CreatedSale, error)
}

func NewMockSaleCreator() *MockSaleCreator {
	return &MockSaleCreator{}
}

func (m *MockSaleCreator) CreateSale(ctx context.Context, s offline.RemoteSale) (*offline.CreatedSale, error) {
	m.mu.Lock()
	m.calls = append(m.calls, s)
	m.inFlight++
	if m.inFlight > m.peak {
		m.peak = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.CreateSaleFunc != nil {
		return m.CreateSaleFunc(ctx, s)
	}
	return &offline.CreatedSale{
		ID:        uuid.NewString(),
		TenantID:  s.TenantID,
		PosNumber: s.PosNumber,
		Total:     s.Total,
	}, nil
}

// Calls returns a copy of the recorded requests.
func (m *MockSaleCreator) Calls() []offline.RemoteSale {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]offline.RemoteSale(nil), m.calls...)
}

// CallsFor counts requests carrying the given idempotency key.
func (m *MockSaleCreator) CallsFor(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.IdempotencyKey == key {
			n++
		}
	}
	return n
}

// PeakConcurrency returns the highest number of simultaneous calls observed.
func (m *MockSaleCreator) PeakConcurrency() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}

// --- Session Mock ---

// MockSession is a fixed offline.SessionProvider.
type MockSession struct {
	mu   sync.Mutex
	user *offline.SessionUser
}

func NewMockSession(user offline.SessionUser) *MockSession {
	return &MockSession{user: &user}
}

func (m *MockSession) Current() (offline.SessionUser, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return offline.SessionUser{}, false
	}
	return *m.user, true
}

// Set replaces the session user; nil logs out.
func (m *MockSession) Set(user *offline.SessionUser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = user
}

// --- Online State Mock ---

// StaticOnline is an offline.OnlineState with a fixed value.
type StaticOnline bool

func (s StaticOnline) Online() bool { return bool(s) }

// --- Connectivity Checker Mock ---

// MockConnectivityChecker returns Err from every check.
type MockConnectivityChecker struct {
	mu  sync.Mutex
	err error
}

func (m *MockConnectivityChecker) Check(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// SetErr changes the result of subsequent checks.
func (m *MockConnectivityChecker) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// --- Idempotency Store Mock ---

// MockIdempotencyStore is an in-memory idempotency.Store.
type MockIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*idempotency.Record

	GetFunc func(ctx context.Context, key string) (*idempotency.Record, error)
	SetFunc func(ctx context.Context, rec *idempotency.Record) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{records: make(map[string]*idempotency.Record)}
}

func (m *MockIdempotencyStore) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	c := *rec
	return &c, nil
}

func (m *MockIdempotencyStore) Set(ctx context.Context, rec *idempotency.Record) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *rec
	m.records[rec.Key] = &c
	return nil
}

// Keys returns the stored keys.
func (m *MockIdempotencyStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.records))
	for k := range m.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
