package offline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/pending"
	"github.com/rs/zerolog"
)

// PassResult summarizes one drain pass.
type PassResult struct {
	Synced    int
	Remaining int
	FailedID  string
}

// Driver replays queued sales against the remote sale service, one at a
// time and in queue order, stopping at the first failure. Entries are
// removed only after the remote service acknowledges them.
type Driver struct {
	store         pending.Store
	creator       SaleCreator
	session       SessionProvider
	bus           *Bus
	policy        TenantPolicy
	remoteTimeout time.Duration
	logger        zerolog.Logger
	recorder      SyncRecorder

	online  atomic.Bool
	syncing atomic.Bool

	trigger chan struct{}

	mu      sync.Mutex
	started bool
	runCtx  context.Context
	stop    chan struct{}
	done    chan struct{}
	unsub   func()
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

func WithTenantPolicy(p TenantPolicy) DriverOption {
	return func(d *Driver) { d.policy = p }
}

// WithRemoteTimeout bounds each remote call. Zero disables the bound.
func WithRemoteTimeout(t time.Duration) DriverOption {
	return func(d *Driver) { d.remoteTimeout = t }
}

func WithLogger(l zerolog.Logger) DriverOption {
	return func(d *Driver) { d.logger = l.With().Str("component", "sync_driver").Logger() }
}

func WithRecorder(r SyncRecorder) DriverOption {
	return func(d *Driver) { d.recorder = r }
}

// WithInitialOnline seeds the connectivity state, normally from a probe.
func WithInitialOnline(online bool) DriverOption {
	return func(d *Driver) { d.online.Store(online) }
}

func NewDriver(store pending.Store, creator SaleCreator, session SessionProvider, bus *Bus, opts ...DriverOption) *Driver {
	d := &Driver{
		store:         store,
		creator:       creator,
		session:       session,
		bus:           bus,
		policy:        TenantFromSession,
		remoteTimeout: 30 * time.Second,
		logger:        zerolog.Nop(),
		recorder:      nopRecorder{},
		trigger:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Online reports the last known connectivity state.
func (d *Driver) Online() bool { return d.online.Load() }

// Syncing reports whether a drain pass is running.
func (d *Driver) Syncing() bool { return d.syncing.Load() }

// Trigger schedules a re-evaluation. Calls made while one is already
// scheduled are coalesced.
func (d *Driver) Trigger() {
	select {
	case d.trigger <- struct{}{}:
	default:
	}
}

// Start subscribes to the bus and launches the driver goroutine. The queue
// is evaluated once immediately so sales left over from a previous run are
// picked up. Cancelling ctx stops the driver like Stop does, after which
// Start may be called again.
func (d *Driver) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started && d.runCtx.Err() == nil {
		d.mu.Unlock()
		return
	}
	prev := d.retire()
	d.mu.Unlock()
	if prev != nil {
		<-prev
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	d.runCtx = ctx
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.unsub = d.bus.Subscribe(d.handleEvent)

	go d.loop(ctx, d.stop, d.done)
	d.Trigger()
}

// Stop unsubscribes from the bus and waits for an in-flight pass to finish.
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	close(d.stop)
	done := d.retire()
	d.mu.Unlock()

	<-done
}

// retire marks the current run stopped and returns its done channel, or nil
// when nothing is running. d.mu must be held.
func (d *Driver) retire() chan struct{} {
	if !d.started {
		return nil
	}
	d.started = false
	d.unsub()
	return d.done
}

func (d *Driver) handleEvent(e Event) {
	switch e.Kind {
	case EventConnectivityChanged:
		was := d.online.Swap(e.Online)
		if e.Online && !was {
			d.logger.Info().Msg("connectivity restored")
			d.Trigger()
		} else if !e.Online && was {
			d.logger.Warn().Msg("connectivity lost")
		}
	case EventSaleQueued:
		if d.online.Load() {
			d.Trigger()
		}
	}
}

func (d *Driver) loop(ctx context.Context, stop <-chan struct{}, done chan struct{}) {
	defer close(done)
	// A running pass must not be cut short by the caller's cancellation.
	passCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			d.detach(done)
			return
		case <-stop:
			return
		case <-d.trigger:
			d.evaluate(passCtx)
		}
	}
}

// detach releases the run owning done when it ended on context
// cancellation. A concurrent Stop or a newer Start leaves nothing to do.
func (d *Driver) detach(done chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started || d.done != done {
		return
	}
	d.retire()
	d.logger.Info().Msg("sync driver stopped: context cancelled")
}

func (d *Driver) evaluate(ctx context.Context) {
	if !d.online.Load() {
		return
	}
	n, err := d.store.Count(ctx)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to count pending sales")
		return
	}
	d.recorder.PendingSales(n)
	if n == 0 {
		return
	}

	res, err := d.drain(ctx)
	switch {
	case err == nil:
		d.logger.Info().Int("synced", res.Synced).Msg("pending sales synchronized")
	case errors.Is(err, domainErrors.ErrSyncInProgress):
		d.logger.Debug().Msg("sync already running")
	default:
		d.logger.Warn().Err(err).
			Int("synced", res.Synced).
			Int("remaining", res.Remaining).
			Str("failed_id", res.FailedID).
			Msg("sync pass stopped")
	}
}

// DrainOnce runs a single pass on the caller's goroutine regardless of the
// connectivity state. It returns ErrSyncInProgress when a pass is already
// running. Once started, the pass ignores cancellation of ctx.
func (d *Driver) DrainOnce(ctx context.Context) (PassResult, error) {
	return d.drain(context.WithoutCancel(ctx))
}

func (d *Driver) drain(ctx context.Context) (PassResult, error) {
	if !d.syncing.CompareAndSwap(false, true) {
		return PassResult{}, domainErrors.ErrSyncInProgress
	}
	defer d.syncing.Store(false)

	start := time.Now()
	defer func() { d.recorder.PassCompleted(time.Since(start)) }()

	user, ok := d.session.Current()
	if !ok {
		d.recorder.SyncFailed("no_session")
		return PassResult{}, domainErrors.ErrNoSession
	}

	queued, err := d.store.List(ctx)
	if err != nil {
		return PassResult{}, fmt.Errorf("list pending sales: %w", err)
	}

	var res PassResult
	for i, q := range queued {
		created, err := d.send(ctx, d.toRemote(user, q))
		if err == nil && created == nil {
			err = fmt.Errorf("empty acknowledgment: %w", domainErrors.ErrRemoteRejected)
		}
		if err != nil {
			res.FailedID = q.ID
			res.Remaining = len(queued) - i
			d.recorder.SyncFailed(failureReason(err))
			d.recorder.PendingSales(res.Remaining)
			return res, fmt.Errorf("sync sale %s: %w", q.ID, err)
		}

		if err := d.store.Remove(ctx, q.ID); err != nil {
			res.FailedID = q.ID
			res.Remaining = len(queued) - i
			return res, fmt.Errorf("remove synced sale %s: %w", q.ID, err)
		}
		res.Synced++
		d.recorder.SaleSynced()
		d.logger.Debug().Str("queued_id", q.ID).Str("sale_id", created.ID).Msg("queued sale accepted")
	}

	d.recorder.PendingSales(0)
	return res, nil
}

func (d *Driver) send(ctx context.Context, sale RemoteSale) (*CreatedSale, error) {
	if d.remoteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.remoteTimeout)
		defer cancel()
	}
	return d.creator.CreateSale(ctx, sale)
}

func (d *Driver) toRemote(user SessionUser, q pending.QueuedSale) RemoteSale {
	posNumber := user.PosNumber
	if posNumber == 0 {
		posNumber = q.PosNumber
	}
	tenantID := user.TenantID
	if d.policy == TenantFromQueued && q.TenantID != "" {
		tenantID = q.TenantID
	}
	return RemoteSale{
		ActorID:          user.UserID,
		PosNumber:        posNumber,
		TenantID:         tenantID,
		Items:            toRemoteItems(q.Items),
		Total:            q.Total,
		PaymentMethod:    q.PaymentMethod,
		PaymentBreakdown: q.PaymentBreakdown,
		IdempotencyKey:   q.ID,
	}
}

func toRemoteItems(items []pending.Item) []RemoteItem {
	out := make([]RemoteItem, len(items))
	for i, it := range items {
		out[i] = RemoteItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.Price,
			Subtotal:    it.LineSubtotal(),
		}
	}
	return out
}

func failureReason(err error) string {
	switch {
	case domainErrors.IsRemoteRejection(err):
		return "rejected"
	case errors.Is(err, domainErrors.ErrRemoteTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "unavailable"
	}
}
