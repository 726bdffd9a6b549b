package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cobasjano/JC-sistema-sub001/internal/application/report"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/outbox"
	"github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/observability"
	infraRedis "github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/redis"
	"github.com/cobasjano/JC-sistema-sub001/internal/testutil"
	"github.com/cobasjano/JC-sistema-sub001/internal/worker"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const group = "sale-rankers"

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func newMetrics() *observability.Metrics {
	return observability.NewMetrics("pos_test", prometheus.NewRegistry())
}

func saleEntry(tenantID string) *outbox.Entry {
	return outbox.NewEntry(outbox.AggregateSale, uuid.New(), tenantID, outbox.EventSaleCreated, map[string]any{
		"sale_id":   uuid.NewString(),
		"tenant_id": tenantID,
		"total":     "25",
		"items": []any{
			map[string]any{"product_id": "p1", "quantity": "2"},
			map[string]any{"product_id": "p2", "quantity": "1"},
		},
	})
}

type publisherFunc func(ctx context.Context, e *outbox.Entry) error

func (f publisherFunc) PublishEvent(ctx context.Context, e *outbox.Entry) error { return f(ctx, e) }

func TestOutboxRelay_PublishesPending(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	repo := &testutil.MockOutboxRepository{}
	require.NoError(t, repo.Insert(ctx, saleEntry("tenant-1")))
	require.NoError(t, repo.Insert(ctx, saleEntry("tenant-2")))
	metrics := newMetrics()

	relay := worker.NewOutboxRelay(testutil.NewMockTransactionManager(), repo,
		infraRedis.NewStreamProducer(client, ""), 10, metrics, zerolog.Nop())

	n, err := relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	length, err := client.XLen(ctx, infraRedis.SaleStream).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, length)
	for _, e := range repo.Entries {
		assert.Equal(t, outbox.StatusPublished, e.Status)
		assert.NotNil(t, e.PublishedAt)
	}
	assert.Equal(t, 2.0, promtest.ToFloat64(metrics.OutboxPublished.WithLabelValues("published")))

	n, err = relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "published entries are not relayed again")
}

func TestOutboxRelay_PublishFailure(t *testing.T) {
	ctx := context.Background()
	repo := &testutil.MockOutboxRepository{}
	fresh := saleEntry("tenant-1")
	last := saleEntry("tenant-1")
	last.RetryCount = last.MaxRetries - 1
	require.NoError(t, repo.Insert(ctx, fresh))
	require.NoError(t, repo.Insert(ctx, last))
	metrics := newMetrics()

	failing := publisherFunc(func(context.Context, *outbox.Entry) error { return errors.New("stream down") })
	relay := worker.NewOutboxRelay(testutil.NewMockTransactionManager(), repo, failing, 10, metrics, zerolog.Nop())

	n, err := relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, outbox.StatusPending, fresh.Status)
	assert.Equal(t, 1, fresh.RetryCount)
	assert.Equal(t, outbox.StatusFailed, last.Status)
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.OutboxPublished.WithLabelValues("retry")))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.OutboxPublished.WithLabelValues("failed")))
}

func TestOutboxRelay_RepositoryError(t *testing.T) {
	repo := &testutil.MockOutboxRepository{
		GetPendingFunc: func(context.Context, int) ([]*outbox.Entry, error) { return nil, errors.New("db down") },
	}
	relay := worker.NewOutboxRelay(testutil.NewMockTransactionManager(), repo,
		publisherFunc(func(context.Context, *outbox.Entry) error { return nil }), 10, newMetrics(), zerolog.Nop())

	_, err := relay.RelayOnce(context.Background())
	assert.Error(t, err)
}

func TestOutboxRelay_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	relay := worker.NewOutboxRelay(testutil.NewMockTransactionManager(), &testutil.MockOutboxRepository{},
		publisherFunc(func(context.Context, *outbox.Entry) error { return nil }), 10, newMetrics(), zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx, 5*time.Millisecond) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

type consumerFixture struct {
	client   *redis.Client
	producer *infraRedis.StreamProducer
	reader   *infraRedis.StreamConsumer
	ranking  *testutil.MockRanking
	metrics  *observability.Metrics
	consumer *worker.RankingConsumer
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	t.Helper()
	f := &consumerFixture{client: setupRedis(t), ranking: testutil.NewMockRanking(), metrics: newMetrics()}
	f.producer = infraRedis.NewStreamProducer(f.client, "")
	f.reader = infraRedis.NewStreamConsumer(f.client, infraRedis.SaleStream, group, "c1", 10, 10*time.Millisecond)
	require.NoError(t, f.reader.CreateGroup(context.Background()))
	f.consumer = worker.NewRankingConsumer(f.reader, f.producer, report.NewRecordSaleUseCase(f.ranking),
		infraRedis.SaleStream, time.Minute, f.metrics, zerolog.Nop())
	return f
}

func (f *consumerFixture) readAndHandle(t *testing.T) {
	t.Helper()
	msgs, err := f.reader.Read(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, msgs)
	f.consumer.Handle(context.Background(), msgs)
}

func (f *consumerFixture) pending(t *testing.T) int64 {
	t.Helper()
	p, err := f.client.XPending(context.Background(), infraRedis.SaleStream, group).Result()
	require.NoError(t, err)
	return p.Count
}

func (f *consumerFixture) dlqLen(t *testing.T) int64 {
	t.Helper()
	n, err := f.client.XLen(context.Background(), infraRedis.DLQStream).Result()
	if errors.Is(err, redis.Nil) {
		return 0
	}
	require.NoError(t, err)
	return n
}

func TestRankingConsumer_AppliesSaleEvents(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.producer.PublishEvent(ctx, saleEntry("tenant-1")))
	require.NoError(t, f.producer.PublishEvent(ctx, saleEntry("tenant-1")))

	f.readAndHandle(t)

	assert.Equal(t, 4.0, f.ranking.Score("tenant-1", "p1"))
	assert.Equal(t, 2.0, f.ranking.Score("tenant-1", "p2"))
	assert.Zero(t, f.pending(t))
	assert.Equal(t, 2.0, promtest.ToFloat64(f.metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.SaleStream, "success")))
}

func TestRankingConsumer_MalformedPayloadGoesToDLQ(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.client.XAdd(ctx, &redis.XAddArgs{
		Stream: infraRedis.SaleStream,
		Values: map[string]any{"event_type": outbox.EventSaleCreated, "payload": "{not json"},
	}).Err())

	f.readAndHandle(t)

	assert.Zero(t, f.pending(t))
	assert.EqualValues(t, 1, f.dlqLen(t))
}

func TestRankingConsumer_MissingTenantGoesToDLQ(t *testing.T) {
	f := newConsumerFixture(t)
	require.NoError(t, f.producer.PublishEvent(context.Background(), saleEntry("")))

	f.readAndHandle(t)

	assert.Zero(t, f.pending(t))
	assert.EqualValues(t, 1, f.dlqLen(t))
}

func TestRankingConsumer_RankingFailureLeavesPending(t *testing.T) {
	f := newConsumerFixture(t)
	f.ranking.IncrementFunc = func(context.Context, string, string, float64) error { return errors.New("redis down") }
	require.NoError(t, f.producer.PublishEvent(context.Background(), saleEntry("tenant-1")))

	f.readAndHandle(t)

	assert.EqualValues(t, 1, f.pending(t))
	assert.Zero(t, f.dlqLen(t))
}

func TestRankingConsumer_SkipsOtherEvents(t *testing.T) {
	f := newConsumerFixture(t)
	entry := saleEntry("tenant-1")
	entry.EventType = "sale.voided"
	require.NoError(t, f.producer.PublishEvent(context.Background(), entry))

	f.readAndHandle(t)

	assert.Zero(t, f.pending(t))
	assert.Zero(t, f.ranking.Score("tenant-1", "p1"))
}

func TestRankingConsumer_Run(t *testing.T) {
	f := newConsumerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.producer.PublishEvent(ctx, saleEntry("tenant-1")))

	done := make(chan error, 1)
	go func() { done <- f.consumer.Run(ctx) }()

	assert.Eventually(t, func() bool { return f.ranking.Score("tenant-1", "p1") == 2 }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

type cleanerFunc func(ctx context.Context) (int64, error)

func (f cleanerFunc) Cleanup(ctx context.Context) (int64, error) { return f(ctx) }

func TestRunIdempotencyCleanup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	cleaner := cleanerFunc(func(context.Context) (int64, error) {
		calls.Add(1)
		return 3, nil
	})

	done := make(chan error, 1)
	go func() { done <- worker.RunIdempotencyCleanup(ctx, cleaner, 5*time.Millisecond, zerolog.Nop()) }()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
