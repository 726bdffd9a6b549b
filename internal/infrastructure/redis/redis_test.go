package redis_test

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/outbox"
	"github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/config"
	infraRedis "github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/redis"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestNewClient_Connects(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.RedisConfig{Host: mr.Host(), Port: mustPort(t, mr), ConnectRetries: 1, ConnectRetryDelay: time.Millisecond}

	client, err := infraRedis.NewClient(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewClient_FailsAfterRetries(t *testing.T) {
	mr := miniredis.RunT(t)
	port := mustPort(t, mr)
	mr.Close()

	cfg := &config.RedisConfig{Host: "127.0.0.1", Port: port, ConnectRetries: 2, ConnectRetryDelay: time.Millisecond}
	_, err := infraRedis.NewClient(context.Background(), cfg)
	assert.Error(t, err)
}

func mustPort(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	return port
}

func TestDistributedLock_ExclusiveUntilReleased(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	a := infraRedis.NewDistributedLock(client, "sale:k1", time.Minute)
	b := infraRedis.NewDistributedLock(client, "sale:k1", time.Minute)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Release(ctx))
	assert.False(t, a.IsAcquired())

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDistributedLock_AcquireWithRetryGivesUp(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	holder := infraRedis.NewDistributedLock(client, "k", time.Minute)
	_, err := holder.Acquire(ctx)
	require.NoError(t, err)

	waiter := infraRedis.NewDistributedLock(client, "k", time.Minute)
	err = waiter.AcquireWithRetry(ctx, 3, time.Millisecond)
	assert.ErrorIs(t, err, domainErrors.ErrLockAcquisitionFailed)
}

func TestDistributedLock_ExpiredLockCannotBeReleased(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	l := infraRedis.NewDistributedLock(client, "k", time.Second)
	_, err := l.Acquire(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	assert.ErrorIs(t, l.Extend(ctx, time.Second), domainErrors.ErrLockNotHeld)
	assert.ErrorIs(t, l.Release(ctx), domainErrors.ErrLockNotHeld)
}

func TestDistributedLock_Extend(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	l := infraRedis.NewDistributedLock(client, "k", time.Second)
	_, err := l.Acquire(ctx)
	require.NoError(t, err)

	require.NoError(t, l.Extend(ctx, time.Minute))
	mr.FastForward(10 * time.Second)
	assert.True(t, mr.Exists("lock:k"))
}

func TestStreams_PublishReadAck(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	consumer := infraRedis.NewStreamConsumer(client, infraRedis.SaleStream, "rankers", "c1", 10, 10*time.Millisecond)
	require.NoError(t, consumer.CreateGroup(ctx))
	require.NoError(t, consumer.CreateGroup(ctx), "existing group is ignored")

	producer := infraRedis.NewStreamProducer(client, "")
	entry := outbox.NewEntry(outbox.AggregateSale, uuid.New(), "tenant-1", outbox.EventSaleCreated, map[string]any{"total": "10"})
	require.NoError(t, producer.PublishEvent(ctx, entry))

	msgs, err := consumer.Read(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "tenant-1", msgs[0].Values["tenant_id"])
	assert.Equal(t, outbox.EventSaleCreated, msgs[0].Values["event_type"])

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["payload"].(string)), &payload))
	assert.Equal(t, "10", payload["total"])

	require.NoError(t, consumer.Ack(ctx, msgs[0].ID))
	pending, err := client.XPending(ctx, infraRedis.SaleStream, "rankers").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestStreams_ReadEmpty(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	consumer := infraRedis.NewStreamConsumer(client, infraRedis.SaleStream, "rankers", "c1", 10, 10*time.Millisecond)
	require.NoError(t, consumer.CreateGroup(ctx))

	msgs, err := consumer.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestStreams_PublishToDLQ(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	producer := infraRedis.NewStreamProducer(client, "")
	msg := redis.XMessage{ID: "1-0", Values: map[string]any{"payload": "{bad"}}
	require.NoError(t, producer.PublishToDLQ(ctx, msg, "decode"))

	entries, err := client.XRange(ctx, infraRedis.DLQStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "decode", entries[0].Values["reason"])
	assert.Equal(t, "1-0", entries[0].Values["original_id"])
}

func TestRanking_TopOrdersByQuantity(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()
	r := infraRedis.NewRanking(client)

	require.NoError(t, r.Increment(ctx, "t1", "p1", 2))
	require.NoError(t, r.Increment(ctx, "t1", "p2", 5))
	require.NoError(t, r.Increment(ctx, "t1", "p1", 1.5))
	require.NoError(t, r.Increment(ctx, "t2", "p9", 100))

	top, err := r.Top(ctx, "t1", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "p2", top[0].ProductID)
	assert.Equal(t, 5.0, top[0].Quantity)
	assert.Equal(t, "p1", top[1].ProductID)
	assert.Equal(t, 3.5, top[1].Quantity)

	top, err = r.Top(ctx, "t1", 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}
