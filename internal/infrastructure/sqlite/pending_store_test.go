package sqlite_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/pending"
	"github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/sqlite"
	"github.com/cobasjano/JC-sistema-sub001/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*sqlite.PendingStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pending.db")
	s, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func ids(sales []pending.QueuedSale) []string {
	out := make([]string, len(sales))
	for i, s := range sales {
		out[i] = s.ID
	}
	return out
}

func TestPendingStore_ListKeepsAppendOrder(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b", "z"} {
		require.NoError(t, s.Append(ctx, testutil.NewTestQueuedSale(id, 1, testutil.NewTestPendingItem("p1", 1, 10))))
	}

	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b", "z"}, ids(got))
}

func TestPendingStore_RemoveOnlyDropsMatchingID(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Append(ctx, testutil.NewTestQueuedSale(id, 1, testutil.NewTestPendingItem("p1", 1, 10))))
	}

	require.NoError(t, s.Remove(ctx, "b"))
	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(got))

	require.NoError(t, s.Remove(ctx, "missing"))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPendingStore_DuplicateID(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	q := testutil.NewTestQueuedSale("dup", 1, testutil.NewTestPendingItem("p1", 1, 10))
	require.NoError(t, s.Append(ctx, q))
	err := s.Append(ctx, q)
	assert.ErrorIs(t, err, domainErrors.ErrDuplicateQueuedSale)
}

func TestPendingStore_SurvivesReopen(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()

	q := testutil.NewTestQueuedSale("s1", 3,
		testutil.NewTestPendingItem("p1", 2, 150),
		testutil.NewTestPendingItem("p2", 1, 99),
	)
	q.PaymentMethod = "Mixto"
	q.PaymentBreakdown = []byte(`{"cash":200,"card":199}`)
	require.NoError(t, s.Append(ctx, q))
	require.NoError(t, s.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)
	assert.Equal(t, 3, got[0].PosNumber)
	assert.True(t, got[0].Total.Equal(q.Total))
	assert.Len(t, got[0].Items, 2)
	assert.True(t, got[0].Items[0].Price.Equal(testutil.Dec("150")))
	assert.JSONEq(t, `{"cash":200,"card":199}`, string(got[0].PaymentBreakdown))
}

func TestPendingStore_ListIsSnapshot(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, testutil.NewTestQueuedSale("a", 1, testutil.NewTestPendingItem("p1", 1, 10))))

	got, err := s.List(ctx)
	require.NoError(t, err)
	got[0].Items[0].ProductID = "mutated"

	again, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "p1", again[0].Items[0].ProductID)
}

func TestPendingStore_EmptyList(t *testing.T) {
	s, _ := openTestStore(t)
	got, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPendingStore_PaymentBreakdownKeptByteForByte(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()

	raw := []byte("{\"cash\": 5,\n \"note\": \"<a&b>\"}")
	q := testutil.NewTestQueuedSale("s1", 1, testutil.NewTestPendingItem("p1", 1, 5))
	q.PaymentBreakdown = json.RawMessage(raw)
	require.NoError(t, s.Append(ctx, q))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, raw, []byte(got[0].PaymentBreakdown))

	require.NoError(t, s.Close())
	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err = reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, raw, []byte(got[0].PaymentBreakdown))
}

func TestPendingStore_AppendAcceptsAnyBreakdown(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	q := testutil.NewTestQueuedSale("s1", 1, testutil.NewTestPendingItem("p1", 1, 5))
	q.PaymentBreakdown = json.RawMessage(`{not json`)
	require.NoError(t, s.Append(ctx, q))

	plain := testutil.NewTestQueuedSale("s2", 1, testutil.NewTestPendingItem("p1", 1, 5))
	require.NoError(t, s.Append(ctx, plain))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "{not json", string(got[0].PaymentBreakdown))
	assert.Nil(t, got[1].PaymentBreakdown)
}

func TestPendingStore_MigratesVersionOneDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE pending_sales (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		data TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO pending_sales (id, data, created_at) VALUES (?, ?, ?)`,
		"old", `{"id":"old","pos_number":1,"items":[],"total":"5","payment_breakdown":{"cash":5},"created_at":"2024-01-01T00:00:00Z"}`,
		"2024-01-01T00:00:00Z")
	require.NoError(t, err)
	_, err = db.Exec(`PRAGMA user_version = 1`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := sqlite.Open(path)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, testutil.NewTestQueuedSale("new", 1, testutil.NewTestPendingItem("p1", 1, 5))))

	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "new"}, ids(got))
	assert.JSONEq(t, `{"cash":5}`, string(got[0].PaymentBreakdown))
}
