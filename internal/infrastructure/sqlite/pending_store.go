package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/pending"
	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema versions:
// 1 - pending_sales with the whole sale as JSON
// 2 - payment_breakdown stored as raw bytes in its own column
const currentSchemaVersion = 2

// PendingStore is the terminal's durable queue of unsent sales.
type PendingStore struct {
	db *sql.DB
}

var _ pending.Store = (*PendingStore)(nil)

// Open creates or opens the queue database at path.
func Open(path string) (*PendingStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// single writer avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &PendingStore{db: db}, nil
}

func (s *PendingStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("failed to execute %q: %w", p, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if version < 2 {
		if err := migrateToV2(db); err != nil {
			return err
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV2 adds the payment_breakdown column to databases created at v1.
// Breakdowns already inside the JSON document are still read from there.
func migrateToV2(db *sql.DB) error {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('pending_sales') WHERE name = 'payment_breakdown'`).Scan(&n)
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE pending_sales ADD COLUMN payment_breakdown BLOB`); err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	return nil
}

// Append stores the sale. PaymentBreakdown is kept byte for byte and is not
// required to be valid JSON.
func (s *PendingStore) Append(ctx context.Context, q pending.QueuedSale) error {
	breakdown := []byte(q.PaymentBreakdown)
	doc := q
	doc.PaymentBreakdown = nil
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal queued sale: %w", err)
	}
	created := q.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pending_sales (id, data, payment_breakdown, created_at) VALUES (?, ?, ?, ?)`,
		q.ID, string(data), breakdown, created.Format(time.RFC3339Nano),
	)
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("queued sale %s: %w", q.ID, domainErrors.ErrDuplicateQueuedSale)
		}
		return fmt.Errorf("append queued sale: %w", err)
	}
	return nil
}

func (s *PendingStore) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_sales WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove queued sale: %w", err)
	}
	return nil
}

func (s *PendingStore) List(ctx context.Context) ([]pending.QueuedSale, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data, payment_breakdown FROM pending_sales ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list queued sales: %w", err)
	}
	defer rows.Close()

	var out []pending.QueuedSale
	for rows.Next() {
		var (
			id, data  string
			breakdown []byte
		)
		if err := rows.Scan(&id, &data, &breakdown); err != nil {
			return nil, fmt.Errorf("scan queued sale: %w", err)
		}
		var q pending.QueuedSale
		if err := json.Unmarshal([]byte(data), &q); err != nil {
			return nil, fmt.Errorf("decode queued sale %s: %w", id, err)
		}
		if breakdown != nil {
			q.PaymentBreakdown = json.RawMessage(breakdown)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *PendingStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_sales`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count queued sales: %w", err)
	}
	return n, nil
}
