package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/sale"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// SaleRepository implements sale.Repository using PostgreSQL.
type SaleRepository struct {
	pool *pgxpool.Pool
}

var _ sale.Repository = (*SaleRepository)(nil)

func NewSaleRepository(pool *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{pool: pool}
}

func (r *SaleRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

const saleColumns = `id, tenant_id, actor_id, pos_number, COALESCE(idempotency_key, ''), total::text,
	payment_method, payment_breakdown, created_at`

func (r *SaleRepository) scanSale(s scanner) (*sale.Sale, error) {
	out := &sale.Sale{}
	var (
		totalStr  string
		method    string
		breakdown []byte
	)
	err := s.Scan(&out.ID, &out.TenantID, &out.ActorID, &out.PosNumber, &out.IdempotencyKey,
		&totalStr, &method, &breakdown, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrSaleNotFound
		}
		return nil, fmt.Errorf("scan sale: %w", err)
	}
	if out.Total, err = parseNumeric(totalStr); err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	out.PaymentMethod = sale.PaymentMethod(method)
	if len(breakdown) > 0 {
		out.PaymentBreakdown = breakdown
	}
	return out, nil
}

// Create inserts a sale and its items in one batch.
func (r *SaleRepository) Create(ctx context.Context, s *sale.Sale) error {
	var key any
	if s.IdempotencyKey != "" {
		key = s.IdempotencyKey
	}
	var breakdown any
	if len(s.PaymentBreakdown) > 0 {
		breakdown = string(s.PaymentBreakdown)
	}

	b := &pgx.Batch{}
	b.Queue(
		`INSERT INTO sales (id, tenant_id, actor_id, pos_number, idempotency_key, total, payment_method, payment_breakdown, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9)`,
		s.ID, s.TenantID, s.ActorID, s.PosNumber, key, numericArg(s.Total), string(s.PaymentMethod), breakdown, s.CreatedAt,
	)
	for i, it := range s.Items {
		b.Queue(
			`INSERT INTO sale_items (id, sale_id, line_no, product_id, product_name, quantity, unit_price, subtotal)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			it.ID, s.ID, i, it.ProductID, it.ProductName,
			numericArg(it.Quantity), numericArg(it.UnitPrice), numericArg(it.Subtotal),
		)
	}

	br := r.db(ctx).SendBatch(ctx, b)
	defer br.Close()
	for range b.Len() {
		if _, err := br.Exec(); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return domainErrors.ErrDuplicateIdempotencyKey
			}
			return fmt.Errorf("insert sale: %w", err)
		}
	}
	return nil
}

func (r *SaleRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*sale.Sale, error) {
	s, err := r.scanSale(r.db(ctx).QueryRow(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE tenant_id = $1 AND id = $2`, tenantID, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, []*sale.Sale{s}); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SaleRepository) GetByIdempotencyKey(ctx context.Context, key string) (*sale.Sale, error) {
	s, err := r.scanSale(r.db(ctx).QueryRow(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE idempotency_key = $1`, key))
	if errors.Is(err, domainErrors.ErrSaleNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, []*sale.Sale{s}); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SaleRepository) List(ctx context.Context, filter sale.ListFilter) ([]*sale.Sale, error) {
	var (
		where = []string{"tenant_id = $1"}
		args  = []any{filter.TenantID}
	)
	if filter.PosNumber != nil {
		args = append(args, *filter.PosNumber)
		where = append(where, fmt.Sprintf("pos_number = $%d", len(args)))
	}
	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM sales WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		saleColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var sales []*sale.Sale
	for rows.Next() {
		s, err := r.scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	if err := r.loadItems(ctx, sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *SaleRepository) loadItems(ctx context.Context, sales []*sale.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(sales))
	byID := make(map[uuid.UUID]*sale.Sale, len(sales))
	for i, s := range sales {
		ids[i] = s.ID
		byID[s.ID] = s
	}

	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, sale_id, product_id, product_name, quantity::text, unit_price::text, subtotal::text
		 FROM sale_items WHERE sale_id = ANY($1) ORDER BY sale_id, line_no`, ids)
	if err != nil {
		return fmt.Errorf("load sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it                   sale.Item
			qty, price, subtotal string
		)
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.ProductName, &qty, &price, &subtotal); err != nil {
			return fmt.Errorf("scan sale item: %w", err)
		}
		if err := parseNumerics(qty, &it.Quantity, price, &it.UnitPrice, subtotal, &it.Subtotal); err != nil {
			return fmt.Errorf("parse sale item: %w", err)
		}
		s := byID[it.SaleID]
		s.Items = append(s.Items, it)
	}
	return rows.Err()
}
