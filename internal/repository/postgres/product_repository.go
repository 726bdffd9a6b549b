package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/inventory"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ProductRepository implements inventory.Repository using PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

var _ inventory.Repository = (*ProductRepository)(nil)

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func (r *ProductRepository) scanProduct(s scanner) (*inventory.Product, error) {
	p := &inventory.Product{}
	var price, stock string
	err := s.Scan(&p.TenantID, &p.ID, &p.Name, &price, &stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	if err := parseNumerics(price, &p.Price, stock, &p.Stock); err != nil {
		return nil, fmt.Errorf("parse product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) Upsert(ctx context.Context, p *inventory.Product) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO products (tenant_id, id, name, price, stock, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (tenant_id, id) DO UPDATE
		 SET name = EXCLUDED.name, price = EXCLUDED.price, stock = EXCLUDED.stock, updated_at = EXCLUDED.updated_at`,
		p.TenantID, p.ID, p.Name, numericArg(p.Price), numericArg(p.Stock), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, tenantID, id string) (*inventory.Product, error) {
	return r.scanProduct(r.db(ctx).QueryRow(ctx,
		`SELECT tenant_id, id, name, price::text, stock::text, created_at, updated_at
		 FROM products WHERE tenant_id = $1 AND id = $2`, tenantID, id))
}

func (r *ProductRepository) List(ctx context.Context, tenantID string) ([]*inventory.Product, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT tenant_id, id, name, price::text, stock::text, created_at, updated_at
		 FROM products WHERE tenant_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*inventory.Product
	for rows.Next() {
		p, err := r.scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// AdjustStock applies delta in a single UPDATE so concurrent sales serialize on the row lock.
func (r *ProductRepository) AdjustStock(ctx context.Context, tenantID, productID string, delta decimal.Decimal) (decimal.Decimal, error) {
	var stock string
	err := r.db(ctx).QueryRow(ctx,
		`UPDATE products SET stock = stock + $3::numeric, updated_at = NOW()
		 WHERE tenant_id = $1 AND id = $2
		 RETURNING stock::text`, tenantID, productID, numericArg(delta),
	).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, domainErrors.ErrProductNotFound
		}
		return decimal.Zero, fmt.Errorf("adjust stock: %w", err)
	}
	return parseNumeric(stock)
}

func (r *ProductRepository) CreatePurchase(ctx context.Context, p *inventory.Purchase) error {
	b := &pgx.Batch{}
	b.Queue(
		`INSERT INTO purchases (id, tenant_id, actor_id, supplier, total, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.TenantID, p.ActorID, p.Supplier, numericArg(p.Total()), p.CreatedAt,
	)
	for i, it := range p.Items {
		b.Queue(
			`INSERT INTO purchase_items (purchase_id, line_no, product_id, quantity, unit_cost)
			 VALUES ($1, $2, $3, $4, $5)`,
			p.ID, i, it.ProductID, numericArg(it.Quantity), numericArg(it.UnitCost),
		)
	}

	br := r.db(ctx).SendBatch(ctx, b)
	defer br.Close()
	for range b.Len() {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}
	}
	return nil
}
