package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kervanis/order-engine/internal/domain/catalog"
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// Snapshot loads the full catalog into a read-only snapshot. Ordering is
// applied by the snapshot constructor, not the query.
func (r *CatalogRepository) Snapshot(ctx context.Context) (*catalog.Snapshot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, sku, barcode, regular_price, on_hand, unit, category, is_tobacco
		FROM products
	`)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	products := make([]catalog.Product, 0, 256)
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.SKU, &p.Barcode,
			&p.RegularPrice, &p.OnHand, &p.Unit, &p.Category, &p.Tobacco,
		); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading products: %w", err)
	}

	return catalog.NewSnapshot(products), nil
}

// ByID loads a single product. Returns catalog.ErrNotFound when no product
// has the given ID.
func (r *CatalogRepository) ByID(ctx context.Context, id string) (*catalog.Product, error) {
	var p catalog.Product
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, sku, barcode, regular_price, on_hand, unit, category, is_tobacco
		FROM products
		WHERE id = $1
	`, id).Scan(
		&p.ID, &p.Name, &p.SKU, &p.Barcode,
		&p.RegularPrice, &p.OnHand, &p.Unit, &p.Category, &p.Tobacco,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying product %q: %w", id, err)
	}
	return &p, nil
}

// Upsert inserts or updates a single product. Used by the seed and ingest
// tools.
func (r *CatalogRepository) Upsert(ctx context.Context, p catalog.Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, name, sku, barcode, regular_price, on_hand, unit, category, is_tobacco)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			sku = EXCLUDED.sku,
			barcode = EXCLUDED.barcode,
			regular_price = EXCLUDED.regular_price,
			on_hand = EXCLUDED.on_hand,
			unit = EXCLUDED.unit,
			category = EXCLUDED.category,
			is_tobacco = EXCLUDED.is_tobacco
	`, p.ID, p.Name, p.SKU, p.Barcode, p.RegularPrice, p.OnHand, p.Unit, p.Category, p.Tobacco)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}
