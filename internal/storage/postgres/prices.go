package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kervanis/order-engine/internal/domain/pricing"
)

var _ pricing.Repository = (*PriceRepository)(nil)

// PriceRepository implements pricing.Repository backed by PostgreSQL.
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository returns a PriceRepository that uses the given pool.
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// HistoryFor loads the full negotiated price history for one customer.
func (r *PriceRepository) HistoryFor(ctx context.Context, customerID string) (*pricing.History, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT customer_id, product_id, last_price, original_price,
		       valid_until, locked, times_ordered, total_quantity, updated_at
		FROM customer_prices
		WHERE customer_id = $1
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("querying price history for %q: %w", customerID, err)
	}
	defer rows.Close()

	records := make([]pricing.Record, 0, 64)
	for rows.Next() {
		var rec pricing.Record
		if err := rows.Scan(
			&rec.CustomerID, &rec.ProductID, &rec.LastPrice, &rec.OriginalPrice,
			&rec.ValidUntil, &rec.Locked, &rec.TimesOrdered, &rec.TotalQuantity, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning price record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading price history: %w", err)
	}

	return pricing.NewHistory(customerID, records), nil
}

// RecordNegotiated upserts one negotiated price and bumps the order counters.
// The original catalog price is kept from the first negotiation.
func (r *PriceRepository) RecordNegotiated(ctx context.Context, rec pricing.Record) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO customer_prices
			(customer_id, product_id, last_price, original_price, valid_until,
			 locked, times_ordered, total_quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7, now())
		ON CONFLICT (customer_id, product_id) DO UPDATE SET
			last_price = EXCLUDED.last_price,
			valid_until = EXCLUDED.valid_until,
			locked = EXCLUDED.locked,
			times_ordered = customer_prices.times_ordered + 1,
			total_quantity = customer_prices.total_quantity + EXCLUDED.total_quantity,
			updated_at = now()
	`, rec.CustomerID, rec.ProductID, rec.LastPrice, rec.OriginalPrice,
		rec.ValidUntil, rec.Locked, rec.TotalQuantity)
	if err != nil {
		return fmt.Errorf("recording negotiated price for %s/%s: %w", rec.CustomerID, rec.ProductID, err)
	}
	return nil
}
