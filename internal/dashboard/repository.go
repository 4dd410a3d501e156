package dashboard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository computes statistics straight from the catalog store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Stats aggregates product counts, stock totals and low-stock products.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := r.pool.QueryRow(ctx, `
		SELECT count(*),
		       COALESCE(SUM(quantity), 0),
		       count(*) FILTER (WHERE min_quantity IS NOT NULL AND quantity <= min_quantity),
		       COALESCE(SUM(quantity * price), 0)
		FROM products`).Scan(&stats.TotalProducts, &stats.TotalStock, &stats.LowStock, &stats.StockValue)
	if err != nil {
		return Stats{}, fmt.Errorf("dashboard: stats query: %w", err)
	}
	return stats, nil
}
