package movement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists movement records in PostgreSQL. The type exposes no
// update or delete operation: the log is append-only by construction.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts a movement record. The id is assigned when empty and the
// timestamp is always server-assigned so insertion order stays monotonic.
func (r *Repository) Append(ctx context.Context, rec *Record) error {
	if rec == nil || rec.ProductID == "" || rec.Quantity == 0 || rec.Type == "" {
		return ErrInvalidRecord
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO inventory_movements (id, product_id, movement_type, quantity, notes, device_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING created_at`,
		rec.ID, rec.ProductID, string(rec.Type), rec.Quantity, rec.Notes, rec.DeviceID,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("movement: append record: %w", err)
	}
	return nil
}

const recordColumns = `id, product_id, movement_type, quantity, notes, device_id, created_at`

// ListRecent returns the newest records first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+` FROM inventory_movements
		ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("movement: list recent: %w", err)
	}
	defer rows.Close()

	var list []Record
	for rows.Next() {
		var rec Record
		var typ string
		if err := rows.Scan(&rec.ID, &rec.ProductID, &typ, &rec.Quantity, &rec.Notes, &rec.DeviceID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("movement: scan record: %w", err)
		}
		rec.Type = Type(typ)
		list = append(list, rec)
	}
	return list, rows.Err()
}

// ListByProduct returns a product's records, newest first.
func (r *Repository) ListByProduct(ctx context.Context, productID string, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+` FROM inventory_movements
		WHERE product_id = $1
		ORDER BY created_at DESC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("movement: list by product: %w", err)
	}
	defer rows.Close()

	var list []Record
	for rows.Next() {
		var rec Record
		var typ string
		if err := rows.Scan(&rec.ID, &rec.ProductID, &typ, &rec.Quantity, &rec.Notes, &rec.DeviceID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("movement: scan record: %w", err)
		}
		rec.Type = Type(typ)
		list = append(list, rec)
	}
	return list, rows.Err()
}
