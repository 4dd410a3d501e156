package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, sku, name, category, price, quantity, min_quantity, description, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Price, &p.Quantity,
		&p.MinQuantity, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts a product row.
func (r *Repository) Create(ctx context.Context, p Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, sku, name, category, price, quantity, min_quantity, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.SKU, p.Name, p.Category, p.Price, p.Quantity, p.MinQuantity, p.Description, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSKUConflict
		}
		return fmt.Errorf("catalog: create product: %w", err)
	}
	return nil
}

// GetByID fetches a product by primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, fmt.Errorf("catalog: get product: %w", err)
	}
	return p, nil
}

// GetBySKU fetches the product whose SKU matches exactly (case-sensitive).
// The store enforces SKU uniqueness, but the lookup does not assume it
// silently: when zero or more than one row matches it reports not found.
func (r *Repository) GetBySKU(ctx context.Context, sku string) (Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE sku = $1 LIMIT 2`, sku)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: get product by sku: %w", err)
	}
	defer rows.Close()

	var matches []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return Product{}, fmt.Errorf("catalog: scan product: %w", err)
		}
		matches = append(matches, p)
	}
	if err := rows.Err(); err != nil {
		return Product{}, fmt.Errorf("catalog: get product by sku: %w", err)
	}
	if len(matches) != 1 {
		return Product{}, ErrProductNotFound
	}
	return matches[0], nil
}

// List returns products ordered by name, optionally filtered by a search term
// over name and sku.
func (r *Repository) List(ctx context.Context, search string, limit, offset int) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	args := []any{}
	if search != "" {
		query += ` WHERE name ILIKE $1 OR sku ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	defer rows.Close()

	var list []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Update rewrites the descriptive attributes and quantity of a product.
func (r *Repository) Update(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET sku = $2, name = $3, category = $4, price = $5, quantity = $6,
		    min_quantity = $7, description = $8, updated_at = $9
		WHERE id = $1`,
		p.ID, p.SKU, p.Name, p.Category, p.Price, p.Quantity, p.MinQuantity, p.Description, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSKUConflict
		}
		return fmt.Errorf("catalog: update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Delete removes a product row.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DecrementQuantity applies a clamped, atomic single-statement decrement and
// returns the resulting quantity. Concurrent callers serialize on the row
// inside the UPDATE itself, so there is no read-then-write window.
func (r *Repository) DecrementQuantity(ctx context.Context, id string, by int) (int, error) {
	var quantity int
	err := r.pool.QueryRow(ctx, `
		UPDATE products
		SET quantity = GREATEST(quantity - $2, 0), updated_at = now()
		WHERE id = $1
		RETURNING quantity`, id, by).Scan(&quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		return 0, fmt.Errorf("catalog: decrement quantity: %w", err)
	}
	return quantity, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
