// Package catalog manages the product master data the scan pipeline reads
// and decrements.
package catalog

import (
	"errors"
	"time"
)

// Product represents a product row. SKU, category, min quantity and
// description are nullable: products without a SKU are simply unreachable by
// scan.
type Product struct {
	ID          string    `json:"id"`
	SKU         *string   `json:"sku"`
	Name        string    `json:"name"`
	Category    *string   `json:"category"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	MinQuantity *int      `json:"min_quantity"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ErrProductNotFound indicates a missing product row.
var ErrProductNotFound = errors.New("catalog: product not found")

// ErrSKUConflict indicates the SKU is already assigned to another product.
var ErrSKUConflict = errors.New("catalog: sku already in use")
