package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stokku/stokku/internal/catalog"
	"github.com/stokku/stokku/internal/movement"
)

// CatalogPort abstracts the product catalog store.
type CatalogPort interface {
	GetBySKU(ctx context.Context, sku string) (catalog.Product, error)
	DecrementQuantity(ctx context.Context, id string, by int) (int, error)
}

// MovementPort abstracts the append-only movement log store.
type MovementPort interface {
	Append(ctx context.Context, rec *movement.Record) error
}

// FeedPort abstracts the change feed committed records are published to.
type FeedPort interface {
	Publish(ctx context.Context, rec movement.Record) error
}

// JobEnqueuer abstracts background work spawned by the pipeline. Both hooks
// are best-effort: an enqueue failure never fails the scan.
type JobEnqueuer interface {
	EnqueueLowStockAlert(ctx context.Context, productID, name string, quantity, minQuantity int) error
	EnqueueStockRepair(ctx context.Context, productID, movementID string, quantity int) error
}

// Processor executes the scan pipeline. It is stateless: every invocation
// reads and writes only the external stores, so concurrent scans are safe to
// run side by side.
type Processor struct {
	logger    *slog.Logger
	catalog   CatalogPort
	movements MovementPort
	feed      FeedPort
	jobs      JobEnqueuer
}

// NewProcessor builds Processor. feed and jobs may be nil.
func NewProcessor(logger *slog.Logger, catalog CatalogPort, movements MovementPort, feed FeedPort, jobs JobEnqueuer) *Processor {
	return &Processor{logger: logger, catalog: catalog, movements: movements, feed: feed, jobs: jobs}
}

// Process handles one scan event.
//
// Ordering is audit-first: the movement record is committed before the stock
// write, so a failed stock write leaves a record of the attempted operation
// instead of silently losing it. The stock write itself is a single clamped
// conditional decrement and its failure is non-fatal to the response; the
// movement log is the source of truth for whether a scan happened, and a
// repair job re-applies the decrement afterwards.
//
// Replaying an identical payload decrements again and appends a second
// record. The pipeline deliberately carries no dedup key.
func (p *Processor) Process(ctx context.Context, event Event) (Result, error) {
	if event.Barcode == "" {
		return Result{}, fmt.Errorf("%w: barcode required", ErrInvalidEvent)
	}

	product, err := p.catalog.GetBySKU(ctx, event.Barcode)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return Result{}, fmt.Errorf("%w: %s", ErrProductNotFound, event.Barcode)
		}
		return Result{}, fmt.Errorf("scan: resolve product: %w", err)
	}

	rec := movement.Record{
		ProductID: product.ID,
		Type:      movement.TypeOut,
		Quantity:  1,
		Notes:     fmt.Sprintf("Scanned by device: %s", event.DeviceID),
		DeviceID:  event.DeviceID,
	}
	if err := p.movements.Append(ctx, &rec); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMovementWrite, err)
	}

	newQuantity, err := p.catalog.DecrementQuantity(ctx, product.ID, 1)
	if err != nil {
		// Non-fatal: the audit record is committed, so the device is
		// told the scan succeeded and reconciliation repairs the
		// quantity from the movement log.
		p.logger.Error("stock decrement failed after movement commit",
			slog.String("product_id", product.ID),
			slog.String("movement_id", rec.ID),
			slog.Any("error", err))
		newQuantity = product.Quantity - 1
		if newQuantity < 0 {
			newQuantity = 0
		}
		if p.jobs != nil {
			if err := p.jobs.EnqueueStockRepair(ctx, product.ID, rec.ID, rec.Quantity); err != nil {
				p.logger.Error("enqueue stock repair", slog.Any("error", err))
			}
		}
	}

	if p.feed != nil {
		// PUBLISH hands the record to the feed without waiting on any
		// observer; a failure only costs liveness of the dashboards.
		if err := p.feed.Publish(ctx, rec); err != nil {
			p.logger.Warn("publish movement to feed", slog.Any("error", err))
		}
	}

	if p.jobs != nil && product.MinQuantity != nil && newQuantity <= *product.MinQuantity {
		if err := p.jobs.EnqueueLowStockAlert(ctx, product.ID, product.Name, newQuantity, *product.MinQuantity); err != nil {
			p.logger.Error("enqueue low stock alert", slog.Any("error", err))
		}
	}

	sku := ""
	if product.SKU != nil {
		sku = *product.SKU
	}
	return Result{
		Product: ProductResult{
			Name:        product.Name,
			SKU:         sku,
			OldQuantity: product.Quantity,
			NewQuantity: newQuantity,
			Category:    product.Category,
		},
		Movement: rec.ID,
	}, nil
}
