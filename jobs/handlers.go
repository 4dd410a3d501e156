package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// StockWriter abstracts the catalog mutation the repair job needs.
type StockWriter interface {
	DecrementQuantity(ctx context.Context, id string, by int) (int, error)
}

// StockRepairJob re-applies failed stock decrements against the catalog
// store. The decrement is the same clamped conditional write the scan path
// uses, so a repeated run can only re-converge the quantity, never push it
// negative.
type StockRepairJob struct {
	catalog StockWriter
	logger  *slog.Logger
}

// NewStockRepairJob constructs StockRepairJob.
func NewStockRepairJob(catalog StockWriter, logger *slog.Logger) *StockRepairJob {
	return &StockRepairJob{catalog: catalog, logger: logger}
}

// Handle processes TaskStockRepair tasks.
func (j *StockRepairJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload StockRepairPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.ProductID == "" || payload.Quantity <= 0 {
		return asynq.SkipRetry
	}
	quantity, err := j.catalog.DecrementQuantity(ctx, payload.ProductID, payload.Quantity)
	if err != nil {
		j.logger.Error("stock repair failed",
			slog.String("product_id", payload.ProductID),
			slog.String("movement_id", payload.MovementID),
			slog.Any("error", err))
		return err
	}
	j.logger.Info("stock repaired",
		slog.String("product_id", payload.ProductID),
		slog.String("movement_id", payload.MovementID),
		slog.Int("quantity", quantity))
	return nil
}

// LowStockAlertJob surfaces threshold crossings to operators. Delivery is a
// structured log line today; the payload carries everything a mail or chat
// sink needs.
type LowStockAlertJob struct {
	logger *slog.Logger
}

// NewLowStockAlertJob constructs LowStockAlertJob.
func NewLowStockAlertJob(logger *slog.Logger) *LowStockAlertJob {
	return &LowStockAlertJob{logger: logger}
}

// Handle processes TaskLowStockAlert tasks.
func (j *LowStockAlertJob) Handle(_ context.Context, t *asynq.Task) error {
	var payload LowStockAlertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	j.logger.Warn("low stock",
		slog.String("product_id", payload.ProductID),
		slog.String("name", payload.Name),
		slog.Int("quantity", payload.Quantity),
		slog.Int("min_quantity", payload.MinQuantity))
	return nil
}
