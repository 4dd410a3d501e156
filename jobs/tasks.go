// Package jobs defines the background tasks spawned by the scan pipeline and
// the Asynq plumbing that runs them.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockRepair re-applies a stock decrement whose write failed
	// after the movement record committed.
	TaskStockRepair = "stock:repair"
	// TaskLowStockAlert notifies operators a product fell to or below its
	// minimum quantity.
	TaskLowStockAlert = "stock:low_alert"
)

// StockRepairPayload identifies the movement whose decrement must be
// re-applied.
type StockRepairPayload struct {
	ProductID  string `json:"product_id"`
	MovementID string `json:"movement_id"`
	Quantity   int    `json:"quantity"`
}

// NewStockRepairTask constructs an Asynq task for a stock repair.
func NewStockRepairTask(payload StockRepairPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockRepair, body, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// LowStockAlertPayload describes the product that crossed its threshold.
type LowStockAlertPayload struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	MinQuantity int    `json:"min_quantity"`
}

// NewLowStockAlertTask constructs an Asynq task for a low-stock alert.
func NewLowStockAlertTask(payload LowStockAlertPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockAlert, body, asynq.Queue(QueueDefault)), nil
}
