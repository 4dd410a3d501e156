package jobs

import (
	"context"

	"github.com/hibiken/asynq"
)

// Client submits jobs to the queue. It satisfies the scan pipeline's
// JobEnqueuer port.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueStockRepair queues a re-application of a failed stock decrement.
func (c *Client) EnqueueStockRepair(ctx context.Context, productID, movementID string, quantity int) error {
	task, err := NewStockRepairTask(StockRepairPayload{
		ProductID:  productID,
		MovementID: movementID,
		Quantity:   quantity,
	})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task)
	return err
}

// EnqueueLowStockAlert queues a low-stock notification.
func (c *Client) EnqueueLowStockAlert(ctx context.Context, productID, name string, quantity, minQuantity int) error {
	task, err := NewLowStockAlertTask(LowStockAlertPayload{
		ProductID:   productID,
		Name:        name,
		Quantity:    quantity,
		MinQuantity: minQuantity,
	})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task)
	return err
}
