package movement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// feedChannel carries committed movement records to live observers.
const feedChannel = "movements.feed"

// Feed is the Redis-backed change feed. Committed records are published onto
// a pub/sub channel; dashboards subscribe and receive each record within
// normal propagation latency. Delivery is best-effort and never blocks the
// writer.
type Feed struct {
	client *redis.Client
	logger *slog.Logger
}

// NewFeed instantiates the change feed.
func NewFeed(client *redis.Client, logger *slog.Logger) *Feed {
	return &Feed{client: client, logger: logger}
}

// Publish pushes a committed record to subscribers.
func (f *Feed) Publish(ctx context.Context, rec Record) error {
	if f == nil || f.client == nil {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("movement: marshal feed record: %w", err)
	}
	if err := f.client.Publish(ctx, feedChannel, payload).Err(); err != nil {
		return fmt.Errorf("movement: publish feed record: %w", err)
	}
	return nil
}

// Subscribe registers an observer. The returned channel yields records until
// the context is cancelled or the cancel func is called. Malformed messages
// are dropped with a warning.
func (f *Feed) Subscribe(ctx context.Context) (<-chan Record, func()) {
	out := make(chan Record, 16)
	if f == nil || f.client == nil {
		close(out)
		return out, func() {}
	}

	sub := f.client.Subscribe(ctx, feedChannel)
	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var rec Record
				if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
					if f.logger != nil {
						f.logger.Warn("drop malformed feed message", slog.Any("error", err))
					}
					continue
				}
				select {
				case out <- rec:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, func() { _ = sub.Close() }
}
