// Package dashboard serves the read-side stock statistics observers poll.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const statsCacheKey = "dashboard:stats"

// Stats summarises the catalog for the dashboard.
type Stats struct {
	TotalProducts int     `json:"total_products"`
	TotalStock    int     `json:"total_stock"`
	LowStock      int     `json:"low_stock"`
	StockValue    float64 `json:"stock_value"`
}

// RepositoryPort abstracts the stats query.
type RepositoryPort interface {
	Stats(ctx context.Context) (Stats, error)
}

// Service loads stats through a Redis cache. Movement feed activity
// invalidates the cached value so observers converge quickly after scans.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	client *redis.Client
	ttl    time.Duration
}

// NewService builds Service. client may be nil, which disables caching.
func NewService(logger *slog.Logger, repo RepositoryPort, client *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{logger: logger, repo: repo, client: client, ttl: ttl}
}

// Stats returns the cached statistics, computing them on a miss.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s.client != nil {
		raw, err := s.client.Get(ctx, statsCacheKey).Bytes()
		if err == nil {
			var cached Stats
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("stats cache read", slog.Any("error", err))
		}
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("dashboard: load stats: %w", err)
	}

	if s.client != nil {
		raw, err := json.Marshal(stats)
		if err == nil {
			if err := s.client.Set(ctx, statsCacheKey, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("stats cache write", slog.Any("error", err))
			}
		}
	}
	return stats, nil
}

// Invalidate drops the cached statistics.
func (s *Service) Invalidate(ctx context.Context) {
	if s.client == nil {
		return
	}
	if err := s.client.Del(ctx, statsCacheKey).Err(); err != nil {
		s.logger.Warn("stats cache invalidate", slog.Any("error", err))
	}
}
