package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tsanders-rh/costctl/pkg/types"
)

// Cache holds the latest assembled report per fleet so read-heavy API
// traffic does not hit the database for every request. Implementations
// must be safe for concurrent use.
type Cache interface {
	SetLatestReport(ctx context.Context, report *types.CostReport, ttl time.Duration) error
	GetLatestReport(ctx context.Context, fleet string) (*types.CostReport, bool, error)
	InvalidateLatestReport(ctx context.Context, fleet string) error
	Ping(ctx context.Context) error
}

// LatestReportKey returns the cache key for a fleet's most recent report
func LatestReportKey(fleet string) string {
	return fmt.Sprintf("costctl:report:latest:%s", fleet)
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) SetLatestReport(ctx context.Context, report *types.CostReport, ttl time.Duration) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal cached report: %w", err)
	}
	return c.client.Set(ctx, LatestReportKey(report.Fleet), body, ttl).Err()
}

func (c *RedisCache) GetLatestReport(ctx context.Context, fleet string) (*types.CostReport, bool, error) {
	body, err := c.client.Get(ctx, LatestReportKey(fleet)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var report types.CostReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached report: %w", err)
	}
	return &report, true, nil
}

func (c *RedisCache) InvalidateLatestReport(ctx context.Context, fleet string) error {
	return c.client.Del(ctx, LatestReportKey(fleet)).Err()
}
