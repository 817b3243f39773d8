package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/exportops/backend-go/internal/config"
	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/andresuchdata/exportops/backend-go/internal/rates"
	"github.com/redis/go-redis/v9"
)

const (
	ratesSnapshotKey = "rates:snapshot"
	defaultRatesTTL  = time.Hour
)

type redisRateCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopRateCache struct{}

// NewRateCache returns the shared rate snapshot store. It is a no-op when
// caching is disabled.
func NewRateCache(cfg config.CacheConfig) (rates.SharedStore, error) {
	if !cfg.Enabled {
		return &noopRateCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg, cfg.RatesTTLSeconds, defaultRatesTTL)
	if err != nil {
		return nil, err
	}

	return &redisRateCache{client: client, ttl: ttl}, nil
}

func (c *redisRateCache) GetRates(ctx context.Context) (*domain.RateSnapshot, bool, error) {
	payload, err := c.client.Get(ctx, ratesSnapshotKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var snapshot domain.RateSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, false, fmt.Errorf("decode rates cache: %w", err)
	}

	return &snapshot, true, nil
}

func (c *redisRateCache) SetRates(ctx context.Context, snapshot domain.RateSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode rates cache: %w", err)
	}

	if err := c.client.Set(ctx, ratesSnapshotKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisRateCache) InvalidateRates(ctx context.Context) error {
	if err := c.client.Del(ctx, ratesSnapshotKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (n *noopRateCache) GetRates(ctx context.Context) (*domain.RateSnapshot, bool, error) {
	return nil, false, nil
}

func (n *noopRateCache) SetRates(ctx context.Context, snapshot domain.RateSnapshot) error {
	return nil
}

func (n *noopRateCache) InvalidateRates(ctx context.Context) error {
	return nil
}
