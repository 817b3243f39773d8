package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/exportops/backend-go/internal/config"
	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	breakdownKeyPrefix  = "export:breakdown"
	defaultBreakdownTTL = time.Minute
)

type BreakdownCache interface {
	GetBreakdown(ctx context.Context, filters domain.BreakdownFilters) (*domain.ExportBreakdown, bool, error)
	SetBreakdown(ctx context.Context, filters domain.BreakdownFilters, breakdown *domain.ExportBreakdown) error
	InvalidateAll(ctx context.Context) error
}

type redisBreakdownCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopBreakdownCache struct{}

func NewBreakdownCache(cfg config.CacheConfig) (BreakdownCache, error) {
	if !cfg.Enabled {
		return &noopBreakdownCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg, cfg.BreakdownTTLSeconds, defaultBreakdownTTL)
	if err != nil {
		return nil, err
	}

	return &redisBreakdownCache{client: client, ttl: ttl}, nil
}

func NewNoopBreakdownCache() BreakdownCache {
	return &noopBreakdownCache{}
}

func (c *redisBreakdownCache) GetBreakdown(ctx context.Context, filters domain.BreakdownFilters) (*domain.ExportBreakdown, bool, error) {
	payload, err := c.client.Get(ctx, buildBreakdownKey(filters)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var breakdown domain.ExportBreakdown
	if err := json.Unmarshal(payload, &breakdown); err != nil {
		return nil, false, fmt.Errorf("decode breakdown cache: %w", err)
	}

	return &breakdown, true, nil
}

func (c *redisBreakdownCache) SetBreakdown(ctx context.Context, filters domain.BreakdownFilters, breakdown *domain.ExportBreakdown) error {
	payload, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("encode breakdown cache: %w", err)
	}

	if err := c.client.Set(ctx, buildBreakdownKey(filters), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisBreakdownCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, breakdownKeyPrefix, scanBatchSize)
}

func (n *noopBreakdownCache) GetBreakdown(ctx context.Context, filters domain.BreakdownFilters) (*domain.ExportBreakdown, bool, error) {
	return nil, false, nil
}

func (n *noopBreakdownCache) SetBreakdown(ctx context.Context, filters domain.BreakdownFilters, breakdown *domain.ExportBreakdown) error {
	return nil
}

func (n *noopBreakdownCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// buildBreakdownKey hashes the normalized filters; filters differing only in
// case or surrounding spaces share a key since the aggregator ignores both.
func buildBreakdownKey(filters domain.BreakdownFilters) string {
	var parts []string
	add := func(name, value string) {
		if v := strings.ToLower(strings.TrimSpace(value)); v != "" {
			parts = append(parts, name+"="+v)
		}
	}
	add("start", filters.Start)
	add("end", filters.End)
	add("zone", filters.Zone)
	add("destination", filters.Destination)
	add("incoterm", filters.Incoterm)
	add("client", filters.ClientID)
	add("product", filters.ProductID)

	if len(parts) == 0 {
		return breakdownKeyPrefix + ":default"
	}

	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s:%s", breakdownKeyPrefix, hex.EncodeToString(hash[:]))
}
