package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/palletspace/booking-service/internal/domain"
)

// DefaultPricingTTL bounds how stale cached pricing may get if an
// invalidation is lost
const DefaultPricingTTL = 10 * time.Minute

// PricingCache keeps warehouse pricing as JSON under pricing:<warehouseID>
type PricingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPricingCache creates a new PricingCache
func NewPricingCache(client *redis.Client, ttl time.Duration) *PricingCache {
	if ttl <= 0 {
		ttl = DefaultPricingTTL
	}
	return &PricingCache{client: client, ttl: ttl}
}

// NewClient connects to redis at addr
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func pricingKey(warehouseID string) string {
	return "pricing:" + warehouseID
}

// Get returns the cached pricing, or nil on a miss
func (c *PricingCache) Get(ctx context.Context, warehouseID string) (*domain.WarehousePricing, error) {
	raw, err := c.client.Get(ctx, pricingKey(warehouseID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached pricing: %w", err)
	}

	var pricing domain.WarehousePricing
	if err := json.Unmarshal(raw, &pricing); err != nil {
		// a corrupt entry behaves like a miss and is overwritten on the next Set
		return nil, fmt.Errorf("failed to decode cached pricing: %w", err)
	}
	return &pricing, nil
}

// Set caches pricing for the configured TTL
func (c *PricingCache) Set(ctx context.Context, pricing *domain.WarehousePricing) error {
	raw, err := json.Marshal(pricing)
	if err != nil {
		return fmt.Errorf("failed to encode pricing: %w", err)
	}
	if err := c.client.Set(ctx, pricingKey(pricing.WarehouseID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache pricing: %w", err)
	}
	return nil
}

// Invalidate drops the cached pricing of a warehouse
func (c *PricingCache) Invalidate(ctx context.Context, warehouseID string) error {
	if err := c.client.Del(ctx, pricingKey(warehouseID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached pricing: %w", err)
	}
	return nil
}
