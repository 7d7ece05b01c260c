package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"carthago-travel-backend/internal/domain"
	"carthago-travel-backend/internal/logger"
)

// NewRedisClient creates a Redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}

	return client, nil
}

const catalogKey = "catalog:vehicles"

// CatalogCache keeps the storefront vehicle listing in redis for a short
// TTL. A cache failure is never fatal: readers fall through to the
// database and writers log and move on.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: client, ttl: ttl}
}

func (c *CatalogCache) Get(ctx context.Context) ([]domain.Vehicle, bool) {
	data, err := c.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Catalog cache read failed", "error", err)
		}
		return nil, false
	}

	var vehicles []domain.Vehicle
	if err := json.Unmarshal(data, &vehicles); err != nil {
		logger.Warn("Catalog cache payload undecodable, dropping", "error", err)
		_ = c.client.Del(ctx, catalogKey).Err()
		return nil, false
	}
	return vehicles, true
}

func (c *CatalogCache) Set(ctx context.Context, vehicles []domain.Vehicle) {
	data, err := json.Marshal(vehicles)
	if err != nil {
		logger.Warn("Catalog cache encode failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, catalogKey, data, c.ttl).Err(); err != nil {
		logger.Warn("Catalog cache write failed", "error", err)
	}
}

// Invalidate drops the cached listing, called after admin changes to
// vehicles or matriculation statuses.
func (c *CatalogCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, catalogKey).Err(); err != nil {
		logger.Warn("Catalog cache invalidation failed", "error", err)
	}
}
