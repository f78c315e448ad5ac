// Package rediscache stores product embedding vectors in Redis so semantic
// matching pays the per-product embedding cost once per name change instead
// of once per unmatched fragment.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/kervanis/order-engine/internal/semantic"
)

var _ semantic.VectorCache = (*EmbeddingCache)(nil)

// EmbeddingCache is a Redis-backed semantic.VectorCache.
type EmbeddingCache struct {
	client *redis.Client
}

// New connects to Redis at the given address.
func New(addr, password string, db int) *EmbeddingCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &EmbeddingCache{client: client}
}

// Ping verifies connectivity. Used by the readiness probe.
func (c *EmbeddingCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client.
func (c *EmbeddingCache) Close() error {
	return c.client.Close()
}

// Get implements semantic.VectorCache.
func (c *EmbeddingCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var vec []float32
	if err := json.Unmarshal([]byte(val), &vec); err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Set implements semantic.VectorCache.
func (c *EmbeddingCache) Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error {
	if len(vec) == 0 {
		return nil
	}
	payload, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
