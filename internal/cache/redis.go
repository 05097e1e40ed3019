// Package cache is the read-through listing cache. Entries are JSON-encoded
// with a bounded TTL; writes invalidate by key pattern, trading hit rate for
// correctness.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"slotline/internal/logger"
)

// ListingPrefix namespaces every cached booking listing.
const ListingPrefix = "bookings"

// ListingPattern matches every cached booking listing. State-changing
// operations invalidate with this coarse pattern so shared or derived
// queries never serve a stale status.
const ListingPattern = ListingPrefix + ":*"

// ListingKey builds the cache key for a listing query. Every filter
// parameter participates so distinct queries never collide.
func ListingKey(userID string, limit, offset int, role, status string) string {
	return fmt.Sprintf("%s:%s:%d:%d:%s:%s", ListingPrefix, userID, limit, offset, role, status)
}

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get decodes the cached value for key into dest. A miss, a decode failure
// or a Redis error all report false so the caller degrades to a store read.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		logger.WithContext(ctx).Warn("Cache read failed, falling back to store", "error", err, "key", key)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logger.WithContext(ctx).Warn("Cache entry undecodable, falling back to store", "error", err, "key", key)
		return false
	}
	return true
}

// Set stores value under key with the cache's TTL. Best-effort: a failed
// write only costs a future cache miss.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.WithContext(ctx).Warn("Cache value not serializable", "error", err, "key", key)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.WithContext(ctx).Warn("Cache write failed", "error", err, "key", key)
	}
}

// InvalidatePattern removes every key matching pattern using SCAN, never
// KEYS, so invalidation does not stall the shared Redis instance.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			logger.WithContext(ctx).Error("Cache invalidation scan failed", "error", err, "pattern", pattern)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				logger.WithContext(ctx).Error("Cache invalidation delete failed", "error", err, "pattern", pattern)
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
