package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const cacheKeyPrefix = "order-matching:"

const (
	productListCacheKey     = "products:all"
	bundleMatchListCacheKey = "bundle-matches:all"
)

// Cache is an optional Redis read-through cache shared by the repositories.
// A nil *Cache, or one built without a client, is a no-op.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

// NewCache wraps a Redis client. client may be nil.
func NewCache(client *redis.Client, ttl time.Duration, logger *logrus.Entry) *Cache {
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Ping checks the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	if !c.enabled() {
		return fmt.Errorf("redis not configured")
	}
	return c.client.Ping(ctx).Err()
}

// get loads key into dest and reports whether it was a hit
func (c *Cache) get(ctx context.Context, key string, dest interface{}) bool {
	if !c.enabled() {
		return false
	}
	val, err := c.client.Get(ctx, cacheKeyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, value interface{}) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

func (c *Cache) invalidate(ctx context.Context, keys ...string) {
	if !c.enabled() || len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = cacheKeyPrefix + k
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		c.logger.WithError(err).Warn("Cache invalidation failed")
	}
}
