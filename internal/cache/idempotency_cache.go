package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// IdempotencyCache reserves client request keys so that concurrent retries
// of the same cart cannot both reach the order store. The store's unique
// request key remains the source of truth once an order is committed.
type IdempotencyCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewIdempotencyCache creates a new IdempotencyCache. Reservations expire
// after ttl.
func NewIdempotencyCache(redis *RedisClient, ttl time.Duration) *IdempotencyCache {
	return &IdempotencyCache{redis: redis, ttl: ttl}
}

func (c *IdempotencyCache) key(tenantID, requestKey string) string {
	return fmt.Sprintf("idem:%s:%s", tenantID, requestKey)
}

// Reserve claims requestKey for orderID. It reports false when another
// request already holds the key.
func (c *IdempotencyCache) Reserve(ctx context.Context, tenantID, requestKey, orderID string) (bool, error) {
	return c.redis.SetNX(ctx, c.key(tenantID, requestKey), orderID, c.ttl)
}

// Holder returns the order id that reserved requestKey, or "" when the key
// is free.
func (c *IdempotencyCache) Holder(ctx context.Context, tenantID, requestKey string) (string, error) {
	v, err := c.redis.Get(ctx, c.key(tenantID, requestKey))
	if errors.Is(err, ErrCacheMiss) {
		return "", nil
	}
	return v, err
}

// Release frees a reservation after a commit that did not persist.
func (c *IdempotencyCache) Release(ctx context.Context, tenantID, requestKey string) error {
	return c.redis.Delete(ctx, c.key(tenantID, requestKey))
}
