package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *IdempotencyCache) {
	mr := miniredis.RunT(t)
	client := &RedisClient{client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewIdempotencyCache(client, time.Minute)
}

func TestIdempotencyCache_ReserveOnce(t *testing.T) {
	_, c := setupTestRedis(t)
	ctx := context.Background()

	ok, err := c.Reserve(ctx, "t1", "req-1", "order-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Reserve(ctx, "t1", "req-1", "order-b")
	require.NoError(t, err)
	assert.False(t, ok)

	holder, err := c.Holder(ctx, "t1", "req-1")
	require.NoError(t, err)
	assert.Equal(t, "order-a", holder)
}

func TestIdempotencyCache_KeysAreTenantScoped(t *testing.T) {
	_, c := setupTestRedis(t)
	ctx := context.Background()

	ok, err := c.Reserve(ctx, "t1", "req-1", "order-a")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.Reserve(ctx, "t2", "req-1", "order-b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyCache_ReleaseAndExpiry(t *testing.T) {
	mr, c := setupTestRedis(t)
	ctx := context.Background()

	_, err := c.Reserve(ctx, "t1", "req-1", "order-a")
	require.NoError(t, err)
	require.NoError(t, c.Release(ctx, "t1", "req-1"))

	holder, err := c.Holder(ctx, "t1", "req-1")
	require.NoError(t, err)
	assert.Empty(t, holder)

	_, err = c.Reserve(ctx, "t1", "req-2", "order-b")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	ok, err := c.Reserve(ctx, "t1", "req-2", "order-c")
	require.NoError(t, err)
	assert.True(t, ok)
}
