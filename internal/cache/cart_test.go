package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront-api/internal/domain"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestCartCacheRoundTrip(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewRedisCartCache(client, time.Minute)
	ctx := context.Background()

	carts := []domain.Cart{{
		ID:         "c1",
		UserID:     "u1",
		Items:      []domain.CartItem{{ProductID: "p1", Quantity: 2, TotalCents: 2000}},
		TotalCents: 2000,
		Version:    3,
	}}
	require.NoError(t, c.Set(ctx, "u1", 0, carts))
	assert.True(t, mr.Exists(cartKey("u1")))

	ttl := mr.TTL(cartKey("u1"))
	assert.GreaterOrEqual(t, ttl, time.Minute)
	assert.Less(t, ttl, 6*time.Minute)

	got, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)
	assert.Equal(t, int64(2000), got[0].TotalCents)
	assert.Equal(t, 3, got[0].Version)
}

func TestCartCacheMiss(t *testing.T) {
	client, _ := setupTestRedis(t)
	c := NewRedisCartCache(client, time.Minute)

	got, err := c.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestCartCacheInvalidPayload(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewRedisCartCache(client, time.Minute)
	require.NoError(t, mr.Set(cartKey("u1"), "{not-json"))

	_, err := c.Get(context.Background(), "u1")
	require.ErrorContains(t, err, "unmarshal carts failed")
}

func TestCartCacheEmptyListIsAHit(t *testing.T) {
	client, _ := setupTestRedis(t)
	c := NewRedisCartCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "u1", 0, nil))
	got, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCartCacheDelete(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewRedisCartCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "u1", 0, []domain.Cart{{ID: "c1"}}))
	require.NoError(t, c.Delete(ctx, "u1"))
	assert.False(t, mr.Exists(cartKey("u1")))

	_, err := c.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCartCacheConnectionError(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewRedisCartCache(client, time.Minute)
	mr.Close()

	_, err := c.Get(context.Background(), "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestCartCacheDeleteBumpsGeneration(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewRedisCartCache(client, time.Minute)
	ctx := context.Background()

	gen, err := c.Generation(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	require.NoError(t, c.Delete(ctx, "u1"))
	require.NoError(t, c.Delete(ctx, "u1"))

	gen, err = c.Generation(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen)
	assert.Greater(t, mr.TTL(generationKey("u1")), time.Duration(0))
}

func TestCartCacheSetRejectsListReadBeforeWrite(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewRedisCartCache(client, time.Minute)
	ctx := context.Background()

	gen, err := c.Generation(ctx, "u1")
	require.NoError(t, err)

	// a writer commits and invalidates while the reader is still loading
	require.NoError(t, c.Delete(ctx, "u1"))

	err = c.Set(ctx, "u1", gen, []domain.Cart{{ID: "c1", Version: 1}})
	assert.ErrorIs(t, err, ErrStale)
	assert.False(t, mr.Exists(cartKey("u1")))

	fresh, err := c.Generation(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "u1", fresh, []domain.Cart{{ID: "c1", Version: 2}}))

	got, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, got[0].Version)
}
