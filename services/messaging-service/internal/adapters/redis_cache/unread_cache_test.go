package redis_cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*UnreadCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewUnreadCache(client, time.Minute), mr
}

func TestUnreadKey(t *testing.T) {
	id := uuid.MustParse("6f1c1c52-3f0e-4c8e-9a55-0d3c5a4c1b11")
	assert.Equal(t, "messaging:unread:6f1c1c52-3f0e-4c8e-9a55-0d3c5a4c1b11", unreadKey(id))
	assert.Equal(t, "messaging:unread-gen:6f1c1c52-3f0e-4c8e-9a55-0d3c5a4c1b11", generationKey(id))
}

func TestUnreadCache_SetAndGet(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	user := uuid.New()

	_, ok, err := cache.Get(ctx, user)
	require.NoError(t, err)
	assert.False(t, ok)

	gen, err := cache.Generation(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, gen)

	stored, err := cache.Set(ctx, user, 4, gen)
	require.NoError(t, err)
	assert.True(t, stored)

	n, ok, err := cache.Get(ctx, user)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, time.Minute, mr.TTL(unreadKey(user)))
}

func TestUnreadCache_InvalidateDiscardsStaleWrite(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	user := uuid.New()

	gen, err := cache.Generation(ctx, user)
	require.NoError(t, err)

	// подсчет в базе идет, в это время приходит уведомление
	require.NoError(t, cache.Invalidate(ctx, user))

	stored, err := cache.Set(ctx, user, 0, gen)
	require.NoError(t, err)
	assert.False(t, stored)
	_, ok, err := cache.Get(ctx, user)
	require.NoError(t, err)
	assert.False(t, ok)

	fresh, err := cache.Generation(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, gen+1, fresh)
	stored, err = cache.Set(ctx, user, 1, fresh)
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestUnreadCache_InvalidateDropsValue(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := cache.Set(ctx, user, 3, 0)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, user))

	assert.False(t, mr.Exists(unreadKey(user)))
	assert.Equal(t, generationTTL, mr.TTL(generationKey(user)))
}

func TestNoopCacheAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c NoopCache
	stored, err := c.Set(ctx, uuid.New(), 5, 0)
	assert.NoError(t, err)
	assert.False(t, stored)
	n, ok, err := c.Get(ctx, uuid.New())
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, n)
}

func TestUnreadCache_UnreachableServerReturnsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	cache := NewUnreadCache(client, time.Minute)

	_, ok, err := cache.Get(context.Background(), uuid.New())
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, cache.Invalidate(context.Background(), uuid.New()))
}
