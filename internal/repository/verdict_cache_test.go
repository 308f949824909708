package repository_test

import (
	"context"
	"testing"
	"time"

	"tarot-ai-go/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestVerdictCache_MissThenHit(t *testing.T) {
	ctx := context.Background()
	_, client := newRedis(t)
	cache := repository.NewVerdictCache(client, time.Hour)

	_, found, err := cache.Get(ctx, "what does the tower mean?")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "what does the tower mean?", true))
	require.NoError(t, cache.Set(ctx, "what's the weather?", false))

	verdict, found, err := cache.Get(ctx, "what does the tower mean?")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, verdict)

	verdict, found, err = cache.Get(ctx, "what's the weather?")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, verdict)
}

func TestVerdictCache_Expires(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	cache := repository.NewVerdictCache(client, time.Minute)

	require.NoError(t, cache.Set(ctx, "window", true))
	mr.FastForward(2 * time.Minute)

	_, found, err := cache.Get(ctx, "window")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestVerdictCache_RedisDown(t *testing.T) {
	mr, client := newRedis(t)
	cache := repository.NewVerdictCache(client, time.Minute)
	mr.Close()

	_, _, err := cache.Get(context.Background(), "window")
	assert.Error(t, err)
}
