package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryIdempotencyStore_Claim(t *testing.T) {
	store := NewMemoryIdempotencyStore(0)
	defer store.Close()
	ctx := context.Background()

	t.Run("first claim wins", func(t *testing.T) {
		ok, err := store.Claim(ctx, "event-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Claim(ctx, "event-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("release allows another claim", func(t *testing.T) {
		_, err := store.Claim(ctx, "event-2", time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Release(ctx, "event-2"))

		ok, err := store.Claim(ctx, "event-2", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("expired claim can be taken again", func(t *testing.T) {
		now := time.Now()
		store.now = func() time.Time { return now }

		_, err := store.Claim(ctx, "event-3", time.Minute)
		require.NoError(t, err)

		now = now.Add(2 * time.Minute)
		ok, err := store.Claim(ctx, "event-3", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestMemoryIdempotencyStore_Sweep(t *testing.T) {
	store := NewMemoryIdempotencyStore(0)
	defer store.Close()

	now := time.Now()
	store.now = func() time.Time { return now }

	_, _ = store.Claim(context.Background(), "short", time.Second)
	_, _ = store.Claim(context.Background(), "long", time.Hour)

	now = now.Add(time.Minute)
	store.sweep()
	assert.Equal(t, 1, store.Len())
}

func TestMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Millisecond)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestNewIdempotencyStore_FallsBackToMemory(t *testing.T) {
	store := NewIdempotencyStore(nil, zap.NewNop())
	defer store.Close()
	_, ok := store.(*MemoryIdempotencyStore)
	assert.True(t, ok)
}

func TestRedisIdempotencyStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("Skipping integration test. Set REDIS_TEST_ADDR to a running redis to enable.")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	store := NewRedisIdempotencyStore(client, "test:"+uuid.NewString()+":")
	ctx := context.Background()

	ok, err := store.Claim(ctx, "e", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, "e", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Release(ctx, "e"))
	ok, err = store.Claim(ctx, "e", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
