package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/kitchenledger/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingStore struct{}

func (failingStore) Claim(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis unavailable")
}
func (failingStore) Release(context.Context, string) error { return nil }
func (failingStore) Close() error                          { return nil }

func TestIdempotentHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("handles each event once", func(t *testing.T) {
		store := cache.NewMemoryIdempotencyStore(0)
		defer store.Close()
		inner := newTestHandler("A")
		h := NewIdempotentHandler("low_stock", inner, store, zap.NewNop())

		event := newTestEvent("A")
		require.NoError(t, h.Handle(ctx, event))
		require.NoError(t, h.Handle(ctx, event))
		require.NoError(t, h.Handle(ctx, newTestEvent("A")))

		assert.Equal(t, 2, inner.count())
		assert.Equal(t, IdempotencyStats{Processed: 2, Duplicates: 1}, h.Stats())
		assert.Equal(t, []string{"A"}, h.EventTypes())
	})

	t.Run("claims are scoped per handler", func(t *testing.T) {
		store := cache.NewMemoryIdempotencyStore(0)
		defer store.Close()
		first, second := newTestHandler("A"), newTestHandler("A")
		h1 := NewIdempotentHandler("first", first, store, nil)
		h2 := NewIdempotentHandler("second", second, store, nil)

		event := newTestEvent("A")
		require.NoError(t, h1.Handle(ctx, event))
		require.NoError(t, h2.Handle(ctx, event))
		assert.Equal(t, 1, first.count())
		assert.Equal(t, 1, second.count())
	})

	t.Run("failure releases the claim", func(t *testing.T) {
		store := cache.NewMemoryIdempotencyStore(0)
		defer store.Close()
		inner := newTestHandler("A")
		inner.setErr(errors.New("temporary"))
		h := NewIdempotentHandler("flaky", inner, store, zap.NewNop())

		event := newTestEvent("A")
		assert.Error(t, h.Handle(ctx, event))

		inner.setErr(nil)
		require.NoError(t, h.Handle(ctx, event))
		assert.Equal(t, 2, inner.count())
		assert.Equal(t, int64(1), h.Stats().Failed)
	})

	t.Run("store failure still handles", func(t *testing.T) {
		inner := newTestHandler("A")
		h := NewIdempotentHandler("x", inner, failingStore{}, zap.NewNop())
		require.NoError(t, h.Handle(ctx, newTestEvent("A")))
		assert.Equal(t, 1, inner.count())
	})

	t.Run("disabled passes through", func(t *testing.T) {
		inner := newTestHandler("A")
		h := NewIdempotentHandler("x", inner, failingStore{}, zap.NewNop(),
			WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))
		event := newTestEvent("A")
		require.NoError(t, h.Handle(ctx, event))
		require.NoError(t, h.Handle(ctx, event))
		assert.Equal(t, 2, inner.count())
	})
}
