package cache

import (
	"context"
	"time"

	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewIdempotencyStore picks the redis store when a client is available and
// falls back to the in-process store otherwise.
func NewIdempotencyStore(client redis.UniversalClient, logger *zap.Logger) shared.IdempotencyStore {
	if client != nil {
		logger.Info("using Redis idempotency store")
		return NewRedisIdempotencyStore(client, "")
	}
	logger.Warn("Redis disabled, using in-memory idempotency store; " +
		"duplicate deliveries are only filtered within this process")
	return NewMemoryIdempotencyStore(5 * time.Minute)
}

// NewRecipeCache returns the tiered cache when a client is available and the
// in-process cache otherwise. The tiered cache starts listening for
// evictions from other instances until ctx is cancelled.
func NewRecipeCache(ctx context.Context, client redis.UniversalClient, config RecipeCacheConfig, logger *zap.Logger) RecipeCache {
	local := NewMemoryRecipeCache(WithLocalTTL(config.LocalTTL), WithMemoryLogger(logger.Named("recipe_cache")))
	if client == nil {
		logger.Info("using in-memory recipe cache", zap.Duration("ttl", config.LocalTTL))
		return local
	}

	tiered := NewTieredRecipeCache(
		local,
		NewRedisRecipeCache(client, config, logger),
		NewRecipeCacheInvalidator(client, config.Channel, logger),
		logger,
	)
	go func() {
		if err := tiered.StartInvalidationSubscription(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("recipe cache invalidation subscription ended", zap.Error(err))
		}
	}()
	logger.Info("using Redis recipe cache",
		zap.Duration("local_ttl", config.LocalTTL),
		zap.Duration("shared_ttl", config.SharedTTL),
	)
	return tiered
}
