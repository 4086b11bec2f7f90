package cache

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/catalog"
	"go.uber.org/zap"
)

// TieredRecipeCache reads through a local cache into redis.
// Evictions clear both tiers and are broadcast so other instances drop
// their local copies.
type TieredRecipeCache struct {
	local       *MemoryRecipeCache
	shared      *RedisRecipeCache
	invalidator *RecipeCacheInvalidator
	logger      *zap.Logger

	localHits    int64
	sharedHits   int64
	sharedMisses int64
}

// NewTieredRecipeCache combines the tiers. invalidator may be nil.
func NewTieredRecipeCache(local *MemoryRecipeCache, shared *RedisRecipeCache, invalidator *RecipeCacheInvalidator, logger *zap.Logger) *TieredRecipeCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredRecipeCache{
		local:       local,
		shared:      shared,
		invalidator: invalidator,
		logger:      logger,
	}
}

// StartInvalidationSubscription listens for evictions from other instances.
// It blocks; run it in a goroutine.
func (c *TieredRecipeCache) StartInvalidationSubscription(ctx context.Context) error {
	if c.invalidator == nil {
		return nil
	}
	return c.invalidator.Subscribe(ctx, c.handleInvalidationMessage)
}

func (c *TieredRecipeCache) handleInvalidationMessage(msg RecipeCacheMessage) {
	if c.invalidator != nil && msg.Source == c.invalidator.Source() {
		return
	}
	ctx := context.Background()

	switch msg.Action {
	case RecipeCacheActionEvicted:
		productID, err := uuid.Parse(msg.ProductID)
		if err != nil {
			c.logger.Error("Invalid product id in recipe cache message",
				zap.String("product_id", msg.ProductID),
				zap.Error(err))
			return
		}
		_ = c.local.Delete(ctx, productID)
		c.logger.Debug("Evicted local recipe", zap.String("product_id", msg.ProductID))

	case RecipeCacheActionInvalidateAll:
		_ = c.local.InvalidateAll(ctx)
	}
}

// Get tries the local tier, then redis, filling the local tier on a hit
func (c *TieredRecipeCache) Get(ctx context.Context, productID uuid.UUID) (*catalog.Recipe, error) {
	recipe, _ := c.local.Get(ctx, productID)
	if recipe != nil {
		atomic.AddInt64(&c.localHits, 1)
		return recipe, nil
	}

	recipe, err := c.shared.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		atomic.AddInt64(&c.sharedMisses, 1)
		return nil, nil
	}
	atomic.AddInt64(&c.sharedHits, 1)
	_ = c.local.Set(ctx, recipe)
	return recipe, nil
}

// Set writes both tiers
func (c *TieredRecipeCache) Set(ctx context.Context, recipe *catalog.Recipe) error {
	_ = c.local.Set(ctx, recipe)
	return c.shared.Set(ctx, recipe)
}

// Delete clears both tiers and tells the other instances
func (c *TieredRecipeCache) Delete(ctx context.Context, productID uuid.UUID) error {
	_ = c.local.Delete(ctx, productID)
	if err := c.shared.Delete(ctx, productID); err != nil {
		return err
	}
	if c.invalidator != nil {
		if err := c.invalidator.PublishEvicted(ctx, productID); err != nil {
			c.logger.Warn("Failed to publish recipe eviction",
				zap.String("product_id", productID.String()),
				zap.Error(err))
		}
	}
	return nil
}

// InvalidateAll clears both tiers everywhere
func (c *TieredRecipeCache) InvalidateAll(ctx context.Context) error {
	if err := c.shared.InvalidateAll(ctx); err != nil {
		return err
	}
	_ = c.local.InvalidateAll(ctx)
	if c.invalidator != nil {
		return c.invalidator.PublishInvalidateAll(ctx)
	}
	return nil
}

// Stats returns local hits, redis hits and final misses
func (c *TieredRecipeCache) Stats() (localHits, sharedHits, misses int64) {
	return atomic.LoadInt64(&c.localHits), atomic.LoadInt64(&c.sharedHits), atomic.LoadInt64(&c.sharedMisses)
}

// Close stops the subscription and the local cleanup loop
func (c *TieredRecipeCache) Close() error {
	var errs []error
	if c.invalidator != nil {
		errs = append(errs, c.invalidator.Close())
	}
	errs = append(errs, c.shared.Close(), c.local.Close())
	return errors.Join(errs...)
}

var _ RecipeCache = (*TieredRecipeCache)(nil)
