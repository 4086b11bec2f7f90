package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/catalog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultScanBatchSize = 100

// RedisRecipeCache shares cached recipes between instances
type RedisRecipeCache struct {
	client redis.UniversalClient
	config RecipeCacheConfig
	logger *zap.Logger
}

// NewRedisRecipeCache creates a cache on an existing client.
// The caller retains ownership of the client.
func NewRedisRecipeCache(client redis.UniversalClient, config RecipeCacheConfig, logger *zap.Logger) *RedisRecipeCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultRecipeCacheConfig().KeyPrefix
	}
	return &RedisRecipeCache{client: client, config: config, logger: logger}
}

func (c *RedisRecipeCache) key(productID uuid.UUID) string {
	return c.config.KeyPrefix + productID.String()
}

// Get retrieves a recipe from redis
func (c *RedisRecipeCache) Get(ctx context.Context, productID uuid.UUID) (*catalog.Recipe, error) {
	data, err := c.client.Get(ctx, c.key(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe from cache: %w", err)
	}

	var recipe catalog.Recipe
	if err := json.Unmarshal(data, &recipe); err != nil {
		// a corrupt entry is dropped and treated as a miss
		c.logger.Warn("Discarding undecodable recipe cache entry",
			zap.String("product_id", productID.String()),
			zap.Error(err))
		_ = c.client.Del(ctx, c.key(productID)).Err()
		return nil, nil
	}
	return &recipe, nil
}

// Set stores a recipe with the shared TTL
func (c *RedisRecipeCache) Set(ctx context.Context, recipe *catalog.Recipe) error {
	if recipe == nil {
		return nil
	}
	data, err := json.Marshal(recipe)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe: %w", err)
	}
	if err := c.client.Set(ctx, c.key(recipe.ProductID), data, c.config.SharedTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache recipe: %w", err)
	}
	return nil
}

// Delete evicts a product
func (c *RedisRecipeCache) Delete(ctx context.Context, productID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(productID)).Err(); err != nil {
		return fmt.Errorf("failed to evict recipe: %w", err)
	}
	return nil
}

// InvalidateAll removes every recipe key under the prefix
func (c *RedisRecipeCache) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.config.KeyPrefix+"*", defaultScanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan recipe keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete recipe keys: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Info("Invalidated shared recipe cache", zap.Int("keys", deleted))
	return nil
}

// Close is a no-op; the shared client is closed by its owner
func (c *RedisRecipeCache) Close() error {
	return nil
}

var _ RecipeCache = (*RedisRecipeCache)(nil)
