package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/catalog"
	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

// cacheEntry wraps a cached value with expiration time
type cacheEntry[T any] struct {
	value     *T
	expiresAt time.Time
}

func (e *cacheEntry[T]) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryRecipeCache is the per-instance recipe cache. On its own it serves
// single-instance deployments; TieredRecipeCache puts it in front of redis.
type MemoryRecipeCache struct {
	recipes sync.Map // productID -> *cacheEntry[catalog.Recipe]
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

// MemoryRecipeCacheOption is a functional option for configuring the cache
type MemoryRecipeCacheOption func(*MemoryRecipeCache)

// WithLocalTTL sets how long entries live
func WithLocalTTL(ttl time.Duration) MemoryRecipeCacheOption {
	return func(c *MemoryRecipeCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMemoryLogger sets the logger for the cache
func WithMemoryLogger(logger *zap.Logger) MemoryRecipeCacheOption {
	return func(c *MemoryRecipeCache) {
		c.logger = logger
	}
}

// NewMemoryRecipeCache creates the cache and starts its cleanup loop
func NewMemoryRecipeCache(opts ...MemoryRecipeCacheOption) *MemoryRecipeCache {
	c := &MemoryRecipeCache{
		ttl:    DefaultRecipeCacheConfig().LocalTTL,
		logger: zap.NewNop(),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupExpired()
	return c
}

// Get returns a copy of the cached recipe
func (c *MemoryRecipeCache) Get(_ context.Context, productID uuid.UUID) (*catalog.Recipe, error) {
	if value, ok := c.recipes.Load(productID); ok {
		entry := value.(*cacheEntry[catalog.Recipe])
		if !entry.isExpired(c.now()) {
			atomic.AddInt64(&c.hits, 1)
			return cloneRecipe(entry.value), nil
		}
		c.recipes.Delete(productID)
	}

	atomic.AddInt64(&c.misses, 1)
	return nil, nil
}

// Set stores a copy of the recipe under its product
func (c *MemoryRecipeCache) Set(_ context.Context, recipe *catalog.Recipe) error {
	if recipe == nil {
		return nil
	}
	c.recipes.Store(recipe.ProductID, &cacheEntry[catalog.Recipe]{
		value:     cloneRecipe(recipe),
		expiresAt: c.now().Add(c.ttl),
	})
	return nil
}

// Delete evicts a product
func (c *MemoryRecipeCache) Delete(_ context.Context, productID uuid.UUID) error {
	c.recipes.Delete(productID)
	return nil
}

// InvalidateAll drops every entry
func (c *MemoryRecipeCache) InvalidateAll(_ context.Context) error {
	c.recipes.Range(func(key, _ any) bool {
		c.recipes.Delete(key)
		return true
	})
	c.logger.Info("recipe cache cleared")
	return nil
}

// Close stops the cleanup loop. Safe to call more than once.
func (c *MemoryRecipeCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// Stats returns hit and miss counters
func (c *MemoryRecipeCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Len returns the number of entries, expired ones included
func (c *MemoryRecipeCache) Len() int {
	n := 0
	c.recipes.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *MemoryRecipeCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error("panic in recipe cache cleanup", zap.Any("panic", r))
					}
				}()
				c.sweep()
			}()
		}
	}
}

// sweep removes expired entries
func (c *MemoryRecipeCache) sweep() {
	now := c.now()
	removed := 0
	c.recipes.Range(func(key, value any) bool {
		if value.(*cacheEntry[catalog.Recipe]).isExpired(now) {
			c.recipes.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debug("expired recipe cache entries removed", zap.Int("removed", removed))
	}
}

var _ RecipeCache = (*MemoryRecipeCache)(nil)
