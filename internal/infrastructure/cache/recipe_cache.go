package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/catalog"
	"go.uber.org/zap"
)

// RecipeCacheConfig configures both tiers of the recipe cache
type RecipeCacheConfig struct {
	LocalTTL  time.Duration
	SharedTTL time.Duration
	KeyPrefix string
	Channel   string
}

// DefaultRecipeCacheConfig returns the default recipe cache configuration
func DefaultRecipeCacheConfig() RecipeCacheConfig {
	return RecipeCacheConfig{
		LocalTTL:  time.Minute,
		SharedTTL: 10 * time.Minute,
		KeyPrefix: "ledger:recipe:",
		Channel:   "ledger:recipe:invalidate",
	}
}

// RecipeCache holds recipes keyed by the product they produce.
// Get returns nil, nil on a miss.
type RecipeCache interface {
	Get(ctx context.Context, productID uuid.UUID) (*catalog.Recipe, error)
	Set(ctx context.Context, recipe *catalog.Recipe) error
	Delete(ctx context.Context, productID uuid.UUID) error
	Close() error
}

// cloneRecipe copies the recipe so cached values never alias caller state
func cloneRecipe(r *catalog.Recipe) *catalog.Recipe {
	if r == nil {
		return nil
	}
	out := *r
	out.Ingredients = append([]catalog.RecipeIngredient(nil), r.Ingredients...)
	return &out
}

// CachedRecipeRepository reads recipes by product through a RecipeCache.
// Writes go to the wrapped repository first and then evict the product.
type CachedRecipeRepository struct {
	catalog.RecipeRepository
	cache  RecipeCache
	logger *zap.Logger
}

// NewCachedRecipeRepository wraps repo with cache
func NewCachedRecipeRepository(repo catalog.RecipeRepository, cache RecipeCache, logger *zap.Logger) *CachedRecipeRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRecipeRepository{
		RecipeRepository: repo,
		cache:            cache,
		logger:           logger.Named("recipe_cache"),
	}
}

// FindByProductID serves the sale write-off path; cache errors fall through
// to the database
func (r *CachedRecipeRepository) FindByProductID(ctx context.Context, productID uuid.UUID) (*catalog.Recipe, error) {
	cached, err := r.cache.Get(ctx, productID)
	if err != nil {
		r.logger.Warn("recipe cache read failed", zap.String("product_id", productID.String()), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	recipe, err := r.RecipeRepository.FindByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, recipe); err != nil {
		r.logger.Warn("recipe cache write failed", zap.String("product_id", productID.String()), zap.Error(err))
	}
	return recipe, nil
}

// Save persists the recipe and evicts its product from the cache
func (r *CachedRecipeRepository) Save(ctx context.Context, recipe *catalog.Recipe) error {
	if err := r.RecipeRepository.Save(ctx, recipe); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, recipe.ProductID); err != nil {
		r.logger.Warn("recipe cache eviction failed", zap.String("product_id", recipe.ProductID.String()), zap.Error(err))
	}
	return nil
}

var _ catalog.RecipeRepository = (*CachedRecipeRepository)(nil)
