package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/catalog"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/kitchenledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRecipeRepository implements catalog.RecipeRepository using GORM
type GormRecipeRepository struct {
	db *gorm.DB
}

// NewGormRecipeRepository creates a new GormRecipeRepository
func NewGormRecipeRepository(db *gorm.DB) *GormRecipeRepository {
	return &GormRecipeRepository{db: db}
}

func (r *GormRecipeRepository) withIngredients(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// FindByID finds a recipe by its ID
func (r *GormRecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Recipe, error) {
	var m models.RecipeModel
	if err := r.withIngredients(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByProductID finds the recipe producing the product
func (r *GormRecipeRepository) FindByProductID(ctx context.Context, productID uuid.UUID) (*catalog.Recipe, error) {
	var m models.RecipeModel
	if err := r.withIngredients(ctx).Where("product_id = ?", productID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByIngredient returns every recipe using the product as an ingredient
func (r *GormRecipeRepository) FindByIngredient(ctx context.Context, productID uuid.UUID) ([]*catalog.Recipe, error) {
	sub := r.db.WithContext(ctx).
		Model(&models.RecipeIngredientModel{}).
		Select("recipe_id").
		Where("product_id = ?", productID)

	var rows []models.RecipeModel
	if err := r.withIngredients(ctx).
		Where("id IN (?)", sub).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*catalog.Recipe, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a recipe, replacing its ingredient lines
func (r *GormRecipeRepository) Save(ctx context.Context, recipe *catalog.Recipe) error {
	m := models.RecipeModelFromDomain(recipe)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(m).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", m.ID).Delete(&models.RecipeIngredientModel{}).Error; err != nil {
			return err
		}
		if len(m.Ingredients) == 0 {
			return nil
		}
		return tx.Create(&m.Ingredients).Error
	})
}

// Ensure GormRecipeRepository implements RecipeRepository
var _ catalog.RecipeRepository = (*GormRecipeRepository)(nil)
