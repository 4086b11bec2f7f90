package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductRepository defines persistence for catalog products
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// FindByIDs returns the products that exist; missing ids are ignored
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Product, error)
	Save(ctx context.Context, product *Product) error
	// UpdateCurrentStock writes only the stock cache column
	UpdateCurrentStock(ctx context.Context, id uuid.UUID, stock decimal.Decimal) error
}

// RecipeRepository defines persistence for recipes
type RecipeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Recipe, error)
	// FindByProductID returns the recipe producing the product
	FindByProductID(ctx context.Context, productID uuid.UUID) (*Recipe, error)
	// FindByIngredient returns every recipe using the product as an ingredient
	FindByIngredient(ctx context.Context, productID uuid.UUID) ([]*Recipe, error)
	Save(ctx context.Context, recipe *Recipe) error
}

// WarehouseRepository defines persistence for warehouses
type WarehouseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Warehouse, error)
	FindAll(ctx context.Context) ([]*Warehouse, error)
	Save(ctx context.Context, warehouse *Warehouse) error
}
