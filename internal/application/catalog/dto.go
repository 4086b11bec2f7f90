package catalog

import (
	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/catalog"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductInput is a product pushed by the catalog collaborator.
// CurrentStock is owned by the ledger and cannot be set here.
type ProductInput struct {
	ID       uuid.UUID
	Name     string
	Type     catalog.ProductType
	BaseUnit string
	UnitCost decimal.Decimal
	MinStock decimal.Decimal
}

// ProductResult is the outcome of SaveProduct
type ProductResult struct {
	Product *catalog.Product
	Created bool
	// Recipes whose cost was recomputed because the unit cost changed
	Recipes  []*catalog.Recipe
	Warnings []shared.Warning
}

// RecipeInput defines a recipe. ID is empty for new recipes.
type RecipeInput struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	Name        string
	YieldOut    decimal.Decimal
	YieldUnit   string
	Ingredients []catalog.RecipeIngredient
}

// RecipeResult is a recipe with its computed cost
type RecipeResult struct {
	Recipe   *catalog.Recipe
	Created  bool
	Cost     catalog.CostResult
	Warnings []shared.Warning
}

// WarehouseInput defines a warehouse; ID is optional
type WarehouseInput struct {
	ID   uuid.UUID
	Code string
	Name string
	Type catalog.WarehouseType
}
