package catalog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/kitchenledger/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Warning codes produced while resolving catalog references
const (
	WarningProductNotFound = "PRODUCT_NOT_FOUND"
	WarningRecipeNotFound  = "RECIPE_NOT_FOUND"
	WarningUnitConversion  = shared.CodeUnitConversionUnknown
)

// ProductLookup resolves products from a catalog snapshot
type ProductLookup interface {
	FindProduct(id uuid.UUID) (*Product, bool)
}

// ProductSet is an in-memory ProductLookup
type ProductSet map[uuid.UUID]*Product

// NewProductSet indexes products by id
func NewProductSet(products ...*Product) ProductSet {
	set := make(ProductSet, len(products))
	for _, p := range products {
		set[p.ID] = p
	}
	return set
}

// FindProduct implements ProductLookup
func (s ProductSet) FindProduct(id uuid.UUID) (*Product, bool) {
	p, ok := s[id]
	return p, ok
}

// IngredientCost is the costed contribution of one recipe line
type IngredientCost struct {
	ProductID    uuid.UUID       `json:"product_id"`
	BaseQuantity decimal.Decimal `json:"base_quantity"`
	BaseUnit     string          `json:"base_unit"`
	Cost         decimal.Decimal `json:"cost"`
}

// CostResult is the outcome of costing a recipe
type CostResult struct {
	Cost        decimal.Decimal
	Ingredients []IngredientCost
	Warnings    []shared.Warning
}

// RecipeCostCalculator computes the cost of one recipe output unit
type RecipeCostCalculator struct {
	units *valueobject.UnitRegistry
}

// NewRecipeCostCalculator creates a calculator using the given unit registry
func NewRecipeCostCalculator(units *valueobject.UnitRegistry) *RecipeCostCalculator {
	if units == nil {
		units = valueobject.DefaultUnitRegistry()
	}
	return &RecipeCostCalculator{units: units}
}

// Compute sums effective ingredient quantities converted to each product's
// base unit times its unit cost. Unresolvable ingredients are skipped with a
// warning. The total is rounded to 2 decimal places.
func (c *RecipeCostCalculator) Compute(recipe *Recipe, products ProductLookup) CostResult {
	result := CostResult{
		Cost:        decimal.Zero,
		Ingredients: make([]IngredientCost, 0, len(recipe.Ingredients)),
	}

	total := decimal.Zero
	for _, ing := range recipe.Ingredients {
		product, ok := products.FindProduct(ing.ProductID)
		if !ok {
			result.Warnings = append(result.Warnings, shared.NewWarning(
				WarningProductNotFound,
				fmt.Sprintf("ingredient product %s not found, skipped", ing.ProductID),
			))
			continue
		}

		qty, err := c.units.Convert(ing.EffectiveQuantity(), ing.Unit, product.BaseUnit)
		if err != nil {
			code := WarningUnitConversion
			var domainErr *shared.DomainError
			if errors.As(err, &domainErr) {
				code = domainErr.Code
			}
			result.Warnings = append(result.Warnings, shared.NewWarning(
				code,
				fmt.Sprintf("ingredient %s skipped: %s", product.Name, err.Error()),
			))
			continue
		}

		cost := qty.Mul(product.UnitCost)
		total = total.Add(cost)
		result.Ingredients = append(result.Ingredients, IngredientCost{
			ProductID:    product.ID,
			BaseQuantity: qty,
			BaseUnit:     product.BaseUnit,
			Cost:         cost,
		})
	}

	result.Cost = total.Round(2)
	return result
}
