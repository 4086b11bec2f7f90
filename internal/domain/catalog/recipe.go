package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/kitchenledger/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RecipeIngredient is one line of a bill of materials
type RecipeIngredient struct {
	ProductID              uuid.UUID
	Quantity               decimal.Decimal // per one unit of recipe output, in Unit
	Unit                   string
	LossCoefficientPercent decimal.Decimal
}

// EffectiveQuantity is the quantity including processing loss
func (i RecipeIngredient) EffectiveQuantity() decimal.Decimal {
	return i.Quantity.Mul(decimal.NewFromInt(1).Add(i.LossCoefficientPercent.Div(hundred)))
}

func (i RecipeIngredient) validate(pos int) error {
	if i.ProductID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("ingredient %d: product id is required", pos+1))
	}
	if !i.Quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, fmt.Sprintf("ingredient %d: quantity must be positive", pos+1))
	}
	if i.LossCoefficientPercent.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("ingredient %d: loss coefficient cannot be negative", pos+1))
	}
	if valueobject.NormalizeUnit(i.Unit) == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("ingredient %d: unit is required", pos+1))
	}
	return nil
}

// Recipe is the bill of materials producing a dish or semi-product.
// CostPrice is derived and refreshed by the costing engine.
type Recipe struct {
	shared.BaseEntity
	ProductID   uuid.UUID
	Name        string
	YieldOut    decimal.Decimal
	YieldUnit   string
	Ingredients []RecipeIngredient
	CostPrice   decimal.Decimal
}

// NewRecipe creates a recipe for the given product
func NewRecipe(productID uuid.UUID, name string, yieldOut decimal.Decimal, yieldUnit string, ingredients []RecipeIngredient) (*Recipe, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "recipe product id is required")
	}
	r := &Recipe{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  productID,
		CostPrice:  decimal.Zero,
	}
	if err := r.Update(name, yieldOut, yieldUnit, ingredients); err != nil {
		return nil, err
	}
	return r, nil
}

// Update replaces the recipe definition
func (r *Recipe) Update(name string, yieldOut decimal.Decimal, yieldUnit string, ingredients []RecipeIngredient) error {
	if yieldOut.IsZero() {
		yieldOut = decimal.NewFromInt(1)
	}
	if yieldOut.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "recipe yield must be positive")
	}
	if len(ingredients) == 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "recipe must have at least one ingredient")
	}
	for i, ing := range ingredients {
		if err := ing.validate(i); err != nil {
			return err
		}
	}

	lines := make([]RecipeIngredient, len(ingredients))
	for i, ing := range ingredients {
		ing.Unit = valueobject.NormalizeUnit(ing.Unit)
		lines[i] = ing
	}

	r.Name = strings.TrimSpace(name)
	r.YieldOut = yieldOut
	r.YieldUnit = valueobject.NormalizeUnit(yieldUnit)
	r.Ingredients = lines
	r.Touch()
	return nil
}

// IngredientProductIDs returns the distinct products referenced by the recipe
func (r *Recipe) IngredientProductIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(r.Ingredients))
	ids := make([]uuid.UUID, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		if _, ok := seen[ing.ProductID]; ok {
			continue
		}
		seen[ing.ProductID] = struct{}{}
		ids = append(ids, ing.ProductID)
	}
	return ids
}

// References reports whether the recipe uses the product as an ingredient
func (r *Recipe) References(productID uuid.UUID) bool {
	for _, ing := range r.Ingredients {
		if ing.ProductID == productID {
			return true
		}
	}
	return false
}

// SetCostPrice stores the computed cost
func (r *Recipe) SetCostPrice(cost decimal.Decimal) {
	r.CostPrice = cost
	r.Touch()
}
