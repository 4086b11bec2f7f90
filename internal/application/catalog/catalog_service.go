package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/audit"
	"github.com/kitchenledger/backend/internal/domain/catalog"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/kitchenledger/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AuditRecorder appends entries to the audit log
type AuditRecorder interface {
	Append(ctx context.Context, action audit.Action, user string, details map[string]any) error
}

// StockSummer totals the batch balances of a product across warehouses
type StockSummer interface {
	SumByProduct(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)
}

// CatalogService keeps the ledger's catalog snapshot in step with the
// catalog collaborator. Recipe costs are recomputed eagerly: on every recipe
// save and for every recipe using a product whose unit cost changed.
type CatalogService struct {
	products   catalog.ProductRepository
	recipes    catalog.RecipeRepository
	warehouses catalog.WarehouseRepository
	calculator *catalog.RecipeCostCalculator
	audit      AuditRecorder
	stock      StockSummer
	logger     *zap.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(
	products catalog.ProductRepository,
	recipes catalog.RecipeRepository,
	warehouses catalog.WarehouseRepository,
	calculator *catalog.RecipeCostCalculator,
	logger *zap.Logger,
) *CatalogService {
	if calculator == nil {
		calculator = catalog.NewRecipeCostCalculator(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		products:   products,
		recipes:    recipes,
		warehouses: warehouses,
		calculator: calculator,
		logger:     logger.Named("catalog"),
	}
}

// SetAuditRecorder sets the audit log
func (s *CatalogService) SetAuditRecorder(recorder AuditRecorder) {
	s.audit = recorder
}

// SetStockSummer lets SaveProduct check stored batches, not only the
// product's stock cache, before a base unit change
func (s *CatalogService) SetStockSummer(stock StockSummer) {
	s.stock = stock
}

// GetProduct returns a product by id
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return s.products.FindByID(ctx, id)
}

// SaveProduct creates or updates a product. The stock cache is left alone.
func (s *CatalogService) SaveProduct(ctx context.Context, in ProductInput, user string) (*ProductResult, error) {
	result := &ProductResult{}
	unitChanged := false

	product, err := s.products.FindByID(ctx, in.ID)
	switch {
	case errors.Is(err, shared.ErrNotFound) || in.ID == uuid.Nil:
		product, err = catalog.ProductWithID(in.ID, in.Name, in.Type, in.BaseUnit)
		if err != nil {
			return nil, err
		}
		result.Created = true
	case err != nil:
		return nil, err
	default:
		unitChanged = valueobject.NormalizeUnit(in.BaseUnit) != product.BaseUnit
		if unitChanged {
			if err := s.ensureNoStock(ctx, product); err != nil {
				return nil, err
			}
		}
		if err := product.Update(in.Name, in.Type, in.BaseUnit); err != nil {
			return nil, err
		}
	}

	costChanged, err := product.SetUnitCost(in.UnitCost)
	if err != nil {
		return nil, err
	}
	if err := product.SetMinStock(in.MinStock); err != nil {
		return nil, err
	}
	if err := s.products.Save(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to save product: %w", err)
	}
	result.Product = product

	if (costChanged || unitChanged) && !result.Created {
		recipes, warnings, err := s.recomputeDependents(ctx, product.ID)
		if err != nil {
			return nil, err
		}
		result.Recipes = recipes
		result.Warnings = warnings
	}

	action := audit.ActionProductUpdated
	if result.Created {
		action = audit.ActionProductCreated
	}
	s.record(ctx, action, user, map[string]any{
		"productId": product.ID.String(),
		"name":      product.Name,
		"unitCost":  product.UnitCost.String(),
	})
	return result, nil
}

func (s *CatalogService) ensureNoStock(ctx context.Context, product *catalog.Product) error {
	if s.stock == nil {
		return nil
	}
	sum, err := s.stock.SumByProduct(ctx, product.ID)
	if err != nil {
		return fmt.Errorf("failed to sum stock: %w", err)
	}
	if !sum.IsZero() {
		return catalog.ErrBaseUnitInUse
	}
	return nil
}

// recomputeDependents refreshes the cost of every recipe using the product
func (s *CatalogService) recomputeDependents(ctx context.Context, productID uuid.UUID) ([]*catalog.Recipe, []shared.Warning, error) {
	recipes, err := s.recipes.FindByIngredient(ctx, productID)
	if err != nil {
		return nil, nil, err
	}

	var warnings []shared.Warning
	for _, recipe := range recipes {
		cost, err := s.cost(ctx, recipe)
		if err != nil {
			return nil, nil, err
		}
		recipe.SetCostPrice(cost.Cost)
		if err := s.recipes.Save(ctx, recipe); err != nil {
			return nil, nil, fmt.Errorf("failed to save recipe %s: %w", recipe.ID, err)
		}
		warnings = append(warnings, cost.Warnings...)
	}

	if len(recipes) > 0 {
		s.logger.Info("recipe costs recomputed",
			zap.String("product_id", productID.String()),
			zap.Int("recipes", len(recipes)),
		)
	}
	return recipes, warnings, nil
}

// SaveRecipe creates or updates a recipe and recomputes its cost.
// Updating an unknown id is ErrNotFound.
func (s *CatalogService) SaveRecipe(ctx context.Context, in RecipeInput, user string) (*RecipeResult, error) {
	var (
		recipe  *catalog.Recipe
		created bool
	)
	if in.ID == uuid.Nil {
		r, err := catalog.NewRecipe(in.ProductID, in.Name, in.YieldOut, in.YieldUnit, in.Ingredients)
		if err != nil {
			return nil, err
		}
		recipe, created = r, true
	} else {
		r, err := s.recipes.FindByID(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		if in.ProductID != uuid.Nil && in.ProductID != r.ProductID {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "recipe product cannot be changed")
		}
		if err := r.Update(in.Name, in.YieldOut, in.YieldUnit, in.Ingredients); err != nil {
			return nil, err
		}
		recipe = r
	}

	cost, err := s.cost(ctx, recipe)
	if err != nil {
		return nil, err
	}
	recipe.SetCostPrice(cost.Cost)
	if err := s.recipes.Save(ctx, recipe); err != nil {
		return nil, fmt.Errorf("failed to save recipe: %w", err)
	}

	action := audit.ActionRecipeUpdated
	if created {
		action = audit.ActionRecipeCreated
	}
	s.record(ctx, action, user, map[string]any{
		"recipeId":  recipe.ID.String(),
		"productId": recipe.ProductID.String(),
		"name":      recipe.Name,
		"costPrice": recipe.CostPrice.StringFixed(2),
		"warnings":  len(cost.Warnings),
	})

	return &RecipeResult{Recipe: recipe, Created: created, Cost: cost, Warnings: cost.Warnings}, nil
}

// RecipeCost computes the current cost of a recipe without storing it
func (s *CatalogService) RecipeCost(ctx context.Context, id uuid.UUID) (*RecipeResult, error) {
	recipe, err := s.recipes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cost, err := s.cost(ctx, recipe)
	if err != nil {
		return nil, err
	}
	return &RecipeResult{Recipe: recipe, Cost: cost, Warnings: cost.Warnings}, nil
}

func (s *CatalogService) cost(ctx context.Context, recipe *catalog.Recipe) (catalog.CostResult, error) {
	products, err := s.products.FindByIDs(ctx, recipe.IngredientProductIDs())
	if err != nil {
		return catalog.CostResult{}, err
	}
	return s.calculator.Compute(recipe, catalog.NewProductSet(products...)), nil
}

// SaveWarehouse creates or replaces a warehouse
func (s *CatalogService) SaveWarehouse(ctx context.Context, in WarehouseInput) (*catalog.Warehouse, error) {
	warehouse, err := catalog.NewWarehouse(in.Code, in.Name, in.Type)
	if err != nil {
		return nil, err
	}
	if in.ID != uuid.Nil {
		warehouse.ID = in.ID
	}
	if err := s.warehouses.Save(ctx, warehouse); err != nil {
		return nil, fmt.Errorf("failed to save warehouse: %w", err)
	}
	return warehouse, nil
}

// ListWarehouses returns every warehouse ordered by code
func (s *CatalogService) ListWarehouses(ctx context.Context) ([]*catalog.Warehouse, error) {
	return s.warehouses.FindAll(ctx)
}

func (s *CatalogService) record(ctx context.Context, action audit.Action, user string, details map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, action, user, details); err != nil {
		s.logger.Warn("failed to append audit entry", zap.String("action", string(action)), zap.Error(err))
	}
}
