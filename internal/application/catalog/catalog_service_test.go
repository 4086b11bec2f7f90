package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/audit"
	"github.com/kitchenledger/backend/internal/domain/catalog"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/kitchenledger/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
)

type mockAuditRecorder struct {
	mock.Mock
}

func (m *mockAuditRecorder) Append(ctx context.Context, action audit.Action, user string, details map[string]any) error {
	args := m.Called(ctx, action, user, details)
	return args.Error(0)
}

type catalogFixture struct {
	svc      *CatalogService
	recipes  *persistence.GormRecipeRepository
	products *persistence.GormProductRepository
	audit    *mockAuditRecorder
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	database, err := persistence.Open(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate())

	f := &catalogFixture{
		recipes:  persistence.NewGormRecipeRepository(database.DB),
		products: persistence.NewGormProductRepository(database.DB),
		audit:    new(mockAuditRecorder),
	}
	f.audit.On("Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.svc = NewCatalogService(f.products, f.recipes, persistence.NewGormWarehouseRepository(database.DB), nil, zap.NewNop())
	f.svc.SetAuditRecorder(f.audit)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *catalogFixture) ingredient(t *testing.T, name, cost string) *catalog.Product {
	t.Helper()
	res, err := f.svc.SaveProduct(context.Background(), ProductInput{
		ID:       uuid.New(),
		Name:     name,
		Type:     catalog.ProductTypeIngredient,
		BaseUnit: "kg",
		UnitCost: dec(cost),
	}, "chef")
	require.NoError(t, err)
	require.True(t, res.Created)
	return res.Product
}

func (f *catalogFixture) dish(t *testing.T, name string) *catalog.Product {
	t.Helper()
	res, err := f.svc.SaveProduct(context.Background(), ProductInput{
		Name:     name,
		Type:     catalog.ProductTypeDish,
		BaseUnit: "pcs",
	}, "chef")
	require.NoError(t, err)
	return res.Product
}

func TestCatalogService_SaveRecipeComputesCost(t *testing.T) {
	f := newCatalogFixture(t)
	a := f.ingredient(t, "Salmon", "10")
	b := f.ingredient(t, "Rice", "20")
	dish := f.dish(t, "Bowl")

	res, err := f.svc.SaveRecipe(context.Background(), RecipeInput{
		ProductID: dish.ID,
		Name:      "Bowl",
		YieldOut:  dec("1"),
		YieldUnit: "pcs",
		Ingredients: []catalog.RecipeIngredient{
			{ProductID: a.ID, Quantity: dec("100"), Unit: "g", LossCoefficientPercent: dec("5")},
			{ProductID: b.ID, Quantity: dec("50"), Unit: "g"},
		},
	}, "chef")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "2.05", res.Recipe.CostPrice.StringFixed(2))
	require.Len(t, res.Cost.Ingredients, 2)

	stored, err := f.recipes.FindByProductID(context.Background(), dish.ID)
	require.NoError(t, err)
	assert.True(t, dec("2.05").Equal(stored.CostPrice), stored.CostPrice.String())

	f.audit.AssertCalled(t, "Append", mock.Anything, audit.ActionRecipeCreated, "chef", mock.Anything)
}

func TestCatalogService_ProductCostChangeRecomputesRecipes(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	a := f.ingredient(t, "Salmon", "10")
	b := f.ingredient(t, "Rice", "20")
	dish := f.dish(t, "Bowl")

	_, err := f.svc.SaveRecipe(ctx, RecipeInput{
		ProductID: dish.ID,
		Name:      "Bowl",
		YieldOut:  dec("1"),
		YieldUnit: "pcs",
		Ingredients: []catalog.RecipeIngredient{
			{ProductID: a.ID, Quantity: dec("100"), Unit: "g", LossCoefficientPercent: dec("5")},
			{ProductID: b.ID, Quantity: dec("50"), Unit: "g"},
		},
	}, "chef")
	require.NoError(t, err)

	res, err := f.svc.SaveProduct(ctx, ProductInput{
		ID:       a.ID,
		Name:     "Salmon",
		Type:     catalog.ProductTypeIngredient,
		BaseUnit: "kg",
		UnitCost: dec("20"),
	}, "chef")
	require.NoError(t, err)
	assert.False(t, res.Created)
	require.Len(t, res.Recipes, 1)
	assert.Equal(t, "3.10", res.Recipes[0].CostPrice.StringFixed(2))

	stored, err := f.recipes.FindByProductID(ctx, dish.ID)
	require.NoError(t, err)
	assert.True(t, dec("3.1").Equal(stored.CostPrice), stored.CostPrice.String())
	f.audit.AssertCalled(t, "Append", mock.Anything, audit.ActionProductUpdated, "chef", mock.Anything)

	// unchanged cost leaves recipes alone
	res, err = f.svc.SaveProduct(ctx, ProductInput{
		ID:       a.ID,
		Name:     "Atlantic salmon",
		Type:     catalog.ProductTypeIngredient,
		BaseUnit: "kg",
		UnitCost: dec("20"),
	}, "chef")
	require.NoError(t, err)
	assert.Empty(t, res.Recipes)
}

func TestCatalogService_SaveProductKeepsStockCache(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	a := f.ingredient(t, "Salmon", "10")
	require.NoError(t, f.products.UpdateCurrentStock(ctx, a.ID, dec("7.5")))

	_, err := f.svc.SaveProduct(ctx, ProductInput{
		ID:       a.ID,
		Name:     "Salmon",
		Type:     catalog.ProductTypeIngredient,
		BaseUnit: "kg",
		UnitCost: dec("12"),
		MinStock: dec("2"),
	}, "chef")
	require.NoError(t, err)

	p, err := f.svc.GetProduct(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, dec("7.5").Equal(p.CurrentStock))
	assert.True(t, dec("2").Equal(p.MinStock))
}

func TestCatalogService_RecipeWithMissingProduct(t *testing.T) {
	f := newCatalogFixture(t)
	a := f.ingredient(t, "Salmon", "10")
	dish := f.dish(t, "Bowl")

	res, err := f.svc.SaveRecipe(context.Background(), RecipeInput{
		ProductID: dish.ID,
		Name:      "Bowl",
		YieldOut:  dec("1"),
		YieldUnit: "pcs",
		Ingredients: []catalog.RecipeIngredient{
			{ProductID: a.ID, Quantity: dec("0.2"), Unit: "kg"},
			{ProductID: uuid.New(), Quantity: dec("50"), Unit: "g"},
		},
	}, "chef")
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, catalog.WarningProductNotFound, res.Warnings[0].Code)
	assert.Equal(t, "2.00", res.Recipe.CostPrice.StringFixed(2))
}

func TestCatalogService_UpdateRecipe(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	a := f.ingredient(t, "Salmon", "10")
	dish := f.dish(t, "Bowl")
	ingredients := []catalog.RecipeIngredient{{ProductID: a.ID, Quantity: dec("100"), Unit: "g"}}

	created, err := f.svc.SaveRecipe(ctx, RecipeInput{ProductID: dish.ID, Name: "Bowl", YieldOut: dec("1"), YieldUnit: "pcs", Ingredients: ingredients}, "chef")
	require.NoError(t, err)

	ingredients[0].Quantity = dec("300")
	updated, err := f.svc.SaveRecipe(ctx, RecipeInput{ID: created.Recipe.ID, Name: "Big bowl", YieldOut: dec("1"), YieldUnit: "pcs", Ingredients: ingredients}, "chef")
	require.NoError(t, err)
	assert.False(t, updated.Created)
	assert.Equal(t, "3.00", updated.Recipe.CostPrice.StringFixed(2))
	f.audit.AssertCalled(t, "Append", mock.Anything, audit.ActionRecipeUpdated, "chef", mock.Anything)

	_, err = f.svc.SaveRecipe(ctx, RecipeInput{ID: created.Recipe.ID, ProductID: uuid.New(), Name: "x", YieldOut: dec("1"), YieldUnit: "pcs", Ingredients: ingredients}, "chef")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = f.svc.SaveRecipe(ctx, RecipeInput{ID: uuid.New(), Name: "x", YieldOut: dec("1"), YieldUnit: "pcs", Ingredients: ingredients}, "chef")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	cost, err := f.svc.RecipeCost(ctx, created.Recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "3.00", cost.Cost.Cost.StringFixed(2))
}

func TestCatalogService_Warehouses(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	_, err := f.svc.SaveWarehouse(ctx, WarehouseInput{Code: "kitchen", Name: "Kitchen", Type: catalog.WarehouseTypeKitchen})
	require.NoError(t, err)
	main, err := f.svc.SaveWarehouse(ctx, WarehouseInput{ID: uuid.New(), Code: "main", Name: "Main store", Type: catalog.WarehouseTypeMain})
	require.NoError(t, err)
	assert.Equal(t, "MAIN", main.Code)

	_, err = f.svc.SaveWarehouse(ctx, WarehouseInput{Code: "x", Type: "garage"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	all, err := f.svc.ListWarehouses(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "KITCHEN", all[0].Code)
	assert.Equal(t, "MAIN", all[1].Code)
}

type fixedStock struct {
	sum decimal.Decimal
}

func (s fixedStock) SumByProduct(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	return s.sum, nil
}

func TestCatalogService_BaseUnitChangeRejectedWithStock(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	a := f.ingredient(t, "Salmon", "10")
	require.NoError(t, f.products.UpdateCurrentStock(ctx, a.ID, dec("2")))

	_, err := f.svc.SaveProduct(ctx, ProductInput{
		ID:       a.ID,
		Name:     "Salmon",
		Type:     catalog.ProductTypeIngredient,
		BaseUnit: "g",
		UnitCost: dec("0.01"),
	}, "chef")
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	p, err := f.svc.GetProduct(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "kg", p.BaseUnit)
}

func TestCatalogService_BaseUnitChangeRejectedWithStoredBatches(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	a := f.ingredient(t, "Salmon", "10")
	// stock cache is zero but batches remain
	f.svc.SetStockSummer(fixedStock{sum: dec("0.5")})

	_, err := f.svc.SaveProduct(ctx, ProductInput{
		ID:       a.ID,
		Name:     "Salmon",
		Type:     catalog.ProductTypeIngredient,
		BaseUnit: "g",
		UnitCost: dec("0.01"),
	}, "chef")
	assert.ErrorIs(t, err, catalog.ErrBaseUnitInUse)

	f.svc.SetStockSummer(fixedStock{sum: decimal.Zero})
	res, err := f.svc.SaveProduct(ctx, ProductInput{
		ID:       a.ID,
		Name:     "Salmon",
		Type:     catalog.ProductTypeIngredient,
		BaseUnit: "g",
		UnitCost: dec("0.01"),
	}, "chef")
	require.NoError(t, err)
	assert.Equal(t, "g", res.Product.BaseUnit)
}

func TestCatalogService_BaseUnitChangeRecomputesRecipes(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	a := f.ingredient(t, "Salmon", "10")
	b := f.ingredient(t, "Rice", "20")
	dish := f.dish(t, "Bowl")

	_, err := f.svc.SaveRecipe(ctx, RecipeInput{
		ProductID: dish.ID,
		Name:      "Bowl",
		YieldOut:  dec("1"),
		YieldUnit: "pcs",
		Ingredients: []catalog.RecipeIngredient{
			{ProductID: a.ID, Quantity: dec("100"), Unit: "g", LossCoefficientPercent: dec("5")},
			{ProductID: b.ID, Quantity: dec("50"), Unit: "g"},
		},
	}, "chef")
	require.NoError(t, err)

	// same unit cost, now per gram
	res, err := f.svc.SaveProduct(ctx, ProductInput{
		ID:       b.ID,
		Name:     "Rice",
		Type:     catalog.ProductTypeIngredient,
		BaseUnit: "g",
		UnitCost: dec("20"),
	}, "chef")
	require.NoError(t, err)
	require.Len(t, res.Recipes, 1)
	assert.Equal(t, "1001.05", res.Recipes[0].CostPrice.StringFixed(2))

	stored, err := f.recipes.FindByProductID(ctx, dish.ID)
	require.NoError(t, err)
	assert.True(t, dec("1001.05").Equal(stored.CostPrice), stored.CostPrice.String())
}
