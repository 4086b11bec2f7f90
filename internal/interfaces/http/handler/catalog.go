package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appcatalog "github.com/kitchenledger/backend/internal/application/catalog"
	"github.com/kitchenledger/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CatalogHandler handles products, recipes and warehouses pushed by the
// catalog collaborator
type CatalogHandler struct {
	BaseHandler
	catalog *appcatalog.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService *appcatalog.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalogService}
}

// SaveProductRequest creates or replaces a product. Current stock is owned
// by the ledger and is not accepted here.
// @Description	Request body for saving a product
type SaveProductRequest struct {
	Name     string          `json:"name" binding:"required,min=1,max=200" example:"Tomato"`
	Type     string          `json:"type" binding:"required,oneof=ingredient semi_product dish package alcohol" example:"ingredient"`
	BaseUnit string          `json:"base_unit" binding:"required,max=20" example:"kg"`
	UnitCost decimal.Decimal `json:"unit_cost" binding:"decimal_gte0" example:"2.40"`
	MinStock decimal.Decimal `json:"min_stock" binding:"decimal_gte0" example:"5"`
}

// RecipeIngredientRequest is one recipe line
type RecipeIngredientRequest struct {
	ProductID              string          `json:"product_id" binding:"required,uuid"`
	Quantity               decimal.Decimal `json:"quantity" binding:"decimal_gt0" example:"150"`
	Unit                   string          `json:"unit" binding:"required,max=20" example:"g"`
	LossCoefficientPercent decimal.Decimal `json:"loss_coefficient_percent" binding:"decimal_gte0" example:"10"`
}

// SaveRecipeRequest defines a recipe. ProductID is required on create and
// must match on update.
// @Description	Request body for saving a recipe
type SaveRecipeRequest struct {
	ProductID   string                    `json:"product_id" binding:"omitempty,uuid"`
	Name        string                    `json:"name" binding:"required,min=1,max=200" example:"Tomato soup"`
	YieldOut    decimal.Decimal           `json:"yield_out" binding:"decimal_gt0" example:"1"`
	YieldUnit   string                    `json:"yield_unit" binding:"required,max=20" example:"pcs"`
	Ingredients []RecipeIngredientRequest `json:"ingredients" binding:"required,min=1,dive"`
}

// SaveWarehouseRequest creates or replaces a warehouse
// @Description	Request body for saving a warehouse
type SaveWarehouseRequest struct {
	Code string `json:"code" binding:"required,min=1,max=50" example:"KITCHEN"`
	Name string `json:"name" binding:"required,min=1,max=200" example:"Hot kitchen"`
	Type string `json:"type" binding:"required,oneof=main kitchen bar draft" example:"kitchen"`
}

func (r SaveRecipeRequest) toInput(id uuid.UUID) (appcatalog.RecipeInput, error) {
	productID, err := parseOptionalUUID(r.ProductID)
	if err != nil {
		return appcatalog.RecipeInput{}, err
	}
	ingredients := make([]catalog.RecipeIngredient, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ingredientID, err := uuid.Parse(ing.ProductID)
		if err != nil {
			return appcatalog.RecipeInput{}, err
		}
		ingredients[i] = catalog.RecipeIngredient{
			ProductID:              ingredientID,
			Quantity:               ing.Quantity,
			Unit:                   ing.Unit,
			LossCoefficientPercent: ing.LossCoefficientPercent,
		}
	}
	return appcatalog.RecipeInput{
		ID:          id,
		ProductID:   productID,
		Name:        r.Name,
		YieldOut:    r.YieldOut,
		YieldUnit:   r.YieldUnit,
		Ingredients: ingredients,
	}, nil
}

// GetProduct godoc
// @ID           getProduct
// @Summary      Get a product with its current stock
// @Tags         catalog
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /products/{id} [get]
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toProductResponse(product))
}

// SaveProduct godoc
// @ID           saveProduct
// @Summary      Create or update a product
// @Description  A unit cost change recomputes the cost of every recipe using the product.
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string false "Acting user"
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body SaveProductRequest true "Product"
// @Success      200 {object} APIResponse[SaveProductResponse]
// @Success      201 {object} APIResponse[SaveProductResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /products/{id} [put]
func (h *CatalogHandler) SaveProduct(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	var req SaveProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.catalog.SaveProduct(c.Request.Context(), appcatalog.ProductInput{
		ID:       id,
		Name:     req.Name,
		Type:     catalog.ProductType(req.Type),
		BaseUnit: req.BaseUnit,
		UnitCost: req.UnitCost,
		MinStock: req.MinStock,
	}, h.user(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Created {
		h.Created(c, toSaveProductResponse(result))
		return
	}
	h.Success(c, toSaveProductResponse(result))
}

// CreateRecipe godoc
// @ID           createRecipe
// @Summary      Create a recipe and compute its cost
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string false "Acting user"
// @Param        request body SaveRecipeRequest true "Recipe"
// @Success      201 {object} APIResponse[RecipeCostResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /recipes [post]
func (h *CatalogHandler) CreateRecipe(c *gin.Context) {
	h.saveRecipe(c, uuid.Nil)
}

// UpdateRecipe godoc
// @ID           updateRecipe
// @Summary      Replace a recipe and recompute its cost
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string false "Acting user"
// @Param        id path string true "Recipe ID" format(uuid)
// @Param        request body SaveRecipeRequest true "Recipe"
// @Success      200 {object} APIResponse[RecipeCostResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /recipes/{id} [put]
func (h *CatalogHandler) UpdateRecipe(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}
	h.saveRecipe(c, id)
}

func (h *CatalogHandler) saveRecipe(c *gin.Context, id uuid.UUID) {
	var req SaveRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	if id == uuid.Nil && req.ProductID == "" {
		h.BadRequest(c, "product_id is required")
		return
	}

	input, err := req.toInput(id)
	if err != nil {
		h.BadRequest(c, "Invalid identifier: "+err.Error())
		return
	}

	result, err := h.catalog.SaveRecipe(c.Request.Context(), input, h.user(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Created {
		h.Created(c, toRecipeCostResponse(result))
		return
	}
	h.Success(c, toRecipeCostResponse(result))
}

// RecipeCost godoc
// @ID           getRecipeCost
// @Summary      Compute the current cost of a recipe
// @Description  Uses current product unit costs. Unresolvable ingredients contribute zero and are listed as warnings.
// @Tags         catalog
// @Produce      json
// @Param        id path string true "Recipe ID" format(uuid)
// @Success      200 {object} APIResponse[RecipeCostResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /recipes/{id}/cost [get]
func (h *CatalogHandler) RecipeCost(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	result, err := h.catalog.RecipeCost(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toRecipeCostResponse(result))
}

// ListWarehouses godoc
// @ID           listWarehouses
// @Summary      List warehouses
// @Tags         catalog
// @Produce      json
// @Success      200 {object} APIResponse[[]WarehouseResponse]
// @Router       /warehouses [get]
func (h *CatalogHandler) ListWarehouses(c *gin.Context) {
	warehouses, err := h.catalog.ListWarehouses(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]WarehouseResponse, len(warehouses))
	for i, w := range warehouses {
		out[i] = toWarehouseResponse(w)
	}
	h.SuccessList(c, out, int64(len(out)), 0)
}

// SaveWarehouse godoc
// @ID           saveWarehouse
// @Summary      Create or replace a warehouse
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        id path string true "Warehouse ID" format(uuid)
// @Param        request body SaveWarehouseRequest true "Warehouse"
// @Success      200 {object} APIResponse[WarehouseResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /warehouses/{id} [put]
func (h *CatalogHandler) SaveWarehouse(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	var req SaveWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	warehouse, err := h.catalog.SaveWarehouse(c.Request.Context(), appcatalog.WarehouseInput{
		ID:   id,
		Code: req.Code,
		Name: req.Name,
		Type: catalog.WarehouseType(req.Type),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toWarehouseResponse(warehouse))
}
