package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appinv "github.com/kitchenledger/backend/internal/application/inventory"
)

// StockHandler exposes batch balances
type StockHandler struct {
	BaseHandler
	queries *appinv.StockQueryService
	posting *appinv.PostingService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(queries *appinv.StockQueryService, posting *appinv.PostingService) *StockHandler {
	return &StockHandler{
		queries: queries,
		posting: posting,
	}
}

// BalanceQueryRequest selects batch balances
type BalanceQueryRequest struct {
	WarehouseID string `form:"warehouse_id" binding:"required,uuid"`
	ProductID   string `form:"product_id" binding:"omitempty,uuid"`
}

// FEFOQueryRequest selects the product whose consumption order is wanted
type FEFOQueryRequest struct {
	WarehouseID string `form:"warehouse_id" binding:"required,uuid"`
	ProductID   string `form:"product_id" binding:"required,uuid"`
}

// Balances godoc
// @ID           getStockBalances
// @Summary      List batch balances of a warehouse
// @Tags         stock
// @Produce      json
// @Param        warehouse_id query string true "Warehouse ID" format(uuid)
// @Param        product_id query string false "Product ID" format(uuid)
// @Success      200 {object} APIResponse[BalancesResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /stock/balances [get]
func (h *StockHandler) Balances(c *gin.Context) {
	var req BalanceQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	query := appinv.BalanceQuery{WarehouseID: uuid.MustParse(req.WarehouseID)}
	if req.ProductID != "" {
		productID := uuid.MustParse(req.ProductID)
		query.ProductID = &productID
	}

	result, err := h.queries.Balances(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toBalancesResponse(result))
}

// FEFO godoc
// @ID           getStockFEFOOrder
// @Summary      Batches of a product in write-off order
// @Description  Earliest expiry first, undated batches last. Next is the batch the next write-off draws from.
// @Tags         stock
// @Produce      json
// @Param        warehouse_id query string true "Warehouse ID" format(uuid)
// @Param        product_id query string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[FEFOOrderResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /stock/fefo [get]
func (h *StockHandler) FEFO(c *gin.Context) {
	var req FEFOQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.queries.FEFOOrder(c.Request.Context(), uuid.MustParse(req.WarehouseID), uuid.MustParse(req.ProductID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toFEFOOrderResponse(result))
}

// Reconcile godoc
// @ID           reconcileProductStock
// @Summary      Recompute a product's stock from its batches
// @Tags         stock
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[ReconcileResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /stock/products/{id}/reconcile [post]
func (h *StockHandler) Reconcile(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	stock, err := h.posting.ReconcileProductStock(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ReconcileResponse{ProductID: id, CurrentStock: stock})
}
