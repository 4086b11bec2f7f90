package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appinv "github.com/kitchenledger/backend/internal/application/inventory"
	"github.com/shopspring/decimal"
)

// SaleHandler turns closed receipts into stock write-offs
type SaleHandler struct {
	BaseHandler
	sales *appinv.SaleWriteoffService
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(sales *appinv.SaleWriteoffService) *SaleHandler {
	return &SaleHandler{sales: sales}
}

// SaleItemRequest is one sold dish
type SaleItemRequest struct {
	DishID   string          `json:"dish_id" binding:"required,uuid"`
	Quantity decimal.Decimal `json:"quantity" binding:"decimal_gt0" example:"2"`
}

// SaleWriteoffRequest is a closed POS receipt
// @Description	Request body for writing off stock consumed by a sale
type SaleWriteoffRequest struct {
	ReceiptID   string            `json:"receipt_id" binding:"required,max=100" example:"R-000183"`
	WarehouseID string            `json:"warehouse_id" binding:"required,uuid"`
	SoldAt      *time.Time        `json:"sold_at"`
	Items       []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
}

// Writeoff godoc
// @ID           writeoffSale
// @Summary      Write off ingredients consumed by a sale
// @Description  Explodes each dish through its recipe and allocates FEFO batches. Dishes that cannot be resolved are reported as warnings.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string false "Acting user"
// @Param        request body SaleWriteoffRequest true "Sale"
// @Success      200 {object} APIResponse[SaleWriteoffResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /sales/writeoff [post]
func (h *SaleHandler) Writeoff(c *gin.Context) {
	var req SaleWriteoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	sale := appinv.Sale{
		ReceiptID:   req.ReceiptID,
		WarehouseID: uuid.MustParse(req.WarehouseID),
		Items:       make([]appinv.SaleItem, len(req.Items)),
		User:        h.user(c),
		SoldAt:      time.Now(),
	}
	if req.SoldAt != nil {
		sale.SoldAt = *req.SoldAt
	}
	for i, item := range req.Items {
		sale.Items[i] = appinv.SaleItem{
			DishID:   uuid.MustParse(item.DishID),
			Quantity: item.Quantity,
		}
	}

	result, err := h.sales.WriteoffBySale(c.Request.Context(), sale)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toSaleWriteoffResponse(result))
}
