package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appinv "github.com/kitchenledger/backend/internal/application/inventory"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// DocumentHandler handles stock document endpoints
type DocumentHandler struct {
	BaseHandler
	documents *appinv.DocumentService
	posting   *appinv.PostingService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documents *appinv.DocumentService, posting *appinv.PostingService) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		posting:   posting,
	}
}

// DocumentLineRequest is one line of a new document. For inventory
// documents Quantity is the counted quantity and may be zero.
type DocumentLineRequest struct {
	ProductID   string          `json:"product_id" binding:"required,uuid" example:"0d4f7a52-0f4f-4b85-9a4e-5b6f1c0f2a11"`
	Quantity    decimal.Decimal `json:"quantity" binding:"decimal_gte0" example:"12.5"`
	Unit        string          `json:"unit" binding:"max=20" example:"kg"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit" binding:"decimal_gte0" example:"3.20"`
	BatchNumber string          `json:"batch_number" binding:"max=100" example:"LOT-0115"`
	ExpiryDate  *time.Time      `json:"expiry_date" example:"2024-02-01T00:00:00Z"`
}

// CreateDocumentRequest represents a request to create a draft document
// @Description	Request body for creating a stock document
type CreateDocumentRequest struct {
	Type                   string                `json:"type" binding:"required,oneof=arrival writeoff transfer inventory" example:"arrival"`
	DocDate                *time.Time            `json:"doc_date" example:"2024-01-15T09:00:00Z"`
	WarehouseID            string                `json:"warehouse_id" binding:"required,uuid"`
	DestinationWarehouseID string                `json:"destination_warehouse_id" binding:"required_if=Type transfer,omitempty,uuid"`
	SupplierName           string                `json:"supplier_name" binding:"max=200" example:"Fresh Co"`
	InvoiceNumber          string                `json:"invoice_number" binding:"max=100" example:"INV-8812"`
	Reason                 string                `json:"reason" binding:"max=200" example:"spoilage"`
	ReceiptID              string                `json:"receipt_id" binding:"max=100"`
	Comment                string                `json:"comment" binding:"max=1000"`
	Lines                  []DocumentLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ListDocumentsQuery filters the document list
type ListDocumentsQuery struct {
	Type   string `form:"type" binding:"omitempty,oneof=arrival writeoff transfer inventory"`
	Status string `form:"status" binding:"omitempty,oneof=draft posted synced"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`

	OrderBy  string `form:"order_by" binding:"omitempty,oneof=doc_date doc_number total_amount created_at posted_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

func (r CreateDocumentRequest) toAppRequest(user string) (appinv.CreateDocumentRequest, error) {
	warehouseID, err := uuid.Parse(r.WarehouseID)
	if err != nil {
		return appinv.CreateDocumentRequest{}, err
	}
	destinationID, err := parseOptionalUUID(r.DestinationWarehouseID)
	if err != nil {
		return appinv.CreateDocumentRequest{}, err
	}

	docDate := time.Now()
	if r.DocDate != nil {
		docDate = *r.DocDate
	}

	lines := make([]appinv.DocumentLineInput, len(r.Lines))
	for i, l := range r.Lines {
		productID, err := uuid.Parse(l.ProductID)
		if err != nil {
			return appinv.CreateDocumentRequest{}, err
		}
		lines[i] = appinv.DocumentLineInput{
			ProductID:   productID,
			Quantity:    l.Quantity,
			Unit:        l.Unit,
			CostPerUnit: l.CostPerUnit,
			BatchNumber: l.BatchNumber,
			ExpiryDate:  l.ExpiryDate,
		}
	}

	return appinv.CreateDocumentRequest{
		Type:                   inventory.DocumentType(r.Type),
		DocDate:                docDate,
		WarehouseID:            warehouseID,
		DestinationWarehouseID: destinationID,
		SupplierName:           r.SupplierName,
		InvoiceNumber:          r.InvoiceNumber,
		Reason:                 r.Reason,
		ReceiptID:              r.ReceiptID,
		Comment:                r.Comment,
		CreatedBy:              user,
		Lines:                  lines,
	}, nil
}

// Create godoc
// @ID           createDocument
// @Summary      Create a draft stock document
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string false "Acting user"
// @Param        request body CreateDocumentRequest true "Document"
// @Success      201 {object} APIResponse[DocumentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	appReq, err := req.toAppRequest(h.user(c))
	if err != nil {
		h.BadRequest(c, "Invalid identifier: "+err.Error())
		return
	}

	doc, err := h.documents.Create(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toDocumentResponse(doc))
}

// Get godoc
// @ID           getDocument
// @Summary      Get a stock document
// @Tags         documents
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} APIResponse[DocumentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDocumentResponse(doc))
}

// List godoc
// @ID           listDocuments
// @Summary      List stock documents, newest first unless ordered otherwise
// @Tags         documents
// @Produce      json
// @Param        type query string false "Document type" Enums(arrival, writeoff, transfer, inventory)
// @Param        status query string false "Document status" Enums(draft, posted, synced)
// @Param        limit query int false "Maximum number of documents" default(100) maximum(500)
// @Param        order_by query string false "Sort field" Enums(doc_date, doc_number, total_amount, created_at, posted_at) default(doc_date)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc) default(desc)
// @Success      200 {object} APIResponse[[]DocumentResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	var query ListDocumentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationError(c, err)
		return
	}

	docs, err := h.documents.List(c.Request.Context(), inventory.DocumentFilter{
		Type:   inventory.DocumentType(query.Type),
		Status:   inventory.DocumentStatus(query.Status),
		Limit:    query.Limit,
		OrderBy:  query.OrderBy,
		OrderDir: query.OrderDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessList(c, toDocumentResponses(docs), int64(len(docs)), query.Limit)
}

// Post godoc
// @ID           postDocument
// @Summary      Post a draft document to the stock ledger
// @Description  Applies every line atomically. A shortfall under the reject policy leaves all balances untouched.
// @Tags         documents
// @Produce      json
// @Param        X-User-ID header string false "Acting user"
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} APIResponse[PostingResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /documents/{id}/post [post]
func (h *DocumentHandler) Post(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	result, err := h.posting.Post(c.Request.Context(), id, h.user(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPostingResponse(result))
}

// Sync godoc
// @ID           syncDocument
// @Summary      Mark a posted document as synced
// @Tags         documents
// @Produce      json
// @Param        X-User-ID header string false "Acting user"
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} APIResponse[DocumentResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /documents/{id}/sync [post]
func (h *DocumentHandler) Sync(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	doc, err := h.posting.MarkSynced(c.Request.Context(), id, h.user(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDocumentResponse(doc))
}
