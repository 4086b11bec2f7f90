package handler

import (
	"time"

	"github.com/google/uuid"
	appcatalog "github.com/kitchenledger/backend/internal/application/catalog"
	appinv "github.com/kitchenledger/backend/internal/application/inventory"
	"github.com/kitchenledger/backend/internal/domain/catalog"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/kitchenledger/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// APIResponse represents a generic API response for OpenAPI documentation
// @Description Standard API response wrapper with typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse represents an error API response for OpenAPI documentation
// @Description Standard error response
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// CountData represents count data in response
// @Description Count data
type CountData struct {
	Count int64 `json:"count"`
}

// DocumentLineResponse is one movement line
type DocumentLineResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit,omitempty"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
	BatchNumber string          `json:"batch_number,omitempty"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
}

// InventoryLineResponse is one counted line of a stock-take
type InventoryLineResponse struct {
	ProductID         uuid.UUID       `json:"product_id"`
	Unit              string          `json:"unit,omitempty"`
	CostPerUnit       decimal.Decimal `json:"cost_per_unit"`
	BatchNumber       string          `json:"batch_number,omitempty"`
	ExpiryDate        *time.Time      `json:"expiry_date,omitempty"`
	QuantityActual    decimal.Decimal `json:"quantity_actual"`
	QuantityByAccount decimal.Decimal `json:"quantity_by_account"`
	Difference        decimal.Decimal `json:"difference"`
	AmountDifference  decimal.Decimal `json:"amount_difference"`
}

// DocumentResponse is a stock document with its typed body flattened
// @Description Stock document
type DocumentResponse struct {
	ID                     uuid.UUID               `json:"id"`
	DocNumber              string                  `json:"doc_number" example:"ARR-20240115-0001"`
	Type                   string                  `json:"type" example:"arrival"`
	Status                 string                  `json:"status" example:"draft"`
	DocDate                time.Time               `json:"doc_date"`
	PostedAt               *time.Time              `json:"posted_at,omitempty"`
	SyncedAt               *time.Time              `json:"synced_at,omitempty"`
	TotalAmount            decimal.Decimal         `json:"total_amount"`
	CreatedBy              string                  `json:"created_by"`
	Comment                string                  `json:"comment,omitempty"`
	WarehouseID            uuid.UUID               `json:"warehouse_id"`
	DestinationWarehouseID *uuid.UUID              `json:"destination_warehouse_id,omitempty"`
	SupplierName           string                  `json:"supplier_name,omitempty"`
	InvoiceNumber          string                  `json:"invoice_number,omitempty"`
	Reason                 string                  `json:"reason,omitempty"`
	ReceiptID              string                  `json:"receipt_id,omitempty"`
	Lines                  []DocumentLineResponse  `json:"lines,omitempty"`
	InventoryLines         []InventoryLineResponse `json:"inventory_lines,omitempty"`
	Version                int                     `json:"version"`
	CreatedAt              time.Time               `json:"created_at"`
	UpdatedAt              time.Time               `json:"updated_at"`
}

// BalanceChangeResponse is one batch mutation applied by a posting
type BalanceChangeResponse struct {
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	BatchNumber string          `json:"batch_number"`
	OldQuantity decimal.Decimal `json:"old_quantity"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
	Requested   decimal.Decimal `json:"requested"`
	Applied     decimal.Decimal `json:"applied"`
	Created     bool            `json:"created"`
	Clamped     bool            `json:"clamped"`
}

// EventResponse names an event raised by a posting
type EventResponse struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	AggregateID uuid.UUID `json:"aggregate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// PostingResponse is the result of posting a document
// @Description Posting result
type PostingResponse struct {
	Document DocumentResponse        `json:"document"`
	Changes  []BalanceChangeResponse `json:"changes"`
	Events   []EventResponse         `json:"events"`
	Warnings []shared.Warning        `json:"warnings"`
}

// SaleWriteoffResponse is the write-off produced for a sale
// @Description Sale write-off result
type SaleWriteoffResponse struct {
	Posted   bool             `json:"posted"`
	Document *DocumentResponse `json:"document,omitempty"`
	Posting  *PostingResponse  `json:"posting,omitempty"`
	Warnings []shared.Warning  `json:"warnings"`
}

// StockBatchResponse is one batch balance
type StockBatchResponse struct {
	ID          uuid.UUID       `json:"id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BalancesResponse lists batch balances with their total
// @Description Batch balances
type BalancesResponse struct {
	WarehouseID uuid.UUID            `json:"warehouse_id"`
	ProductID   *uuid.UUID           `json:"product_id,omitempty"`
	Batches     []StockBatchResponse `json:"batches"`
	Total       decimal.Decimal      `json:"total"`
}

// FEFOOrderResponse lists batches in consumption order
// @Description FEFO consumption order
type FEFOOrderResponse struct {
	WarehouseID uuid.UUID            `json:"warehouse_id"`
	ProductID   uuid.UUID            `json:"product_id"`
	Next        *StockBatchResponse  `json:"next,omitempty"`
	Batches     []StockBatchResponse `json:"batches"`
	Total       decimal.Decimal      `json:"total"`
}

// ReconcileResponse is the recomputed product stock
type ReconcileResponse struct {
	ProductID    uuid.UUID       `json:"product_id"`
	CurrentStock decimal.Decimal `json:"current_stock"`
}

// ProductResponse is a catalog product
// @Description Catalog product
type ProductResponse struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name" example:"Tomato"`
	Type         string          `json:"type" example:"ingredient"`
	BaseUnit     string          `json:"base_unit" example:"kg"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	MinStock     decimal.Decimal `json:"min_stock"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// SaveProductResponse is a product together with the recipes recosted by the change
type SaveProductResponse struct {
	Product  ProductResponse  `json:"product"`
	Created  bool             `json:"created"`
	Recipes  []RecipeResponse `json:"recipes,omitempty"`
	Warnings []shared.Warning `json:"warnings"`
}

// RecipeIngredientResponse is one recipe line
type RecipeIngredientResponse struct {
	ProductID              uuid.UUID       `json:"product_id"`
	Quantity               decimal.Decimal `json:"quantity"`
	Unit                   string          `json:"unit"`
	LossCoefficientPercent decimal.Decimal `json:"loss_coefficient_percent"`
}

// RecipeResponse is a recipe with its stored cost price
// @Description Recipe
type RecipeResponse struct {
	ID          uuid.UUID                  `json:"id"`
	ProductID   uuid.UUID                  `json:"product_id"`
	Name        string                     `json:"name"`
	YieldOut    decimal.Decimal            `json:"yield_out"`
	YieldUnit   string                     `json:"yield_unit"`
	Ingredients []RecipeIngredientResponse `json:"ingredients"`
	CostPrice   decimal.Decimal            `json:"cost_price"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

// RecipeCostResponse is a recipe and the breakdown of its cost
// @Description Recipe cost
type RecipeCostResponse struct {
	Recipe      RecipeResponse           `json:"recipe"`
	Created     bool                     `json:"created"`
	Cost        decimal.Decimal          `json:"cost"`
	Ingredients []catalog.IngredientCost `json:"ingredients"`
	Warnings    []shared.Warning         `json:"warnings"`
}

// WarehouseResponse is a storage location
// @Description Warehouse
type WarehouseResponse struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code" example:"KITCHEN"`
	Name string    `json:"name" example:"Hot kitchen"`
	Type string    `json:"type" example:"kitchen"`
}

func nonNilWarnings(w []shared.Warning) []shared.Warning {
	if w == nil {
		return []shared.Warning{}
	}
	return w
}

func toDocumentLines(lines []inventory.DocumentLine) []DocumentLineResponse {
	out := make([]DocumentLineResponse, len(lines))
	for i, l := range lines {
		out[i] = DocumentLineResponse{
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			Unit:        l.Unit,
			CostPerUnit: l.CostPerUnit,
			BatchNumber: l.BatchNumber,
			ExpiryDate:  l.ExpiryDate,
		}
	}
	return out
}

func toDocumentResponse(doc *inventory.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:          doc.ID,
		DocNumber:   doc.DocNumber,
		Type:        string(doc.Type()),
		Status:      string(doc.Status),
		DocDate:     doc.DocDate,
		PostedAt:    doc.PostedAt,
		SyncedAt:    doc.SyncedAt,
		TotalAmount: doc.TotalAmount,
		CreatedBy:   doc.CreatedBy,
		Comment:     doc.Comment,
		WarehouseID: doc.WarehouseID(),
		Version:     doc.Version,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}

	switch body := doc.Body.(type) {
	case *inventory.ArrivalDoc:
		resp.SupplierName = body.SupplierName
		resp.InvoiceNumber = body.InvoiceNumber
		resp.Lines = toDocumentLines(body.Lines)
	case *inventory.WriteoffDoc:
		resp.Reason = body.Reason
		resp.ReceiptID = body.ReceiptID
		resp.Lines = toDocumentLines(body.Lines)
	case *inventory.TransferDoc:
		dest := body.DestinationWarehouseID
		resp.DestinationWarehouseID = &dest
		resp.Lines = toDocumentLines(body.Lines)
	case *inventory.InventoryDoc:
		resp.InventoryLines = make([]InventoryLineResponse, len(body.Lines))
		for i, l := range body.Lines {
			resp.InventoryLines[i] = InventoryLineResponse{
				ProductID:         l.ProductID,
				Unit:              l.Unit,
				CostPerUnit:       l.CostPerUnit,
				BatchNumber:       l.BatchNumber,
				ExpiryDate:        l.ExpiryDate,
				QuantityActual:    l.QuantityActual,
				QuantityByAccount: l.QuantityByAccount,
				Difference:        l.Difference,
				AmountDifference:  l.AmountDifference,
			}
		}
	}
	return resp
}

func toDocumentResponses(docs []*inventory.Document) []DocumentResponse {
	out := make([]DocumentResponse, len(docs))
	for i, doc := range docs {
		out[i] = toDocumentResponse(doc)
	}
	return out
}

func toPostingResponse(result *appinv.PostingResult) PostingResponse {
	resp := PostingResponse{
		Document: toDocumentResponse(result.Document),
		Changes:  make([]BalanceChangeResponse, len(result.Changes)),
		Events:   make([]EventResponse, len(result.Events)),
		Warnings: nonNilWarnings(result.Warnings),
	}
	for i, ch := range result.Changes {
		resp.Changes[i] = BalanceChangeResponse{
			WarehouseID: ch.Key.WarehouseID,
			ProductID:   ch.Key.ProductID,
			BatchNumber: ch.Key.BatchNumber,
			OldQuantity: ch.OldQuantity,
			NewQuantity: ch.NewQuantity,
			Requested:   ch.Requested,
			Applied:     ch.Applied,
			Created:     ch.Created,
			Clamped:     ch.Clamped,
		}
	}
	for i, e := range result.Events {
		resp.Events[i] = EventResponse{
			ID:          e.EventID(),
			Type:        e.EventType(),
			AggregateID: e.AggregateID(),
			OccurredAt:  e.OccurredAt(),
		}
	}
	return resp
}

func toSaleWriteoffResponse(result *appinv.SaleWriteoffResult) SaleWriteoffResponse {
	resp := SaleWriteoffResponse{
		Posted:   result.Posted,
		Warnings: nonNilWarnings(result.Warnings),
	}
	if result.Document != nil {
		doc := toDocumentResponse(result.Document)
		resp.Document = &doc
	}
	if result.Posting != nil {
		posting := toPostingResponse(result.Posting)
		resp.Posting = &posting
	}
	return resp
}

func toStockBatchResponse(b *inventory.StockBatch) StockBatchResponse {
	return StockBatchResponse{
		ID:          b.ID,
		WarehouseID: b.WarehouseID,
		ProductID:   b.ProductID,
		BatchNumber: b.BatchNumber,
		Quantity:    b.Quantity,
		CostPerUnit: b.CostPerUnit,
		ExpiryDate:  b.ExpiryDate,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toStockBatchResponses(batches []*inventory.StockBatch) []StockBatchResponse {
	out := make([]StockBatchResponse, len(batches))
	for i, b := range batches {
		out[i] = toStockBatchResponse(b)
	}
	return out
}

func toBalancesResponse(r *appinv.BalanceResponse) BalancesResponse {
	return BalancesResponse{
		WarehouseID: r.WarehouseID,
		ProductID:   r.ProductID,
		Batches:     toStockBatchResponses(r.Batches),
		Total:       r.Total,
	}
}

func toFEFOOrderResponse(r *appinv.FEFOResponse) FEFOOrderResponse {
	resp := FEFOOrderResponse{
		WarehouseID: r.WarehouseID,
		ProductID:   r.ProductID,
		Batches:     toStockBatchResponses(r.Batches),
		Total:       r.Total,
	}
	if r.Next != nil {
		next := toStockBatchResponse(r.Next)
		resp.Next = &next
	}
	return resp
}

func toProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:           p.ID,
		Name:         p.Name,
		Type:         string(p.Type),
		BaseUnit:     p.BaseUnit,
		UnitCost:     p.UnitCost,
		MinStock:     p.MinStock,
		CurrentStock: p.CurrentStock,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toSaveProductResponse(r *appcatalog.ProductResult) SaveProductResponse {
	resp := SaveProductResponse{
		Product:  toProductResponse(r.Product),
		Created:  r.Created,
		Warnings: nonNilWarnings(r.Warnings),
	}
	for _, recipe := range r.Recipes {
		resp.Recipes = append(resp.Recipes, toRecipeResponse(recipe))
	}
	return resp
}

func toRecipeResponse(r *catalog.Recipe) RecipeResponse {
	resp := RecipeResponse{
		ID:          r.ID,
		ProductID:   r.ProductID,
		Name:        r.Name,
		YieldOut:    r.YieldOut,
		YieldUnit:   r.YieldUnit,
		Ingredients: make([]RecipeIngredientResponse, len(r.Ingredients)),
		CostPrice:   r.CostPrice,
		UpdatedAt:   r.UpdatedAt,
	}
	for i, ing := range r.Ingredients {
		resp.Ingredients[i] = RecipeIngredientResponse{
			ProductID:              ing.ProductID,
			Quantity:               ing.Quantity,
			Unit:                   ing.Unit,
			LossCoefficientPercent: ing.LossCoefficientPercent,
		}
	}
	return resp
}

func toRecipeCostResponse(r *appcatalog.RecipeResult) RecipeCostResponse {
	ingredients := r.Cost.Ingredients
	if ingredients == nil {
		ingredients = []catalog.IngredientCost{}
	}
	return RecipeCostResponse{
		Recipe:      toRecipeResponse(r.Recipe),
		Created:     r.Created,
		Cost:        r.Cost.Cost,
		Ingredients: ingredients,
		Warnings:    nonNilWarnings(r.Warnings),
	}
}

func toWarehouseResponse(w *catalog.Warehouse) WarehouseResponse {
	return WarehouseResponse{
		ID:   w.ID,
		Code: w.Code,
		Name: w.Name,
		Type: string(w.Type),
	}
}
