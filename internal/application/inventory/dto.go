package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PostingResult is returned by a successful posting
type PostingResult struct {
	Document *inventory.Document
	Changes  []inventory.BalanceChange
	Events   []shared.DomainEvent
	Warnings []shared.Warning
}

// SaleItem is one sold dish
type SaleItem struct {
	DishID   uuid.UUID
	Quantity decimal.Decimal
}

// Sale is a closed receipt to be written off against recipes
type Sale struct {
	ReceiptID   string
	WarehouseID uuid.UUID
	Items       []SaleItem
	User        string
	SoldAt      time.Time
}

// SaleWriteoffResult describes the write-off produced for a sale.
// Document is nil when no line could be assembled; Warnings explain why.
type SaleWriteoffResult struct {
	Document *inventory.Document
	Posted   bool
	Posting  *PostingResult
	Warnings []shared.Warning
}

// DocumentLineInput is one line of a document to create
type DocumentLineInput struct {
	ProductID   uuid.UUID
	Quantity    decimal.Decimal
	Unit        string
	CostPerUnit decimal.Decimal
	BatchNumber string
	ExpiryDate  *time.Time
}

// CreateDocumentRequest carries the fields of every document variant;
// Type selects which of them are used.
type CreateDocumentRequest struct {
	Type                   inventory.DocumentType
	DocDate                time.Time
	WarehouseID            uuid.UUID
	DestinationWarehouseID uuid.UUID
	SupplierName           string
	InvoiceNumber          string
	Reason                 string
	ReceiptID              string
	Comment                string
	CreatedBy              string
	Lines                  []DocumentLineInput
}

// Body builds the typed document body. For inventory documents Quantity
// is the counted quantity.
func (r CreateDocumentRequest) Body() (inventory.DocumentBody, error) {
	switch r.Type {
	case inventory.DocumentTypeArrival:
		return &inventory.ArrivalDoc{
			WarehouseID:   r.WarehouseID,
			SupplierName:  r.SupplierName,
			InvoiceNumber: r.InvoiceNumber,
			Lines:         r.documentLines(),
		}, nil
	case inventory.DocumentTypeWriteoff:
		return &inventory.WriteoffDoc{
			WarehouseID: r.WarehouseID,
			Reason:      r.Reason,
			ReceiptID:   r.ReceiptID,
			Lines:       r.documentLines(),
		}, nil
	case inventory.DocumentTypeTransfer:
		return &inventory.TransferDoc{
			SourceWarehouseID:      r.WarehouseID,
			DestinationWarehouseID: r.DestinationWarehouseID,
			Lines:                  r.documentLines(),
		}, nil
	case inventory.DocumentTypeInventory:
		lines := make([]inventory.InventoryLine, len(r.Lines))
		for i, l := range r.Lines {
			lines[i] = inventory.InventoryLine{
				ProductID:      l.ProductID,
				Unit:           l.Unit,
				CostPerUnit:    l.CostPerUnit,
				BatchNumber:    l.BatchNumber,
				ExpiryDate:     l.ExpiryDate,
				QuantityActual: l.Quantity,
			}
		}
		return &inventory.InventoryDoc{WarehouseID: r.WarehouseID, Lines: lines}, nil
	}
	return nil, shared.NewDomainError(shared.CodeInvalidDocument, "unknown document type: "+string(r.Type))
}

func (r CreateDocumentRequest) documentLines() []inventory.DocumentLine {
	lines := make([]inventory.DocumentLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = inventory.DocumentLine{
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			Unit:        l.Unit,
			CostPerUnit: l.CostPerUnit,
			BatchNumber: l.BatchNumber,
			ExpiryDate:  l.ExpiryDate,
		}
	}
	return lines
}

// BalanceQuery selects batch balances. ProductID is optional.
type BalanceQuery struct {
	WarehouseID uuid.UUID
	ProductID   *uuid.UUID
}

// BalanceResponse lists batch balances with their total
type BalanceResponse struct {
	WarehouseID uuid.UUID
	ProductID   *uuid.UUID
	Batches     []*inventory.StockBatch
	Total       decimal.Decimal
}

// FEFOResponse is the consumption order for a product in a warehouse
type FEFOResponse struct {
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	// Next is the batch the next write-off draws from, nil when out of stock
	Next    *inventory.StockBatch
	Batches []*inventory.StockBatch
	Total   decimal.Decimal
}
