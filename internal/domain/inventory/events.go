package inventory

import (
	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event and aggregate type names
const (
	EventTypeStockChanged   = "StockChanged"
	EventTypeDocumentPosted = "DocumentPosted"
	AggregateTypeDocument   = "Document"
)

// StockChangedEvent is emitted for every batch balance moved by a posting.
// ProductStock and MinStock carry the product cache after the posting so
// subscribers can raise low stock alerts without a lookup.
type StockChangedEvent struct {
	shared.BaseDomainEvent
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	WarehouseID  uuid.UUID       `json:"warehouse_id"`
	BatchNumber  string          `json:"batch_number"`
	OldQuantity  decimal.Decimal `json:"old_quantity"`
	NewQuantity  decimal.Decimal `json:"new_quantity"`
	Change       decimal.Decimal `json:"change"`
	ProductStock decimal.Decimal `json:"product_stock"`
	MinStock     decimal.Decimal `json:"min_stock"`
	DocumentID   uuid.UUID       `json:"document_id"`
	DocumentType DocumentType    `json:"document_type"`
	Reason       string          `json:"reason"`
}

// NewStockChangedEvent builds the event for one applied balance change
func NewStockChangedEvent(doc *Document, change BalanceChange, productName, reason string) *StockChangedEvent {
	return &StockChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockChanged, AggregateTypeDocument, doc.ID),
		ProductID:       change.Key.ProductID,
		ProductName:     productName,
		WarehouseID:     change.Key.WarehouseID,
		BatchNumber:     change.Key.BatchNumber,
		OldQuantity:     change.OldQuantity,
		NewQuantity:     change.NewQuantity,
		Change:          change.Applied,
		DocumentID:      doc.ID,
		DocumentType:    doc.Type(),
		Reason:          reason,
	}
}

// DocumentPostedEvent is emitted once per posted document
type DocumentPostedEvent struct {
	shared.BaseDomainEvent
	DocumentID     uuid.UUID       `json:"document_id"`
	DocumentType   DocumentType    `json:"document_type"`
	DocumentNumber string          `json:"document_number"`
	WarehouseID    uuid.UUID       `json:"warehouse_id"`
	LinesCount     int             `json:"lines_count"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// NewDocumentPostedEvent builds the event for a posted document
func NewDocumentPostedEvent(doc *Document) *DocumentPostedEvent {
	return &DocumentPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentPosted, AggregateTypeDocument, doc.ID),
		DocumentID:      doc.ID,
		DocumentType:    doc.Type(),
		DocumentNumber:  doc.DocNumber,
		WarehouseID:     doc.WarehouseID(),
		LinesCount:      doc.Body.LineCount(),
		TotalAmount:     doc.TotalAmount,
	}
}
