package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// StockBatchModel is the persistence model for one batch balance.
// (warehouse_id, product_id, batch_number) is unique.
type StockBatchModel struct {
	BaseModel
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_batch_key,priority:1;index:idx_stock_batch_warehouse"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_batch_key,priority:2;index:idx_stock_batch_product"`
	BatchNumber string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_stock_batch_key,priority:3"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CostPerUnit decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	ExpiryDate  *time.Time      `gorm:"index"`
}

// TableName returns the table name for GORM
func (StockBatchModel) TableName() string {
	return "stock_batches"
}

// ToDomain converts the persistence model to a domain StockBatch
func (m *StockBatchModel) ToDomain() *inventory.StockBatch {
	return &inventory.StockBatch{
		BaseEntity:  m.BaseModel.ToDomain(),
		WarehouseID: m.WarehouseID,
		ProductID:   m.ProductID,
		BatchNumber: m.BatchNumber,
		Quantity:    m.Quantity,
		CostPerUnit: m.CostPerUnit,
		ExpiryDate:  m.ExpiryDate,
	}
}

// StockBatchModelFromDomain creates a persistence model from a domain StockBatch
func StockBatchModelFromDomain(b *inventory.StockBatch) *StockBatchModel {
	m := &StockBatchModel{
		WarehouseID: b.WarehouseID,
		ProductID:   b.ProductID,
		BatchNumber: b.BatchNumber,
		Quantity:    b.Quantity,
		CostPerUnit: b.CostPerUnit,
		ExpiryDate:  b.ExpiryDate,
	}
	m.FromDomainBaseEntity(b.BaseEntity)
	return m
}

// DocumentModel stores the document header. Variant specific fields of the
// body live in nullable columns; DocType selects which are meaningful.
type DocumentModel struct {
	AggregateModel
	DocNumber   string                   `gorm:"type:varchar(50);not null;uniqueIndex"`
	DocType     inventory.DocumentType   `gorm:"type:varchar(20);not null;index:idx_document_type_status,priority:1"`
	Status      inventory.DocumentStatus `gorm:"type:varchar(20);not null;index:idx_document_type_status,priority:2"`
	DocDate     time.Time                `gorm:"not null;index"`
	PostedAt    *time.Time
	SyncedAt    *time.Time
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedBy   string          `gorm:"type:varchar(100)"`
	Comment     string          `gorm:"type:text"`

	WarehouseID            uuid.UUID  `gorm:"type:uuid;not null;index"`
	DestinationWarehouseID *uuid.UUID `gorm:"type:uuid"`
	SupplierName           string     `gorm:"type:varchar(200)"`
	InvoiceNumber          string     `gorm:"type:varchar(100)"`
	Reason                 string     `gorm:"type:varchar(50)"`
	ReceiptID              string     `gorm:"type:varchar(100);index"`

	Lines []DocumentLineModel `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "stock_documents"
}

// DocumentLineModel stores one line of any document variant. The
// reconciliation columns are only used by inventory documents.
type DocumentLineModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	DocumentID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo      int             `gorm:"not null"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Unit        string          `gorm:"type:varchar(20)"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	CostPerUnit decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	BatchNumber string          `gorm:"type:varchar(50)"`
	ExpiryDate  *time.Time

	QuantityByAccount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Difference        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AmountDifference  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (DocumentLineModel) TableName() string {
	return "stock_document_lines"
}

// DocumentModelFromDomain flattens a domain Document into header and lines
func DocumentModelFromDomain(d *inventory.Document) *DocumentModel {
	m := &DocumentModel{
		DocNumber:   d.DocNumber,
		DocType:     d.Type(),
		Status:      d.Status,
		DocDate:     d.DocDate,
		PostedAt:    d.PostedAt,
		SyncedAt:    d.SyncedAt,
		TotalAmount: d.TotalAmount,
		CreatedBy:   d.CreatedBy,
		Comment:     d.Comment,
		WarehouseID: d.WarehouseID(),
	}
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)

	switch b := d.Body.(type) {
	case *inventory.ArrivalDoc:
		m.SupplierName = b.SupplierName
		m.InvoiceNumber = b.InvoiceNumber
		m.Lines = lineModels(d.ID, b.Lines)
	case *inventory.WriteoffDoc:
		m.Reason = b.Reason
		m.ReceiptID = b.ReceiptID
		m.Lines = lineModels(d.ID, b.Lines)
	case *inventory.TransferDoc:
		dst := b.DestinationWarehouseID
		m.DestinationWarehouseID = &dst
		m.Lines = lineModels(d.ID, b.Lines)
	case *inventory.InventoryDoc:
		m.Lines = make([]DocumentLineModel, len(b.Lines))
		for i, l := range b.Lines {
			m.Lines[i] = DocumentLineModel{
				ID:                uuid.New(),
				DocumentID:        d.ID,
				LineNo:            i + 1,
				ProductID:         l.ProductID,
				Unit:              l.Unit,
				Quantity:          l.QuantityActual,
				CostPerUnit:       l.CostPerUnit,
				BatchNumber:       l.BatchNumber,
				ExpiryDate:        l.ExpiryDate,
				QuantityByAccount: l.QuantityByAccount,
				Difference:        l.Difference,
				AmountDifference:  l.AmountDifference,
			}
		}
	}
	return m
}

func lineModels(documentID uuid.UUID, lines []inventory.DocumentLine) []DocumentLineModel {
	out := make([]DocumentLineModel, len(lines))
	for i, l := range lines {
		out[i] = DocumentLineModel{
			ID:                uuid.New(),
			DocumentID:        documentID,
			LineNo:            i + 1,
			ProductID:         l.ProductID,
			Unit:              l.Unit,
			Quantity:          l.Quantity,
			CostPerUnit:       l.CostPerUnit,
			BatchNumber:       l.BatchNumber,
			ExpiryDate:        l.ExpiryDate,
			QuantityByAccount: decimal.Zero,
			Difference:        decimal.Zero,
			AmountDifference:  decimal.Zero,
		}
	}
	return out
}

// ToDomain rebuilds the domain Document. Lines must be loaded ordered by line_no.
func (m *DocumentModel) ToDomain() (*inventory.Document, error) {
	var body inventory.DocumentBody
	switch m.DocType {
	case inventory.DocumentTypeArrival:
		body = &inventory.ArrivalDoc{
			WarehouseID:   m.WarehouseID,
			SupplierName:  m.SupplierName,
			InvoiceNumber: m.InvoiceNumber,
			Lines:         m.domainLines(),
		}
	case inventory.DocumentTypeWriteoff:
		body = &inventory.WriteoffDoc{
			WarehouseID: m.WarehouseID,
			Reason:      m.Reason,
			ReceiptID:   m.ReceiptID,
			Lines:       m.domainLines(),
		}
	case inventory.DocumentTypeTransfer:
		if m.DestinationWarehouseID == nil {
			return nil, fmt.Errorf("transfer document %s has no destination warehouse", m.ID)
		}
		body = &inventory.TransferDoc{
			SourceWarehouseID:      m.WarehouseID,
			DestinationWarehouseID: *m.DestinationWarehouseID,
			Lines:                  m.domainLines(),
		}
	case inventory.DocumentTypeInventory:
		lines := make([]inventory.InventoryLine, len(m.Lines))
		for i, l := range m.Lines {
			lines[i] = inventory.InventoryLine{
				ProductID:         l.ProductID,
				Unit:              l.Unit,
				CostPerUnit:       l.CostPerUnit,
				BatchNumber:       l.BatchNumber,
				ExpiryDate:        l.ExpiryDate,
				QuantityActual:    l.Quantity,
				QuantityByAccount: l.QuantityByAccount,
				Difference:        l.Difference,
				AmountDifference:  l.AmountDifference,
			}
		}
		body = &inventory.InventoryDoc{WarehouseID: m.WarehouseID, Lines: lines}
	default:
		return nil, fmt.Errorf("document %s has unknown type %q", m.ID, m.DocType)
	}

	return &inventory.Document{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		DocNumber:         m.DocNumber,
		DocDate:           m.DocDate,
		Status:            m.Status,
		PostedAt:          m.PostedAt,
		SyncedAt:          m.SyncedAt,
		TotalAmount:       m.TotalAmount,
		CreatedBy:         m.CreatedBy,
		Comment:           m.Comment,
		Body:              body,
	}, nil
}

func (m *DocumentModel) domainLines() []inventory.DocumentLine {
	lines := make([]inventory.DocumentLine, len(m.Lines))
	for i, l := range m.Lines {
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
