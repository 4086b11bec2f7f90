package inventory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DocumentType is the kind of stock document
type DocumentType string

const (
	DocumentTypeArrival   DocumentType = "arrival"
	DocumentTypeWriteoff  DocumentType = "writeoff"
	DocumentTypeTransfer  DocumentType = "transfer"
	DocumentTypeInventory DocumentType = "inventory"
)

// IsValid reports whether t is a known document type
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeArrival, DocumentTypeWriteoff, DocumentTypeTransfer, DocumentTypeInventory:
		return true
	}
	return false
}

// NumberPrefix is the prefix used for document numbers of this type
func (t DocumentType) NumberPrefix() string {
	switch t {
	case DocumentTypeArrival:
		return "ARR"
	case DocumentTypeWriteoff:
		return "WO"
	case DocumentTypeTransfer:
		return "TR"
	case DocumentTypeInventory:
		return "INV"
	}
	return "DOC"
}

// DocumentStatus is the posting state of a document
type DocumentStatus string

const (
	DocumentStatusDraft  DocumentStatus = "draft"
	DocumentStatusPosted DocumentStatus = "posted"
	DocumentStatusSynced DocumentStatus = "synced"
)

// Reasons carried by write-off documents and stock change events
const (
	ReasonSale        = "sale"
	ReasonArrival     = "arrival"
	ReasonWriteoff    = "writeoff"
	ReasonTransferOut = "transfer_out"
	ReasonTransferIn  = "transfer_in"
	ReasonInventory   = "inventory_adjustment"
)

// DocumentLine is a product movement inside a document. Quantity and
// CostPerUnit are expressed in Unit; an empty Unit means the product base unit.
type DocumentLine struct {
	ProductID   uuid.UUID
	Quantity    decimal.Decimal
	Unit        string
	CostPerUnit decimal.Decimal
	BatchNumber string
	ExpiryDate  *time.Time
}

// Amount returns quantity times cost
func (l DocumentLine) Amount() decimal.Decimal {
	return l.Quantity.Mul(l.CostPerUnit)
}

// InventoryLine is one counted product in a stock-taking document.
// QuantityByAccount, Difference and AmountDifference are filled in at posting
// time from the ledger.
type InventoryLine struct {
	ProductID         uuid.UUID
	Unit              string
	CostPerUnit       decimal.Decimal
	BatchNumber       string
	ExpiryDate        *time.Time
	QuantityActual    decimal.Decimal
	QuantityByAccount decimal.Decimal
	Difference        decimal.Decimal
	AmountDifference  decimal.Decimal
}

// Reconcile records the ledger quantity and derives the differences
func (l *InventoryLine) Reconcile(byAccount decimal.Decimal) {
	l.QuantityByAccount = byAccount
	l.Difference = l.QuantityActual.Sub(byAccount)
	l.AmountDifference = l.Difference.Mul(l.CostPerUnit)
}

// DocumentBody is the type specific part of a document.
// It is implemented by ArrivalDoc, WriteoffDoc, TransferDoc and InventoryDoc.
type DocumentBody interface {
	Type() DocumentType
	// WarehouseIDs returns every warehouse the document touches
	WarehouseIDs() []uuid.UUID
	ProductIDs() []uuid.UUID
	LineCount() int
	Total() decimal.Decimal
	validate() error
}

// ArrivalDoc receives stock into a warehouse
type ArrivalDoc struct {
	WarehouseID   uuid.UUID
	SupplierName  string
	InvoiceNumber string
	Lines         []DocumentLine
}

// WriteoffDoc removes stock from a warehouse
type WriteoffDoc struct {
	WarehouseID uuid.UUID
	Reason      string
	ReceiptID   string
	Lines       []DocumentLine
}

// TransferDoc moves stock between two warehouses
type TransferDoc struct {
	SourceWarehouseID      uuid.UUID
	DestinationWarehouseID uuid.UUID
	Lines                  []DocumentLine
}

// InventoryDoc reconciles counted stock against the ledger
type InventoryDoc struct {
	WarehouseID uuid.UUID
	Lines       []InventoryLine
}

func (d *ArrivalDoc) Type() DocumentType   { return DocumentTypeArrival }
func (d *WriteoffDoc) Type() DocumentType  { return DocumentTypeWriteoff }
func (d *TransferDoc) Type() DocumentType  { return DocumentTypeTransfer }
func (d *InventoryDoc) Type() DocumentType { return DocumentTypeInventory }

func (d *ArrivalDoc) WarehouseIDs() []uuid.UUID  { return []uuid.UUID{d.WarehouseID} }
func (d *WriteoffDoc) WarehouseIDs() []uuid.UUID { return []uuid.UUID{d.WarehouseID} }
func (d *TransferDoc) WarehouseIDs() []uuid.UUID {
	return []uuid.UUID{d.SourceWarehouseID, d.DestinationWarehouseID}
}
func (d *InventoryDoc) WarehouseIDs() []uuid.UUID { return []uuid.UUID{d.WarehouseID} }

func (d *ArrivalDoc) ProductIDs() []uuid.UUID  { return lineProductIDs(d.Lines) }
func (d *WriteoffDoc) ProductIDs() []uuid.UUID { return lineProductIDs(d.Lines) }
func (d *TransferDoc) ProductIDs() []uuid.UUID { return lineProductIDs(d.Lines) }
func (d *InventoryDoc) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(d.Lines))
	for _, l := range d.Lines {
		ids = append(ids, l.ProductID)
	}
	return uniqueIDs(ids)
}

func (d *ArrivalDoc) LineCount() int   { return len(d.Lines) }
func (d *WriteoffDoc) LineCount() int  { return len(d.Lines) }
func (d *TransferDoc) LineCount() int  { return len(d.Lines) }
func (d *InventoryDoc) LineCount() int { return len(d.Lines) }

func (d *ArrivalDoc) Total() decimal.Decimal  { return linesTotal(d.Lines) }
func (d *WriteoffDoc) Total() decimal.Decimal { return linesTotal(d.Lines) }
func (d *TransferDoc) Total() decimal.Decimal { return linesTotal(d.Lines) }

// Total of an inventory document is the sum of amount differences
func (d *InventoryDoc) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range d.Lines {
		total = total.Add(l.AmountDifference)
	}
	return total
}

func (d *ArrivalDoc) validate() error {
	if d.WarehouseID == uuid.Nil {
		return invalidDocument("arrival requires a warehouse")
	}
	return validateLines(d.Lines)
}

func (d *WriteoffDoc) validate() error {
	if d.WarehouseID == uuid.Nil {
		return invalidDocument("writeoff requires a warehouse")
	}
	return validateLines(d.Lines)
}

func (d *TransferDoc) validate() error {
	if d.SourceWarehouseID == uuid.Nil || d.DestinationWarehouseID == uuid.Nil {
		return invalidDocument("transfer requires source and destination warehouses")
	}
	if d.SourceWarehouseID == d.DestinationWarehouseID {
		return invalidDocument("transfer source and destination must differ")
	}
	return validateLines(d.Lines)
}

func (d *InventoryDoc) validate() error {
	if d.WarehouseID == uuid.Nil {
		return invalidDocument("inventory requires a warehouse")
	}
	if len(d.Lines) == 0 {
		return invalidDocument("document has no lines")
	}
	for i, l := range d.Lines {
		if l.ProductID == uuid.Nil {
			return invalidDocument(fmt.Sprintf("line %d: product id is required", i+1))
		}
		if l.QuantityActual.IsNegative() {
			return shared.NewDomainError(shared.CodeInvalidQuantity, fmt.Sprintf("line %d: counted quantity cannot be negative", i+1))
		}
	}
	return nil
}

func validateLines(lines []DocumentLine) error {
	if len(lines) == 0 {
		return invalidDocument("document has no lines")
	}
	for i, l := range lines {
		if l.ProductID == uuid.Nil {
			return invalidDocument(fmt.Sprintf("line %d: product id is required", i+1))
		}
		if !l.Quantity.IsPositive() {
			return shared.NewDomainError(shared.CodeInvalidQuantity, fmt.Sprintf("line %d: quantity must be positive", i+1))
		}
		if l.CostPerUnit.IsNegative() {
			return invalidDocument(fmt.Sprintf("line %d: cost per unit cannot be negative", i+1))
		}
	}
	return nil
}

func invalidDocument(msg string) error {
	return shared.NewDomainError(shared.CodeInvalidDocument, msg)
}

func linesTotal(lines []DocumentLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount())
	}
	return total
}

func lineProductIDs(lines []DocumentLine) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	return uniqueIDs(ids)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Document is the unit of stock mutation. It moves one way through
// draft -> posted -> synced.
type Document struct {
	shared.BaseAggregateRoot
	DocNumber   string
	DocDate     time.Time
	Status      DocumentStatus
	PostedAt    *time.Time
	SyncedAt    *time.Time
	TotalAmount decimal.Decimal
	CreatedBy   string
	Comment     string
	Body        DocumentBody
}

// NewDocument creates a draft document
func NewDocument(body DocumentBody, docDate time.Time, createdBy string) (*Document, error) {
	if body == nil {
		return nil, invalidDocument("document body is required")
	}
	if err := body.validate(); err != nil {
		return nil, err
	}
	if docDate.IsZero() {
		docDate = time.Now()
	}
	doc := &Document{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DocDate:           docDate,
		Status:            DocumentStatusDraft,
		CreatedBy:         strings.TrimSpace(createdBy),
		Body:              body,
	}
	doc.RecalculateTotal()
	return doc, nil
}

// Type returns the document type
func (d *Document) Type() DocumentType {
	if d.Body == nil {
		return ""
	}
	return d.Body.Type()
}

// WarehouseID is the warehouse the document is filed under; the source
// warehouse for transfers.
func (d *Document) WarehouseID() uuid.UUID {
	if d.Body == nil {
		return uuid.Nil
	}
	return d.Body.WarehouseIDs()[0]
}

// Validate checks the structural rules of the body
func (d *Document) Validate() error {
	if d.Body == nil {
		return invalidDocument("document body is required")
	}
	return d.Body.validate()
}

// LockKeys returns the sorted, de-duplicated (warehouse, product) keys the
// posting of this document mutates.
func (d *Document) LockKeys() []string {
	if d.Body == nil {
		return nil
	}
	set := make(map[string]struct{})
	for _, w := range d.Body.WarehouseIDs() {
		for _, p := range d.Body.ProductIDs() {
			set[StockLockKey(w, p)] = struct{}{}
		}
	}
	return SortedKeys(set)
}

// SortedKeys returns the map keys in ascending order
func SortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RecalculateTotal refreshes TotalAmount from the lines
func (d *Document) RecalculateTotal() {
	if d.Body == nil {
		d.TotalAmount = decimal.Zero
		return
	}
	d.TotalAmount = d.Body.Total()
}

// IsDraft returns true when the document may still be posted
func (d *Document) IsDraft() bool {
	return d.Status == DocumentStatusDraft
}

// CanPost returns ErrAlreadyPosted for anything but a draft
func (d *Document) CanPost() error {
	if d.Status != DocumentStatusDraft {
		return shared.NewDomainError(shared.CodeAlreadyPosted,
			fmt.Sprintf("document %s is already %s", d.DocNumber, d.Status))
	}
	return nil
}

// MarkPosted moves a draft to posted
func (d *Document) MarkPosted(at time.Time) error {
	if err := d.CanPost(); err != nil {
		return err
	}
	d.Status = DocumentStatusPosted
	d.PostedAt = &at
	d.UpdatedAt = at
	d.IncrementVersion()
	return nil
}

// MarkSynced records that the external store acknowledged a posted document
func (d *Document) MarkSynced(at time.Time) error {
	if d.Status != DocumentStatusPosted {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("only posted documents can be synced, document %s is %s", d.DocNumber, d.Status))
	}
	d.Status = DocumentStatusSynced
	d.SyncedAt = &at
	d.UpdatedAt = at
	d.IncrementVersion()
	return nil
}

// Reason returns the movement reason recorded on stock change events
func (d *Document) Reason() string {
	switch b := d.Body.(type) {
	case *ArrivalDoc:
		return ReasonArrival
	case *WriteoffDoc:
		if b.Reason != "" {
			return b.Reason
		}
		return ReasonWriteoff
	case *InventoryDoc:
		return ReasonInventory
	}
	return ""
}
