package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/audit"
	"github.com/kitchenledger/backend/internal/domain/catalog"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/kitchenledger/backend/internal/domain/shared/valueobject"
	"github.com/kitchenledger/backend/internal/infrastructure/logger"
	"github.com/kitchenledger/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WarningAuditFailed is reported when a posting committed but its audit
// entry could not be written
const WarningAuditFailed = "AUDIT_FAILED"

// AuditRecorder appends entries to the audit log
type AuditRecorder interface {
	Append(ctx context.Context, action audit.Action, user string, details map[string]any) error
}

// PostingService posts stock documents into the balance store.
// Every balance delta, the product stock cache, the document status and the
// outbox events of one posting commit in a single transaction.
type PostingService struct {
	scope     TransactionScope
	documents inventory.DocumentRepository
	locker    StockLocker
	units     *valueobject.UnitRegistry
	numbers   *DocumentNumberer
	publisher shared.EventPublisher
	audit     AuditRecorder
	metrics   *telemetry.LedgerMetrics
	logger    *zap.Logger
}

// NewPostingService creates a new PostingService
func NewPostingService(
	scope TransactionScope,
	documents inventory.DocumentRepository,
	locker StockLocker,
	units *valueobject.UnitRegistry,
	numbers *DocumentNumberer,
	logger *zap.Logger,
) *PostingService {
	if units == nil {
		units = valueobject.DefaultUnitRegistry()
	}
	if numbers == nil {
		numbers = NewDocumentNumberer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostingService{
		scope:     scope,
		documents: documents,
		locker:    locker,
		units:     units,
		numbers:   numbers,
		logger:    logger.Named("posting"),
	}
}

// SetEventPublisher sets the in-process publisher notified after commit
func (s *PostingService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetAuditRecorder sets the audit log
func (s *PostingService) SetAuditRecorder(recorder AuditRecorder) {
	s.audit = recorder
}

// SetLedgerMetrics sets the metrics collector
func (s *PostingService) SetLedgerMetrics(metrics *telemetry.LedgerMetrics) {
	s.metrics = metrics
}

// Post posts a stored draft document
func (s *PostingService) Post(ctx context.Context, documentID uuid.UUID, user string) (*PostingResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "PostingService", "Post",
		telemetry.SpanAttrDocumentID, documentID.String())
	defer span.End()

	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := doc.CanPost(); err != nil {
		return nil, err
	}

	result, err := s.post(ctx, doc, user)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrWarnings, len(result.Warnings))
	return result, nil
}

// PostDocument posts a document that may not have been stored yet
func (s *PostingService) PostDocument(ctx context.Context, doc *inventory.Document, user string) (*PostingResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "PostingService", "PostDocument",
		telemetry.SpanAttrDocumentID, doc.ID.String(),
		telemetry.SpanAttrDocumentType, string(doc.Type()))
	defer span.End()

	if err := doc.CanPost(); err != nil {
		return nil, err
	}
	result, err := s.post(ctx, doc, user)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

func (s *PostingService) post(ctx context.Context, doc *inventory.Document, user string) (*PostingResult, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	keys := doc.LockKeys()
	release, err := s.locker.Lock(ctx, keys)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx = logger.WithDocumentID(ctx, doc.ID.String())
	ctx = logger.WithDocumentType(ctx, string(doc.Type()))
	ctx = logger.WithLockKeys(ctx, keys)

	// the posting is not cancellable once the locks are held
	ctx = context.WithoutCancel(ctx)
	started := time.Now()

	var result *PostingResult
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		current, err := repos.Documents().FindByID(ctx, doc.ID)
		switch {
		case err == nil:
			doc = current
		case !errors.Is(err, shared.ErrNotFound):
			return err
		}

		result, err = s.postInTx(ctx, repos, doc)
		return err
	})
	if err != nil {
		s.recordFailure(ctx, doc.Type(), err)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordPosted(ctx, string(doc.Type()), time.Since(started))
	}

	s.afterCommit(ctx, result, user)
	return result, nil
}

func (s *PostingService) recordFailure(ctx context.Context, documentType inventory.DocumentType, err error) {
	if s.metrics == nil {
		return
	}
	code := "ERROR"
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code = domainErr.Code
	}
	s.metrics.RecordPostingFailed(ctx, string(documentType), code)
}

// postInTx applies the document to the balances and marks it posted. The
// caller holds the stock locks for every key the document touches.
func (s *PostingService) postInTx(ctx context.Context, repos TransactionalRepositories, doc *inventory.Document) (*PostingResult, error) {
	if err := doc.CanPost(); err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	products, err := s.loadProducts(ctx, repos.Products(), doc.Body.ProductIDs())
	if err != nil {
		return nil, err
	}

	if doc.DocNumber == "" {
		number, err := s.numbers.Next(ctx, repos.Documents(), doc.Type(), doc.DocDate)
		if err != nil {
			return nil, err
		}
		doc.DocNumber = number
	}

	p := &poster{
		ctx:      ctx,
		balances: repos.Balances(),
		units:    s.units,
		products: products,
		logger:   s.logger,
		result:   &PostingResult{Document: doc},
	}
	if err := p.apply(doc); err != nil {
		return nil, err
	}
	doc.RecalculateTotal()

	if err := p.refreshProductStock(repos.Products()); err != nil {
		return nil, err
	}

	if err := doc.MarkPosted(time.Now()); err != nil {
		return nil, err
	}
	if err := repos.Documents().Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	events := p.events(doc)
	if err := repos.Events().Record(ctx, events...); err != nil {
		return nil, fmt.Errorf("failed to record events: %w", err)
	}
	p.result.Events = events
	return p.result, nil
}

func (s *PostingService) loadProducts(ctx context.Context, repo catalog.ProductRepository, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	found, err := repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	products := make(map[uuid.UUID]*catalog.Product, len(found))
	for _, p := range found {
		products[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, shared.NewDomainError(shared.CodeInvalidDocument, "unknown product "+id.String())
		}
	}
	return products, nil
}

// afterCommit writes the audit entry and notifies in-process subscribers.
// Neither can undo the posting; failures surface as warnings and logs.
func (s *PostingService) afterCommit(ctx context.Context, result *PostingResult, user string) {
	doc := result.Document
	log := s.logger.With(
		zap.String("document_id", doc.ID.String()),
		zap.String("document_number", doc.DocNumber),
	)

	if s.audit != nil {
		details := map[string]any{
			"documentId":     doc.ID.String(),
			"documentType":   string(doc.Type()),
			"documentNumber": doc.DocNumber,
			"warehouseId":    doc.WarehouseID().String(),
			"linesCount":     doc.Body.LineCount(),
			"totalAmount":    doc.TotalAmount.StringFixed(2),
		}
		if err := s.audit.Append(ctx, audit.ActionDocumentPosted, user, details); err != nil {
			log.Warn("failed to append audit entry", zap.Error(err))
			result.Warnings = append(result.Warnings, shared.NewWarning(WarningAuditFailed,
				"document posted but audit entry failed: "+err.Error()))
		}
	}

	if s.publisher != nil && len(result.Events) > 0 {
		if err := s.publisher.Publish(ctx, result.Events...); err != nil {
			log.Warn("in-process event delivery failed, outbox will retry", zap.Error(err))
		}
	}

	log.Info("document posted",
		zap.String("document_type", string(doc.Type())),
		zap.Int("changes", len(result.Changes)),
		zap.Int("warnings", len(result.Warnings)),
	)
}

// MarkSynced records that a posted document reached the external store
func (s *PostingService) MarkSynced(ctx context.Context, documentID uuid.UUID, user string) (*inventory.Document, error) {
	var doc *inventory.Document
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		doc, err = repos.Documents().FindByID(ctx, documentID)
		if err != nil {
			return err
		}
		if err := doc.MarkSynced(time.Now()); err != nil {
			return err
		}
		return repos.Documents().Save(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		details := map[string]any{
			"documentId":     doc.ID.String(),
			"documentNumber": doc.DocNumber,
		}
		if err := s.audit.Append(ctx, audit.ActionDocumentSynced, user, details); err != nil {
			s.logger.Warn("failed to append audit entry", zap.String("document_id", doc.ID.String()), zap.Error(err))
		}
	}
	return doc, nil
}

// ReconcileProductStock recomputes the product stock cache from its batches
func (s *PostingService) ReconcileProductStock(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	var stock decimal.Decimal
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.Products().FindByID(ctx, productID); err != nil {
			return err
		}
		sum, err := repos.Balances().SumByProduct(ctx, productID)
		if err != nil {
			return err
		}
		stock = sum
		return repos.Products().UpdateCurrentStock(ctx, productID, sum)
	})
	return stock, err
}

// ClearOldDocuments deletes synced documents dated before the cutoff
func (s *PostingService) ClearOldDocuments(ctx context.Context, before time.Time, user string) (int64, error) {
	deleted, err := s.documents.DeleteSyncedBefore(ctx, before)
	if err != nil {
		return 0, err
	}

	if s.audit != nil {
		details := map[string]any{
			"before":  before.Format(time.RFC3339),
			"deleted": deleted,
		}
		if err := s.audit.Append(ctx, audit.ActionOldDataCleared, user, details); err != nil {
			s.logger.Warn("failed to append audit entry", zap.Error(err))
		}
	}
	s.logger.Info("old documents cleared", zap.Int64("deleted", deleted), zap.Time("before", before))
	return deleted, nil
}

type recordedChange struct {
	change inventory.BalanceChange
	reason string
}

// poster applies one document inside a transaction
type poster struct {
	ctx      context.Context
	balances inventory.StockBalanceStore
	units    *valueobject.UnitRegistry
	products map[uuid.UUID]*catalog.Product
	logger   *zap.Logger
	result   *PostingResult
	changes  []recordedChange
}

func (p *poster) apply(doc *inventory.Document) error {
	reason := doc.Reason()
	switch body := doc.Body.(type) {
	case *inventory.ArrivalDoc:
		for _, line := range body.Lines {
			if _, err := p.applyLine(body.WarehouseID, line, false, reason); err != nil {
				return err
			}
		}
	case *inventory.WriteoffDoc:
		for _, line := range body.Lines {
			if _, err := p.applyLine(body.WarehouseID, line, true, reason); err != nil {
				return err
			}
		}
	case *inventory.TransferDoc:
		for _, line := range body.Lines {
			if err := p.applyTransfer(body, line); err != nil {
				return err
			}
		}
	case *inventory.InventoryDoc:
		for i := range body.Lines {
			if err := p.applyCount(body.WarehouseID, &body.Lines[i]); err != nil {
				return err
			}
		}
	default:
		return shared.NewDomainError(shared.CodeInvalidDocument, fmt.Sprintf("unsupported document body %T", doc.Body))
	}
	return nil
}

// Stored scales of batch quantities, line quantities and unit costs
const (
	quantityScale = 4
	lineScale     = 8
	costScale     = 8
)

// toBase converts a line quantity and cost to the product base unit. Lines
// already in the base unit pass through untouched.
func (p *poster) toBase(product *catalog.Product, quantity, cost decimal.Decimal, unit string) (decimal.Decimal, decimal.Decimal, error) {
	if unit == "" || unit == product.BaseUnit {
		return quantity, cost, nil
	}
	factor, err := p.units.Factor(unit, product.BaseUnit)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return quantity.Mul(factor).Round(quantityScale), cost.Div(factor).Round(costScale), nil
}

func (p *poster) applyLine(warehouseID uuid.UUID, line inventory.DocumentLine, deduct bool, reason string) (inventory.BalanceChange, error) {
	product := p.products[line.ProductID]
	qty, cost, err := p.toBase(product, line.Quantity, line.CostPerUnit, line.Unit)
	if err != nil {
		return inventory.BalanceChange{}, err
	}
	if deduct {
		qty = qty.Neg()
	}
	key := inventory.NewBalanceKey(warehouseID, line.ProductID, line.BatchNumber)
	return p.upsert(key, qty, cost, line.ExpiryDate, reason)
}

// applyTransfer moves a line from source to destination. The destination
// receives what actually left the source, at the source cost and expiry.
func (p *poster) applyTransfer(body *inventory.TransferDoc, line inventory.DocumentLine) error {
	out, err := p.applyLine(body.SourceWarehouseID, line, true, inventory.ReasonTransferOut)
	if err != nil {
		return err
	}
	moved := out.Applied.Neg()
	if !moved.IsPositive() {
		return nil
	}
	key := inventory.NewBalanceKey(body.DestinationWarehouseID, line.ProductID, line.BatchNumber)
	_, err = p.upsert(key, moved, out.CostPerUnit, out.ExpiryDate, inventory.ReasonTransferIn)
	return err
}

// applyCount reconciles a counted quantity against the ledger
func (p *poster) applyCount(warehouseID uuid.UUID, line *inventory.InventoryLine) error {
	product := p.products[line.ProductID]
	key := inventory.NewBalanceKey(warehouseID, line.ProductID, line.BatchNumber)

	ledger := decimal.Zero
	var existing *inventory.StockBatch
	batch, err := p.balances.Get(p.ctx, key)
	switch {
	case err == nil:
		existing = batch
		ledger = batch.Quantity
	case !errors.Is(err, shared.ErrNotFound):
		return err
	}

	factor := decimal.NewFromInt(1)
	if line.Unit != "" {
		if factor, err = p.units.Factor(line.Unit, product.BaseUnit); err != nil {
			return err
		}
	}

	if line.CostPerUnit.IsZero() && existing != nil {
		line.CostPerUnit = existing.CostPerUnit.Mul(factor)
	}
	line.Reconcile(ledger.Div(factor).Round(quantityScale))

	actual := line.QuantityActual.Mul(factor).Round(quantityScale)
	delta := actual.Sub(ledger)
	if delta.IsZero() {
		return nil
	}
	_, err = p.upsert(key, delta, line.CostPerUnit.Div(factor).Round(costScale), line.ExpiryDate, inventory.ReasonInventory)
	return err
}

func (p *poster) upsert(key inventory.BalanceKey, delta, cost decimal.Decimal, expiry *time.Time, reason string) (inventory.BalanceChange, error) {
	change, err := p.balances.UpsertDelta(p.ctx, key, delta, cost, expiry)
	if err != nil {
		return change, err
	}
	if change.Clamped {
		w := change.Warning()
		p.logger.Warn("stock clamped at zero", zap.String("warning", w.Message))
		p.result.Warnings = append(p.result.Warnings, w)
	}
	if change.Changed() {
		p.result.Changes = append(p.result.Changes, change)
		p.changes = append(p.changes, recordedChange{change: change, reason: reason})
	}
	return change, nil
}

// refreshProductStock recomputes the cache of every product the posting moved
func (p *poster) refreshProductStock(repo catalog.ProductRepository) error {
	seen := make(map[uuid.UUID]bool)
	for _, c := range p.changes {
		id := c.change.Key.ProductID
		if seen[id] {
			continue
		}
		seen[id] = true

		sum, err := p.balances.SumByProduct(p.ctx, id)
		if err != nil {
			return err
		}
		if err := repo.UpdateCurrentStock(p.ctx, id, sum); err != nil {
			return fmt.Errorf("failed to update product stock: %w", err)
		}
		p.products[id].CurrentStock = sum
	}
	return nil
}

func (p *poster) events(doc *inventory.Document) []shared.DomainEvent {
	events := make([]shared.DomainEvent, 0, len(p.changes)+1)
	for _, c := range p.changes {
		product := p.products[c.change.Key.ProductID]
		ev := inventory.NewStockChangedEvent(doc, c.change, product.Name, c.reason)
		ev.ProductStock = product.CurrentStock
		ev.MinStock = product.MinStock
		events = append(events, ev)
	}
	return append(events, inventory.NewDocumentPostedEvent(doc))
}
