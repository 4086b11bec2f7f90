package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/catalog"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/kitchenledger/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Warning codes reported while exploding a sale
const (
	WarningRecipeNotFound  = catalog.WarningRecipeNotFound
	WarningProductNotFound = catalog.WarningProductNotFound
	WarningNoStock         = shared.CodeInsufficientStock
	WarningNothingToPost   = "NOTHING_TO_POST"
)

// SaleWriteoffService turns sold dishes into a posted write-off of their
// ingredients. Batch allocation and deduction run under the same stock
// locks and in the same transaction.
type SaleWriteoffService struct {
	posting   *PostingService
	recipes   catalog.RecipeRepository
	allocator *inventory.FEFOAllocator
	logger    *zap.Logger
}

// NewSaleWriteoffService creates a new SaleWriteoffService
func NewSaleWriteoffService(posting *PostingService, recipes catalog.RecipeRepository, logger *zap.Logger) *SaleWriteoffService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleWriteoffService{
		posting:   posting,
		recipes:   recipes,
		allocator: inventory.NewFEFOAllocator(),
		logger:    logger.Named("sale_writeoff"),
	}
}

type saleRecipe struct {
	item   SaleItem
	recipe *catalog.Recipe
}

// WriteoffBySale writes off the ingredients of every sold dish
func (s *SaleWriteoffService) WriteoffBySale(ctx context.Context, sale Sale) (*SaleWriteoffResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "SaleWriteoffService", "WriteoffBySale",
		telemetry.SpanAttrReceiptID, sale.ReceiptID,
		telemetry.SpanAttrWarehouseID, sale.WarehouseID.String())
	defer span.End()

	if err := validateSale(sale); err != nil {
		return nil, err
	}

	result := &SaleWriteoffResult{}
	resolved := make([]saleRecipe, 0, len(sale.Items))
	keySet := make(map[string]struct{})
	for _, item := range sale.Items {
		recipe, err := s.recipes.FindByProductID(ctx, item.DishID)
		if errors.Is(err, shared.ErrNotFound) {
			s.warn(result, WarningRecipeNotFound, fmt.Sprintf("no recipe for dish %s, item skipped", item.DishID))
			continue
		}
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		resolved = append(resolved, saleRecipe{item: item, recipe: recipe})
		for _, id := range recipe.IngredientProductIDs() {
			keySet[inventory.StockLockKey(sale.WarehouseID, id)] = struct{}{}
		}
	}

	if len(keySet) == 0 {
		s.warn(result, WarningNothingToPost, "sale produced no write-off lines")
		s.recordSale(ctx, result)
		return result, nil
	}

	keys := inventory.SortedKeys(keySet)
	telemetry.SetAttributes(span, telemetry.SpanAttrLockKeys, keys)
	release, err := s.posting.locker.Lock(ctx, keys)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	ctx = context.WithoutCancel(ctx)
	started := time.Now()

	err = s.posting.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		lines, err := s.allocate(ctx, repos, sale, resolved, result)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			s.warn(result, WarningNothingToPost, "sale produced no write-off lines")
			return nil
		}

		doc, err := inventory.NewDocument(&inventory.WriteoffDoc{
			WarehouseID: sale.WarehouseID,
			Reason:      inventory.ReasonSale,
			ReceiptID:   sale.ReceiptID,
			Lines:       lines,
		}, sale.SoldAt, sale.User)
		if err != nil {
			return err
		}

		posting, err := s.posting.postInTx(ctx, repos, doc)
		if err != nil {
			return err
		}
		result.Document = posting.Document
		result.Posting = posting
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.posting.recordFailure(ctx, inventory.DocumentTypeWriteoff, err)
		return nil, err
	}

	if result.Posting != nil {
		result.Posted = true
		if s.posting.metrics != nil {
			s.posting.metrics.RecordPosted(ctx, string(result.Document.Type()), time.Since(started))
		}
		s.posting.afterCommit(ctx, result.Posting, sale.User)
		result.Warnings = append(result.Warnings, result.Posting.Warnings...)
		telemetry.SetAttributes(span,
			telemetry.SpanAttrDocumentID, result.Document.ID.String(),
			telemetry.SpanAttrLinesCount, result.Document.Body.LineCount())
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrWarnings, len(result.Warnings))
	s.recordSale(ctx, result)
	return result, nil
}

func (s *SaleWriteoffService) recordSale(ctx context.Context, result *SaleWriteoffResult) {
	if s.posting.metrics == nil {
		return
	}
	codes := make([]string, len(result.Warnings))
	for i, w := range result.Warnings {
		codes[i] = w.Code
	}
	s.posting.metrics.RecordSaleWriteoff(ctx, result.Posted, codes)
}

// allocate explodes every recipe into write-off lines split across batches
// in FEFO order. Batches are tracked across items so two dishes sharing an
// ingredient never draw the same stock twice.
func (s *SaleWriteoffService) allocate(
	ctx context.Context,
	repos TransactionalRepositories,
	sale Sale,
	resolved []saleRecipe,
	result *SaleWriteoffResult,
) ([]inventory.DocumentLine, error) {
	ids := make([]uuid.UUID, 0)
	for _, r := range resolved {
		ids = append(ids, r.recipe.IngredientProductIDs()...)
	}
	found, err := repos.Products().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	products := catalog.NewProductSet(found...)

	working := make(map[uuid.UUID][]*inventory.StockBatch)
	var lines []inventory.DocumentLine

	for _, r := range resolved {
		for _, ing := range r.recipe.Ingredients {
			product, ok := products.FindProduct(ing.ProductID)
			if !ok {
				s.warn(result, WarningProductNotFound, fmt.Sprintf(
					"ingredient product %s of recipe %s not found, skipped", ing.ProductID, r.recipe.Name))
				continue
			}

			unit := ing.Unit
			if unit == "" {
				unit = product.BaseUnit
			}
			factor, err := s.posting.units.Factor(unit, product.BaseUnit)
			if err != nil {
				s.warn(result, shared.CodeUnitConversionUnknown, fmt.Sprintf(
					"ingredient %s skipped: %s", product.Name, err.Error()))
				continue
			}

			batches, ok := working[product.ID]
			if !ok {
				stored, err := repos.Balances().ListByProductWarehouse(ctx, product.ID, sale.WarehouseID)
				if err != nil {
					return nil, err
				}
				batches = make([]*inventory.StockBatch, len(stored))
				for i, b := range stored {
					c := *b
					batches[i] = &c
				}
				working[product.ID] = batches
			}

			// Demand is rounded to the stored quantity scale so allocations
			// stay within batch quantities.
			needed := ing.Quantity.Mul(r.item.Quantity).Mul(factor).Round(quantityScale)
			allocation, err := s.allocator.Allocate(needed, batches)
			if err != nil {
				return nil, err
			}

			for _, a := range allocation.Allocations {
				lines = append(lines, saleLine(product, unit, factor, a))
				a.Batch.Quantity = a.Remaining
			}

			if allocation.Shortfall.IsPositive() {
				s.warn(result, WarningNoStock, fmt.Sprintf(
					"not enough %s in stock: %s %s not written off",
					product.Name, allocation.Shortfall.String(), product.BaseUnit))
			}
		}
	}
	return lines, nil
}

// saleLine expresses an allocation in the recipe unit when that converts
// back to exactly the allocated base quantity, and in the base unit
// otherwise. Posting then deducts precisely what was allocated.
func saleLine(product *catalog.Product, unit string, factor decimal.Decimal, a inventory.Allocation) inventory.DocumentLine {
	line := inventory.DocumentLine{
		ProductID:   product.ID,
		Quantity:    a.Quantity,
		Unit:        product.BaseUnit,
		CostPerUnit: a.Batch.CostPerUnit,
		BatchNumber: a.Batch.BatchNumber,
		ExpiryDate:  a.Batch.ExpiryDate,
	}
	if unit == product.BaseUnit {
		return line
	}
	qty := a.Quantity.Div(factor)
	cost := a.Batch.CostPerUnit.Mul(factor)
	if !qty.Equal(qty.Round(lineScale)) || !qty.Mul(factor).Round(quantityScale).Equal(a.Quantity) {
		return line
	}
	if !cost.Div(factor).Round(costScale).Equal(a.Batch.CostPerUnit) {
		return line
	}
	line.Quantity = qty
	line.Unit = unit
	line.CostPerUnit = cost
	return line
}

func (s *SaleWriteoffService) warn(result *SaleWriteoffResult, code, message string) {
	s.logger.Warn(message, zap.String("code", code))
	result.Warnings = append(result.Warnings, shared.NewWarning(code, message))
}

func validateSale(sale Sale) error {
	if sale.WarehouseID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "sale requires a warehouse")
	}
	if len(sale.Items) == 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "sale has no items")
	}
	for i, item := range sale.Items {
		if item.DishID == uuid.Nil {
			return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("item %d: dish id is required", i+1))
		}
		if !item.Quantity.IsPositive() {
			return shared.NewDomainError(shared.CodeInvalidQuantity, fmt.Sprintf("item %d: quantity must be positive", i+1))
		}
	}
	return nil
}
