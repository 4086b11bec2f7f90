package inventory

import (
	"context"
	"fmt"

	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/kitchenledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Low stock alert types
const (
	AlertTypeLowStock   = "low_stock"
	AlertTypeOutOfStock = "out_of_stock"
)

// StockAlert describes a product whose stock fell under its minimum
type StockAlert struct {
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	WarehouseID  string `json:"warehouse_id"`
	CurrentStock string `json:"current_stock"`
	MinStock     string `json:"min_stock"`
	DocumentID   string `json:"document_id"`
	AlertType    string `json:"alert_type"`
}

// StockAlertNotifier delivers stock alerts
type StockAlertNotifier interface {
	SendAlert(ctx context.Context, alert StockAlert) error
}

// LowStockHandler watches StockChanged events and raises an alert when a
// deduction leaves a product below its minimum stock
type LowStockHandler struct {
	logger   *zap.Logger
	notifier StockAlertNotifier
	metrics  *telemetry.LedgerMetrics
}

// NewLowStockHandler creates a new handler
func NewLowStockHandler(logger *zap.Logger) *LowStockHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LowStockHandler{logger: logger.Named("low_stock")}
}

// WithNotifier sets the notifier for sending alerts
func (h *LowStockHandler) WithNotifier(notifier StockAlertNotifier) *LowStockHandler {
	h.notifier = notifier
	return h
}

// WithMetrics counts raised alerts
func (h *LowStockHandler) WithMetrics(metrics *telemetry.LedgerMetrics) *LowStockHandler {
	h.metrics = metrics
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *LowStockHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockChanged}
}

// Handle processes a StockChangedEvent
func (h *LowStockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*inventory.StockChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeStockChanged, event.EventType())
	}

	// arrivals never create an alert
	if !changed.Change.IsNegative() {
		return nil
	}
	if !changed.MinStock.IsPositive() || !changed.ProductStock.LessThan(changed.MinStock) {
		return nil
	}

	alert := StockAlert{
		ProductID:    changed.ProductID.String(),
		ProductName:  changed.ProductName,
		WarehouseID:  changed.WarehouseID.String(),
		CurrentStock: changed.ProductStock.String(),
		MinStock:     changed.MinStock.String(),
		DocumentID:   changed.DocumentID.String(),
		AlertType:    AlertTypeLowStock,
	}
	if !changed.ProductStock.IsPositive() {
		alert.AlertType = AlertTypeOutOfStock
	}

	h.logger.Warn("stock below minimum",
		zap.String("product_id", alert.ProductID),
		zap.String("product_name", alert.ProductName),
		zap.String("warehouse_id", alert.WarehouseID),
		zap.String("current_stock", alert.CurrentStock),
		zap.String("min_stock", alert.MinStock),
		zap.String("alert_type", alert.AlertType),
	)
	if h.metrics != nil {
		h.metrics.RecordLowStockAlert(ctx, alert.WarehouseID, alert.AlertType)
	}

	if h.notifier == nil {
		return nil
	}
	if err := h.notifier.SendAlert(ctx, alert); err != nil {
		return fmt.Errorf("failed to send stock alert: %w", err)
	}
	return nil
}

// Ensure LowStockHandler implements EventHandler
var _ shared.EventHandler = (*LowStockHandler)(nil)
