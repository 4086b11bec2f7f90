package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Sale write-off outcomes
const (
	OutcomePosted  = "posted"
	OutcomeSkipped = "skipped"
)

// LowStockProvider counts products whose cached stock is under their minimum
type LowStockProvider interface {
	CountBelowMinStock(ctx context.Context) (int64, error)
}

// LedgerMetricsConfig configures LedgerMetrics
type LedgerMetricsConfig struct {
	Meter            metric.Meter
	Logger           *zap.Logger
	LowStockProvider LowStockProvider
}

// LedgerMetrics records posting and write-off activity
type LedgerMetrics struct {
	logger *zap.Logger

	documentsPosted  *Counter
	postingFailures  *Counter
	postingDuration  *Histogram
	saleWriteoffs    *Counter
	writeoffWarnings *Counter
	lowStockAlerts   *Counter
	lowStockProducts *Gauge

	lowStock    LowStockProvider
	stopCh      chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// NewLedgerMetrics creates every ledger instrument on the meter
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &LedgerMetrics{
		logger:   logger,
		lowStock: cfg.LowStockProvider,
		stopCh:   make(chan struct{}),
	}

	var err error
	if m.documentsPosted, err = NewCounter(cfg.Meter,
		"ledger_documents_posted_total", "Documents posted into the balance store", "{documents}"); err != nil {
		return nil, err
	}
	if m.postingFailures, err = NewCounter(cfg.Meter,
		"ledger_posting_failures_total", "Postings rejected or rolled back", "{documents}"); err != nil {
		return nil, err
	}
	if m.postingDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "ledger_posting_duration_seconds",
		Description: "Time from lock acquisition to commit",
		Unit:        "s",
		Boundaries:  PostingDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.saleWriteoffs, err = NewCounter(cfg.Meter,
		"ledger_sale_writeoffs_total", "Sales processed by the write-off orchestrator", "{sales}"); err != nil {
		return nil, err
	}
	if m.writeoffWarnings, err = NewCounter(cfg.Meter,
		"ledger_sale_writeoff_warnings_total", "Warnings reported while exploding sales", "{warnings}"); err != nil {
		return nil, err
	}
	if m.lowStockAlerts, err = NewCounter(cfg.Meter,
		"ledger_low_stock_alerts_total", "Low stock alerts raised after deductions", "{alerts}"); err != nil {
		return nil, err
	}
	if m.lowStockProducts, err = NewGauge(cfg.Meter,
		"ledger_low_stock_products", "Products currently below their minimum stock", "{products}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordPosted counts a committed posting and its duration
func (m *LedgerMetrics) RecordPosted(ctx context.Context, documentType string, d time.Duration) {
	m.documentsPosted.Inc(ctx, AttrDocumentType.String(documentType))
	m.postingDuration.RecordDuration(ctx, d, AttrDocumentType.String(documentType))
}

// RecordPostingFailed counts a posting that did not commit, labelled by error code
func (m *LedgerMetrics) RecordPostingFailed(ctx context.Context, documentType, code string) {
	m.postingFailures.Inc(ctx,
		AttrDocumentType.String(documentType),
		AttrOutcome.String(code),
	)
}

// RecordSaleWriteoff counts a processed sale and each warning it produced
func (m *LedgerMetrics) RecordSaleWriteoff(ctx context.Context, posted bool, warningCodes []string) {
	outcome := OutcomeSkipped
	if posted {
		outcome = OutcomePosted
	}
	m.saleWriteoffs.Inc(ctx, AttrOutcome.String(outcome))
	for _, code := range warningCodes {
		m.writeoffWarnings.Inc(ctx, AttrWarningCode.String(code))
	}
}

// RecordLowStockAlert counts an alert raised for a warehouse
func (m *LedgerMetrics) RecordLowStockAlert(ctx context.Context, warehouseID, alertType string) {
	m.lowStockAlerts.Inc(ctx,
		AttrWarehouseID.String(warehouseID),
		AttrOutcome.String(alertType),
	)
}

// StartPeriodicCollection samples the low stock gauge every interval until
// ctx is done or Stop is called. It does not block.
func (m *LedgerMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	m.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go m.runPeriodicCollection(ctx, interval)
	})
}

func (m *LedgerMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.collect(ctx)
	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collect(ctx)
		}
	}
}

func (m *LedgerMetrics) collect(ctx context.Context) {
	if m.lowStock == nil {
		return
	}
	count, err := m.lowStock.CountBelowMinStock(ctx)
	if err != nil {
		m.logger.Warn("Failed to count low stock products", zap.Error(err))
		return
	}
	m.lowStockProducts.Record(ctx, count)
}

// Stop ends periodic collection
func (m *LedgerMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}
