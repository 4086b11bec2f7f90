package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	appinv "github.com/kitchenledger/backend/internal/application/inventory"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendAlert(ctx context.Context, alert appinv.StockAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func stockChanged(change, productStock, minStock string) *inventory.StockChangedEvent {
	doc := &inventory.Document{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Body:              &inventory.WriteoffDoc{WarehouseID: uuid.New(), Reason: inventory.ReasonSale},
	}
	ev := inventory.NewStockChangedEvent(doc, inventory.BalanceChange{
		Key:     inventory.NewBalanceKey(uuid.New(), uuid.New(), ""),
		Applied: d(change),
	}, "Salmon", inventory.ReasonSale)
	ev.ProductStock = d(productStock)
	ev.MinStock = d(minStock)
	return ev
}

func TestLowStockHandler_EventTypes(t *testing.T) {
	h := appinv.NewLowStockHandler(zap.NewNop())
	assert.Equal(t, []string{inventory.EventTypeStockChanged}, h.EventTypes())
}

func TestLowStockHandler_Alerts(t *testing.T) {
	tests := []struct {
		name      string
		event     *inventory.StockChangedEvent
		alertType string
	}{
		{name: "below minimum", event: stockChanged("-2", "1.5", "2"), alertType: appinv.AlertTypeLowStock},
		{name: "out of stock", event: stockChanged("-1.5", "0", "2"), alertType: appinv.AlertTypeOutOfStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := new(mockNotifier)
			notifier.On("SendAlert", mock.Anything, mock.MatchedBy(func(a appinv.StockAlert) bool {
				return a.AlertType == tt.alertType &&
					a.ProductName == "Salmon" &&
					a.MinStock == "2" &&
					a.ProductID == tt.event.ProductID.String()
			})).Return(nil).Once()

			h := appinv.NewLowStockHandler(zap.NewNop()).WithNotifier(notifier)
			require.NoError(t, h.Handle(context.Background(), tt.event))
			notifier.AssertExpectations(t)
		})
	}
}

func TestLowStockHandler_NoAlert(t *testing.T) {
	tests := []struct {
		name  string
		event *inventory.StockChangedEvent
	}{
		{name: "arrival", event: stockChanged("5", "1", "2")},
		{name: "above minimum", event: stockChanged("-1", "3", "2")},
		{name: "at minimum", event: stockChanged("-1", "2", "2")},
		{name: "no minimum configured", event: stockChanged("-1", "0", "0")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := new(mockNotifier)
			h := appinv.NewLowStockHandler(zap.NewNop()).WithNotifier(notifier)
			require.NoError(t, h.Handle(context.Background(), tt.event))
			notifier.AssertNotCalled(t, "SendAlert", mock.Anything, mock.Anything)
		})
	}
}

func TestLowStockHandler_NotifierError(t *testing.T) {
	notifier := new(mockNotifier)
	notifier.On("SendAlert", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	h := appinv.NewLowStockHandler(zap.NewNop()).WithNotifier(notifier)
	err := h.Handle(context.Background(), stockChanged("-1", "1", "2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}

func TestLowStockHandler_WithoutNotifier(t *testing.T) {
	h := appinv.NewLowStockHandler(nil)
	assert.NoError(t, h.Handle(context.Background(), stockChanged("-1", "0", "2")))
}

func TestLowStockHandler_RejectsOtherEvents(t *testing.T) {
	doc := &inventory.Document{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Body:              &inventory.WriteoffDoc{WarehouseID: uuid.New()},
	}
	h := appinv.NewLowStockHandler(nil)
	assert.Error(t, h.Handle(context.Background(), inventory.NewDocumentPostedEvent(doc)))
}

// TestLowStockHandler_FromPosting drives the handler with events produced
// by a real posting
func TestLowStockHandler_FromPosting(t *testing.T) {
	env := newLedgerEnv(t, inventory.NegativeStockReject)
	salmon := env.product(t, "Salmon", "kg", "20")
	require.NoError(t, salmon.SetMinStock(d("2")))
	require.NoError(t, env.products.Save(context.Background(), salmon))
	env.receive(t, env.mainWH, inventory.DocumentLine{ProductID: salmon.ID, Quantity: d("3"), CostPerUnit: d("20")})

	notifier := new(mockNotifier)
	notifier.On("SendAlert", mock.Anything, mock.MatchedBy(func(a appinv.StockAlert) bool {
		return a.CurrentStock == "1.5" && a.AlertType == appinv.AlertTypeLowStock
	})).Return(nil).Once()
	h := appinv.NewLowStockHandler(nil).WithNotifier(notifier)

	result := env.post(t, &inventory.WriteoffDoc{
		WarehouseID: env.mainWH,
		Lines:       []inventory.DocumentLine{{ProductID: salmon.ID, Quantity: d("1.5")}},
	})
	for _, e := range result.Events {
		if e.EventType() == inventory.EventTypeStockChanged {
			require.NoError(t, h.Handle(context.Background(), e))
		}
	}
	notifier.AssertExpectations(t)
}
