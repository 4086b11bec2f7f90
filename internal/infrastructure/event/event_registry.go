package event

import (
	"github.com/kitchenledger/backend/internal/domain/inventory"
)

// RegisterLedgerEvents registers every event type the ledger writes to the
// outbox. The outbox processor cannot replay unregistered types.
func RegisterLedgerEvents(serializer *EventSerializer) {
	serializer.Register(inventory.EventTypeStockChanged, &inventory.StockChangedEvent{})
	serializer.Register(inventory.EventTypeDocumentPosted, &inventory.DocumentPostedEvent{})
}

// NewLedgerSerializer returns a serializer with the ledger events registered
func NewLedgerSerializer() *EventSerializer {
	s := NewEventSerializer()
	RegisterLedgerEvents(s)
	return s
}
