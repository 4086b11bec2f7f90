package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kitchenledger/backend/internal/domain/inventory"
)

// DocumentNumberer issues document numbers PREFIX-YYYYMMDD-NNNN. The
// sequence continues from the stored documents and never reissues a number
// within the process, even while earlier transactions are uncommitted.
// Sequences more than a day older than the requested date are forgotten.
type DocumentNumberer struct {
	mu   sync.Mutex
	last map[string]issued
}

type issued struct {
	day time.Time
	seq int64
}

// NewDocumentNumberer creates a numberer
func NewDocumentNumberer() *DocumentNumberer {
	return &DocumentNumberer{last: make(map[string]issued)}
}

// Next returns the next number for the type and date
func (n *DocumentNumberer) Next(ctx context.Context, docs inventory.DocumentRepository, docType inventory.DocumentType, date time.Time) (string, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	prefix := fmt.Sprintf("%s-%s-", docType.NumberPrefix(), date.Format("20060102"))

	n.mu.Lock()
	defer n.mu.Unlock()

	count, err := docs.CountByNumberPrefix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to count documents: %w", err)
	}
	n.prune(day.AddDate(0, 0, -1))

	next := max(count, n.last[prefix].seq) + 1
	n.last[prefix] = issued{day: day, seq: next}
	return fmt.Sprintf("%s%04d", prefix, next), nil
}

// prune drops sequences for days before cutoff. Their documents are
// committed by now, so the stored count is enough.
func (n *DocumentNumberer) prune(cutoff time.Time) {
	for prefix, entry := range n.last {
		if entry.day.Before(cutoff) {
			delete(n.last, prefix)
		}
	}
}
