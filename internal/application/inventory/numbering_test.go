package inventory_test

import (
	"context"
	"testing"
	"time"

	appinv "github.com/kitchenledger/backend/internal/application/inventory"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emptyDocuments reports no stored documents
type emptyDocuments struct {
	inventory.DocumentRepository
}

func (emptyDocuments) CountByNumberPrefix(ctx context.Context, prefix string) (int64, error) {
	return 0, nil
}

func TestDocumentNumberer_SequencePerDay(t *testing.T) {
	n := appinv.NewDocumentNumberer()
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	first, err := n.Next(ctx, emptyDocuments{}, inventory.DocumentTypeArrival, day)
	require.NoError(t, err)
	second, err := n.Next(ctx, emptyDocuments{}, inventory.DocumentTypeArrival, day)
	require.NoError(t, err)
	other, err := n.Next(ctx, emptyDocuments{}, inventory.DocumentTypeWriteoff, day)
	require.NoError(t, err)

	assert.Equal(t, "ARR-20240301-0001", first)
	assert.Equal(t, "ARR-20240301-0002", second)
	assert.Equal(t, "WO-20240301-0001", other)
}

func TestDocumentNumberer_ForgetsPastDays(t *testing.T) {
	n := appinv.NewDocumentNumberer()
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := range 30 {
		_, err := n.Next(ctx, emptyDocuments{}, inventory.DocumentTypeArrival, start.AddDate(0, 0, i))
		require.NoError(t, err)
	}
	// the current day and the one before
	assert.Equal(t, 2, n.Tracked())

	// yesterday keeps its in-memory sequence
	yesterday := start.AddDate(0, 0, 28)
	num, err := n.Next(ctx, emptyDocuments{}, inventory.DocumentTypeArrival, yesterday)
	require.NoError(t, err)
	assert.Equal(t, "ARR-"+yesterday.Format("20060102")+"-0002", num)
}
