package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormOutboxRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(newOutboxDB(t))
	serializer := NewLedgerSerializer()

	pending := saveEvent(t, repo, serializer, newStockChanged(), 3)
	failed := saveEvent(t, repo, serializer, newStockChanged(), 3)
	failed.MarkFailed("boom")
	past := time.Now().Add(-time.Minute)
	failed.NextRetryAt = &past
	require.NoError(t, repo.Update(ctx, failed))

	t.Run("find", func(t *testing.T) {
		found, err := repo.FindPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, pending.EventID, found[0].EventID)
		assert.Equal(t, pending.Payload, found[0].Payload)

		retryable, err := repo.FindRetryable(ctx, time.Now(), 10)
		require.NoError(t, err)
		require.Len(t, retryable, 1)
		assert.Equal(t, failed.ID, retryable[0].ID)
		assert.Equal(t, 1, retryable[0].RetryCount)

		_, err = repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("mark processing claims once", func(t *testing.T) {
		ids := []uuid.UUID{pending.ID, failed.ID, uuid.New()}
		claimed, err := repo.MarkProcessing(ctx, ids)
		require.NoError(t, err)
		assert.Len(t, claimed, 2)

		again, err := repo.MarkProcessing(ctx, ids)
		require.NoError(t, err)
		assert.Empty(t, again)

		got, err := repo.FindByID(ctx, pending.ID)
		require.NoError(t, err)
		assert.Equal(t, shared.OutboxStatusProcessing, got.Status)
	})

	t.Run("count and cleanup", func(t *testing.T) {
		got, err := repo.FindByID(ctx, pending.ID)
		require.NoError(t, err)
		got.MarkSent()
		old := time.Now().Add(-48 * time.Hour)
		got.ProcessedAt = &old
		require.NoError(t, repo.Update(ctx, got))

		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])
		assert.Equal(t, int64(1), counts[shared.OutboxStatusProcessing])

		deleted, err := repo.DeleteSentBefore(ctx, time.Now().Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
	})
}
