package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvent struct {
	BaseDomainEvent
}

func TestNewOutboxEntry(t *testing.T) {
	aggID := uuid.New()
	ev := &stubEvent{BaseDomainEvent: NewBaseDomainEvent("StockChanged", "Document", aggID)}

	entry := NewOutboxEntry(ev, []byte(`{"x":1}`))

	assert.Equal(t, ev.EventID(), entry.EventID)
	assert.Equal(t, "StockChanged", entry.EventType)
	assert.Equal(t, aggID, entry.AggregateID)
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
}

func TestOutboxEntry_Lifecycle(t *testing.T) {
	entry := &OutboxEntry{ID: uuid.New(), Status: OutboxStatusPending, MaxRetries: 3}

	require.NoError(t, entry.MarkProcessing())
	assert.Equal(t, OutboxStatusProcessing, entry.Status)

	// processing entries cannot be claimed twice
	assert.Error(t, entry.MarkProcessing())

	entry.MarkSent()
	assert.Equal(t, OutboxStatusSent, entry.Status)
	assert.NotNil(t, entry.ProcessedAt)
}

func TestOutboxEntry_MarkFailed(t *testing.T) {
	t.Run("schedules retries with growing backoff", func(t *testing.T) {
		entry := &OutboxEntry{ID: uuid.New(), Status: OutboxStatusProcessing, MaxRetries: 5}

		entry.MarkFailed("broker down")
		require.NotNil(t, entry.NextRetryAt)
		first := time.Until(*entry.NextRetryAt)
		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.True(t, entry.CanRetry())

		entry.Status = OutboxStatusProcessing
		entry.MarkFailed("broker down")
		second := time.Until(*entry.NextRetryAt)

		assert.Greater(t, second, first)
		assert.Equal(t, 2, entry.RetryCount)
		assert.Equal(t, "broker down", entry.LastError)
	})

	t.Run("dead after max retries", func(t *testing.T) {
		entry := &OutboxEntry{ID: uuid.New(), Status: OutboxStatusProcessing, RetryCount: 2, MaxRetries: 3}

		entry.MarkFailed("still down")

		assert.True(t, entry.IsDead())
		assert.False(t, entry.CanRetry())
	})

	t.Run("backoff is capped", func(t *testing.T) {
		entry := &OutboxEntry{ID: uuid.New(), Status: OutboxStatusProcessing, RetryCount: 20, MaxRetries: 100}

		entry.MarkFailed("x")

		assert.LessOrEqual(t, time.Until(*entry.NextRetryAt), MaxBackoff)
	})
}

func TestOutboxEntry_ResetForRetry(t *testing.T) {
	dead := &OutboxEntry{Status: OutboxStatusDead, RetryCount: 5, LastError: "boom"}
	require.NoError(t, dead.ResetForRetry())
	assert.Equal(t, OutboxStatusPending, dead.Status)
	assert.Zero(t, dead.RetryCount)
	assert.Empty(t, dead.LastError)

	for _, status := range []OutboxStatus{OutboxStatusPending, OutboxStatusSent, OutboxStatusFailed} {
		e := &OutboxEntry{Status: status}
		assert.Error(t, e.ResetForRetry(), status)
	}
}
