package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*GormLogger)(nil)

func sqlFn(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_Trace(t *testing.T) {
	t.Run("logs errors", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Warn)

		gl.Trace(context.Background(), time.Now(), sqlFn("UPDATE stock_batches", 0), errors.New("locked"))

		entries := recorded.FilterMessage("SQL Error").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "UPDATE stock_batches", entries[0].ContextMap()["sql"])
	})

	t.Run("ignores record not found", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Warn)

		gl.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 0), gormlogger.ErrRecordNotFound)

		assert.Zero(t, recorded.Len())
	})

	t.Run("warns on slow query with document id", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Warn, WithSlowThreshold(time.Millisecond))

		ctx := WithDocumentID(WithRequestID(context.Background(), "req-1"), "doc-1")
		gl.Trace(ctx, time.Now().Add(-time.Second), sqlFn("SELECT * FROM stock_batches", 3), nil)

		entries := recorded.All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
		assert.Equal(t, "doc-1", entries[0].ContextMap()["document_id"])
	})

	t.Run("silent drops everything", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Silent)

		gl.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 1), errors.New("x"))

		assert.Zero(t, recorded.Len())
	})

	t.Run("info level records statements at debug", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Warn).LogMode(gormlogger.Info)

		gl.Trace(context.Background(), time.Now(), sqlFn("SELECT 1", 1), nil)

		entries := recorded.FilterMessage("SQL Query").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	})
}

func TestGormLogger_PostingContext(t *testing.T) {
	postingCtx := func(keys ...string) context.Context {
		ctx := WithDocumentID(context.Background(), "doc-7")
		ctx = WithDocumentType(ctx, "writeoff")
		return WithLockKeys(ctx, keys)
	}

	t.Run("statements under stock locks use the tighter threshold", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Warn,
			WithSlowThreshold(time.Hour), WithLockedSlowThreshold(time.Millisecond))

		ctx := postingCtx("stock:wh-1:p-1", "stock:wh-1:p-2")
		gl.Trace(ctx, time.Now().Add(-time.Second), sqlFn("UPDATE stock_batches SET quantity = 0", 1), nil)

		entries := recorded.FilterMessage("Slow SQL while holding stock locks").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "doc-7", fields["document_id"])
		assert.Equal(t, "writeoff", fields["document_type"])
		assert.Equal(t, "update", fields["statement"])
		assert.EqualValues(t, 2, fields["locks_held"])
		assert.Equal(t, []any{"stock:wh-1:p-1", "stock:wh-1:p-2"}, fields["lock_keys"])
	})

	t.Run("same duration without locks stays quiet", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Warn,
			WithSlowThreshold(time.Hour), WithLockedSlowThreshold(time.Millisecond))

		gl.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn("SELECT * FROM stock_batches", 4), nil)

		assert.Zero(t, recorded.Len())
	})

	t.Run("lock keys are capped", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Warn)

		keys := make([]string, 20)
		for i := range keys {
			keys[i] = "stock:wh:" + string(rune('a'+i))
		}
		gl.Trace(postingCtx(keys...), time.Now(), sqlFn("INSERT INTO stock_document_lines", 1), errors.New("constraint"))

		entries := recorded.FilterMessage("SQL Error").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.EqualValues(t, 20, fields["locks_held"])
		assert.Len(t, fields["lock_keys"], maxLoggedLockKeys)
		assert.Equal(t, "insert", fields["statement"])
	})

	t.Run("messages carry the document", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Warn)

		gl.Warn(postingCtx(), "retrying %s", "savepoint")

		entries := recorded.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "retrying savepoint", entries[0].Message)
		assert.Equal(t, "writeoff", entries[0].ContextMap()["document_type"])
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("info"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
}
