package persistence

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
)

// newMockDatabase opens a Database over sqlmock speaking the postgres dialect
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	// gorm pings the pool when it opens
	mock.ExpectPing()
	d, err := Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}))
	require.NoError(t, err)

	return d, mock
}

func TestDatabase_Ping(t *testing.T) {
	d, mock := newMockDatabase(t)

	mock.ExpectPing()
	require.NoError(t, d.Ping())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	d, mock := newMockDatabase(t)

	mock.ExpectClose()
	require.NoError(t, d.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Stats(t *testing.T) {
	d, mock := newMockDatabase(t)
	defer func() {
		mock.ExpectClose()
		_ = d.Close()
	}()

	stats, err := d.Stats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.OpenConnections, 0)
	assert.Equal(t, stats.InUse+stats.Idle, stats.OpenConnections)
	assert.Equal(t, time.Duration(0), stats.WaitDuration)
}

func TestOpen_Sqlite(t *testing.T) {
	db := newTestDB(t)

	var tables []string
	require.NoError(t, db.Raw("SELECT name FROM sqlite_master WHERE type = 'table'").Scan(&tables).Error)
	assert.Contains(t, tables, "stock_batches")
	assert.Contains(t, tables, "stock_documents")
	assert.Contains(t, tables, "audit_log")
	assert.Contains(t, tables, "outbox_events")
}
