package ch

import (
	"context"
	"sync"
	"testing"

	"covercraft/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clickhouseTC "github.com/testcontainers/testcontainers-go/modules/clickhouse"
)

// runMigrations manually creates the ledger tables
func runMigrations(ctx context.Context, db *ClickHouseDB) error {
	_ = db.conn.Exec(ctx, "DROP TABLE IF EXISTS cover_events")
	_ = db.conn.Exec(ctx, "DROP TABLE IF EXISTS balance_events")

	err := db.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS cover_events (
			user_id String,
			created_at DateTime64(3)
		) ENGINE = MergeTree()
		ORDER BY (user_id, created_at)
	`)
	if err != nil {
		return err
	}

	return db.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS balance_events (
			user_id String,
			amount Int64,
			created_at DateTime64(3)
		) ENGINE = MergeTree()
		ORDER BY (user_id, created_at)
	`)
}

// setupTestDB creates a test ClickHouse instance using testcontainers
func setupTestDB(t *testing.T) (*ClickHouseDB, func()) {
	if testing.Short() {
		t.Skip("skipping ClickHouse container test in short mode")
	}
	ctx := context.Background()

	clickhouseContainer, err := clickhouseTC.Run(ctx,
		"clickhouse/clickhouse-server:24.3.3.102-alpine",
		clickhouseTC.WithUsername("default"),
		clickhouseTC.WithPassword(""),
		clickhouseTC.WithDatabase("default"),
	)
	require.NoError(t, err, "Failed to start ClickHouse container")

	host, err := clickhouseContainer.Host(ctx)
	require.NoError(t, err)

	port, err := clickhouseContainer.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	db, err := NewClickHouseDB(host, port.Int(), "default", "default", "", false)
	require.NoError(t, err, "Failed to connect to ClickHouse")

	// Schema is created directly; goose's ClickHouse dialect is exercised by cmd/migrate
	err = runMigrations(ctx, db)
	require.NoError(t, err, "Failed to run migrations")

	cleanup := func() {
		db.Close()
		clickhouseContainer.Terminate(ctx)
	}

	return db, cleanup
}

func TestClickHouseDB_GetAccountDefault(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	acc, err := db.GetAccount(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", acc.UserID)
	assert.Zero(t, acc.CoversUsed)
	assert.Zero(t, acc.Balance)
}

func TestClickHouseDB_IncrementCovers(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, db.IncrementCovers(ctx, "42"))
	}
	require.NoError(t, db.IncrementCovers(ctx, "7"))

	acc, err := db.GetAccount(ctx, "42")
	require.NoError(t, err)
	assert.EqualValues(t, 3, acc.CoversUsed)

	other, err := db.GetAccount(ctx, "7")
	require.NoError(t, err)
	assert.EqualValues(t, 1, other.CoversUsed)
}

func TestClickHouseDB_AddBalance(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, db.AddBalance(ctx, "42", 100))
	require.NoError(t, db.AddBalance(ctx, "42", 100))
	require.NoError(t, db.AddBalance(ctx, "42", -100))

	acc, err := db.GetAccount(ctx, "42")
	require.NoError(t, err)
	assert.EqualValues(t, 100, acc.Balance)

	err = db.AddBalance(ctx, "42", -200)
	assert.ErrorIs(t, err, storage.ErrInsufficientBalance)

	acc, err = db.GetAccount(ctx, "42")
	require.NoError(t, err)
	assert.EqualValues(t, 100, acc.Balance)
}

func TestClickHouseDB_ConcurrentOperations(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	numGoroutines := 10
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, db.IncrementCovers(ctx, "42"))
		}()
	}
	wg.Wait()

	acc, err := db.GetAccount(ctx, "42")
	require.NoError(t, err)
	assert.EqualValues(t, numGoroutines, acc.CoversUsed)
}

func TestClickHouseDB_Close(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	err := db.Close()
	assert.NoError(t, err)

	// Second close should not panic
	err = db.Close()
	assert.NoError(t, err)
}

func TestClickHouseDB_EmptyUserID(t *testing.T) {
	db := &ClickHouseDB{}
	ctx := context.Background()

	_, err := db.GetAccount(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidUserID)
	assert.ErrorIs(t, db.IncrementCovers(ctx, ""), storage.ErrInvalidUserID)
	assert.ErrorIs(t, db.AddBalance(ctx, "", 1), storage.ErrInvalidUserID)
}
