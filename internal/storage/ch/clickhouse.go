package ch

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"covercraft/internal/models"
	"covercraft/internal/storage"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouseDB is an append-only ledger: every completed cover and every balance
// change is an event row, and account totals are aggregated on read.
type ClickHouseDB struct {
	conn clickhouse.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(host string, port int, database, user, password string, useTLS bool) (*ClickHouseDB, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
	}

	// Configure TLS if enabled
	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test the connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Initialize is a no-op - tables are managed via migrations
func (db *ClickHouseDB) Initialize(ctx context.Context) error {
	return nil
}

// GetAccount aggregates the user's cover and balance events.
// A user with no events gets a zero account, so nothing is written on first access.
func (db *ClickHouseDB) GetAccount(ctx context.Context, userID string) (models.Account, error) {
	if userID == "" {
		return models.Account{}, storage.ErrInvalidUserID
	}

	acc := models.Account{UserID: userID}
	row := db.conn.QueryRow(ctx, `
		SELECT
			(SELECT toInt64(count()) FROM cover_events WHERE user_id = ?),
			(SELECT toInt64(sum(amount)) FROM balance_events WHERE user_id = ?)`,
		userID, userID)
	if err := row.Scan(&acc.CoversUsed, &acc.Balance); err != nil {
		return models.Account{}, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

// IncrementCovers records a completed cover
func (db *ClickHouseDB) IncrementCovers(ctx context.Context, userID string) error {
	if userID == "" {
		return storage.ErrInvalidUserID
	}

	err := db.conn.Exec(ctx, `INSERT INTO cover_events (user_id, created_at) VALUES (?, ?)`,
		userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to increment covers: %w", err)
	}
	return nil
}

// AddBalance records a balance change. Debits are checked against the current
// aggregate first; callers serialize per user so the check is not raced by the same user.
func (db *ClickHouseDB) AddBalance(ctx context.Context, userID string, amount int64) error {
	if userID == "" {
		return storage.ErrInvalidUserID
	}

	if amount < 0 {
		acc, err := db.GetAccount(ctx, userID)
		if err != nil {
			return err
		}
		if acc.Balance+amount < 0 {
			return storage.ErrInsufficientBalance
		}
	}

	err := db.conn.Exec(ctx, `INSERT INTO balance_events (user_id, amount, created_at) VALUES (?, ?, ?)`,
		userID, amount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to add balance: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	if db.conn == nil {
		return nil
	}
	err := db.conn.Close()
	db.conn = nil
	return err
}
