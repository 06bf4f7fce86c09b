package stubs

import (
	"context"
	"sync"

	"covercraft/internal/models"
	"covercraft/internal/storage"
)

// MockLedger is an in-memory implementation of the storage.Ledger interface.
// Accounts live for the process lifetime.
type MockLedger struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
}

// NewMockLedger creates a new in-memory ledger
func NewMockLedger() *MockLedger {
	return &MockLedger{
		accounts: make(map[string]*models.Account),
	}
}

// Initialize does nothing for the in-memory ledger
func (m *MockLedger) Initialize(ctx context.Context) error {
	return nil
}

// GetAccount returns a copy of the user's account, creating it on first access
func (m *MockLedger) GetAccount(ctx context.Context, userID string) (models.Account, error) {
	if userID == "" {
		return models.Account{}, storage.ErrInvalidUserID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return *m.accountLocked(userID), nil
}

// IncrementCovers records one completed cover
func (m *MockLedger) IncrementCovers(ctx context.Context, userID string) error {
	if userID == "" {
		return storage.ErrInvalidUserID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.accountLocked(userID).CoversUsed++
	return nil
}

// AddBalance adjusts the user's balance, refusing to go below zero
func (m *MockLedger) AddBalance(ctx context.Context, userID string, amount int64) error {
	if userID == "" {
		return storage.ErrInvalidUserID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	acc := m.accountLocked(userID)
	if acc.Balance+amount < 0 {
		return storage.ErrInsufficientBalance
	}
	acc.Balance += amount
	return nil
}

// Close does nothing for the in-memory ledger
func (m *MockLedger) Close() error {
	return nil
}

// accountLocked must be called with mu held for writing
func (m *MockLedger) accountLocked(userID string) *models.Account {
	acc, ok := m.accounts[userID]
	if !ok {
		acc = &models.Account{UserID: userID}
		m.accounts[userID] = acc
	}
	return acc
}
