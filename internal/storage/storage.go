package storage

import (
	"context"
	"errors"

	"covercraft/internal/models"
)

var (
	// ErrInvalidUserID is returned when a ledger call is made without a user ID
	ErrInvalidUserID = errors.New("storage: user id is required")
	// ErrInsufficientBalance is returned when a debit would make a balance negative
	ErrInsufficientBalance = errors.New("storage: insufficient balance")
)

// Ledger defines the credit ledger operations.
// Implementations must be safe for concurrent use across users.
type Ledger interface {
	// GetAccount returns the account for userID, creating a zero account on first access
	GetAccount(ctx context.Context, userID string) (models.Account, error)

	// IncrementCovers records one completed cover for userID
	IncrementCovers(ctx context.Context, userID string) error

	// AddBalance adds amount (minor units, may be negative for a debit) to the user's balance
	AddBalance(ctx context.Context, userID string, amount int64) error

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
