// Package payment issues checkout links for extra covers and credits balances
// from provider webhooks.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"covercraft/internal/models"
)

const (
	// CoverPrice is the price of one cover in minor units
	CoverPrice int64 = 100
	// Currency is the checkout currency
	Currency = "USD"

	txRefPrefix = "cover_"
)

var (
	// ErrCheckoutFailed is returned when the provider does not issue a checkout link
	ErrCheckoutFailed = errors.New("payment: checkout failed")
	// ErrInvalidTxRef is returned for transaction references not issued by this service
	ErrInvalidTxRef = errors.New("payment: invalid tx_ref")
)

// CheckoutRequest identifies the paying user.
type CheckoutRequest struct {
	UserID      string
	DisplayName string
	Contact     string
}

// Gateway creates checkout links for one cover.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (models.Checkout, error)
}

// NewTxRef returns a unique transaction reference that embeds the user ID.
func NewTxRef(userID string) string {
	return fmt.Sprintf("%s%s_%s", txRefPrefix, userID, uuid.NewString())
}

// UserFromTxRef extracts the user ID from a reference created by NewTxRef.
func UserFromTxRef(txRef string) (string, error) {
	rest, ok := strings.CutPrefix(txRef, txRefPrefix)
	if !ok {
		return "", ErrInvalidTxRef
	}
	i := strings.LastIndex(rest, "_")
	if i <= 0 || i == len(rest)-1 {
		return "", ErrInvalidTxRef
	}
	return rest[:i], nil
}

func formatAmount(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}
