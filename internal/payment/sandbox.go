package payment

import (
	"context"
	"fmt"

	"covercraft/internal/models"
)

// Sandbox issues placeholder checkout links without contacting a provider.
type Sandbox struct{}

func (Sandbox) CreateCheckout(_ context.Context, req CheckoutRequest) (models.Checkout, error) {
	if req.UserID == "" {
		return models.Checkout{}, fmt.Errorf("%w: user id is required", ErrCheckoutFailed)
	}
	txRef := NewTxRef(req.UserID)
	return models.Checkout{
		TxRef:    txRef,
		URL:      "https://flutterwave.com/pay/placeholder_" + txRef,
		Amount:   CoverPrice,
		Currency: Currency,
	}, nil
}
