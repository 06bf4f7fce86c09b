package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"covercraft/internal/httpx"
	"covercraft/internal/models"
)

const (
	defaultFlutterwaveBaseURL = "https://api.flutterwave.com"
	defaultRedirectURL        = "https://t.me"
	fallbackEmail             = "no-reply@example.com"
	fallbackName              = "User"
)

type flutterwaveCustomer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type flutterwaveCustomizations struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type flutterwavePaymentRequest struct {
	TxRef          string                    `json:"tx_ref"`
	Amount         string                    `json:"amount"`
	Currency       string                    `json:"currency"`
	RedirectURL    string                    `json:"redirect_url"`
	PaymentOptions string                    `json:"payment_options"`
	Customer       flutterwaveCustomer       `json:"customer"`
	Customizations flutterwaveCustomizations `json:"customizations"`
}

type flutterwavePaymentResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

// Flutterwave creates hosted checkout links through the Flutterwave v3 API.
type Flutterwave struct {
	baseURL     string
	secretKey   string
	redirectURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

type FlutterwaveOption func(*Flutterwave)

func WithFlutterwaveBaseURL(baseURL string) FlutterwaveOption {
	return func(f *Flutterwave) {
		if s := strings.TrimRight(strings.TrimSpace(baseURL), "/"); s != "" {
			f.baseURL = s
		}
	}
}

func WithRedirectURL(redirectURL string) FlutterwaveOption {
	return func(f *Flutterwave) {
		if s := strings.TrimSpace(redirectURL); s != "" {
			f.redirectURL = s
		}
	}
}

func WithFlutterwaveHTTPClient(c *http.Client) FlutterwaveOption {
	return func(f *Flutterwave) {
		f.httpClient = c
	}
}

// NewFlutterwave creates a Flutterwave gateway. The secret key is required.
func NewFlutterwave(secretKey string, logger *zap.Logger, opts ...FlutterwaveOption) (*Flutterwave, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, errors.New("payment: flutterwave secret key must not be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Flutterwave{
		baseURL:     defaultFlutterwaveBaseURL,
		secretKey:   secretKey,
		redirectURL: defaultRedirectURL,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *Flutterwave) CreateCheckout(ctx context.Context, req CheckoutRequest) (models.Checkout, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return models.Checkout{}, fmt.Errorf("%w: user id is required", ErrCheckoutFailed)
	}

	email := strings.TrimSpace(req.Contact)
	if email == "" {
		email = fallbackEmail
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = fallbackName
	}

	txRef := NewTxRef(req.UserID)
	body := flutterwavePaymentRequest{
		TxRef:          txRef,
		Amount:         formatAmount(CoverPrice),
		Currency:       Currency,
		RedirectURL:    f.redirectURL,
		PaymentOptions: "card",
		Customer:       flutterwaveCustomer{Email: email, Name: name},
		Customizations: flutterwaveCustomizations{
			Title:       "CoverCraft Payment",
			Description: "Payment for extra book cover",
		},
	}

	var res flutterwavePaymentResponse
	err := httpx.PostJSON(ctx, f.httpClient, f.baseURL+"/v3/payments",
		map[string]string{"Authorization": "Bearer " + f.secretKey}, body, &res)
	if err != nil {
		f.logger.Error("Flutterwave request failed", zap.Error(err), zap.String("tx_ref", txRef))
		return models.Checkout{}, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}
	if res.Status != "success" || strings.TrimSpace(res.Data.Link) == "" {
		f.logger.Error("Flutterwave rejected payment",
			zap.String("status", res.Status),
			zap.String("message", res.Message),
			zap.String("tx_ref", txRef),
		)
		return models.Checkout{}, fmt.Errorf("%w: status %q", ErrCheckoutFailed, res.Status)
	}

	return models.Checkout{
		TxRef:    txRef,
		URL:      res.Data.Link,
		Amount:   CoverPrice,
		Currency: Currency,
	}, nil
}
