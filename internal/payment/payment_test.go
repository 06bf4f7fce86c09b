package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"covercraft/internal/models"
)

func TestTxRef_RoundTrip(t *testing.T) {
	ref := NewTxRef("123456")
	assert.True(t, strings.HasPrefix(ref, "cover_123456_"))

	userID, err := UserFromTxRef(ref)
	require.NoError(t, err)
	assert.Equal(t, "123456", userID)

	assert.NotEqual(t, ref, NewTxRef("123456"))
}

func TestUserFromTxRef_Invalid(t *testing.T) {
	for _, ref := range []string{"", "order_1_abc", "cover_", "cover__abc", "cover_123_"} {
		_, err := UserFromTxRef(ref)
		assert.ErrorIs(t, err, ErrInvalidTxRef, ref)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1.00", formatAmount(100))
	assert.Equal(t, "0.05", formatAmount(5))
	assert.Equal(t, "12.34", formatAmount(1234))
}

func TestSandbox_CreateCheckout(t *testing.T) {
	c, err := Sandbox{}.CreateCheckout(context.Background(), CheckoutRequest{UserID: "42"})
	require.NoError(t, err)
	assert.Equal(t, "https://flutterwave.com/pay/placeholder_"+c.TxRef, c.URL)
	assert.Equal(t, CoverPrice, c.Amount)
	assert.Equal(t, "USD", c.Currency)

	_, err = Sandbox{}.CreateCheckout(context.Background(), CheckoutRequest{})
	assert.ErrorIs(t, err, ErrCheckoutFailed)
}

func TestFlutterwave_CreateCheckout(t *testing.T) {
	var got flutterwavePaymentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/payments", r.URL.Path)
		assert.Equal(t, "Bearer FLWSECK-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"success","message":"Hosted Link","data":{"link":"https://checkout.flutterwave.com/v3/hosted/pay/abc"}}`))
	}))
	defer srv.Close()

	fw, err := NewFlutterwave("FLWSECK-test", zap.NewNop(), WithFlutterwaveBaseURL(srv.URL), WithFlutterwaveHTTPClient(srv.Client()))
	require.NoError(t, err)

	c, err := fw.CreateCheckout(context.Background(), CheckoutRequest{UserID: "42"})
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.flutterwave.com/v3/hosted/pay/abc", c.URL)
	assert.Equal(t, got.TxRef, c.TxRef)
	assert.True(t, strings.HasPrefix(got.TxRef, "cover_42_"))
	assert.Equal(t, "1.00", got.Amount)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "no-reply@example.com", got.Customer.Email)
	assert.Equal(t, "User", got.Customer.Name)
}

func TestFlutterwave_CreateCheckoutFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "error status", status: http.StatusOK, body: `{"status":"error","message":"Invalid key"}`},
		{name: "missing link", status: http.StatusOK, body: `{"status":"success","data":{}}`},
		{name: "http failure", status: http.StatusUnauthorized, body: `{"status":"error"}`},
		{name: "malformed json", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			fw, err := NewFlutterwave("key", nil, WithFlutterwaveBaseURL(srv.URL))
			require.NoError(t, err)

			_, err = fw.CreateCheckout(context.Background(), CheckoutRequest{UserID: "42", DisplayName: "Ann"})
			assert.ErrorIs(t, err, ErrCheckoutFailed)
		})
	}
}

func TestNewFlutterwave_RequiresKey(t *testing.T) {
	_, err := NewFlutterwave("", nil)
	assert.Error(t, err)
}

type fakeCrediter struct {
	mu      sync.Mutex
	credits map[string]int64
	err     error
}

func (f *fakeCrediter) AddBalance(_ context.Context, userID string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.credits == nil {
		f.credits = make(map[string]int64)
	}
	f.credits[userID] += amount
	return nil
}

func webhookRequest(hash, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/payments/flutterwave", strings.NewReader(body))
	if hash != "" {
		req.Header.Set("verif-hash", hash)
	}
	return req
}

const chargeCompleted = `{"event":"charge.completed","data":{"id":1,"tx_ref":"cover_42_9b2f","amount":1,"currency":"USD","status":"successful"}}`

func TestWebhookHandler(t *testing.T) {
	tests := []struct {
		name       string
		hash       string
		body       string
		wantCode   int
		wantCredit int64
	}{
		{name: "credits successful charge", hash: "s3cret", body: chargeCompleted, wantCode: http.StatusOK, wantCredit: 100},
		{name: "missing hash", body: chargeCompleted, wantCode: http.StatusUnauthorized},
		{name: "wrong hash", hash: "nope", body: chargeCompleted, wantCode: http.StatusUnauthorized},
		{name: "bad json", hash: "s3cret", body: `{`, wantCode: http.StatusBadRequest},
		{
			name:     "failed charge ignored",
			hash:     "s3cret",
			body:     `{"event":"charge.completed","data":{"tx_ref":"cover_42_9b2f","amount":1,"currency":"USD","status":"failed"}}`,
			wantCode: http.StatusOK,
		},
		{
			name:     "other currency ignored",
			hash:     "s3cret",
			body:     `{"event":"charge.completed","data":{"tx_ref":"cover_42_9b2f","amount":1,"currency":"NGN","status":"successful"}}`,
			wantCode: http.StatusOK,
		},
		{
			name:     "foreign tx_ref ignored",
			hash:     "s3cret",
			body:     `{"event":"charge.completed","data":{"tx_ref":"shop-77","amount":1,"currency":"USD","status":"successful"}}`,
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &fakeCrediter{}
			h := NewWebhookHandler("s3cret", ledger, zap.NewNop())

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, webhookRequest(tt.hash, tt.body))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantCredit, ledger.credits["42"])
		})
	}
}

func TestWebhookHandler_Duplicate(t *testing.T) {
	ledger := &fakeCrediter{}
	h := NewWebhookHandler("s3cret", ledger, zap.NewNop())

	var notified int
	h.OnCredit = func(models.PaymentNotice) { notified++ }

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, webhookRequest("s3cret", chargeCompleted))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, int64(100), ledger.credits["42"])
	assert.Equal(t, 1, notified)
}

func TestWebhookHandler_LedgerFailureAllowsRetry(t *testing.T) {
	ledger := &fakeCrediter{err: errors.New("ledger down")}
	h := NewWebhookHandler("s3cret", ledger, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, webhookRequest("s3cret", chargeCompleted))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	ledger.err = nil
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, webhookRequest("s3cret", chargeCompleted))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(100), ledger.credits["42"])
}

func TestWebhookHandler_MethodNotAllowed(t *testing.T) {
	h := NewWebhookHandler("s3cret", &fakeCrediter{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/flutterwave", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
