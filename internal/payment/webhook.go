package payment

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"covercraft/internal/models"
)

const (
	eventChargeCompleted = "charge.completed"
	statusSuccessful     = "successful"
	verifHashHeader      = "verif-hash"
	maxWebhookBody       = 64 << 10
)

// Crediter adds funds to a user's balance.
type Crediter interface {
	AddBalance(ctx context.Context, userID string, amount int64) error
}

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID       int64   `json:"id"`
		TxRef    string  `json:"tx_ref"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
		Status   string  `json:"status"`
	} `json:"data"`
}

// WebhookHandler credits balances from Flutterwave charge notifications.
type WebhookHandler struct {
	secretHash string
	ledger     Crediter
	logger     *zap.Logger

	mu   sync.Mutex
	seen map[string]bool
	// OnCredit is called after a balance has been credited
	OnCredit func(models.PaymentNotice)
}

// NewWebhookHandler creates a handler that accepts requests whose verif-hash
// header matches secretHash.
func NewWebhookHandler(secretHash string, ledger Crediter, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		secretHash: secretHash,
		ledger:     ledger,
		logger:     logger,
		seen:       make(map[string]bool),
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	if !h.authorized(r.Header.Get(verifHashHeader)) {
		h.logger.Warn("Rejected payment webhook with invalid signature",
			zap.String("remote_addr", r.RemoteAddr),
		)
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Warn("Failed to decode payment webhook", zap.Error(err))
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	notice, ok := h.notice(payload)
	if !ok {
		writeStatus(w, http.StatusOK, "ignored")
		return
	}

	if !h.claim(notice.TxRef) {
		h.logger.Info("Duplicate payment webhook", zap.String("tx_ref", notice.TxRef))
		writeStatus(w, http.StatusOK, "duplicate")
		return
	}

	if err := h.ledger.AddBalance(r.Context(), notice.UserID, notice.Amount); err != nil {
		h.release(notice.TxRef)
		h.logger.Error("Failed to credit balance",
			zap.Error(err),
			zap.String("user_id", notice.UserID),
			zap.String("tx_ref", notice.TxRef),
		)
		http.Error(w, `{"error":"Failed to credit balance"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("Balance credited",
		zap.String("user_id", notice.UserID),
		zap.String("tx_ref", notice.TxRef),
		zap.Int64("amount", notice.Amount),
	)
	if h.OnCredit != nil {
		h.OnCredit(notice)
	}
	writeStatus(w, http.StatusOK, "credited")
}

func (h *WebhookHandler) authorized(got string) bool {
	if h.secretHash == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secretHash)) == 1
}

func (h *WebhookHandler) notice(p webhookPayload) (models.PaymentNotice, bool) {
	if p.Event != eventChargeCompleted || p.Data.Status != statusSuccessful {
		h.logger.Debug("Ignoring payment event",
			zap.String("event", p.Event),
			zap.String("status", p.Data.Status),
		)
		return models.PaymentNotice{}, false
	}
	if !strings.EqualFold(p.Data.Currency, Currency) {
		h.logger.Warn("Ignoring payment in unexpected currency",
			zap.String("currency", p.Data.Currency),
			zap.String("tx_ref", p.Data.TxRef),
		)
		return models.PaymentNotice{}, false
	}
	userID, err := UserFromTxRef(p.Data.TxRef)
	if err != nil {
		h.logger.Warn("Ignoring payment with foreign tx_ref", zap.String("tx_ref", p.Data.TxRef))
		return models.PaymentNotice{}, false
	}
	amount := int64(math.Round(p.Data.Amount * 100))
	if amount <= 0 {
		return models.PaymentNotice{}, false
	}
	return models.PaymentNotice{
		TxRef:    p.Data.TxRef,
		UserID:   userID,
		Amount:   amount,
		Currency: Currency,
		Status:   p.Data.Status,
		At:       time.Now(),
	}, true
}

// claim marks txRef as in flight, reporting false if it was already seen
func (h *WebhookHandler) claim(txRef string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.seen[txRef] {
		return false
	}
	h.seen[txRef] = true
	return true
}

func (h *WebhookHandler) release(txRef string) {
	h.mu.Lock()
	delete(h.seen, txRef)
	h.mu.Unlock()
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
