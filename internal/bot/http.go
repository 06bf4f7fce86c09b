package bot

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	webhookPath    = "/telegram-webhook"
	maxUpdateBytes = 1 << 20
)

// WebhookHandler accepts Telegram updates posted to {webhookPath}/{secret}.
// Updates are handled in the background so Telegram gets a fast 200.
func (b *Bot) WebhookHandler(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		if !b.webhookAuthorized(r.URL.Path) {
			b.logger.Warn("Rejected webhook update with invalid secret",
				zap.String("remote_addr", r.RemoteAddr),
			)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var update tgbotapi.Update
		body := http.MaxBytesReader(w, r.Body, maxUpdateBytes)
		if err := json.NewDecoder(body).Decode(&update); err != nil {
			b.logger.Warn("Failed to decode webhook update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		b.HandleUpdate(ctx, update)
		w.WriteHeader(http.StatusOK)
	}
}

func (b *Bot) webhookAuthorized(path string) bool {
	got, ok := strings.CutPrefix(path, webhookPath+"/")
	if !ok || got == "" || b.webhookSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(b.webhookSecret)) == 1
}
