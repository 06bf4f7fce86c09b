package bot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// NewBot creates a new Telegram bot. An empty allowedUserIDs admits everyone.
// An empty webhookSecret is derived from the token.
func NewBot(token string, conv Conversation, allowedUserIDs []int64, webhookSecret string, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	b := newBot(api, conv, allowedUserIDs, logger)
	b.webhookSecret = webhookSecret
	if b.webhookSecret == "" {
		b.webhookSecret = deriveWebhookSecret(token)
	}
	return b, nil
}

func deriveWebhookSecret(token string) string {
	sum := sha256.Sum256([]byte("telegram-webhook:" + token))
	return hex.EncodeToString(sum[:16])
}

func newBot(api telegramAPI, conv Conversation, allowedUserIDs []int64, logger *zap.Logger) *Bot {
	allowedUsers := make(map[int64]bool)
	for _, id := range allowedUserIDs {
		allowedUsers[id] = true
	}
	return &Bot{
		api:          api,
		conv:         conv,
		allowedUsers: allowedUsers,
		logger:       logger,
	}
}

func (b *Bot) isAllowed(userID int64) bool {
	return len(b.allowedUsers) == 0 || b.allowedUsers[userID]
}
