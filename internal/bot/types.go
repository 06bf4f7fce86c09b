package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"covercraft/internal/conversation"
)

// telegramAPI is the subset of *tgbotapi.BotAPI the bot uses
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetWebhookInfo() (tgbotapi.WebhookInfo, error)
}

// Conversation advances per-user sessions for inbound events
type Conversation interface {
	Handle(ctx context.Context, ev conversation.Event) []conversation.Reply
	Sweep() int
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	api          telegramAPI
	conv         Conversation
	allowedUsers map[int64]bool
	logger       *zap.Logger
	webhookMode  bool

	// webhookSecret is the last path segment Telegram posts updates to
	webhookSecret string

	mu       sync.Mutex
	stopping bool
	inflight sync.WaitGroup
}
