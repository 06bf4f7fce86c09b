package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"covercraft/internal/conversation"
)

const msgApology = "An error occurred while processing your request. Please try again."

// HandleUpdate processes a single update in its own goroutine.
// Updates arriving after Stop has begun are dropped.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.mu.Lock()
	if b.stopping {
		b.mu.Unlock()
		b.logger.Warn("Dropping update during shutdown", zap.Int("update_id", update.UpdateID))
		return
	}
	b.inflight.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.inflight.Done()
		b.processUpdate(ctx, update)
	}()
}

// processUpdate routes an update to the conversation and renders the replies
func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	var chatID int64
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic while handling update",
				zap.Any("panic", r),
				zap.Int("update_id", update.UpdateID),
			)
			if chatID != 0 {
				b.sendText(chatID, msgApology)
			}
		}
	}()

	var ev conversation.Event
	var ok bool
	switch {
	case update.Message != nil:
		ev, ok = b.messageEvent(update.Message)
	case update.CallbackQuery != nil:
		b.answerCallback(update.CallbackQuery)
		ev, ok = b.callbackEvent(update.CallbackQuery)
	}
	if !ok {
		return
	}
	chatID = ev.ChatID

	replies := b.conv.Handle(ctx, ev)
	b.sendReplies(chatID, replies)
}

func (b *Bot) rejectUnauthorized(user *tgbotapi.User, chatID int64, what string) {
	b.logger.Warn("Unauthorized access attempt",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.UserName),
		zap.String("kind", what),
	)
	if chatID != 0 {
		b.sendText(chatID, "Sorry, you are not authorized to use this bot.")
	}
}
