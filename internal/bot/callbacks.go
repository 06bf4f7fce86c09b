package bot

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"covercraft/internal/conversation"
)

// answerCallback clears the loading state on the pressed button
func (b *Bot) answerCallback(query *tgbotapi.CallbackQuery) {
	if b.api == nil {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn("Failed to answer callback query", zap.Error(err))
	}
}

// callbackEvent converts an inline keyboard click into a callback event
func (b *Bot) callbackEvent(query *tgbotapi.CallbackQuery) (conversation.Event, bool) {
	if query.From == nil {
		return conversation.Event{}, false
	}

	var chatID int64
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	}
	if !b.isAllowed(query.From.ID) {
		b.rejectUnauthorized(query.From, 0, "callback")
		return conversation.Event{}, false
	}
	if chatID == 0 {
		// inline-mode messages carry no chat; fall back to a private chat with the user
		chatID = query.From.ID
	}

	return conversation.Event{
		Kind:        conversation.EventCallback,
		UserID:      strconv.FormatInt(query.From.ID, 10),
		ChatID:      chatID,
		DisplayName: displayName(query.From),
		Data:        query.Data,
	}, true
}
