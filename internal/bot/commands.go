package bot

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"covercraft/internal/conversation"
)

// messageEvent converts a message into a command or text event
func (b *Bot) messageEvent(message *tgbotapi.Message) (conversation.Event, bool) {
	if message.From == nil || message.Chat == nil {
		return conversation.Event{}, false
	}
	if !b.isAllowed(message.From.ID) {
		b.rejectUnauthorized(message.From, message.Chat.ID, "message")
		return conversation.Event{}, false
	}

	ev := conversation.Event{
		UserID:      strconv.FormatInt(message.From.ID, 10),
		ChatID:      message.Chat.ID,
		DisplayName: displayName(message.From),
	}

	switch {
	case message.IsCommand():
		ev.Kind = conversation.EventCommand
		ev.Command = message.Command()
	case message.Text != "":
		ev.Kind = conversation.EventText
		ev.Text = message.Text
	default:
		return conversation.Event{}, false
	}
	return ev, true
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}
