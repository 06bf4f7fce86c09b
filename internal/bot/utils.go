package bot

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"covercraft/internal/conversation"
	"covercraft/internal/models"
)

// sendReplies renders conversation replies in order
func (b *Bot) sendReplies(chatID int64, replies []conversation.Reply) {
	for _, r := range replies {
		switch r.Kind {
		case conversation.ReplyPhoto:
			photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(r.PhotoURL))
			photo.Caption = r.Text
			if kb, ok := keyboard(r.Buttons); ok {
				photo.ReplyMarkup = kb
			}
			if !b.send(photo) {
				// Telegram could not fetch the image; the link still reaches the user
				b.sendText(chatID, r.Text+"\n"+r.PhotoURL)
			}
		default:
			msg := tgbotapi.NewMessage(chatID, r.Text)
			if kb, ok := keyboard(r.Buttons); ok {
				msg.ReplyMarkup = kb
			}
			b.send(msg)
		}
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

// send reports whether Telegram accepted the message
func (b *Bot) send(c tgbotapi.Chattable) bool {
	if b.api == nil {
		return true // For testing
	}
	if _, err := b.api.Send(c); err != nil {
		b.logger.Error("Failed to send message", zap.Error(err))
		return false
	}
	return true
}

func keyboard(rows [][]conversation.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	var kb [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var buttons []tgbotapi.InlineKeyboardButton
		for _, btn := range row {
			if btn.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
			}
		}
		kb = append(kb, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(kb...), true
}

// NotifyPayment tells the payer that their balance was credited
func (b *Bot) NotifyPayment(n models.PaymentNotice) {
	chatID, err := strconv.ParseInt(n.UserID, 10, 64)
	if err != nil {
		b.logger.Warn("Cannot notify payment for non-numeric user", zap.String("user_id", n.UserID))
		return
	}
	b.sendText(chatID, fmt.Sprintf("Payment received: %d.%02d %s added to your balance. Use /generate to create a cover.",
		n.Amount/100, n.Amount%100, n.Currency))
}
