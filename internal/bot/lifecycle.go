package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Start runs the bot in polling mode until stop is closed. Updates are handled
// with ctx, which should outlive stop so in-flight work can finish during Stop.
func (b *Bot) Start(ctx context.Context, stop <-chan struct{}) error {
	b.logger.Info("Starting bot in polling mode")

	// Remove webhook (if any was set previously)
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("Failed to delete webhook", zap.Error(err))
	}
	b.registerCommands()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Bot started successfully. Waiting for updates...")

	for {
		select {
		case <-stop:
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// StartWebhook registers {baseURL}/telegram-webhook/{secret} with Telegram
func (b *Bot) StartWebhook(baseURL string) error {
	webhookURL := baseURL + webhookPath + "/" + b.webhookSecret
	b.logger.Info("Setting up webhook", zap.String("webhook_url", baseURL+webhookPath+"/***"))

	webhookConfig, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	webhookConfig.MaxConnections = 40

	if _, err := b.api.Request(webhookConfig); err != nil {
		b.logger.Error("Failed to set webhook", zap.Error(err))
		return err
	}
	b.webhookMode = true
	b.registerCommands()

	info, err := b.api.GetWebhookInfo()
	if err != nil {
		b.logger.Warn("Failed to get webhook info", zap.Error(err))
	} else {
		b.logger.Info("Webhook set successfully",
			zap.String("url", info.URL),
			zap.Int("pending_updates", info.PendingUpdateCount),
		)
	}
	return nil
}

// RunJanitor sweeps expired sessions every interval until ctx is cancelled
func (b *Bot) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := b.conv.Sweep(); n > 0 {
				b.logger.Info("Expired sessions removed", zap.Int("count", n))
			}
		}
	}
}

// Stop refuses new updates, waits for in-flight ones and removes the webhook if one was set
func (b *Bot) Stop(ctx context.Context) {
	b.mu.Lock()
	b.stopping = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("Timed out waiting for in-flight updates")
	}

	if b.webhookMode {
		if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			b.logger.Warn("Failed to delete webhook", zap.Error(err))
		} else {
			b.logger.Info("Webhook deleted")
		}
	}
}

func (b *Bot) registerCommands() {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Show free covers left"},
		tgbotapi.BotCommand{Command: "generate", Description: "Create a book cover"},
		tgbotapi.BotCommand{Command: "cancel", Description: "Stop the current request"},
	)
	if _, err := b.api.Request(cfg); err != nil {
		b.logger.Warn("Failed to register bot commands", zap.Error(err))
	}
}
