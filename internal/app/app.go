package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"covercraft/internal/bot"
	"covercraft/internal/config"
	"covercraft/internal/conversation"
	"covercraft/internal/payment"
	"covercraft/internal/storage"
)

const janitorInterval = time.Minute

// App represents the application
type App struct {
	config    *config.Config
	logger    *zap.Logger
	ledger    storage.Ledger
	bot       *bot.Bot
	server    *http.Server
	startTime time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates and initializes a new application instance
func New() (*App, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		config:    cfg,
		logger:    logger,
		startTime: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}

	logger.Info("Starting CoverCraft Bot...")

	if err := app.initLedger(); err != nil {
		cancel()
		return nil, err
	}

	if err := app.initBot(); err != nil {
		cancel()
		_ = app.ledger.Close()
		return nil, err
	}

	app.initHTTPServer()
	return app, nil
}

func (a *App) initLedger() error {
	ledger, err := newLedger(a.ctx, a.config, a.logger)
	if err != nil {
		return err
	}
	if err := ledger.Initialize(a.ctx); err != nil {
		_ = ledger.Close()
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}
	a.logger.Info("Ledger initialized", zap.String("backend", a.config.LedgerBackend))

	a.ledger = ledger
	return nil
}

func (a *App) initBot() error {
	gateway, err := newGateway(a.config, a.logger)
	if err != nil {
		return err
	}
	covers, err := newCoverService(a.config, a.logger)
	if err != nil {
		return err
	}

	ctrl := conversation.New(a.ledger, covers, gateway, conversation.Config{
		SessionTTL: a.config.SessionTTL,
	}, a.logger.Named("conversation"))

	telegramBot, err := bot.NewBot(a.config.TelegramToken, ctrl, a.config.AllowedUserIDs,
		a.config.TelegramWebhookSecret, a.logger.Named("bot"))
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	a.logger.Info("Bot created", zap.Int64s("allowed_users", a.config.AllowedUserIDs))

	a.bot = telegramBot
	return nil
}

func (a *App) initHTTPServer() {
	payments := payment.NewWebhookHandler(a.config.FlutterwaveWebhookHash, a.ledger, a.logger.Named("payment"))
	payments.OnCredit = a.bot.NotifyPayment

	mode := "polling"
	if a.config.WebhookMode {
		mode = "webhook"
	}

	a.server = &http.Server{
		Addr: ":" + a.config.Port,
		Handler: newRouter(routes{
			startTime: a.startTime,
			mode:      mode,
			telegram:  a.bot.WebhookHandler(a.ctx),
			payments:  payments,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.Info("Starting HTTP server", zap.String("port", a.config.Port))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(a.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.bot.RunJanitor(ctx, janitorInterval)

	if a.config.WebhookMode {
		if err := a.bot.StartWebhook(a.config.BaseURL); err != nil {
			_ = a.Shutdown()
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
		a.logger.Info("Webhook configured. Bot will receive updates via HTTP endpoint /telegram-webhook/{secret}")
	} else {
		go func() {
			// handlers get a.ctx, which is cancelled only after bot.Stop
			if err := a.bot.Start(a.ctx, ctx.Done()); err != nil {
				a.logger.Error("Polling stopped", zap.Error(err))
				stop()
			}
		}()
	}

	<-ctx.Done()

	a.logger.Info("Shutting down...")
	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	defer func() { _ = a.logger.Sync() }()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	a.bot.Stop(shutdownCtx)
	a.cancel()

	if err := a.ledger.Close(); err != nil {
		a.logger.Error("Error closing ledger", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	return nil
}
