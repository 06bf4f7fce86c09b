// Package conversation drives the cover request flow: one session per user,
// moved through platform choice and title entry, gated by free-tier credits.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"covercraft/internal/models"
	"covercraft/internal/payment"
	"covercraft/internal/storage"
)

const (
	DefaultFreeLimit     = 10
	DefaultMaxTitleRunes = 50
	DefaultSessionTTL    = 10 * time.Minute
)

// User-facing messages
const (
	msgApology            = "Sorry, something went wrong. Please try /generate again."
	msgPaymentUnavailable = "Payment is unavailable right now, please try again later."
	msgChoosePlatform     = "Choose a platform for your cover:"
	msgAskTitle           = "Great, %s it is. Now send me the book title (up to %d characters)."
	msgCancelled          = "Cancelled. Use /generate to start again."
	msgNothingToCancel    = "Nothing to cancel."
	msgUnknownCommand     = "Unknown command. Use /generate to create a cover or /cancel to stop."
)

// CoverService produces a cover and never fails.
type CoverService interface {
	Produce(ctx context.Context, req models.CoverRequest) models.CoverResult
}

// Config tunes the controller. Zero values fall back to the defaults.
type Config struct {
	FreeLimit     int64
	Price         int64
	MaxTitleRunes int
	SessionTTL    time.Duration
}

func (c Config) withDefaults() Config {
	if c.FreeLimit <= 0 {
		c.FreeLimit = DefaultFreeLimit
	}
	if c.Price <= 0 {
		c.Price = payment.CoverPrice
	}
	if c.MaxTitleRunes <= 0 {
		c.MaxTitleRunes = DefaultMaxTitleRunes
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = DefaultSessionTTL
	}
	return c
}

// Controller owns the per-user sessions and advances them on inbound events.
type Controller struct {
	cfg      Config
	sessions *Sessions
	ledger   storage.Ledger
	covers   CoverService
	gateway  payment.Gateway
	logger   *zap.Logger
}

// New creates a controller.
func New(ledger storage.Ledger, covers CoverService, gateway payment.Gateway, cfg Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &Controller{
		cfg:      cfg,
		sessions: NewSessions(cfg.SessionTTL),
		ledger:   ledger,
		covers:   covers,
		gateway:  gateway,
		logger:   logger,
	}
}

// Session returns a copy of the user's live session.
func (c *Controller) Session(userID string) (Session, bool) {
	return c.sessions.Get(userID)
}

// Sweep removes expired sessions.
func (c *Controller) Sweep() int {
	return c.sessions.Sweep()
}

// Handle processes one event while holding the user's lock. Events for the
// same user are processed one at a time; a panic becomes an apology reply.
func (c *Controller) Handle(ctx context.Context, ev Event) (replies []Reply) {
	if ev.UserID == "" {
		return nil
	}

	unlock := c.sessions.Lock(ev.UserID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Recovered from panic in conversation",
				zap.Any("panic", r),
				zap.String("user_id", ev.UserID),
			)
			c.sessions.Delete(ev.UserID)
			replies = []Reply{textReply(msgApology)}
		}
	}()

	switch ev.Kind {
	case EventCommand:
		return c.handleCommand(ctx, ev)
	case EventCallback:
		return c.handleCallback(ctx, ev)
	case EventText:
		return c.handleText(ctx, ev)
	default:
		return nil
	}
}

// HandleCommand routes a slash command such as /start, /generate or /cancel.
func (c *Controller) HandleCommand(ctx context.Context, ev Event) []Reply {
	ev.Kind = EventCommand
	return c.Handle(ctx, ev)
}

// HandleCallback routes an inline button press carrying a session-scoped payload.
func (c *Controller) HandleCallback(ctx context.Context, ev Event) []Reply {
	ev.Kind = EventCallback
	return c.Handle(ctx, ev)
}

// HandleText routes free text, which only matters while a title is awaited.
func (c *Controller) HandleText(ctx context.Context, ev Event) []Reply {
	ev.Kind = EventText
	return c.Handle(ctx, ev)
}

func (c *Controller) handleCommand(ctx context.Context, ev Event) []Reply {
	switch strings.ToLower(ev.Command) {
	case "start", "help":
		return c.greet(ctx, ev)
	case "generate":
		return c.startFlow(ctx, ev)
	case "cancel":
		if c.sessions.Delete(ev.UserID) {
			c.logger.Info("Conversation cancelled", zap.String("user_id", ev.UserID))
			return []Reply{textReply(msgCancelled)}
		}
		return []Reply{textReply(msgNothingToCancel)}
	default:
		return []Reply{textReply(msgUnknownCommand)}
	}
}

func (c *Controller) greet(ctx context.Context, ev Event) []Reply {
	acc, err := c.ledger.GetAccount(ctx, ev.UserID)
	if err != nil {
		c.logger.Error("Failed to load account", zap.Error(err), zap.String("user_id", ev.UserID))
		return []Reply{textReply(msgApology)}
	}

	var b strings.Builder
	b.WriteString("Welcome to CoverCraft! I make book covers for Webnovel and Letterlux.\n\n")
	fmt.Fprintf(&b, "Free covers left: %d of %d.\n", c.freeLeft(acc), c.cfg.FreeLimit)
	if acc.Balance > 0 {
		fmt.Fprintf(&b, "Balance: %s.\n", formatMoney(acc.Balance))
	}
	b.WriteString("\nUse /generate to create a cover or /cancel to stop.")
	return []Reply{textReply(b.String())}
}

// startFlow replaces any live session with a fresh one awaiting a platform
func (c *Controller) startFlow(ctx context.Context, ev Event) []Reply {
	acc, err := c.ledger.GetAccount(ctx, ev.UserID)
	if err != nil {
		c.logger.Error("Failed to load account", zap.Error(err), zap.String("user_id", ev.UserID))
		return []Reply{textReply(msgApology)}
	}
	if !c.allowed(acc) {
		c.sessions.Delete(ev.UserID)
		return c.paymentPrompt(ctx, ev)
	}

	sess := Session{
		ID:     uuid.NewString(),
		UserID: ev.UserID,
		ChatID: ev.ChatID,
		State:  StateAwaitingPlatform,
	}
	c.sessions.Put(sess)

	c.logger.Info("Conversation started",
		zap.String("user_id", ev.UserID),
		zap.String("session_id", sess.ID),
	)

	var rows [][]Button
	for _, p := range models.Platforms() {
		rows = append(rows, []Button{{
			Text: fmt.Sprintf("%s (%s)", p.Label(), p.Dimensions()),
			Data: PlatformCallback(sess.ID, p),
		}})
	}
	rows = append(rows, []Button{{Text: "Cancel", Data: CancelCallback(sess.ID)}})

	return []Reply{{Kind: ReplyText, Text: msgChoosePlatform, Buttons: rows}}
}

func (c *Controller) handleCallback(_ context.Context, ev Event) []Reply {
	kind, rest, _ := strings.Cut(ev.Data, ":")
	sessionID, value, _ := strings.Cut(rest, ":")

	sess, ok := c.sessions.Get(ev.UserID)
	if !ok || sessionID == "" || sess.ID != sessionID {
		c.logger.Debug("Ignoring callback for stale session",
			zap.String("user_id", ev.UserID),
			zap.String("data", ev.Data),
		)
		return nil
	}

	switch kind {
	case callbackCancel:
		c.sessions.Delete(ev.UserID)
		c.logger.Info("Conversation cancelled", zap.String("user_id", ev.UserID))
		return []Reply{textReply(msgCancelled)}

	case callbackPlatform:
		if sess.State != StateAwaitingPlatform {
			return nil
		}
		platform, ok := models.ParsePlatform(value)
		if !ok {
			return nil
		}
		sess.Platform = platform
		sess.State = StateAwaitingTitle
		c.sessions.Put(sess)
		return []Reply{textReply(fmt.Sprintf(msgAskTitle, platform.Label(), c.cfg.MaxTitleRunes))}

	default:
		return nil
	}
}

func (c *Controller) handleText(ctx context.Context, ev Event) []Reply {
	sess, ok := c.sessions.Get(ev.UserID)
	if !ok || sess.State != StateAwaitingTitle {
		return nil
	}

	text := strings.TrimSpace(ev.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		return nil
	}
	title := truncateRunes(text, c.cfg.MaxTitleRunes)

	result := c.covers.Produce(ctx, models.CoverRequest{
		Title:         title,
		Platform:      sess.Platform,
		RequesterName: ev.DisplayName,
	})

	acc, err := c.ledger.GetAccount(ctx, ev.UserID)
	if err != nil {
		c.logger.Error("Failed to load account", zap.Error(err), zap.String("user_id", ev.UserID))
		c.sessions.Delete(ev.UserID)
		return []Reply{textReply(msgApology)}
	}
	if !c.allowed(acc) {
		c.sessions.Delete(ev.UserID)
		return c.paymentPrompt(ctx, ev)
	}

	charged, err := c.charge(ctx, acc)
	if err != nil {
		c.sessions.Delete(ev.UserID)
		if errors.Is(err, storage.ErrInsufficientBalance) {
			return c.paymentPrompt(ctx, ev)
		}
		c.logger.Error("Failed to charge for cover", zap.Error(err), zap.String("user_id", ev.UserID))
		return []Reply{textReply(msgApology)}
	}
	c.sessions.Delete(ev.UserID)

	c.logger.Info("Cover delivered",
		zap.String("user_id", ev.UserID),
		zap.String("session_id", sess.ID),
		zap.String("platform", string(result.Platform)),
		zap.Bool("fallback", result.UsedFallback),
	)

	caption := fmt.Sprintf("%q for %s (%s)", title, result.Platform.Label(), result.Platform.Dimensions())
	if result.Platform != sess.Platform {
		caption += fmt.Sprintf("\n%s was unavailable, so this one uses the %s size.", sess.Platform.Label(), result.Platform.Label())
	}
	caption += "\n" + c.usageLine(charged)
	return []Reply{{Kind: ReplyPhoto, PhotoURL: result.ImageURL, Text: caption}}
}

// usageLine reports free tier usage, or the remaining balance once it is spent.
func (c *Controller) usageLine(acc models.Account) string {
	if acc.CoversUsed <= c.cfg.FreeLimit {
		return fmt.Sprintf("Used: %d/%d free covers.", acc.CoversUsed, c.cfg.FreeLimit)
	}
	return fmt.Sprintf("Used all %d free covers. Balance: %s.", c.cfg.FreeLimit, formatMoney(acc.Balance))
}

// charge records one cover and returns the account as it stands afterwards.
// Past the free tier the price, capped at the current balance, is debited
// before the cover is counted.
func (c *Controller) charge(ctx context.Context, acc models.Account) (models.Account, error) {
	if acc.CoversUsed >= c.cfg.FreeLimit {
		debit := min(c.cfg.Price, acc.Balance)
		if err := c.ledger.AddBalance(ctx, acc.UserID, -debit); err != nil {
			return acc, fmt.Errorf("debit balance: %w", err)
		}
		if err := c.ledger.IncrementCovers(ctx, acc.UserID); err != nil {
			if rerr := c.ledger.AddBalance(ctx, acc.UserID, debit); rerr != nil {
				c.logger.Error("Failed to refund debit", zap.Error(rerr), zap.String("user_id", acc.UserID))
			}
			return acc, fmt.Errorf("increment covers: %w", err)
		}
		acc.Balance -= debit
		acc.CoversUsed++
		return acc, nil
	}
	if err := c.ledger.IncrementCovers(ctx, acc.UserID); err != nil {
		return acc, fmt.Errorf("increment covers: %w", err)
	}
	acc.CoversUsed++
	return acc, nil
}

func (c *Controller) paymentPrompt(ctx context.Context, ev Event) []Reply {
	checkout, err := c.gateway.CreateCheckout(ctx, payment.CheckoutRequest{
		UserID:      ev.UserID,
		DisplayName: ev.DisplayName,
		Contact:     ev.Contact,
	})
	if err != nil {
		c.logger.Warn("Failed to create checkout", zap.Error(err), zap.String("user_id", ev.UserID))
		return []Reply{textReply(msgPaymentUnavailable)}
	}

	c.logger.Info("Payment requested",
		zap.String("user_id", ev.UserID),
		zap.String("tx_ref", checkout.TxRef),
	)

	price := formatMoney(checkout.Amount)
	return []Reply{{
		Kind: ReplyText,
		Text: fmt.Sprintf("You have used all %d free covers. Each extra cover costs %s.", c.cfg.FreeLimit, price),
		Buttons: [][]Button{{
			{Text: "Pay " + price, URL: checkout.URL},
		}},
	}}
}

func (c *Controller) allowed(acc models.Account) bool {
	return acc.CoversUsed < c.cfg.FreeLimit || acc.Balance > 0
}

func (c *Controller) freeLeft(acc models.Account) int64 {
	return max(c.cfg.FreeLimit-acc.CoversUsed, 0)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}

func formatMoney(minor int64) string {
	return fmt.Sprintf("$%d.%02d", minor/100, minor%100)
}
