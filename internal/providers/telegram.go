package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/models"
	"backoffice-alerts/internal/utils"
)

// MessageSender is the part of the Telegram bot API used for forwarding.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// Telegram forwards notifications to a single chat, rate limited and retried.
type Telegram struct {
	sender  MessageSender
	chatID  int64
	limiter *rate.Limiter
	log     *logrus.Entry
}

// NewTelegram creates the bot client for token without calling getMe, so a
// Telegram outage does not block startup.
func NewTelegram(token string, chatID int64, ratePerSecond int, logger *logging.Logger) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("missing telegram bot token")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("missing telegram chat id")
	}
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	return NewTelegramWithSender(b, chatID, ratePerSecond, logger), nil
}

func NewTelegramWithSender(sender MessageSender, chatID int64, ratePerSecond int, logger *logging.Logger) *Telegram {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	return &Telegram{
		sender:  sender,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
		log:     logger.WithComponent("telegram"),
	}
}

// Send implements notification.Forwarder.
func (t *Telegram) Send(ctx context.Context, n models.Notification) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	params := &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   FormatMessage(n),
	}
	return utils.Retry(ctx, t.log, 3, time.Second, func() error {
		if _, err := t.sender.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", t.chatID, err)
		}
		return nil
	})
}

// FormatMessage renders n as plain text for a chat message.
func FormatMessage(n models.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", strings.ToUpper(string(n.Severity)))
	if n.Source != "" {
		fmt.Fprintf(&b, " %s", n.Source)
	}
	b.WriteString("\n")
	b.WriteString(n.Message)
	if !n.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "\n%s", n.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
