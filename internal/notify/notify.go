// Package notify delivers operational notifications to humans. The Telegram
// client is constructed once at bootstrap and injected into whatever needs to
// emit; nothing in here is process-global.
package notify

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Notifier emits a human-readable message to the operations channel.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Telegram sends notifications to a fixed admin chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    zerolog.Logger
}

// NewTelegram authenticates the bot token and returns a notifier bound to
// chatID.
func NewTelegram(token string, chatID int64, log zerolog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("Telegram notifier ready")
	return &Telegram{bot: bot, chatID: chatID, log: log}, nil
}

// Notify sends text to the admin chat.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		t.log.Error().Err(err).Msg("Telegram send failed")
		return err
	}
	return nil
}

// Noop discards notifications. Used when no Telegram token is configured.
type Noop struct{}

// Notify implements Notifier.
func (Noop) Notify(ctx context.Context, text string) error { return nil }
