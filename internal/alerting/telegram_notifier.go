package alerting

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/iamprecieee/distributed-notification-system/internal/config"
	"github.com/rs/zerolog"
)

// TelegramNotifier sends alerts to an on-call Telegram chat via a bot.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegramNotifier creates a TelegramNotifier.
func NewTelegramNotifier(cfg config.TelegramConfig, logger zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("alerting: failed to create telegram bot api: %w", err)
	}
	return &TelegramNotifier{
		bot:    bot,
		chatID: cfg.ChatID,
		logger: logger.With().Str("channel", "telegram").Logger(),
	}, nil
}

// Send implements Notifier.
func (n *TelegramNotifier) Send(_ context.Context, a Alert) error {
	fullMessage := fmt.Sprintf("*%s*\n\n%s", a.Subject(), a.Body())

	msg := tgbotapi.NewMessage(n.chatID, fullMessage)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error().Err(err).Str("dependency", a.Dependency).Msg("failed to send telegram alert")
		return err
	}

	n.logger.Info().Str("dependency", a.Dependency).Int64("chat_id", n.chatID).Msg("telegram alert sent")
	return nil
}
