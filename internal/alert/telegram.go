// Package alert is the external collaborator boundary for alert
// formatting (spec §1 scopes "Discord/alert formatters" out of the
// core), consuming the core's results to notify an operator. Grounded
// on the teacher's bot/telegram.go bot-setup-and-send pattern, reduced
// to a fire-and-forget Notifier over the core's halt/rejection/
// evolution-decision events instead of a full interactive control bot.
package alert

import (
	"fmt"
	"os"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Notifier sends a formatted message to an operator channel.
type Notifier interface {
	Notify(message string) error
}

// TelegramNotifier wraps the Telegram Bot API exactly as the teacher's
// bot/telegram.go constructs it: token + chat ID from env, fatal-free
// construction (missing config just disables alerting).
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier returns nil, nil when TELEGRAM_BOT_TOKEN or
// TELEGRAM_CHAT_ID is unset — alerting is optional, not load-bearing.
func NewTelegramNotifier() (*TelegramNotifier, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatIDStr := os.Getenv("TELEGRAM_CHAT_ID")
	if token == "" || chatIDStr == "" {
		return nil, nil
	}
	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramNotifier{api: api, chatID: chatID}, nil
}

func (n *TelegramNotifier) Notify(message string) error {
	msg := tgbotapi.NewMessage(n.chatID, message)
	if _, err := n.api.Send(msg); err != nil {
		log.Error().Err(err).Msg("alert: failed to send telegram message")
		return err
	}
	return nil
}

// HaltMessage formats a safety-monitor halt for notification.
func HaltMessage(reason string) string {
	return "🛑 Trading halted: " + reason
}

// RejectionMessage formats an execution rejection for notification.
func RejectionMessage(symbol, kind, reason string) string {
	return fmt.Sprintf("⚠️ Order rejected [%s] %s: %s", symbol, kind, reason)
}

// EvolutionMessage formats an evolution decision for notification.
func EvolutionMessage(symbol, status, reason string) string {
	return fmt.Sprintf("🧬 Evolution %s for %s: %s", status, symbol, reason)
}
