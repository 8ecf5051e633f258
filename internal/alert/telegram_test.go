package alert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTelegramNotifierDisabledWithoutEnv(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	n, err := NewTelegramNotifier()
	require.NoError(t, err)
	require.Nil(t, n)
}

func TestNewTelegramNotifierRejectsInvalidChatID(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "dummy-token")
	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")
	_, err := NewTelegramNotifier()
	require.Error(t, err)
}

func TestHaltMessageIncludesReason(t *testing.T) {
	require.Contains(t, HaltMessage("daily loss cap exceeded"), "daily loss cap exceeded")
}

func TestRejectionMessageIncludesSymbolKindAndReason(t *testing.T) {
	msg := RejectionMessage("BTCUSDT", "SafetyViolation", "kill switch engaged")
	require.Contains(t, msg, "BTCUSDT")
	require.Contains(t, msg, "SafetyViolation")
	require.Contains(t, msg, "kill switch engaged")
}

func TestEvolutionMessageIncludesStatusAndSymbol(t *testing.T) {
	msg := EvolutionMessage("ETHUSDT", "applied", "return improved 2.0%")
	require.Contains(t, msg, "ETHUSDT")
	require.Contains(t, msg, "applied")
}
