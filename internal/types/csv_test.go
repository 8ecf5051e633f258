package types

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Loading a trade log row, serializing it, and reloading yields an
// identical in-memory representation (spec §8 round-trip property).
func TestTradeLogRowRoundTrip(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	original := TradeLogRow{
		Timestamp:          ts,
		SessionStart:       ts.Add(-time.Hour),
		OrderID:            "o1",
		Symbol:             "BTCUSDT",
		Action:             ActionClose,
		Side:               SideLong,
		Quantity:           decimal.NewFromFloat(0.1),
		EntryPrice:         decimal.NewFromFloat(50025),
		FillPrice:          decimal.NewFromFloat(50974.5),
		FillValue:          decimal.NewFromFloat(5097.45),
		Commission:         decimal.NewFromFloat(2.50),
		Slippage:           decimal.Zero,
		RealizedPnL:        decimal.NewFromFloat(94.95),
		PnLPct:             decimal.NewFromFloat(1.8975),
		BalanceAfter:       decimal.NewFromFloat(10092.45),
		EquityAfter:        decimal.NewFromFloat(10092.45),
		OpenPositionsAfter: 0,
	}

	fields := original.Row()
	reloaded, err := ParseRow(fields)
	require.NoError(t, err)

	require.True(t, original.Timestamp.Equal(reloaded.Timestamp))
	require.True(t, original.SessionStart.Equal(reloaded.SessionStart))
	require.Equal(t, original.OrderID, reloaded.OrderID)
	require.Equal(t, original.Symbol, reloaded.Symbol)
	require.Equal(t, original.Action, reloaded.Action)
	require.Equal(t, original.Side, reloaded.Side)
	require.True(t, original.Quantity.Equal(reloaded.Quantity))
	require.True(t, original.Commission.Equal(reloaded.Commission))
	require.True(t, original.BalanceAfter.Equal(reloaded.BalanceAfter))
	require.Equal(t, original.OpenPositionsAfter, reloaded.OpenPositionsAfter)
}

func TestParseRowRejectsWrongColumnCount(t *testing.T) {
	_, err := ParseRow([]string{"only", "two"})
	require.Error(t, err)
}

func TestIsKindMatchesWrappedError(t *testing.T) {
	err := InsufficientBalance("op", "reason")
	require.True(t, IsKind(err, KindInsufficientBalance))
	require.False(t, IsKind(err, KindInvalidInput))
	require.False(t, IsKind(nil, KindInvalidInput))
}

func TestSideFromSignalRejectsUnknownToken(t *testing.T) {
	_, err := SideFromSignal("sideways")
	require.Error(t, err)
	require.True(t, IsKind(err, KindInvalidInput))
}

func TestSideOppositePreservesTokenFamily(t *testing.T) {
	require.Equal(t, SideShort, SideLong.Opposite())
	require.Equal(t, SideSell, SideBuy.Opposite())
}
