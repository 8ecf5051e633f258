package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestOpenEmptyPathDisablesStore(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	require.Nil(t, s)
	require.False(t, s.IsEnabled())
}

func TestOpenSqliteMigratesAndRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NotNil(t, s)
	require.True(t, s.IsEnabled())

	trade := &TradeRecord{
		RunID:       "run-1",
		Symbol:      "BTCUSDT",
		Side:        "LONG",
		Quantity:    decimal.NewFromFloat(0.1),
		EntryPrice:  decimal.NewFromInt(50000),
		FillPrice:   decimal.NewFromInt(51000),
		RealizedPnL: decimal.NewFromFloat(94.95),
		PnLPct:      decimal.NewFromFloat(1.9),
		ClosedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.SaveTrade(trade))

	run := &RunRecord{
		RunID:          "run-1",
		Strategy:       "ema_rsi_scalper",
		Symbols:        "BTCUSDT",
		WindowStart:    time.Now().UTC().Add(-time.Hour),
		WindowEnd:      time.Now().UTC(),
		TotalReturnPct: decimal.NewFromFloat(0.95),
		MaxDrawdownPct: decimal.NewFromFloat(0.2),
	}
	require.NoError(t, s.SaveRun(run))

	trades, err := s.TradesForRun("run-1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Equal(t, "BTCUSDT", trades[0].Symbol)

	runs, err := s.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "run-1", runs[0].RunID)
}

func TestSaveTradeNoOpWhenDisabled(t *testing.T) {
	var s *Store
	require.NoError(t, s.SaveTrade(&TradeRecord{}))
	require.NoError(t, s.SaveRun(&RunRecord{}))
	trades, err := s.TradesForRun("anything")
	require.NoError(t, err)
	require.Nil(t, trades)
}
