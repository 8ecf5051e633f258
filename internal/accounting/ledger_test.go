package accounting

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/cryptobot/internal/performance"
	"github.com/web3guy0/cryptobot/internal/types"
)

var testEventTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T, startingBalance decimal.Decimal) *Ledger {
	t.Helper()
	cfg := Config{
		StartingBalance: startingBalance,
		SlippageRate:    decimal.NewFromFloat(0.0005),
		CommissionRate:  decimal.NewFromFloat(0.0005),
		AllowShorting:   true,
		LogPath:         filepath.Join(t.TempDir(), "trades.csv"),
	}
	l, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

// Basic LONG round-trip, spec §8 scenario 1.
func TestLedgerBasicLongRoundTrip(t *testing.T) {
	l := newTestLedger(t, decimal.NewFromInt(10000))

	openOrder, err := types.NewOrderRequest("BTCUSDT", types.SideLong, types.OrderMarket, decimal.NewFromFloat(0.1), "o1", "")
	require.NoError(t, err)
	res, err := l.Submit(openOrder, decimal.NewFromInt(50000), testEventTime)
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.True(t, res.Fill.FillPrice.Equal(decimal.NewFromFloat(50025)))
	require.True(t, res.Fill.Commission.Equal(decimal.NewFromFloat(2.50125)))
	require.True(t, l.Balance().Equal(decimal.NewFromInt(10000)))

	closeOrder, err := types.NewOrderRequest("BTCUSDT", types.SideShort, types.OrderMarket, decimal.NewFromFloat(0.1), "o2", "")
	require.NoError(t, err)
	res, err = l.Submit(closeOrder, decimal.NewFromInt(51000), testEventTime)
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.True(t, res.Fill.FillPrice.Equal(decimal.NewFromFloat(50974.5)))

	require.True(t, l.Balance().Equal(decimal.NewFromFloat(10092.45)), "got %s", l.Balance())

	wins, losses, total := l.Stats()
	require.Equal(t, 1, wins)
	require.Equal(t, 0, losses)
	require.Equal(t, 1, total)
}

func TestLedgerTradeLogPassesInvariants(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "trades.csv")
	cfg := Config{
		StartingBalance: decimal.NewFromInt(10000),
		SlippageRate:    decimal.NewFromFloat(0.0005),
		CommissionRate:  decimal.NewFromFloat(0.0005),
		AllowShorting:   true,
		LogPath:         logPath,
	}
	l, err := New(cfg)
	require.NoError(t, err)

	open, _ := types.NewOrderRequest("BTCUSDT", types.SideLong, types.OrderMarket, decimal.NewFromFloat(0.1), "o1", "")
	_, err = l.Submit(open, decimal.NewFromInt(50000), testEventTime)
	require.NoError(t, err)
	close, _ := types.NewOrderRequest("BTCUSDT", types.SideShort, types.OrderMarket, decimal.NewFromFloat(0.1), "o2", "")
	_, err = l.Submit(close, decimal.NewFromInt(51000), testEventTime)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	rows, err := performance.LoadTradeLog(logPath)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, types.ActionInit, rows[0].Action)
	require.Equal(t, types.ActionOpen, rows[1].Action)
	require.Equal(t, types.ActionClose, rows[2].Action)
	require.NoError(t, performance.CheckInvariants(rows))
}

// Shutdown flatten, spec §8 scenario 3.
func TestLedgerFlattenAll(t *testing.T) {
	l := newTestLedger(t, decimal.NewFromInt(10000))

	longOrder, _ := types.NewOrderRequest("BTCUSDT", types.SideLong, types.OrderMarket, decimal.NewFromFloat(0.1), "o1", "")
	_, err := l.Submit(longOrder, decimal.NewFromInt(50000), testEventTime)
	require.NoError(t, err)
	shortOrder, _ := types.NewOrderRequest("ETHUSDT", types.SideShort, types.OrderMarket, decimal.NewFromFloat(1.0), "o2", "")
	_, err = l.Submit(shortOrder, decimal.NewFromInt(3000), testEventTime)
	require.NoError(t, err)

	prices := map[string]decimal.Decimal{
		"BTCUSDT": decimal.NewFromInt(51000),
		"ETHUSDT": decimal.NewFromInt(2900),
	}
	l.UpdatePrices(prices)

	err = l.FlattenAll(func(symbol string) (decimal.Decimal, error) {
		return prices[symbol], nil
	}, testEventTime)
	require.NoError(t, err)

	require.Equal(t, 0, l.OpenPositionCount())
	require.True(t, l.Equity().Equal(l.Balance()))
}

// Unknown symbol rejected, spec §8 scenario 4.
func TestLedgerRejectsUnknownSymbol(t *testing.T) {
	l := newTestLedger(t, decimal.NewFromInt(10000))
	order := &types.OrderRequest{Symbol: types.UnknownSymbol, Side: types.SideLong, Kind: types.OrderMarket, Quantity: decimal.NewFromFloat(0.1)}
	res, err := l.Submit(order, decimal.NewFromInt(100), testEventTime)
	require.Error(t, err)
	require.False(t, res.Accepted)
	require.True(t, types.IsKind(err, types.KindInvalidInput))
}

// Trailing stop tightens only, spec §8 scenario 5.
func TestLedgerTrailingStopTightensOnly(t *testing.T) {
	cfg := Config{
		StartingBalance: decimal.NewFromInt(10000),
		SlippageRate:    decimal.Zero,
		CommissionRate:  decimal.Zero,
		AllowShorting:   true,
		TrailingStop: TrailingStopConfig{
			Enabled: true,
			Pct:     decimal.NewFromFloat(0.02),
		},
	}
	l, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	order := &types.OrderRequest{Symbol: "BTCUSDT", Side: types.SideLong, Kind: types.OrderMarket, Quantity: decimal.NewFromFloat(1), StopLoss: decimal.NewFromInt(95)}
	_, err = l.Submit(order, decimal.NewFromInt(100), testEventTime)
	require.NoError(t, err)

	l.UpdatePrices(map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(102)})
	pos, ok := l.Position("BTCUSDT")
	require.True(t, ok)
	require.True(t, pos.StopLoss.Equal(decimal.NewFromFloat(99.96)), "got %s", pos.StopLoss)

	l.UpdatePrices(map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(101)})
	pos, _ = l.Position("BTCUSDT")
	require.True(t, pos.StopLoss.Equal(decimal.NewFromFloat(99.96)), "stop must not loosen, got %s", pos.StopLoss)

	l.UpdatePrices(map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(110)})
	pos, _ = l.Position("BTCUSDT")
	require.True(t, pos.StopLoss.Equal(decimal.NewFromFloat(107.8)), "got %s", pos.StopLoss)

	hits := l.CheckExits(map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromFloat(107.5)})
	require.Equal(t, []string{"BTCUSDT"}, hits)
}

func TestLedgerRejectsDuplicateOpen(t *testing.T) {
	l := newTestLedger(t, decimal.NewFromInt(10000))
	order, _ := types.NewOrderRequest("BTCUSDT", types.SideLong, types.OrderMarket, decimal.NewFromFloat(0.1), "o1", "")
	_, err := l.Submit(order, decimal.NewFromInt(100), testEventTime)
	require.NoError(t, err)

	dup, _ := types.NewOrderRequest("BTCUSDT", types.SideLong, types.OrderMarket, decimal.NewFromFloat(0.1), "o2", "")
	res, err := l.Submit(dup, decimal.NewFromInt(100), testEventTime)
	require.Error(t, err)
	require.False(t, res.Accepted)
}

func TestLedgerPeakEquityMonotonic(t *testing.T) {
	l := newTestLedger(t, decimal.NewFromInt(10000))
	order, _ := types.NewOrderRequest("BTCUSDT", types.SideLong, types.OrderMarket, decimal.NewFromFloat(1), "o1", "")
	_, err := l.Submit(order, decimal.NewFromInt(100), testEventTime)
	require.NoError(t, err)

	peaks := []decimal.Decimal{}
	for _, p := range []int64{105, 95, 110, 90} {
		l.UpdatePrices(map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(p)})
		peaks = append(peaks, l.PeakEquity())
	}
	for i := 1; i < len(peaks); i++ {
		require.True(t, peaks[i].GreaterThanOrEqual(peaks[i-1]), "peak_equity must never decrease")
	}
	require.True(t, l.Equity().LessThanOrEqual(l.PeakEquity()))
}
