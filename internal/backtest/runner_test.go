package backtest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/cryptobot/internal/accounting"
	"github.com/web3guy0/cryptobot/internal/execution"
	"github.com/web3guy0/cryptobot/internal/performance"
	"github.com/web3guy0/cryptobot/internal/risk"
	"github.com/web3guy0/cryptobot/internal/safety"
	"github.com/web3guy0/cryptobot/internal/strategy"
	"github.com/web3guy0/cryptobot/internal/types"
)

// fixedProvider replays the same canned candle series regardless of window.
type fixedProvider struct {
	series map[string][]types.Candle
}

func (p *fixedProvider) FetchCandles(_ context.Context, symbol string, _ time.Duration, _, _ time.Time) ([]types.Candle, error) {
	return p.series[symbol], nil
}

// alternatingStrategy signals LONG on every fourth call (the 1st, 5th,
// 9th, ...) and FLAT otherwise, so the runner exercises open+close
// without depending on indicator internals.
type alternatingStrategy struct{ n int }

func (s *alternatingStrategy) Name() string { return "alternating" }
func (s *alternatingStrategy) ParamsSchema() map[string]interface{} { return nil }
func (s *alternatingStrategy) Evaluate(candles []types.Candle) strategy.Signal {
	s.n++
	if s.n%4 == 1 {
		return strategy.Signal{Direction: strategy.Long, Metadata: strategy.Metadata{
			SLDistance: decimal.NewFromInt(100),
			TPDistance: decimal.NewFromInt(1000),
		}}
	}
	return strategy.Signal{Direction: strategy.Flat}
}

func candleSeries(symbol string, closes []int64, start time.Time) []types.Candle {
	out := make([]types.Candle, len(closes))
	for i, c := range closes {
		price := decimal.NewFromInt(c)
		out[i] = types.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Symbol:    symbol,
			Open:      price, High: price, Low: price, Close: price,
			Volume: decimal.NewFromInt(10),
		}
	}
	return out
}

func runOnce(t *testing.T, logPath string) *Result {
	t.Helper()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	provider := &fixedProvider{series: map[string][]types.Candle{
		"BTCUSDT": candleSeries("BTCUSDT", []int64{100, 101, 102, 103, 104, 105, 106, 107}, start),
	}}

	cfg := Config{
		Symbols:  []string{"BTCUSDT"},
		Window:   types.Window{Start: start, End: start.Add(8 * time.Hour), Interval: time.Hour},
		Provider: provider,
		LedgerCfg: accounting.Config{
			StartingBalance: decimal.NewFromInt(10000),
			SlippageRate:    decimal.NewFromFloat(0.0005),
			CommissionRate:  decimal.NewFromFloat(0.0005),
			AllowShorting:   true,
			LogPath:         logPath,
		},
		RiskCfg: risk.Config{
			RiskPerTradePct: decimal.NewFromFloat(0.01),
			MaxExposurePct:  decimal.NewFromFloat(0.25),
			MinPositionUSD:  decimal.NewFromInt(1),
			DefaultATRMult:  decimal.NewFromFloat(1.5),
		},
		SafetyCfg: safety.Config{
			MaxDailyLossPct:    decimal.NewFromFloat(0.5),
			MaxRiskPerTradePct: decimal.NewFromFloat(1),
			MaxExposurePct:     decimal.NewFromFloat(1),
			MaxOpenTrades:      10,
			KillSwitchEnvVar:   "CRYPTOBOT_KILL_SWITCH_TEST_RUNNER",
		},
		Mode:       execution.ModePaper,
		Strategies: map[string]strategy.Strategy{"BTCUSDT": &alternatingStrategy{}},
		HistoryLen: 50,
	}

	result, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	return result
}

func TestRunDeterministic(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.csv")
	pathB := filepath.Join(dir, "b.csv")

	resultA := runOnce(t, pathA)
	resultB := runOnce(t, pathB)

	require.True(t, resultA.FinalBalance.Equal(resultB.FinalBalance))
	require.Equal(t, resultA.TotalTrades, resultB.TotalTrades)

	dataA, err := os.ReadFile(pathA)
	require.NoError(t, err)
	dataB, err := os.ReadFile(pathB)
	require.NoError(t, err)
	require.Equal(t, dataA, dataB)
}

func TestRunFlattensAllPositionsAtEnd(t *testing.T) {
	dir := t.TempDir()
	result := runOnce(t, filepath.Join(dir, "trades.csv"))
	require.True(t, result.FinalEquity.Equal(result.FinalBalance))

	rows, err := performance.LoadTradeLog(filepath.Join(dir, "trades.csv"))
	require.NoError(t, err)
	require.NoError(t, performance.CheckInvariants(rows))
	require.Equal(t, 0, rows[len(rows)-1].OpenPositionsAfter)
}
