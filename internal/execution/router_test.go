package execution_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/cryptobot/internal/accounting"
	"github.com/web3guy0/cryptobot/internal/execution"
	"github.com/web3guy0/cryptobot/internal/safety"
	"github.com/web3guy0/cryptobot/internal/types"
)

var testEventTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newRouter(t *testing.T, mode execution.Mode) (*execution.Router, *accounting.Ledger) {
	t.Helper()
	ledger, err := accounting.New(accounting.Config{
		StartingBalance: decimal.NewFromInt(10000),
		SlippageRate:    decimal.NewFromFloat(0.0005),
		CommissionRate:  decimal.NewFromFloat(0.0005),
		AllowShorting:   true,
		LogPath:         filepath.Join(t.TempDir(), "trades.csv"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	monitor := safety.New(safety.Config{
		MaxDailyLossPct:    decimal.NewFromFloat(0.02),
		MaxRiskPerTradePct: decimal.NewFromFloat(1),
		MaxExposurePct:     decimal.NewFromFloat(1),
		MaxOpenTrades:      10,
		KillSwitchEnvVar:   "CRYPTOBOT_KILL_SWITCH_TEST_ROUTER",
	}, ledger.Equity())

	return execution.New(mode, ledger, monitor), ledger
}

func TestRouterPaperModeAccepts(t *testing.T) {
	router, ledger := newRouter(t, execution.ModePaper)
	order, err := types.NewOrderRequest("BTCUSDT", types.SideLong, types.OrderMarket, decimal.NewFromFloat(0.1), "o1", "")
	require.NoError(t, err)

	res, err := router.Submit(order, decimal.NewFromInt(50000), decimal.NewFromInt(100), testEventTime)
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.Equal(t, 1, ledger.OpenPositionCount())
}

func TestRouterMonitorModeRejects(t *testing.T) {
	router, _ := newRouter(t, execution.ModeMonitor)
	order, err := types.NewOrderRequest("BTCUSDT", types.SideLong, types.OrderMarket, decimal.NewFromFloat(0.1), "o1", "")
	require.NoError(t, err)

	res, err := router.Submit(order, decimal.NewFromInt(50000), decimal.NewFromInt(100), testEventTime)
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.Equal(t, types.KindMonitorMode, res.Kind)
}

func TestRouterDryRunDoesNotMutateLedger(t *testing.T) {
	router, ledger := newRouter(t, execution.ModeDryRun)
	order, err := types.NewOrderRequest("BTCUSDT", types.SideLong, types.OrderMarket, decimal.NewFromFloat(0.1), "o1", "")
	require.NoError(t, err)

	res, err := router.Submit(order, decimal.NewFromInt(50000), decimal.NewFromInt(100), testEventTime)
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.Equal(t, 0, ledger.OpenPositionCount())
}

// Unknown symbol rejected, spec §8 scenario 4.
func TestCreateOrderFromRiskRejectsUnknownSymbol(t *testing.T) {
	_, err := execution.CreateOrderFromRisk(types.UnknownSymbol, types.SideLong, decimal.NewFromFloat(0.1), decimal.Zero, decimal.Zero, "o1", "")
	require.Error(t, err)
	require.True(t, types.IsKind(err, types.KindInvalidInput))
}

func TestCreateOrderFromRiskRejectsEmptySymbol(t *testing.T) {
	_, err := execution.CreateOrderFromRisk("", types.SideLong, decimal.NewFromFloat(0.1), decimal.Zero, decimal.Zero, "o1", "")
	require.Error(t, err)
}

func TestRouterRejectsUnknownSymbol(t *testing.T) {
	router, _ := newRouter(t, execution.ModePaper)
	order := &types.OrderRequest{Symbol: types.UnknownSymbol, Side: types.SideLong, Kind: types.OrderMarket, Quantity: decimal.NewFromFloat(0.1)}
	res, err := router.Submit(order, decimal.NewFromInt(50000), decimal.NewFromInt(100), testEventTime)
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.Equal(t, types.KindInvalidInput, res.Kind)
}
