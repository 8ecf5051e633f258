// Package backtest implements the backtest runner (module G): it
// merges multi-symbol historical candles into a single chronological
// timeline and drives strategy -> risk -> execution -> accounting for
// each event, flattening all positions at shutdown. Grounded on the
// teacher's core/engine.go orchestration (mainLoop/processTick/
// checkPositions), adapted from live-tick-driven to a deterministic
// merge-sort driver — the merge itself has no teacher analog and is
// written fresh in the teacher's idiom (explicit structs, early
// returns, zerolog field logging).
package backtest

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptobot/internal/accounting"
	"github.com/web3guy0/cryptobot/internal/candlefeed"
	"github.com/web3guy0/cryptobot/internal/execution"
	"github.com/web3guy0/cryptobot/internal/risk"
	"github.com/web3guy0/cryptobot/internal/safety"
	"github.com/web3guy0/cryptobot/internal/strategy"
	"github.com/web3guy0/cryptobot/internal/types"
)

// Config bundles everything a single deterministic run needs.
type Config struct {
	Symbols     []string
	Window      types.Window
	Provider    candlefeed.Provider
	LedgerCfg   accounting.Config
	RiskCfg     risk.Config
	SafetyCfg   safety.Config
	Mode        execution.Mode
	Strategies  map[string]strategy.Strategy // symbol -> strategy instance
	HistoryLen  int                          // rolling candle buffer length passed to strategies
}

// Result summarizes one run.
type Result struct {
	TradeLogPath string
	FinalBalance decimal.Decimal
	FinalEquity  decimal.Decimal
	TotalTrades  int
	Wins, Losses int
}

type event struct {
	candle types.Candle
}

// Run executes one deterministic backtest. Given the same cached
// candles and the same config, two invocations produce byte-identical
// trade logs (§4.G determinism requirement).
func Run(ctx context.Context, cfg Config) (*Result, error) {
	seriesBySymbol := make(map[string][]types.Candle, len(cfg.Symbols))
	for _, symbol := range cfg.Symbols {
		candles, err := cfg.Provider.FetchCandles(ctx, symbol, cfg.Window.Interval, cfg.Window.Start, cfg.Window.End)
		if err != nil {
			return nil, types.IOFailure("backtest.Run.FetchCandles", err)
		}
		for _, c := range candles {
			if err := c.Validate(); err != nil {
				log.Warn().Str("symbol", symbol).Str("ts", c.Timestamp.String()).Err(err).Msg("candle data quality warning")
			}
		}
		if len(candles) == 0 {
			log.Warn().Str("symbol", symbol).Msg("empty candle series for symbol")
			continue
		}
		seriesBySymbol[symbol] = candles
	}

	events := mergeEvents(seriesBySymbol)

	ledgerCfg := cfg.LedgerCfg
	if len(events) > 0 {
		ledgerCfg.SessionStart = events[0].candle.Timestamp
	}
	ledger, err := accounting.New(ledgerCfg)
	if err != nil {
		return nil, err
	}
	defer ledger.Close()

	monitor := safety.New(cfg.SafetyCfg, cfg.LedgerCfg.StartingBalance)
	router := execution.New(cfg.Mode, ledger, monitor)
	sizer := risk.New(cfg.RiskCfg)

	history := make(map[string][]types.Candle, len(cfg.Symbols))
	lastClose := make(map[string]decimal.Decimal, len(cfg.Symbols))

	for _, ev := range events {
		symbol := ev.candle.Symbol
		history[symbol] = append(history[symbol], ev.candle)
		if cfg.HistoryLen > 0 && len(history[symbol]) > cfg.HistoryLen {
			history[symbol] = history[symbol][len(history[symbol])-cfg.HistoryLen:]
		}
		lastClose[symbol] = ev.candle.Close

		prices := map[string]decimal.Decimal{symbol: ev.candle.Close}
		ledger.UpdatePrices(prices)
		for _, exitSymbol := range ledger.CheckExits(prices) {
			if pos, ok := ledger.Position(exitSymbol); ok {
				closeSide := pos.Side.Opposite()
				order, err := execution.CreateOrderFromRisk(exitSymbol, closeSide, pos.Quantity, decimal.Zero, decimal.Zero, "EXIT_"+exitSymbol, "exit")
				if err == nil {
					if _, err := router.Submit(order, ev.candle.Close, decimal.Zero, ev.candle.Timestamp); err != nil {
						log.Error().Err(err).Str("symbol", exitSymbol).Msg("exit submission failed")
					}
				}
			}
		}

		strat, ok := cfg.Strategies[symbol]
		if !ok {
			continue
		}
		if _, hasPos := ledger.Position(symbol); hasPos {
			continue
		}
		signal := strat.Evaluate(history[symbol])
		if signal.Direction == strategy.Flat {
			continue
		}

		side, err := types.SideFromSignal(string(signal.Direction))
		if err != nil {
			continue
		}
		entry := ev.candle.Close
		var stopLoss, takeProfit decimal.Decimal
		if side.IsLong() {
			stopLoss = entry.Sub(signal.Metadata.SLDistance)
			takeProfit = entry.Add(signal.Metadata.TPDistance)
		} else {
			stopLoss = entry.Add(signal.Metadata.SLDistance)
			takeProfit = entry.Sub(signal.Metadata.TPDistance)
		}

		sized, skip, err := sizer.Size(risk.Input{
			Symbol: symbol, Side: side, Equity: ledger.Equity(),
			EntryPrice: entry, StopLossPrice: stopLoss, TakeProfit: takeProfit,
			StrategyTag: strat.Name(),
		})
		if err != nil || skip != nil {
			continue
		}

		order, err := execution.CreateOrderFromRisk(symbol, side, sized.Quantity, sized.StopLoss, sized.TakeProfit, orderID(symbol, ev.candle.Timestamp), strat.Name())
		if err != nil {
			continue
		}
		if _, err := router.Submit(order, entry, sized.RiskUSD, ev.candle.Timestamp); err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("entry submission failed")
		}
	}

	flattenAt := ledgerCfg.SessionStart
	if len(events) > 0 {
		flattenAt = events[len(events)-1].candle.Timestamp
	}
	if err := ledger.FlattenAll(func(symbol string) (decimal.Decimal, error) {
		if p, ok := lastClose[symbol]; ok {
			return p, nil
		}
		return decimal.Zero, types.InvalidInput("flatten", "no last price for "+symbol)
	}, flattenAt); err != nil {
		return nil, err
	}

	wins, losses, total := ledger.Stats()
	return &Result{
		TradeLogPath: cfg.LedgerCfg.LogPath,
		FinalBalance: ledger.Balance(),
		FinalEquity:  ledger.Equity(),
		TotalTrades:  total,
		Wins:         wins,
		Losses:       losses,
	}, nil
}

// mergeEvents builds a single chronologically-ordered event stream,
// ties broken by lexicographic symbol (§4.G step 3).
func mergeEvents(series map[string][]types.Candle) []event {
	var events []event
	for _, candles := range series {
		for _, c := range candles {
			events = append(events, event{candle: c})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].candle.Timestamp.Equal(events[j].candle.Timestamp) {
			return events[i].candle.Symbol < events[j].candle.Symbol
		}
		return events[i].candle.Timestamp.Before(events[j].candle.Timestamp)
	})
	return events
}

func orderID(symbol string, ts time.Time) string {
	return symbol + "_" + ts.UTC().Format("20060102T150405.000000000Z")
}
