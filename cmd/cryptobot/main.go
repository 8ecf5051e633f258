// Command cryptobot is the single operator-facing binary: backtest,
// optimize, evolve and serve-alerts subcommands over the same core
// pipeline. Grounded on cmd/polybot/main.go's ambient setup (zerolog
// console writer, godotenv.Load() warn-not-fatal, config.Load()
// fatal-on-error, signal.Notify graceful shutdown for the long-running
// subcommand) generalized from one fixed binary into a subcommand
// dispatcher.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/cryptobot/internal/alert"
	"github.com/web3guy0/cryptobot/internal/backtest"
	"github.com/web3guy0/cryptobot/internal/candlefeed"
	"github.com/web3guy0/cryptobot/internal/config"
	"github.com/web3guy0/cryptobot/internal/evolution"
	"github.com/web3guy0/cryptobot/internal/execution"
	"github.com/web3guy0/cryptobot/internal/history"
	"github.com/web3guy0/cryptobot/internal/optimizer"
	"github.com/web3guy0/cryptobot/internal/performance"
	"github.com/web3guy0/cryptobot/internal/store"
	"github.com/web3guy0/cryptobot/internal/strategy"
	"github.com/web3guy0/cryptobot/internal/types"
)

const version = "1.0.0"

// Exit codes: 0 success, 1 fatal config error, 2 safety violation
// returned by a backtest run, 3 invariant check failed. A config.Load
// failure, including its rejection of TRADING_MODE=live without
// ALLOW_LIVE_TRADING=true, exits through log.Fatal with code 1.
const (
	exitOK               = 0
	exitConfigError      = 1
	exitSafetyViolation  = 2
	exitInvariantFailure = 3
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: cryptobot <backtest|optimize|evolve|serve-alerts> [flags]")
		os.Exit(exitConfigError)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().Str("version", version).Str("cmd", os.Args[1]).Msg("cryptobot starting")

	var code int
	switch os.Args[1] {
	case "backtest":
		code = runBacktest(cfg, os.Args[2:])
	case "optimize":
		code = runOptimize(cfg, os.Args[2:])
	case "evolve":
		code = runEvolve(cfg, os.Args[2:])
	case "serve-alerts":
		code = runServeAlerts(cfg, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		code = exitConfigError
	}
	os.Exit(code)
}

func parseWindow(fs *flag.FlagSet, args []string) (symbols []string, window types.Window) {
	symbolsFlag := fs.String("symbols", "BTCUSDT", "comma-separated symbol list")
	startFlag := fs.String("start", "", "RFC3339 window start (required)")
	endFlag := fs.String("end", "", "RFC3339 window end (required)")
	intervalFlag := fs.Duration("interval", time.Hour, "candle interval")
	fs.Parse(args)

	start, err := time.Parse(time.RFC3339, *startFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid -start:", err)
		os.Exit(exitConfigError)
	}
	end, err := time.Parse(time.RFC3339, *endFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid -end:", err)
		os.Exit(exitConfigError)
	}
	return strings.Split(*symbolsFlag, ","), types.Window{Start: start, End: end, Interval: *intervalFlag}
}

func runBacktest(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	symbols, window := parseWindow(fs, args)

	provider := candlefeed.NewCachedProvider(cfg.CandleCacheDir, nil)
	strategies := map[string]strategy.Strategy{}
	for _, symbol := range symbols {
		s, err := strategy.New(cfg.DefaultStrategy, nil)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("failed to build strategy")
			return exitConfigError
		}
		strategies[symbol] = s
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	installShutdownHandler(cancel)

	result, err := backtest.Run(ctx, backtest.Config{
		Symbols:    symbols,
		Window:     window,
		Provider:   provider,
		LedgerCfg:  cfg.AccountingConfig(),
		RiskCfg:    cfg.RiskEngineConfig(),
		SafetyCfg:  cfg.SafetyConfig(),
		Mode:       cfg.Trading.Mode,
		Strategies: strategies,
		HistoryLen: 200,
	})
	if err != nil {
		if types.IsKind(err, types.KindSafetyViolation) {
			log.Error().Err(err).Msg("safety violation during backtest")
			return exitSafetyViolation
		}
		log.Error().Err(err).Msg("backtest failed")
		return exitConfigError
	}

	log.Info().
		Str("trade_log", result.TradeLogPath).
		Str("final_balance", result.FinalBalance.String()).
		Str("final_equity", result.FinalEquity.String()).
		Int("trades", result.TotalTrades).
		Msg("backtest complete")

	rows, err := performance.LoadTradeLog(result.TradeLogPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to reload trade log for invariant check")
		return exitInvariantFailure
	}
	thresholds := performance.Thresholds{MaxExposurePct: cfg.RiskEngineConfig().MaxExposurePct}
	if err := performance.CheckInvariants(rows, thresholds); err != nil {
		log.Error().Err(err).Msg("trade log failed invariant check")
		return exitInvariantFailure
	}

	if st, err := store.Open(cfg.StorePath); err == nil && st.IsEnabled() {
		mirrorTradeLog(st, rows)
	}

	return exitOK
}

func runOptimize(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("optimize", flag.ExitOnError)
	reportPath := fs.String("report", "logs/optimizer_report.csv", "ranked CSV report destination")
	concurrency := fs.Int("concurrency", 4, "worker pool size")
	maxRuns := fs.Int("max-runs", 200, "maximum parameter combinations to evaluate")
	symbols, window := parseWindow(fs, args)
	workDir := "data/optimizer_scratch"

	provider := candlefeed.NewCachedProvider(cfg.CandleCacheDir, nil)
	grid := optimizer.Grid{
		"fast_period": {3, 4, 6},
		"slow_period": {8, 12, 16},
		"rsi_period":  {10, 14},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	installShutdownHandler(cancel)

	results, err := optimizer.Run(ctx, optimizer.Config{
		Symbols:       symbols,
		Window:        window,
		Provider:      provider,
		StrategyName:  cfg.DefaultStrategy,
		Grid:          grid,
		MaxRuns:       *maxRuns,
		WorkDir:       workDir,
		BaseLedgerCfg: cfg.AccountingConfig(),
		BaseRiskCfg:   cfg.RiskEngineConfig(),
		BaseSafetyCfg: cfg.SafetyConfig(),
		Mode:          execution.ModePaper,
		Concurrency:   *concurrency,
	})
	if err != nil {
		log.Error().Err(err).Msg("optimizer run failed")
		return exitConfigError
	}

	if err := optimizer.WriteRankedCSV(*reportPath, results); err != nil {
		log.Error().Err(err).Msg("failed to write ranked report")
		return exitConfigError
	}

	hist := history.New(cfg.HistoryPath)
	profiles := make([]types.ProfileResult, 0, len(results))
	for i, r := range results {
		if r.Err != "" {
			continue
		}
		profiles = append(profiles, types.ProfileResult{
			Symbol:          strings.Join(symbols, "+"),
			Params:          r.Params,
			Metrics:         types.ProfileMetrics{TotalReturnPct: r.TotalReturnPct, MaxDrawdownPct: r.MaxDrawdownPct},
			RankedPosition:  i + 1,
			SelectedForLive: i == 0,
		})
	}
	entry := types.PerformanceHistoryEntry{
		RunID:     fmt.Sprintf("opt-%d", time.Now().Unix()),
		CreatedAt: time.Now().UTC(),
		Strategy:  cfg.DefaultStrategy,
		Symbols:   symbols,
		Window:    window,
		Profiles:  profiles,
	}
	if err := hist.Append(entry); err != nil {
		log.Error().Err(err).Msg("failed to append performance history entry")
		return exitConfigError
	}

	log.Info().Int("combinations", len(results)).Str("report", *reportPath).Msg("optimize complete")
	return exitOK
}

func runEvolve(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("evolve", flag.ExitOnError)
	symbolsFlag := fs.String("symbols", "BTCUSDT", "comma-separated symbol list to evaluate")
	dryRun := fs.Bool("dry-run", true, "log decisions without writing profiles")
	fs.Parse(args)

	profiles := history.NewProfileStore(cfg.ProfileDir)
	hist := history.New(cfg.HistoryPath)

	engine := evolution.New(evolution.Config{
		Decay: evolution.DecayConfig{
			MinTrades:        20,
			WinRateThreshold: 10,
			DDThreshold:      5,
			LookbackWindow:   20,
		},
		MinTrades:               20,
		MinReturnPct:            0,
		MaxDDPct:                25,
		MinImprovementReturnPct: 2,
		MaxAllowedDDIncreasePct: 3,
		DryRun:                  *dryRun,
	}, profiles, hist)

	notifier, err := alert.NewTelegramNotifier()
	if err != nil {
		log.Warn().Err(err).Msg("telegram notifier unavailable, continuing without alerts")
	}

	for _, symbol := range strings.Split(*symbolsFlag, ",") {
		decision, err := engine.Evaluate(symbol)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("evolution evaluation failed")
			continue
		}
		log.Info().
			Str("symbol", symbol).
			Str("status", string(decision.Status)).
			Bool("applied", decision.Applied).
			Str("reason", decision.Reason).
			Msg("evolution decision")
		if notifier != nil && decision.Status != evolution.DecisionSkip {
			_ = notifier.Notify(alert.EvolutionMessage(symbol, string(decision.Status), decision.Reason))
		}
	}
	return exitOK
}

func runServeAlerts(cfg *config.Config, args []string) int {
	notifier, err := alert.NewTelegramNotifier()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize alert notifier")
		return exitConfigError
	}
	if notifier == nil {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID unset, serve-alerts has nothing to do")
		return exitOK
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	installShutdownHandler(cancel)

	_ = notifier.Notify(fmt.Sprintf("cryptobot alert service online (mode=%s)", cfg.Trading.Mode))

	<-ctx.Done()
	log.Info().Msg("serve-alerts shutting down")
	return exitOK
}

func installShutdownHandler(cancel context.CancelFunc) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("shutdown signal received")
		cancel()
	}()
}

func mirrorTradeLog(st *store.Store, rows []types.TradeLogRow) {
	for _, row := range rows {
		if row.Action != types.ActionClose {
			continue
		}
		_ = st.SaveTrade(&store.TradeRecord{
			Symbol:      row.Symbol,
			Side:        string(row.Side),
			Quantity:    row.Quantity,
			EntryPrice:  row.EntryPrice,
			FillPrice:   row.FillPrice,
			RealizedPnL: row.RealizedPnL,
			PnLPct:      row.PnLPct,
			ClosedAt:    row.Timestamp,
		})
	}
}
