// Package optimizer implements the parameter search (module I):
// enumerate a parameter grid, drive the backtest runner per
// combination, and rank results. No teacher analog exists for grid
// search; the worker-pool shape is grounded on the teacher's
// goroutine-per-concern idiom (core/engine.go's mainLoop /
// positionMonitorLoop launched as independent goroutines), applied
// here to one goroutine per combination, each owning its own
// Ledger/Monitor/Router/strategy stack per §5's embarrassingly-
// parallel requirement.
package optimizer

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/cryptobot/internal/accounting"
	"github.com/web3guy0/cryptobot/internal/backtest"
	"github.com/web3guy0/cryptobot/internal/candlefeed"
	"github.com/web3guy0/cryptobot/internal/execution"
	"github.com/web3guy0/cryptobot/internal/performance"
	"github.com/web3guy0/cryptobot/internal/risk"
	"github.com/web3guy0/cryptobot/internal/safety"
	"github.com/web3guy0/cryptobot/internal/strategy"
	"github.com/web3guy0/cryptobot/internal/types"
)

// Grid is a map of parameter name to candidate values.
type Grid map[string][]interface{}

// Config drives one optimizer invocation.
type Config struct {
	Symbols        []string
	Window         types.Window
	Provider       candlefeed.Provider
	StrategyName   string
	Grid           Grid
	MaxRuns        int
	WorkDir        string // scratch dir for temporary per-combination trade logs
	BaseLedgerCfg  accounting.Config
	BaseRiskCfg    risk.Config
	BaseSafetyCfg  safety.Config
	Mode           execution.Mode
	Concurrency    int
}

// RunResult is one combination's outcome.
type RunResult struct {
	Params         map[string]interface{}
	TotalReturnPct float64
	MaxDrawdownPct float64
	Score          float64
	Err            string
}

// Run enumerates the cartesian product of Config.Grid (truncated to
// MaxRuns), runs the backtest for each, scores it, and returns results
// ranked by (total_return_pct desc, max_drawdown_pct asc tiebreak).
func Run(ctx context.Context, cfg Config) ([]RunResult, error) {
	combos := cartesianProduct(cfg.Grid)
	if cfg.MaxRuns > 0 && len(combos) > cfg.MaxRuns {
		log.Warn().Int("total_combinations", len(combos)).Int("max_runs", cfg.MaxRuns).Msg("optimizer: truncating parameter grid")
		combos = combos[:cfg.MaxRuns]
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	results := make([]RunResult, len(combos))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, params := range combos {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, params map[string]interface{}) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = runOne(ctx, cfg, params, i)
		}(i, params)
	}
	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].TotalReturnPct != results[j].TotalReturnPct {
			return results[i].TotalReturnPct > results[j].TotalReturnPct
		}
		return results[i].MaxDrawdownPct < results[j].MaxDrawdownPct
	})
	return results, nil
}

// runOne is a single run: construct fully independent B/D/E/F plus a
// scoped temporary trade-log file, always deleted on exit regardless
// of success or failure (§4.I step 3, §5 scoped resources).
func runOne(ctx context.Context, cfg Config, params map[string]interface{}, idx int) RunResult {
	tmpPath := fmt.Sprintf("%s/combo_%d.csv", cfg.WorkDir, idx)
	defer os.Remove(tmpPath)

	result := RunResult{Params: params}

	strat, err := strategy.New(cfg.StrategyName, params)
	if err != nil {
		result.Score = math.Inf(-1)
		result.Err = err.Error()
		return result
	}

	strategies := make(map[string]strategy.Strategy, len(cfg.Symbols))
	for _, symbol := range cfg.Symbols {
		strategies[symbol] = strat
	}

	ledgerCfg := cfg.BaseLedgerCfg
	ledgerCfg.LogPath = tmpPath

	btCfg := backtest.Config{
		Symbols:    cfg.Symbols,
		Window:     cfg.Window,
		Provider:   cfg.Provider,
		LedgerCfg:  ledgerCfg,
		RiskCfg:    cfg.BaseRiskCfg,
		SafetyCfg:  cfg.BaseSafetyCfg,
		Mode:       cfg.Mode,
		Strategies: strategies,
		HistoryLen: 500,
	}

	if _, err := backtest.Run(ctx, btCfg); err != nil {
		result.Score = math.Inf(-1)
		result.Err = err.Error()
		return result
	}

	rows, err := performance.LoadTradeLog(tmpPath)
	if err != nil {
		result.Score = math.Inf(-1)
		result.Err = err.Error()
		return result
	}
	metrics := performance.Analyze(rows)

	returnPct, _ := metrics.TotalPnLPct.Float64()
	ddPct, _ := metrics.MaxDrawdownPct.Float64()
	result.TotalReturnPct = returnPct
	result.MaxDrawdownPct = ddPct
	result.Score = returnPct
	return result
}

// cartesianProduct enumerates every combination of grid values, with a
// deterministic key order so results are reproducible across runs.
func cartesianProduct(grid Grid) []map[string]interface{} {
	keys := make([]string, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	combos := []map[string]interface{}{{}}
	for _, key := range keys {
		values := grid[key]
		var next []map[string]interface{}
		for _, combo := range combos {
			for _, v := range values {
				nc := make(map[string]interface{}, len(combo)+1)
				for k, val := range combo {
					nc[k] = val
				}
				nc[key] = v
				next = append(next, nc)
			}
		}
		combos = next
	}
	return combos
}
