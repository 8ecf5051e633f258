// Package performance implements the performance analyzer (module H):
// invariant checks and metrics derived from a trade log. Grounded on
// the teacher's GetStats() methods (risk/manager.go, execution/executor.go)
// generalized into a stateless analyzer, plus the discrete invariant
// checks enumerated in spec §4.H and §8.
package performance

import (
	"encoding/csv"
	"os"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptobot/internal/types"
)

const epsilon = "0.01"

var eps = decimal.RequireFromString(epsilon)

// Metrics summarizes a loaded trade log.
type Metrics struct {
	TotalPnL        decimal.Decimal
	TotalPnLPct     decimal.Decimal
	WinRatePct      decimal.Decimal
	LargestWin      decimal.Decimal
	LargestLoss     decimal.Decimal
	MaxDrawdownPct  decimal.Decimal
	AvgRMultiple    decimal.Decimal
	TotalTrades     int
	PerSymbol       map[string]*SymbolMetrics
}

type SymbolMetrics struct {
	Trades     int
	Wins       int
	TotalPnL   decimal.Decimal
	WinRatePct decimal.Decimal
}

// LoadTradeLog reads a trade log CSV written by internal/accounting.
func LoadTradeLog(path string) ([]types.TradeLogRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.IOFailure("performance.LoadTradeLog", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	raw, err := r.ReadAll()
	if err != nil {
		return nil, types.IOFailure("performance.LoadTradeLog", err)
	}
	if len(raw) < 1 {
		return nil, types.InvariantViolation("empty_log", "trade log has no rows, not even INIT")
	}
	raw = raw[1:] // header

	rows := make([]types.TradeLogRow, 0, len(raw))
	for _, fields := range raw {
		row, err := types.ParseRow(fields)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Analyze computes Metrics from a loaded trade log.
func Analyze(rows []types.TradeLogRow) Metrics {
	m := Metrics{PerSymbol: make(map[string]*SymbolMetrics)}
	if len(rows) == 0 {
		return m
	}

	start := rows[0].BalanceAfter
	wins, losses := 0, 0
	peak := rows[0].EquityAfter
	maxDD := decimal.Zero
	var rSum decimal.Decimal
	rCount := 0

	for _, row := range rows {
		if row.Action != types.ActionClose {
			if row.EquityAfter.GreaterThan(peak) {
				peak = row.EquityAfter
			}
			continue
		}
		m.TotalTrades++
		m.TotalPnL = m.TotalPnL.Add(row.RealizedPnL)
		if row.RealizedPnL.IsPositive() {
			wins++
			if row.RealizedPnL.GreaterThan(m.LargestWin) {
				m.LargestWin = row.RealizedPnL
			}
		} else if row.RealizedPnL.IsNegative() {
			losses++
			if row.RealizedPnL.LessThan(m.LargestLoss) {
				m.LargestLoss = row.RealizedPnL
			}
		}
		rSum = rSum.Add(row.PnLPct)
		rCount++

		sm := m.PerSymbol[row.Symbol]
		if sm == nil {
			sm = &SymbolMetrics{}
			m.PerSymbol[row.Symbol] = sm
		}
		sm.Trades++
		sm.TotalPnL = sm.TotalPnL.Add(row.RealizedPnL)
		if row.RealizedPnL.IsPositive() {
			sm.Wins++
		}

		if row.EquityAfter.GreaterThan(peak) {
			peak = row.EquityAfter
		} else if !peak.IsZero() {
			dd := peak.Sub(row.EquityAfter).Div(peak).Mul(decimal.NewFromInt(100))
			if dd.GreaterThan(maxDD) {
				maxDD = dd
			}
		}
	}

	for _, sm := range m.PerSymbol {
		if sm.Trades > 0 {
			sm.WinRatePct = decimal.NewFromInt(int64(sm.Wins)).Div(decimal.NewFromInt(int64(sm.Trades))).Mul(decimal.NewFromInt(100))
		}
	}

	if m.TotalTrades > 0 {
		m.WinRatePct = decimal.NewFromInt(int64(wins)).Div(decimal.NewFromInt(int64(m.TotalTrades))).Mul(decimal.NewFromInt(100))
	}
	if !start.IsZero() {
		m.TotalPnLPct = m.TotalPnL.Div(start).Mul(decimal.NewFromInt(100))
	}
	if rCount > 0 {
		m.AvgRMultiple = rSum.Div(decimal.NewFromInt(int64(rCount)))
	}
	m.MaxDrawdownPct = maxDD
	return m
}
