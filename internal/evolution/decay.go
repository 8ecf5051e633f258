// Package evolution implements the decay detector and evolution engine
// (module K). Grounded on the teacher's risk/circuit_breaker.go state
// machine: decay detection mirrors Check()'s threshold-comparison
// shape; Apply/dry-run mirrors trip(reason) vs. a logged-only decision.
package evolution

import (
	"github.com/web3guy0/cryptobot/internal/history"
	"github.com/web3guy0/cryptobot/internal/types"
)

// Status is the decay detector's verdict for one symbol.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusNoData   Status = "no-data"
	StatusError    Status = "error"
)

// DecayConfig thresholds the detector.
type DecayConfig struct {
	MinTrades        int
	WinRateThreshold float64 // percentage points
	DDThreshold      float64 // percentage points
	LookbackWindow   int     // number of most-recent history entries considered
}

// DecayReport is the detector's output for one symbol.
type DecayReport struct {
	Symbol          string
	Status          Status
	CurrentWinRate  float64
	BestWinRate     float64
	CurrentDD       float64
	BestDD          float64
	WinRateDrop     float64
	DDIncrease      float64
}

// Detect is read-only: it never mutates a profile or history entry.
func Detect(cfg DecayConfig, profile types.StrategyProfile, entries []types.PerformanceHistoryEntry) DecayReport {
	report := DecayReport{Symbol: profile.Symbol}

	if profile.Metrics.Trades < cfg.MinTrades {
		report.Status = StatusNoData
		return report
	}
	report.CurrentWinRate = profile.Metrics.WinRatePct
	report.CurrentDD = profile.Metrics.MaxDrawdownPct

	windowed := entries
	if cfg.LookbackWindow > 0 && len(entries) > cfg.LookbackWindow {
		windowed = entries[len(entries)-cfg.LookbackWindow:]
	}

	bestWinRate := -1.0
	bestDD := -1.0
	found := false
	for _, entry := range windowed {
		for _, p := range entry.Profiles {
			if p.Symbol != profile.Symbol || p.Metrics.Trades < cfg.MinTrades {
				continue
			}
			found = true
			if p.Metrics.WinRatePct > bestWinRate {
				bestWinRate = p.Metrics.WinRatePct
			}
			if bestDD < 0 || p.Metrics.MaxDrawdownPct < bestDD {
				bestDD = p.Metrics.MaxDrawdownPct
			}
		}
	}

	if !found {
		report.Status = StatusNoData
		return report
	}
	report.BestWinRate = bestWinRate
	report.BestDD = bestDD
	report.WinRateDrop = bestWinRate - report.CurrentWinRate
	report.DDIncrease = report.CurrentDD - bestDD

	if report.WinRateDrop > cfg.WinRateThreshold || report.DDIncrease > cfg.DDThreshold {
		report.Status = StatusDegraded
	} else {
		report.Status = StatusHealthy
	}
	return report
}

// HistoryLoader is the subset of *history.Log the detector needs. It
// is an interface purely so tests can stub it without touching disk.
type HistoryLoader interface {
	Load() ([]types.PerformanceHistoryEntry, error)
}

var _ HistoryLoader = (*history.Log)(nil)
