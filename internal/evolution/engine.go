package evolution

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/cryptobot/internal/history"
	"github.com/web3guy0/cryptobot/internal/types"
)

// DecisionStatus is the evolution engine's verdict for one symbol.
type DecisionStatus string

const (
	DecisionSkip   DecisionStatus = "SKIP"
	DecisionApply  DecisionStatus = "APPLY"
	DecisionReject DecisionStatus = "REJECT"
)

// Config drives the evolution engine. With DryRun set, an APPLY
// decision is only logged and audited (§4.K step 6). The zero value of
// DryRun is false, so callers set it explicitly; cmd/cryptobot's
// evolve subcommand defaults its -dry-run flag to true.
type Config struct {
	Decay                    DecayConfig
	TriggerStatuses          []Status
	MinTrades                int
	MinReturnPct             float64
	MaxDDPct                 float64
	MinImprovementReturnPct  float64
	MaxAllowedDDIncreasePct  float64
	DryRun                   bool
	AuditLogDir              string
}

// Decision is the audit-logged record of one evolution evaluation.
type Decision struct {
	Symbol     string                 `json:"symbol"`
	Timestamp  time.Time              `json:"timestamp"`
	Status     DecisionStatus         `json:"status"`
	Reason     string                 `json:"reason"`
	Applied    bool                   `json:"applied"`
	OldParams  map[string]interface{} `json:"old_params"`
	NewParams  map[string]interface{} `json:"new_params,omitempty"`
	OldMetrics types.ProfileMetrics   `json:"old_metrics"`
	NewMetrics types.ProfileMetrics   `json:"new_metrics,omitempty"`
}

// Engine ties the decay detector, profile store, and history log
// together. It never modifies risk, safety, or trading-mode
// configuration — only strategy profiles (§4.K read-only guarantee).
type Engine struct {
	cfg      Config
	profiles *history.ProfileStore
	hist     HistoryLoader
}

func New(cfg Config, profiles *history.ProfileStore, hist HistoryLoader) *Engine {
	if len(cfg.TriggerStatuses) == 0 {
		cfg.TriggerStatuses = []Status{StatusDegraded}
	}
	return &Engine{cfg: cfg, profiles: profiles, hist: hist}
}

// Evaluate runs the full per-symbol decision flow from spec §4.K.
func (e *Engine) Evaluate(symbol string) (Decision, error) {
	decision := Decision{Symbol: symbol, Timestamp: time.Now().UTC()}

	profile, err := e.profiles.Load(symbol)
	if err != nil {
		return decision, err
	}
	decision.OldParams = profile.Params
	decision.OldMetrics = profile.Metrics

	entries, err := e.hist.Load()
	if err != nil {
		return decision, err
	}

	report := Detect(e.cfg.Decay, profile, entries)
	if !triggers(report.Status, e.cfg.TriggerStatuses) {
		decision.Status = DecisionSkip
		decision.Reason = "decay status " + string(report.Status) + " not in trigger set"
		e.audit(decision)
		return decision, nil
	}

	candidate, ok := bestCandidate(symbol, entries, e.cfg.MinTrades, e.cfg.MinReturnPct, e.cfg.MaxDDPct)
	if !ok {
		decision.Status = DecisionSkip
		decision.Reason = "no qualifying candidate in history window"
		e.audit(decision)
		return decision, nil
	}

	improvement := candidate.Metrics.TotalReturnPct - profile.Metrics.TotalReturnPct
	if improvement < e.cfg.MinImprovementReturnPct {
		decision.Status = DecisionReject
		decision.Reason = "insufficient_improvement"
		e.audit(decision)
		return decision, nil
	}
	ddRegression := candidate.Metrics.MaxDrawdownPct - profile.Metrics.MaxDrawdownPct
	if ddRegression > e.cfg.MaxAllowedDDIncreasePct {
		decision.Status = DecisionReject
		decision.Reason = "drawdown_regression"
		e.audit(decision)
		return decision, nil
	}

	decision.Status = DecisionApply
	decision.NewParams = candidate.Params
	decision.NewMetrics = candidate.Metrics
	decision.Reason = "candidate beats current profile within drawdown tolerance"

	if e.cfg.DryRun {
		decision.Applied = false
		e.audit(decision)
		return decision, nil
	}

	updated := profile
	updated.Params = candidate.Params
	updated.Metrics = candidate.Metrics
	if err := e.profiles.Save(updated, types.SourceAutoEvolution, ""); err != nil {
		return decision, err
	}
	decision.Applied = true
	e.audit(decision)
	return decision, nil
}

func triggers(status Status, set []Status) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// bestCandidate scans history for candidate parameter sets within
// global filters, ranked by (-return, drawdown) (§4.K step 3-4).
func bestCandidate(symbol string, entries []types.PerformanceHistoryEntry, minTrades int, minReturn, maxDD float64) (types.ProfileResult, bool) {
	var candidates []types.ProfileResult
	for _, entry := range entries {
		for _, p := range entry.Profiles {
			if p.Symbol != symbol {
				continue
			}
			if p.Metrics.Trades < minTrades {
				continue
			}
			if p.Metrics.TotalReturnPct < minReturn {
				continue
			}
			if p.Metrics.MaxDrawdownPct > maxDD {
				continue
			}
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return types.ProfileResult{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Metrics.TotalReturnPct != candidates[j].Metrics.TotalReturnPct {
			return candidates[i].Metrics.TotalReturnPct > candidates[j].Metrics.TotalReturnPct
		}
		return candidates[i].Metrics.MaxDrawdownPct < candidates[j].Metrics.MaxDrawdownPct
	})
	return candidates[0], true
}

// audit writes one JSON file per symbol per decision (§4.K step 7).
func (e *Engine) audit(decision Decision) {
	dir := e.cfg.AuditLogDir
	if dir == "" {
		dir = "logs/evolution_audit"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error().Err(err).Msg("evolution: failed to create audit log dir")
		return
	}
	name := decision.Symbol + "_" + decision.Timestamp.Format("20060102T150405.000000000Z") + ".json"
	data, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("evolution: failed to marshal decision")
		return
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		log.Error().Err(err).Msg("evolution: failed to write audit log")
	}
}
