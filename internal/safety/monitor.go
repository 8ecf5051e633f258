// Package safety implements the safety monitor (module D): pre/post
// trade limit checks, peak-equity drawdown tracking, and the kill
// switch. Grounded on the teacher's risk/circuit_breaker.go, whose
// peak/drawdown arithmetic is generalized here to the spec's
// process-wide halt semantics (no consecutive-loss cooldown — that
// detail is not part of this spec's safety monitor).
package safety

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptobot/internal/types"
)

// KillSwitch is the one legitimate piece of process-wide mutable state
// (§9): an atomic boolean plus an ambient env-var read, observed
// synchronously on every pre-trade check.
type KillSwitch struct {
	engaged atomic.Bool
	envVar  string
}

func NewKillSwitch(envVar string) *KillSwitch {
	if envVar == "" {
		envVar = "CRYPTOBOT_KILL_SWITCH"
	}
	return &KillSwitch{envVar: envVar}
}

func (k *KillSwitch) Engage() { k.engaged.Store(true) }

// Engaged reports true once either the in-process flag was set or the
// env var carries a truthy value. Ordering: once observed true, no
// further accepted fills are possible for the rest of the process.
func (k *KillSwitch) Engaged() bool {
	if k.engaged.Load() {
		return true
	}
	v := strings.ToLower(strings.TrimSpace(os.Getenv(k.envVar)))
	switch v {
	case "1", "true", "yes", "on":
		k.engaged.Store(true)
		return true
	default:
		return false
	}
}

// Config mirrors spec §4.D and §6(a).
type Config struct {
	MaxDailyLossPct    decimal.Decimal
	MaxRiskPerTradePct decimal.Decimal
	MaxExposurePct     decimal.Decimal
	MaxOpenTrades      int
	KillSwitchEnvVar   string
}

// Monitor owns the safety-relevant equity state.
type Monitor struct {
	mu sync.Mutex

	cfg Config
	ks  *KillSwitch

	startingEquity decimal.Decimal
	peakEquity     decimal.Decimal
	currentEquity  decimal.Decimal
	halted         bool
}

func New(cfg Config, startingEquity decimal.Decimal) *Monitor {
	return &Monitor{
		cfg:            cfg,
		ks:             NewKillSwitch(cfg.KillSwitchEnvVar),
		startingEquity: startingEquity,
		peakEquity:     startingEquity,
		currentEquity:  startingEquity,
	}
}

func (m *Monitor) KillSwitch() *KillSwitch { return m.ks }

func (m *Monitor) Halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.halted
}

func (m *Monitor) PeakEquity() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peakEquity
}

// CheckPreTrade rejects when the kill switch is engaged, risk_amount
// exceeds the per-trade cap, projected exposure exceeds the cap, or
// max open trades is reached.
func (m *Monitor) CheckPreTrade(riskAmount, exposureAfter decimal.Decimal, openPositions int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.halted || m.ks.Engaged() {
		return types.SafetyViolation(types.ViolationKillSwitch, "kill switch engaged")
	}
	maxRisk := m.cfg.MaxRiskPerTradePct.Mul(m.currentEquity)
	if riskAmount.GreaterThan(maxRisk) {
		return types.SafetyViolation(types.ViolationRiskPerTrade, "risk amount exceeds per-trade cap")
	}
	maxExposure := m.cfg.MaxExposurePct.Mul(m.currentEquity)
	if exposureAfter.GreaterThan(maxExposure) {
		return types.SafetyViolation(types.ViolationExposure, "exposure exceeds cap")
	}
	if openPositions >= m.cfg.MaxOpenTrades {
		return types.SafetyViolation(types.ViolationMaxOpen, "max open trades reached")
	}
	return nil
}

// CheckPostTrade updates peak_equity and engages the kill switch if
// drawdown-from-peak (not from session start) reaches the cap.
func (m *Monitor) CheckPostTrade(newEquity decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentEquity = newEquity
	if newEquity.GreaterThan(m.peakEquity) {
		m.peakEquity = newEquity
	}
	if m.peakEquity.IsZero() {
		return
	}
	drawdown := m.peakEquity.Sub(newEquity).Div(m.peakEquity)
	if drawdown.GreaterThanOrEqual(m.cfg.MaxDailyLossPct) {
		m.halted = true
		m.ks.Engage()
		log.Warn().
			Str("drawdown", drawdown.StringFixed(4)).
			Str("peak_equity", m.peakEquity.StringFixed(2)).
			Str("current_equity", newEquity.StringFixed(2)).
			Msg("safety monitor: drawdown kill switch engaged")
	}
}
