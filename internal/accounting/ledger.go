// Package accounting implements the paper accounting engine (module B):
// the exclusive owner of cash balance, open positions, session
// statistics, and the trade log.
package accounting

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptobot/internal/types"
)

// TrailingStopConfig controls the trailing-stop behavior applied on
// update_prices. Trailing is LONG-only; SHORT positions never trail
// in this core (§9 open question, preserved as-is).
type TrailingStopConfig struct {
	Enabled bool
	Pct     decimal.Decimal // fraction in (0, 0.20)
}

// Config is the paper-accounting engine's construction config.
type Config struct {
	StartingBalance decimal.Decimal
	SlippageRate    decimal.Decimal // default 0.0005
	CommissionRate  decimal.Decimal // default 0.0005
	AllowShorting   bool
	TrailingStop    TrailingStopConfig
	LogPath         string // optional; empty disables CSV persistence

	// SessionStart stamps the INIT row and every row's session_start
	// column. A backtest driver sets this to the first event's
	// timestamp so the trade log is reproducible run to run (§4.G);
	// zero means "use wall-clock time," appropriate for a live session
	// where there is no driving event to derive it from.
	SessionStart time.Time
}

func DefaultConfig(startingBalance decimal.Decimal) Config {
	return Config{
		StartingBalance: startingBalance,
		SlippageRate:    decimal.NewFromFloat(0.0005),
		CommissionRate:  decimal.NewFromFloat(0.0005),
		AllowShorting:   true,
	}
}

// Ledger is the paper accounting engine. It is single-goroutine
// cooperative: callers must not share one Ledger across goroutines
// without external synchronization (§5).
type Ledger struct {
	mu sync.Mutex

	cfg          Config
	balance      decimal.Decimal
	peakEquity   decimal.Decimal
	sessionStart time.Time
	positions    map[string]*types.Position

	wins, losses, totalTrades int

	writer *logWriter
}

// New constructs a Ledger and writes the mandatory INIT row before any
// trade can occur.
func New(cfg Config) (*Ledger, error) {
	sessionStart := cfg.SessionStart
	if sessionStart.IsZero() {
		sessionStart = time.Now().UTC()
	}
	l := &Ledger{
		cfg:          cfg,
		balance:      cfg.StartingBalance,
		peakEquity:   cfg.StartingBalance,
		sessionStart: sessionStart,
		positions:    make(map[string]*types.Position),
	}
	if cfg.LogPath != "" {
		w, err := newLogWriter(cfg.LogPath)
		if err != nil {
			return nil, types.IOFailure("accounting.New", err)
		}
		l.writer = w
	}
	initRow := types.TradeLogRow{
		Timestamp:          l.sessionStart,
		SessionStart:       l.sessionStart,
		Action:             types.ActionInit,
		BalanceAfter:       l.balance,
		EquityAfter:        l.balance,
		OpenPositionsAfter: 0,
	}
	if err := l.appendRow(initRow); err != nil {
		return nil, err
	}
	return l, nil
}

// Close releases the underlying log file handle, if any.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer != nil {
		return l.writer.Close()
	}
	return nil
}

// apply_trade_result is the canonical balance-update helper named in
// spec §4.B: balance + realized_pnl - commission - slippage, rounded
// to cents. fill_value is never added/subtracted from balance directly.
func applyTradeResult(balance, realizedPnL, commission, slippage decimal.Decimal) decimal.Decimal {
	return balance.Add(realizedPnL).Sub(commission).Sub(slippage).Round(2)
}

// Equity returns balance + sum of unrealized PnL across open positions.
func (l *Ledger) Equity() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.equityLocked()
}

func (l *Ledger) equityLocked() decimal.Decimal {
	eq := l.balance
	for _, p := range l.positions {
		eq = eq.Add(p.UnrealizedPnL())
	}
	return eq
}

func (l *Ledger) Balance() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

func (l *Ledger) PeakEquity() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peakEquity
}

// Position returns a snapshot copy of the open position for symbol, if any.
func (l *Ledger) Position(symbol string) (types.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[symbol]
	if !ok {
		return types.Position{}, false
	}
	return p.Snapshot(), true
}

// OpenPositions returns snapshot copies of every open position.
func (l *Ledger) OpenPositions() []types.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p.Snapshot())
	}
	return out
}

func (l *Ledger) OpenPositionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.positions)
}

// Stats returns (wins, losses, totalTrades).
func (l *Ledger) Stats() (int, int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.wins, l.losses, l.totalTrades
}

func (l *Ledger) updatePeak(equity decimal.Decimal) {
	if equity.GreaterThan(l.peakEquity) {
		l.peakEquity = equity
	}
}

func (l *Ledger) appendRow(row types.TradeLogRow) error {
	if l.writer == nil {
		return nil
	}
	if err := l.writer.Write(row); err != nil {
		log.Error().Err(err).Str("order_id", row.OrderID).Msg("trade log write failed")
		return types.IOFailure("accounting.appendRow", err)
	}
	return nil
}
