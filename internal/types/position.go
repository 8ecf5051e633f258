package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is at most one per symbol, owned exclusively by the
// accounting engine. Callers receive copies (see Snapshot).
type Position struct {
	Symbol          string
	Side            Side
	Quantity        decimal.Decimal
	EntryPrice      decimal.Decimal
	EntryCommission decimal.Decimal
	CurrentPrice    decimal.Decimal
	StopLoss        decimal.Decimal
	TakeProfit      decimal.Decimal
	HighestPrice    decimal.Decimal
	OpenedAt        time.Time
}

// UnrealizedPnL is (current-entry)*qty for LONG, (entry-current)*qty for SHORT.
func (p Position) UnrealizedPnL() decimal.Decimal {
	diff := p.CurrentPrice.Sub(p.EntryPrice)
	if p.Side.IsShort() {
		diff = diff.Neg()
	}
	return diff.Mul(p.Quantity)
}

// Snapshot returns an immutable copy safe to hand to callers.
func (p Position) Snapshot() Position { return p }

// TradeAction is the trade-log action column.
type TradeAction string

const (
	ActionInit  TradeAction = "INIT"
	ActionOpen  TradeAction = "OPEN"
	ActionClose TradeAction = "CLOSE"
)

// TradeLogRow is one row of the append-only trade log.
type TradeLogRow struct {
	Timestamp         time.Time
	SessionStart      time.Time
	OrderID           string
	Symbol            string
	Action            TradeAction
	Side              Side
	Quantity          decimal.Decimal
	EntryPrice        decimal.Decimal
	FillPrice         decimal.Decimal
	FillValue         decimal.Decimal
	Commission        decimal.Decimal
	Slippage          decimal.Decimal
	RealizedPnL       decimal.Decimal
	PnLPct            decimal.Decimal
	BalanceAfter      decimal.Decimal
	EquityAfter       decimal.Decimal
	OpenPositionsAfter int
}

// CSVHeader is the exact, stable column order from spec §6.
var CSVHeader = []string{
	"timestamp", "session_start", "order_id", "symbol", "action", "side",
	"quantity", "entry_price", "fill_price", "fill_value", "commission",
	"slippage", "realized_pnl", "pnl_pct", "balance", "equity", "open_positions",
}
