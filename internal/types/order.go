package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side carries all four historical tokens so existing CSVs stay
// backward compatible (§9 design note): LONG/SHORT are used internally
// for routing, BUY/SELL are accepted verbatim and normalized only for
// sign purposes, never rewritten in the log.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
	SideBuy   Side = "BUY"
	SideSell  Side = "SELL"
	SideNone  Side = ""
)

// SideFromSignal maps a strategy signal token to an internal Side.
// Anything other than "LONG"/"SHORT" is an error — no silent default.
func SideFromSignal(signal string) (Side, error) {
	switch strings.ToUpper(signal) {
	case "LONG":
		return SideLong, nil
	case "SHORT":
		return SideShort, nil
	default:
		return SideNone, InvalidInput("SideFromSignal", "unknown signal: "+signal)
	}
}

// Sign reports whether a side is economically long (+1) or short (-1).
// BUY counts as long, SELL as short.
func (s Side) Sign() int {
	switch s {
	case SideLong, SideBuy:
		return 1
	case SideShort, SideSell:
		return -1
	default:
		return 0
	}
}

func (s Side) IsLong() bool  { return s.Sign() > 0 }
func (s Side) IsShort() bool { return s.Sign() < 0 }

// Opposite returns the closing side for a given open side, preserving
// the LONG/SHORT vs BUY/SELL family of the input.
func (s Side) Opposite() Side {
	switch s {
	case SideLong:
		return SideShort
	case SideShort:
		return SideLong
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return SideNone
	}
}

// OrderKind is the order type.
type OrderKind string

const (
	OrderMarket    OrderKind = "MARKET"
	OrderLimit     OrderKind = "LIMIT"
	OrderStopLoss  OrderKind = "STOP_LOSS"
	OrderTakeProfit OrderKind = "TAKE_PROFIT"
)

const UnknownSymbol = "UNKNOWN"

// OrderRequest is an order to submit. NewOrderRequest enforces every
// construction invariant; a struct literal bypasses those checks, and
// execution.Router.Submit and accounting.Ledger.Submit check the symbol
// again.
type OrderRequest struct {
	Symbol        string
	Side          Side
	Kind          OrderKind
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	StopLoss      decimal.Decimal
	TakeProfit    decimal.Decimal
	ClientOrderID string
	StrategyTag   string
}

func NewOrderRequest(symbol string, side Side, kind OrderKind, qty decimal.Decimal, clientOrderID, strategyTag string) (*OrderRequest, error) {
	if symbol == "" || symbol == UnknownSymbol {
		return nil, InvalidOrder("symbol", "symbol is empty or UNKNOWN")
	}
	switch side {
	case SideLong, SideShort, SideBuy, SideSell:
	default:
		return nil, InvalidOrder("side", "side must be LONG/SHORT/BUY/SELL")
	}
	switch kind {
	case OrderMarket, OrderLimit, OrderStopLoss, OrderTakeProfit:
	default:
		return nil, InvalidOrder("kind", "unknown order kind")
	}
	if !qty.IsPositive() {
		return nil, InvalidOrder("quantity", "quantity must be > 0")
	}
	return &OrderRequest{
		Symbol:        symbol,
		Side:          side,
		Kind:          kind,
		Quantity:      qty,
		ClientOrderID: clientOrderID,
		StrategyTag:   strategyTag,
	}, nil
}

// OrderFill is immutable once produced.
type OrderFill struct {
	OrderID    string
	Symbol     string
	Side       Side
	Quantity   decimal.Decimal
	FillPrice  decimal.Decimal
	FillValue  decimal.Decimal
	Commission decimal.Decimal
	Slippage   decimal.Decimal
	Timestamp  time.Time
}

// ExecutionResult is the tagged Accepted/Rejected variant from spec §3.
type ExecutionResult struct {
	Accepted bool
	Fill     *OrderFill
	Kind     Kind
	Reason   string
}

func Accepted(fill *OrderFill) ExecutionResult {
	return ExecutionResult{Accepted: true, Fill: fill}
}

func Rejected(kind Kind, reason string) ExecutionResult {
	return ExecutionResult{Accepted: false, Kind: kind, Reason: reason}
}

// FilledQuantity returns 0 when rejected, as required by spec §3.
func (r ExecutionResult) FilledQuantity() decimal.Decimal {
	if !r.Accepted || r.Fill == nil {
		return decimal.Zero
	}
	return r.Fill.Quantity
}
