// Package execution implements the execution engine (module E): it
// validates and routes orders to a Paper or DryRun venue, gated by the
// safety monitor. Grounded on the teacher's execution/executor.go (order
// routing, simulated fills) and core/engine.go's RiskValidator/
// TradeNotifier interfaces, which avoid import cycles the same way
// Ledger/SafetyChecker do here.
package execution

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptobot/internal/types"
)

// Mode selects the execution venue.
type Mode string

const (
	ModeMonitor Mode = "monitor"
	ModePaper   Mode = "paper"
	ModeDryRun  Mode = "dry_run"
	ModeLive    Mode = "live" // identical to DryRun per spec §9
)

// Ledger is the subset of accounting.Ledger the router needs.
type Ledger interface {
	Submit(order *types.OrderRequest, currentPrice decimal.Decimal, now time.Time) (types.ExecutionResult, error)
	Equity() decimal.Decimal
	OpenPositionCount() int
}

// SafetyChecker is the subset of safety.Monitor the router needs.
type SafetyChecker interface {
	CheckPreTrade(riskAmount, exposureAfter decimal.Decimal, openPositions int) error
	CheckPostTrade(newEquity decimal.Decimal)
}

// Venue is a capability-set abstraction (§9): any execution backend
// exposes submit(order, price, now) -> ExecutionResult.
type Venue interface {
	Submit(order *types.OrderRequest, currentPrice decimal.Decimal, now time.Time) (types.ExecutionResult, error)
}

// Router is the execution engine.
type Router struct {
	mode   Mode
	ledger Ledger
	safety SafetyChecker
	venue  Venue
}

func New(mode Mode, ledger Ledger, safety SafetyChecker) *Router {
	r := &Router{mode: mode, ledger: ledger, safety: safety}
	switch mode {
	case ModePaper:
		r.venue = &paperVenue{ledger: ledger}
	case ModeDryRun, ModeLive:
		r.venue = &dryRunVenue{}
	default:
		r.venue = nil
	}
	return r
}

// Submit is the five-step validate-then-route sequence from spec §4.E.
// now is the driving event's timestamp, threaded through to the venue
// instead of read from the wall clock so replays are deterministic.
func (r *Router) Submit(order *types.OrderRequest, currentPrice decimal.Decimal, riskUSD decimal.Decimal, now time.Time) (types.ExecutionResult, error) {
	if order.Symbol == "" || order.Symbol == types.UnknownSymbol {
		return types.Rejected(types.KindInvalidInput, "invalid symbol"), nil
	}

	exposureAfter := order.Quantity.Mul(currentPrice)
	if err := r.safety.CheckPreTrade(riskUSD, exposureAfter, r.ledger.OpenPositionCount()); err != nil {
		terr, _ := err.(*types.Error)
		reason := err.Error()
		log.Warn().Str("symbol", order.Symbol).Str("reason", reason).Msg("execution rejected: safety violation")
		if terr != nil {
			return types.Rejected(types.KindSafetyViolation, string(terr.Violation)), nil
		}
		return types.Rejected(types.KindSafetyViolation, reason), nil
	}

	if r.mode == ModeMonitor {
		return types.Rejected(types.KindMonitorMode, "monitor mode"), nil
	}

	result, err := r.venue.Submit(order, currentPrice, now)
	if err != nil {
		return types.ExecutionResult{}, err
	}

	if result.Accepted {
		r.safety.CheckPostTrade(r.ledger.Equity())
	}
	return result, nil
}

// CreateOrderFromRisk constructs an OrderRequest from a risk-engine
// output. It is a hard error if the symbol is missing or UNKNOWN — no
// silent default (§4.E).
func CreateOrderFromRisk(symbol string, side types.Side, qty, stopLoss, takeProfit decimal.Decimal, clientOrderID, strategyTag string) (*types.OrderRequest, error) {
	if symbol == "" || symbol == types.UnknownSymbol {
		return nil, types.InvalidInput("CreateOrderFromRisk", "symbol missing or UNKNOWN")
	}
	order, err := types.NewOrderRequest(symbol, side, types.OrderMarket, qty, clientOrderID, strategyTag)
	if err != nil {
		return nil, err
	}
	order.StopLoss = stopLoss
	order.TakeProfit = takeProfit
	return order, nil
}
