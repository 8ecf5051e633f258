// Package risk implements the risk engine (module C): it converts a
// signal plus price/stop context into a sized order, or a Skip.
package risk

import (
	"os"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptobot/internal/types"
)

// Config mirrors spec §4.C and §6(b).
type Config struct {
	RiskPerTradePct decimal.Decimal // e.g. 0.01
	MaxExposurePct  decimal.Decimal
	MinPositionUSD  decimal.Decimal
	DefaultATRMult  decimal.Decimal // used when no stop is given
}

// ConfigFromEnv builds a Config from env vars, falling back to
// defaults — the teacher's local-helper-per-package idiom rather than
// a shared env package (see risk/manager.go's envDecimalRM).
func ConfigFromEnv() Config {
	return Config{
		RiskPerTradePct: envDecimal("RISK_PER_TRADE_PCT", decimal.NewFromFloat(0.01)),
		MaxExposurePct:  envDecimal("RISK_MAX_EXPOSURE_PCT", decimal.NewFromFloat(0.5)),
		MinPositionUSD:  envDecimal("RISK_MIN_POSITION_USD", decimal.NewFromFloat(10)),
		DefaultATRMult:  envDecimal("RISK_DEFAULT_ATR_MULT", decimal.NewFromFloat(2)),
	}
}

func envDecimal(key string, def decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return def
}

// Input bundles everything the risk engine needs to size an order.
type Input struct {
	Symbol        string
	Side          types.Side
	Equity        decimal.Decimal
	EntryPrice    decimal.Decimal
	StopLossPrice decimal.Decimal // zero means "not given"
	TakeProfit    decimal.Decimal
	ATR           decimal.Decimal // used when StopLossPrice is zero
	StrategyTag   string
}

// Output is the typed replacement for the duck-typed risk_output dict
// (§9 design note): reject at the boundary, not mid-pipeline.
type Output struct {
	Symbol     string
	Side       types.Side
	Quantity   decimal.Decimal
	EntryPrice decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	RiskUSD    decimal.Decimal
}

// Skip is returned instead of an Output when the engine declines to size.
type Skip struct {
	Reason string
}

// Engine sizes orders from signals.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine { return &Engine{cfg: cfg} }

// Size computes (*Output, nil, nil) on success, or (nil, *Skip, nil) to
// skip, or (nil, nil, err) on malformed input.
func (e *Engine) Size(in Input) (*Output, *Skip, error) {
	if in.Symbol == "" || in.Symbol == types.UnknownSymbol {
		return nil, nil, types.InvalidInput("risk.Size", "symbol absent or unknown")
	}
	if in.Equity.IsZero() || in.Equity.IsNegative() {
		return nil, &Skip{Reason: "non-positive equity"}, nil
	}

	stop := in.StopLossPrice
	if stop.IsZero() {
		if in.ATR.IsZero() {
			return nil, &Skip{Reason: "no stop and no ATR to derive one"}, nil
		}
		distance := in.ATR.Mul(e.cfg.DefaultATRMult)
		if in.Side.IsShort() {
			stop = in.EntryPrice.Add(distance)
		} else {
			stop = in.EntryPrice.Sub(distance)
		}
	}

	riskPerShare := in.EntryPrice.Sub(stop).Abs()
	if riskPerShare.IsZero() {
		return nil, &Skip{Reason: "zero risk per share"}, nil
	}

	riskAmount := e.cfg.RiskPerTradePct.Mul(in.Equity)
	qty := riskAmount.Div(riskPerShare).Truncate(8)

	positionValue := qty.Mul(in.EntryPrice)
	if positionValue.LessThan(e.cfg.MinPositionUSD) {
		return nil, &Skip{Reason: "position value below minimum"}, nil
	}

	return &Output{
		Symbol:     in.Symbol,
		Side:       in.Side,
		Quantity:   qty,
		EntryPrice: in.EntryPrice,
		StopLoss:   stop,
		TakeProfit: in.TakeProfit,
		RiskUSD:    riskAmount,
	}, nil, nil
}
