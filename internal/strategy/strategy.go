// Package strategy implements the strategy evaluator (module F): a
// polymorphic capability-set abstraction over {evaluate, params_schema}
// (§9). Grounded on the teacher's strategy/interface.go Strategy
// interface and SignalBuilder, generalized from Polymarket YES/NO
// signals to candle-driven LONG/SHORT/FLAT trading signals.
package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptobot/internal/types"
)

// SignalDirection is the strategy's verdict on a candle.
type SignalDirection string

const (
	Long  SignalDirection = "LONG"
	Short SignalDirection = "SHORT"
	Flat  SignalDirection = "FLAT"
)

// Metadata carries the strategy's sizing hints, never an order itself —
// strategies must not place orders directly (§4.F).
type Metadata struct {
	EntryPrice decimal.Decimal
	SLDistance decimal.Decimal
	TPDistance decimal.Decimal
	Reason     string
}

// Signal is what a strategy returns for one candle.
type Signal struct {
	Direction SignalDirection
	Metadata  Metadata
}

// Strategy is a pure function (candles_so_far, params) -> signal. It
// must hold no mutable state shared across pipeline instances; any
// rolling buffer belongs exclusively to the one Strategy value that
// owns it (§5).
type Strategy interface {
	Name() string
	Evaluate(candles []types.Candle) Signal
	ParamsSchema() map[string]interface{}
}

// Factory constructs a Strategy from an opaque params map (as loaded
// from a StrategyProfile), so the pipeline can select implementations
// at construction time without knowing their internals (§9).
type Factory func(params map[string]interface{}) (Strategy, error)

var registry = map[string]Factory{}

// Register adds a strategy implementation to the registry, keyed by name.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// New constructs a registered strategy by name.
func New(name string, params map[string]interface{}) (Strategy, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, types.InvalidInput("strategy.New", "unknown strategy: "+name)
	}
	return factory(params)
}
