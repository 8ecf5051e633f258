package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV bar for a symbol.
type Candle struct {
	Timestamp time.Time
	Symbol    string
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Validate checks the OHLC/volume invariants. It never aborts the caller;
// violations are reported as DataQuality warnings (see internal/types.Error).
func (c Candle) Validate() error {
	if c.Symbol == "" {
		return DataQuality("Candle.Validate", "empty symbol")
	}
	if c.Low.GreaterThan(c.Open) || c.Low.GreaterThan(c.Close) || c.Low.GreaterThan(c.High) {
		return DataQuality("Candle.Validate", "low exceeds open/close/high")
	}
	if c.High.LessThan(c.Open) || c.High.LessThan(c.Close) {
		return DataQuality("Candle.Validate", "high below open/close")
	}
	if c.Volume.IsNegative() {
		return DataQuality("Candle.Validate", "negative volume")
	}
	return nil
}
