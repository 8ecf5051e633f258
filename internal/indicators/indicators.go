// Package indicators is a pure-function technical indicator library
// consumed by internal/strategy. Ported from the teacher's
// internal/indicators/indicators.go; functions that depended on data
// this spec's Candle doesn't carry (order book depth, funding rate,
// taker buy/sell volume split) were dropped — see DESIGN.md.
package indicators

import (
	"math"

	"github.com/shopspring/decimal"
)

// DecimalToFloat converts a decimal price/volume to float64 for
// indicator math, which is not precision-critical the way money
// bookkeeping is.
func DecimalToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// FloatToDecimal converts an indicator result back to decimal.
func FloatToDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// RSI calculates the Relative Strength Index over period.
func RSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50
	}

	gains := make([]float64, 0, len(prices)-1)
	losses := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}
	if len(gains) < period {
		return 50
	}

	avgGain := average(gains[:period])
	avgLoss := average(losses[:period])
	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// EMA calculates the Exponential Moving Average over period.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return average(prices)
	}
	multiplier := 2.0 / float64(period+1)
	ema := average(prices[:period])
	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
	}
	return ema
}

// EMASeries returns the full EMA series aligned to prices, seeding the
// first `period` values with the SMA of the initial window. Needed by
// the scalper to detect the crossover instant, not just the endpoint.
func EMASeries(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	if len(prices) == 0 {
		return out
	}
	if len(prices) < period {
		avg := average(prices)
		for i := range out {
			out[i] = avg
		}
		return out
	}
	multiplier := 2.0 / float64(period+1)
	seed := average(prices[:period])
	for i := 0; i < period; i++ {
		out[i] = seed
	}
	ema := seed
	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out
}

// SMA calculates the Simple Moving Average over period.
func SMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return average(prices)
	}
	return average(prices[len(prices)-period:])
}

// MACD returns the MACD line, its EMA-of-history signal line, and the
// histogram. The teacher's version approximated the signal line as
// macdLine*0.9 for lack of tracked history; this keeps the true
// history of the line and EMAs it properly.
func MACD(macdHistory []float64, fastPeriod, slowPeriod, signalPeriod int, prices []float64) (macdLine, signalLine, histogram float64) {
	if len(prices) < slowPeriod {
		return 0, 0, 0
	}
	macdLine = EMA(prices, fastPeriod) - EMA(prices, slowPeriod)
	history := append(append([]float64{}, macdHistory...), macdLine)
	signalLine = EMA(history, signalPeriod)
	histogram = macdLine - signalLine
	return
}

// Momentum calculates percentage price momentum over period.
func Momentum(prices []float64, period int) float64 {
	if len(prices) <= period {
		return 0
	}
	current := prices[len(prices)-1]
	previous := prices[len(prices)-1-period]
	if previous == 0 {
		return 0
	}
	return ((current - previous) / previous) * 100
}

// Volatility calculates the standard deviation of prices.
func Volatility(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	avg := average(prices)
	sumSquares := 0.0
	for _, p := range prices {
		sumSquares += (p - avg) * (p - avg)
	}
	return math.Sqrt(sumSquares / float64(len(prices)))
}

// ATR calculates the Average True Range over period.
func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) < period+1 || len(lows) < period+1 || len(closes) < period+1 {
		return 0
	}
	trs := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		tr := math.Max(highs[i]-lows[i], math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
		trs = append(trs, tr)
	}
	return SMA(trs, period)
}

// BollingerBands returns upper, middle, lower bands over period.
func BollingerBands(prices []float64, period int, stdDev float64) (upper, middle, lower float64) {
	if len(prices) < period {
		return 0, 0, 0
	}
	middle = SMA(prices, period)
	recent := prices[len(prices)-period:]
	vol := Volatility(recent)
	upper = middle + vol*stdDev
	lower = middle - vol*stdDev
	return
}

// TrendStrength reports trend direction and strength (-100..100).
func TrendStrength(prices []float64, period int) float64 {
	if len(prices) < period {
		return 0
	}
	increases, decreases := 0, 0
	recent := prices[len(prices)-period:]
	for i := 1; i < len(recent); i++ {
		if recent[i] > recent[i-1] {
			increases++
		} else if recent[i] < recent[i-1] {
			decreases++
		}
	}
	total := increases + decreases
	if total == 0 {
		return 0
	}
	if increases > decreases {
		return float64(increases) / float64(total) * 100
	}
	return -float64(decreases) / float64(total) * 100
}

func average(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}
