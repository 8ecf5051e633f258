package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptobot/internal/indicators"
	"github.com/web3guy0/cryptobot/internal/types"
)

func init() {
	Register("ema_rsi_scalper", NewEMARSIScalper)
}

// EMARSIScalperParams configures the reference strategy (§4.F).
type EMARSIScalperParams struct {
	FastPeriod     int
	SlowPeriod     int
	RSIPeriod      int
	RSIBullishMax  float64 // RSI must be below this to confirm LONG
	RSIBearishMin  float64 // RSI must be above this to confirm SHORT
	UseVolumeFilter bool
	MinVolumeRatio float64
	ATRPeriod      int
	ATRStopMult    decimal.Decimal
	ATRTargetMult  decimal.Decimal
}

func DefaultEMARSIScalperParams() EMARSIScalperParams {
	return EMARSIScalperParams{
		FastPeriod:      4,
		SlowPeriod:      8,
		RSIPeriod:       14,
		RSIBullishMax:   65,
		RSIBearishMin:   35,
		UseVolumeFilter: false,
		MinVolumeRatio:  1.0,
		ATRPeriod:       14,
		ATRStopMult:     decimal.NewFromFloat(1.5),
		ATRTargetMult:   decimal.NewFromFloat(2.5),
	}
}

// EMARSIScalper is the default reference strategy: EMA4/EMA8 bullish/
// bearish crossover, confirmed by RSI, with an optional volume filter.
// Grounded on internal/strategy/crypto_15m.go's rolling-buffer EMA/RSI
// gate shape, generalized from a binary up/down call to LONG/SHORT/FLAT.
type EMARSIScalper struct {
	params EMARSIScalperParams
}

func NewEMARSIScalper(params map[string]interface{}) (Strategy, error) {
	p := DefaultEMARSIScalperParams()
	intParam := func(key string, dst *int) {
		switch v := params[key].(type) {
		case int:
			*dst = v
		case float64:
			*dst = int(v)
		}
	}
	intParam("fast_period", &p.FastPeriod)
	intParam("slow_period", &p.SlowPeriod)
	intParam("rsi_period", &p.RSIPeriod)
	if v, ok := params["rsi_bullish_max"].(float64); ok {
		p.RSIBullishMax = v
	}
	if v, ok := params["rsi_bearish_min"].(float64); ok {
		p.RSIBearishMin = v
	}
	if v, ok := params["use_volume_filter"].(bool); ok {
		p.UseVolumeFilter = v
	}
	if v, ok := params["min_volume_ratio"].(float64); ok {
		p.MinVolumeRatio = v
	}
	return &EMARSIScalper{params: p}, nil
}

func (s *EMARSIScalper) Name() string { return "ema_rsi_scalper" }

func (s *EMARSIScalper) ParamsSchema() map[string]interface{} {
	return map[string]interface{}{
		"fast_period":       "int",
		"slow_period":       "int",
		"rsi_period":        "int",
		"rsi_bullish_max":   "float",
		"rsi_bearish_min":   "float",
		"use_volume_filter": "bool",
		"min_volume_ratio":  "float",
	}
}

func (s *EMARSIScalper) Evaluate(candles []types.Candle) Signal {
	need := s.params.SlowPeriod + 2
	if len(candles) < need {
		return Signal{Direction: Flat, Metadata: Metadata{Reason: "insufficient history"}}
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = indicators.DecimalToFloat(c.Close)
		highs[i] = indicators.DecimalToFloat(c.High)
		lows[i] = indicators.DecimalToFloat(c.Low)
		volumes[i] = indicators.DecimalToFloat(c.Volume)
	}

	fastSeries := indicators.EMASeries(closes, s.params.FastPeriod)
	slowSeries := indicators.EMASeries(closes, s.params.SlowPeriod)
	n := len(closes)

	fastNow, slowNow := fastSeries[n-1], slowSeries[n-1]
	fastPrev, slowPrev := fastSeries[n-2], slowSeries[n-2]
	rsi := indicators.RSI(closes, s.params.RSIPeriod)
	atr := indicators.ATR(highs, lows, closes, s.params.ATRPeriod)

	bullishCross := fastPrev <= slowPrev && fastNow > slowNow
	bearishCross := fastPrev >= slowPrev && fastNow < slowNow

	if s.params.UseVolumeFilter {
		avgVol := average(volumes)
		if avgVol == 0 || volumes[n-1]/avgVol < s.params.MinVolumeRatio {
			return Signal{Direction: Flat, Metadata: Metadata{Reason: "volume filter"}}
		}
	}

	entry := candles[n-1].Close
	atrDec := indicators.FloatToDecimal(atr)

	switch {
	case bullishCross && rsi < s.params.RSIBullishMax:
		return Signal{
			Direction: Long,
			Metadata: Metadata{
				EntryPrice: entry,
				SLDistance: atrDec.Mul(s.params.ATRStopMult),
				TPDistance: atrDec.Mul(s.params.ATRTargetMult),
				Reason:     "bullish EMA crossover with RSI confirmation",
			},
		}
	case bearishCross && rsi > s.params.RSIBearishMin:
		return Signal{
			Direction: Short,
			Metadata: Metadata{
				EntryPrice: entry,
				SLDistance: atrDec.Mul(s.params.ATRStopMult),
				TPDistance: atrDec.Mul(s.params.ATRTargetMult),
				Reason:     "bearish EMA crossover with RSI confirmation",
			},
		}
	default:
		return Signal{Direction: Flat, Metadata: Metadata{Reason: "no crossover"}}
	}
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
