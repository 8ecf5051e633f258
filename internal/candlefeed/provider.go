// Package candlefeed is the external collaborator boundary for OHLCV
// data (spec §1: "exchange connectivity... described only at their
// interfaces"). It provides a historical fetch-and-cache path used by
// the backtest runner and optimizer, plus a non-dialing live-stream
// stub described only at the interface, grounded on the teacher's
// internal/binance/client.go (REST fetch shape) and feeds/polymarket_ws.go
// (connect/read-loop shape).
package candlefeed

import (
	"context"
	"time"

	"github.com/web3guy0/cryptobot/internal/types"
)

// Provider fetches historical candles from an external source. Real
// exchange connectivity is out of scope for the core (§1); this
// interface is the seam a concrete implementation plugs into.
type Provider interface {
	FetchCandles(ctx context.Context, symbol string, interval time.Duration, start, end time.Time) ([]types.Candle, error)
}

// FetchConfig holds a per-request timeout and a retry budget for
// external fetches. Nothing in this package applies it: CachedProvider
// calls its upstream once per cache miss, with the caller's context and
// no retry.
type FetchConfig struct {
	Timeout    time.Duration
	RetryBudget int
}

func DefaultFetchConfig() FetchConfig {
	return FetchConfig{Timeout: 10 * time.Second, RetryBudget: 3}
}
