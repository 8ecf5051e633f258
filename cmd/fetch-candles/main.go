// Command fetch-candles pre-warms the on-disk OHLCV cache so a later
// backtest or optimize run reads its series from disk. The provider is
// built without an upstream, so each cold (symbol, interval, window)
// is filled with the deterministic synthetic series and that series is
// what gets cached. Grounded on cmd/polybot/main.go's
// ambient setup, reduced to a one-shot fetch loop instead of a
// long-running service.
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/cryptobot/internal/candlefeed"
	"github.com/web3guy0/cryptobot/internal/config"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	symbolsFlag := flag.String("symbols", "BTCUSDT,ETHUSDT", "comma-separated symbol list")
	startFlag := flag.String("start", "", "RFC3339 window start (required)")
	endFlag := flag.String("end", "", "RFC3339 window end (required)")
	intervalFlag := flag.Duration("interval", time.Hour, "candle interval")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	start, err := time.Parse(time.RFC3339, *startFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -start")
	}
	end, err := time.Parse(time.RFC3339, *endFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -end")
	}

	provider := candlefeed.NewCachedProvider(cfg.CandleCacheDir, nil)
	ctx := context.Background()

	for _, symbol := range strings.Split(*symbolsFlag, ",") {
		candles, err := provider.FetchCandles(ctx, symbol, *intervalFlag, start, end)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("fetch failed")
			continue
		}
		log.Info().Str("symbol", symbol).Int("candles", len(candles)).Msg("cache warmed")
	}
}
