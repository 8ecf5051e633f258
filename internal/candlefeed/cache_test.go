package candlefeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCachedProviderFallsBackToSyntheticWithoutUpstream(t *testing.T) {
	dir := t.TempDir()
	p := NewCachedProvider(dir, nil)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	candles, err := p.FetchCandles(context.Background(), "BTCUSDT", time.Hour, start, end)
	require.NoError(t, err)
	require.NotEmpty(t, candles)
	for _, c := range candles {
		require.Equal(t, "BTCUSDT", c.Symbol)
	}
}

func TestCachedProviderReusesCacheFileOnSecondCall(t *testing.T) {
	dir := t.TempDir()
	p := NewCachedProvider(dir, nil)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(12 * time.Hour)

	first, err := p.FetchCandles(context.Background(), "ETHUSDT", time.Hour, start, end)
	require.NoError(t, err)

	second, err := p.FetchCandles(context.Background(), "ETHUSDT", time.Hour, start, end)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		require.True(t, first[i].Close.Equal(second[i].Close))
		require.True(t, first[i].Timestamp.Equal(second[i].Timestamp))
	}
}
