package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/web3guy0/cryptobot/internal/types"
)

func TestLogAppendAndLoadPreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	l := New(path)

	entry1 := types.PerformanceHistoryEntry{RunID: "r1", CreatedAt: time.Now().UTC(), Symbols: []string{"BTCUSDT"}}
	entry2 := types.PerformanceHistoryEntry{RunID: "r2", CreatedAt: time.Now().UTC(), Symbols: []string{"ETHUSDT"}}

	require.NoError(t, l.Append(entry1))
	require.NoError(t, l.Append(entry2))

	entries, err := l.Load()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "r1", entries[0].RunID)
	require.Equal(t, "r2", entries[1].RunID)
}

func TestLogLoadMissingFileReturnsEmpty(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "missing.jsonl"))
	entries, err := l.Load()
	require.NoError(t, err)
	require.Nil(t, entries)
}

// Writing a profile, reading it back and re-writing it with no changes
// leaves exactly one archive copy whose content equals the prior file,
// and bumps the version from 1 to 2 (spec §8 round-trip property).
func TestProfileStoreSaveIncrementsVersionAndArchives(t *testing.T) {
	dir := t.TempDir()
	store := NewProfileStore(dir)

	profile := types.StrategyProfile{
		Symbol:   "BTCUSDT",
		Strategy: "ema_rsi_scalper",
		Enabled:  true,
		Params:   map[string]interface{}{"fast_period": 4.0},
	}
	require.NoError(t, store.Save(profile, types.SourceManual, ""))

	loaded, err := store.Load("BTCUSDT")
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Meta.Version)

	before, err := os.ReadFile(filepath.Join(dir, "BTCUSDT.json"))
	require.NoError(t, err)

	require.NoError(t, store.Save(loaded, types.SourceManual, ""))

	archived, err := os.ReadDir(filepath.Join(dir, "archive"))
	require.NoError(t, err)
	require.Len(t, archived, 1)
	archivedContent, err := os.ReadFile(filepath.Join(dir, "archive", archived[0].Name()))
	require.NoError(t, err)
	require.Equal(t, before, archivedContent)

	after, err := store.Load("BTCUSDT")
	require.NoError(t, err)
	require.Equal(t, 2, after.Meta.Version)
}

func TestProfileStoreLoadMissingSymbolFails(t *testing.T) {
	store := NewProfileStore(t.TempDir())
	_, err := store.Load("DOESNOTEXIST")
	require.Error(t, err)
}

func TestProfileStoreRejectsInvalidSymbol(t *testing.T) {
	store := NewProfileStore(t.TempDir())
	err := store.Save(types.StrategyProfile{Symbol: types.UnknownSymbol}, types.SourceManual, "")
	require.Error(t, err)
}
