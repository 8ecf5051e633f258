// Package history implements the performance history log (module J,
// first half): an append-only newline-delimited JSON file under a
// fixed directory, written atomically. Grounded on the archive-then-
// atomic-rename idiom used throughout the teacher's persistence code
// (internal/database/database.go, storage/database.go) and generalized
// to a plain file since no teacher file does JSONL append directly.
package history

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/web3guy0/cryptobot/internal/types"
)

const DefaultPath = "logs/performance_history/history.jsonl"

// Log is a single-writer-at-a-time append-only JSONL log.
type Log struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Log {
	if path == "" {
		path = DefaultPath
	}
	return &Log{path: path}
}

// Append adds one entry to the log. Writes are serialized behind mu,
// mirroring the package-level single-writer mutex pattern the teacher
// uses around its gorm connection in internal/database/database.go.
func (l *Log) Append(entry types.PerformanceHistoryEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return types.IOFailure("history.Append", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return types.IOFailure("history.Append", err)
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return types.IOFailure("history.Append", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return types.IOFailure("history.Append", err)
	}
	return nil
}

// Load reads every entry in the log, in append order.
func (l *Log) Load() ([]types.PerformanceHistoryEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, types.IOFailure("history.Load", err)
	}
	defer f.Close()

	var entries []types.PerformanceHistoryEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry types.PerformanceHistoryEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, types.IOFailure("history.Load", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, types.IOFailure("history.Load", err)
	}
	return entries, nil
}
