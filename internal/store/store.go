// Package store is an additive secondary persistence layer (not part
// of the core spec's authoritative file formats) that mirrors
// completed runs for queryable access. Grounded on the teacher's
// internal/database/database.go: same postgres-or-sqlite-by-prefix
// connection selection, same AutoMigrate pattern, re-modeled around
// trade records and run records instead of Polymarket markets/
// opportunities/arb trades. internal/accounting and internal/history
// remain the sole sources of truth; this layer only ever reads what
// they already wrote and stores a copy.
package store

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TradeRecord mirrors one CLOSE row of the trade log CSV.
type TradeRecord struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	RunID       string `gorm:"index"`
	Symbol      string `gorm:"index"`
	Side        string
	Quantity    decimal.Decimal `gorm:"type:decimal(20,8)"`
	EntryPrice  decimal.Decimal `gorm:"type:decimal(20,4)"`
	FillPrice   decimal.Decimal `gorm:"type:decimal(20,4)"`
	RealizedPnL decimal.Decimal `gorm:"type:decimal(20,2)"`
	PnLPct      decimal.Decimal `gorm:"type:decimal(10,4)"`
	ClosedAt    time.Time
	CreatedAt   time.Time
}

// RunRecord mirrors one PerformanceHistoryEntry.
type RunRecord struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	RunID          string `gorm:"uniqueIndex"`
	Strategy       string
	Symbols        string
	WindowStart    time.Time
	WindowEnd      time.Time
	TotalReturnPct decimal.Decimal `gorm:"type:decimal(10,4)"`
	MaxDrawdownPct decimal.Decimal `gorm:"type:decimal(10,4)"`
	CreatedAt      time.Time
}

// Store wraps a gorm connection. IsEnabled gates every caller, exactly
// as storage/database.go's env-presence gate does.
type Store struct {
	db *gorm.DB
}

// Open connects via Postgres when path has a postgres(ql):// prefix,
// otherwise falls back to SQLite, auto-creating the parent directory.
// Returns (nil, nil) when path is empty — the secondary store is
// optional, never load-bearing.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, nil
	}

	var db *gorm.DB
	var err error

	if strings.HasPrefix(path, "postgres://") || strings.HasPrefix(path, "postgresql://") {
		db, err = gorm.Open(postgres.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("store: connected (postgres)")
	} else {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		db, err = gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", path).Msg("store: connected (sqlite)")
	}

	if err := db.AutoMigrate(&TradeRecord{}, &RunRecord{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) IsEnabled() bool { return s != nil && s.db != nil }

func (s *Store) SaveTrade(t *TradeRecord) error {
	if !s.IsEnabled() {
		return nil
	}
	return s.db.Create(t).Error
}

func (s *Store) SaveRun(r *RunRecord) error {
	if !s.IsEnabled() {
		return nil
	}
	return s.db.Save(r).Error
}

func (s *Store) TradesForRun(runID string) ([]TradeRecord, error) {
	if !s.IsEnabled() {
		return nil, nil
	}
	var trades []TradeRecord
	err := s.db.Where("run_id = ?", runID).Order("closed_at asc").Find(&trades).Error
	return trades, err
}

func (s *Store) RecentRuns(limit int) ([]RunRecord, error) {
	if !s.IsEnabled() {
		return nil, nil
	}
	var runs []RunRecord
	err := s.db.Order("created_at desc").Limit(limit).Find(&runs).Error
	return runs, err
}
