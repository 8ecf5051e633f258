// Package config loads the root Config from environment variables,
// grounded on the teacher's internal/config/config.go: same getEnv*
// helper family, same godotenv-then-env-override load order, same
// fatal-vs-default split (Load fails only on an unknown TRADING_MODE
// or on TRADING_MODE=live without ALLOW_LIVE_TRADING=true; every other
// setting, the kill-switch env var name included, falls back to a
// default).
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptobot/internal/accounting"
	"github.com/web3guy0/cryptobot/internal/execution"
	"github.com/web3guy0/cryptobot/internal/risk"
	"github.com/web3guy0/cryptobot/internal/safety"
)

// TradingConfig is spec §6(a): trading mode and global safety limits.
type TradingConfig struct {
	Mode              execution.Mode
	AllowLiveTrading  bool
	MaxDailyLossPct   float64
	MaxRiskPerTradePct float64
	MaxExposurePct    float64
	MaxOpenTrades     int
	KillSwitchEnvVar  string
}

// RiskConfig is spec §6(b): sizing and account parameters.
type RiskConfig struct {
	BaseAccountSize     decimal.Decimal
	DefaultRiskPerTrade decimal.Decimal
	MaxExposure         decimal.Decimal
	DefaultSlippage     decimal.Decimal
	DefaultCommission   decimal.Decimal
	MinPositionSizeUSD  decimal.Decimal
	EnableTrailingStop  bool
	TrailingStopPct     decimal.Decimal
}

// Config is the root configuration object for every cmd/ entrypoint.
type Config struct {
	Debug bool

	Trading TradingConfig
	Risk    RiskConfig

	TradeLogPath  string
	ProfileDir    string
	HistoryPath   string
	CandleCacheDir string
	StorePath     string // empty disables the secondary store

	DefaultStrategy string
}

// Load reads a .env file (if present, missing is not fatal) then
// layers environment variables over defaults, exactly as the
// teacher's cmd/polybot/main.go calls godotenv.Load() before
// config.Load().
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Debug: getEnvBool("DEBUG", false),

		Trading: TradingConfig{
			Mode:               execution.Mode(getEnv("TRADING_MODE", string(execution.ModeMonitor))),
			AllowLiveTrading:   getEnvBool("ALLOW_LIVE_TRADING", false),
			MaxDailyLossPct:    getEnvFloat("MAX_DAILY_LOSS_PCT", 5.0),
			MaxRiskPerTradePct: getEnvFloat("MAX_RISK_PER_TRADE_PCT", 1.0),
			MaxExposurePct:     getEnvFloat("MAX_EXPOSURE_PCT", 25.0),
			MaxOpenTrades:      getEnvInt("MAX_OPEN_TRADES", 5),
			KillSwitchEnvVar:   getEnv("KILL_SWITCH_ENV_VAR", "CRYPTOBOT_KILL_SWITCH"),
		},

		Risk: RiskConfig{
			BaseAccountSize:     getEnvDecimal("BASE_ACCOUNT_SIZE", decimal.NewFromInt(10000)),
			DefaultRiskPerTrade: getEnvDecimal("DEFAULT_RISK_PER_TRADE_PCT", decimal.NewFromFloat(0.01)),
			MaxExposure:         getEnvDecimal("MAX_EXPOSURE_PCT", decimal.NewFromFloat(0.25)),
			DefaultSlippage:     getEnvDecimal("DEFAULT_SLIPPAGE_RATE", decimal.NewFromFloat(0.0005)),
			DefaultCommission:   getEnvDecimal("DEFAULT_COMMISSION_RATE", decimal.NewFromFloat(0.001)),
			MinPositionSizeUSD:  getEnvDecimal("MIN_POSITION_SIZE_USD", decimal.NewFromInt(10)),
			EnableTrailingStop:  getEnvBool("ENABLE_TRAILING_STOP", true),
			TrailingStopPct:     getEnvDecimal("TRAILING_STOP_PCT", decimal.NewFromFloat(0.02)),
		},

		TradeLogPath:   getEnv("TRADE_LOG_PATH", "logs/trades.csv"),
		ProfileDir:     getEnv("STRATEGY_PROFILE_DIR", "config/strategy_profiles"),
		HistoryPath:    getEnv("PERFORMANCE_HISTORY_PATH", "logs/performance_history/history.jsonl"),
		CandleCacheDir: getEnv("CANDLE_CACHE_DIR", "data/candle_cache"),
		StorePath:      getEnv("STORE_DB_PATH", ""),

		DefaultStrategy: getEnv("DEFAULT_STRATEGY", "ema_rsi_scalper"),
	}

	if !validMode(cfg.Trading.Mode) {
		return nil, fmt.Errorf("invalid TRADING_MODE %q", cfg.Trading.Mode)
	}
	if cfg.Trading.Mode == execution.ModeLive && !cfg.Trading.AllowLiveTrading {
		return nil, fmt.Errorf("TRADING_MODE=live requires ALLOW_LIVE_TRADING=true")
	}

	return cfg, nil
}

func validMode(m execution.Mode) bool {
	switch m {
	case execution.ModeMonitor, execution.ModePaper, execution.ModeDryRun, execution.ModeLive:
		return true
	default:
		return false
	}
}

// AccountingConfig derives an accounting.Config from the loaded Risk section.
func (c *Config) AccountingConfig() accounting.Config {
	return accounting.Config{
		StartingBalance: c.Risk.BaseAccountSize,
		SlippageRate:    c.Risk.DefaultSlippage,
		CommissionRate:  c.Risk.DefaultCommission,
		AllowShorting:   true,
		TrailingStop: accounting.TrailingStopConfig{
			Enabled: c.Risk.EnableTrailingStop,
			Pct:     c.Risk.TrailingStopPct,
		},
		LogPath: c.TradeLogPath,
	}
}

// RiskEngineConfig derives a risk.Config from the loaded Risk section.
func (c *Config) RiskEngineConfig() risk.Config {
	return risk.Config{
		RiskPerTradePct: c.Risk.DefaultRiskPerTrade,
		MaxExposurePct:  c.Risk.MaxExposure,
		MinPositionUSD:  c.Risk.MinPositionSizeUSD,
		DefaultATRMult:  decimal.NewFromFloat(1.5),
	}
}

// SafetyConfig derives a safety.Config from the loaded Trading section.
// TradingConfig's Pct fields are human percentages (5.0 means 5%); safety.Config
// wants the same fraction scale as risk.Config and accounting.TrailingStopConfig.
func (c *Config) SafetyConfig() safety.Config {
	return safety.Config{
		MaxDailyLossPct:    pctToFraction(c.Trading.MaxDailyLossPct),
		MaxRiskPerTradePct: pctToFraction(c.Trading.MaxRiskPerTradePct),
		MaxExposurePct:     pctToFraction(c.Trading.MaxExposurePct),
		MaxOpenTrades:      c.Trading.MaxOpenTrades,
		KillSwitchEnvVar:   c.Trading.KillSwitchEnvVar,
	}
}

func pctToFraction(pct float64) decimal.Decimal {
	return decimal.NewFromFloat(pct).Div(decimal.NewFromInt(100))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
