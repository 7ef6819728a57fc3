package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"equityScalpBot/internal/domain"
	"equityScalpBot/internal/risk"
	"equityScalpBot/internal/strategy/confirm"
	"equityScalpBot/internal/strategy/indicators"
)

// Config holds all application configuration.
type Config struct {
	// Kite Connect API
	KiteAPIKey      string
	KiteAccessToken string
	PaperTrading    bool // In-memory broker instead of Kite

	// Trading behavior
	Mode            domain.TradingMode
	Interval        string // Candle interval for scanning and selection
	ScanInterval    time.Duration
	MonitorInterval time.Duration
	SymbolTimeout   time.Duration
	DefaultTrailPct float64

	// Strategy layers
	Indicators indicators.Config
	Confirm    confirm.Config
	Risk       risk.Config
	Conversion risk.ConversionConfig

	// Universe selection
	PoolPath        string // Candidate pool YAML
	LookbackDays    int
	MinAvgVolume    float64
	ATRPctMin       float64
	ATRPctMax       float64
	MinWinRate      float64
	MinTrades       int
	MinProfitFactor float64
	SectorCap       int
	WatchlistSize   int

	// HTTP control surface
	HTTPAddr string

	// Database
	DBPath string

	// Logging
	LogLevel string
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []string

	// Kite Connect API
	cfg.KiteAPIKey = getEnv("KITE_API_KEY", "")
	cfg.KiteAccessToken = getEnv("KITE_ACCESS_TOKEN", "")
	cfg.PaperTrading = getEnvAsBool("PAPER_TRADING", true) // Default to paper for safety
	if !cfg.PaperTrading {
		if cfg.KiteAPIKey == "" {
			errs = append(errs, "KITE_API_KEY must be set for live trading")
		}
		if cfg.KiteAccessToken == "" {
			errs = append(errs, "KITE_ACCESS_TOKEN must be set for live trading")
		}
	}

	// Trading behavior
	cfg.Mode = domain.ParseTradingMode(getEnv("TRADING_MODE", "signal-only"))
	cfg.Interval = getEnv("CANDLE_INTERVAL", "15minute")

	scanSeconds := getEnvAsInt("SCAN_INTERVAL_SECONDS", 900)
	if scanSeconds <= 0 {
		errs = append(errs, "SCAN_INTERVAL_SECONDS must be positive")
	}
	cfg.ScanInterval = time.Duration(scanSeconds) * time.Second

	monitorSeconds := getEnvAsInt("MONITOR_INTERVAL_SECONDS", 5)
	if monitorSeconds <= 0 {
		errs = append(errs, "MONITOR_INTERVAL_SECONDS must be positive")
	}
	cfg.MonitorInterval = time.Duration(monitorSeconds) * time.Second

	timeoutSeconds := getEnvAsInt("SYMBOL_TIMEOUT_SECONDS", 30)
	if timeoutSeconds <= 0 {
		errs = append(errs, "SYMBOL_TIMEOUT_SECONDS must be positive")
	}
	cfg.SymbolTimeout = time.Duration(timeoutSeconds) * time.Second

	cfg.DefaultTrailPct = getEnvAsFloat("DEFAULT_TRAIL_PCT", 0.5)
	if cfg.DefaultTrailPct < 0 {
		errs = append(errs, "DEFAULT_TRAIL_PCT cannot be negative")
	}

	// Indicator periods
	cfg.Indicators = indicators.Config{
		EMAFastPeriod:    getEnvAsInt("EMA_FAST_PERIOD", 9),
		EMASlowPeriod:    getEnvAsInt("EMA_SLOW_PERIOD", 21),
		RSIPeriod:        getEnvAsInt("RSI_PERIOD", 14),
		SupertrendPeriod: getEnvAsInt("SUPERTREND_PERIOD", 10),
		SupertrendMult:   getEnvAsFloat("SUPERTREND_MULTIPLIER", 3.0),
		VolumeLookback:   getEnvAsInt("VOLUME_LOOKBACK", 20),
	}
	if err := cfg.Indicators.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid indicator config: %v", err))
	}

	// Confirmation thresholds
	cfg.Confirm = confirm.Config{
		RSILongMin:       getEnvAsFloat("RSI_LONG_MIN", 45),
		RSILongMax:       getEnvAsFloat("RSI_LONG_MAX", 65),
		RSIShortMin:      getEnvAsFloat("RSI_SHORT_MIN", 35),
		RSIShortMax:      getEnvAsFloat("RSI_SHORT_MAX", 55),
		MinVolumeRatio:   getEnvAsFloat("MIN_VOLUME_RATIO", 1.3),
		MinConfirmations: getEnvAsInt("MIN_CONFIRMATIONS", 5),
	}
	if cfg.Confirm.RSILongMin >= cfg.Confirm.RSILongMax {
		errs = append(errs, "RSI_LONG_MIN must be less than RSI_LONG_MAX")
	}
	if cfg.Confirm.RSIShortMin >= cfg.Confirm.RSIShortMax {
		errs = append(errs, "RSI_SHORT_MIN must be less than RSI_SHORT_MAX")
	}
	if cfg.Confirm.MinConfirmations < 1 || cfg.Confirm.MinConfirmations > domain.MaxConfirmations {
		errs = append(errs, fmt.Sprintf("MIN_CONFIRMATIONS must be between 1 and %d", domain.MaxConfirmations))
	}

	// Risk limits
	cfg.Risk = risk.Config{
		RiskBudget:       getEnvAsFloat("RISK_BUDGET", 200),
		StopFraction:     getEnvAsFloat("STOP_FRACTION", 0.003),
		TargetFraction:   getEnvAsFloat("TARGET_FRACTION", 0.006),
		MaxPositionValue: getEnvAsFloat("MAX_POSITION_VALUE", 5000),
		MaxDailyLoss:     getEnvAsFloat("MAX_DAILY_LOSS", 500),
		MaxTradesPerDay:  getEnvAsInt("MAX_TRADES_PER_DAY", 10),
		MaxOpenPositions: getEnvAsInt("MAX_OPEN_POSITIONS", 3),
	}
	if err := cfg.Risk.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid risk config: %v", err))
	}

	// Conversion gates
	cfg.Conversion = risk.ConversionConfig{
		MinCarryProfit: getEnvAsFloat("MIN_CARRY_PROFIT", 100),
		MinDistancePct: getEnvAsFloat("MIN_CARRY_DISTANCE_PCT", 0.5),
	}
	if cfg.Conversion.MinCarryProfit < 0 || cfg.Conversion.MinDistancePct < 0 {
		errs = append(errs, "conversion thresholds cannot be negative")
	}

	// Universe selection
	cfg.PoolPath = getEnv("POOL_PATH", "./config/universe.yaml")
	cfg.LookbackDays = getEnvAsInt("SELECTION_LOOKBACK_DAYS", 14)
	cfg.MinAvgVolume = getEnvAsFloat("MIN_AVG_VOLUME", 500000)
	cfg.ATRPctMin = getEnvAsFloat("ATR_PCT_MIN", 1.5)
	cfg.ATRPctMax = getEnvAsFloat("ATR_PCT_MAX", 4.0)
	cfg.MinWinRate = getEnvAsFloat("MIN_WIN_RATE", 70)
	cfg.MinTrades = getEnvAsInt("MIN_BACKTEST_TRADES", 3)
	cfg.MinProfitFactor = getEnvAsFloat("MIN_PROFIT_FACTOR", 2.0)
	cfg.SectorCap = getEnvAsInt("SECTOR_CAP", 3)
	cfg.WatchlistSize = getEnvAsInt("WATCHLIST_SIZE", 25)
	if cfg.LookbackDays <= 0 {
		errs = append(errs, "SELECTION_LOOKBACK_DAYS must be positive")
	}
	if cfg.ATRPctMin >= cfg.ATRPctMax {
		errs = append(errs, "ATR_PCT_MIN must be less than ATR_PCT_MAX")
	}
	if cfg.MinWinRate < 0 || cfg.MinWinRate > 100 {
		errs = append(errs, "MIN_WIN_RATE must be between 0 and 100")
	}
	if cfg.WatchlistSize <= 0 {
		errs = append(errs, "WATCHLIST_SIZE must be positive")
	}

	// HTTP control surface
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/equity_bot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
