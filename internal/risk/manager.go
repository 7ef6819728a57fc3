package risk

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"equityScalpBot/internal/domain"
	"equityScalpBot/internal/ports"
)

// Config holds the sizing and daily-limit parameters.
type Config struct {
	RiskBudget       float64 // Max currency risk per trade (e.g. 2% of capital)
	StopFraction     float64 // Stop distance as a fraction of entry (e.g. 0.003)
	TargetFraction   float64 // Target distance as a fraction of entry (e.g. 0.005)
	MaxPositionValue float64 // Cap on entry * quantity
	MaxDailyLoss     float64 // Realized loss at which trading stops for the day
	MaxTradesPerDay  int     // Entry count cap per session
	MaxOpenPositions int     // Concurrent open position cap
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if c.RiskBudget <= 0 {
		return fmt.Errorf("risk budget must be positive: %w", ports.ErrConfigurationError)
	}
	if c.StopFraction <= 0 || c.StopFraction >= 1 {
		return fmt.Errorf("stop fraction must be in (0, 1): %w", ports.ErrConfigurationError)
	}
	if c.TargetFraction <= c.StopFraction {
		return fmt.Errorf("target fraction must exceed stop fraction: %w", ports.ErrConfigurationError)
	}
	if c.MaxPositionValue <= 0 {
		return fmt.Errorf("max position value must be positive: %w", ports.ErrConfigurationError)
	}
	return nil
}

// Sizing is the result of sizing one prospective entry.
type Sizing struct {
	Quantity int
	StopLoss float64
	Target   float64
}

// DailyStats tracks one session's trading activity. A new trading day
// resets the counters.
type DailyStats struct {
	Day           time.Time
	TradesTaken   int
	WinningTrades int
	LosingTrades  int
	RealizedPnL   float64
	GrossProfit   float64
	GrossLoss     float64
	OpenPositions int
}

// WinRate returns the session win rate percentage.
func (d *DailyStats) WinRate() float64 {
	if d.TradesTaken == 0 {
		return 0
	}
	return float64(d.WinningTrades) / float64(d.TradesTaken) * 100
}

// Manager handles position sizing and daily risk limits.
type Manager struct {
	cfg    Config
	logger ports.Logger
	clock  ports.Clock

	mu    sync.Mutex
	stats DailyStats
}

// NewManager creates a risk manager.
func NewManager(cfg Config, logger ports.Logger, clock ports.Clock) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for risk manager")
	}
	if clock == nil {
		clock = ports.RealClock{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg, logger: logger, clock: clock}, nil
}

// Size computes the share quantity and protective levels for an entry.
// Returns ports.ErrSizingRejected when the capped quantity is below one
// share; that is a routine "no trade" outcome, not a failure.
func (m *Manager) Size(entry float64, dir domain.Direction) (Sizing, error) {
	return Size(entry, dir, m.cfg)
}

// Size is the bare sizing calculation: stop and target from the entry and
// the configured fractions, quantity from the risk budget over the per-unit
// risk, capped by the maximum position value. Exposed as a pure function so
// the backtester sizes exactly like the live engine.
func Size(entry float64, dir domain.Direction, cfg Config) (Sizing, error) {
	if entry <= 0 || (dir != domain.Long && dir != domain.Short) {
		return Sizing{}, fmt.Errorf("entry %.2f direction %s: %w", entry, dir, ports.ErrInvalidRequest)
	}

	stop := entry * (1 - cfg.StopFraction*dir.Sign())
	target := entry * (1 + cfg.TargetFraction*dir.Sign())

	riskPerUnit := math.Abs(entry - stop)
	if riskPerUnit <= 0 {
		return Sizing{}, fmt.Errorf("zero risk per unit at entry %.2f: %w", entry, ports.ErrSizingRejected)
	}

	qty := int(cfg.RiskBudget / riskPerUnit)
	if maxQty := int(cfg.MaxPositionValue / entry); maxQty < qty {
		qty = maxQty
	}
	if qty < 1 {
		return Sizing{}, fmt.Errorf("entry %.2f exceeds max position value %.2f: %w",
			entry, cfg.MaxPositionValue, ports.ErrSizingRejected)
	}

	return Sizing{Quantity: qty, StopLoss: stop, Target: target}, nil
}

// CanTrade checks the daily limits before a new entry. The reason string
// explains a refusal.
func (m *Manager) CanTrade(ctx context.Context) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollDayLocked()

	if m.cfg.MaxDailyLoss > 0 && m.stats.RealizedPnL <= -m.cfg.MaxDailyLoss {
		return false, fmt.Sprintf("daily loss limit hit (%.2f)", m.stats.RealizedPnL)
	}
	if m.cfg.MaxTradesPerDay > 0 && m.stats.TradesTaken >= m.cfg.MaxTradesPerDay {
		return false, fmt.Sprintf("daily trade limit reached (%d/%d)", m.stats.TradesTaken, m.cfg.MaxTradesPerDay)
	}
	if m.cfg.MaxOpenPositions > 0 && m.stats.OpenPositions >= m.cfg.MaxOpenPositions {
		return false, fmt.Sprintf("max open positions reached (%d/%d)", m.stats.OpenPositions, m.cfg.MaxOpenPositions)
	}
	return true, ""
}

// RecordEntry counts a new entry against the daily limits.
func (m *Manager) RecordEntry(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollDayLocked()
	m.stats.TradesTaken++
	m.stats.OpenPositions++
}

// RecordExit folds a closed position's P&L into the daily stats.
func (m *Manager) RecordExit(ctx context.Context, pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollDayLocked()

	if m.stats.OpenPositions > 0 {
		m.stats.OpenPositions--
	}
	m.stats.RealizedPnL += pnl
	switch {
	case pnl > 0:
		m.stats.WinningTrades++
		m.stats.GrossProfit += pnl
	case pnl < 0:
		m.stats.LosingTrades++
		m.stats.GrossLoss += -pnl
	}
	// Breakeven exits count in neither bucket.

	if m.cfg.MaxDailyLoss > 0 && m.stats.RealizedPnL <= -m.cfg.MaxDailyLoss {
		m.logger.Warn(ctx, "Daily loss limit hit, no further entries today",
			map[string]interface{}{"realizedPnL": m.stats.RealizedPnL, "limit": m.cfg.MaxDailyLoss})
	}
}

// Stats returns a copy of the current daily statistics.
func (m *Manager) Stats() DailyStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollDayLocked()
	return m.stats
}

// rollDayLocked resets the counters when the trading day changes.
// Caller must hold m.mu.
func (m *Manager) rollDayLocked() {
	now := m.clock.Now()
	if !domain.SameSession(m.stats.Day, now) {
		m.stats = DailyStats{Day: now}
	}
}
