package selector

import (
	"context"
	"math"
	"sort"
	"time"

	"equityScalpBot/internal/domain"
	"equityScalpBot/internal/ports"
	"equityScalpBot/internal/risk"
	"equityScalpBot/internal/strategy/backtesting"
	"equityScalpBot/internal/strategy/confirm"
	"equityScalpBot/internal/strategy/indicators"
)

// Config tunes the selection funnel.
type Config struct {
	Interval        string  // Candle interval used for screening and backtests
	LookbackDays    int     // Sessions of history fetched per candidate
	MinAvgVolume    float64 // Liquidity floor, average volume per session
	ATRPctMin       float64 // Volatility band lower bound, percent of price
	ATRPctMax       float64 // Volatility band upper bound, percent of price
	ATRPeriod       int
	MinWinRate      float64 // Percentage
	MinTrades       int
	MinProfitFactor float64
	SectorCap       int // Max symbols per sector
	WatchlistSize   int
	SymbolTimeout   time.Duration // Budget for one candidate's data fetch

	Indicators indicators.Config
	Confirm    confirm.Config
	Risk       risk.Config
	Session    domain.Session
}

// DefaultConfig returns the standard funnel thresholds.
func DefaultConfig() Config {
	return Config{
		Interval:        "15minute",
		LookbackDays:    14,
		MinAvgVolume:    500_000,
		ATRPctMin:       1.5,
		ATRPctMax:       4.0,
		ATRPeriod:       14,
		MinWinRate:      70.0,
		MinTrades:       3,
		MinProfitFactor: 2.0,
		SectorCap:       3,
		WatchlistSize:   25,
		SymbolTimeout:   30 * time.Second,
		Indicators:      indicators.DefaultConfig(),
		Confirm:         confirm.DefaultConfig(),
		Risk: risk.Config{
			RiskBudget:       200,
			StopFraction:     0.003,
			TargetFraction:   0.006,
			MaxPositionValue: 5000,
			MaxDailyLoss:     500,
			MaxTradesPerDay:  10,
			MaxOpenPositions: 3,
		},
		Session: domain.DefaultSession(),
	}
}

// Selector runs the five-stage funnel over a candidate pool and produces
// the watchlist the trading loop scans.
type Selector struct {
	cfg    Config
	broker ports.Broker
	logger ports.Logger
}

func New(cfg Config, broker ports.Broker, logger ports.Logger) *Selector {
	return &Selector{cfg: cfg, broker: broker, logger: logger}
}

// Run screens every candidate and returns the ranked watchlist. A failure
// on one symbol skips that symbol only.
func (s *Selector) Run(ctx context.Context, pool []Candidate) (*domain.Watchlist, error) {
	var qualified []domain.WatchlistEntry
	for _, cand := range pool {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		entry, ok, err := s.screen(ctx, cand)
		if err != nil {
			s.logger.Warn(ctx, "skipping candidate", map[string]interface{}{
				"symbol": cand.Symbol,
				"error":  err.Error(),
			})
			continue
		}
		if !ok {
			continue
		}
		qualified = append(qualified, entry)
	}

	ranked := rank(qualified, s.cfg.SectorCap, s.cfg.WatchlistSize)
	wl := &domain.Watchlist{
		Entries:   ranked,
		BuiltAt:   time.Now().In(domain.IST),
		PoolSize:  len(pool),
		Qualified: len(qualified),
	}
	s.logger.Info(ctx, "watchlist built", map[string]interface{}{
		"pool":      wl.PoolSize,
		"qualified": wl.Qualified,
		"selected":  len(wl.Entries),
	})
	return wl, nil
}

// screen applies the first four funnel stages to one candidate.
func (s *Selector) screen(ctx context.Context, cand Candidate) (domain.WatchlistEntry, bool, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.SymbolTimeout)
	defer cancel()

	lookback := s.cfg.LookbackDays * candlesPerSession(s.cfg.Interval, s.cfg.Session)
	candles, err := s.broker.GetCandles(fetchCtx, cand.Symbol, s.cfg.Interval, lookback)
	if err != nil {
		return domain.WatchlistEntry{}, false, err
	}
	if len(candles) < s.cfg.Indicators.WarmupCandles() {
		return domain.WatchlistEntry{}, false, ports.ErrInsufficientData
	}

	if avgSessionVolume(candles) < s.cfg.MinAvgVolume {
		return domain.WatchlistEntry{}, false, nil
	}

	atrPct := atrPercent(candles, s.cfg.ATRPeriod)
	if atrPct < s.cfg.ATRPctMin || atrPct > s.cfg.ATRPctMax {
		return domain.WatchlistEntry{}, false, nil
	}

	trailPct := math.Max(0.3, math.Min(1.5, atrPct*0.5))

	res, err := backtesting.Run(ctx, candles, backtesting.Config{
		Symbol:     cand.Symbol,
		Indicators: s.cfg.Indicators,
		Confirm:    s.cfg.Confirm,
		Risk:       s.cfg.Risk,
		Session:    s.cfg.Session,
		TrailPct:   trailPct,
	})
	if err != nil {
		return domain.WatchlistEntry{}, false, err
	}
	if res.WinRate < s.cfg.MinWinRate || res.TotalPnL <= 0 ||
		res.TotalTrades < s.cfg.MinTrades || res.ProfitFactor < s.cfg.MinProfitFactor {
		return domain.WatchlistEntry{}, false, nil
	}

	return domain.WatchlistEntry{
		Symbol:       cand.Symbol,
		Sector:       cand.Sector,
		Score:        score(res),
		WinRate:      res.WinRate,
		PnL:          res.TotalPnL,
		ProfitFactor: res.ProfitFactor,
		TradeCount:   res.TotalTrades,
		TrailPct:     trailPct,
	}, true, nil
}

// score blends backtest quality into a single ranking number. Weights favor
// realized PnL, then consistency, then efficiency, then sample size. WinRate
// enters as a percentage, the same quantity the funnel's floor applies to.
func score(r *backtesting.Result) float64 {
	return 0.4*r.TotalPnL +
		0.3*(r.WinRate*10) +
		0.2*(r.ProfitFactor*50) +
		0.1*(float64(r.TotalTrades)*100)
}

// rank orders entries by score, caps each sector, and trims to size.
// Equal scores fall back to symbol order so the result is deterministic.
func rank(entries []domain.WatchlistEntry, sectorCap, size int) []domain.WatchlistEntry {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Symbol < entries[j].Symbol
	})

	perSector := make(map[string]int)
	out := make([]domain.WatchlistEntry, 0, size)
	for _, e := range entries {
		if len(out) >= size {
			break
		}
		if sectorCap > 0 && perSector[e.Sector] >= sectorCap {
			continue
		}
		perSector[e.Sector]++
		out = append(out, e)
	}
	return out
}

// avgSessionVolume averages total traded volume per session day.
func avgSessionVolume(candles []*domain.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	byDay := make(map[string]float64)
	for _, c := range candles {
		day := c.Timestamp.In(domain.IST).Format("2006-01-02")
		byDay[day] += c.Volume
	}
	var total float64
	for _, v := range byDay {
		total += v
	}
	return total / float64(len(byDay))
}

// atrPercent is the final ATR expressed as a percentage of the last close.
func atrPercent(candles []*domain.Candle, period int) float64 {
	atr := indicators.NewATR(period)
	for _, c := range candles {
		atr.Update(c)
	}
	last := candles[len(candles)-1].Close
	if last <= 0 {
		return 0
	}
	return atr.Value() / last * 100
}

// candlesPerSession converts an interval string into candles per trading day.
func candlesPerSession(interval string, sess domain.Session) int {
	minutes := sess.CloseMinute - sess.OpenMinute
	var per int
	switch interval {
	case "minute":
		per = 1
	case "3minute":
		per = 3
	case "5minute":
		per = 5
	case "10minute":
		per = 10
	case "15minute":
		per = 15
	case "30minute":
		per = 30
	case "60minute":
		per = 60
	case "day":
		return 1
	default:
		per = 15
	}
	n := minutes / per
	if n < 1 {
		n = 1
	}
	return n
}
