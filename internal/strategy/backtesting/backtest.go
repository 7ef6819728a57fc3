// Package backtesting replays a historical candle series through the
// confirmation evaluator and the position lifecycle rules. The universe
// selector uses it as evidence that a symbol trades well before admitting
// it to the watchlist.
package backtesting

import (
	"context"
	"fmt"
	"time"

	"equityScalpBot/internal/domain"
	"equityScalpBot/internal/ports"
	"equityScalpBot/internal/position"
	"equityScalpBot/internal/risk"
	"equityScalpBot/internal/strategy/confirm"
	"equityScalpBot/internal/strategy/indicators"
)

// Config holds everything a replay needs. The same indicator, confirmation
// and sizing parameters the live engine uses are applied to history, so
// the backtest measures the strategy actually being traded.
type Config struct {
	Symbol     string
	Indicators indicators.Config
	Confirm    confirm.Config
	Risk       risk.Config
	Session    domain.Session
	TrailPct   float64 // Trailing offset percentage; 0 disables trailing
}

// Trade records one completed round trip of the replay.
type Trade struct {
	Direction  domain.Direction
	EntryPrice float64
	ExitPrice  float64
	Quantity   int
	PnL        float64
	Reason     domain.ExitReason
	EntryTime  time.Time
	ExitTime   time.Time
}

// Result aggregates the replay outcome.
type Result struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // Percentage
	TotalPnL      float64
	GrossProfit   float64
	GrossLoss     float64
	ProfitFactor  float64
	Trades        []Trade
}

// Run replays the candles oldest-first. Results are deterministic for a
// fixed candle series and config.
func Run(ctx context.Context, candles []*domain.Candle, cfg Config) (*Result, error) {
	series, err := indicators.NewSeries(cfg.Indicators)
	if err != nil {
		return nil, err
	}
	if len(candles) < cfg.Indicators.WarmupCandles() {
		return nil, fmt.Errorf("%d candles for %s, need %d warm-up: %w",
			len(candles), cfg.Symbol, cfg.Indicators.WarmupCandles(), ports.ErrInsufficientData)
	}

	res := &Result{}
	var pos *domain.Position

	closeTrade := func(price float64, reason domain.ExitReason, at time.Time) {
		pnl := (price - pos.EntryPrice) * float64(pos.Quantity) * pos.Direction.Sign()
		res.Trades = append(res.Trades, Trade{
			Direction:  pos.Direction,
			EntryPrice: pos.EntryPrice,
			ExitPrice:  price,
			Quantity:   pos.Quantity,
			PnL:        pnl,
			Reason:     reason,
			EntryTime:  pos.EntryTime,
			ExitTime:   at,
		})
		res.TotalPnL += pnl
		if pnl > 0 {
			res.WinningTrades++
			res.GrossProfit += pnl
		} else {
			res.LosingTrades++
			res.GrossLoss += -pnl
		}
		pos = nil
	}

	for _, c := range candles {
		snap, err := series.Update(c)
		if err != nil {
			continue // Still warming up.
		}

		if pos != nil {
			// Trail first so the stop check below sees the tightened level.
			favorable := c.High
			if pos.Direction == domain.Short {
				favorable = c.Low
			}
			if trail, ok := position.TrailCandidate(pos, favorable, cfg.TrailPct); ok {
				pos.TrailStop = trail
			}

			adverse := c.Low
			if pos.Direction == domain.Short {
				adverse = c.High
			}
			switch {
			case position.StopTouched(pos, adverse):
				closeTrade(pos.EffectiveStop(), domain.ExitStopHit, c.Timestamp)
			case position.TargetTouched(pos, favorable):
				closeTrade(pos.Target, domain.ExitTargetHit, c.Timestamp)
			default:
				if exit, _ := confirm.ShouldExitEarly(snap, c.Close, pos.Direction); exit {
					closeTrade(c.Close, domain.ExitEarly, c.Timestamp)
				} else if cfg.Session.PastSquareOff(c.Timestamp) {
					closeTrade(c.Close, domain.ExitSessionClose, c.Timestamp)
				}
			}
			// A close and a fresh entry never share a candle.
			continue
		}

		if !cfg.Session.CanEnter(c.Timestamp) {
			continue
		}
		sig := confirm.Evaluate(snap, c, cfg.Confirm)
		if !sig.Actionable() {
			continue
		}
		sizing, err := risk.Size(c.Close, sig.Direction, cfg.Risk)
		if err != nil {
			continue // Too expensive for the budget; routine skip.
		}
		pos = &domain.Position{
			Symbol:     cfg.Symbol,
			Direction:  sig.Direction,
			EntryPrice: c.Close,
			EntryTime:  c.Timestamp,
			Quantity:   sizing.Quantity,
			StopLoss:   sizing.StopLoss,
			Target:     sizing.Target,
			Product:    domain.ProductIntraday,
			Status:     domain.StatusOpen,
		}
		res.TotalTrades++
	}

	// A replay ending with an open position closes it at the last price,
	// mirroring the live session-end square-off.
	if pos != nil {
		last := candles[len(candles)-1]
		closeTrade(last.Close, domain.ExitSessionClose, last.Timestamp)
	}

	if res.TotalTrades > 0 {
		res.WinRate = float64(res.WinningTrades) / float64(res.TotalTrades) * 100
	}
	res.ProfitFactor = profitFactor(res.GrossProfit, res.GrossLoss)
	return res, nil
}

// profitFactor is gross win over gross loss, bounded so a loss-free replay
// stays comparable instead of infinite.
func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return 99
		}
		return 0
	}
	return grossProfit / grossLoss
}
