package app

import (
	"context"
	"sort"
	"time"

	"equityScalpBot/internal/domain"
	"equityScalpBot/internal/risk"
)

// StatusSnapshot is a point-in-time view of the service for reporting.
type StatusSnapshot struct {
	Mode        domain.TradingMode `json:"mode"`
	Halted      bool               `json:"halted"`
	SessionOpen bool               `json:"sessionOpen"`
	AsOf        time.Time          `json:"asOf"`
	Open        []*domain.Position `json:"openPositions"`
	ClosedToday []*domain.Position `json:"closedToday"`
	Stats       risk.DailyStats    `json:"dailyStats"`
	Watchlist   *domain.Watchlist  `json:"watchlist,omitempty"`
	LastSignals []domain.Signal    `json:"lastSignals"`
	Pending     []string           `json:"pendingApprovals"`
}

// Status assembles the current snapshot. Closed positions cover the
// current IST day.
func (s *TradingService) Status(ctx context.Context) StatusSnapshot {
	now := s.clock.Now().In(domain.IST)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, domain.IST)

	s.mu.Lock()
	signals := make([]domain.Signal, 0, len(s.lastSignals))
	for _, sig := range s.lastSignals {
		signals = append(signals, *sig)
	}
	halted := s.halted
	s.mu.Unlock()
	sort.Slice(signals, func(i, j int) bool { return signals[i].Symbol < signals[j].Symbol })

	return StatusSnapshot{
		Mode:        s.cfg.Mode,
		Halted:      halted,
		SessionOpen: s.cfg.Session.IsOpen(now),
		AsOf:        now,
		Open:        s.store.OpenPositions(),
		ClosedToday: s.store.ClosedSince(midnight),
		Stats:       s.riskMgr.Stats(),
		Watchlist:   s.watch.Current(),
		LastSignals: signals,
		Pending:     s.PendingApprovals(),
	}
}
