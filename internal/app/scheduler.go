package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"equityScalpBot/internal/domain"
	"equityScalpBot/internal/ports"
	"equityScalpBot/internal/selector"
)

// Cron expressions are evaluated in IST. Selection runs before the open;
// conversion checks run in the last half hour, before and just ahead of
// the square-off.
const (
	schedulePreOpenSelection = "45 8 * * 1-5"
	scheduleConversionFirst  = "0 15 * * 1-5"
	scheduleConversionFinal  = "8 15 * * 1-5"
	scheduleSquareOff        = "10 15 * * 1-5"
)

// Scheduler drives the calendar-bound operations: daily universe
// selection, conversion checkpoints and the session square-off.
type Scheduler struct {
	cron     *cron.Cron
	service  *TradingService
	selector *selector.Selector
	poolPath string
	logger   ports.Logger
}

func NewScheduler(service *TradingService, sel *selector.Selector, poolPath string, logger ports.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(domain.IST)),
		service:  service,
		selector: sel,
		poolPath: poolPath,
		logger:   logger,
	}
}

// Start registers the jobs and launches the cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		spec string
		name string
		run  func()
	}{
		{schedulePreOpenSelection, "pre-open selection", func() { s.runSelection(ctx) }},
		{scheduleConversionFirst, "conversion check", func() { s.service.RunConversionCheck(ctx) }},
		{scheduleConversionFinal, "final conversion check", func() { s.service.RunConversionCheck(ctx) }},
		{scheduleSquareOff, "session square-off", func() { s.service.SquareOff(ctx) }},
	}
	for _, j := range jobs {
		if _, err := s.cron.AddFunc(j.spec, j.run); err != nil {
			return fmt.Errorf("scheduling %s: %w", j.name, err)
		}
	}
	s.cron.Start()
	s.logger.Info(ctx, "scheduler started", map[string]interface{}{"jobs": len(jobs)})
	return nil
}

// Stop halts the cron runner and waits for running jobs to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info(ctx, "scheduler stopped", nil)
}

// runSelection rebuilds the watchlist from the candidate pool. A failed
// run keeps the previous watchlist active.
func (s *Scheduler) runSelection(ctx context.Context) {
	pool, err := selector.LoadPool(s.poolPath)
	if err != nil {
		s.logger.Error(ctx, err, "selection skipped, pool unavailable", nil)
		return
	}
	wl, err := s.selector.Run(ctx, pool)
	if err != nil {
		s.logger.Error(ctx, err, "selection failed, keeping previous watchlist", nil)
		return
	}
	if err := s.service.ReplaceWatchlist(ctx, wl); err != nil {
		s.logger.Error(ctx, err, "could not activate new watchlist", nil)
	}
}
