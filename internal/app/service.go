// Package app wires the strategy, risk, position and execution layers into
// the running trading service. The service owns two loops: a scan loop that
// evaluates watchlist symbols for entries, and a monitor loop that manages
// open positions until they close.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"equityScalpBot/internal/domain"
	"equityScalpBot/internal/ports"
	"equityScalpBot/internal/position"
	"equityScalpBot/internal/risk"
	"equityScalpBot/internal/selector"
	"equityScalpBot/internal/strategy/confirm"
	"equityScalpBot/internal/strategy/indicators"
)

// Config tunes the trading service loops.
type Config struct {
	Mode            domain.TradingMode
	Interval        string        // Candle interval for scanning
	ScanInterval    time.Duration // Cadence of the entry scan loop
	MonitorInterval time.Duration // Cadence of the open-position monitor loop
	SymbolTimeout   time.Duration // Budget for one symbol's scan
	DefaultTrailPct float64       // Trailing offset when the watchlist has none

	Session    domain.Session
	Indicators indicators.Config
	Confirm    confirm.Config
	Conversion risk.ConversionConfig
}

// Validate checks the loop configuration.
func (c Config) Validate() error {
	if c.ScanInterval <= 0 {
		return fmt.Errorf("scan interval must be positive: %w", ports.ErrConfigurationError)
	}
	if c.MonitorInterval <= 0 {
		return fmt.Errorf("monitor interval must be positive: %w", ports.ErrConfigurationError)
	}
	if c.SymbolTimeout <= 0 {
		return fmt.Errorf("symbol timeout must be positive: %w", ports.ErrConfigurationError)
	}
	return c.Indicators.Validate()
}

// TradingService orchestrates scanning, entries, position management and
// end-of-day handling.
type TradingService struct {
	cfg     Config
	broker  ports.Broker
	repo    ports.PositionRepository
	wlRepo  ports.WatchlistRepository
	store   *position.Store
	riskMgr *risk.Manager
	watch   *selector.Store
	logger  ports.Logger
	clock   ports.Clock

	mu          sync.Mutex
	halted      bool
	pending     map[string]*domain.Signal // signals parked for manual approval
	lastSignals map[string]*domain.Signal
	lastSnaps   map[string]*domain.IndicatorSnapshot

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTradingService creates the orchestrator. All dependencies are required
// except the clock, which defaults to the wall clock.
func NewTradingService(
	cfg Config,
	broker ports.Broker,
	repo ports.PositionRepository,
	wlRepo ports.WatchlistRepository,
	store *position.Store,
	riskMgr *risk.Manager,
	watch *selector.Store,
	logger ports.Logger,
	clock ports.Clock,
) (*TradingService, error) {
	if broker == nil || repo == nil || wlRepo == nil || store == nil ||
		riskMgr == nil || watch == nil || logger == nil {
		return nil, fmt.Errorf("missing trading service dependency: %w", ports.ErrConfigurationError)
	}
	if clock == nil {
		clock = ports.RealClock{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TradingService{
		cfg:         cfg,
		broker:      broker,
		repo:        repo,
		wlRepo:      wlRepo,
		store:       store,
		riskMgr:     riskMgr,
		watch:       watch,
		logger:      logger,
		clock:       clock,
		pending:     make(map[string]*domain.Signal),
		lastSignals: make(map[string]*domain.Signal),
		lastSnaps:   make(map[string]*domain.IndicatorSnapshot),
	}, nil
}

// Start restores persisted state and launches the scan and monitor loops.
func (s *TradingService) Start(ctx context.Context) error {
	if err := s.restore(ctx); err != nil {
		return fmt.Errorf("restoring state: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.scanLoop(loopCtx)
	go s.monitorLoop(loopCtx)

	s.logger.Info(ctx, "trading service started", map[string]interface{}{
		"mode":     string(s.cfg.Mode),
		"interval": s.cfg.Interval,
	})
	return nil
}

// Stop halts the loops and waits for them to drain.
func (s *TradingService) Stop(ctx context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info(ctx, "trading service stopped", nil)
}

// restore reloads open positions and the last-built watchlist after a
// restart, then reconciles the store against the broker.
func (s *TradingService) restore(ctx context.Context) error {
	open, err := s.repo.FindOpen(ctx)
	if err != nil {
		return err
	}
	for _, pos := range open {
		if err := s.store.Restore(pos); err != nil {
			s.logger.Error(ctx, err, "could not restore position", map[string]interface{}{"symbol": pos.Symbol})
			continue
		}
		s.riskMgr.RecordEntry(ctx)
	}
	if len(open) > 0 {
		s.logger.Info(ctx, "restored open positions", map[string]interface{}{"count": len(open)})
		if err := s.ReconcilePositions(ctx); err != nil {
			s.logger.Error(ctx, err, "startup reconciliation failed", nil)
		}
	}

	if s.watch.Current() == nil {
		wl, err := s.wlRepo.LoadWatchlist(ctx)
		if err != nil {
			return err
		}
		if wl != nil {
			s.watch.Replace(wl)
			s.logger.Info(ctx, "restored watchlist", map[string]interface{}{
				"symbols": len(wl.Entries),
				"builtAt": wl.BuiltAt,
			})
		}
	}
	return nil
}

// Halt blocks new entries. Open positions keep being monitored and closed.
func (s *TradingService) Halt(ctx context.Context) {
	s.mu.Lock()
	s.halted = true
	s.mu.Unlock()
	s.logger.Warn(ctx, "entries halted", nil)
}

// Resume re-enables entries after a halt.
func (s *TradingService) Resume(ctx context.Context) {
	s.mu.Lock()
	s.halted = false
	s.mu.Unlock()
	s.logger.Info(ctx, "entries resumed", nil)
}

func (s *TradingService) isHalted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted
}

// ReplaceWatchlist swaps in a freshly built watchlist and persists it.
func (s *TradingService) ReplaceWatchlist(ctx context.Context, wl *domain.Watchlist) error {
	if err := s.wlRepo.SaveWatchlist(ctx, wl); err != nil {
		return err
	}
	s.watch.Replace(wl)
	return nil
}

// --- scan loop ---

func (s *TradingService) scanLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ScanOnce(ctx)
		}
	}
}

// ScanOnce evaluates every watchlist symbol once. One symbol's failure
// never blocks the rest.
func (s *TradingService) ScanOnce(ctx context.Context) {
	now := s.clock.Now()
	if !s.cfg.Session.IsOpen(now) {
		return
	}
	wl := s.watch.Current()
	if wl == nil || len(wl.Entries) == 0 {
		return
	}

	for _, entry := range wl.Entries {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := s.scanSymbol(ctx, entry); err != nil {
			s.logger.Warn(ctx, "scan failed for symbol", map[string]interface{}{
				"symbol": entry.Symbol,
				"error":  err.Error(),
			})
		}
	}
}

// scanSymbol rebuilds the indicator state from recent candles, evaluates
// the confirmations, and routes any actionable signal per the trading mode.
func (s *TradingService) scanSymbol(ctx context.Context, entry domain.WatchlistEntry) error {
	symCtx, cancel := context.WithTimeout(ctx, s.cfg.SymbolTimeout)
	defer cancel()

	// A fresh series per scan keeps the evaluation a pure function of the
	// fetched history.
	lookback := s.cfg.Indicators.WarmupCandles() * 3
	candles, err := s.broker.GetCandles(symCtx, entry.Symbol, s.cfg.Interval, lookback)
	if err != nil {
		return err
	}
	if len(candles) < s.cfg.Indicators.WarmupCandles() {
		return ports.ErrInsufficientData
	}

	series, err := indicators.NewSeries(s.cfg.Indicators)
	if err != nil {
		return err
	}
	var snap *domain.IndicatorSnapshot
	for _, c := range candles {
		snap, err = series.Update(c)
		if err != nil && !errors.Is(err, ports.ErrInsufficientData) {
			return err
		}
	}
	if snap == nil {
		return ports.ErrInsufficientData
	}
	last := candles[len(candles)-1]

	sig := confirm.Evaluate(snap, last, s.cfg.Confirm)
	sig.ID = uuid.NewString()

	s.mu.Lock()
	s.lastSignals[entry.Symbol] = &sig
	s.lastSnaps[entry.Symbol] = snap
	s.mu.Unlock()

	if !sig.Actionable() {
		return nil
	}
	if s.store.Get(entry.Symbol) != nil {
		return nil
	}

	s.logger.Info(ctx, "entry signal", map[string]interface{}{
		"symbol":        sig.Symbol,
		"direction":     string(sig.Direction),
		"confirmations": sig.ConfirmationCount,
		"votes":         sig.Confirmations,
	})

	switch s.cfg.Mode {
	case domain.ModeSignalOnly:
		return nil
	case domain.ModeConfirm:
		s.mu.Lock()
		s.pending[entry.Symbol] = &sig
		s.mu.Unlock()
		s.logger.Info(ctx, "signal parked for approval", map[string]interface{}{"symbol": sig.Symbol})
		return nil
	default:
		return s.tryEnter(ctx, &sig, entry.TrailPct)
	}
}

// Approve releases a parked signal for execution. Only meaningful in
// confirm-before-entry mode.
func (s *TradingService) Approve(ctx context.Context, symbol string) error {
	s.mu.Lock()
	sig, ok := s.pending[symbol]
	if ok {
		delete(s.pending, symbol)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no pending signal for %s: %w", symbol, ports.ErrNotFound)
	}

	trailPct := s.cfg.DefaultTrailPct
	if entry, found := s.watch.Entry(symbol); found {
		trailPct = entry.TrailPct
	}
	return s.tryEnter(ctx, sig, trailPct)
}

// PendingApprovals lists symbols with a parked signal.
func (s *TradingService) PendingApprovals() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.pending))
	for sym := range s.pending {
		out = append(out, sym)
	}
	return out
}

// tryEnter runs the pre-entry gates and, if they all pass, executes the
// entry. Refusals are logged and swallowed; only execution failures return.
func (s *TradingService) tryEnter(ctx context.Context, sig *domain.Signal, trailPct float64) error {
	now := s.clock.Now()
	if s.isHalted() {
		s.logger.Info(ctx, "entry suppressed, trading halted", map[string]interface{}{"symbol": sig.Symbol})
		return nil
	}
	if !s.cfg.Session.CanEnter(now) {
		s.logger.Info(ctx, "entry suppressed, past session cutoff", map[string]interface{}{"symbol": sig.Symbol})
		return nil
	}
	if s.store.Get(sig.Symbol) != nil {
		return nil
	}
	if ok, reason := s.riskMgr.CanTrade(ctx); !ok {
		s.logger.Info(ctx, "entry suppressed by risk limits", map[string]interface{}{
			"symbol": sig.Symbol,
			"reason": reason,
		})
		return nil
	}

	price, err := s.broker.GetLastPrice(ctx, sig.Symbol)
	if err != nil {
		return err
	}
	sizing, err := s.riskMgr.Size(price, sig.Direction)
	if err != nil {
		if errors.Is(err, ports.ErrSizingRejected) {
			s.logger.Info(ctx, "entry rejected by sizing", map[string]interface{}{
				"symbol": sig.Symbol,
				"price":  price,
			})
			return nil
		}
		return err
	}

	return s.enterPosition(ctx, sig, sizing.Quantity, trailPct)
}

// enterPosition places the entry and the protective pair. If the protective
// pair cannot be placed, the fresh position is flattened immediately rather
// than left unprotected.
func (s *TradingService) enterPosition(ctx context.Context, sig *domain.Signal, quantity int, trailPct float64) error {
	resp, err := s.broker.PlaceEntry(ctx, sig.Symbol, sig.Direction, quantity, domain.ProductIntraday)
	if err != nil {
		return fmt.Errorf("entry order for %s: %w: %w", sig.Symbol, ports.ErrExecutionFailure, err)
	}

	// Protective levels are anchored to the actual fill, not the quoted price.
	fill := resp.AvgPrice
	sizing, err := s.riskMgr.Size(fill, sig.Direction)
	if err != nil {
		// The fill moved past the sizing bounds; flatten right away.
		s.logger.Error(ctx, err, "sizing invalid at fill, flattening", map[string]interface{}{"symbol": sig.Symbol})
		return s.emergencyFlatten(ctx, sig, resp)
	}

	pos := &domain.Position{
		Symbol:     sig.Symbol,
		Direction:  sig.Direction,
		EntryPrice: fill,
		EntryTime:  resp.Timestamp,
		Quantity:   resp.Quantity,
		StopLoss:   sizing.StopLoss,
		Target:     sizing.Target,
		Product:    domain.ProductIntraday,
		Status:     domain.StatusOpen,
	}
	if pos.Quantity == 0 {
		pos.Quantity = sizing.Quantity
	}

	if err := s.store.Open(ctx, pos); err != nil {
		s.logger.Error(ctx, err, "store rejected position, flattening", map[string]interface{}{"symbol": sig.Symbol})
		return s.emergencyFlatten(ctx, sig, resp)
	}
	if id, err := s.repo.Create(ctx, pos); err != nil {
		s.logger.Error(ctx, err, "could not archive position", map[string]interface{}{"symbol": pos.Symbol})
	} else {
		pos.ID = id
	}
	s.riskMgr.RecordEntry(ctx)

	protective, err := s.broker.PlaceProtectiveOrders(ctx, pos)
	if err != nil {
		// An execution-failure rollback, not a signal-driven exit; the
		// wrapped sentinel keeps the two distinguishable in reporting.
		s.logger.Error(ctx, fmt.Errorf("protective pair for %s: %w: %w", pos.Symbol, ports.ErrExecutionFailure, err),
			"protective orders failed, closing position", map[string]interface{}{"symbol": pos.Symbol})
		return s.closePosition(ctx, pos, fill, domain.ExitEarly)
	}
	s.store.SetOrderIDs(pos.Symbol, protective.StopOrderID, protective.TargetOrderID)
	pos.StopOrderID = protective.StopOrderID
	pos.TargetOrderID = protective.TargetOrderID
	if err := s.repo.Update(ctx, pos); err != nil {
		s.logger.Error(ctx, err, "could not archive order handles", map[string]interface{}{"symbol": pos.Symbol})
	}

	s.logger.Info(ctx, "position opened", map[string]interface{}{
		"symbol":    pos.Symbol,
		"direction": string(pos.Direction),
		"entry":     pos.EntryPrice,
		"quantity":  pos.Quantity,
		"stop":      pos.StopLoss,
		"target":    pos.Target,
		"trailPct":  trailPct,
	})
	return nil
}

// emergencyFlatten reverses a fill that never became a tracked position.
func (s *TradingService) emergencyFlatten(ctx context.Context, sig *domain.Signal, resp *ports.OrderResponse) error {
	pos := &domain.Position{
		Symbol:    sig.Symbol,
		Direction: sig.Direction,
		Quantity:  resp.Quantity,
		Product:   domain.ProductIntraday,
		Status:    domain.StatusOpen,
	}
	if _, err := s.broker.PlaceExit(ctx, pos); err != nil {
		return fmt.Errorf("emergency exit for %s: %w: %w", sig.Symbol, ports.ErrExecutionFailure, err)
	}
	return nil
}

// --- monitor loop ---

func (s *TradingService) monitorLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.MonitorOnce(ctx)
		}
	}
}

// MonitorOnce walks the open positions once: advance trails, then check
// the stop, the target, the early-exit conditions and the square-off
// window, in that order.
func (s *TradingService) MonitorOnce(ctx context.Context) {
	for _, pos := range s.store.OpenPositions() {
		if err := s.monitorPosition(ctx, pos); err != nil {
			s.logger.Error(ctx, err, "monitor failed for position", map[string]interface{}{"symbol": pos.Symbol})
		}
	}
}

func (s *TradingService) monitorPosition(ctx context.Context, pos *domain.Position) error {
	price, err := s.broker.GetLastPrice(ctx, pos.Symbol)
	if err != nil {
		return err
	}
	now := s.clock.Now()

	trailPct := s.cfg.DefaultTrailPct
	if entry, ok := s.watch.Entry(pos.Symbol); ok {
		trailPct = entry.TrailPct
	}
	if cand, ok := position.TrailCandidate(pos, price, trailPct); ok {
		if err := s.store.UpdateTrail(ctx, pos.Symbol, cand); err == nil {
			pos.TrailStop = cand
			if err := s.repo.Update(ctx, pos); err != nil {
				s.logger.Error(ctx, err, "could not archive trail move", map[string]interface{}{"symbol": pos.Symbol})
			}
		}
	}

	switch {
	case position.StopTouched(pos, price):
		return s.closePosition(ctx, pos, pos.EffectiveStop(), domain.ExitStopHit)
	case position.TargetTouched(pos, price):
		return s.closePosition(ctx, pos, pos.Target, domain.ExitTargetHit)
	}

	s.mu.Lock()
	snap := s.lastSnaps[pos.Symbol]
	s.mu.Unlock()
	if snap != nil {
		if exit, reason := confirm.ShouldExitEarly(snap, price, pos.Direction); exit {
			s.logger.Info(ctx, "early exit triggered", map[string]interface{}{
				"symbol": pos.Symbol,
				"reason": reason,
			})
			return s.closePosition(ctx, pos, price, domain.ExitEarly)
		}
	}

	if pos.Product == domain.ProductIntraday && s.cfg.Session.PastSquareOff(now) {
		return s.closePosition(ctx, pos, price, domain.ExitSessionClose)
	}
	return nil
}

// closePosition claims the closure, cancels the protective pair, flattens
// at market, and records the result. The claim serializes concurrent
// triggers for the same symbol: a monitor tick and the square-off cron
// firing together must produce exactly one exit order. Cancels tolerate
// orders the broker no longer knows.
func (s *TradingService) closePosition(ctx context.Context, pos *domain.Position, exitPrice float64, reason domain.ExitReason) error {
	if !s.store.BeginClose(pos.Symbol) {
		return nil
	}

	for _, orderID := range []string{pos.StopOrderID, pos.TargetOrderID} {
		if orderID == "" {
			continue
		}
		if err := s.broker.CancelOrder(ctx, pos.Symbol, orderID); err != nil && !errors.Is(err, ports.ErrOrderNotFound) {
			s.logger.Error(ctx, err, "could not cancel protective order", map[string]interface{}{
				"symbol":  pos.Symbol,
				"orderID": orderID,
			})
		}
	}

	resp, err := s.broker.PlaceExit(ctx, pos)
	if err != nil {
		s.store.AbandonClose(pos.Symbol)
		return fmt.Errorf("exit order for %s: %w: %w", pos.Symbol, ports.ErrExecutionFailure, err)
	}
	if resp.AvgPrice > 0 {
		exitPrice = resp.AvgPrice
	}

	closed, err := s.store.Close(ctx, pos.Symbol, exitPrice, reason, s.clock.Now())
	if err != nil {
		return err
	}
	s.riskMgr.RecordExit(ctx, closed.PnL)
	if err := s.repo.Update(ctx, closed); err != nil {
		s.logger.Error(ctx, err, "could not archive closure", map[string]interface{}{"symbol": closed.Symbol})
	}

	s.logger.Info(ctx, "position closed", map[string]interface{}{
		"symbol": closed.Symbol,
		"reason": string(reason),
		"exit":   closed.ExitPrice,
		"pnl":    closed.PnL,
	})
	return nil
}

// --- scheduled operations ---

// RunConversionCheck evaluates every open intraday position for conversion
// to carry. Converted positions drop their protective pair and are held
// past the session.
func (s *TradingService) RunConversionCheck(ctx context.Context) {
	for _, pos := range s.store.OpenPositions() {
		if pos.Product != domain.ProductIntraday {
			continue
		}
		price, err := s.broker.GetLastPrice(ctx, pos.Symbol)
		if err != nil {
			s.logger.Error(ctx, err, "conversion check skipped", map[string]interface{}{"symbol": pos.Symbol})
			continue
		}

		verdict := risk.EvaluateConversion(pos, price, s.cfg.Conversion)
		s.logger.Info(ctx, "conversion evaluated", map[string]interface{}{
			"symbol":    pos.Symbol,
			"convert":   verdict.Convert,
			"reason":    verdict.Reason,
			"uPnL":      verdict.UnrealizedPnL,
			"remaining": verdict.RemainingValue,
			"distance":  verdict.DistancePct,
		})
		if !verdict.Convert {
			continue
		}

		if err := s.broker.ConvertProduct(ctx, pos, domain.ProductCarry); err != nil {
			s.logger.Error(ctx, fmt.Errorf("%w: %v", ports.ErrConversionFailure, err),
				"conversion failed, position stays intraday", map[string]interface{}{"symbol": pos.Symbol})
			continue
		}
		if err := s.store.Convert(ctx, pos.Symbol, domain.ProductCarry); err != nil {
			s.logger.Error(ctx, err, "store conversion failed", map[string]interface{}{"symbol": pos.Symbol})
			continue
		}

		for _, orderID := range []string{pos.StopOrderID, pos.TargetOrderID} {
			if orderID == "" {
				continue
			}
			if err := s.broker.CancelOrder(ctx, pos.Symbol, orderID); err != nil && !errors.Is(err, ports.ErrOrderNotFound) {
				s.logger.Error(ctx, err, "could not cancel protective order after conversion", map[string]interface{}{
					"symbol":  pos.Symbol,
					"orderID": orderID,
				})
			}
		}
		s.store.SetOrderIDs(pos.Symbol, "", "")

		pos.Product = domain.ProductCarry
		pos.StopOrderID, pos.TargetOrderID = "", ""
		if err := s.repo.Update(ctx, pos); err != nil {
			s.logger.Error(ctx, err, "could not archive conversion", map[string]interface{}{"symbol": pos.Symbol})
		}
		s.logger.Info(ctx, "position converted to carry", map[string]interface{}{"symbol": pos.Symbol})
	}
}

// SquareOff force-closes every open intraday position at market.
func (s *TradingService) SquareOff(ctx context.Context) {
	for _, pos := range s.store.OpenPositions() {
		if pos.Product != domain.ProductIntraday {
			continue
		}
		price, err := s.broker.GetLastPrice(ctx, pos.Symbol)
		if err != nil {
			s.logger.Error(ctx, err, "square-off price fetch failed", map[string]interface{}{"symbol": pos.Symbol})
			price = pos.EntryPrice
		}
		if err := s.closePosition(ctx, pos, price, domain.ExitSessionClose); err != nil {
			s.logger.Error(ctx, err, "square-off failed", map[string]interface{}{"symbol": pos.Symbol})
		}
	}
}

// ReconcilePositions compares the store against the broker's view. The
// broker is authoritative for quantity.
func (s *TradingService) ReconcilePositions(ctx context.Context) error {
	brokerPositions, err := s.broker.GetOpenPositions(ctx)
	if err != nil {
		return err
	}
	brokerQty := make(map[string]int, len(brokerPositions))
	for _, bp := range brokerPositions {
		qty := bp.Quantity
		if qty < 0 {
			qty = -qty
		}
		brokerQty[bp.Symbol] = qty
	}

	for _, pos := range s.store.OpenPositions() {
		qty := brokerQty[pos.Symbol]
		if err := s.store.Reconcile(ctx, pos.Symbol, qty); err != nil {
			s.logger.Error(ctx, err, "reconciliation failed", map[string]interface{}{"symbol": pos.Symbol})
		}
	}
	return nil
}
