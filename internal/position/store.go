// Package position owns every open position's lifecycle. All mutation
// happens through the Store's transition operations so the invariants
// (one OPEN position per symbol, trail stops that only tighten) are
// enforced at a single choke point.
package position

import (
	"context"
	"fmt"
	"sync"
	"time"

	"equityScalpBot/internal/domain"
	"equityScalpBot/internal/ports"
)

// Store holds the open positions and today's closed ones. Transitions are
// serialized under one mutex: a trailing update and a stop-hit check for
// the same symbol can never race.
type Store struct {
	logger ports.Logger

	mu      sync.Mutex
	open    map[string]*domain.Position
	closing map[string]bool
	closed  []*domain.Position
}

// NewStore creates an empty store.
func NewStore(logger ports.Logger) *Store {
	return &Store{
		logger:  logger,
		open:    make(map[string]*domain.Position),
		closing: make(map[string]bool),
	}
}

// Open transitions a sized entry into an OPEN position. A second entry for
// a symbol that is already open is a contract violation and is rejected.
func (s *Store) Open(ctx context.Context, pos *domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.open[pos.Symbol]; ok {
		return fmt.Errorf("symbol %s already has open position %d: %w",
			pos.Symbol, existing.ID, ports.ErrInvariantViolation)
	}
	if err := validateLevels(pos); err != nil {
		return err
	}

	pos.Status = domain.StatusOpen
	s.open[pos.Symbol] = pos
	return nil
}

// validateLevels checks the stop/entry/target ordering fixed at entry.
func validateLevels(pos *domain.Position) error {
	switch pos.Direction {
	case domain.Long:
		if !(pos.StopLoss < pos.EntryPrice && pos.EntryPrice < pos.Target) {
			return fmt.Errorf("long levels must satisfy stop < entry < target (%.2f/%.2f/%.2f): %w",
				pos.StopLoss, pos.EntryPrice, pos.Target, ports.ErrInvariantViolation)
		}
	case domain.Short:
		if !(pos.Target < pos.EntryPrice && pos.EntryPrice < pos.StopLoss) {
			return fmt.Errorf("short levels must satisfy target < entry < stop (%.2f/%.2f/%.2f): %w",
				pos.Target, pos.EntryPrice, pos.StopLoss, ports.ErrInvariantViolation)
		}
	default:
		return fmt.Errorf("position direction %s: %w", pos.Direction, ports.ErrInvariantViolation)
	}
	return nil
}

// UpdateTrail moves the trail stop. The move must tighten: for a long the
// trail only ever rises, for a short it only ever falls. A loosening move
// is rejected as a contract violation.
func (s *Store) UpdateTrail(ctx context.Context, symbol string, trail float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.open[symbol]
	if !ok {
		return fmt.Errorf("no open position for %s: %w", symbol, ports.ErrNotFound)
	}
	if pos.TrailStop != 0 {
		if pos.Direction == domain.Long && trail < pos.TrailStop {
			return fmt.Errorf("trail for long %s would loosen (%.2f -> %.2f): %w",
				symbol, pos.TrailStop, trail, ports.ErrInvariantViolation)
		}
		if pos.Direction == domain.Short && trail > pos.TrailStop {
			return fmt.Errorf("trail for short %s would loosen (%.2f -> %.2f): %w",
				symbol, pos.TrailStop, trail, ports.ErrInvariantViolation)
		}
	}
	pos.TrailStop = trail
	return nil
}

// SetOrderIDs records the protective order handles on an open position.
func (s *Store) SetOrderIDs(symbol, stopID, targetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos, ok := s.open[symbol]; ok {
		pos.StopOrderID = stopID
		pos.TargetOrderID = targetID
	}
}

// Convert changes an open position's product type.
func (s *Store) Convert(ctx context.Context, symbol string, product domain.ProductType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.open[symbol]
	if !ok {
		return fmt.Errorf("no open position for %s: %w", symbol, ports.ErrNotFound)
	}
	if s.closing[symbol] {
		return fmt.Errorf("position for %s is closing: %w", symbol, ports.ErrInvariantViolation)
	}
	pos.Product = product
	return nil
}

// BeginClose claims the closure of an open position. Exactly one caller
// wins the claim; the monitor loop and the scheduled square-off can both
// trigger an exit for the same symbol, and only the winner may submit the
// exit order. The claim holds until Close or AbandonClose.
func (s *Store) BeginClose(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.open[symbol]; !ok {
		return false
	}
	if s.closing[symbol] {
		return false
	}
	s.closing[symbol] = true
	return true
}

// AbandonClose releases a closure claim after a failed exit, so a later
// trigger can retry.
func (s *Store) AbandonClose(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.closing, symbol)
}

// Close transitions an open position to CLOSED with the given exit fill
// and reason, computes realized P&L, and returns the closed position.
func (s *Store) Close(ctx context.Context, symbol string, exitPrice float64, reason domain.ExitReason, at time.Time) (*domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.open[symbol]
	if !ok {
		return nil, fmt.Errorf("no open position for %s: %w", symbol, ports.ErrNotFound)
	}

	pos.ExitPrice = exitPrice
	pos.ExitTime = at
	pos.ExitReason = reason
	pos.Status = domain.StatusClosed
	pos.PnL = (exitPrice - pos.EntryPrice) * float64(pos.Quantity) * pos.Direction.Sign()

	delete(s.open, symbol)
	delete(s.closing, symbol)
	s.closed = append(s.closed, pos)

	cp := *pos
	return &cp, nil
}

// Reconcile applies the broker-reported quantity to an open position.
// The broker is authoritative for quantity and fills; stop/target/trail
// levels stay as the store has them.
func (s *Store) Reconcile(ctx context.Context, symbol string, brokerQty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.open[symbol]
	if !ok {
		return fmt.Errorf("no open position for %s: %w", symbol, ports.ErrNotFound)
	}
	if brokerQty < 0 {
		brokerQty = -brokerQty
	}
	if pos.Quantity != brokerQty {
		s.logger.Warn(ctx, "Reconciling position quantity against broker",
			map[string]interface{}{"symbol": symbol, "stored": pos.Quantity, "broker": brokerQty})
		pos.Quantity = brokerQty
	}
	return nil
}

// Restore seeds the store with a position recovered from the archive at
// startup. Unlike Open it does not re-validate entry levels; the archived
// record is the source of truth.
func (s *Store) Restore(pos *domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.open[pos.Symbol]; ok {
		return fmt.Errorf("symbol %s already restored: %w", pos.Symbol, ports.ErrInvariantViolation)
	}
	s.open[pos.Symbol] = pos
	return nil
}

// Get returns a copy of the open position for a symbol, or nil.
func (s *Store) Get(symbol string) *domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos, ok := s.open[symbol]; ok {
		cp := *pos
		return &cp
	}
	return nil
}

// OpenPositions returns copies of all open positions.
func (s *Store) OpenPositions() []*domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Position, 0, len(s.open))
	for _, pos := range s.open {
		cp := *pos
		out = append(out, &cp)
	}
	return out
}

// OpenCount returns the number of open positions.
func (s *Store) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

// ClosedSince returns copies of positions closed at or after t.
func (s *Store) ClosedSince(t time.Time) []*domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Position
	for _, pos := range s.closed {
		if !pos.ExitTime.Before(t) {
			cp := *pos
			out = append(out, &cp)
		}
	}
	return out
}
