package ports

import (
	"context"
	"time"

	"equityScalpBot/internal/domain"
)

// PositionRepository defines the interface for archiving trading positions.
type PositionRepository interface {
	// Create saves a new position and returns its assigned ID.
	Create(ctx context.Context, pos *domain.Position) (int64, error)
	// Update modifies an existing position (trail moves, conversion, closure).
	Update(ctx context.Context, pos *domain.Position) error
	// FindOpen retrieves all currently open positions, used to restore
	// state after a restart.
	FindOpen(ctx context.Context) ([]*domain.Position, error)
	// FindClosedSince retrieves positions closed at or after the given time,
	// ordered by exit time descending.
	FindClosedSince(ctx context.Context, since time.Time) ([]*domain.Position, error)
	// TotalProfitSince sums realized P&L over positions closed since t.
	TotalProfitSince(ctx context.Context, t time.Time) (float64, error)
}

// WatchlistRepository persists selection runs so a restart resumes with the
// last built watchlist instead of an empty scanner.
type WatchlistRepository interface {
	// SaveWatchlist replaces the stored watchlist with the given one.
	SaveWatchlist(ctx context.Context, wl *domain.Watchlist) error
	// LoadWatchlist returns the most recently saved watchlist.
	// Returns nil, nil if none has been saved yet.
	LoadWatchlist(ctx context.Context) (*domain.Watchlist, error)
}
