package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equityScalpBot/internal/domain"
	"equityScalpBot/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func openPosition(symbol string) *domain.Position {
	return &domain.Position{
		Symbol:     symbol,
		Direction:  domain.Long,
		EntryPrice: 150.00,
		EntryTime:  time.Date(2026, 3, 2, 10, 0, 0, 0, domain.IST),
		Quantity:   33,
		StopLoss:   149.55,
		Target:     150.90,
		Product:    domain.ProductIntraday,
		Status:     domain.StatusOpen,
	}
}

func TestNewRepository(t *testing.T) {
	t.Run("requires a logger", func(t *testing.T) {
		_, err := NewRepository(Config{DBPath: filepath.Join(t.TempDir(), "x.db")})
		require.Error(t, err)
	})

	t.Run("creates the data directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "bot.db")
		repo, err := NewRepository(Config{DBPath: path, Logger: &mockLogger{}})
		require.NoError(t, err)
		repo.Close()
	})
}

func TestPositionRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	pos := openPosition("SBIN")
	id, err := repo.Create(ctx, pos)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))
	assert.Equal(t, id, pos.ID)

	open, err := repo.FindOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)

	got := open[0]
	assert.Equal(t, "SBIN", got.Symbol)
	assert.Equal(t, domain.Long, got.Direction)
	assert.InDelta(t, 150.00, got.EntryPrice, 1e-9)
	assert.Equal(t, 33, got.Quantity)
	assert.InDelta(t, 149.55, got.StopLoss, 1e-9)
	assert.InDelta(t, 150.90, got.Target, 1e-9)
	assert.Equal(t, domain.ProductIntraday, got.Product)
	assert.Equal(t, domain.StatusOpen, got.Status)
	assert.True(t, got.EntryTime.Equal(pos.EntryTime))
	assert.True(t, got.ExitTime.IsZero())
	assert.Zero(t, got.ExitPrice)
	assert.Empty(t, string(got.ExitReason))
}

func TestPositionUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	pos := openPosition("SBIN")
	_, err := repo.Create(ctx, pos)
	require.NoError(t, err)

	t.Run("persists a trail move and order handles", func(t *testing.T) {
		pos.TrailStop = 150.20
		pos.StopOrderID = "ORD-1"
		pos.TargetOrderID = "ORD-2"
		require.NoError(t, repo.Update(ctx, pos))

		open, err := repo.FindOpen(ctx)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.InDelta(t, 150.20, open[0].TrailStop, 1e-9)
		assert.Equal(t, "ORD-1", open[0].StopOrderID)
		assert.Equal(t, "ORD-2", open[0].TargetOrderID)
	})

	t.Run("persists a closure", func(t *testing.T) {
		pos.Status = domain.StatusClosed
		pos.ExitPrice = 150.90
		pos.ExitTime = time.Date(2026, 3, 2, 11, 30, 0, 0, domain.IST)
		pos.ExitReason = domain.ExitTargetHit
		pos.PnL = 29.70
		require.NoError(t, repo.Update(ctx, pos))

		open, err := repo.FindOpen(ctx)
		require.NoError(t, err)
		assert.Empty(t, open)

		closed, err := repo.FindClosedSince(ctx, time.Date(2026, 3, 2, 0, 0, 0, 0, domain.IST))
		require.NoError(t, err)
		require.Len(t, closed, 1)
		assert.Equal(t, domain.ExitTargetHit, closed[0].ExitReason)
		assert.InDelta(t, 29.70, closed[0].PnL, 1e-9)
		assert.True(t, closed[0].ExitTime.Equal(pos.ExitTime))
	})

	t.Run("unknown ID", func(t *testing.T) {
		ghost := openPosition("TCS")
		ghost.ID = 9999
		err := repo.Update(ctx, ghost)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ports.ErrNotFound))
	})
}

func TestFindClosedSince(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	base := time.Date(2026, 3, 2, 11, 0, 0, 0, domain.IST)
	for i, symbol := range []string{"SBIN", "TCS", "INFY"} {
		pos := openPosition(symbol)
		_, err := repo.Create(ctx, pos)
		require.NoError(t, err)

		pos.Status = domain.StatusClosed
		pos.ExitPrice = 151
		pos.ExitTime = base.Add(time.Duration(i) * time.Hour)
		pos.ExitReason = domain.ExitTargetHit
		pos.PnL = float64(i+1) * 10
		require.NoError(t, repo.Update(ctx, pos))
	}

	closed, err := repo.FindClosedSince(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, closed, 2)
	// Ordered by exit time descending.
	assert.Equal(t, "INFY", closed[0].Symbol)
	assert.Equal(t, "TCS", closed[1].Symbol)

	total, err := repo.TotalProfitSince(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.InDelta(t, 50, total, 1e-9)

	total, err = repo.TotalProfitSince(ctx, base)
	require.NoError(t, err)
	assert.InDelta(t, 60, total, 1e-9)
}

func TestTotalProfitSinceEmpty(t *testing.T) {
	repo := newTestRepo(t)
	total, err := repo.TotalProfitSince(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestWatchlistRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	t.Run("empty database loads nil", func(t *testing.T) {
		wl, err := repo.LoadWatchlist(ctx)
		require.NoError(t, err)
		assert.Nil(t, wl)
	})

	first := &domain.Watchlist{
		BuiltAt:   time.Date(2026, 3, 2, 8, 45, 0, 0, domain.IST),
		PoolSize:  30,
		Qualified: 4,
		Entries: []domain.WatchlistEntry{
			{Symbol: "SBIN", Sector: "PSU Bank", Score: 120.5, WinRate: 75, PnL: 250, ProfitFactor: 2.4, TradeCount: 4, TrailPct: 0.8},
			{Symbol: "TCS", Sector: "IT", Score: 90.1, WinRate: 70, PnL: 180, ProfitFactor: 2.1, TradeCount: 3, TrailPct: 0.6},
		},
	}
	require.NoError(t, repo.SaveWatchlist(ctx, first))

	got, err := repo.LoadWatchlist(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 30, got.PoolSize)
	assert.Equal(t, 4, got.Qualified)
	require.Len(t, got.Entries, 2)
	// Ranked order survives the round trip.
	assert.Equal(t, "SBIN", got.Entries[0].Symbol)
	assert.InDelta(t, 0.8, got.Entries[0].TrailPct, 1e-9)
	assert.Equal(t, "TCS", got.Entries[1].Symbol)
	assert.Equal(t, 3, got.Entries[1].TradeCount)

	t.Run("saving replaces the previous list", func(t *testing.T) {
		second := &domain.Watchlist{
			BuiltAt:   first.BuiltAt.Add(24 * time.Hour),
			PoolSize:  30,
			Qualified: 1,
			Entries: []domain.WatchlistEntry{
				{Symbol: "INFY", Sector: "IT", Score: 50, WinRate: 72, PnL: 90, ProfitFactor: 2.2, TradeCount: 3, TrailPct: 0.5},
			},
		}
		require.NoError(t, repo.SaveWatchlist(ctx, second))

		got, err := repo.LoadWatchlist(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Len(t, got.Entries, 1)
		assert.Equal(t, "INFY", got.Entries[0].Symbol)

		// The old list is pruned, not shadowed.
		var count int
		require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM watchlists`).Scan(&count))
		assert.Equal(t, 1, count)
		require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM watchlist_entries`).Scan(&count))
		assert.Equal(t, 1, count)
	})
}
