package selector

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equityScalpBot/internal/domain"
	"equityScalpBot/internal/strategy/backtesting"
)

func entry(symbol, sector string, score float64) domain.WatchlistEntry {
	return domain.WatchlistEntry{Symbol: symbol, Sector: sector, Score: score}
}

func TestRank(t *testing.T) {
	t.Run("orders by score descending", func(t *testing.T) {
		in := []domain.WatchlistEntry{
			entry("A", "IT", 10),
			entry("B", "IT", 30),
			entry("C", "Auto", 20),
		}
		out := rank(in, 3, 25)
		require.Len(t, out, 3)
		assert.Equal(t, "B", out[0].Symbol)
		assert.Equal(t, "C", out[1].Symbol)
		assert.Equal(t, "A", out[2].Symbol)
	})

	t.Run("equal scores fall back to symbol order", func(t *testing.T) {
		in := []domain.WatchlistEntry{
			entry("ZEE", "IT", 10),
			entry("ACC", "Auto", 10),
			entry("MID", "Pharma", 10),
		}
		out := rank(in, 3, 25)
		require.Len(t, out, 3)
		assert.Equal(t, []string{"ACC", "MID", "ZEE"},
			(&domain.Watchlist{Entries: out}).Symbols())
	})

	t.Run("caps each sector", func(t *testing.T) {
		in := []domain.WatchlistEntry{
			entry("A", "IT", 50),
			entry("B", "IT", 40),
			entry("C", "IT", 30),
			entry("D", "IT", 20),
			entry("E", "Auto", 10),
		}
		out := rank(in, 2, 25)
		require.Len(t, out, 3)
		assert.Equal(t, "A", out[0].Symbol)
		assert.Equal(t, "B", out[1].Symbol)
		assert.Equal(t, "E", out[2].Symbol)
	})

	t.Run("trims to size", func(t *testing.T) {
		in := []domain.WatchlistEntry{
			entry("A", "IT", 50),
			entry("B", "Auto", 40),
			entry("C", "Pharma", 30),
		}
		out := rank(in, 3, 2)
		require.Len(t, out, 2)
		assert.Equal(t, "A", out[0].Symbol)
		assert.Equal(t, "B", out[1].Symbol)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, rank(nil, 3, 25))
	})
}

func TestScore(t *testing.T) {
	res := &backtesting.Result{
		TotalPnL:     500,
		WinRate:      80,
		ProfitFactor: 2.5,
		TotalTrades:  4,
	}
	// 0.4*500 + 0.3*800 + 0.2*125 + 0.1*400
	assert.InDelta(t, 200+240+25+40, score(res), 1e-9)

	t.Run("win rate can outrank raw profit", func(t *testing.T) {
		consistent := &backtesting.Result{TotalPnL: 100, WinRate: 90, ProfitFactor: 2.0, TotalTrades: 4}
		lumpy := &backtesting.Result{TotalPnL: 150, WinRate: 70, ProfitFactor: 2.0, TotalTrades: 4}

		ranked := rank([]domain.WatchlistEntry{
			{Symbol: "LUMPY", Sector: "IT", Score: score(lumpy)},
			{Symbol: "STEADY", Sector: "Auto", Score: score(consistent)},
		}, 3, 25)
		require.Len(t, ranked, 2)
		assert.Equal(t, "STEADY", ranked[0].Symbol)
	})
}

func TestAvgSessionVolume(t *testing.T) {
	day1 := time.Date(2026, 3, 2, 10, 0, 0, 0, domain.IST)
	day2 := time.Date(2026, 3, 3, 10, 0, 0, 0, domain.IST)

	candles := []*domain.Candle{
		{Timestamp: day1, Volume: 300000},
		{Timestamp: day1.Add(15 * time.Minute), Volume: 300000},
		{Timestamp: day2, Volume: 400000},
	}
	// Day one totals 600k, day two 400k.
	assert.InDelta(t, 500000, avgSessionVolume(candles), 1e-9)
	assert.Zero(t, avgSessionVolume(nil))
}

func TestCandlesPerSession(t *testing.T) {
	sess := domain.DefaultSession() // 375 session minutes

	assert.Equal(t, 25, candlesPerSession("15minute", sess))
	assert.Equal(t, 75, candlesPerSession("5minute", sess))
	assert.Equal(t, 375, candlesPerSession("minute", sess))
	assert.Equal(t, 1, candlesPerSession("day", sess))
	assert.Equal(t, 25, candlesPerSession("unknown", sess))
}

func TestLoadPool(t *testing.T) {
	writePool := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "universe.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("sorts and deduplicates", func(t *testing.T) {
		path := writePool(t, `
candidates:
  - symbol: TCS
    sector: IT
  - symbol: SBIN
    sector: PSU Bank
  - symbol: TCS
    sector: IT
  - symbol: ""
    sector: Orphan
`)
		pool, err := LoadPool(path)
		require.NoError(t, err)
		require.Len(t, pool, 2)
		assert.Equal(t, "SBIN", pool[0].Symbol)
		assert.Equal(t, "PSU Bank", pool[0].Sector)
		assert.Equal(t, "TCS", pool[1].Symbol)
	})

	t.Run("empty pool is a configuration error", func(t *testing.T) {
		path := writePool(t, "candidates: []\n")
		_, err := LoadPool(path)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPool(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writePool(t, "candidates: {nope\n")
		_, err := LoadPool(path)
		require.Error(t, err)
	})
}

func TestStore(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Current())

	wl := &domain.Watchlist{Entries: []domain.WatchlistEntry{
		{Symbol: "SBIN", Sector: "PSU Bank", TrailPct: 0.8},
	}}
	s.Replace(wl)
	require.NotNil(t, s.Current())

	e, ok := s.Entry("SBIN")
	require.True(t, ok)
	assert.InDelta(t, 0.8, e.TrailPct, 1e-9)

	_, ok = s.Entry("TCS")
	assert.False(t, ok)
}
