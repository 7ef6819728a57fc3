package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equityScalpBot/internal/adapters/paper"
	"equityScalpBot/internal/app"
	"equityScalpBot/internal/domain"
	"equityScalpBot/internal/position"
	"equityScalpBot/internal/risk"
	"equityScalpBot/internal/selector"
	"equityScalpBot/internal/strategy/confirm"
	"equityScalpBot/internal/strategy/indicators"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type memWatchlistRepo struct{ wl *domain.Watchlist }

func (r *memWatchlistRepo) SaveWatchlist(ctx context.Context, wl *domain.Watchlist) error {
	r.wl = wl
	return nil
}

func (r *memWatchlistRepo) LoadWatchlist(ctx context.Context) (*domain.Watchlist, error) {
	return r.wl, nil
}

type memPositionRepo struct{}

func (r *memPositionRepo) Create(ctx context.Context, pos *domain.Position) (int64, error) {
	return 1, nil
}
func (r *memPositionRepo) Update(ctx context.Context, pos *domain.Position) error { return nil }
func (r *memPositionRepo) FindOpen(ctx context.Context) ([]*domain.Position, error) {
	return nil, nil
}
func (r *memPositionRepo) FindClosedSince(ctx context.Context, since time.Time) ([]*domain.Position, error) {
	return nil, nil
}
func (r *memPositionRepo) TotalProfitSince(ctx context.Context, t time.Time) (float64, error) {
	return 0, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := &mockLogger{}

	riskMgr, err := risk.NewManager(risk.Config{
		RiskBudget:       200,
		StopFraction:     0.003,
		TargetFraction:   0.006,
		MaxPositionValue: 5000,
		MaxDailyLoss:     500,
		MaxTradesPerDay:  10,
		MaxOpenPositions: 3,
	}, logger, nil)
	require.NoError(t, err)

	service, err := app.NewTradingService(app.Config{
		Mode:            domain.ModeConfirm,
		Interval:        "5minute",
		ScanInterval:    time.Minute,
		MonitorInterval: time.Minute,
		SymbolTimeout:   5 * time.Second,
		DefaultTrailPct: 0.5,
		Session:         domain.DefaultSession(),
		Indicators:      indicators.DefaultConfig(),
		Confirm:         confirm.DefaultConfig(),
		Conversion:      risk.DefaultConversionConfig(),
	}, paper.NewBroker(nil), &memPositionRepo{}, &memWatchlistRepo{},
		position.NewStore(logger), riskMgr, selector.NewStore(), logger, nil)
	require.NoError(t, err)

	return New("127.0.0.1:0", service, logger)
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.http.Handler)
	defer ts.Close()

	t.Run("status", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/status")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var snap app.StatusSnapshot
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
		assert.Equal(t, domain.ModeConfirm, snap.Mode)
		assert.False(t, snap.Halted)
	})

	t.Run("approve unknown symbol", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/approve/SBIN", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("halt and resume", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/halt", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		statusResp, err := http.Get(ts.URL + "/api/status")
		require.NoError(t, err)
		var snap app.StatusSnapshot
		require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&snap))
		statusResp.Body.Close()
		assert.True(t, snap.Halted)

		resp, err = http.Post(ts.URL+"/api/resume", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/nope")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
