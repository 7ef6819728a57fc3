// Package sqlite implements the persistence ports on SQLite. One database
// file holds the position archive and the selection history.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"equityScalpBot/internal/domain"
	"equityScalpBot/internal/ports"
)

// Repository implements ports.PositionRepository and ports.WatchlistRepository.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository opens the database, applies the schema and returns the
// repository. The parent directory is created if missing.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/equity_bot.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory '%s': %w", filepath.Dir(dbPath), err)
	}

	// WAL keeps the monitor loop's writes from blocking status reads.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database at '%s': %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database at '%s': %w: %v", dbPath, ports.ErrDBConnection, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})
	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		quantity INTEGER NOT NULL,
		stop_loss REAL NOT NULL,
		target REAL NOT NULL,
		trail_stop REAL NOT NULL DEFAULT 0,
		product TEXT NOT NULL,
		status TEXT NOT NULL,
		exit_price REAL DEFAULT NULL,
		exit_time TIMESTAMP DEFAULT NULL,
		exit_reason TEXT DEFAULT NULL,
		pnl REAL DEFAULT NULL,
		stop_order_id TEXT NOT NULL DEFAULT '',
		target_order_id TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS watchlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		built_at TIMESTAMP NOT NULL,
		pool_size INTEGER NOT NULL,
		qualified INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS watchlist_entries (
		watchlist_id INTEGER NOT NULL,
		sort_order INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		sector TEXT NOT NULL,
		score REAL NOT NULL,
		win_rate REAL NOT NULL,
		pnl REAL NOT NULL,
		profit_factor REAL NOT NULL,
		trade_count INTEGER NOT NULL,
		trail_pct REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_positions_symbol_status ON positions (symbol, status);
	CREATE INDEX IF NOT EXISTS idx_positions_exit_time ON positions (exit_time);
	CREATE INDEX IF NOT EXISTS idx_watchlist_entries_list ON watchlist_entries (watchlist_id, sort_order);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- PositionRepository ---

const positionColumns = `
	id, symbol, direction, entry_price, entry_time, quantity, stop_loss, target,
	trail_stop, product, status, COALESCE(exit_price, 0), exit_time,
	COALESCE(exit_reason, ''), COALESCE(pnl, 0), stop_order_id, target_order_id`

// Create saves a new position and returns its assigned ID.
func (r *Repository) Create(ctx context.Context, pos *domain.Position) (int64, error) {
	const query = `
	INSERT INTO positions (symbol, direction, entry_price, entry_time, quantity,
	                       stop_loss, target, trail_stop, product, status,
	                       stop_order_id, target_order_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		pos.Symbol, string(pos.Direction), pos.EntryPrice, pos.EntryTime, pos.Quantity,
		pos.StopLoss, pos.Target, pos.TrailStop, string(pos.Product), string(pos.Status),
		pos.StopOrderID, pos.TargetOrderID)
	if err != nil {
		return 0, fmt.Errorf("inserting position for %s: %w: %v", pos.Symbol, ports.ErrQueryFailed, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading insert ID for %s: %w", pos.Symbol, err)
	}
	pos.ID = id
	r.logger.Debug(ctx, "Position created", map[string]interface{}{"positionID": id, "symbol": pos.Symbol})
	return id, nil
}

// Update modifies an existing position based on its ID.
func (r *Repository) Update(ctx context.Context, pos *domain.Position) error {
	const query = `
	UPDATE positions
	SET stop_loss = ?, target = ?, trail_stop = ?, product = ?, status = ?,
	    exit_price = ?, exit_time = ?, exit_reason = ?, pnl = ?,
	    stop_order_id = ?, target_order_id = ?
	WHERE id = ?`

	var exitTime sql.NullTime
	if !pos.ExitTime.IsZero() {
		exitTime = sql.NullTime{Time: pos.ExitTime, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		pos.StopLoss, pos.Target, pos.TrailStop, string(pos.Product), string(pos.Status),
		pos.ExitPrice, exitTime, string(pos.ExitReason), pos.PnL,
		pos.StopOrderID, pos.TargetOrderID,
		pos.ID)
	if err != nil {
		return fmt.Errorf("updating position ID %d: %w: %v", pos.ID, ports.ErrUpdateFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected for position ID %d: %w", pos.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("position ID %d not found for update: %w", pos.ID, ports.ErrNotFound)
	}
	return nil
}

// FindOpen retrieves all currently open positions.
func (r *Repository) FindOpen(ctx context.Context) ([]*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE status = ? ORDER BY entry_time`

	rows, err := r.db.QueryContext(ctx, query, string(domain.StatusOpen))
	if err != nil {
		return nil, fmt.Errorf("querying open positions: %w: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()
	return collectPositions(rows)
}

// FindClosedSince retrieves positions closed at or after the given time.
func (r *Repository) FindClosedSince(ctx context.Context, since time.Time) ([]*domain.Position, error) {
	query := `SELECT ` + positionColumns + `
	FROM positions WHERE status = ? AND exit_time >= ? ORDER BY exit_time DESC`

	rows, err := r.db.QueryContext(ctx, query, string(domain.StatusClosed), since)
	if err != nil {
		return nil, fmt.Errorf("querying closed positions: %w: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()
	return collectPositions(rows)
}

// TotalProfitSince sums realized P&L over positions closed since t.
func (r *Repository) TotalProfitSince(ctx context.Context, t time.Time) (float64, error) {
	const query = `SELECT COALESCE(SUM(pnl), 0) FROM positions WHERE status = ? AND exit_time >= ?`
	var total float64
	if err := r.db.QueryRowContext(ctx, query, string(domain.StatusClosed), t).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing realized profit: %w: %v", ports.ErrQueryFailed, err)
	}
	return total, nil
}

// --- WatchlistRepository ---

// SaveWatchlist replaces the stored watchlist with the given one. The
// write is transactional; readers never see a half-written list.
func (r *Repository) SaveWatchlist(ctx context.Context, wl *domain.Watchlist) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting watchlist transaction: %w: %v", ports.ErrDBConnection, err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO watchlists (built_at, pool_size, qualified) VALUES (?, ?, ?)`,
		wl.BuiltAt, wl.PoolSize, wl.Qualified)
	if err != nil {
		return fmt.Errorf("inserting watchlist: %w: %v", ports.ErrQueryFailed, err)
	}
	listID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading watchlist insert ID: %w", err)
	}

	for rank, e := range wl.Entries {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO watchlist_entries (watchlist_id, sort_order, symbol, sector, score,
		                               win_rate, pnl, profit_factor, trade_count, trail_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			listID, rank, e.Symbol, e.Sector, e.Score,
			e.WinRate, e.PnL, e.ProfitFactor, e.TradeCount, e.TrailPct)
		if err != nil {
			return fmt.Errorf("inserting watchlist entry %s: %w: %v", e.Symbol, ports.ErrQueryFailed, err)
		}
	}

	// Keep only the latest list; history lives in the positions archive.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM watchlist_entries WHERE watchlist_id != ?`, listID); err != nil {
		return fmt.Errorf("pruning old watchlist entries: %w: %v", ports.ErrQueryFailed, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM watchlists WHERE id != ?`, listID); err != nil {
		return fmt.Errorf("pruning old watchlists: %w: %v", ports.ErrQueryFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing watchlist: %w: %v", ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Watchlist saved", map[string]interface{}{"entries": len(wl.Entries)})
	return nil
}

// LoadWatchlist returns the most recently saved watchlist, or nil, nil when
// none has been saved yet.
func (r *Repository) LoadWatchlist(ctx context.Context) (*domain.Watchlist, error) {
	wl := &domain.Watchlist{}
	var listID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, built_at, pool_size, qualified FROM watchlists ORDER BY id DESC LIMIT 1`).
		Scan(&listID, &wl.BuiltAt, &wl.PoolSize, &wl.Qualified)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying watchlist: %w: %v", ports.ErrQueryFailed, err)
	}

	rows, err := r.db.QueryContext(ctx, `
	SELECT symbol, sector, score, win_rate, pnl, profit_factor, trade_count, trail_pct
	FROM watchlist_entries WHERE watchlist_id = ? ORDER BY sort_order`, listID)
	if err != nil {
		return nil, fmt.Errorf("querying watchlist entries: %w: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.WatchlistEntry
		if err := rows.Scan(&e.Symbol, &e.Sector, &e.Score, &e.WinRate,
			&e.PnL, &e.ProfitFactor, &e.TradeCount, &e.TrailPct); err != nil {
			return nil, fmt.Errorf("scanning watchlist entry: %w", err)
		}
		wl.Entries = append(wl.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating watchlist entries: %w", err)
	}
	return wl, nil
}

// --- helpers ---

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(s scanner) (*domain.Position, error) {
	p := &domain.Position{}
	var direction, product, status, exitReason string
	var exitTime sql.NullTime
	err := s.Scan(
		&p.ID, &p.Symbol, &direction, &p.EntryPrice, &p.EntryTime, &p.Quantity,
		&p.StopLoss, &p.Target, &p.TrailStop, &product, &status, &p.ExitPrice,
		&exitTime, &exitReason, &p.PnL, &p.StopOrderID, &p.TargetOrderID)
	if err != nil {
		return nil, err
	}
	p.Direction = domain.Direction(direction)
	p.Product = domain.ProductType(product)
	p.Status = domain.PositionStatus(status)
	p.ExitReason = domain.ExitReason(exitReason)
	if exitTime.Valid {
		p.ExitTime = exitTime.Time
	}
	return p, nil
}

func collectPositions(rows *sql.Rows) ([]*domain.Position, error) {
	positions := make([]*domain.Position, 0)
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning position: %w", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating position rows: %w", err)
	}
	return positions, nil
}
