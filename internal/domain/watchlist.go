package domain

import "time"

// WatchlistEntry is one symbol that survived the selection funnel,
// together with the backtest evidence that admitted it.
type WatchlistEntry struct {
	Symbol       string  // Trading symbol
	Sector       string  // Sector used for diversification capping
	Score        float64 // Composite funnel score
	WinRate      float64 // Backtest win rate percentage
	PnL          float64 // Backtest total P&L
	ProfitFactor float64 // Gross win / gross loss
	TradeCount   int     // Number of backtest trades
	TrailPct     float64 // Volatility-derived trailing offset percentage
}

// Watchlist is the ranked set of symbols the scanner trades.
// A selection run replaces the list wholesale; it is never merged.
type Watchlist struct {
	Entries   []WatchlistEntry
	BuiltAt   time.Time
	PoolSize  int // Candidates considered before filtering
	Qualified int // Candidates that survived the performance filter
}

// Symbols returns the entry symbols in ranked order.
func (w *Watchlist) Symbols() []string {
	out := make([]string, len(w.Entries))
	for i, e := range w.Entries {
		out[i] = e.Symbol
	}
	return out
}
