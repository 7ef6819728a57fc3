package selector

import (
	"sync"

	"equityScalpBot/internal/domain"
)

// Store holds the active watchlist. Replace swaps the whole list in one
// step, so readers either see the previous list or the new one, never a mix.
type Store struct {
	mu sync.RWMutex
	wl *domain.Watchlist
}

func NewStore() *Store {
	return &Store{}
}

// Current returns the active watchlist, or nil when no selection has run yet.
func (s *Store) Current() *domain.Watchlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wl
}

func (s *Store) Replace(wl *domain.Watchlist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wl = wl
}

// Entry returns the watchlist entry for a symbol, if the symbol is active.
func (s *Store) Entry(symbol string) (domain.WatchlistEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.wl == nil {
		return domain.WatchlistEntry{}, false
	}
	for _, e := range s.wl.Entries {
		if e.Symbol == symbol {
			return e, true
		}
	}
	return domain.WatchlistEntry{}, false
}
