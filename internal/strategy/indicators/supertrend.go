package indicators

import "equityScalpBot/internal/domain"

// Supertrend maintains an ATR-banded trend line. The direction flips when
// the close crosses the active band, and the band then tracks the new side
// until the next flip.
type Supertrend struct {
	atr  *ATR
	mult float64

	prevClose float64
	prevUpper float64
	prevLower float64
	direction int
	value     float64
	started   bool
}

// NewSupertrend creates a supertrend with the given ATR period and band
// multiplier (e.g. 10, 3).
func NewSupertrend(period int, mult float64) *Supertrend {
	return &Supertrend{atr: NewATR(period), mult: mult, direction: 1}
}

// Update folds the next candle into the trend line and returns the current
// band value and direction (+1 bullish, -1 bearish).
func (s *Supertrend) Update(c *domain.Candle) (float64, int) {
	atr := s.atr.Update(c)
	median := (c.High + c.Low) / 2
	basicUpper := median + s.mult*atr
	basicLower := median - s.mult*atr

	if !s.started {
		s.started = true
		s.prevUpper = basicUpper
		s.prevLower = basicLower
		s.prevClose = c.Close
		s.value = basicLower
		return s.value, s.direction
	}

	// Final bands only ratchet toward price unless the prior close already
	// broke through them.
	upper := basicUpper
	if basicUpper >= s.prevUpper && s.prevClose <= s.prevUpper {
		upper = s.prevUpper
	}
	lower := basicLower
	if basicLower <= s.prevLower && s.prevClose >= s.prevLower {
		lower = s.prevLower
	}

	if s.direction == 1 {
		if c.Close < lower {
			s.direction = -1
		}
	} else {
		if c.Close > upper {
			s.direction = 1
		}
	}

	if s.direction == 1 {
		s.value = lower
	} else {
		s.value = upper
	}

	s.prevUpper = upper
	s.prevLower = lower
	s.prevClose = c.Close
	return s.value, s.direction
}

// Ready reports whether the underlying ATR seed window has been observed.
func (s *Supertrend) Ready() bool { return s.atr.Ready() }

// Direction returns the current trend direction.
func (s *Supertrend) Direction() int { return s.direction }

// Value returns the current band value.
func (s *Supertrend) Value() float64 { return s.value }
