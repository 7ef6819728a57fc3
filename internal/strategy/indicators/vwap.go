package indicators

import (
	"time"

	"equityScalpBot/internal/domain"
)

// VWAP maintains the volume-weighted average price for the current trading
// session. The accumulators reset when a candle from a new session arrives.
type VWAP struct {
	cumPV    float64
	cumVol   float64
	lastTime time.Time
	started  bool
	value    float64
}

// NewVWAP creates an empty session VWAP.
func NewVWAP() *VWAP {
	return &VWAP{}
}

// Update folds the next candle into the session accumulators using the
// typical price (H+L+C)/3, resetting first if the candle opens a new session.
func (v *VWAP) Update(c *domain.Candle) float64 {
	if v.started && !domain.SameSession(v.lastTime, c.Timestamp) {
		v.cumPV = 0
		v.cumVol = 0
	}
	v.started = true
	v.lastTime = c.Timestamp

	typical := (c.High + c.Low + c.Close) / 3
	v.cumPV += typical * c.Volume
	v.cumVol += c.Volume
	if v.cumVol > 0 {
		v.value = v.cumPV / v.cumVol
	} else {
		v.value = c.Close
	}
	return v.value
}

// Value returns the current session VWAP.
func (v *VWAP) Value() float64 { return v.value }
