package domain

import "time"

// Confirmation names, as recorded on a Signal. One name per indicator vote.
const (
	ConfirmVWAP        = "vwap"
	ConfirmEMA         = "ema"
	ConfirmRSI         = "rsi"
	ConfirmSupertrend  = "supertrend"
	ConfirmVolume      = "volume"
	ConfirmPriceAction = "price_action"
)

// MaxConfirmations is the number of indicator votes an evaluation can collect.
const MaxConfirmations = 6

// Signal is the directional verdict for one symbol at one candle close.
// Signals are immutable; a new candle produces a new Signal.
type Signal struct {
	ID                string    // Unique identifier for tracing/archival
	Symbol            string    // Trading symbol
	Direction         Direction // LONG, SHORT or NONE
	Confirmations     []string  // Names of the indicators that agreed
	ConfirmationCount int       // len(Confirmations), always in [0, MaxConfirmations]
	Timestamp         time.Time // Close time of the candle that produced it
}

// Actionable reports whether the signal calls for an entry.
func (s *Signal) Actionable() bool {
	return s.Direction == Long || s.Direction == Short
}
