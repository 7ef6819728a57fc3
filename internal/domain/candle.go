package domain

import "time"

// minBodyPct is the minimum candle body, as a percentage of the open,
// for the candle to count as directional rather than indecisive.
const minBodyPct = 0.1

// Candle represents a single OHLCV bar. Candles are immutable once
// produced; the engine only ever appends to a symbol's series.
type Candle struct {
	Symbol    string    // Trading symbol (e.g., "SBIN")
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	Volume    float64   // Traded volume
	Timestamp time.Time // Start time of the interval
}

// BodyPct returns the candle body as a percentage of the open price.
func (c *Candle) BodyPct() float64 {
	if c.Open == 0 {
		return 0
	}
	body := c.Close - c.Open
	if body < 0 {
		body = -body
	}
	return body / c.Open * 100
}

// IsBullish reports whether the candle closed above its open with a
// meaningful body. Small-bodied candles are indecisive and vote neither way.
func (c *Candle) IsBullish() bool {
	return c.Close > c.Open && c.BodyPct() > minBodyPct
}

// IsBearish reports whether the candle closed below its open with a
// meaningful body.
func (c *Candle) IsBearish() bool {
	return c.Close < c.Open && c.BodyPct() > minBodyPct
}

// IndicatorSnapshot holds the derived values for exactly one candle.
// All fields are products of incremental recurrences over prior state,
// not pure functions of the single candle.
type IndicatorSnapshot struct {
	VWAP          float64 // Volume-weighted average price since session open
	EMAFast       float64 // Fast exponential moving average
	EMASlow       float64 // Slow exponential moving average
	RSI           float64 // Wilder RSI, 0-100
	Supertrend    float64 // Current supertrend band value
	SupertrendDir int     // +1 bullish, -1 bearish
	VolumeRatio   float64 // Volume / SMA of prior volumes (current excluded)
	ATR           float64 // Wilder average true range
}
