package indicators

import (
	"math"

	"equityScalpBot/internal/domain"
)

// ATR computes Wilder's average true range incrementally. The first
// `period` true ranges seed the average with their mean.
type ATR struct {
	period    int
	prevClose float64
	haveClose bool
	seen      int
	value     float64
}

// NewATR creates an ATR over the given period.
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

// Update folds the next candle's true range into the average.
func (a *ATR) Update(c *domain.Candle) float64 {
	tr := c.High - c.Low
	if a.haveClose {
		tr = math.Max(tr, math.Max(math.Abs(c.High-a.prevClose), math.Abs(c.Low-a.prevClose)))
	}
	a.prevClose = c.Close
	a.haveClose = true

	a.seen++
	if a.seen <= a.period {
		a.value += (tr - a.value) / float64(a.seen)
	} else {
		n := float64(a.period)
		a.value = (a.value*(n-1) + tr) / n
	}
	return a.value
}

// Ready reports whether the seed window has been observed.
func (a *ATR) Ready() bool { return a.seen >= a.period }

// Value returns the current average true range.
func (a *ATR) Value() float64 { return a.value }
