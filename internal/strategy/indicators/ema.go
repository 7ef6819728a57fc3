package indicators

// EMA computes an exponential moving average incrementally. The first
// `period` samples seed the average with their SMA; until then the value
// is not ready.
type EMA struct {
	period   int
	mult     float64
	seedSum  float64
	seedSeen int
	value    float64
}

// NewEMA creates an EMA with the standard 2/(period+1) smoothing factor.
func NewEMA(period int) *EMA {
	return &EMA{period: period, mult: 2.0 / float64(period+1)}
}

// Update folds the next close into the average and returns the new value.
func (e *EMA) Update(close float64) float64 {
	if e.seedSeen < e.period {
		e.seedSum += close
		e.seedSeen++
		e.value = e.seedSum / float64(e.seedSeen)
		return e.value
	}
	e.value = (close-e.value)*e.mult + e.value
	return e.value
}

// Ready reports whether the seed window has been observed.
func (e *EMA) Ready() bool { return e.seedSeen >= e.period }

// Value returns the current average.
func (e *EMA) Value() float64 { return e.value }
