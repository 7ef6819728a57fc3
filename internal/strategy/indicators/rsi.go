package indicators

// RSI computes Wilder's relative strength index incrementally.
// The first `period` price changes build the initial average gain and
// loss; after that each change is folded in with Wilder smoothing.
type RSI struct {
	period    int
	prevClose float64
	haveClose bool
	changes   int
	avgGain   float64
	avgLoss   float64
	value     float64
}

// NewRSI creates an RSI over the given period.
func NewRSI(period int) *RSI {
	return &RSI{period: period, value: 50}
}

// Update folds the next close into the index and returns the new value.
func (r *RSI) Update(close float64) float64 {
	if !r.haveClose {
		r.prevClose = close
		r.haveClose = true
		return r.value
	}

	change := close - r.prevClose
	r.prevClose = close
	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	r.changes++
	if r.changes <= r.period {
		// Accumulate the seed averages.
		r.avgGain += gain / float64(r.period)
		r.avgLoss += loss / float64(r.period)
	} else {
		n := float64(r.period)
		r.avgGain = (r.avgGain*(n-1) + gain) / n
		r.avgLoss = (r.avgLoss*(n-1) + loss) / n
	}

	if !r.Ready() {
		return r.value
	}
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			r.value = 50
		} else {
			r.value = 100
		}
		return r.value
	}
	rs := r.avgGain / r.avgLoss
	r.value = 100 - (100 / (1 + rs))
	return r.value
}

// Ready reports whether enough changes have been observed.
func (r *RSI) Ready() bool { return r.changes >= r.period }

// Value returns the current index.
func (r *RSI) Value() float64 { return r.value }
