package indicators

// VolumeRatio compares the current candle's volume against a simple moving
// average of the preceding `lookback` volumes (the current candle is
// excluded from the average).
type VolumeRatio struct {
	lookback int
	window   []float64
	sum      float64
	value    float64
}

// NewVolumeRatio creates a volume ratio over the given lookback.
func NewVolumeRatio(lookback int) *VolumeRatio {
	return &VolumeRatio{lookback: lookback, window: make([]float64, 0, lookback)}
}

// Update computes the ratio for the given volume and then adds it to the
// trailing window.
func (v *VolumeRatio) Update(volume float64) float64 {
	if len(v.window) > 0 {
		avg := v.sum / float64(len(v.window))
		if avg > 0 {
			v.value = volume / avg
		} else {
			v.value = 0
		}
	} else {
		v.value = 0
	}

	v.window = append(v.window, volume)
	v.sum += volume
	if len(v.window) > v.lookback {
		v.sum -= v.window[0]
		v.window = v.window[1:]
	}
	return v.value
}

// Ready reports whether the full lookback window has been observed.
func (v *VolumeRatio) Ready() bool { return len(v.window) >= v.lookback }

// Value returns the most recently computed ratio.
func (v *VolumeRatio) Value() float64 { return v.value }
