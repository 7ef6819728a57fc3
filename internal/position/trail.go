package position

import "equityScalpBot/internal/domain"

// TrailCandidate computes the trail level implied by the current price and
// the position's trailing offset percentage. It returns ok=false while the
// price has not yet cleared the activation distance (one offset beyond
// entry), or when the implied level would not tighten the current trail.
// TrailCandidate never proposes a loosening move; the store rejects one
// anyway if a caller constructs it by hand.
func TrailCandidate(pos *domain.Position, price, offsetPct float64) (float64, bool) {
	if offsetPct <= 0 || !pos.IsOpen() {
		return 0, false
	}
	offset := pos.EntryPrice * offsetPct / 100

	if pos.Direction == domain.Long {
		if price < pos.EntryPrice+offset {
			return 0, false
		}
		candidate := price - offset
		if pos.TrailStop != 0 && candidate <= pos.TrailStop {
			return 0, false
		}
		return candidate, true
	}

	if price > pos.EntryPrice-offset {
		return 0, false
	}
	candidate := price + offset
	if pos.TrailStop != 0 && candidate >= pos.TrailStop {
		return 0, false
	}
	return candidate, true
}

// StopTouched reports whether the price has touched the effective stop
// (the tighter of the fixed stop and the trail).
func StopTouched(pos *domain.Position, price float64) bool {
	stop := pos.EffectiveStop()
	if pos.Direction == domain.Long {
		return price <= stop
	}
	return price >= stop
}

// TargetTouched reports whether the price has reached the profit target.
func TargetTouched(pos *domain.Position, price float64) bool {
	if pos.Direction == domain.Long {
		return price >= pos.Target
	}
	return price <= pos.Target
}
