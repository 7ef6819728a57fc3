package risk

import "equityScalpBot/internal/domain"

// ConversionConfig holds the gates for converting an intraday position to a
// carry product near session end.
type ConversionConfig struct {
	MinCarryProfit float64 // Remaining profit to target must exceed this (covers overnight cost)
	MinDistancePct float64 // Distance to target as % of price must exceed this
}

// DefaultConversionConfig returns the standard conversion gates.
func DefaultConversionConfig() ConversionConfig {
	return ConversionConfig{MinCarryProfit: 100, MinDistancePct: 0.5}
}

// ConversionVerdict explains a conversion decision.
type ConversionVerdict struct {
	Convert        bool
	Reason         string
	UnrealizedPnL  float64
	RemainingValue float64
	DistancePct    float64
}

// EvaluateConversion decides whether an open intraday position should be
// converted to carry. All three gates must hold: the position is in profit,
// the remaining move to target is worth more than the overnight cost, and
// the target is far enough away that it is unlikely to hit this session.
// The evaluation is a pure predicate over the position and the live price.
func EvaluateConversion(pos *domain.Position, price float64, cfg ConversionConfig) ConversionVerdict {
	v := ConversionVerdict{}
	if pos == nil || !pos.IsOpen() || pos.Product != domain.ProductIntraday {
		v.Reason = "not an open intraday position"
		return v
	}

	v.UnrealizedPnL = pos.UnrealizedPnL(price)
	if v.UnrealizedPnL <= 0 {
		v.Reason = "position not in profit"
		return v
	}

	v.RemainingValue = pos.RemainingToTarget(price)
	if v.RemainingValue <= cfg.MinCarryProfit {
		v.Reason = "remaining profit does not cover carry cost"
		return v
	}

	if price > 0 {
		v.DistancePct = (pos.Target - price) * pos.Direction.Sign() / price * 100
	}
	if v.DistancePct <= cfg.MinDistancePct {
		v.Reason = "target likely to hit within the session"
		return v
	}

	v.Convert = true
	v.Reason = "profit locked, remaining move worth carrying overnight"
	return v
}
