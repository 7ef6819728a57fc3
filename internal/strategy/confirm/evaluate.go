// Package confirm turns an indicator snapshot into a directional signal by
// counting indicator votes. The evaluation is a pure function of its inputs:
// identical snapshot, candle and config always yield an identical verdict.
package confirm

import (
	"equityScalpBot/internal/domain"
)

// Config holds the vote thresholds.
type Config struct {
	RSILongMin       float64 // e.g. 45
	RSILongMax       float64 // e.g. 65
	RSIShortMin      float64 // e.g. 35
	RSIShortMax      float64 // e.g. 55
	MinVolumeRatio   float64 // e.g. 1.3
	MinConfirmations int     // e.g. 5 of 6
}

// DefaultConfig returns the momentum-continuation thresholds. The RSI bands
// deliberately avoid the overbought/oversold extremes: the strategy trades
// continuation, not reversal.
func DefaultConfig() Config {
	return Config{
		RSILongMin:       45,
		RSILongMax:       65,
		RSIShortMin:      35,
		RSIShortMax:      55,
		MinVolumeRatio:   1.3,
		MinConfirmations: 5,
	}
}

// votes collects the indicator votes for one direction.
func votes(snap *domain.IndicatorSnapshot, candle *domain.Candle, cfg Config, dir domain.Direction) []string {
	long := dir == domain.Long
	var agreed []string

	if (long && candle.Close > snap.VWAP) || (!long && candle.Close < snap.VWAP) {
		agreed = append(agreed, domain.ConfirmVWAP)
	}
	if (long && snap.EMAFast > snap.EMASlow) || (!long && snap.EMAFast < snap.EMASlow) {
		agreed = append(agreed, domain.ConfirmEMA)
	}
	if long {
		if snap.RSI >= cfg.RSILongMin && snap.RSI <= cfg.RSILongMax {
			agreed = append(agreed, domain.ConfirmRSI)
		}
	} else {
		if snap.RSI >= cfg.RSIShortMin && snap.RSI <= cfg.RSIShortMax {
			agreed = append(agreed, domain.ConfirmRSI)
		}
	}
	if (long && snap.SupertrendDir == 1) || (!long && snap.SupertrendDir == -1) {
		agreed = append(agreed, domain.ConfirmSupertrend)
	}
	if snap.VolumeRatio > cfg.MinVolumeRatio {
		agreed = append(agreed, domain.ConfirmVolume)
	}
	if (long && candle.IsBullish()) || (!long && candle.IsBearish()) {
		agreed = append(agreed, domain.ConfirmPriceAction)
	}
	return agreed
}

// Evaluate produces the signal for one candle close. A direction is a
// candidate only when it collects at least MinConfirmations votes. When
// both directions qualify (mutually exclusive by construction for the
// VWAP/EMA/Supertrend votes, but handled anyway) the higher count wins;
// an exact tie is ambiguous and yields NONE. Identical inputs yield an
// identical Signal; the tracing ID is assigned by the caller that captures
// the signal, not here.
func Evaluate(snap *domain.IndicatorSnapshot, candle *domain.Candle, cfg Config) domain.Signal {
	longVotes := votes(snap, candle, cfg, domain.Long)
	shortVotes := votes(snap, candle, cfg, domain.Short)

	sig := domain.Signal{
		Symbol:    candle.Symbol,
		Direction: domain.None,
		Timestamp: candle.Timestamp,
	}

	longOK := len(longVotes) >= cfg.MinConfirmations
	shortOK := len(shortVotes) >= cfg.MinConfirmations

	switch {
	case longOK && shortOK:
		if len(longVotes) > len(shortVotes) {
			sig.Direction = domain.Long
			sig.Confirmations = longVotes
		} else if len(shortVotes) > len(longVotes) {
			sig.Direction = domain.Short
			sig.Confirmations = shortVotes
		}
		// Exact tie stays NONE.
	case longOK:
		sig.Direction = domain.Long
		sig.Confirmations = longVotes
	case shortOK:
		sig.Direction = domain.Short
		sig.Confirmations = shortVotes
	}

	sig.ConfirmationCount = len(sig.Confirmations)
	return sig
}

// ShouldExitEarly reports whether a position should be abandoned before its
// stop or target triggers, with the reason. For a long: price below VWAP,
// supertrend flipped bearish, EMA order reversed, or RSI past the
// overbought extreme. Mirrored for shorts.
func ShouldExitEarly(snap *domain.IndicatorSnapshot, price float64, dir domain.Direction) (bool, string) {
	if dir == domain.Long {
		if price < snap.VWAP {
			return true, "price crossed below VWAP"
		}
		if snap.SupertrendDir == -1 {
			return true, "supertrend turned bearish"
		}
		if snap.EMAFast < snap.EMASlow {
			return true, "EMA crossover turned bearish"
		}
		if snap.RSI > 70 {
			return true, "RSI overbought"
		}
		return false, ""
	}

	if price > snap.VWAP {
		return true, "price crossed above VWAP"
	}
	if snap.SupertrendDir == 1 {
		return true, "supertrend turned bullish"
	}
	if snap.EMAFast > snap.EMASlow {
		return true, "EMA crossover turned bullish"
	}
	if snap.RSI < 30 {
		return true, "RSI oversold"
	}
	return false, ""
}
