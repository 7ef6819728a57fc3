package domain

// Direction represents the side of a signal or position.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
	None  Direction = "NONE"
)

// Sign returns +1 for LONG, -1 for SHORT and 0 for NONE.
// Used for direction-aware P&L and distance arithmetic.
func (d Direction) Sign() float64 {
	switch d {
	case Long:
		return 1
	case Short:
		return -1
	default:
		return 0
	}
}

// Opposite returns the mirrored direction. NONE maps to itself.
func (d Direction) Opposite() Direction {
	switch d {
	case Long:
		return Short
	case Short:
		return Long
	default:
		return None
	}
}

// ProductType distinguishes same-session positions from carry-overnight ones.
type ProductType string

const (
	ProductIntraday ProductType = "INTRADAY"
	ProductCarry    ProductType = "CARRY"
)

// PositionStatus represents the status of a trading position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "OPEN"
	StatusClosed PositionStatus = "CLOSED"
)

// ExitReason indicates why a position was closed.
type ExitReason string

const (
	ExitTargetHit    ExitReason = "TARGET_HIT"
	ExitStopHit      ExitReason = "STOP_HIT"
	ExitEarly        ExitReason = "EARLY_EXIT"
	ExitSessionClose ExitReason = "SESSION_CLOSE"
)

// TradingMode controls what happens when a signal is accepted.
type TradingMode string

const (
	// ModeSignalOnly generates signals but never opens positions.
	ModeSignalOnly TradingMode = "signal-only"
	// ModeConfirm parks entries until an external approval arrives.
	ModeConfirm TradingMode = "confirm-before-entry"
	// ModeFullAuto transitions to OPEN automatically.
	ModeFullAuto TradingMode = "full-auto"
)

// ParseTradingMode maps a config string to a TradingMode, defaulting to
// signal-only so a misconfigured bot never trades by accident.
func ParseTradingMode(s string) TradingMode {
	switch TradingMode(s) {
	case ModeConfirm:
		return ModeConfirm
	case ModeFullAuto:
		return ModeFullAuto
	default:
		return ModeSignalOnly
	}
}
