package domain

import "time"

// Position represents a trading position through its lifecycle.
// All mutation goes through the position store's transition operations;
// callers never write fields directly.
type Position struct {
	ID         int64          // Unique identifier (assigned by the archive)
	Symbol     string         // Trading symbol
	Direction  Direction      // LONG or SHORT
	EntryPrice float64        // Fill price at entry
	EntryTime  time.Time      // Timestamp when the position was opened
	Quantity   int            // Number of shares
	StopLoss   float64        // Protective stop level, fixed at entry
	Target     float64        // Profit target level, fixed at entry
	TrailStop  float64        // Trailing stop level (0 until activated)
	Product    ProductType    // INTRADAY or CARRY
	Status     PositionStatus // OPEN or CLOSED
	ExitPrice  float64        // Fill price at exit (0 while open)
	ExitTime   time.Time      // Timestamp when the position was closed
	ExitReason ExitReason     // Why the position closed
	PnL        float64        // Realized P&L, set on close

	// Broker order handles for the protective pair, kept for cancellation.
	StopOrderID   string
	TargetOrderID string
}

// IsOpen reports whether the position is still live.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// UnrealizedPnL returns the mark-to-market P&L at the given price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	return (price - p.EntryPrice) * float64(p.Quantity) * p.Direction.Sign()
}

// RemainingToTarget returns the profit still on the table if the position
// runs from the given price to its target, in currency units.
func (p *Position) RemainingToTarget(price float64) float64 {
	return (p.Target - price) * float64(p.Quantity) * p.Direction.Sign()
}

// EffectiveStop returns the tighter of the fixed stop and the trail stop.
func (p *Position) EffectiveStop() float64 {
	if p.TrailStop == 0 {
		return p.StopLoss
	}
	if p.Direction == Long {
		if p.TrailStop > p.StopLoss {
			return p.TrailStop
		}
	} else {
		if p.TrailStop < p.StopLoss {
			return p.TrailStop
		}
	}
	return p.StopLoss
}
