package ports

import (
	"context"
	"time"

	"equityScalpBot/internal/domain"
)

// OrderResponse represents the essential details returned after placing an order.
type OrderResponse struct {
	OrderID   string    // Broker's order ID
	Symbol    string    // Symbol for the order
	AvgPrice  float64   // Average filled price (0 if not yet filled)
	Quantity  int       // Quantity requested
	Status    string    // Broker-reported status (e.g. COMPLETE, OPEN, REJECTED)
	Timestamp time.Time // Time the response was generated
}

// ProtectiveOrders holds the handles for a position's stop and target legs.
// The pair carries one-cancels-other semantics: when either leg fills the
// other must be cancelled.
type ProtectiveOrders struct {
	StopOrderID   string
	TargetOrderID string
}

// BrokerPosition is the broker's view of an open position, used to
// reconcile against the internal store. The broker is authoritative for
// quantity and fills; the store is authoritative for stop/target/trail.
type BrokerPosition struct {
	Symbol   string
	Quantity int // Positive for long, negative for short
	AvgPrice float64
	Product  domain.ProductType
}

// Broker defines the execution capability the core consumes. Implementations
// wrap a specific broker SDK (or an in-memory double) and translate their
// failures onto the standard port errors.
type Broker interface {
	// GetCandles retrieves up to lookback historical candles for the symbol
	// at the given interval (e.g. "15minute"), oldest first.
	GetCandles(ctx context.Context, symbol, interval string, lookback int) ([]*domain.Candle, error)

	// GetLastPrice retrieves the last traded price for the symbol.
	GetLastPrice(ctx context.Context, symbol string) (float64, error)

	// PlaceEntry places a market entry order and returns the fill.
	PlaceEntry(ctx context.Context, symbol string, direction domain.Direction, quantity int, product domain.ProductType) (*OrderResponse, error)

	// PlaceProtectiveOrders places the stop and target legs for an open
	// position as a logical unit.
	PlaceProtectiveOrders(ctx context.Context, pos *domain.Position) (*ProtectiveOrders, error)

	// CancelOrder cancels an open order by its handle.
	CancelOrder(ctx context.Context, symbol, orderID string) error

	// PlaceExit places a market order that flattens the position.
	PlaceExit(ctx context.Context, pos *domain.Position) (*OrderResponse, error)

	// ConvertProduct converts an open position to the given product type
	// (intraday to carry, for late-session conversions).
	ConvertProduct(ctx context.Context, pos *domain.Position, product domain.ProductType) error

	// GetOpenPositions returns the broker-reported open positions.
	GetOpenPositions(ctx context.Context) ([]BrokerPosition, error)
}
