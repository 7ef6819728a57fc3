// Package paper provides an in-memory broker used for paper trading and
// tests. Fills are instant at the quoted price and order IDs are
// deterministic, so a scripted run always produces the same trail.
package paper

import (
	"context"
	"fmt"
	"sync"

	"equityScalpBot/internal/domain"
	"equityScalpBot/internal/ports"
)

// Broker implements ports.Broker against in-memory quotes and candles.
type Broker struct {
	clock ports.Clock

	mu        sync.Mutex
	candles   map[string][]*domain.Candle
	prices    map[string]float64
	open      map[string]ports.BrokerPosition
	orders    map[string]bool // live order IDs
	nextOrder int

	// FailProtective makes the next PlaceProtectiveOrders call fail once.
	// Test hook for the entry rollback path.
	FailProtective bool
}

func NewBroker(clock ports.Clock) *Broker {
	if clock == nil {
		clock = ports.RealClock{}
	}
	return &Broker{
		clock:   clock,
		candles: make(map[string][]*domain.Candle),
		prices:  make(map[string]float64),
		open:    make(map[string]ports.BrokerPosition),
		orders:  make(map[string]bool),
	}
}

// SetCandles loads the history returned for a symbol.
func (b *Broker) SetCandles(symbol string, candles []*domain.Candle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.candles[symbol] = candles
}

// SetPrice sets the last traded price for a symbol.
func (b *Broker) SetPrice(symbol string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[symbol] = price
}

func (b *Broker) GetCandles(ctx context.Context, symbol, interval string, lookback int) ([]*domain.Candle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	series, ok := b.candles[symbol]
	if !ok {
		return nil, fmt.Errorf("no candles for %s: %w", symbol, ports.ErrDataUnavailable)
	}
	if lookback > 0 && len(series) > lookback {
		series = series[len(series)-lookback:]
	}
	out := make([]*domain.Candle, len(series))
	copy(out, series)
	return out, nil
}

func (b *Broker) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	price, ok := b.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("no quote for %s: %w", symbol, ports.ErrDataUnavailable)
	}
	return price, nil
}

func (b *Broker) PlaceEntry(ctx context.Context, symbol string, direction domain.Direction, quantity int, product domain.ProductType) (*ports.OrderResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	price, ok := b.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("no quote for %s: %w", symbol, ports.ErrOrderPlacementFailed)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("quantity %d for %s: %w", quantity, symbol, ports.ErrOrderPlacementFailed)
	}

	signedQty := quantity
	if direction == domain.Short {
		signedQty = -quantity
	}
	b.open[symbol] = ports.BrokerPosition{
		Symbol:   symbol,
		Quantity: signedQty,
		AvgPrice: price,
		Product:  product,
	}

	return &ports.OrderResponse{
		OrderID:   b.nextOrderIDLocked(),
		Symbol:    symbol,
		AvgPrice:  price,
		Quantity:  quantity,
		Status:    "COMPLETE",
		Timestamp: b.clock.Now(),
	}, nil
}

func (b *Broker) PlaceProtectiveOrders(ctx context.Context, pos *domain.Position) (*ports.ProtectiveOrders, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailProtective {
		b.FailProtective = false
		return nil, fmt.Errorf("protective pair for %s: %w", pos.Symbol, ports.ErrOrderPlacementFailed)
	}

	stop := b.nextOrderIDLocked()
	target := b.nextOrderIDLocked()
	b.orders[stop] = true
	b.orders[target] = true
	return &ports.ProtectiveOrders{StopOrderID: stop, TargetOrderID: target}, nil
}

func (b *Broker) CancelOrder(ctx context.Context, symbol, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.orders[orderID] {
		return fmt.Errorf("order %s for %s: %w", orderID, symbol, ports.ErrOrderNotFound)
	}
	delete(b.orders, orderID)
	return nil
}

func (b *Broker) PlaceExit(ctx context.Context, pos *domain.Position) (*ports.OrderResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	price, ok := b.prices[pos.Symbol]
	if !ok {
		price = pos.EntryPrice
	}
	delete(b.open, pos.Symbol)

	return &ports.OrderResponse{
		OrderID:   b.nextOrderIDLocked(),
		Symbol:    pos.Symbol,
		AvgPrice:  price,
		Quantity:  pos.Quantity,
		Status:    "COMPLETE",
		Timestamp: b.clock.Now(),
	}, nil
}

func (b *Broker) ConvertProduct(ctx context.Context, pos *domain.Position, product domain.ProductType) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	bp, ok := b.open[pos.Symbol]
	if !ok {
		return fmt.Errorf("no open position for %s: %w", pos.Symbol, ports.ErrConversionFailure)
	}
	bp.Product = product
	b.open[pos.Symbol] = bp
	return nil
}

func (b *Broker) GetOpenPositions(ctx context.Context) ([]ports.BrokerPosition, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ports.BrokerPosition, 0, len(b.open))
	for _, bp := range b.open {
		out = append(out, bp)
	}
	return out, nil
}

// LiveOrders reports how many protective legs are still live. Test hook.
func (b *Broker) LiveOrders() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}

func (b *Broker) nextOrderIDLocked() string {
	b.nextOrder++
	return fmt.Sprintf("PAPER-%06d", b.nextOrder)
}
