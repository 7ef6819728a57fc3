// Package kite implements the Broker port on the Zerodha Kite Connect API.
// Intraday positions map to the MIS product and carry positions to CNC.
package kite

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"equityScalpBot/internal/domain"
	"equityScalpBot/internal/ports"
)

const exchange = "NSE"

// Config carries the Kite Connect credentials. The access token comes from
// the daily login flow and is valid for one session.
type Config struct {
	APIKey      string
	AccessToken string
}

// Broker wraps a kiteconnect client behind the Broker port.
type Broker struct {
	kc     *kiteconnect.Client
	logger ports.Logger
	clock  ports.Clock

	mu     sync.Mutex
	tokens map[string]int // trading symbol -> instrument token
}

func NewBroker(cfg Config, logger ports.Logger, clock ports.Clock) (*Broker, error) {
	if cfg.APIKey == "" || cfg.AccessToken == "" {
		return nil, fmt.Errorf("kite credentials missing: %w", ports.ErrAuthenticationFailed)
	}
	if clock == nil {
		clock = ports.RealClock{}
	}
	kc := kiteconnect.New(cfg.APIKey)
	kc.SetAccessToken(cfg.AccessToken)
	return &Broker{kc: kc, logger: logger, clock: clock, tokens: make(map[string]int)}, nil
}

// instrumentToken resolves a trading symbol to its instrument token. The
// full instrument dump is fetched once and cached for the process lifetime.
func (b *Broker) instrumentToken(symbol string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if token, ok := b.tokens[symbol]; ok {
		return token, nil
	}
	instruments, err := b.kc.GetInstrumentsByExchange(exchange)
	if err != nil {
		return 0, fmt.Errorf("fetching instruments: %w: %v", ports.ErrBrokerUnavailable, err)
	}
	for _, inst := range instruments {
		b.tokens[inst.Tradingsymbol] = inst.InstrumentToken
	}
	token, ok := b.tokens[symbol]
	if !ok {
		return 0, fmt.Errorf("symbol %s not listed on %s: %w", symbol, exchange, ports.ErrNotFound)
	}
	return token, nil
}

func (b *Broker) GetCandles(ctx context.Context, symbol, interval string, lookback int) ([]*domain.Candle, error) {
	token, err := b.instrumentToken(symbol)
	if err != nil {
		return nil, err
	}

	// Request a calendar window wide enough to cover the lookback across
	// weekends and holidays, then trim to the requested count.
	to := b.clock.Now()
	days := lookback/20 + 7
	from := to.AddDate(0, 0, -days)

	data, err := b.kc.GetHistoricalData(token, interval, from, to, false, false)
	if err != nil {
		return nil, fmt.Errorf("historical data for %s: %w: %v", symbol, ports.ErrDataUnavailable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no candles for %s: %w", symbol, ports.ErrDataUnavailable)
	}
	if lookback > 0 && len(data) > lookback {
		data = data[len(data)-lookback:]
	}

	candles := make([]*domain.Candle, 0, len(data))
	for _, h := range data {
		candles = append(candles, &domain.Candle{
			Symbol:    symbol,
			Open:      h.Open,
			High:      h.High,
			Low:       h.Low,
			Close:     h.Close,
			Volume:    float64(h.Volume),
			Timestamp: h.Date.Time,
		})
	}
	return candles, nil
}

func (b *Broker) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	key := exchange + ":" + symbol
	quotes, err := b.kc.GetLTP(key)
	if err != nil {
		return 0, fmt.Errorf("LTP for %s: %w: %v", symbol, ports.ErrDataUnavailable, err)
	}
	quote, ok := quotes[key]
	if !ok || quote.LastPrice <= 0 {
		return 0, fmt.Errorf("no LTP for %s: %w", symbol, ports.ErrDataUnavailable)
	}
	return quote.LastPrice, nil
}

func product(p domain.ProductType) string {
	if p == domain.ProductCarry {
		return kiteconnect.ProductCNC
	}
	return kiteconnect.ProductMIS
}

func transactionType(d domain.Direction) string {
	if d == domain.Short {
		return kiteconnect.TransactionTypeSell
	}
	return kiteconnect.TransactionTypeBuy
}

func (b *Broker) PlaceEntry(ctx context.Context, symbol string, direction domain.Direction, quantity int, prod domain.ProductType) (*ports.OrderResponse, error) {
	resp, err := b.kc.PlaceOrder(kiteconnect.VarietyRegular, kiteconnect.OrderParams{
		Exchange:        exchange,
		Tradingsymbol:   symbol,
		Product:         product(prod),
		OrderType:       kiteconnect.OrderTypeMarket,
		TransactionType: transactionType(direction),
		Quantity:        quantity,
		Validity:        kiteconnect.ValidityDay,
		Tag:             "entry",
	})
	if err != nil {
		return nil, fmt.Errorf("entry for %s: %w: %v", symbol, ports.ErrOrderPlacementFailed, err)
	}
	return b.awaitFill(ctx, symbol, resp.OrderID, quantity)
}

// awaitFill polls the order until the broker reports it complete, falling
// back to the last traded price when the fill price is not yet available.
func (b *Broker) awaitFill(ctx context.Context, symbol, orderID string, quantity int) (*ports.OrderResponse, error) {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		history, err := b.kc.GetOrderHistory(orderID)
		if err == nil && len(history) > 0 {
			last := history[len(history)-1]
			switch last.Status {
			case kiteconnect.OrderStatusComplete:
				return &ports.OrderResponse{
					OrderID:   orderID,
					Symbol:    symbol,
					AvgPrice:  last.AveragePrice,
					Quantity:  quantity,
					Status:    last.Status,
					Timestamp: b.clock.Now(),
				}, nil
			case kiteconnect.OrderStatusRejected, kiteconnect.OrderStatusCancelled:
				return nil, fmt.Errorf("order %s for %s %s: %w", orderID, symbol,
					strings.ToLower(last.Status), ports.ErrOrderPlacementFailed)
			}
		}
		time.Sleep(500 * time.Millisecond)
	}

	ltp, err := b.GetLastPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("order %s for %s unconfirmed: %w", orderID, symbol, ports.ErrTimeout)
	}
	b.logger.Warn(ctx, "order fill unconfirmed, using LTP", map[string]interface{}{
		"symbol":  symbol,
		"orderID": orderID,
	})
	return &ports.OrderResponse{
		OrderID:   orderID,
		Symbol:    symbol,
		AvgPrice:  ltp,
		Quantity:  quantity,
		Status:    "OPEN",
		Timestamp: b.clock.Now(),
	}, nil
}

func (b *Broker) PlaceProtectiveOrders(ctx context.Context, pos *domain.Position) (*ports.ProtectiveOrders, error) {
	exitSide := transactionType(pos.Direction.Opposite())

	stopResp, err := b.kc.PlaceOrder(kiteconnect.VarietyRegular, kiteconnect.OrderParams{
		Exchange:        exchange,
		Tradingsymbol:   pos.Symbol,
		Product:         product(pos.Product),
		OrderType:       kiteconnect.OrderTypeSLM,
		TransactionType: exitSide,
		Quantity:        pos.Quantity,
		TriggerPrice:    pos.StopLoss,
		Validity:        kiteconnect.ValidityDay,
		Tag:             "stop",
	})
	if err != nil {
		return nil, fmt.Errorf("stop for %s: %w: %v", pos.Symbol, ports.ErrOrderPlacementFailed, err)
	}

	targetResp, err := b.kc.PlaceOrder(kiteconnect.VarietyRegular, kiteconnect.OrderParams{
		Exchange:        exchange,
		Tradingsymbol:   pos.Symbol,
		Product:         product(pos.Product),
		OrderType:       kiteconnect.OrderTypeLimit,
		TransactionType: exitSide,
		Quantity:        pos.Quantity,
		Price:           pos.Target,
		Validity:        kiteconnect.ValidityDay,
		Tag:             "target",
	})
	if err != nil {
		// An unpaired stop would block the exit order later; take it down.
		if cancelErr := b.CancelOrder(ctx, pos.Symbol, stopResp.OrderID); cancelErr != nil {
			b.logger.Error(ctx, cancelErr, "could not cancel orphaned stop", map[string]interface{}{
				"symbol":  pos.Symbol,
				"orderID": stopResp.OrderID,
			})
		}
		return nil, fmt.Errorf("target for %s: %w: %v", pos.Symbol, ports.ErrOrderPlacementFailed, err)
	}

	return &ports.ProtectiveOrders{
		StopOrderID:   stopResp.OrderID,
		TargetOrderID: targetResp.OrderID,
	}, nil
}

func (b *Broker) CancelOrder(ctx context.Context, symbol, orderID string) error {
	_, err := b.kc.CancelOrder(kiteconnect.VarietyRegular, orderID, nil)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "order not found") {
			return fmt.Errorf("order %s for %s: %w", orderID, symbol, ports.ErrOrderNotFound)
		}
		return fmt.Errorf("cancel %s for %s: %w: %v", orderID, symbol, ports.ErrOrderCancelFailed, err)
	}
	return nil
}

func (b *Broker) PlaceExit(ctx context.Context, pos *domain.Position) (*ports.OrderResponse, error) {
	resp, err := b.kc.PlaceOrder(kiteconnect.VarietyRegular, kiteconnect.OrderParams{
		Exchange:        exchange,
		Tradingsymbol:   pos.Symbol,
		Product:         product(pos.Product),
		OrderType:       kiteconnect.OrderTypeMarket,
		TransactionType: transactionType(pos.Direction.Opposite()),
		Quantity:        pos.Quantity,
		Validity:        kiteconnect.ValidityDay,
		Tag:             "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("exit for %s: %w: %v", pos.Symbol, ports.ErrOrderPlacementFailed, err)
	}
	return b.awaitFill(ctx, pos.Symbol, resp.OrderID, pos.Quantity)
}

func (b *Broker) ConvertProduct(ctx context.Context, pos *domain.Position, prod domain.ProductType) error {
	ok, err := b.kc.ConvertPosition(kiteconnect.ConvertPositionParams{
		Exchange:        exchange,
		TradingSymbol:   pos.Symbol,
		OldProduct:      product(pos.Product),
		NewProduct:      product(prod),
		PositionType:    kiteconnect.PositionTypeDay,
		TransactionType: transactionType(pos.Direction),
		Quantity:        pos.Quantity,
	})
	if err != nil {
		return fmt.Errorf("converting %s: %w: %v", pos.Symbol, ports.ErrConversionFailure, err)
	}
	if !ok {
		return fmt.Errorf("broker refused conversion for %s: %w", pos.Symbol, ports.ErrConversionFailure)
	}
	return nil
}

func (b *Broker) GetOpenPositions(ctx context.Context) ([]ports.BrokerPosition, error) {
	positions, err := b.kc.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w: %v", ports.ErrBrokerUnavailable, err)
	}

	out := make([]ports.BrokerPosition, 0, len(positions.Net))
	for _, p := range positions.Net {
		if p.Quantity == 0 {
			continue
		}
		prod := domain.ProductIntraday
		if p.Product == kiteconnect.ProductCNC {
			prod = domain.ProductCarry
		}
		out = append(out, ports.BrokerPosition{
			Symbol:   p.Tradingsymbol,
			Quantity: p.Quantity,
			AvgPrice: p.AveragePrice,
			Product:  prod,
		})
	}
	return out, nil
}
