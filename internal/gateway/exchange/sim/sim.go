// Package sim is an in-process paper gateway used for dry runs and tests.
// It mimics the broker behaviors the engine must survive: stop-distance
// rejections, session closure and position bookkeeping.
package sim

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"empire/internal/gateway/exchange"
	"empire/internal/types"
)

type Gateway struct {
	mu         sync.Mutex
	equity     float64
	prices     map[string]float64
	positions  map[string]exchange.BrokerPosition
	stopFloors map[string]float64
	closed     map[string]bool
	nextID     int

	// Placed counts every PlaceOrder call, for call-count assertions.
	Placed int
}

func New(equity float64) *Gateway {
	return &Gateway{
		equity:     equity,
		prices:     make(map[string]float64),
		positions:  make(map[string]exchange.BrokerPosition),
		stopFloors: make(map[string]float64),
		closed:     make(map[string]bool),
	}
}

// SetPrice seeds the mark price for a symbol.
func (g *Gateway) SetPrice(symbol string, price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prices[symbol] = price
}

// SetStopFloor configures the broker-enforced minimum stop distance.
func (g *Gateway) SetStopFloor(symbol string, floor float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopFloors[symbol] = floor
}

// SetMarketClosed toggles session state for a symbol.
func (g *Gateway) SetMarketClosed(symbol string, closed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed[symbol] = closed
}

// SeedPosition installs a broker-side position directly (reconciliation tests).
func (g *Gateway) SeedPosition(p exchange.BrokerPosition) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.positions[p.Symbol] = p
}

// DropPosition removes a broker-side position (simulates external close).
func (g *Gateway) DropPosition(symbol string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.positions, symbol)
}

func (g *Gateway) Name() string { return "sim" }

func (g *Gateway) IsMarketOpen(ctx context.Context, symbol string, at time.Time) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.closed[symbol], nil
}

func (g *Gateway) PlaceOrder(ctx context.Context, order types.ExecutionOrder) (exchange.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Placed++
	if g.closed[order.Symbol] {
		return exchange.OrderResult{Accepted: false, RejectionReason: "market closed"}, nil
	}
	if floor := g.stopFloors[order.Symbol]; floor > 0 {
		if math.Abs(order.EntryPrice-order.StopLoss) < floor {
			return exchange.OrderResult{Accepted: false, RejectionReason: "invalid stops"}, nil
		}
	}
	if order.Size <= 0 {
		return exchange.OrderResult{Accepted: false, RejectionReason: "invalid size"}, nil
	}
	g.nextID++
	fill := order.EntryPrice
	if px, ok := g.prices[order.Symbol]; ok {
		fill = px
	}
	g.positions[order.Symbol] = exchange.BrokerPosition{
		Symbol:     order.Symbol,
		Direction:  order.Direction,
		Size:       order.Size,
		EntryPrice: fill,
		OpenedAt:   time.Now(),
	}
	return exchange.OrderResult{
		Accepted:  true,
		OrderID:   fmt.Sprintf("sim-%d", g.nextID),
		FillPrice: fill,
	}, nil
}

func (g *Gateway) OpenPositions(ctx context.Context, symbols []string) ([]exchange.BrokerPosition, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []exchange.BrokerPosition
	for _, s := range symbols {
		if p, ok := g.positions[s]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (g *Gateway) ClosePosition(ctx context.Context, symbol string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.positions[symbol]; !ok {
		return fmt.Errorf("no open position for %s", symbol)
	}
	delete(g.positions, symbol)
	return nil
}

func (g *Gateway) Account(ctx context.Context) (types.AccountSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return types.AccountSnapshot{
		Equity:    g.equity,
		Available: g.equity,
		Currency:  "USD",
		UpdatedAt: time.Now(),
	}, nil
}

func (g *Gateway) LastPrice(ctx context.Context, symbol string) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	px, ok := g.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("no price for %s", symbol)
	}
	return px, nil
}

var _ exchange.Exchange = (*Gateway)(nil)
