package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"empire/internal/pkg/circuit"
	"empire/internal/types"
)

// Guarded wraps an Exchange with a circuit breaker. While the circuit is
// open every call fails fast with ErrUnavailable, so cycles degrade to
// local-only work instead of blocking on a dead broker.
type Guarded struct {
	next    Exchange
	breaker *circuit.Breaker
}

func NewGuarded(next Exchange, threshold int, cooldown time.Duration) *Guarded {
	return &Guarded{
		next:    next,
		breaker: circuit.NewBreaker(next.Name(), threshold, cooldown),
	}
}

var _ Exchange = (*Guarded)(nil)

func (g *Guarded) Name() string { return g.next.Name() }

func (g *Guarded) observe(err error) {
	if errors.Is(err, ErrUnavailable) {
		g.breaker.RecordFailure()
		return
	}
	g.breaker.RecordSuccess()
}

func (g *Guarded) open() error {
	return fmt.Errorf("%w: circuit open", ErrUnavailable)
}

func (g *Guarded) IsMarketOpen(ctx context.Context, symbol string, at time.Time) (bool, error) {
	if !g.breaker.Allow() {
		return false, g.open()
	}
	ok, err := g.next.IsMarketOpen(ctx, symbol, at)
	g.observe(err)
	return ok, err
}

func (g *Guarded) PlaceOrder(ctx context.Context, order types.ExecutionOrder) (OrderResult, error) {
	if !g.breaker.Allow() {
		return OrderResult{}, g.open()
	}
	res, err := g.next.PlaceOrder(ctx, order)
	g.observe(err)
	return res, err
}

func (g *Guarded) OpenPositions(ctx context.Context, symbols []string) ([]BrokerPosition, error) {
	if !g.breaker.Allow() {
		return nil, g.open()
	}
	out, err := g.next.OpenPositions(ctx, symbols)
	g.observe(err)
	return out, err
}

func (g *Guarded) ClosePosition(ctx context.Context, symbol string) error {
	if !g.breaker.Allow() {
		return g.open()
	}
	err := g.next.ClosePosition(ctx, symbol)
	g.observe(err)
	return err
}

func (g *Guarded) Account(ctx context.Context) (types.AccountSnapshot, error) {
	if !g.breaker.Allow() {
		return types.AccountSnapshot{}, g.open()
	}
	snap, err := g.next.Account(ctx)
	g.observe(err)
	return snap, err
}

func (g *Guarded) LastPrice(ctx context.Context, symbol string) (float64, error) {
	if !g.breaker.Allow() {
		return 0, g.open()
	}
	price, err := g.next.LastPrice(ctx, symbol)
	g.observe(err)
	return price, err
}
