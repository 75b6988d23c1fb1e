package manager

import (
	"context"
	"time"

	"empire/internal/gateway/exchange"
	"empire/internal/gateway/exchange/sim"
	"empire/internal/types"
)

// paperGateway executes against the sim while reading market data from the
// live client, so dry-run behaves like production minus real orders.
type paperGateway struct {
	*sim.Gateway
	data exchange.Exchange
}

func newPaperGateway(paper *sim.Gateway, data exchange.Exchange) *paperGateway {
	return &paperGateway{Gateway: paper, data: data}
}

var _ exchange.Exchange = (*paperGateway)(nil)

func (p *paperGateway) Name() string { return "paper" }

func (p *paperGateway) LastPrice(ctx context.Context, symbol string) (float64, error) {
	price, err := p.data.LastPrice(ctx, symbol)
	if err != nil {
		return 0, err
	}
	// Keep the sim's book in step so fills and exits use live prices.
	p.Gateway.SetPrice(symbol, price)
	return price, nil
}

func (p *paperGateway) IsMarketOpen(ctx context.Context, symbol string, at time.Time) (bool, error) {
	return p.data.IsMarketOpen(ctx, symbol, at)
}

func (p *paperGateway) PlaceOrder(ctx context.Context, order types.ExecutionOrder) (exchange.OrderResult, error) {
	return p.Gateway.PlaceOrder(ctx, order)
}
