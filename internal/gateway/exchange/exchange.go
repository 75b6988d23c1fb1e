// Package exchange defines the broker gateway abstraction. The gateway is
// the source of truth for fills, open positions and closes; the engine only
// keeps a local view and reconciles against it.
package exchange

import (
	"context"
	"errors"
	"time"

	"empire/internal/types"
)

// ErrUnavailable marks transport-level gateway failures (timeouts, broken
// connection, open circuit). The cycle aborts early and retries next tick.
var ErrUnavailable = errors.New("gateway unavailable")

// OrderResult is the broker's verdict on a placed order. A rejection is a
// valid outcome, not an error: Accepted=false with a RejectionReason.
type OrderResult struct {
	Accepted        bool
	OrderID         string
	FillPrice       float64
	RejectionReason string
}

// BrokerPosition is a position as the gateway reports it.
type BrokerPosition struct {
	Symbol     string
	Direction  types.Direction
	Size       float64
	EntryPrice float64
	OpenedAt   time.Time
}

// Exchange is the execution gateway contract. Implementations must tolerate
// concurrent calls from all symbol cycles.
type Exchange interface {
	Name() string

	IsMarketOpen(ctx context.Context, symbol string, at time.Time) (bool, error)

	PlaceOrder(ctx context.Context, order types.ExecutionOrder) (OrderResult, error)

	OpenPositions(ctx context.Context, symbols []string) ([]BrokerPosition, error)

	ClosePosition(ctx context.Context, symbol string) error

	Account(ctx context.Context) (types.AccountSnapshot, error)

	LastPrice(ctx context.Context, symbol string) (float64, error)
}
