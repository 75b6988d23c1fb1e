package position

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empire/internal/gateway/exchange"
	"empire/internal/gateway/exchange/sim"
	"empire/internal/types"
)

var testSymbol = types.Symbol{
	Name:            "BTCUSDT",
	Class:           types.AssetCrypto,
	MinStopDistance: 50,
}

func testOrder() types.ExecutionOrder {
	return types.ExecutionOrder{
		ID:         "o1",
		Symbol:     "BTCUSDT",
		Direction:  types.DirectionLong,
		EntryPrice: 50000,
		StopLoss:   49800,
		TakeProfit: 50400,
		Size:       0.5,
		CreatedAt:  time.Now(),
	}
}

func TestSubmitFillOpensPosition(t *testing.T) {
	gw := sim.New(10000)
	gw.SetPrice("BTCUSDT", 50010)
	m := NewManager(testSymbol, gw, NewRegistry([]types.Symbol{testSymbol}))

	res, err := m.Submit(context.Background(), testOrder())
	require.NoError(t, err)
	assert.True(t, res.Filled)

	pos := m.Current()
	assert.Equal(t, types.PositionOpen, pos.State)
	assert.Equal(t, types.DirectionLong, pos.Direction)
	assert.InDelta(t, 50010, pos.EntryPrice, 1e-9) // sim fills at mark price
	assert.Equal(t, 1, gw.Placed)
}

func TestSubmitBrokerRejectionReturnsToFlat(t *testing.T) {
	gw := sim.New(10000)
	gw.SetStopFloor("BTCUSDT", 500)
	m := NewManager(testSymbol, gw, nil)

	res, err := m.Submit(context.Background(), testOrder())
	require.NoError(t, err)
	assert.False(t, res.Filled)
	assert.Equal(t, "invalid stops", res.RejectionReason)
	assert.Equal(t, types.PositionFlat, m.Current().State)
}

func TestSubmitWhileActiveRefused(t *testing.T) {
	gw := sim.New(10000)
	m := NewManager(testSymbol, gw, nil)

	_, err := m.Submit(context.Background(), testOrder())
	require.NoError(t, err)
	require.Equal(t, types.PositionOpen, m.Current().State)

	res, err := m.Submit(context.Background(), testOrder())
	require.NoError(t, err)
	assert.False(t, res.Filled)
	assert.Equal(t, "position not flat", res.RejectionReason)
	assert.Equal(t, 1, gw.Placed)
}

// unavailableGW fails every call at the transport level.
type unavailableGW struct {
	sim.Gateway
}

func (u *unavailableGW) PlaceOrder(context.Context, types.ExecutionOrder) (exchange.OrderResult, error) {
	return exchange.OrderResult{}, exchange.ErrUnavailable
}

func (u *unavailableGW) OpenPositions(context.Context, []string) ([]exchange.BrokerPosition, error) {
	return nil, exchange.ErrUnavailable
}

func TestSubmitGatewayUnavailableKeepsPending(t *testing.T) {
	m := NewManager(testSymbol, &unavailableGW{}, nil)

	_, err := m.Submit(context.Background(), testOrder())
	require.ErrorIs(t, err, exchange.ErrUnavailable)
	// Order fate unknown; reconciliation resolves it, not a silent reset.
	assert.Equal(t, types.PositionPending, m.Current().State)

	err = m.Reconcile(context.Background())
	require.ErrorIs(t, err, exchange.ErrUnavailable)
	assert.Equal(t, types.PositionPending, m.Current().State)
}

func TestReconcilePendingConfirmsFill(t *testing.T) {
	gw := sim.New(10000)
	m := NewManager(testSymbol, gw, nil)

	// Force pending by hand: order reached the broker but the ack was lost.
	unavailable := &unavailableGW{}
	lost := NewManager(testSymbol, unavailable, nil)
	_, _ = lost.Submit(context.Background(), testOrder())
	require.Equal(t, types.PositionPending, lost.Current().State)

	gw.SeedPosition(exchange.BrokerPosition{
		Symbol:     "BTCUSDT",
		Direction:  types.DirectionLong,
		Size:       0.5,
		EntryPrice: 50005,
	})
	lost.gw = gw
	require.NoError(t, lost.Reconcile(context.Background()))
	pos := lost.Current()
	assert.Equal(t, types.PositionOpen, pos.State)
	assert.InDelta(t, 50005, pos.EntryPrice, 1e-9)

	// A fresh manager with no broker position resolves pending back to flat.
	_, _ = m.Submit(context.Background(), testOrder())
	gw.DropPosition("BTCUSDT")
	forcePending := m.Current()
	forcePending.State = types.PositionPending
	m.setState(forcePending)
	require.NoError(t, m.Reconcile(context.Background()))
	assert.Equal(t, types.PositionFlat, m.Current().State)
}

func TestReconcileGatewayWinsOnDivergence(t *testing.T) {
	gw := sim.New(10000)
	m := NewManager(testSymbol, gw, nil)

	// Local open, gateway shows nothing: trust the gateway.
	_, err := m.Submit(context.Background(), testOrder())
	require.NoError(t, err)
	gw.DropPosition("BTCUSDT")
	require.NoError(t, m.Reconcile(context.Background()))
	assert.Equal(t, types.PositionFlat, m.Current().State)

	// Local flat, gateway shows a position: adopt it.
	gw.SeedPosition(exchange.BrokerPosition{
		Symbol:     "BTCUSDT",
		Direction:  types.DirectionShort,
		Size:       0.25,
		EntryPrice: 49900,
	})
	require.NoError(t, m.Reconcile(context.Background()))
	pos := m.Current()
	assert.Equal(t, types.PositionOpen, pos.State)
	assert.Equal(t, types.DirectionShort, pos.Direction)
	assert.InDelta(t, 0.25, pos.Size, 1e-9)
}

func TestCheckExitStopAndTarget(t *testing.T) {
	gw := sim.New(10000)
	m := NewManager(testSymbol, gw, nil)
	_, err := m.Submit(context.Background(), testOrder())
	require.NoError(t, err)

	// Price between stop and target: nothing happens.
	require.NoError(t, m.CheckExit(context.Background(), 50100))
	assert.Equal(t, types.PositionOpen, m.Current().State)

	// Stop touched: closes.
	require.NoError(t, m.CheckExit(context.Background(), 49790))
	assert.Equal(t, types.PositionFlat, m.Current().State)

	// Short side target.
	gw2 := sim.New(10000)
	m2 := NewManager(testSymbol, gw2, nil)
	order := testOrder()
	order.Direction = types.DirectionShort
	order.StopLoss = 50200
	order.TakeProfit = 49600
	_, err = m2.Submit(context.Background(), order)
	require.NoError(t, err)
	require.NoError(t, m2.CheckExit(context.Background(), 49590))
	assert.Equal(t, types.PositionFlat, m2.Current().State)
}

func TestCheckExitCloseFailureStaysClosing(t *testing.T) {
	gw := sim.New(10000)
	m := NewManager(testSymbol, gw, nil)
	_, err := m.Submit(context.Background(), testOrder())
	require.NoError(t, err)

	// Break the close path: the broker no longer knows the position.
	gw.DropPosition("BTCUSDT")
	err = m.CheckExit(context.Background(), 49790)
	require.Error(t, err)
	assert.Equal(t, types.PositionClosing, m.Current().State)
}

func TestRegistrySingleActivePerSymbol(t *testing.T) {
	reg := NewRegistry([]types.Symbol{testSymbol})
	gw := sim.New(10000)
	m := NewManager(testSymbol, gw, reg)

	_, err := m.Submit(context.Background(), testOrder())
	require.NoError(t, err)

	active := reg.ActivePositions()
	require.Len(t, active, 1)
	assert.Equal(t, types.PositionOpen, active["BTCUSDT"].State)
	assert.Equal(t, 1, reg.ActiveCountByClass(types.AssetCrypto))
	assert.Equal(t, 0, reg.ActiveCountByClass(types.AssetCurrency))
}
