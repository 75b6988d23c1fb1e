// Package position owns the per-symbol position lifecycle:
// flat -> pending -> open -> closing -> flat. The gateway is authoritative
// for fills and closes; the manager reconciles its local view every cycle.
package position

import (
	"context"
	"errors"
	"time"

	"empire/internal/gateway/exchange"
	"empire/internal/logger"
	"empire/internal/types"
)

// Manager drives one symbol's position state. All mutation happens on that
// symbol's cycle goroutine; cross-symbol readers go through the Registry.
type Manager struct {
	symbol   types.Symbol
	gw       exchange.Exchange
	registry *Registry
	nowFn    func() time.Time

	pos types.Position
}

func NewManager(symbol types.Symbol, gw exchange.Exchange, registry *Registry) *Manager {
	m := &Manager{
		symbol:   symbol,
		gw:       gw,
		registry: registry,
		nowFn:    time.Now,
	}
	m.setState(types.Position{Symbol: symbol.Name, State: types.PositionFlat})
	return m
}

// Current returns the local position view.
func (m *Manager) Current() types.Position { return m.pos }

func (m *Manager) setState(pos types.Position) {
	pos.Symbol = m.symbol.Name
	pos.UpdatedAt = m.nowFn()
	m.pos = pos
	if m.registry != nil {
		m.registry.put(m.symbol.Name, pos)
	}
}

// SubmitResult is the lifecycle outcome of handing an order to the gateway.
type SubmitResult struct {
	Filled          bool
	RejectionReason string
}

// Submit sends an admitted order. flat -> pending -> open on fill,
// pending -> flat on broker rejection. A transport failure leaves the
// pending state for the next cycle's reconciliation to resolve — the order
// may or may not have reached the broker.
func (m *Manager) Submit(ctx context.Context, order types.ExecutionOrder) (SubmitResult, error) {
	if m.pos.Active() {
		return SubmitResult{RejectionReason: "position not flat"}, nil
	}
	m.setState(types.Position{
		State:      types.PositionPending,
		Direction:  order.Direction,
		EntryPrice: order.EntryPrice,
		StopLoss:   order.StopLoss,
		TakeProfit: order.TakeProfit,
		Size:       order.Size,
		OrderID:    order.ID,
	})
	res, err := m.gw.PlaceOrder(ctx, order)
	if err != nil {
		if errors.Is(err, exchange.ErrUnavailable) {
			logger.Warnf("position %s: gateway unavailable on submit, will reconcile next cycle", m.symbol.Name)
			return SubmitResult{}, err
		}
		m.setState(types.Position{State: types.PositionFlat})
		return SubmitResult{}, err
	}
	if !res.Accepted {
		logger.Infof("position %s: order rejected by gateway: %s", m.symbol.Name, res.RejectionReason)
		m.setState(types.Position{State: types.PositionFlat})
		return SubmitResult{RejectionReason: res.RejectionReason}, nil
	}
	filled := m.pos
	filled.State = types.PositionOpen
	if res.FillPrice > 0 {
		filled.EntryPrice = res.FillPrice
	}
	filled.OrderID = res.OrderID
	filled.OpenedAt = m.nowFn()
	m.setState(filled)
	logger.Infof("position %s: open %s size=%.6f entry=%.5f sl=%.5f tp=%.5f",
		m.symbol.Name, filled.Direction, filled.Size, filled.EntryPrice, filled.StopLoss, filled.TakeProfit)
	return SubmitResult{Filled: true}, nil
}

// Reconcile aligns the local view with the gateway's open-position list.
// Divergence resolves in the gateway's favor and is logged as a warning.
func (m *Manager) Reconcile(ctx context.Context) error {
	broker, err := m.gw.OpenPositions(ctx, []string{m.symbol.Name})
	if err != nil {
		// State unchanged; retried next interval.
		return err
	}
	var remote *exchange.BrokerPosition
	for i := range broker {
		if broker[i].Symbol == m.symbol.Name {
			remote = &broker[i]
			break
		}
	}
	local := m.pos
	switch {
	case remote == nil && (local.State == types.PositionOpen || local.State == types.PositionClosing):
		logger.Warnf("position %s: reconciliation divergence, gateway shows closed while local is %s", m.symbol.Name, local.State)
		m.setState(types.Position{State: types.PositionFlat})
	case remote == nil && local.State == types.PositionPending:
		// Order never landed (or was rejected out of band).
		logger.Infof("position %s: pending order not found at gateway, back to flat", m.symbol.Name)
		m.setState(types.Position{State: types.PositionFlat})
	case remote != nil && local.State == types.PositionPending:
		filled := local
		filled.State = types.PositionOpen
		filled.EntryPrice = remote.EntryPrice
		filled.Size = remote.Size
		filled.OpenedAt = m.nowFn()
		m.setState(filled)
		logger.Infof("position %s: fill confirmed via reconciliation", m.symbol.Name)
	case remote != nil && local.State == types.PositionFlat:
		logger.Warnf("position %s: reconciliation divergence, gateway shows %s position unknown locally", m.symbol.Name, remote.Direction)
		m.setState(types.Position{
			State:      types.PositionOpen,
			Direction:  remote.Direction,
			EntryPrice: remote.EntryPrice,
			Size:       remote.Size,
			OpenedAt:   remote.OpenedAt,
		})
	}
	return nil
}

// CheckExit closes an open position when price touches the stop or target.
// closing -> flat happens on gateway confirmation; a transport failure keeps
// the closing state and retries next cycle.
func (m *Manager) CheckExit(ctx context.Context, price float64) error {
	switch m.pos.State {
	case types.PositionOpen:
		if !exitTriggered(m.pos, price) {
			return nil
		}
		closing := m.pos
		closing.State = types.PositionClosing
		m.setState(closing)
		fallthrough
	case types.PositionClosing:
		if err := m.gw.ClosePosition(ctx, m.symbol.Name); err != nil {
			logger.Warnf("position %s: close failed, retrying next cycle: %v", m.symbol.Name, err)
			return err
		}
		logger.Infof("position %s: closed at %.5f", m.symbol.Name, price)
		m.setState(types.Position{State: types.PositionFlat})
	}
	return nil
}

func exitTriggered(pos types.Position, price float64) bool {
	if price <= 0 {
		return false
	}
	switch pos.Direction {
	case types.DirectionLong:
		return (pos.StopLoss > 0 && price <= pos.StopLoss) || (pos.TakeProfit > 0 && price >= pos.TakeProfit)
	case types.DirectionShort:
		return (pos.StopLoss > 0 && price >= pos.StopLoss) || (pos.TakeProfit > 0 && price <= pos.TakeProfit)
	}
	return false
}
