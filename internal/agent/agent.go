// Package agent holds the analysis agents and the collector that runs them.
// Agents are pure over a market window snapshot: no I/O inside Evaluate
// beyond what their injected services cache, no mutation of shared state.
package agent

import (
	"context"

	"empire/internal/market"
	"empire/internal/types"
)

// Agent produces at most one signal per (symbol, timeframe) evaluation.
// Returning (nil, nil) means no opinion for this slot.
type Agent interface {
	Name() string
	Evaluate(ctx context.Context, symbol, timeframe string, window *market.Window) (*types.AgentSignal, error)
}

// GlobalAgent marks agents whose signal is timeframe-independent (sentiment,
// macro). The collector calls them once per cycle under the pseudo timeframe.
type GlobalAgent interface {
	Agent
	Global() bool
}

// GlobalTimeframe is the slot used for timeframe-independent signals.
const GlobalTimeframe = "global"
