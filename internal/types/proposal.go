package types

import (
	"time"
)

// Proposal is the single weighted trade candidate produced by the aggregator
// for one symbol in one cycle. It is terminal once it leaves the gating
// pipeline: gates annotate pass/fail but never modify the vote itself.
type Proposal struct {
	ID            string
	Symbol        string
	Direction     Direction
	Score         float64
	OpposingScore float64
	Confluence    int
	Contributing  []AgentSignal
	RewardRisk    float64
	Regime        string
	CreatedAt     time.Time
}

// ExecutionOrder is a proposal that passed every gate. Immutable; handed to
// the execution gateway exactly once.
type ExecutionOrder struct {
	ID         string
	ProposalID string
	Symbol     string
	Direction  Direction
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Size       float64
	CreatedAt  time.Time
}

// StopDistance returns the absolute distance between entry and stop.
func (o ExecutionOrder) StopDistance() float64 {
	d := o.EntryPrice - o.StopLoss
	if d < 0 {
		d = -d
	}
	return d
}
