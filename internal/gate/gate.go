// Package gate implements the ordered admission chain a proposal must pass
// to become an execution order. Gates run strictly in registration order and
// short-circuit on the first rejection; a rejection is a valid cycle outcome
// carrying a machine-readable reason code, never an error.
package gate

import (
	"context"
	"time"

	"empire/internal/logger"
	"empire/internal/types"
)

// Reason codes surfaced in logs, telemetry and the decision journal.
type Reason string

const (
	ReasonQualityLow          Reason = "quality_low"
	ReasonSessionClosed       Reason = "session_closed"
	ReasonCorrelationConflict Reason = "correlation_conflict"
	ReasonNewsFreeze          Reason = "news_freeze"
	ReasonCooldownActive      Reason = "cooldown_active"
	ReasonRiskLimit           Reason = "risk_limit"
)

// Rejection annotates why a gate refused the proposal.
type Rejection struct {
	Gate   string
	Reason Reason
	Detail string
}

// Limits are the admission thresholds, read from the current config snapshot
// at cycle start so a hot reload never applies mid-pipeline.
type Limits struct {
	MinScore      float64
	MinConfluence int
	Cooldown      time.Duration
	StopATRMult   float64
}

// Input is everything one admission run needs. Built once per cycle by the
// orchestrator; gates read it, never mutate it.
type Input struct {
	Proposal *types.Proposal
	Symbol   types.Symbol
	Tier     types.RiskTier
	Limits   Limits
	Now      time.Time

	// Market context for the order builder.
	Price  float64
	ATR    float64
	Equity float64
}

// Gate is one admission check.
type Gate interface {
	Name() string
	Check(ctx context.Context, in *Input) *Rejection
}

// Pipeline runs gates in fixed order and, on full pass, builds the order.
type Pipeline struct {
	gates []Gate
}

func NewPipeline(gates ...Gate) *Pipeline {
	return &Pipeline{gates: gates}
}

// Admit returns either an execution order or the first rejection. Running it
// twice against unchanged external state yields the same outcome.
func (p *Pipeline) Admit(ctx context.Context, in *Input) (*types.ExecutionOrder, *Rejection) {
	for _, g := range p.gates {
		if rej := g.Check(ctx, in); rej != nil {
			rej.Gate = g.Name()
			logger.Debugf("gate %s rejected %s: %s (%s)", g.Name(), in.Proposal.Symbol, rej.Reason, rej.Detail)
			return nil, rej
		}
	}
	order := BuildOrder(in)
	return &order, nil
}
