package gate

import (
	"empire/internal/decision"
	"empire/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BuildOrder converts an admitted proposal into an immutable execution
// order. The stop distance derives from volatility but is clamped to the
// broker-enforced minimum: a stop tighter than that floor is a guaranteed
// hard rejection at the gateway.
func BuildOrder(in *Input) types.ExecutionOrder {
	entry := decimal.NewFromFloat(in.Price)
	dist := stopDistance(in)
	distDec := decimal.NewFromFloat(dist)

	rr := in.Tier.RewardRiskRatio
	if rr <= 0 {
		rr = 1.5
	}
	targetDist := distDec.Mul(decimal.NewFromFloat(rr))

	var stop, target decimal.Decimal
	if in.Proposal.Direction == types.DirectionLong {
		stop = entry.Sub(distDec)
		target = entry.Add(targetDist)
	} else {
		stop = entry.Add(distDec)
		target = entry.Sub(targetDist)
	}

	size := positionSize(in.Equity, in.Tier.RiskPerTradePct, dist)
	stopF, _ := stop.Float64()
	targetF, _ := target.Float64()
	in.Proposal.RewardRisk = decision.EstimateRewardRisk(in.Proposal.Direction, in.Price, stopF, targetF)

	return types.ExecutionOrder{
		ID:         uuid.NewString(),
		ProposalID: in.Proposal.ID,
		Symbol:     in.Symbol.Name,
		Direction:  in.Proposal.Direction,
		EntryPrice: in.Price,
		StopLoss:   stopF,
		TakeProfit: targetF,
		Size:       size,
		CreatedAt:  in.Now,
	}
}

// stopDistance returns max(ATR * multiplier, broker minimum).
func stopDistance(in *Input) float64 {
	mult := in.Limits.StopATRMult
	if mult <= 0 {
		mult = 2.0
	}
	dist := decimal.NewFromFloat(in.ATR).Mul(decimal.NewFromFloat(mult))
	floor := decimal.NewFromFloat(in.Symbol.MinStopDistance)
	if dist.LessThan(floor) {
		dist = floor
	}
	out, _ := dist.Float64()
	return out
}

// positionSize = equity * riskPct / stopDistance; zero on degenerate input
// so the gateway rejects rather than trading an unbounded size.
func positionSize(equity, riskPct, dist float64) float64 {
	if equity <= 0 || riskPct <= 0 || dist <= 0 {
		return 0
	}
	size := decimal.NewFromFloat(equity).
		Mul(decimal.NewFromFloat(riskPct)).
		Div(decimal.NewFromFloat(dist))
	out, _ := size.Round(6).Float64()
	return out
}
