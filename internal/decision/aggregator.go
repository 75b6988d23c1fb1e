// Package decision turns collected agent signals into at most one weighted
// trade proposal per cycle. Aggregate is pure given its inputs so it can be
// unit-tested with literal signal maps and fixed weights.
package decision

import (
	"sort"
	"time"

	"empire/internal/types"

	"github.com/google/uuid"
)

// WeightSource supplies the multipliers for the weighted vote. The adaptive
// implementation lives in the performance package; tests use StaticWeights.
type WeightSource interface {
	AgentWeight(symbol, agent, timeframe, regime string) float64
	TimeframeWeight(timeframe string) float64
}

// StaticWeights is a fixed-prior WeightSource. Missing entries default to 1.
type StaticWeights struct {
	Agents     map[string]float64
	Timeframes map[string]float64
}

func (s StaticWeights) AgentWeight(_, agent, _, _ string) float64 {
	if w, ok := s.Agents[agent]; ok {
		return w
	}
	return 1.0
}

func (s StaticWeights) TimeframeWeight(timeframe string) float64 {
	if w, ok := s.Timeframes[timeframe]; ok {
		return w
	}
	return 1.0
}

// Params are the aggregation thresholds.
type Params struct {
	// MinConfluence is the minimum count of distinct agents agreeing with
	// the candidate direction.
	MinConfluence int
	// AmbiguityMargin rejects near-ties: if the opposing score is within
	// this fraction of the candidate score, no proposal is emitted.
	AmbiguityMargin float64
}

// Aggregate computes the weighted long/short vote and returns a proposal, or
// nil when the input is ambiguous, too thin, or exactly tied. It never
// defaults to a direction.
func Aggregate(symbol string, signals types.SignalSet, weights WeightSource, regime string, params Params, now time.Time) *types.Proposal {
	if len(signals) == 0 {
		return nil
	}

	var longScore, shortScore float64
	longAgents := make(map[string]bool)
	shortAgents := make(map[string]bool)
	var contributing []types.AgentSignal

	for agentName, tfs := range signals {
		for tf, sig := range tfs {
			if sig.Direction != types.DirectionLong && sig.Direction != types.DirectionShort {
				continue
			}
			w := sig.Strength * weights.AgentWeight(symbol, agentName, tf, regime) * weights.TimeframeWeight(tf)
			if w <= 0 {
				continue
			}
			if sig.Direction == types.DirectionLong {
				longScore += w
				longAgents[agentName] = true
			} else {
				shortScore += w
				shortAgents[agentName] = true
			}
			contributing = append(contributing, sig)
		}
	}

	var dir types.Direction
	var score, opposing float64
	var confluence int
	switch {
	case longScore > shortScore:
		dir, score, opposing, confluence = types.DirectionLong, longScore, shortScore, len(longAgents)
	case shortScore > longScore:
		dir, score, opposing, confluence = types.DirectionShort, shortScore, longScore, len(shortAgents)
	default:
		// Exact tie: no proposal.
		return nil
	}

	if confluence < params.MinConfluence {
		return nil
	}
	if score-opposing < params.AmbiguityMargin*score {
		return nil
	}

	// Keep only signals agreeing with the candidate, in a stable order.
	agreed := contributing[:0]
	for _, sig := range contributing {
		if sig.Direction == dir {
			agreed = append(agreed, sig)
		}
	}
	sort.Slice(agreed, func(i, j int) bool {
		if agreed[i].Agent != agreed[j].Agent {
			return agreed[i].Agent < agreed[j].Agent
		}
		return agreed[i].Timeframe < agreed[j].Timeframe
	})

	return &types.Proposal{
		ID:            uuid.NewString(),
		Symbol:        symbol,
		Direction:     dir,
		Score:         score,
		OpposingScore: opposing,
		Confluence:    confluence,
		Contributing:  agreed,
		Regime:        regime,
		CreatedAt:     now,
	}
}

// EstimateRewardRisk computes the reward/risk ratio for an order candidate.
// Zero when the stop side is degenerate.
func EstimateRewardRisk(dir types.Direction, entry, stop, target float64) float64 {
	switch dir {
	case types.DirectionLong:
		if entry-stop <= 0 {
			return 0
		}
		return (target - entry) / (entry - stop)
	case types.DirectionShort:
		if stop-entry <= 0 {
			return 0
		}
		return (entry - target) / (stop - entry)
	default:
		return 0
	}
}
