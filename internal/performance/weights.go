package performance

// AdaptiveWeights implements decision.WeightSource over a tracker snapshot,
// falling back to the static priors while a bucket's sample count is below
// MinSamples. That keeps a sparsely-tested agent/timeframe pair from
// dominating the vote on noise.
type AdaptiveWeights struct {
	Snapshot        map[BucketKey]Bucket
	AgentPriors     map[string]float64
	TimeframePriors map[string]float64
	MinSamples      int
}

func (w AdaptiveWeights) AgentWeight(symbol, agent, timeframe, regime string) float64 {
	if b, ok := w.Snapshot[BucketKey{Symbol: symbol, Agent: agent, Timeframe: timeframe, Regime: regime}]; ok && b.Count >= w.MinSamples {
		return b.Weight
	}
	if prior, ok := w.AgentPriors[agent]; ok {
		return prior
	}
	return 1.0
}

func (w AdaptiveWeights) TimeframeWeight(timeframe string) float64 {
	if prior, ok := w.TimeframePriors[timeframe]; ok {
		return prior
	}
	return 1.0
}
