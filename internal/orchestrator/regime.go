package orchestrator

import (
	"sort"

	"empire/internal/market"
)

// Regime labels partition performance buckets by volatility state.
const (
	RegimeDefault  = "default"
	RegimeCalm     = "calm"
	RegimeNormal   = "normal"
	RegimeVolatile = "volatile"
)

const regimeLookback = 100

// ClassifyRegime labels the current volatility state by ranking the latest
// true range against the recent distribution on the base timeframe. Too
// little history yields the default label so bucket keys stay stable.
func ClassifyRegime(window *market.Window, timeframe string) string {
	series := window.Series(timeframe)
	if len(series) < 20 {
		return RegimeDefault
	}
	if len(series) > regimeLookback {
		series = series[len(series)-regimeLookback:]
	}

	ranges := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		ranges = append(ranges, trueRange(series[i], series[i-1]))
	}
	current := ranges[len(ranges)-1]

	sorted := make([]float64, len(ranges))
	copy(sorted, ranges)
	sort.Float64s(sorted)

	// Percentile rank of the latest bar's true range.
	idx := sort.SearchFloat64s(sorted, current)
	pct := float64(idx) / float64(len(sorted))

	switch {
	case pct < 0.30:
		return RegimeCalm
	case pct > 0.80:
		return RegimeVolatile
	default:
		return RegimeNormal
	}
}

func trueRange(cur, prev market.Candle) float64 {
	tr := cur.High - cur.Low
	if d := abs(cur.High - prev.Close); d > tr {
		tr = d
	}
	if d := abs(prev.Close - cur.Low); d > tr {
		tr = d
	}
	return tr
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
