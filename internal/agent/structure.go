package agent

import (
	"context"

	"empire/internal/market"
	"empire/internal/types"
)

const structureLookback = 20

// Structure detects breaks of recent swing highs/lows. A close beyond the
// prior extreme of the lookback window reads as a break of structure in that
// direction, with strength scaled by how far price pushed through.
type Structure struct{}

func NewStructure() *Structure { return &Structure{} }

func (s *Structure) Name() string { return "structure" }

func (s *Structure) Evaluate(ctx context.Context, symbol, timeframe string, window *market.Window) (*types.AgentSignal, error) {
	series := window.Series(timeframe)
	if len(series) < structureLookback+1 {
		return nil, nil
	}
	last := series[len(series)-1]
	prior := series[len(series)-1-structureLookback : len(series)-1]

	swingHigh := prior[0].High
	swingLow := prior[0].Low
	for _, c := range prior[1:] {
		if c.High > swingHigh {
			swingHigh = c.High
		}
		if c.Low < swingLow {
			swingLow = c.Low
		}
	}
	span := swingHigh - swingLow
	if span <= 0 {
		return nil, nil
	}

	if last.Close > swingHigh {
		return &types.AgentSignal{
			Direction: types.DirectionLong,
			Strength:  clamp01(0.5 + (last.Close-swingHigh)/span),
			Tags:      []string{"bos_up"},
		}, nil
	}
	if last.Close < swingLow {
		return &types.AgentSignal{
			Direction: types.DirectionShort,
			Strength:  clamp01(0.5 + (swingLow-last.Close)/span),
			Tags:      []string{"bos_down"},
		}, nil
	}
	return nil, nil
}
