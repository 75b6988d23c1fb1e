package agent

import (
	"context"
	"fmt"

	"empire/internal/market"
	"empire/internal/types"

	"github.com/markcheno/go-talib"
)

const (
	rsiPeriod   = 14
	emaFast     = 12
	emaSlow     = 26
	macdSignal  = 9
	rsiOversold = 30.0
	rsiOverbuy  = 70.0
)

// Technical votes from RSI, EMA trend and MACD histogram on each timeframe.
// Two of the three indicators must agree before it emits a direction.
type Technical struct{}

func NewTechnical() *Technical { return &Technical{} }

func (t *Technical) Name() string { return "technical" }

func (t *Technical) Evaluate(ctx context.Context, symbol, timeframe string, window *market.Window) (*types.AgentSignal, error) {
	closes := window.Closes(timeframe)
	if len(closes) < emaSlow+macdSignal {
		return nil, fmt.Errorf("need %d candles for %s, have %d", emaSlow+macdSignal, timeframe, len(closes))
	}

	rsi := talib.Rsi(closes, rsiPeriod)
	fast := talib.Ema(closes, emaFast)
	slow := talib.Ema(closes, emaSlow)
	_, _, hist := talib.Macd(closes, emaFast, emaSlow, macdSignal)

	last := len(closes) - 1
	longVotes, shortVotes := 0, 0
	var tags []string

	switch {
	case rsi[last] <= rsiOversold:
		longVotes++
		tags = append(tags, "rsi_oversold")
	case rsi[last] >= rsiOverbuy:
		shortVotes++
		tags = append(tags, "rsi_overbought")
	}
	if fast[last] > slow[last] {
		longVotes++
		tags = append(tags, "ema_up")
	} else if fast[last] < slow[last] {
		shortVotes++
		tags = append(tags, "ema_down")
	}
	if hist[last] > 0 {
		longVotes++
		tags = append(tags, "macd_up")
	} else if hist[last] < 0 {
		shortVotes++
		tags = append(tags, "macd_down")
	}

	dir := types.DirectionNone
	votes := 0
	if longVotes >= 2 && longVotes > shortVotes {
		dir, votes = types.DirectionLong, longVotes
	} else if shortVotes >= 2 && shortVotes > longVotes {
		dir, votes = types.DirectionShort, shortVotes
	}
	if dir == types.DirectionNone {
		return nil, nil
	}
	return &types.AgentSignal{
		Direction: dir,
		Strength:  float64(votes) / 3.0,
		Tags:      tags,
	}, nil
}

// ATR returns the current average true range for a timeframe, used by the
// order builder to derive stop distances. Zero when not enough data.
func ATR(window *market.Window, timeframe string, period int) float64 {
	highs, lows, closes := window.HighLowClose(timeframe)
	if len(closes) <= period {
		return 0
	}
	atr := talib.Atr(highs, lows, closes, period)
	return atr[len(atr)-1]
}
