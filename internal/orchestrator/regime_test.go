package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"empire/internal/market"
)

func rangeCandle(rng float64) market.Candle {
	return market.Candle{Open: 100, High: 100 + rng/2, Low: 100 - rng/2, Close: 100}
}

func windowOf(candles []market.Candle) *market.Window {
	return &market.Window{Candles: map[string][]market.Candle{"5m": candles}}
}

func TestClassifyRegimeThinHistory(t *testing.T) {
	candles := make([]market.Candle, 10)
	for i := range candles {
		candles[i] = rangeCandle(1.0)
	}
	assert.Equal(t, RegimeDefault, ClassifyRegime(windowOf(candles), "5m"))
	assert.Equal(t, RegimeDefault, ClassifyRegime(&market.Window{}, "5m"))
}

func TestClassifyRegimeCalm(t *testing.T) {
	candles := make([]market.Candle, 30)
	for i := range candles {
		candles[i] = rangeCandle(1.0)
	}
	candles[29] = rangeCandle(0.1)
	assert.Equal(t, RegimeCalm, ClassifyRegime(windowOf(candles), "5m"))
}

func TestClassifyRegimeVolatile(t *testing.T) {
	candles := make([]market.Candle, 30)
	for i := range candles {
		candles[i] = rangeCandle(1.0)
	}
	candles[29] = rangeCandle(5.0)
	assert.Equal(t, RegimeVolatile, ClassifyRegime(windowOf(candles), "5m"))
}

func TestClassifyRegimeNormal(t *testing.T) {
	candles := make([]market.Candle, 30)
	candles[0] = rangeCandle(1.0)
	for i := 1; i <= 14; i++ {
		candles[i] = rangeCandle(0.2)
	}
	for i := 15; i <= 28; i++ {
		candles[i] = rangeCandle(1.0)
	}
	candles[29] = rangeCandle(0.6)
	assert.Equal(t, RegimeNormal, ClassifyRegime(windowOf(candles), "5m"))
}

func TestClassifyRegimeCountsGapsAsRange(t *testing.T) {
	candles := make([]market.Candle, 30)
	for i := range candles {
		candles[i] = rangeCandle(1.0)
	}
	// Last bar gaps well above the prior close; true range should pick up
	// the gap even though the bar's own high-low span is small.
	candles[29] = market.Candle{Open: 109, High: 110, Low: 109, Close: 109.5}
	assert.Equal(t, RegimeVolatile, ClassifyRegime(windowOf(candles), "5m"))
}

func TestClassifyRegimeUsesTrailingLookback(t *testing.T) {
	// Old violent bars beyond the lookback must not influence the ranking.
	candles := make([]market.Candle, regimeLookback+50)
	for i := range candles {
		candles[i] = rangeCandle(20.0)
	}
	for i := 50; i < len(candles); i++ {
		candles[i] = rangeCandle(1.0)
	}
	candles[len(candles)-1] = rangeCandle(0.1)
	assert.Equal(t, RegimeCalm, ClassifyRegime(windowOf(candles), "5m"))
}
