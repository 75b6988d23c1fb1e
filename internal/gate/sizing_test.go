package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empire/internal/types"
)

func TestBuildOrderStopClampedToBrokerMinimum(t *testing.T) {
	in := testInput()
	// ATR-derived distance (0.0002) is tighter than the broker floor.
	in.ATR = 0.0001
	in.Symbol.MinStopDistance = 0.0008

	order := BuildOrder(in)
	require.GreaterOrEqual(t, order.StopDistance(), in.Symbol.MinStopDistance,
		"a stop tighter than the broker floor is a guaranteed gateway rejection")
	assert.InDelta(t, 0.0008, order.StopDistance(), 1e-9)
}

func TestBuildOrderUsesATRWhenWider(t *testing.T) {
	in := testInput()
	in.ATR = 0.0010

	order := BuildOrder(in)
	assert.InDelta(t, 0.0020, order.StopDistance(), 1e-9)
	assert.InDelta(t, in.Price-0.0020, order.StopLoss, 1e-9)
	assert.InDelta(t, in.Price+0.0040, order.TakeProfit, 1e-9)
}

func TestBuildOrderShortDirection(t *testing.T) {
	in := testInput()
	in.Proposal.Direction = types.DirectionShort

	order := BuildOrder(in)
	assert.Equal(t, types.DirectionShort, order.Direction)
	assert.Greater(t, order.StopLoss, in.Price)
	assert.Less(t, order.TakeProfit, in.Price)
}

func TestBuildOrderSizeFromRiskTier(t *testing.T) {
	in := testInput()
	in.Equity = 10000
	in.Tier.RiskPerTradePct = 0.01
	in.ATR = 0.0010 // distance 0.0020

	order := BuildOrder(in)
	// equity * riskPct / stopDistance = 10000 * 0.01 / 0.0020
	assert.InDelta(t, 50000, order.Size, 1e-6)
}

func TestBuildOrderDegenerateInputZeroSize(t *testing.T) {
	in := testInput()
	in.Equity = 0

	order := BuildOrder(in)
	assert.Zero(t, order.Size)

	in = testInput()
	in.Tier.RiskPerTradePct = 0
	assert.Zero(t, BuildOrder(in).Size)
}

func TestBuildOrderSetsRewardRisk(t *testing.T) {
	in := testInput()
	BuildOrder(in)
	assert.InDelta(t, 2.0, in.Proposal.RewardRisk, 1e-9)
}
