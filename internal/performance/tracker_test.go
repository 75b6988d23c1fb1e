package performance

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empire/internal/types"
)

type memStore struct {
	buckets map[BucketKey]Bucket
	saveErr error
	loadErr error
	saves   int
}

func (m *memStore) SaveBuckets(buckets map[BucketKey]Bucket) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.buckets = buckets
	return nil
}

func (m *memStore) LoadBuckets() (map[BucketKey]Bucket, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.buckets, nil
}

func testSignals() []types.AgentSignal {
	return []types.AgentSignal{
		{Agent: "technical", Timeframe: "5m", Direction: types.DirectionLong, Strength: 0.8},
		{Agent: "structure", Timeframe: "15m", Direction: types.DirectionLong, Strength: 0.6},
	}
}

func TestRecordSignalsCreatesBuckets(t *testing.T) {
	tr := NewTracker(Config{}, nil)
	tr.RecordSignals("BTCUSDT", testSignals(), "normal", true)

	snap := tr.Snapshot()
	require.Len(t, snap, 2)
	b := snap[BucketKey{Symbol: "BTCUSDT", Agent: "technical", Timeframe: "5m", Regime: "normal"}]
	assert.Equal(t, 1, b.Count)
	assert.InDelta(t, 0.8, b.ScoreEMA, 1e-9)
}

func TestRecordOutcomeUpdatesWinRateAndWeight(t *testing.T) {
	tr := NewTracker(Config{Decay: 0.85, MinHistory: 1}, nil)
	signals := testSignals()[:1]
	key := BucketKey{Symbol: "BTCUSDT", Agent: "technical", Timeframe: "5m", Regime: "normal"}

	tr.RecordOutcome("BTCUSDT", signals, "normal", 2.0)
	b := tr.Snapshot()[key]
	assert.True(t, b.HasWinRate)
	assert.InDelta(t, 1.0, b.WinRate, 1e-9)
	assert.InDelta(t, 0.15*2.0, b.OutcomeEMA, 1e-9)
	assert.Greater(t, b.Weight, 1.0)

	// A run of losses drags the weight below neutral.
	for i := 0; i < 10; i++ {
		tr.RecordOutcome("BTCUSDT", signals, "normal", -1.5)
	}
	b = tr.Snapshot()[key]
	assert.Less(t, b.WinRate, 0.5)
	assert.Negative(t, b.OutcomeEMA)
	assert.Less(t, b.Weight, 1.0)
	assert.GreaterOrEqual(t, b.Weight, 0.25)
}

func TestRecordOutcomeClampsSpikes(t *testing.T) {
	tr := NewTracker(Config{Decay: 0.85, MinHistory: 1}, nil)
	signals := testSignals()[:1]
	key := BucketKey{Symbol: "BTCUSDT", Agent: "technical", Timeframe: "5m", Regime: "normal"}

	tr.RecordOutcome("BTCUSDT", signals, "normal", 50.0)
	b := tr.Snapshot()[key]
	assert.InDelta(t, 0.15*3.0, b.OutcomeEMA, 1e-9, "outcome must clamp to [-3, 3]")
}

func TestWeightDampenedBelowMinHistory(t *testing.T) {
	tr := NewTracker(Config{Decay: 0.85, MinHistory: 10}, nil)
	signals := testSignals()[:1]
	key := BucketKey{Symbol: "BTCUSDT", Agent: "technical", Timeframe: "5m", Regime: "normal"}

	tr.RecordOutcome("BTCUSDT", signals, "normal", 3.0)
	thin := tr.Snapshot()[key].Weight

	for i := 0; i < 20; i++ {
		tr.RecordOutcome("BTCUSDT", signals, "normal", 3.0)
	}
	seasoned := tr.Snapshot()[key].Weight
	assert.Greater(t, seasoned, thin, "thin history must dampen the weight bonus")
	assert.LessOrEqual(t, seasoned, 3.5)
}

func TestSnapshotIsACopy(t *testing.T) {
	tr := NewTracker(Config{}, nil)
	tr.RecordSignals("BTCUSDT", testSignals(), "normal", false)

	snap := tr.Snapshot()
	for k := range snap {
		delete(snap, k)
	}
	assert.Len(t, tr.Snapshot(), 2)
}

func TestPersistRoundTrip(t *testing.T) {
	st := &memStore{}
	tr := NewTracker(Config{}, st)
	tr.RecordSignals("BTCUSDT", testSignals(), "volatile", true)
	require.Positive(t, st.saves)

	restored := NewTracker(Config{}, st)
	assert.Equal(t, tr.Snapshot(), restored.Snapshot())
}

func TestPersistErrorDoesNotFail(t *testing.T) {
	st := &memStore{saveErr: errors.New("disk full")}
	tr := NewTracker(Config{}, st)

	// Must not panic or drop the in-memory state.
	tr.RecordSignals("BTCUSDT", testSignals(), "normal", true)
	assert.Len(t, tr.Snapshot(), 2)
}

func TestOptimizeDecaysIdleWeightsTowardNeutral(t *testing.T) {
	tr := NewTracker(Config{Decay: 0.85, MinHistory: 1, InactivityHalfLifeDay: 14}, nil)
	signals := testSignals()[:1]
	key := BucketKey{Symbol: "BTCUSDT", Agent: "technical", Timeframe: "5m", Regime: "normal"}
	for i := 0; i < 10; i++ {
		tr.RecordOutcome("BTCUSDT", signals, "normal", 2.5)
	}
	before := tr.Snapshot()[key].Weight
	require.Greater(t, before, 1.0)

	// Jump 14 days ahead: one half-life of inactivity.
	tr.nowFn = func() time.Time { return time.Now().Add(14 * 24 * time.Hour) }
	tr.Optimize()
	after := tr.Snapshot()[key].Weight
	assert.Less(t, after, before)
	assert.Greater(t, after, 1.0)
	assert.InDelta(t, 1.0+(before-1.0)*0.5, after, 1e-6)
}

func TestOptimizePrunesThinIdleBuckets(t *testing.T) {
	tr := NewTracker(Config{Decay: 0.85, MinHistory: 5, InactivityHalfLifeDay: 1}, nil)
	tr.RecordSignals("BTCUSDT", testSignals()[:1], "normal", false)
	require.Len(t, tr.Snapshot(), 1)

	// Idle far past four half-lives with count below minHistory.
	tr.nowFn = func() time.Time { return time.Now().Add(10 * 24 * time.Hour) }
	tr.Optimize()
	assert.Empty(t, tr.Snapshot())
}
