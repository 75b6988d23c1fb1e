// Package performance keeps exponentially decayed quality statistics per
// (symbol, agent, timeframe, regime) bucket and derives the adaptive weights
// the aggregator votes with. It is a pure accumulator: it never blocks or
// fails a cycle, and a persistence error degrades to in-memory state.
package performance

import (
	"math"
	"sync"
	"time"

	"empire/internal/logger"
	"empire/internal/types"
)

// BucketKey partitions the statistics.
type BucketKey struct {
	Symbol    string
	Agent     string
	Timeframe string
	Regime    string
}

// Bucket is the running state for one key.
type Bucket struct {
	Count      int
	ScoreEMA   float64
	OutcomeEMA float64
	WinRate    float64
	HasWinRate bool
	Weight     float64
	LastUpdate time.Time
}

// Store persists bucket state across restarts. Implemented by the gorm
// store; round-trips losslessly.
type Store interface {
	SaveBuckets(buckets map[BucketKey]Bucket) error
	LoadBuckets() (map[BucketKey]Bucket, error)
}

// Config mirrors the tracker tuning knobs.
type Config struct {
	Decay                 float64
	MinHistory            int
	InactivityHalfLifeDay float64
}

type Tracker struct {
	cfg   Config
	alpha float64
	store Store
	nowFn func() time.Time

	mu      sync.Mutex
	buckets map[BucketKey]Bucket
}

func NewTracker(cfg Config, store Store) *Tracker {
	if cfg.Decay <= 0 || cfg.Decay >= 1 {
		cfg.Decay = 0.85
	}
	if cfg.MinHistory < 1 {
		cfg.MinHistory = 5
	}
	if cfg.InactivityHalfLifeDay < 1 {
		cfg.InactivityHalfLifeDay = 14
	}
	t := &Tracker{
		cfg:     cfg,
		alpha:   1 - cfg.Decay,
		store:   store,
		nowFn:   time.Now,
		buckets: make(map[BucketKey]Bucket),
	}
	if store != nil {
		loaded, err := store.LoadBuckets()
		if err != nil {
			logger.Warnf("performance: load failed, starting empty: %v", err)
		} else if len(loaded) > 0 {
			t.buckets = loaded
			logger.Infof("performance: restored %d buckets", len(loaded))
		}
	}
	return t
}

// RecordSignals folds one cycle's contributing signals into their buckets.
// Called for every cycle outcome, executed or not, so sparsely useful agents
// decay instead of freezing at their last lucky weight.
func (t *Tracker) RecordSignals(symbol string, signals []types.AgentSignal, regime string, executed bool) {
	now := t.nowFn()
	t.mu.Lock()
	for _, sig := range signals {
		key := BucketKey{Symbol: symbol, Agent: sig.Agent, Timeframe: sig.Timeframe, Regime: regime}
		b := t.buckets[key]
		if b.Count == 0 {
			b.ScoreEMA = sig.Strength
			b.Weight = 1.0
		} else {
			b.ScoreEMA = t.cfg.Decay*b.ScoreEMA + t.alpha*sig.Strength
		}
		b.Count++
		b.LastUpdate = now
		t.updateWeight(&b)
		t.buckets[key] = b
	}
	t.mu.Unlock()
	t.persist()
}

// RecordOutcome folds a closed trade's R-multiple into the buckets that
// voted for it. Outcome is clamped to [-3, 3] against spikes.
func (t *Tracker) RecordOutcome(symbol string, signals []types.AgentSignal, regime string, rMultiple float64) {
	outcome := clamp(rMultiple, -3, 3)
	win := 0.0
	if outcome > 0 {
		win = 1.0
	}
	now := t.nowFn()
	t.mu.Lock()
	for _, sig := range signals {
		key := BucketKey{Symbol: symbol, Agent: sig.Agent, Timeframe: sig.Timeframe, Regime: regime}
		b := t.buckets[key]
		if b.Count == 0 {
			b.Weight = 1.0
		}
		b.OutcomeEMA = t.cfg.Decay*b.OutcomeEMA + t.alpha*outcome
		if !b.HasWinRate {
			b.WinRate = win
			b.HasWinRate = true
		} else {
			b.WinRate = t.cfg.Decay*b.WinRate + t.alpha*win
		}
		b.Count++
		b.LastUpdate = now
		t.updateWeight(&b)
		t.buckets[key] = b
	}
	t.mu.Unlock()
	t.persist()
}

// updateWeight applies the bounded weight formula:
// 1.0 + 1.5*outcomeEMA + 1.2*(winRate-0.5) + 0.6*(scoreEMA-0.5),
// dampened while history is thin, clamped to [0.25, 3.5].
func (t *Tracker) updateWeight(b *Bucket) {
	bonus := 1.5 * b.OutcomeEMA
	if b.HasWinRate {
		bonus += 1.2 * (b.WinRate - 0.5)
	}
	bonus += 0.6 * (b.ScoreEMA - 0.5)
	if b.Count < t.cfg.MinHistory {
		bonus *= float64(b.Count) / float64(t.cfg.MinHistory)
	}
	b.Weight = clamp(1.0+bonus, 0.25, 3.5)
}

// Snapshot returns a copy of all buckets. The aggregator reads this, never
// the live map.
func (t *Tracker) Snapshot() map[BucketKey]Bucket {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[BucketKey]Bucket, len(t.buckets))
	for k, v := range t.buckets {
		out[k] = v
	}
	return out
}

// Optimize applies inactivity decay and prunes dead buckets. Runs from the
// process-wide optimization job, never per symbol.
func (t *Tracker) Optimize() {
	now := t.nowFn()
	halfLife := t.cfg.InactivityHalfLifeDay * 24 * float64(time.Hour)
	pruned := 0
	t.mu.Lock()
	for key, b := range t.buckets {
		idle := float64(now.Sub(b.LastUpdate))
		if idle <= 0 {
			continue
		}
		// Decay the weight toward neutral 1.0 with the configured half-life.
		factor := math.Pow(0.5, idle/halfLife)
		b.Weight = 1.0 + (b.Weight-1.0)*factor
		if idle > 4*halfLife && b.Count < t.cfg.MinHistory {
			delete(t.buckets, key)
			pruned++
			continue
		}
		t.buckets[key] = b
	}
	total := len(t.buckets)
	t.mu.Unlock()
	t.persist()
	logger.Infof("performance: optimize pass kept %d buckets, pruned %d", total, pruned)
}

func (t *Tracker) persist() {
	if t.store == nil {
		return
	}
	if err := t.store.SaveBuckets(t.Snapshot()); err != nil {
		logger.Warnf("performance: persist failed, continuing in-memory: %v", err)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
