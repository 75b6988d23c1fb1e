package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empire/internal/agent"
	"empire/internal/config"
	"empire/internal/gate"
	"empire/internal/gateway/exchange"
	"empire/internal/gateway/exchange/sim"
	"empire/internal/market"
	"empire/internal/performance"
	"empire/internal/position"
	"empire/internal/store/model"
	"empire/internal/types"
)

// fakeStore is an in-memory store.Store for cycle tests.
type fakeStore struct {
	mu        sync.Mutex
	decisions []model.DecisionLogModel
	trades    map[uint]model.TradeLogModel
	nextTrade uint
	cooldowns map[string]time.Time
	jobDays   map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		trades:    make(map[uint]model.TradeLogModel),
		cooldowns: make(map[string]time.Time),
		jobDays:   make(map[string]int),
	}
}

func (f *fakeStore) SaveBuckets(map[performance.BucketKey]performance.Bucket) error { return nil }
func (f *fakeStore) LoadBuckets() (map[performance.BucketKey]performance.Bucket, error) {
	return nil, nil
}

func (f *fakeStore) AppendDecision(rec model.DecisionLogModel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions = append(f.decisions, rec)
	return nil
}

func (f *fakeStore) RecentDecisions(limit int) ([]model.DecisionLogModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.DecisionLogModel, len(f.decisions))
	copy(out, f.decisions)
	return out, nil
}

func (f *fakeStore) OpenTrade(rec model.TradeLogModel) (uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTrade++
	rec.ID = f.nextTrade
	f.trades[rec.ID] = rec
	return rec.ID, nil
}

func (f *fakeStore) CloseTrade(id uint, exitPrice, pnl, rMultiple float64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.trades[id]
	if !ok {
		return fmt.Errorf("no trade %d", id)
	}
	rec.ClosedAt = &at
	rec.ExitPrice = exitPrice
	rec.PnL = pnl
	rec.RMultiple = rMultiple
	f.trades[id] = rec
	return nil
}

func (f *fakeStore) OpenTradeID(symbol string) (uint, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, rec := range f.trades {
		if rec.Symbol == symbol && rec.ClosedAt == nil {
			return id, true
		}
	}
	return 0, false
}

func (f *fakeStore) DailyRealizedPnL(time.Time) (float64, error) { return 0, nil }

func (f *fakeStore) TradesToday(symbol string, _ time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, rec := range f.trades {
		if rec.Symbol == symbol {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) LastDecision(symbol string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.cooldowns[symbol]
	return at, ok
}

func (f *fakeStore) SetLastDecision(symbol string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cooldowns[symbol] = at
	return nil
}

func (f *fakeStore) AppendEquity(types.AccountSnapshot) error { return nil }

func (f *fakeStore) LastJobRun(name string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.jobDays[name]
	return d, ok
}

func (f *fakeStore) SetLastJobRun(name string, day int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobDays[name] = day
	return nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) outcomes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.decisions))
	for i, rec := range f.decisions {
		out[i] = rec.Outcome
	}
	return out
}

// fakeSource serves the same synthetic candle series for every timeframe:
// flat closes at 100 with a constant 1.0 bar range, so ATR(14) is exactly 1.
type fakeSource struct{}

func (fakeSource) FetchHistory(_ context.Context, _, _ string, limit int) ([]market.Candle, error) {
	n := 30
	out := make([]market.Candle, n)
	for i := range out {
		out[i] = market.Candle{
			OpenTime: int64(i), CloseTime: int64(i + 1),
			Open: 100, High: 100.5, Low: 99.5, Close: 100,
		}
	}
	return out, nil
}

// bullAgent votes long on every slot.
type bullAgent struct{ name string }

func (a bullAgent) Name() string { return a.name }

func (a bullAgent) Evaluate(context.Context, string, string, *market.Window) (*types.AgentSignal, error) {
	return &types.AgentSignal{Direction: types.DirectionLong, Strength: 0.9}, nil
}

type fixedConfig struct{ cfg *config.Config }

func (f fixedConfig) Current() *config.Config { return f.cfg }

func cycleConfig() *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{
			Timeframes:        []string{"5m"},
			AgentTimeoutSec:   1,
			MinScore:          0.5,
			MinConfluence:     1,
			AmbiguityMargin:   0.25,
			CooldownMinutes:   15,
			StopATRMultiplier: 2.0,
		},
		Weights: config.WeightsConfig{MinSamples: 10},
		RiskTiers: map[string]config.RiskTierConfig{
			"default": {RiskPerTradePct: 0.01, MaxDailyLossPct: 0.05, MaxParallelPositions: 5, MaxDailyTrades: 10, RewardRiskRatio: 2},
		},
	}
}

type cycleEnv struct {
	gw       *sim.Gateway
	store    *fakeStore
	registry *position.Registry
	tracker  *performance.Tracker
}

func newTestCycle(sym types.Symbol, extra ...gate.Gate) (*Cycle, *cycleEnv) {
	env := &cycleEnv{
		gw:       sim.New(10000),
		store:    newFakeStore(),
		registry: position.NewRegistry([]types.Symbol{sym}),
		tracker:  performance.NewTracker(performance.Config{}, nil),
	}
	env.gw.SetPrice(sym.Name, 100)
	stats := NewStats(env.store, env.registry)
	gates := append([]gate.Gate{gate.Quality{}}, extra...)
	gates = append(gates, gate.Cooldown{State: env.store}, gate.Risk{Stats: stats})
	cycle := NewCycle(Cycle{
		Symbol:   sym,
		Config:   fixedConfig{cycleConfig()},
		Agents:   []agent.Agent{bullAgent{name: "technical"}},
		Gateway:  env.gw,
		Source:   fakeSource{},
		Manager:  position.NewManager(sym, env.gw, env.registry),
		Registry: env.registry,
		Pipeline: gate.NewPipeline(gates...),
		Tracker:  env.tracker,
		Store:    env.store,
		Stats:    stats,
	})
	return cycle, env
}

func cryptoSymbol(name string) types.Symbol {
	return types.Symbol{Name: name, Class: types.AssetCrypto, PointSize: 0.1, MinStopDistance: 0.5}
}

func TestCycleTradeLifecycle(t *testing.T) {
	ctx := context.Background()
	sym := cryptoSymbol("BTCUSDT")
	cycle, env := newTestCycle(sym)

	// First tick: signal -> proposal -> admitted -> filled.
	cycle.Run(ctx)
	pos := cycle.Manager.Current()
	require.Equal(t, types.PositionOpen, pos.State)
	assert.Equal(t, types.DirectionLong, pos.Direction)
	assert.Equal(t, 1, env.gw.Placed)
	assert.Equal(t, []string{model.OutcomeExecuted}, env.store.outcomes())
	_, armed := env.store.LastDecision(sym.Name)
	assert.True(t, armed, "execution must arm the cooldown")

	// Second tick while the position holds: no stacking, no new order.
	cycle.Run(ctx)
	assert.Equal(t, 1, env.gw.Placed)
	assert.Len(t, env.store.outcomes(), 1)

	// Price crashes through the stop: the trade settles and, with the
	// cooldown still armed, the next proposal is rejected instead of
	// re-entering.
	env.gw.SetPrice(sym.Name, 90)
	cycle.Run(ctx)
	assert.Equal(t, types.PositionFlat, cycle.Manager.Current().State)
	assert.Equal(t, 1, env.gw.Placed)

	id, open := env.store.OpenTradeID(sym.Name)
	assert.False(t, open, "trade %d should be closed", id)
	env.store.mu.Lock()
	closed := env.store.trades[1]
	env.store.mu.Unlock()
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, 90.0, closed.ExitPrice)
	assert.Negative(t, closed.PnL)

	outs := env.store.outcomes()
	require.Len(t, outs, 2)
	assert.Equal(t, model.OutcomeRejected, outs[1])
	env.store.mu.Lock()
	reason := env.store.decisions[1].Reason
	env.store.mu.Unlock()
	assert.Equal(t, string(gate.ReasonCooldownActive), reason)

	// The losing trade reached the tracker.
	snap := env.tracker.Snapshot()
	require.NotEmpty(t, snap)
	for _, b := range snap {
		assert.Negative(t, b.OutcomeEMA)
	}
}

type closedCalendar struct{}

func (closedCalendar) IsOpen(types.Symbol, time.Time) bool { return false }

func TestCycleClosedSessionNeverReachesGateway(t *testing.T) {
	sym := cryptoSymbol("BTCUSDT")
	cycle, env := newTestCycle(sym, gate.Session{Calendar: closedCalendar{}})

	cycle.Run(context.Background())

	assert.Zero(t, env.gw.Placed, "a session rejection must place no order")
	assert.Equal(t, types.PositionFlat, cycle.Manager.Current().State)
	outs := env.store.outcomes()
	require.Len(t, outs, 1)
	assert.Equal(t, model.OutcomeRejected, outs[0])
	env.store.mu.Lock()
	reason := env.store.decisions[0].Reason
	env.store.mu.Unlock()
	assert.Equal(t, string(gate.ReasonSessionClosed), reason)
	_, armed := env.store.LastDecision(sym.Name)
	assert.False(t, armed, "gate rejections never arm the cooldown")
}

// downGateway fails reconciliation the way an unreachable broker does.
type downGateway struct{ *sim.Gateway }

func (downGateway) OpenPositions(context.Context, []string) ([]exchange.BrokerPosition, error) {
	return nil, fmt.Errorf("%w: connection refused", exchange.ErrUnavailable)
}

func TestCycleAbortsWhenGatewayUnavailable(t *testing.T) {
	sym := cryptoSymbol("BTCUSDT")
	cycle, env := newTestCycle(sym)
	down := downGateway{env.gw}
	cycle.Gateway = down
	cycle.Manager = position.NewManager(sym, down, env.registry)

	cycle.Run(context.Background())

	assert.Zero(t, env.gw.Placed)
	assert.Empty(t, env.store.outcomes(), "an aborted cycle journals nothing")
}

func TestConcurrentCyclesOnePositionPerSymbol(t *testing.T) {
	symbols := []types.Symbol{
		cryptoSymbol("BTCUSDT"), cryptoSymbol("ETHUSDT"),
		cryptoSymbol("SOLUSDT"), cryptoSymbol("BNBUSDT"),
	}
	gw := sim.New(10000)
	st := newFakeStore()
	registry := position.NewRegistry(symbols)
	tracker := performance.NewTracker(performance.Config{}, nil)
	stats := NewStats(st, registry)
	pipeline := gate.NewPipeline(gate.Quality{}, gate.Cooldown{State: st}, gate.Risk{Stats: stats})

	cycles := make([]*Cycle, len(symbols))
	for i, sym := range symbols {
		gw.SetPrice(sym.Name, 100)
		cycles[i] = NewCycle(Cycle{
			Symbol:   sym,
			Config:   fixedConfig{cycleConfig()},
			Agents:   []agent.Agent{bullAgent{name: "technical"}},
			Gateway:  gw,
			Source:   fakeSource{},
			Manager:  position.NewManager(sym, gw, registry),
			Registry: registry,
			Pipeline: pipeline,
			Tracker:  tracker,
			Store:    st,
			Stats:    stats,
		})
	}

	// Several rounds of all symbol cycles running concurrently, as the
	// per-symbol schedulers do in production.
	for round := 0; round < 3; round++ {
		var wg sync.WaitGroup
		for _, c := range cycles {
			wg.Add(1)
			go func(c *Cycle) {
				defer wg.Done()
				c.Run(context.Background())
			}(c)
		}
		wg.Wait()
	}

	active := registry.ActivePositions()
	assert.Len(t, active, len(symbols))
	for _, sym := range symbols {
		pos, ok := active[sym.Name]
		require.True(t, ok, "%s should hold exactly one position", sym.Name)
		assert.Equal(t, types.PositionOpen, pos.State)

		broker, err := gw.OpenPositions(context.Background(), []string{sym.Name})
		require.NoError(t, err)
		assert.Len(t, broker, 1)
	}
	// One fill per symbol across every interleaving, never a stack.
	assert.Equal(t, len(symbols), gw.Placed)
}
