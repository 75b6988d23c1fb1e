// Package orchestrator sequences one symbol's decision cycle: reconcile the
// position, manage exits, collect agent signals, aggregate, gate, execute and
// record. Each symbol runs its own Cycle on its own scheduler; the only
// cross-symbol coupling is the read-only position registry and the shared
// store and tracker.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/datatypes"

	"empire/internal/agent"
	"empire/internal/config"
	"empire/internal/decision"
	"empire/internal/gate"
	"empire/internal/gateway/exchange"
	"empire/internal/gateway/notifier"
	"empire/internal/logger"
	"empire/internal/market"
	"empire/internal/performance"
	"empire/internal/position"
	"empire/internal/store"
	"empire/internal/store/model"
	"empire/internal/types"
)

const historyLimit = 200

// ConfigSource hands out the current config snapshot. The snapshot is read
// once at cycle start; a hot reload lands on the next cycle, never mid-cycle.
type ConfigSource interface {
	Current() *config.Config
}

// Cycle owns everything one symbol needs per tick. All per-symbol state
// (position, open trade context) is mutated only from Run, which the
// scheduler never invokes concurrently.
type Cycle struct {
	Symbol   types.Symbol
	Config   ConfigSource
	Agents   []agent.Agent
	Gateway  exchange.Exchange
	Source   market.Source
	Manager  *position.Manager
	Registry *position.Registry
	Pipeline *gate.Pipeline
	Tracker  *performance.Tracker
	Store    store.Store
	Stats    *Stats
	Notifier notifier.Notifier

	nowFn func() time.Time

	// Context of the currently open trade, used to attribute the outcome
	// back to the contributing signals when it closes.
	openTrade *tradeContext
}

type tradeContext struct {
	storeID uint
	order   types.ExecutionOrder
	signals []types.AgentSignal
	regime  string
}

func NewCycle(c Cycle) *Cycle {
	c.nowFn = time.Now
	if c.Notifier == nil {
		c.Notifier = notifier.Nop{}
	}
	return &c
}

// Run executes one full cycle. It never returns an error: every failure mode
// is a logged, valid cycle outcome and the scheduler simply ticks again.
func (c *Cycle) Run(ctx context.Context) {
	cfg := c.Config.Current()
	now := c.nowFn()

	prev := c.Manager.Current()
	if err := c.Manager.Reconcile(ctx); err != nil {
		if errors.Is(err, exchange.ErrUnavailable) {
			logger.Warnf("cycle %s: gateway unavailable, aborting cycle", c.Symbol.Name)
			return
		}
		logger.Errorf("cycle %s: reconcile failed: %v", c.Symbol.Name, err)
		return
	}
	c.noticeExternalClose(prev)

	price, err := c.Gateway.LastPrice(ctx, c.Symbol.Name)
	if err != nil {
		logger.Warnf("cycle %s: price fetch failed, aborting cycle: %v", c.Symbol.Name, err)
		return
	}

	window, err := c.fetchWindow(ctx, cfg.Engine.Timeframes, price)
	if err != nil {
		logger.Warnf("cycle %s: history fetch failed, aborting cycle: %v", c.Symbol.Name, err)
		return
	}

	c.manageExits(ctx, price)

	account, err := c.Gateway.Account(ctx)
	if err != nil {
		logger.Warnf("cycle %s: account fetch failed, aborting cycle: %v", c.Symbol.Name, err)
		return
	}
	c.Stats.ObserveEquity(account.Equity)
	if err := c.Store.AppendEquity(account); err != nil {
		logger.Warnf("cycle %s: equity snapshot write failed: %v", c.Symbol.Name, err)
	}

	if c.Manager.Current().Active() {
		// One logical position per symbol; no new entries while exposed.
		return
	}

	baseTF := cfg.Engine.Timeframes[0]
	regime := ClassifyRegime(window, baseTF)

	timeout := time.Duration(cfg.Engine.AgentTimeoutSec) * time.Second
	collector := agent.NewCollector(c.Agents, timeout)
	signals := collector.Collect(ctx, c.Symbol.Name, cfg.Engine.Timeframes, window)

	weights := performance.AdaptiveWeights{
		Snapshot:        c.Tracker.Snapshot(),
		AgentPriors:     cfg.Weights.Agents,
		TimeframePriors: cfg.Weights.Timeframes,
		MinSamples:      cfg.Weights.MinSamples,
	}
	params := decision.Params{
		MinConfluence:   cfg.Engine.MinConfluence,
		AmbiguityMargin: cfg.Engine.AmbiguityMargin,
	}
	proposal := decision.Aggregate(c.Symbol.Name, signals, weights, regime, params, now)
	if proposal == nil {
		c.Tracker.RecordSignals(c.Symbol.Name, flatten(signals), regime, false)
		c.journal(model.DecisionLogModel{
			Symbol:  c.Symbol.Name,
			Outcome: model.OutcomeNoSignal,
			Regime:  regime,
			Signals: marshalSignals(flatten(signals)),
		})
		return
	}

	in := &gate.Input{
		Proposal: proposal,
		Symbol:   c.Symbol,
		Tier:     c.tier(cfg),
		Limits: gate.Limits{
			MinScore:      cfg.Engine.MinScore,
			MinConfluence: cfg.Engine.MinConfluence,
			Cooldown:      time.Duration(cfg.Engine.CooldownMinutes) * time.Minute,
			StopATRMult:   cfg.Engine.StopATRMultiplier,
		},
		Now:    now,
		Price:  price,
		ATR:    agent.ATR(window, baseTF, 14),
		Equity: account.Equity,
	}
	order, rejection := c.Pipeline.Admit(ctx, in)
	if rejection != nil {
		c.Tracker.RecordSignals(c.Symbol.Name, proposal.Contributing, regime, false)
		c.journal(model.DecisionLogModel{
			Symbol:     c.Symbol.Name,
			Outcome:    model.OutcomeRejected,
			Reason:     string(rejection.Reason),
			Direction:  string(proposal.Direction),
			Score:      proposal.Score,
			Confluence: proposal.Confluence,
			Regime:     regime,
			Signals:    marshalSignals(proposal.Contributing),
			Detail:     marshalDetail(map[string]string{"gate": rejection.Gate, "detail": rejection.Detail}),
		})
		return
	}

	c.execute(ctx, cfg, *order, proposal, regime, now)
}

// execute submits an admitted order and records whichever way it lands. The
// cooldown arms on every attempt, successful or broker-rejected, so a hard
// gateway rejection never turns into an immediate retry storm.
func (c *Cycle) execute(ctx context.Context, cfg *config.Config, order types.ExecutionOrder, proposal *types.Proposal, regime string, now time.Time) {
	if err := c.Store.SetLastDecision(c.Symbol.Name, now); err != nil {
		logger.Warnf("cycle %s: cooldown persist failed: %v", c.Symbol.Name, err)
	}

	res, err := c.Manager.Submit(ctx, order)
	if err != nil {
		if errors.Is(err, exchange.ErrUnavailable) {
			// Order fate unknown; reconciliation resolves it next cycle.
			logger.Warnf("cycle %s: submit hit unavailable gateway, pending reconciliation", c.Symbol.Name)
			return
		}
		logger.Errorf("cycle %s: submit failed: %v", c.Symbol.Name, err)
		return
	}
	if !res.Filled {
		c.Tracker.RecordSignals(c.Symbol.Name, proposal.Contributing, regime, false)
		c.journal(model.DecisionLogModel{
			Symbol:     c.Symbol.Name,
			Outcome:    model.OutcomeGatewayRejected,
			Reason:     res.RejectionReason,
			Direction:  string(proposal.Direction),
			Score:      proposal.Score,
			Confluence: proposal.Confluence,
			Regime:     regime,
			Signals:    marshalSignals(proposal.Contributing),
		})
		c.Notifier.Notify("gateway_reject", fmt.Sprintf("%s %s order rejected: %s", c.Symbol.Name, order.Direction, res.RejectionReason))
		return
	}

	filled := c.Manager.Current()
	id, err := c.Store.OpenTrade(model.TradeLogModel{
		Symbol:     c.Symbol.Name,
		Direction:  string(filled.Direction),
		EntryPrice: filled.EntryPrice,
		StopLoss:   filled.StopLoss,
		TakeProfit: filled.TakeProfit,
		Size:       filled.Size,
		OpenedAt:   now,
	})
	if err != nil {
		logger.Warnf("cycle %s: trade log write failed: %v", c.Symbol.Name, err)
	}
	c.openTrade = &tradeContext{
		storeID: id,
		order:   order,
		signals: proposal.Contributing,
		regime:  regime,
	}

	c.Tracker.RecordSignals(c.Symbol.Name, proposal.Contributing, regime, true)
	c.journal(model.DecisionLogModel{
		Symbol:     c.Symbol.Name,
		Outcome:    model.OutcomeExecuted,
		Direction:  string(proposal.Direction),
		Score:      proposal.Score,
		Confluence: proposal.Confluence,
		Regime:     regime,
		Signals:    marshalSignals(proposal.Contributing),
		Detail: marshalDetail(map[string]any{
			"entry": filled.EntryPrice,
			"stop":  filled.StopLoss,
			"take":  filled.TakeProfit,
			"size":  filled.Size,
		}),
	})
	c.Notifier.Notify("entry", fmt.Sprintf("%s %s size=%.6f entry=%.5f sl=%.5f tp=%.5f",
		c.Symbol.Name, filled.Direction, filled.Size, filled.EntryPrice, filled.StopLoss, filled.TakeProfit))
}

// manageExits drives stop/target exits and settles the trade outcome when a
// close confirms.
func (c *Cycle) manageExits(ctx context.Context, price float64) {
	before := c.Manager.Current()
	if !before.Active() {
		return
	}
	if err := c.Manager.CheckExit(ctx, price); err != nil {
		return
	}
	after := c.Manager.Current()
	if before.Active() && !after.Active() {
		c.settleTrade(before, price)
	}
}

// noticeExternalClose settles a trade the gateway closed on its own (manual
// intervention, broker-side stop) that reconciliation just surfaced.
func (c *Cycle) noticeExternalClose(prev types.Position) {
	cur := c.Manager.Current()
	if prev.State == types.PositionOpen && !cur.Active() && c.openTrade != nil {
		// Exit price unknown; settle at the recorded stop or entry.
		c.settleTrade(prev, prev.EntryPrice)
	}
}

// settleTrade converts a confirmed close into an R-multiple, feeds the
// tracker and finalizes the trade-log row.
func (c *Cycle) settleTrade(pos types.Position, exitPrice float64) {
	dist := pos.EntryPrice - pos.StopLoss
	if dist < 0 {
		dist = -dist
	}
	var pnlPoints float64
	switch pos.Direction {
	case types.DirectionLong:
		pnlPoints = exitPrice - pos.EntryPrice
	case types.DirectionShort:
		pnlPoints = pos.EntryPrice - exitPrice
	}
	rMultiple := 0.0
	if dist > 0 {
		rMultiple = pnlPoints / dist
	}
	pnl := pnlPoints * pos.Size

	ctx := c.openTrade
	c.openTrade = nil
	if ctx != nil {
		c.Tracker.RecordOutcome(c.Symbol.Name, ctx.signals, ctx.regime, rMultiple)
	}

	id, ok := c.tradeID(ctx)
	if ok {
		if err := c.Store.CloseTrade(id, exitPrice, pnl, rMultiple, c.nowFn()); err != nil {
			logger.Warnf("cycle %s: trade close write failed: %v", c.Symbol.Name, err)
		}
	}
	logger.Infof("cycle %s: trade settled pnl=%.2f r=%.2f", c.Symbol.Name, pnl, rMultiple)
	c.Notifier.Notify("exit", fmt.Sprintf("%s closed at %.5f pnl=%.2f r=%.2f", c.Symbol.Name, exitPrice, pnl, rMultiple))
}

func (c *Cycle) tradeID(ctx *tradeContext) (uint, bool) {
	if ctx != nil && ctx.storeID > 0 {
		return ctx.storeID, true
	}
	// Trade opened before a restart; fall back to the store's open row.
	return c.Store.OpenTradeID(c.Symbol.Name)
}

func (c *Cycle) fetchWindow(ctx context.Context, timeframes []string, price float64) (*market.Window, error) {
	window := &market.Window{
		Symbol:  c.Symbol.Name,
		Price:   price,
		Candles: make(map[string][]market.Candle, len(timeframes)),
	}
	for _, tf := range timeframes {
		candles, err := c.Source.FetchHistory(ctx, c.Symbol.Name, tf, historyLimit)
		if err != nil {
			return nil, fmt.Errorf("fetch %s %s: %w", c.Symbol.Name, tf, err)
		}
		window.Candles[tf] = candles
	}
	return window, nil
}

func (c *Cycle) tier(cfg *config.Config) types.RiskTier {
	tc, ok := cfg.RiskTiers[string(c.Symbol.Class)]
	if !ok {
		tc = cfg.RiskTiers["default"]
	}
	return types.RiskTier{
		RiskPerTradePct:      tc.RiskPerTradePct,
		MaxDailyLossPct:      tc.MaxDailyLossPct,
		MaxParallelPositions: tc.MaxParallelPositions,
		MaxDailyTrades:       tc.MaxDailyTrades,
		RewardRiskRatio:      tc.RewardRiskRatio,
	}
}

func (c *Cycle) journal(rec model.DecisionLogModel) {
	rec.CreatedAt = c.nowFn()
	if err := c.Store.AppendDecision(rec); err != nil {
		logger.Warnf("cycle %s: decision journal write failed: %v", c.Symbol.Name, err)
	}
}

func flatten(signals types.SignalSet) []types.AgentSignal {
	out := make([]types.AgentSignal, 0, signals.Count())
	for _, tfs := range signals {
		for _, sig := range tfs {
			out = append(out, sig)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Agent != out[j].Agent {
			return out[i].Agent < out[j].Agent
		}
		return out[i].Timeframe < out[j].Timeframe
	})
	return out
}

func marshalSignals(signals []types.AgentSignal) datatypes.JSON {
	raw, err := json.Marshal(signals)
	if err != nil {
		return nil
	}
	return raw
}

func marshalDetail(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
