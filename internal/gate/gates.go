package gate

import (
	"context"
	"fmt"
	"time"

	"empire/internal/types"
)

// Quality rejects weak or thin votes.
type Quality struct{}

func (Quality) Name() string { return "quality" }

func (Quality) Check(_ context.Context, in *Input) *Rejection {
	p := in.Proposal
	if p.Score < in.Limits.MinScore {
		return &Rejection{Reason: ReasonQualityLow, Detail: fmt.Sprintf("score %.3f < %.3f", p.Score, in.Limits.MinScore)}
	}
	if p.Confluence < in.Limits.MinConfluence {
		return &Rejection{Reason: ReasonQualityLow, Detail: fmt.Sprintf("confluence %d < %d", p.Confluence, in.Limits.MinConfluence)}
	}
	return nil
}

// SessionSource answers whether a symbol's market is open at a time.
type SessionSource interface {
	IsOpen(sym types.Symbol, t time.Time) bool
}

// Session rejects outside the symbol's asset-class trading calendar,
// including configured blackout windows.
type Session struct {
	Calendar SessionSource
}

func (Session) Name() string { return "session" }

func (s Session) Check(_ context.Context, in *Input) *Rejection {
	if s.Calendar == nil || s.Calendar.IsOpen(in.Symbol, in.Now) {
		return nil
	}
	return &Rejection{Reason: ReasonSessionClosed, Detail: in.Now.UTC().Format(time.RFC3339)}
}

// PositionView is a read-only snapshot of every symbol's position state.
// The correlation gate reads other symbols' state but never mutates it.
type PositionView interface {
	ActivePositions() map[string]types.Position
}

// GroupResolver maps a symbol name to its correlation group.
type GroupResolver func(symbol string) string

// Correlation rejects when any symbol sharing this symbol's correlation
// group already holds an open or pending position.
type Correlation struct {
	Positions PositionView
	Group     GroupResolver
}

func (Correlation) Name() string { return "correlation" }

func (c Correlation) Check(_ context.Context, in *Input) *Rejection {
	group := in.Symbol.CorrelationGroup
	if group == "" || c.Positions == nil {
		return nil
	}
	for sym, pos := range c.Positions.ActivePositions() {
		if sym == in.Symbol.Name || !pos.Active() {
			continue
		}
		if c.Group != nil && c.Group(sym) == group {
			return &Rejection{Reason: ReasonCorrelationConflict, Detail: fmt.Sprintf("%s holds %s in group %s", sym, pos.State, group)}
		}
	}
	return nil
}

// FreezeSource reports calendar freeze windows.
type FreezeSource interface {
	IsFreezeWindow(ctx context.Context, symbol string, at time.Time) bool
}

// NewsFreeze rejects inside a high-impact macro release window.
type NewsFreeze struct {
	Calendar FreezeSource
}

func (NewsFreeze) Name() string { return "news_freeze" }

func (n NewsFreeze) Check(ctx context.Context, in *Input) *Rejection {
	if n.Calendar == nil {
		return nil
	}
	if n.Calendar.IsFreezeWindow(ctx, in.Symbol.Name, in.Now) {
		return &Rejection{Reason: ReasonNewsFreeze}
	}
	return nil
}

// CooldownSource exposes the last decision time per symbol.
type CooldownSource interface {
	LastDecision(symbol string) (time.Time, bool)
}

// Cooldown rejects while the symbol's anti-spam window is still running.
type Cooldown struct {
	State CooldownSource
}

func (Cooldown) Name() string { return "cooldown" }

func (c Cooldown) Check(_ context.Context, in *Input) *Rejection {
	if c.State == nil || in.Limits.Cooldown <= 0 {
		return nil
	}
	last, ok := c.State.LastDecision(in.Symbol.Name)
	if !ok {
		return nil
	}
	elapsed := in.Now.Sub(last)
	if elapsed < in.Limits.Cooldown {
		remaining := in.Limits.Cooldown - elapsed
		return &Rejection{Reason: ReasonCooldownActive, Detail: fmt.Sprintf("%s remaining", remaining.Truncate(time.Second))}
	}
	return nil
}

// RiskStats exposes the running daily counters the risk gate needs.
type RiskStats interface {
	DailyLossPct(now time.Time) float64
	TradesToday(symbol string, now time.Time) int
	ActiveCountByClass(class types.AssetClass) int
}

// Risk rejects when admitting the order would exceed parallel-position,
// daily-loss or daily-trade limits for the symbol's tier.
type Risk struct {
	Stats RiskStats
}

func (Risk) Name() string { return "risk" }

func (r Risk) Check(_ context.Context, in *Input) *Rejection {
	if r.Stats == nil {
		return nil
	}
	tier := in.Tier
	if n := r.Stats.ActiveCountByClass(in.Symbol.Class); tier.MaxParallelPositions > 0 && n >= tier.MaxParallelPositions {
		return &Rejection{Reason: ReasonRiskLimit, Detail: fmt.Sprintf("positions %d/%d", n, tier.MaxParallelPositions)}
	}
	if loss := r.Stats.DailyLossPct(in.Now); tier.MaxDailyLossPct > 0 && loss >= tier.MaxDailyLossPct {
		return &Rejection{Reason: ReasonRiskLimit, Detail: fmt.Sprintf("daily loss %.2f%%", loss*100)}
	}
	if n := r.Stats.TradesToday(in.Symbol.Name, in.Now); tier.MaxDailyTrades > 0 && n >= tier.MaxDailyTrades {
		return &Rejection{Reason: ReasonRiskLimit, Detail: fmt.Sprintf("trades today %d/%d", n, tier.MaxDailyTrades)}
	}
	return nil
}
