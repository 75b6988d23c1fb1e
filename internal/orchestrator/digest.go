package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"empire/internal/gateway/notifier"
	"empire/internal/logger"
	"empire/internal/performance"
	"empire/internal/store"
	"empire/internal/store/model"
)

// Digest summarizes the day's decisions and realized PnL once per day for
// the whole process. It is registered on the single daily runner, never on a
// per-symbol scheduler.
type Digest struct {
	Store    store.Store
	Stats    *Stats
	Notifier notifier.Notifier
	Symbols  []string

	nowFn func() time.Time
}

func NewDigest(st store.Store, stats *Stats, n notifier.Notifier, symbols []string) *Digest {
	if n == nil {
		n = notifier.Nop{}
	}
	return &Digest{Store: st, Stats: stats, Notifier: n, Symbols: symbols, nowFn: time.Now}
}

func (d *Digest) Run(ctx context.Context) {
	now := d.nowFn().UTC()
	pnl, err := d.Store.DailyRealizedPnL(now)
	if err != nil {
		logger.Warnf("digest: pnl query failed: %v", err)
	}
	decisions, err := d.Store.RecentDecisions(500)
	if err != nil {
		logger.Warnf("digest: decision query failed: %v", err)
	}

	counts := map[string]int{}
	perSymbol := map[string]int{}
	for _, rec := range decisions {
		if rec.CreatedAt.UTC().YearDay() != now.YearDay() || rec.CreatedAt.UTC().Year() != now.Year() {
			continue
		}
		counts[rec.Outcome]++
		if rec.Outcome == model.OutcomeExecuted {
			perSymbol[rec.Symbol]++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Daily digest %s\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "equity=%.2f realized_pnl=%.2f\n", d.Stats.Equity(), pnl)
	fmt.Fprintf(&b, "executed=%d rejected=%d gateway_rejected=%d no_signal=%d\n",
		counts[model.OutcomeExecuted], counts[model.OutcomeRejected],
		counts[model.OutcomeGatewayRejected], counts[model.OutcomeNoSignal])
	for _, sym := range d.Symbols {
		if n := perSymbol[sym]; n > 0 {
			fmt.Fprintf(&b, "%s: %d entr%s\n", sym, n, plural(n, "y", "ies"))
		}
	}

	logger.InfoBlock(b.String())
	d.Notifier.Notify("digest", b.String())
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Optimization runs the tracker's scheduled weight maintenance once per day
// for the whole process.
type Optimization struct {
	Tracker *performance.Tracker
}

func (o *Optimization) Run(ctx context.Context) {
	logger.Infof("optimization: running scheduled weight maintenance")
	o.Tracker.Optimize()
}
