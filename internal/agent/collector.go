package agent

import (
	"context"
	"runtime/debug"
	"time"

	"empire/internal/logger"
	"empire/internal/market"
	"empire/internal/types"

	"golang.org/x/sync/errgroup"
)

// Collector runs the configured agents concurrently over one market window
// and gathers their signals. A slow, failing or panicking agent yields an
// absent slot for that cycle; it never aborts the cycle.
type Collector struct {
	agents  []Agent
	timeout time.Duration
}

func NewCollector(agents []Agent, timeout time.Duration) *Collector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Collector{agents: agents, timeout: timeout}
}

// Collect waits for every agent to finish or time out, then returns whatever
// arrived. Partial results are valid aggregator input.
func (c *Collector) Collect(ctx context.Context, symbol string, timeframes []string, window *market.Window) types.SignalSet {
	out := make(types.SignalSet, len(c.agents))
	results := make(chan types.AgentSignal, len(c.agents)*(len(timeframes)+1))

	group := &errgroup.Group{}
	for _, ag := range c.agents {
		ag := ag
		group.Go(func() error {
			agentCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			c.runAgent(agentCtx, ag, symbol, timeframes, window, results)
			return nil
		})
	}
	group.Wait()
	close(results)
	for sig := range results {
		out.Add(sig)
	}
	return out
}

func (c *Collector) runAgent(ctx context.Context, ag Agent, symbol string, timeframes []string, window *market.Window, results chan<- types.AgentSignal) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("agent %s panicked: %v\n%s", ag.Name(), r, debug.Stack())
		}
	}()

	slots := timeframes
	if ga, ok := ag.(GlobalAgent); ok && ga.Global() {
		slots = []string{GlobalTimeframe}
	}
	for _, tf := range slots {
		if err := ctx.Err(); err != nil {
			logger.Warnf("agent %s timed out before %s/%s", ag.Name(), symbol, tf)
			return
		}
		sig, err := ag.Evaluate(ctx, symbol, tf, window)
		if err != nil {
			logger.Warnf("agent %s failed for %s/%s: %v", ag.Name(), symbol, tf, err)
			continue
		}
		if sig == nil || sig.Direction == types.DirectionNone {
			continue
		}
		filled := *sig
		filled.Agent = ag.Name()
		filled.Symbol = symbol
		filled.Timeframe = tf
		if filled.At.IsZero() {
			filled.At = time.Now()
		}
		filled.Strength = clamp01(filled.Strength)
		results <- filled
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Names lists the configured agents, mostly for logging and the digest.
func (c *Collector) Names() []string {
	out := make([]string, 0, len(c.agents))
	for _, ag := range c.agents {
		out = append(out, ag.Name())
	}
	return out
}
