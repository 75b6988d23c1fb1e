package orchestrator

import (
	"math"
	"sync/atomic"
	"time"

	"empire/internal/logger"
	"empire/internal/position"
	"empire/internal/store"
	"empire/internal/types"
)

// Stats feeds the risk gate its daily counters. One instance is shared by
// every symbol cycle; the equity observation is the only mutable part.
type Stats struct {
	store    store.Store
	registry *position.Registry

	equityBits atomic.Uint64
}

func NewStats(st store.Store, registry *position.Registry) *Stats {
	return &Stats{store: st, registry: registry}
}

// ObserveEquity records the latest account equity for loss-percent math.
func (s *Stats) ObserveEquity(equity float64) {
	if equity > 0 {
		s.equityBits.Store(math.Float64bits(equity))
	}
}

func (s *Stats) Equity() float64 {
	return math.Float64frombits(s.equityBits.Load())
}

// DailyLossPct reports today's realized loss as a fraction of equity.
// Profitable days report zero.
func (s *Stats) DailyLossPct(now time.Time) float64 {
	equity := s.Equity()
	if equity <= 0 {
		return 0
	}
	pnl, err := s.store.DailyRealizedPnL(now)
	if err != nil {
		logger.Warnf("stats: daily pnl query failed: %v", err)
		return 0
	}
	if pnl >= 0 {
		return 0
	}
	return -pnl / equity
}

func (s *Stats) TradesToday(symbol string, now time.Time) int {
	n, err := s.store.TradesToday(symbol, now)
	if err != nil {
		logger.Warnf("stats: trades-today query failed: %v", err)
		return 0
	}
	return n
}

func (s *Stats) ActiveCountByClass(class types.AssetClass) int {
	return s.registry.ActiveCountByClass(class)
}
