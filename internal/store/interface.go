package store

import (
	"time"

	"empire/internal/performance"
	"empire/internal/store/model"
	"empire/internal/types"
)

// Store is the persistence entry point for the engine. One implementation
// (gormstore) backs it with SQLite; everything here must tolerate concurrent
// calls from all symbol cycles.
type Store interface {
	performance.Store

	// Decision journal.
	AppendDecision(rec model.DecisionLogModel) error
	RecentDecisions(limit int) ([]model.DecisionLogModel, error)

	// Trade log and daily risk counters.
	OpenTrade(rec model.TradeLogModel) (uint, error)
	CloseTrade(id uint, exitPrice, pnl, rMultiple float64, at time.Time) error
	OpenTradeID(symbol string) (uint, bool)
	DailyRealizedPnL(day time.Time) (float64, error)
	TradesToday(symbol string, day time.Time) (int, error)

	// Cooldown state.
	LastDecision(symbol string) (time.Time, bool)
	SetLastDecision(symbol string, at time.Time) error

	// Equity tracking.
	AppendEquity(snapshot types.AccountSnapshot) error

	// Global daily-job bookkeeping.
	LastJobRun(name string) (int, bool)
	SetLastJobRun(name string, day int) error

	Close() error
}
