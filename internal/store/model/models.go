package model

import (
	"time"

	"gorm.io/datatypes"
)

// PerformanceBucketModel persists one tracker bucket. The unique index over
// the key columns makes SaveBuckets an idempotent upsert.
type PerformanceBucketModel struct {
	ID         uint   `gorm:"primaryKey"`
	Symbol     string `gorm:"size:32;uniqueIndex:idx_bucket_key"`
	Agent      string `gorm:"size:32;uniqueIndex:idx_bucket_key"`
	Timeframe  string `gorm:"size:16;uniqueIndex:idx_bucket_key"`
	Regime     string `gorm:"size:32;uniqueIndex:idx_bucket_key"`
	Count      int
	ScoreEMA   float64
	OutcomeEMA float64
	WinRate    float64
	HasWinRate bool
	Weight     float64
	LastUpdate time.Time
}

func (PerformanceBucketModel) TableName() string { return "performance_buckets" }

// Decision outcomes journaled per cycle.
const (
	OutcomeNoSignal        = "no_signal"
	OutcomeRejected        = "rejected"
	OutcomeExecuted        = "executed"
	OutcomeGatewayRejected = "gateway_rejected"
)

// DecisionLogModel journals every cycle verdict: proposals, rejections with
// reason codes, executions and no-signal cycles.
type DecisionLogModel struct {
	ID         uint   `gorm:"primaryKey"`
	Symbol     string `gorm:"size:32;index"`
	Outcome    string `gorm:"size:32;index"` // no_signal | rejected | executed | gateway_rejected
	Reason     string `gorm:"size:64"`
	Direction  string `gorm:"size:8"`
	Score      float64
	Confluence int
	Regime     string         `gorm:"size:32"`
	Signals    datatypes.JSON `gorm:"type:json"`
	Detail     datatypes.JSON `gorm:"type:json"`
	CreatedAt  time.Time      `gorm:"index"`
}

func (DecisionLogModel) TableName() string { return "decision_log" }

// TradeLogModel records executed entries and their eventual close, feeding
// the daily-loss and trades-today risk counters.
type TradeLogModel struct {
	ID         uint   `gorm:"primaryKey"`
	Symbol     string `gorm:"size:32;index"`
	Direction  string `gorm:"size:8"`
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Size       float64
	OpenedAt   time.Time `gorm:"index"`
	ClosedAt   *time.Time
	ExitPrice  float64
	PnL        float64
	RMultiple  float64
}

func (TradeLogModel) TableName() string { return "trade_log" }

// CooldownModel survives the per-symbol last-decision timestamp across
// restarts so a crash never resets the anti-spam window.
type CooldownModel struct {
	Symbol       string `gorm:"primaryKey;size:32"`
	LastDecision time.Time
}

func (CooldownModel) TableName() string { return "cooldowns" }

// JobRunModel remembers the last day each global job fired so a restart
// after the digest hour does not re-run it the same day.
type JobRunModel struct {
	Name    string `gorm:"primaryKey;size:64"`
	Day     int    // year*1000 + yday, UTC
	FiredAt time.Time
}

func (JobRunModel) TableName() string { return "job_runs" }

// EquitySnapshotModel samples account equity once per cycle for drawdown
// reporting and the daily digest.
type EquitySnapshotModel struct {
	ID        uint `gorm:"primaryKey"`
	Equity    float64
	CreatedAt time.Time `gorm:"index"`
}

func (EquitySnapshotModel) TableName() string { return "equity_snapshots" }
