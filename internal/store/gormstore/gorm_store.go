// Package gormstore backs the engine's persistence with Gorm + SQLite.
package gormstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"empire/internal/performance"
	"empire/internal/store/model"
	"empire/internal/types"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type GormStore struct {
	db *gorm.DB

	// cooldowns are read on every admission; cache them instead of a
	// per-gate query.
	mu        sync.RWMutex
	cooldowns map[string]time.Time
}

func New(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&model.PerformanceBucketModel{},
		&model.DecisionLogModel{},
		&model.TradeLogModel{},
		&model.CooldownModel{},
		&model.EquitySnapshotModel{},
		&model.JobRunModel{},
	); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: a little parallelism for concurrent cycle writers while
	// keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)

	s := &GormStore{db: db, cooldowns: make(map[string]time.Time)}
	if err := s.loadCooldowns(); err != nil {
		return nil, err
	}
	return s, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --- performance buckets ---------------------------------------------------

func (s *GormStore) SaveBuckets(buckets map[performance.BucketKey]performance.Bucket) error {
	if len(buckets) == 0 {
		return nil
	}
	rows := make([]model.PerformanceBucketModel, 0, len(buckets))
	for key, b := range buckets {
		rows = append(rows, model.PerformanceBucketModel{
			Symbol:     key.Symbol,
			Agent:      key.Agent,
			Timeframe:  key.Timeframe,
			Regime:     key.Regime,
			Count:      b.Count,
			ScoreEMA:   b.ScoreEMA,
			OutcomeEMA: b.OutcomeEMA,
			WinRate:    b.WinRate,
			HasWinRate: b.HasWinRate,
			Weight:     b.Weight,
			LastUpdate: b.LastUpdate,
		})
	}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}, {Name: "agent"}, {Name: "timeframe"}, {Name: "regime"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"count", "score_ema", "outcome_ema", "win_rate", "has_win_rate", "weight", "last_update",
		}),
	}).Create(&rows).Error
}

func (s *GormStore) LoadBuckets() (map[performance.BucketKey]performance.Bucket, error) {
	var rows []model.PerformanceBucketModel
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[performance.BucketKey]performance.Bucket, len(rows))
	for _, r := range rows {
		key := performance.BucketKey{Symbol: r.Symbol, Agent: r.Agent, Timeframe: r.Timeframe, Regime: r.Regime}
		out[key] = performance.Bucket{
			Count:      r.Count,
			ScoreEMA:   r.ScoreEMA,
			OutcomeEMA: r.OutcomeEMA,
			WinRate:    r.WinRate,
			HasWinRate: r.HasWinRate,
			Weight:     r.Weight,
			LastUpdate: r.LastUpdate,
		}
	}
	return out, nil
}

// --- decision journal ------------------------------------------------------

func (s *GormStore) AppendDecision(rec model.DecisionLogModel) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return s.db.Create(&rec).Error
}

func (s *GormStore) RecentDecisions(limit int) ([]model.DecisionLogModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []model.DecisionLogModel
	err := s.db.Order("id desc").Limit(limit).Find(&rows).Error
	return rows, err
}

// --- trade log -------------------------------------------------------------

func (s *GormStore) OpenTrade(rec model.TradeLogModel) (uint, error) {
	if rec.OpenedAt.IsZero() {
		rec.OpenedAt = time.Now()
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return 0, err
	}
	return rec.ID, nil
}

func (s *GormStore) CloseTrade(id uint, exitPrice, pnl, rMultiple float64, at time.Time) error {
	return s.db.Model(&model.TradeLogModel{}).Where("id = ?", id).Updates(map[string]any{
		"closed_at":  at,
		"exit_price": exitPrice,
		"pn_l":       pnl,
		"r_multiple": rMultiple,
	}).Error
}

func (s *GormStore) OpenTradeID(symbol string) (uint, bool) {
	var row model.TradeLogModel
	err := s.db.Where("symbol = ? AND closed_at IS NULL", symbol).Order("id desc").First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false
		}
		return 0, false
	}
	return row.ID, true
}

func (s *GormStore) DailyRealizedPnL(day time.Time) (float64, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	var total *float64
	err := s.db.Model(&model.TradeLogModel{}).
		Where("closed_at >= ?", start).
		Select("SUM(pn_l)").
		Scan(&total).Error
	if err != nil || total == nil {
		return 0, err
	}
	return *total, nil
}

func (s *GormStore) TradesToday(symbol string, day time.Time) (int, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	var count int64
	err := s.db.Model(&model.TradeLogModel{}).
		Where("symbol = ? AND opened_at >= ?", symbol, start).
		Count(&count).Error
	return int(count), err
}

// --- cooldown state --------------------------------------------------------

func (s *GormStore) loadCooldowns() error {
	var rows []model.CooldownModel
	if err := s.db.Find(&rows).Error; err != nil {
		return err
	}
	s.mu.Lock()
	for _, r := range rows {
		s.cooldowns[r.Symbol] = r.LastDecision
	}
	s.mu.Unlock()
	return nil
}

func (s *GormStore) LastDecision(symbol string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.cooldowns[symbol]
	return at, ok
}

func (s *GormStore) SetLastDecision(symbol string, at time.Time) error {
	s.mu.Lock()
	s.cooldowns[symbol] = at
	s.mu.Unlock()
	rec := model.CooldownModel{Symbol: symbol, LastDecision: at}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_decision"}),
	}).Create(&rec).Error
}

// --- global job bookkeeping ------------------------------------------------

func (s *GormStore) LastJobRun(name string) (int, bool) {
	var row model.JobRunModel
	if err := s.db.Where("name = ?", name).First(&row).Error; err != nil {
		return 0, false
	}
	return row.Day, true
}

func (s *GormStore) SetLastJobRun(name string, day int) error {
	rec := model.JobRunModel{Name: name, Day: day, FiredAt: time.Now()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"day", "fired_at"}),
	}).Create(&rec).Error
}

// --- equity ----------------------------------------------------------------

func (s *GormStore) AppendEquity(snapshot types.AccountSnapshot) error {
	rec := model.EquitySnapshotModel{Equity: snapshot.Equity, CreatedAt: snapshot.UpdatedAt}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return s.db.Create(&rec).Error
}
