package tradelog

import (
	"encoding/json"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"stacker/internal/agent"
)

// Store persists decisions and settled trades into sqlite.
type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening trade log failed: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
	}
	if err := db.AutoMigrate(&DecisionRow{}, &TradeRow{}); err != nil {
		return nil, fmt.Errorf("trade log migration failed: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) AppendDecision(d agent.DecisionEvent) error {
	reasons, err := json.Marshal(d.Reasons)
	if err != nil {
		return err
	}
	row := DecisionRow{
		Action:     string(d.Action),
		Confidence: d.Confidence,
		Reasons:    reasons,
		Price:      d.Price,
		At:         d.At,
	}
	return s.db.Create(&row).Error
}

// AppendTrade 以 position_id 去重：对账与平仓路径可能报同一笔。
func (s *Store) AppendTrade(t agent.TradeClosed) error {
	row := TradeRow{
		PositionID:      t.PositionID,
		Side:            t.Side,
		EntryPrice:      t.EntryPrice,
		ExitPrice:       t.ExitPrice,
		Quantity:        t.Quantity,
		RealizedPnLSats: t.RealizedPnLSats,
		External:        t.External,
		OpenedAt:        t.OpenedAt,
		ClosedAt:        t.ClosedAt,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "position_id"}},
		DoNothing: true,
	}).Create(&row).Error
}

func (s *Store) RecentDecisions(limit int) ([]DecisionRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []DecisionRow
	err := s.db.Order("at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (s *Store) RecentTrades(limit int) ([]TradeRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []TradeRow
	err := s.db.Order("closed_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
