package tradelog

import (
	"time"

	"gorm.io/datatypes"
)

// DecisionRow 记录每个周期的最终决策，便于事后复盘。
type DecisionRow struct {
	ID         uint           `gorm:"primaryKey"`
	Action     string         `gorm:"size:8;index"`
	Confidence float64        `gorm:"not null"`
	Reasons    datatypes.JSON `gorm:"type:json"`
	Price      float64        `gorm:"not null"`
	At         time.Time      `gorm:"index"`
}

func (DecisionRow) TableName() string { return "decision_log" }

// TradeRow 是一笔已结算仓位的持久化形态。
type TradeRow struct {
	ID              uint      `gorm:"primaryKey"`
	PositionID      string    `gorm:"size:64;uniqueIndex"`
	Side            string    `gorm:"size:8"`
	EntryPrice      float64   `gorm:"not null"`
	ExitPrice       float64   `gorm:"not null"`
	Quantity        float64   `gorm:"not null"`
	RealizedPnLSats int64     `gorm:"not null"`
	External        bool      `gorm:"not null;default:false"`
	OpenedAt        time.Time `gorm:""`
	ClosedAt        time.Time `gorm:"index"`
}

func (TradeRow) TableName() string { return "trade_log" }
