package agent

import (
	"time"

	"stacker/internal/logger"
	"stacker/internal/strategy"
)

type EventType string

const (
	EventDecision    EventType = "decision"
	EventTradeOpened EventType = "trade_opened"
	EventTradeClosed EventType = "trade_closed"
	EventPanic       EventType = "panic"
)

// TradeClosed is the persistence shape of a settled position.
type TradeClosed struct {
	PositionID      string    `json:"position_id"`
	Side            string    `json:"side"`
	EntryPrice      float64   `json:"entry_price"`
	ExitPrice       float64   `json:"exit_price"`
	Quantity        float64   `json:"quantity"`
	RealizedPnLSats int64     `json:"realized_pnl_sats"`
	OpenedAt        time.Time `json:"opened_at"`
	ClosedAt        time.Time `json:"closed_at"`
	// External 标记该仓位是在交易所侧被动关闭、由对账发现的
	External bool `json:"external"`
}

type TradeOpened struct {
	PositionID string    `json:"position_id"`
	Side       string    `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	MarginSats int64     `json:"margin_sats"`
	Leverage   int       `json:"leverage"`
	OpenedAt   time.Time `json:"opened_at"`
	External   bool      `json:"external"`
}

type DecisionEvent struct {
	Action     strategy.Action `json:"action"`
	Confidence float64         `json:"confidence"`
	Reasons    []string        `json:"reasons"`
	Price      float64         `json:"price"`
	At         time.Time       `json:"at"`
}

type Event struct {
	Type     EventType      `json:"type"`
	At       time.Time      `json:"at"`
	Decision *DecisionEvent `json:"decision,omitempty"`
	Opened   *TradeOpened   `json:"opened,omitempty"`
	Closed   *TradeClosed   `json:"closed,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// publish 非阻塞投递：慢消费者不能拖住决策循环，队列满了直接丢弃并告警。
func (a *Agent) publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = a.now()
	}
	select {
	case a.outbox <- ev:
	default:
		logger.Warnf("event outbox full, dropping %s event", ev.Type)
	}
}
