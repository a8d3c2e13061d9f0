package agent

import (
	"stacker/internal/gateway/exchange"
	"stacker/internal/logger"
	"stacker/internal/risk"
)

// reconcile 用交易所快照校正本地镜像。
//
// 镜像有而上游没有的仓位视为已在外部关闭，用最新价估算出场结算；
// 上游有而镜像没有的仓位按外部开仓落账。最后镜像整体替换为上游快照，
// 因此用同一快照重复对账不会产生新事件。
func (a *Agent) reconcile(upstream []exchange.Position, price float64) {
	upstreamByID := make(map[string]exchange.Position, len(upstream))
	for _, p := range upstream {
		upstreamByID[p.ID] = p
	}
	mirrorByID := make(map[string]exchange.Position, len(a.mirror))
	for _, p := range a.mirror {
		mirrorByID[p.ID] = p
	}

	for _, p := range a.mirror {
		if _, ok := upstreamByID[p.ID]; ok {
			continue
		}
		pnl := exchange.SettlePnLSats(p, price)
		logger.Warnf("position %s closed externally, settling at %.1f pnl=%d sats", p.ID, price, pnl)
		a.gate.RecordOutcome(risk.Outcome{PnLSats: pnl, MarginSats: p.MarginSats, ClosedAt: a.now()})
		a.publish(Event{Type: EventTradeClosed, Closed: &TradeClosed{
			PositionID:      p.ID,
			Side:            string(p.Side),
			EntryPrice:      p.EntryPrice,
			ExitPrice:       price,
			Quantity:        p.Quantity,
			RealizedPnLSats: pnl,
			OpenedAt:        p.OpenedAt,
			ClosedAt:        a.now(),
			External:        true,
		}})
	}

	for _, p := range upstream {
		if _, ok := mirrorByID[p.ID]; ok {
			continue
		}
		logger.Warnf("position %s appeared upstream without local record, adopting", p.ID)
		a.publish(Event{Type: EventTradeOpened, Opened: &TradeOpened{
			PositionID: p.ID,
			Side:       string(p.Side),
			EntryPrice: p.EntryPrice,
			Quantity:   p.Quantity,
			MarginSats: p.MarginSats,
			Leverage:   p.Leverage,
			OpenedAt:   p.OpenedAt,
			External:   true,
		}})
	}

	a.mirror = append(a.mirror[:0:0], upstream...)
}
