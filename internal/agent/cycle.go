package agent

import (
	"context"
	"errors"
	"fmt"

	"stacker/internal/gateway/exchange"
	"stacker/internal/indicator"
	"stacker/internal/logger"
	"stacker/internal/market"
	"stacker/internal/risk"
	"stacker/internal/strategy"
)

const reasonPositionTrackingFailure = "position tracking failure"

// runCycle 是一个完整的决策周期：取价 → 对账 → 策略 → 风控 → 执行。
// 任何一步失败都按“宁可不动”的原则处理。
func (a *Agent) runCycle(ctx context.Context) {
	a.cycles++
	a.lastErr = ""
	a.rollDayIfNeeded()

	// 1. 取价。拿不到报价本轮记一笔 HOLD，让运维能区分“没数据”和“没在跑”。
	sample, ok := a.fetchPrice(ctx)
	if !ok {
		reason := "price unavailable"
		if a.lastErr != "" {
			reason = fmt.Sprintf("price unavailable: %s", a.lastErr)
		}
		last, _ := a.history.Last()
		a.recordDecision(strategy.Decision{
			Action:  strategy.ActionHold,
			Reasons: []string{reason},
		}, last.Price)
		return
	}
	a.history.Append(sample)

	// 2. 持仓以交易所为准。读不到就立刻收手：本轮 HOLD，本地镜像不动，
	//    绝不能退回到缓存数据继续做决策。
	pctx, cancel := a.callCtx(ctx)
	upstream, err := a.ex.GetOpenPositions(pctx)
	cancel()
	if err != nil {
		a.lastErr = err.Error()
		logger.Errorf("authoritative position fetch failed, holding: %v", err)
		a.recordDecision(strategy.Decision{
			Action:  strategy.ActionHold,
			Reasons: []string{reasonPositionTrackingFailure},
		}, sample.Price)
		return
	}

	// 3. 对账：外部变化落账，镜像整体替换。
	a.reconcile(upstream, sample.Price)

	// 4. 余额。
	bctx, cancel := a.callCtx(ctx)
	balance, err := a.ex.GetBalance(bctx)
	cancel()
	if err != nil {
		a.lastErr = err.Error()
		logger.Warnf("balance fetch failed, holding this cycle: %v", err)
		a.recordDecision(strategy.Decision{
			Action:  strategy.ActionHold,
			Reasons: []string{fmt.Sprintf("balance unavailable: %v", err)},
		}, sample.Price)
		return
	}
	a.lastBalance = balance

	// 5. 策略评估。
	snap := indicator.Compute(a.history.Closes(), a.indSettings)
	decision := a.strat.Evaluate(snap, a.gate)

	// 6. 方向性决策过风控并执行。
	if decision.Action == strategy.ActionBuy || decision.Action == strategy.ActionSell {
		decision = a.execute(ctx, decision, sample.Price, balance)
	}

	a.recordDecision(decision, sample.Price)
}

func (a *Agent) fetchPrice(ctx context.Context) (market.Sample, bool) {
	pctx, cancel := a.callCtx(ctx)
	defer cancel()
	sample, err := a.src.Latest(pctx)
	if err != nil {
		if errors.Is(err, market.ErrPriceUnavailable) {
			logger.Infof("price not yet available, holding this cycle")
		} else {
			a.lastErr = err.Error()
			logger.Warnf("price fetch failed: %v", err)
		}
		return market.Sample{}, false
	}
	return sample, true
}

// execute 对买卖决策做风控审批并下单。拒绝与失败都会降级为带原因的 HOLD。
func (a *Agent) execute(ctx context.Context, decision strategy.Decision, price float64, balance exchange.Balance) strategy.Decision {
	side := exchange.SideLong
	if decision.Action == strategy.ActionSell {
		side = exchange.SideShort
	}
	sizing := a.gate.SizeFor(balance.AvailableSats, price)
	verdict := a.gate.CanOpen(risk.OpenCheck{
		Side:          side,
		MarginSats:    sizing.MarginSats,
		Leverage:      sizing.Leverage,
		Balance:       balance,
		OpenPositions: a.mirror,
	})
	if !verdict.Allowed {
		logger.Infof("risk gate rejected %s: %s", decision.Action, verdict.Reason)
		return strategy.Decision{
			Action:     strategy.ActionHold,
			Confidence: decision.Confidence,
			Reasons:    append(decision.Reasons, "risk gate: "+verdict.Reason),
		}
	}

	octx, cancel := a.callCtx(ctx)
	pos, err := a.ex.OpenPosition(octx, exchange.OpenRequest{
		Side:       side,
		MarginSats: sizing.MarginSats,
		Quantity:   sizing.Quantity,
		Leverage:   sizing.Leverage,
	})
	cancel()
	if err != nil {
		a.lastErr = err.Error()
		if exchange.Transient(err) {
			logger.Warnf("open failed (transient), retrying next cycle: %v", err)
		} else {
			logger.Errorf("open rejected by venue: %v", err)
		}
		return strategy.Decision{
			Action:     strategy.ActionHold,
			Confidence: decision.Confidence,
			Reasons:    append(decision.Reasons, fmt.Sprintf("execution failed: %v", err)),
		}
	}

	a.mirror = append(a.mirror, pos)
	logger.Infof("opened %s %s margin=%d sats lev=%dx entry=%.1f id=%s",
		pos.Side, a.opts.Symbol, pos.MarginSats, pos.Leverage, pos.EntryPrice, pos.ID)
	a.publish(Event{Type: EventTradeOpened, Opened: &TradeOpened{
		PositionID: pos.ID,
		Side:       string(pos.Side),
		EntryPrice: pos.EntryPrice,
		Quantity:   pos.Quantity,
		MarginSats: pos.MarginSats,
		Leverage:   pos.Leverage,
		OpenedAt:   pos.OpenedAt,
	}})
	return decision
}

func (a *Agent) recordDecision(decision strategy.Decision, price float64) {
	rec := DecisionRecord{
		Action:     decision.Action,
		Confidence: decision.Confidence,
		Reasons:    decision.Reasons,
		Price:      price,
		At:         a.now(),
	}
	a.lastDecision = rec
	logger.Infof("decision action=%s confidence=%.2f price=%.1f", rec.Action, rec.Confidence, price)
	a.publish(Event{Type: EventDecision, Decision: &DecisionEvent{
		Action:     rec.Action,
		Confidence: rec.Confidence,
		Reasons:    rec.Reasons,
		Price:      price,
		At:         rec.At,
	}})
}

// rollDayIfNeeded 在 UTC 日界上重置风控的当日亏损额度。
func (a *Agent) rollDayIfNeeded() {
	day := a.now().UTC().Format("2006-01-02")
	if day == a.currentDay {
		return
	}
	if a.currentDay != "" {
		a.gate.ResetDaily()
		logger.Infof("daily risk counters reset (%s)", day)
	}
	a.currentDay = day
}
