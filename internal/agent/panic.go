package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stacker/internal/gateway/exchange"
	"stacker/internal/logger"
	"stacker/internal/risk"
)

// PanicRequest 是一次待确认的紧急平仓请求。同一时刻最多存在一个，
// 新请求直接覆盖旧的。
type PanicRequest struct {
	ID        string
	At        time.Time
	Positions int
}

func (a *Agent) handlePanicRequest() CommandResult {
	req := &PanicRequest{
		ID:        uuid.NewString(),
		At:        a.now(),
		Positions: len(a.mirror),
	}
	if a.panicReq != nil {
		logger.Warnf("panic request %s superseded by %s", a.panicReq.ID, req.ID)
	}
	a.panicReq = req
	expires := req.At.Add(a.opts.PanicTTL)
	a.publish(Event{Type: EventPanic, Message: fmt.Sprintf("panic requested, %d open positions, confirm before %s",
		req.Positions, expires.Format(time.RFC3339))})
	return CommandResult{
		OK: true,
		Message: fmt.Sprintf("panic request %s pending: %d positions will be closed, confirm before %s",
			req.ID, req.Positions, expires.Format(time.RFC3339)),
	}
}

// handlePanicConfirm 先停循环，再顺序平仓，最后清除请求。
// 超时或不存在的请求给出明确原因。
func (a *Agent) handlePanicConfirm(ctx context.Context) CommandResult {
	if a.panicReq == nil {
		return CommandResult{OK: false, Message: "no panic request pending"}
	}
	age := a.now().Sub(a.panicReq.At)
	if age > a.opts.PanicTTL {
		expired := a.panicReq.ID
		a.panicReq = nil
		return CommandResult{OK: false, Message: fmt.Sprintf(
			"panic request %s expired %s ago, issue a new one", expired, (age - a.opts.PanicTTL).Round(time.Second))}
	}

	// 确认生效：先停，再平
	a.running = false
	logger.Warnf("panic confirmed (%s), loop stopped, closing %d positions", a.panicReq.ID, len(a.mirror))
	outcomes := a.closeAll(ctx)
	a.panicReq = nil

	res := closeSweepResult(outcomes)
	res.Message = "panic executed, loop stopped: " + res.Message
	a.publish(Event{Type: EventPanic, Message: res.Message})
	return res
}

// closeAll 顺序平掉镜像内全部仓位。单笔失败不阻断后续，结果逐笔上报。
func (a *Agent) closeAll(ctx context.Context) []CloseOutcome {
	outcomes := make([]CloseOutcome, 0, len(a.mirror))
	remaining := make([]exchange.Position, 0, len(a.mirror))
	for _, pos := range a.mirror {
		cctx, cancel := a.callCtx(ctx)
		res, err := a.ex.ClosePosition(cctx, pos.ID)
		cancel()
		if err != nil {
			logger.Errorf("close %s failed: %v", pos.ID, err)
			outcomes = append(outcomes, CloseOutcome{PositionID: pos.ID, Error: err.Error()})
			remaining = append(remaining, pos)
			continue
		}
		a.gate.RecordOutcome(risk.Outcome{PnLSats: res.PnLSats, MarginSats: pos.MarginSats, ClosedAt: res.ClosedAt})
		a.publish(Event{Type: EventTradeClosed, Closed: &TradeClosed{
			PositionID:      pos.ID,
			Side:            string(pos.Side),
			EntryPrice:      pos.EntryPrice,
			ExitPrice:       res.ExitPrice,
			Quantity:        pos.Quantity,
			RealizedPnLSats: res.PnLSats,
			OpenedAt:        pos.OpenedAt,
			ClosedAt:        res.ClosedAt,
		}})
		outcomes = append(outcomes, CloseOutcome{PositionID: pos.ID, PnLSats: res.PnLSats})
	}
	a.mirror = remaining
	return outcomes
}
