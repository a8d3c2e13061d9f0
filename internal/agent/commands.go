package agent

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"stacker/internal/logger"
	"stacker/internal/risk"
	"stacker/internal/strategy"
)

type CommandType string

const (
	CmdStart          CommandType = "start"
	CmdStop           CommandType = "stop"
	CmdStatus         CommandType = "status"
	CmdForceDecision  CommandType = "force_decision"
	CmdPanic          CommandType = "panic"
	CmdConfirmPanic   CommandType = "confirm_panic"
	CmdCloseAll       CommandType = "close_all"
	CmdSwitchStrategy CommandType = "switch_strategy"
	CmdReloadProfile  CommandType = "reload_profile"
)

type Command struct {
	Type         CommandType
	StrategyName string
	ReplyCh      chan CommandResult
}

// CloseOutcome reports one position of a close-all / panic sweep.
type CloseOutcome struct {
	PositionID string `json:"position_id"`
	PnLSats    int64  `json:"pnl_sats,omitempty"`
	Error      string `json:"error,omitempty"`
}

type CommandResult struct {
	OK      bool           `json:"ok"`
	Message string         `json:"message"`
	Status  *Status        `json:"status,omitempty"`
	Closed  []CloseOutcome `json:"closed,omitempty"`
}

// Status is a copy of the loop state, safe to hand to other goroutines.
type Status struct {
	Running        bool            `json:"running"`
	Strategy       string          `json:"strategy"`
	Symbol         string          `json:"symbol"`
	Cycles         int64           `json:"cycles"`
	HistoryLen     int             `json:"history_len"`
	LastPrice      float64         `json:"last_price"`
	BalanceSats    int64           `json:"balance_sats"`
	OpenPositions  int             `json:"open_positions"`
	LastDecision   *DecisionRecord `json:"last_decision,omitempty"`
	Metrics        risk.Metrics    `json:"metrics"`
	PanicPending   bool            `json:"panic_pending"`
	PanicExpiresAt time.Time       `json:"panic_expires_at,omitempty"`
	LastError      string          `json:"last_error,omitempty"`
}

// Send delivers a command to the loop and waits for the structured result.
func (a *Agent) Send(ctx context.Context, cmdType CommandType, strategyName string) (CommandResult, error) {
	cmd := Command{Type: cmdType, StrategyName: strategyName, ReplyCh: make(chan CommandResult, 1)}
	select {
	case a.cmdCh <- cmd:
	case <-ctx.Done():
		return CommandResult{}, fmt.Errorf("agent busy: %w", ctx.Err())
	}
	select {
	case res := <-cmd.ReplyCh:
		return res, nil
	case <-ctx.Done():
		return CommandResult{}, fmt.Errorf("awaiting agent reply: %w", ctx.Err())
	}
}

func (a *Agent) handleCommand(ctx context.Context, cmd Command) {
	start := a.now()
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("command %s panicked: %v", cmd.Type, r)
			debug.PrintStack()
			reply(cmd, CommandResult{OK: false, Message: fmt.Sprintf("internal error: %v", r)})
		}
		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			logger.Warnf("command %s took %s", cmd.Type, elapsed)
		}
	}()

	switch cmd.Type {
	case CmdStart:
		if a.running {
			reply(cmd, CommandResult{OK: true, Message: "already running"})
			return
		}
		a.running = true
		logger.Infof("agent started")
		reply(cmd, CommandResult{OK: true, Message: "started"})

	case CmdStop:
		if !a.running {
			reply(cmd, CommandResult{OK: true, Message: "already stopped"})
			return
		}
		a.running = false
		logger.Infof("agent stopped")
		reply(cmd, CommandResult{OK: true, Message: "stopped"})

	case CmdStatus:
		st := a.snapshotStatus()
		reply(cmd, CommandResult{OK: true, Message: "ok", Status: &st})

	case CmdForceDecision:
		a.runCycle(ctx)
		st := a.snapshotStatus()
		reply(cmd, CommandResult{OK: true, Message: "cycle executed", Status: &st})

	case CmdPanic:
		reply(cmd, a.handlePanicRequest())

	case CmdConfirmPanic:
		reply(cmd, a.handlePanicConfirm(ctx))

	case CmdCloseAll:
		outcomes := a.closeAll(ctx)
		reply(cmd, closeSweepResult(outcomes))

	case CmdSwitchStrategy:
		reply(cmd, a.switchStrategy(cmd.StrategyName))

	case CmdReloadProfile:
		reply(cmd, a.reloadProfile())

	default:
		reply(cmd, CommandResult{OK: false, Message: fmt.Sprintf("unknown command: %s", cmd.Type)})
	}
}

func reply(cmd Command, res CommandResult) {
	if cmd.ReplyCh == nil {
		return
	}
	select {
	case cmd.ReplyCh <- res:
	default:
	}
}

func (a *Agent) snapshotStatus() Status {
	st := Status{
		Running:       a.running,
		Strategy:      a.strat.Name(),
		Symbol:        a.opts.Symbol,
		Cycles:        a.cycles,
		HistoryLen:    a.history.Len(),
		BalanceSats:   a.lastBalance.TotalSats,
		OpenPositions: len(a.mirror),
		Metrics:       a.gate.Metrics(),
		LastError:     a.lastErr,
	}
	if last, ok := a.history.Last(); ok {
		st.LastPrice = last.Price
	}
	if a.lastDecision.At != (time.Time{}) {
		d := a.lastDecision
		st.LastDecision = &d
	}
	if a.panicReq != nil {
		st.PanicPending = true
		st.PanicExpiresAt = a.panicReq.At.Add(a.opts.PanicTTL)
	}
	return st
}

// switchStrategy 只在周期间隙执行，未知名字直接拒绝并保留原策略。
func (a *Agent) switchStrategy(name string) CommandResult {
	next, err := strategy.New(name, a.params)
	if err != nil {
		return CommandResult{OK: false, Message: fmt.Sprintf("%v (known: %v)", err, strategy.Known())}
	}
	prev := a.strat.Name()
	a.strat = next
	logger.Infof("strategy switched %s -> %s", prev, name)
	return CommandResult{OK: true, Message: fmt.Sprintf("strategy switched from %s to %s", prev, name)}
}

func (a *Agent) reloadProfile() CommandResult {
	if a.opts.ProfilePath == "" {
		return CommandResult{OK: false, Message: "no profile path configured"}
	}
	profile, err := strategy.LoadProfile(a.opts.ProfilePath)
	if err != nil {
		return CommandResult{OK: false, Message: err.Error()}
	}
	params, err := profile.Apply(a.params)
	if err != nil {
		return CommandResult{OK: false, Message: err.Error()}
	}
	next, err := strategy.New(a.strat.Name(), params)
	if err != nil {
		return CommandResult{OK: false, Message: err.Error()}
	}
	a.params = params
	a.strat = next
	logger.Infof("strategy profile reloaded from %s", a.opts.ProfilePath)
	return CommandResult{OK: true, Message: "profile applied"}
}

func closeSweepResult(outcomes []CloseOutcome) CommandResult {
	failed := 0
	for _, o := range outcomes {
		if o.Error != "" {
			failed++
		}
	}
	msg := fmt.Sprintf("closed %d/%d positions", len(outcomes)-failed, len(outcomes))
	return CommandResult{OK: failed == 0, Message: msg, Closed: outcomes}
}
