// Package agent hosts the decision loop. A single goroutine owns all trading
// state and consumes two inputs: a command inbox and a cycle ticker. Cycles
// never overlap and commands only run between cycles.
package agent

import (
	"context"
	"fmt"
	"time"

	"stacker/internal/gateway/exchange"
	"stacker/internal/indicator"
	"stacker/internal/logger"
	"stacker/internal/market"
	"stacker/internal/risk"
	"stacker/internal/strategy"
)

type Options struct {
	Symbol          string
	CycleInterval   time.Duration
	ExchangeTimeout time.Duration
	PanicTTL        time.Duration
	AutoStart       bool
	ProfilePath     string
	StrategyName    string
	OutboxSize      int
}

func (o *Options) applyFallbacks() {
	if o.CycleInterval <= 0 {
		o.CycleInterval = time.Minute
	}
	if o.ExchangeTimeout <= 0 {
		o.ExchangeTimeout = 10 * time.Second
	}
	if o.PanicTTL <= 0 {
		o.PanicTTL = 5 * time.Minute
	}
	if o.StrategyName == "" {
		o.StrategyName = "fusion"
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = 128
	}
}

// DecisionRecord is the last decision the loop produced, kept for status
// queries and the decision log.
type DecisionRecord struct {
	Action     strategy.Action
	Confidence float64
	Reasons    []string
	Price      float64
	At         time.Time
}

type Agent struct {
	opts        Options
	ex          exchange.Exchange
	src         market.Source
	history     *market.History
	gate        *risk.Gate
	strat       strategy.Strategy
	params      strategy.Params
	indSettings indicator.Settings

	cmdCh  chan Command
	outbox chan Event

	// 以下字段只由事件循环 goroutine 读写
	running      bool
	mirror       []exchange.Position
	lastDecision DecisionRecord
	lastBalance  exchange.Balance
	lastErr      string
	cycles       int64
	panicReq     *PanicRequest
	currentDay   string

	now func() time.Time
}

func New(opts Options, ex exchange.Exchange, src market.Source, history *market.History,
	gate *risk.Gate, params strategy.Params, indSettings indicator.Settings) (*Agent, error) {
	opts.applyFallbacks()
	if ex == nil || src == nil || history == nil || gate == nil {
		return nil, fmt.Errorf("agent requires exchange, price source, history and risk gate")
	}
	strat, err := strategy.New(opts.StrategyName, params)
	if err != nil {
		return nil, err
	}
	return &Agent{
		opts:        opts,
		ex:          ex,
		src:         src,
		history:     history,
		gate:        gate,
		strat:       strat,
		params:      params,
		indSettings: indSettings,
		cmdCh:       make(chan Command, 32),
		outbox:      make(chan Event, opts.OutboxSize),
		running:     opts.AutoStart,
		now:         time.Now,
	}, nil
}

// Outbox exposes the event stream consumed by store, notifier and publisher.
func (a *Agent) Outbox() <-chan Event { return a.outbox }

// Run drives the loop until ctx is cancelled. It must be called exactly once.
func (a *Agent) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.opts.CycleInterval)
	defer ticker.Stop()
	defer close(a.outbox)

	logger.Infof("agent loop started symbol=%s interval=%s strategy=%s running=%v",
		a.opts.Symbol, a.opts.CycleInterval, a.strat.Name(), a.running)

	for {
		select {
		case <-ctx.Done():
			logger.Infof("agent loop stopping: %v", ctx.Err())
			return nil
		case cmd := <-a.cmdCh:
			a.handleCommand(ctx, cmd)
		case <-ticker.C:
			if !a.running {
				continue
			}
			a.runCycle(ctx)
		}
	}
}

// callCtx derives the per-call timeout for collaborator I/O.
func (a *Agent) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.opts.ExchangeTimeout)
}
