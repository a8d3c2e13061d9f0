// Package app assembles the object graph and owns process lifetime.
package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"stacker/internal/agent"
	"stacker/internal/config"
	"stacker/internal/gateway/eventbus"
	"stacker/internal/gateway/exchange"
	"stacker/internal/gateway/notifier"
	"stacker/internal/indicator"
	"stacker/internal/logger"
	"stacker/internal/market"
	"stacker/internal/pkg/circuit"
	"stacker/internal/risk"
	"stacker/internal/scheduler"
	"stacker/internal/store/tradelog"
	"stacker/internal/strategy"
	adminhttp "stacker/internal/transport/http/admin"
)

type App struct {
	cfg       *config.Config
	agent     *agent.Agent
	server    *adminhttp.Server
	store     *tradelog.Store
	notify    notifier.TextNotifier
	publisher eventbus.Publisher
}

func New(cfg *config.Config) (*App, error) {
	history := market.NewHistory(cfg.Market.HistorySize)
	src, err := buildPriceSource(cfg.Market)
	if err != nil {
		return nil, err
	}

	ex, err := buildExchange(cfg.Exchange, history)
	if err != nil {
		return nil, err
	}

	gate := risk.NewGate(risk.Limits{
		MaxOpenPositions:    cfg.Risk.MaxOpenPositions,
		MinPositionSats:     cfg.Risk.MinPositionSats,
		MaxPositionSats:     cfg.Risk.MaxPositionSats,
		MaxLeverage:         cfg.Risk.MaxLeverage,
		DefaultLeverage:     cfg.Risk.DefaultLeverage,
		RiskPerTradePct:     cfg.Risk.RiskPerTradePct,
		DailyLossLimitSats:  cfg.Risk.DailyLossLimitSats,
		ReserveSats:         cfg.Risk.ReserveSats,
		MaxDrawdownPct:      cfg.Risk.MaxDrawdownPct,
		MaxPortfolioHeatPct: cfg.Risk.MaxPortfolioHeatPct,
	})

	interval, _ := scheduler.ParseIntervalDuration(cfg.Agent.CycleInterval)
	indSettings := indicator.Settings{
		FastPeriod:     cfg.Strategy.FastPeriod,
		SlowPeriod:     cfg.Strategy.SlowPeriod,
		RSIPeriod:      cfg.Strategy.RSIPeriod,
		StochPeriod:    cfg.Strategy.StochPeriod,
		BandPeriod:     cfg.Strategy.BandPeriod,
		BandWidth:      cfg.Strategy.BandWidth,
		MACDFast:       cfg.Strategy.MACDFast,
		MACDSlow:       cfg.Strategy.MACDSlow,
		MACDSignal:     cfg.Strategy.MACDSignal,
		SampleInterval: interval,
	}

	ag, err := agent.New(agent.Options{
		Symbol:          cfg.Market.Symbol,
		CycleInterval:   interval,
		ExchangeTimeout: time.Duration(cfg.Agent.ExchangeTimeoutSeconds) * time.Second,
		PanicTTL:        time.Duration(cfg.Agent.PanicTTLSeconds) * time.Second,
		AutoStart:       cfg.Agent.AutoStart,
		ProfilePath:     cfg.Strategy.ProfilePath,
		StrategyName:    cfg.Strategy.Active,
	}, ex, src, history, gate, strategy.ParamsFromConfig(cfg.Strategy), indSettings)
	if err != nil {
		return nil, err
	}

	store, err := tradelog.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	var notify notifier.TextNotifier = notifier.Noop{}
	if cfg.Notify.Telegram.Enabled {
		notify = notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
	}

	var publisher eventbus.Publisher
	if cfg.Events.Enabled {
		publisher, err = eventbus.NewKafka(cfg.Events.Brokers, cfg.Events.Topic)
		if err != nil {
			return nil, err
		}
	}

	server, err := adminhttp.NewServer(adminhttp.ServerConfig{
		Addr:  cfg.App.HTTPAddr,
		Agent: ag,
		Logs:  store,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		agent:     ag,
		server:    server,
		store:     store,
		notify:    notify,
		publisher: publisher,
	}, nil
}

func buildPriceSource(cfg config.MarketConfig) (market.Source, error) {
	var primary, fallback market.Source
	switch cfg.PrimarySource {
	case "binance":
		primary = market.NewBinanceSource(cfg.Symbol)
		if cfg.FallbackURL != "" {
			fallback = market.NewHTTPSource(cfg.FallbackURL, cfg.FallbackPricePath)
		}
	case "http":
		primary = market.NewHTTPSource(cfg.FallbackURL, cfg.FallbackPricePath)
	default:
		return nil, fmt.Errorf("unsupported price source: %q", cfg.PrimarySource)
	}
	breaker := circuit.NewBreaker("price-source", cfg.BreakerThreshold,
		time.Duration(cfg.BreakerCooldownSeconds)*time.Second)
	return market.NewChain(primary, fallback, breaker), nil
}

func buildExchange(cfg config.ExchangeConfig, history *market.History) (exchange.Exchange, error) {
	switch cfg.Mode {
	case "paper":
		return exchange.NewPaper(cfg.InitialBalanceSats, func() (float64, bool) {
			last, ok := history.Last()
			if !ok {
				return 0, false
			}
			return last.Price, true
		}), nil
	default:
		return nil, fmt.Errorf("unsupported exchange mode: %q", cfg.Mode)
	}
}

// Run 启动事件循环、HTTP 管理面、事件分发与 profile 热更新监听。
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.agent.Run(ctx) })
	g.Go(func() error { return a.server.Start(ctx) })
	g.Go(func() error { a.dispatchEvents(); return nil })

	if path := a.cfg.Strategy.ProfilePath; path != "" {
		err := config.WatchFile(ctx, path, func() {
			wctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if res, err := a.agent.Send(wctx, agent.CmdReloadProfile, ""); err != nil {
				logger.Warnf("profile reload dispatch failed: %v", err)
			} else if !res.OK {
				logger.Warnf("profile reload rejected: %s", res.Message)
			}
		})
		if err != nil {
			logger.Warnf("profile watcher unavailable (%s): %v", path, err)
		}
	}

	err := g.Wait()

	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	_ = a.store.Close()
	return err
}

// dispatchEvents 消费 agent 的事件流并扇出到存储、通知与总线。
// 任何下游失败只告警，不回压决策循环。
func (a *App) dispatchEvents() {
	symbol := a.cfg.Market.Symbol
	for ev := range a.agent.Outbox() {
		switch ev.Type {
		case agent.EventDecision:
			if ev.Decision == nil {
				continue
			}
			if err := a.store.AppendDecision(*ev.Decision); err != nil {
				logger.Warnf("decision log append failed: %v", err)
			}
			if text := notifier.RenderDecision(symbol, *ev.Decision); text != "" {
				if err := a.notify.SendText(text); err != nil {
					logger.Warnf("decision notify failed: %v", err)
				}
			}
		case agent.EventTradeOpened:
			if ev.Opened == nil {
				continue
			}
			if err := a.notify.SendText(notifier.RenderTradeOpened(symbol, *ev.Opened)); err != nil {
				logger.Warnf("trade-open notify failed: %v", err)
			}
		case agent.EventTradeClosed:
			if ev.Closed == nil {
				continue
			}
			if err := a.store.AppendTrade(*ev.Closed); err != nil {
				logger.Warnf("trade log append failed: %v", err)
			}
			if err := a.notify.SendText(notifier.RenderTradeClosed(symbol, *ev.Closed)); err != nil {
				logger.Warnf("trade-close notify failed: %v", err)
			}
		case agent.EventPanic:
			if err := a.notify.SendText(notifier.RenderPanic(symbol, ev.Message, ev.At)); err != nil {
				logger.Warnf("panic notify failed: %v", err)
			}
		}
		if a.publisher != nil {
			if err := a.publisher.Publish(ev); err != nil {
				logger.Warnf("event publish failed: %v", err)
			}
		}
	}
}
