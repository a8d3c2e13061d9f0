package config

import "strings"

// 默认值常量
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppLogPath       = "/data/logs/stacker.log"
	defaultAppHTTPAddr      = ":9985"
	defaultMarketSymbol     = "BTCUSDT"
	defaultHistorySize      = 1000
	defaultPrimarySource    = "binance"
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 60
	defaultExchangeMode     = "paper"
	defaultInitialBalance   = 1_000_000
	defaultStrategyActive   = "fusion"
	defaultCycleInterval    = "1m"
	defaultAgentTimeout     = 10
	defaultPanicTTL         = 300
	defaultStorePath        = "/data/db/stacker.db"
	defaultEventsTopic      = "stacker.events"
)

type keySet map[string]bool

func (k keySet) mark(key string) {
	k[strings.ToLower(key)] = true
}

func (k keySet) has(key string) bool {
	return k[strings.ToLower(key)]
}

// fieldDefault 描述一个“文件未显式设置且当前值无效”时才回填的默认项。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

func applyFieldDefaults(keys keySet, defaults ...fieldDefault) {
	for _, d := range defaults {
		if keys.has(d.key) {
			continue
		}
		if d.need == nil || d.need() {
			d.apply()
		}
	}
}

func stringFieldDefault(key string, target *string, value string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = value },
	}
}

func intFieldDefault(key string, target *int, value int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = value },
	}
}

func int64FieldDefault(key string, target *int64, value int64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = value },
	}
}

func floatFieldDefault(key string, target *float64, value float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = value },
	}
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Exchange.applyDefaults(keys)
	c.Strategy.applyDefaults(keys)
	c.Risk.applyDefaults(keys)
	c.Agent.applyDefaults(keys)
	c.Events.applyDefaults(keys)
	c.Store.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.symbol", &m.Symbol, defaultMarketSymbol),
		intFieldDefault("market.history_size", &m.HistorySize, defaultHistorySize),
		stringFieldDefault("market.primary_source", &m.PrimarySource, defaultPrimarySource),
		intFieldDefault("market.breaker_threshold", &m.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("market.breaker_cooldown_seconds", &m.BreakerCooldownSeconds, defaultBreakerCooldown),
	)
}

func (e *ExchangeConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("exchange.mode", &e.Mode, defaultExchangeMode),
		int64FieldDefault("exchange.initial_balance_sats", &e.InitialBalanceSats, defaultInitialBalance),
	)
}

func (s *StrategyConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("strategy.active", &s.Active, defaultStrategyActive),
		intFieldDefault("strategy.fast_period", &s.FastPeriod, 9),
		intFieldDefault("strategy.slow_period", &s.SlowPeriod, 21),
		intFieldDefault("strategy.rsi_period", &s.RSIPeriod, 14),
		intFieldDefault("strategy.stoch_period", &s.StochPeriod, 14),
		intFieldDefault("strategy.band_period", &s.BandPeriod, 20),
		floatFieldDefault("strategy.band_width", &s.BandWidth, 2.0),
		intFieldDefault("strategy.macd_fast", &s.MACDFast, 12),
		intFieldDefault("strategy.macd_slow", &s.MACDSlow, 26),
		intFieldDefault("strategy.macd_signal", &s.MACDSignal, 9),
		intFieldDefault("strategy.divergence_lookback", &s.DivergenceLookback, 10),
		floatFieldDefault("strategy.fusion_threshold", &s.FusionThreshold, 0.45),
		floatFieldDefault("strategy.basic_threshold", &s.BasicThreshold, 0.25),
		intFieldDefault("strategy.confluence_min_votes", &s.ConfluenceMinVotes, 3),
		floatFieldDefault("strategy.confluence_bonus", &s.ConfluenceBonus, 0.15),
		floatFieldDefault("strategy.volatility_ceiling", &s.VolatilityCeiling, 1.2),
		floatFieldDefault("strategy.high_confidence_override", &s.HighConfidenceOverride, 0.8),
		intFieldDefault("strategy.streak_dampen_after", &s.StreakDampenAfter, 3),
		floatFieldDefault("strategy.streak_dampen_factor", &s.StreakDampenFactor, 1.5),
	)
	if len(s.Weights) == 0 {
		s.Weights = map[string]float64{
			"crossover":  0.25,
			"oscillator": 0.2,
			"bands":      0.15,
			"momentum":   0.2,
			"divergence": 0.25,
			"trend":      0.15,
		}
	}
}

func (r *RiskConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("risk.max_open_positions", &r.MaxOpenPositions, 3),
		int64FieldDefault("risk.min_position_sats", &r.MinPositionSats, 1_000),
		int64FieldDefault("risk.max_position_sats", &r.MaxPositionSats, 100_000),
		intFieldDefault("risk.max_leverage", &r.MaxLeverage, 10),
		intFieldDefault("risk.default_leverage", &r.DefaultLeverage, 2),
		floatFieldDefault("risk.risk_per_trade_pct", &r.RiskPerTradePct, 2.0),
		int64FieldDefault("risk.daily_loss_limit_sats", &r.DailyLossLimitSats, 50_000),
		int64FieldDefault("risk.reserve_sats", &r.ReserveSats, 10_000),
		floatFieldDefault("risk.max_drawdown_pct", &r.MaxDrawdownPct, 20.0),
		floatFieldDefault("risk.max_portfolio_heat_pct", &r.MaxPortfolioHeatPct, 6.0),
	)
}

func (a *AgentConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("agent.cycle_interval", &a.CycleInterval, defaultCycleInterval),
		intFieldDefault("agent.exchange_timeout_seconds", &a.ExchangeTimeoutSeconds, defaultAgentTimeout),
		intFieldDefault("agent.panic_ttl_seconds", &a.PanicTTLSeconds, defaultPanicTTL),
	)
}

func (e *EventsConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("events.topic", &e.Topic, defaultEventsTopic),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
	)
}
