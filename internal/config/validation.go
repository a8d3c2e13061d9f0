package config

import (
	"fmt"
	"strings"

	"stacker/internal/scheduler"
)

func validate(c *Config) error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Exchange.validate(); err != nil {
		return err
	}
	if err := c.Strategy.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Agent.validate(); err != nil {
		return err
	}
	if err := c.Events.validate(); err != nil {
		return err
	}
	return nil
}

func (a AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("app.log_level invalid: %q", a.LogLevel)
	}
}

func (m MarketConfig) validate() error {
	if strings.TrimSpace(m.Symbol) == "" {
		return fmt.Errorf("market.symbol cannot be empty")
	}
	switch m.PrimarySource {
	case "binance", "http":
	default:
		return fmt.Errorf("market.primary_source must be binance or http, got %q", m.PrimarySource)
	}
	if m.PrimarySource == "http" && strings.TrimSpace(m.FallbackURL) == "" {
		return fmt.Errorf("market.fallback_url required when primary_source=http")
	}
	if m.FallbackURL != "" && strings.TrimSpace(m.FallbackPricePath) == "" {
		return fmt.Errorf("market.fallback_price_path required when fallback_url is set")
	}
	return nil
}

func (e ExchangeConfig) validate() error {
	switch e.Mode {
	case "paper":
	default:
		return fmt.Errorf("exchange.mode unsupported: %q", e.Mode)
	}
	return nil
}

func (s StrategyConfig) validate() error {
	switch s.Active {
	case "fusion", "basic":
	default:
		return fmt.Errorf("strategy.active must be fusion or basic, got %q", s.Active)
	}
	if s.FastPeriod >= s.SlowPeriod {
		return fmt.Errorf("strategy.fast_period (%d) must be smaller than slow_period (%d)", s.FastPeriod, s.SlowPeriod)
	}
	if s.MACDFast >= s.MACDSlow {
		return fmt.Errorf("strategy.macd_fast (%d) must be smaller than macd_slow (%d)", s.MACDFast, s.MACDSlow)
	}
	if s.DivergenceLookback < 6 {
		return fmt.Errorf("strategy.divergence_lookback must be at least 6, got %d", s.DivergenceLookback)
	}
	if s.FusionThreshold <= s.BasicThreshold {
		return fmt.Errorf("strategy.fusion_threshold (%.2f) must exceed basic_threshold (%.2f)", s.FusionThreshold, s.BasicThreshold)
	}
	if s.HighConfidenceOverride < 0 || s.HighConfidenceOverride > 1 {
		return fmt.Errorf("strategy.high_confidence_override out of range [0,1]: %.2f", s.HighConfidenceOverride)
	}
	for name, w := range s.Weights {
		if w < 0 {
			return fmt.Errorf("strategy.weights.%s cannot be negative", name)
		}
	}
	return nil
}

func (r RiskConfig) validate() error {
	if r.MinPositionSats > r.MaxPositionSats {
		return fmt.Errorf("risk.min_position_sats (%d) exceeds max_position_sats (%d)", r.MinPositionSats, r.MaxPositionSats)
	}
	if r.DefaultLeverage > r.MaxLeverage {
		return fmt.Errorf("risk.default_leverage (%d) exceeds max_leverage (%d)", r.DefaultLeverage, r.MaxLeverage)
	}
	if r.RiskPerTradePct <= 0 || r.RiskPerTradePct > 100 {
		return fmt.Errorf("risk.risk_per_trade_pct out of range: %.2f", r.RiskPerTradePct)
	}
	if r.MaxDrawdownPct <= 0 || r.MaxDrawdownPct > 100 {
		return fmt.Errorf("risk.max_drawdown_pct out of range: %.2f", r.MaxDrawdownPct)
	}
	return nil
}

func (a AgentConfig) validate() error {
	if _, ok := scheduler.ParseIntervalDuration(a.CycleInterval); !ok {
		return fmt.Errorf("agent.cycle_interval invalid: %q", a.CycleInterval)
	}
	if a.PanicTTLSeconds < 30 {
		return fmt.Errorf("agent.panic_ttl_seconds must be at least 30, got %d", a.PanicTTLSeconds)
	}
	return nil
}

func (e EventsConfig) validate() error {
	if e.Enabled && len(e.Brokers) == 0 {
		return fmt.Errorf("events.brokers cannot be empty when events.enabled=true")
	}
	return nil
}
