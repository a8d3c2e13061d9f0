package config

// Config 是 stacker 的主配置载体。
type Config struct {
	App      AppConfig      `yaml:"app"`
	Market   MarketConfig   `yaml:"market"`
	Exchange ExchangeConfig `yaml:"exchange"`
	Strategy StrategyConfig `yaml:"strategy"`
	Risk     RiskConfig     `yaml:"risk"`
	Agent    AgentConfig    `yaml:"agent"`
	Notify   NotifyConfig   `yaml:"notify"`
	Events   EventsConfig   `yaml:"events"`
	Store    StoreConfig    `yaml:"store"`
}

type AppConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	LogPath  string `yaml:"log_path"`
	HTTPAddr string `yaml:"http_addr"`
}

// MarketConfig 描述行情来源与历史缓存。
type MarketConfig struct {
	Symbol                 string `yaml:"symbol"`
	HistorySize            int    `yaml:"history_size"`
	PrimarySource          string `yaml:"primary_source"` // "binance" | "http"
	FallbackURL            string `yaml:"fallback_url"`
	FallbackPricePath      string `yaml:"fallback_price_path"` // gjson 取价路径，如 "bitcoin.usd"
	BreakerThreshold       int    `yaml:"breaker_threshold"`
	BreakerCooldownSeconds int    `yaml:"breaker_cooldown_seconds"`
}

// ExchangeConfig 控制执行端。paper 模式在内存中撮合，便于空跑验证。
type ExchangeConfig struct {
	Mode               string `yaml:"mode"` // "paper"
	InitialBalanceSats int64  `yaml:"initial_balance_sats"`
}

// StrategyConfig 汇集指标周期与信号融合参数。
type StrategyConfig struct {
	Active             string             `yaml:"active"` // "fusion" | "basic"
	ProfilePath        string             `yaml:"profile_path"`
	FastPeriod         int                `yaml:"fast_period"`
	SlowPeriod         int                `yaml:"slow_period"`
	RSIPeriod          int                `yaml:"rsi_period"`
	StochPeriod        int                `yaml:"stoch_period"`
	BandPeriod         int                `yaml:"band_period"`
	BandWidth          float64            `yaml:"band_width"`
	MACDFast           int                `yaml:"macd_fast"`
	MACDSlow           int                `yaml:"macd_slow"`
	MACDSignal         int                `yaml:"macd_signal"`
	DivergenceLookback int                `yaml:"divergence_lookback"`
	FusionThreshold    float64            `yaml:"fusion_threshold"`
	BasicThreshold     float64            `yaml:"basic_threshold"`
	Weights            map[string]float64 `yaml:"weights"`
	ConfluenceMinVotes int                `yaml:"confluence_min_votes"`
	ConfluenceBonus    float64            `yaml:"confluence_bonus"`
	VolatilityCeiling  float64            `yaml:"volatility_ceiling"`
	// 置信度达到该值的决策不被波动率软化拦下
	HighConfidenceOverride float64 `yaml:"high_confidence_override"`
	StreakDampenAfter      int     `yaml:"streak_dampen_after"`
	StreakDampenFactor     float64 `yaml:"streak_dampen_factor"`
}

// RiskConfig 是风控闸门的全部限额。金额单位统一为聪（sats）。
type RiskConfig struct {
	MaxOpenPositions    int     `yaml:"max_open_positions"`
	MinPositionSats     int64   `yaml:"min_position_sats"`
	MaxPositionSats     int64   `yaml:"max_position_sats"`
	MaxLeverage         int     `yaml:"max_leverage"`
	DefaultLeverage     int     `yaml:"default_leverage"`
	RiskPerTradePct     float64 `yaml:"risk_per_trade_pct"`
	DailyLossLimitSats  int64   `yaml:"daily_loss_limit_sats"`
	ReserveSats         int64   `yaml:"reserve_sats"`
	MaxDrawdownPct      float64 `yaml:"max_drawdown_pct"`
	MaxPortfolioHeatPct float64 `yaml:"max_portfolio_heat_pct"`
}

type AgentConfig struct {
	CycleInterval          string `yaml:"cycle_interval"`
	ExchangeTimeoutSeconds int    `yaml:"exchange_timeout_seconds"`
	PanicTTLSeconds        int    `yaml:"panic_ttl_seconds"`
	AutoStart              bool   `yaml:"auto_start"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// EventsConfig 控制可选的 Kafka 事件外发。
type EventsConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}
