package strategy

import (
	"fmt"
	"math"

	"stacker/internal/config"
	"stacker/internal/indicator"
)

// 中文说明：
// 策略层把指标快照融合成一个带置信度的方向决策。
// 所有策略只在周期边界被调用/替换，实现内部不做并发防护。

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Decision 是策略输出：方向、置信度与可读的依据列表。
type Decision struct {
	Action     Action
	Confidence float64
	Reasons    []string
}

func hold(reasons ...string) Decision {
	return Decision{Action: ActionHold, Reasons: reasons}
}

// StreakView 暴露风控侧的连亏计数，用于输出端的阈值抬升。
type StreakView interface {
	ConsecutiveLosses() int
}

// Strategy 在每个决策周期被调用一次。
type Strategy interface {
	Name() string
	Evaluate(snap indicator.Snapshot, streak StreakView) Decision
}

// Params 汇集融合参数，来自主配置并可被 profile 覆盖。
type Params struct {
	Weights            map[string]float64
	FusionThreshold    float64
	BasicThreshold     float64
	ConfluenceMinVotes int
	ConfluenceBonus    float64
	VolatilityCeiling  float64
	// 置信度达到 HighConfidenceOverride 的决策不被波动率软化拦下
	HighConfidenceOverride float64
	StreakDampenAfter      int
	StreakDampenFactor     float64
	DivergenceLookback     int
}

func ParamsFromConfig(cfg config.StrategyConfig) Params {
	weights := make(map[string]float64, len(cfg.Weights))
	for k, v := range cfg.Weights {
		weights[k] = v
	}
	return Params{
		Weights:                weights,
		FusionThreshold:        cfg.FusionThreshold,
		BasicThreshold:         cfg.BasicThreshold,
		ConfluenceMinVotes:     cfg.ConfluenceMinVotes,
		ConfluenceBonus:        cfg.ConfluenceBonus,
		VolatilityCeiling:      cfg.VolatilityCeiling,
		HighConfidenceOverride: cfg.HighConfidenceOverride,
		StreakDampenAfter:      cfg.StreakDampenAfter,
		StreakDampenFactor:     cfg.StreakDampenFactor,
		DivergenceLookback:     cfg.DivergenceLookback,
	}
}

func (p Params) weight(name string) float64 {
	if w, ok := p.Weights[name]; ok {
		return w
	}
	return 0
}

// New 按名字构建策略。未知名字报错，调用方保持原策略不变。
func New(name string, params Params) (Strategy, error) {
	switch name {
	case "fusion":
		return &FusionStrategy{params: params}, nil
	case "basic":
		return &BasicStrategy{params: params}, nil
	default:
		return nil, fmt.Errorf("unknown strategy: %q", name)
	}
}

func Known() []string { return []string{"fusion", "basic"} }

func clampConfidence(c float64) float64 {
	return math.Min(c, 1.0)
}
