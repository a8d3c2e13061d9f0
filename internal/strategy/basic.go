package strategy

import (
	"fmt"
	"math"

	"stacker/internal/indicator"
)

// BasicStrategy 只看均线交叉与 RSI，阈值低于 fusion，适合做基线对照。
type BasicStrategy struct {
	params Params
}

func (b *BasicStrategy) Name() string { return "basic" }

func (b *BasicStrategy) Evaluate(snap indicator.Snapshot, _ StreakView) Decision {
	if !snap.HasCore() {
		return hold("insufficient history for core indicators")
	}

	var net float64
	var reasons []string
	if v := ruleCrossover(snap); v.fired {
		net += float64(v.direction) * b.params.weight("crossover")
		reasons = append(reasons, v.reason)
	}
	if v := ruleOscillator(snap); v.fired {
		net += float64(v.direction) * b.params.weight("oscillator")
		reasons = append(reasons, v.reason)
	}

	threshold := b.params.BasicThreshold
	var action Action
	switch {
	case net >= threshold:
		action = ActionBuy
	case net <= -threshold:
		action = ActionSell
	default:
		return Decision{
			Action:  ActionHold,
			Reasons: append(reasons, fmt.Sprintf("net weight %.2f inside threshold %.2f", net, threshold)),
		}
	}

	confidence := clampConfidence(math.Abs(net))
	return softenForVolatility(b.params, snap, Decision{Action: action, Confidence: confidence, Reasons: reasons})
}
