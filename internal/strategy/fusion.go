package strategy

import (
	"fmt"
	"math"

	"stacker/internal/indicator"
)

// FusionStrategy 融合全部规则族的加权投票。
type FusionStrategy struct {
	params Params
}

func (f *FusionStrategy) Name() string { return "fusion" }

func (f *FusionStrategy) Evaluate(snap indicator.Snapshot, streak StreakView) Decision {
	if !snap.HasCore() {
		return hold("insufficient history for core indicators")
	}

	votes := []vote{
		ruleCrossover(snap),
		ruleOscillator(snap),
		ruleBands(snap),
		ruleMomentum(snap),
		ruleDivergence(snap, f.params.DivergenceLookback),
		ruleTrend(snap),
	}

	var buyWeight, sellWeight float64
	var reasons []string
	for _, v := range votes {
		if !v.fired {
			continue
		}
		w := f.params.weight(v.family)
		if w <= 0 {
			continue
		}
		if v.direction > 0 {
			buyWeight += w
		} else {
			sellWeight += w
		}
		reasons = append(reasons, v.reason)
	}

	net := buyWeight - sellWeight
	threshold := f.params.FusionThreshold
	if streak != nil && f.params.StreakDampenAfter > 0 && streak.ConsecutiveLosses() >= f.params.StreakDampenAfter {
		threshold *= f.params.StreakDampenFactor
		reasons = append(reasons, fmt.Sprintf("threshold raised to %.2f after %d consecutive losses",
			threshold, streak.ConsecutiveLosses()))
	}

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

	confidence := math.Abs(net)
	agreeing := 0
	dir := +1
	if action == ActionSell {
		dir = -1
	}
	for _, v := range votes {
		if v.fired && v.direction == dir {
			agreeing++
		}
	}
	if f.params.ConfluenceMinVotes > 0 && agreeing >= f.params.ConfluenceMinVotes {
		confidence += f.params.ConfluenceBonus
		reasons = append(reasons, fmt.Sprintf("%d rules agree, confluence bonus applied", agreeing))
	}
	confidence = clampConfidence(confidence)

	return softenForVolatility(f.params, snap, Decision{Action: action, Confidence: confidence, Reasons: reasons})
}

// softenForVolatility 年化波动率越过上限时把方向性决策软化为观望并压低
// 置信度；置信度达到 HighConfidenceOverride 的强信号不受软化影响。
func softenForVolatility(params Params, snap indicator.Snapshot, d Decision) Decision {
	if params.VolatilityCeiling <= 0 || !snap.Volatility.OK || snap.Volatility.V <= params.VolatilityCeiling {
		return d
	}
	if params.HighConfidenceOverride > 0 && d.Confidence >= params.HighConfidenceOverride {
		d.Reasons = append(d.Reasons, fmt.Sprintf(
			"annualized volatility %.2f above ceiling %.2f, overridden by confidence %.2f",
			snap.Volatility.V, params.VolatilityCeiling, d.Confidence))
		return d
	}
	return Decision{
		Action:     ActionHold,
		Confidence: d.Confidence / 2,
		Reasons: append(d.Reasons, fmt.Sprintf(
			"annualized volatility %.2f above ceiling %.2f, standing aside",
			snap.Volatility.V, params.VolatilityCeiling)),
	}
}
