package strategy

import (
	"fmt"

	"stacker/internal/indicator"
)

// vote 是单条规则的输出：direction 为 +1（买）/-1（卖），fired=false 表示弃权。
type vote struct {
	family    string
	direction int
	reason    string
	fired     bool
}

func abstain() vote { return vote{} }

func voteFor(family string, direction int, reason string) vote {
	return vote{family: family, direction: direction, reason: reason, fired: true}
}

// ruleCrossover 快慢均线关系，金叉/死叉时理由更明确。
func ruleCrossover(snap indicator.Snapshot) vote {
	if !snap.FastMA.OK || !snap.SlowMA.OK {
		return abstain()
	}
	crossedUp := snap.FastMAPrev.OK && snap.SlowMAPrev.OK &&
		snap.FastMAPrev.V <= snap.SlowMAPrev.V && snap.FastMA.V > snap.SlowMA.V
	crossedDown := snap.FastMAPrev.OK && snap.SlowMAPrev.OK &&
		snap.FastMAPrev.V >= snap.SlowMAPrev.V && snap.FastMA.V < snap.SlowMA.V
	switch {
	case crossedUp:
		return voteFor("crossover", +1, "fast MA crossed above slow MA")
	case crossedDown:
		return voteFor("crossover", -1, "fast MA crossed below slow MA")
	case snap.FastMA.V > snap.SlowMA.V:
		return voteFor("crossover", +1, "fast MA above slow MA")
	case snap.FastMA.V < snap.SlowMA.V:
		return voteFor("crossover", -1, "fast MA below slow MA")
	default:
		return abstain()
	}
}

// ruleOscillator RSI 极值，stoch-RSI 同向时理由加注确认。
func ruleOscillator(snap indicator.Snapshot) vote {
	if !snap.RSI.OK {
		return abstain()
	}
	switch {
	case snap.RSI.V < 30:
		reason := fmt.Sprintf("RSI oversold (%.1f)", snap.RSI.V)
		if snap.StochK.OK && snap.StochK.V < 20 {
			reason += ", stoch-RSI confirms"
		}
		return voteFor("oscillator", +1, reason)
	case snap.RSI.V > 70:
		reason := fmt.Sprintf("RSI overbought (%.1f)", snap.RSI.V)
		if snap.StochK.OK && snap.StochK.V > 80 {
			reason += ", stoch-RSI confirms"
		}
		return voteFor("oscillator", -1, reason)
	default:
		return abstain()
	}
}

// ruleBands 收盘价触及布林带边界按均值回归投票。
func ruleBands(snap indicator.Snapshot) vote {
	if !snap.BandUpper.OK || !snap.BandLower.OK || len(snap.Closes) == 0 {
		return abstain()
	}
	last := snap.Closes[len(snap.Closes)-1]
	switch {
	case last <= snap.BandLower.V:
		return voteFor("bands", +1, fmt.Sprintf("price %.0f at lower band %.0f", last, snap.BandLower.V))
	case last >= snap.BandUpper.V:
		return voteFor("bands", -1, fmt.Sprintf("price %.0f at upper band %.0f", last, snap.BandUpper.V))
	default:
		return abstain()
	}
}

// ruleMomentum MACD 主线与信号线的位置与交叉。
func ruleMomentum(snap indicator.Snapshot) vote {
	if !snap.MACD.OK || !snap.MACDSignal.OK {
		return abstain()
	}
	crossedUp := snap.MACDPrev.OK && snap.MACDSignalPrev.OK &&
		snap.MACDPrev.V <= snap.MACDSignalPrev.V && snap.MACD.V > snap.MACDSignal.V
	crossedDown := snap.MACDPrev.OK && snap.MACDSignalPrev.OK &&
		snap.MACDPrev.V >= snap.MACDSignalPrev.V && snap.MACD.V < snap.MACDSignal.V
	switch {
	case crossedUp:
		return voteFor("momentum", +1, "MACD crossed above signal")
	case crossedDown:
		return voteFor("momentum", -1, "MACD crossed below signal")
	case snap.MACD.V > snap.MACDSignal.V:
		return voteFor("momentum", +1, "MACD above signal")
	case snap.MACD.V < snap.MACDSignal.V:
		return voteFor("momentum", -1, "MACD below signal")
	default:
		return abstain()
	}
}

// ruleTrend 趋势标签直接投票。
func ruleTrend(snap indicator.Snapshot) vote {
	switch snap.Trend {
	case indicator.TrendBullish:
		return voteFor("trend", +1, "trend bullish")
	case indicator.TrendBearish:
		return voteFor("trend", -1, "trend bearish")
	default:
		return abstain()
	}
}
