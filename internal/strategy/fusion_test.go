package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stacker/internal/indicator"
)

type fakeStreak int

func (f fakeStreak) ConsecutiveLosses() int { return int(f) }

func testParams() Params {
	return Params{
		Weights: map[string]float64{
			"crossover":  0.25,
			"oscillator": 0.2,
			"bands":      0.15,
			"momentum":   0.2,
			"divergence": 0.25,
			"trend":      0.15,
		},
		FusionThreshold:        0.45,
		BasicThreshold:         0.25,
		ConfluenceMinVotes:     3,
		ConfluenceBonus:        0.15,
		VolatilityCeiling:      1.2,
		HighConfidenceOverride: 0.8,
		StreakDampenAfter:      3,
		StreakDampenFactor:     1.5,
		DivergenceLookback:     10,
	}
}

func v(x float64) indicator.Value { return indicator.Value{V: x, OK: true} }

// bullishSnapshot 五个规则族同向看多（背离弃权）。
func bullishSnapshot() indicator.Snapshot {
	return indicator.Snapshot{
		Closes:         []float64{50_000, 49_800, 49_500},
		FastMA:         v(50_200),
		SlowMA:         v(49_000),
		FastMAPrev:     v(48_900),
		SlowMAPrev:     v(49_000),
		RSI:            v(27),
		RSIPrev:        v(29),
		StochK:         v(12),
		StochD:         v(15),
		BandUpper:      v(52_000),
		BandMiddle:     v(50_700),
		BandLower:      v(49_500),
		MACD:           v(120),
		MACDSignal:     v(80),
		MACDPrev:       v(60),
		MACDSignalPrev: v(70),
		Volatility:     v(0.6),
		Trend:          indicator.TrendBullish,
	}
}

func TestFusionInsufficientHistory(t *testing.T) {
	s, err := New("fusion", testParams())
	require.NoError(t, err)
	d := s.Evaluate(indicator.Snapshot{Trend: indicator.TrendNeutral}, fakeStreak(0))
	assert.Equal(t, ActionHold, d.Action)
	assert.Zero(t, d.Confidence)
	assert.Contains(t, d.Reasons[0], "insufficient history")
}

func TestFusionBuyWithConfluence(t *testing.T) {
	s, err := New("fusion", testParams())
	require.NoError(t, err)
	d := s.Evaluate(bullishSnapshot(), fakeStreak(0))
	require.Equal(t, ActionBuy, d.Action)
	// 0.95 net + 0.15 confluence bonus, clamped at 1.0
	assert.InDelta(t, 1.0, d.Confidence, 1e-9)
	joined := ""
	for _, r := range d.Reasons {
		joined += r + "; "
	}
	assert.Contains(t, joined, "confluence")
}

func TestFusionHoldInsideThreshold(t *testing.T) {
	s, err := New("fusion", testParams())
	require.NoError(t, err)
	snap := indicator.Snapshot{
		Closes: []float64{50_000},
		FastMA: v(50_100),
		SlowMA: v(50_000),
		RSI:    v(55),
		Trend:  indicator.TrendNeutral,
	}
	// 只有 crossover 投票，0.25 < 0.45
	d := s.Evaluate(snap, fakeStreak(0))
	assert.Equal(t, ActionHold, d.Action)
}

func TestFusionLosingStreakRaisesThreshold(t *testing.T) {
	params := testParams()
	// 压低权重让净值刚好落在基础阈值之上、抬升后阈值之下
	params.Weights = map[string]float64{"crossover": 0.3, "oscillator": 0.2}
	s, err := New("fusion", params)
	require.NoError(t, err)

	snap := indicator.Snapshot{
		Closes: []float64{50_000},
		FastMA: v(50_500),
		SlowMA: v(50_000),
		RSI:    v(25),
		Trend:  indicator.TrendNeutral,
	}
	// net = 0.5 ≥ 0.45 without streak
	d := s.Evaluate(snap, fakeStreak(0))
	require.Equal(t, ActionBuy, d.Action)

	// 连亏 3 笔后阈值抬到 0.675，同样的信号不再触发
	d = s.Evaluate(snap, fakeStreak(3))
	assert.Equal(t, ActionHold, d.Action)
}

func TestFusionVolatilitySoftensToHold(t *testing.T) {
	params := testParams()
	// 压低权重得到一个中等置信度（0.5，低于 0.8 豁免线）的买入信号
	params.Weights = map[string]float64{"crossover": 0.3, "oscillator": 0.2}
	s, err := New("fusion", params)
	require.NoError(t, err)

	snap := indicator.Snapshot{
		Closes:     []float64{50_000},
		FastMA:     v(50_500),
		SlowMA:     v(50_000),
		RSI:        v(25),
		Volatility: v(2.5),
		Trend:      indicator.TrendNeutral,
	}
	d := s.Evaluate(snap, fakeStreak(0))
	assert.Equal(t, ActionHold, d.Action)
	assert.InDelta(t, 0.25, d.Confidence, 1e-9, "softening halves the computed confidence")
	joined := ""
	for _, r := range d.Reasons {
		joined += r + "; "
	}
	assert.Contains(t, joined, "volatility")
}

// 高置信度信号不被波动率软化拦下：方向与置信度原样放行。
func TestFusionHighConfidenceOverridesVolatility(t *testing.T) {
	s, err := New("fusion", testParams())
	require.NoError(t, err)
	snap := bullishSnapshot()
	snap.Volatility = v(2.5)
	d := s.Evaluate(snap, fakeStreak(0))
	assert.Equal(t, ActionBuy, d.Action)
	assert.InDelta(t, 1.0, d.Confidence, 1e-9)
	joined := ""
	for _, r := range d.Reasons {
		joined += r + "; "
	}
	assert.Contains(t, joined, "overridden by confidence")
}

func TestBasicVolatilitySoftensToHold(t *testing.T) {
	s, err := New("basic", testParams())
	require.NoError(t, err)
	snap := indicator.Snapshot{
		Closes:     []float64{50_000},
		FastMA:     v(50_500),
		SlowMA:     v(50_000),
		RSI:        v(55),
		Volatility: v(2.5),
		Trend:      indicator.TrendNeutral,
	}
	d := s.Evaluate(snap, nil)
	assert.Equal(t, ActionHold, d.Action)
	assert.InDelta(t, 0.125, d.Confidence, 1e-9)
}

func TestBasicLowerThresholdThanFusion(t *testing.T) {
	params := testParams()
	basic, err := New("basic", params)
	require.NoError(t, err)
	fusion, err := New("fusion", params)
	require.NoError(t, err)

	// 只有均线交叉看多的弱信号
	snap := indicator.Snapshot{
		Closes: []float64{50_000},
		FastMA: v(50_500),
		SlowMA: v(50_000),
		RSI:    v(55),
		Trend:  indicator.TrendNeutral,
	}
	assert.Equal(t, ActionBuy, basic.Evaluate(snap, nil).Action)
	assert.Equal(t, ActionHold, fusion.Evaluate(snap, fakeStreak(0)).Action)
}

func TestNewUnknownStrategy(t *testing.T) {
	_, err := New("quantum", testParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown strategy")
}
