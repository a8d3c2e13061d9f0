package risk

import (
	"math"
	"time"
)

// Outcome is one settled trade, as seen by the gate.
type Outcome struct {
	PnLSats    int64
	MarginSats int64
	ClosedAt   time.Time
}

// Metrics is a read-only snapshot of realized performance.
type Metrics struct {
	TradesTotal       int
	WinRate           float64
	AvgWinSats        float64
	AvgLossSats       float64
	Sharpe            float64
	DailyLossSats     int64
	EquityHWMSats     int64
	ConsecutiveLosses int
}

// RecordOutcome folds one settled trade into the running statistics.
func (g *Gate) RecordOutcome(o Outcome) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tradesTotal++
	if o.PnLSats >= 0 {
		g.wins++
		g.winSats += o.PnLSats
		g.streak = 0
	} else {
		g.losses++
		g.lossSats += -o.PnLSats
		g.streak++
		g.dailyLossSats += -o.PnLSats
	}
	// 按保证金归一化的单笔收益率，供夏普估算
	if o.MarginSats > 0 {
		g.returns = append(g.returns, float64(o.PnLSats)/float64(o.MarginSats))
		if len(g.returns) > 500 {
			g.returns = g.returns[len(g.returns)-500:]
		}
	}
}

// ResetDaily zeroes the daily loss accumulator. The agent calls this exactly
// once when the UTC day rolls over.
func (g *Gate) ResetDaily() {
	g.mu.Lock()
	g.dailyLossSats = 0
	g.mu.Unlock()
}

func (g *Gate) ConsecutiveLosses() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.streak
}

func (g *Gate) Metrics() Metrics {
	g.mu.Lock()
	defer g.mu.Unlock()

	m := Metrics{
		TradesTotal:       g.tradesTotal,
		DailyLossSats:     g.dailyLossSats,
		EquityHWMSats:     g.equityHWMSats,
		ConsecutiveLosses: g.streak,
	}
	if g.tradesTotal > 0 {
		m.WinRate = float64(g.wins) / float64(g.tradesTotal)
	}
	if g.wins > 0 {
		m.AvgWinSats = float64(g.winSats) / float64(g.wins)
	}
	if g.losses > 0 {
		m.AvgLossSats = float64(g.lossSats) / float64(g.losses)
	}
	m.Sharpe = sharpe(g.returns)
	return m
}

// sharpe 是简化的年化夏普：单笔收益率均值/标准差，按一年 365 笔粗放年化。
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance) * math.Sqrt(365)
}
