package risk

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"stacker/internal/gateway/exchange"
)

// Limits are the static guardrails of the gate. All amounts in sats.
type Limits struct {
	MaxOpenPositions    int
	MinPositionSats     int64
	MaxPositionSats     int64
	MaxLeverage         int
	DefaultLeverage     int
	RiskPerTradePct     float64
	DailyLossLimitSats  int64
	ReserveSats         int64
	MaxDrawdownPct      float64
	MaxPortfolioHeatPct float64
}

// OpenCheck is everything the gate needs to vet a proposed open.
type OpenCheck struct {
	Side          exchange.Side
	MarginSats    int64
	Leverage      int
	Balance       exchange.Balance
	OpenPositions []exchange.Position
}

type Verdict struct {
	Allowed bool
	Reason  string
}

func allow() Verdict             { return Verdict{Allowed: true} }
func deny(reason string) Verdict { return Verdict{Reason: reason} }

// Sizing is the gate's position-size proposal.
type Sizing struct {
	MarginSats  int64
	Leverage    int
	Quantity    float64 // base-asset quantity
	NotionalUSD float64
}

// Gate vets opens and tracks realized performance. It is shared between the
// agent loop and the HTTP status endpoint, hence the mutex.
type Gate struct {
	mu     sync.Mutex
	limits Limits

	dailyLossSats int64
	equityHWMSats int64

	wins        int
	losses      int
	winSats     int64
	lossSats    int64
	streak      int // consecutive losses
	returns     []float64
	tradesTotal int
}

func NewGate(limits Limits) *Gate {
	return &Gate{limits: limits}
}

func (g *Gate) Limits() Limits { return g.limits }

// CanOpen runs the ordered checks and stops at the first failure, so the
// caller always gets one deterministic reason.
func (g *Gate) CanOpen(check OpenCheck) Verdict {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(check.OpenPositions) >= g.limits.MaxOpenPositions {
		return deny(fmt.Sprintf("max open positions reached (%d)", g.limits.MaxOpenPositions))
	}
	if check.MarginSats < g.limits.MinPositionSats {
		return deny(fmt.Sprintf("position size %d below minimum %d sats", check.MarginSats, g.limits.MinPositionSats))
	}
	if check.MarginSats > g.limits.MaxPositionSats {
		return deny(fmt.Sprintf("position size %d above maximum %d sats", check.MarginSats, g.limits.MaxPositionSats))
	}
	if check.Leverage > g.limits.MaxLeverage {
		return deny(fmt.Sprintf("leverage %dx exceeds limit %dx", check.Leverage, g.limits.MaxLeverage))
	}
	if g.limits.DailyLossLimitSats > 0 && g.dailyLossSats >= g.limits.DailyLossLimitSats {
		return deny(fmt.Sprintf("daily loss limit reached (%d sats)", g.dailyLossSats))
	}
	if check.Balance.AvailableSats < check.MarginSats+g.limits.ReserveSats {
		return deny(fmt.Sprintf("insufficient balance: need %d sats margin plus %d reserve, have %d",
			check.MarginSats, g.limits.ReserveSats, check.Balance.AvailableSats))
	}
	if g.equityHWMSats < check.Balance.TotalSats {
		g.equityHWMSats = check.Balance.TotalSats
	}
	if dd := g.drawdownPctLocked(check.Balance.TotalSats); dd > g.limits.MaxDrawdownPct {
		return deny(fmt.Sprintf("drawdown %.1f%% exceeds limit %.1f%%", dd, g.limits.MaxDrawdownPct))
	}
	if heat := portfolioHeatPct(check); heat > g.limits.MaxPortfolioHeatPct {
		return deny(fmt.Sprintf("portfolio heat %.1f%% exceeds limit %.1f%%", heat, g.limits.MaxPortfolioHeatPct))
	}
	return allow()
}

// SizeFor proposes margin as risk-percent of balance, clamped to the
// configured bounds, and derives base quantity at the given price.
func (g *Gate) SizeFor(balanceSats int64, price float64) Sizing {
	margin := decimal.NewFromInt(balanceSats).
		Mul(decimal.NewFromFloat(g.limits.RiskPerTradePct)).
		Div(decimal.NewFromInt(100)).
		Round(0).IntPart()
	if margin < g.limits.MinPositionSats {
		margin = g.limits.MinPositionSats
	}
	if margin > g.limits.MaxPositionSats {
		margin = g.limits.MaxPositionSats
	}
	lev := g.limits.DefaultLeverage
	if lev <= 0 {
		lev = 1
	}
	notionalSats := decimal.NewFromInt(margin).Mul(decimal.NewFromInt(int64(lev)))
	qty, _ := notionalSats.Div(decimal.NewFromInt(100_000_000)).Round(8).Float64()
	notionalUSD := 0.0
	if price > 0 {
		notionalUSD, _ = notionalSats.
			Div(decimal.NewFromInt(100_000_000)).
			Mul(decimal.NewFromFloat(price)).
			Round(2).Float64()
	}
	return Sizing{MarginSats: margin, Leverage: lev, Quantity: qty, NotionalUSD: notionalUSD}
}

func (g *Gate) drawdownPctLocked(totalSats int64) float64 {
	if g.equityHWMSats <= 0 || totalSats >= g.equityHWMSats {
		return 0
	}
	dd := decimal.NewFromInt(g.equityHWMSats - totalSats).
		Div(decimal.NewFromInt(g.equityHWMSats)).
		Mul(decimal.NewFromInt(100))
	f, _ := dd.Float64()
	return f
}

// portfolioHeatPct 是已占用保证金加上本笔保证金占总权益的百分比。
func portfolioHeatPct(check OpenCheck) float64 {
	if check.Balance.TotalSats <= 0 {
		return 100
	}
	var committed int64
	for _, p := range check.OpenPositions {
		committed += p.MarginSats
	}
	heat := decimal.NewFromInt(committed + check.MarginSats).
		Div(decimal.NewFromInt(check.Balance.TotalSats)).
		Mul(decimal.NewFromInt(100))
	f, _ := heat.Float64()
	return f
}
