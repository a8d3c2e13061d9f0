package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stacker/internal/gateway/exchange"
	"stacker/internal/indicator"
	"stacker/internal/market"
	"stacker/internal/risk"
	"stacker/internal/strategy"
)

type MockExchange struct {
	mock.Mock
}

func (m *MockExchange) Name() string { return "mock" }

func (m *MockExchange) GetOpenPositions(ctx context.Context) ([]exchange.Position, error) {
	args := m.Called(ctx)
	var ps []exchange.Position
	if v := args.Get(0); v != nil {
		ps = v.([]exchange.Position)
	}
	return ps, args.Error(1)
}

func (m *MockExchange) OpenPosition(ctx context.Context, req exchange.OpenRequest) (exchange.Position, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(exchange.Position), args.Error(1)
}

func (m *MockExchange) ClosePosition(ctx context.Context, id string) (exchange.CloseResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(exchange.CloseResult), args.Error(1)
}

func (m *MockExchange) GetBalance(ctx context.Context) (exchange.Balance, error) {
	args := m.Called(ctx)
	return args.Get(0).(exchange.Balance), args.Error(1)
}

type scriptedSource struct {
	price float64
	err   error
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) Latest(ctx context.Context) (market.Sample, error) {
	if s.err != nil {
		return market.Sample{}, s.err
	}
	return market.Sample{Price: s.price, Time: time.Now()}, nil
}

func testGateLimits() risk.Limits {
	return risk.Limits{
		MaxOpenPositions:    3,
		MinPositionSats:     1_000,
		MaxPositionSats:     100_000,
		MaxLeverage:         10,
		DefaultLeverage:     2,
		RiskPerTradePct:     2,
		DailyLossLimitSats:  50_000,
		ReserveSats:         5_000,
		MaxDrawdownPct:      20,
		MaxPortfolioHeatPct: 6,
	}
}

func testStrategyParams() strategy.Params {
	return strategy.Params{
		Weights: map[string]float64{
			"crossover":  0.25,
			"oscillator": 0.2,
			"bands":      0.15,
			"momentum":   0.2,
			"divergence": 0.25,
			"trend":      0.15,
		},
		FusionThreshold:    0.45,
		BasicThreshold:     0.25,
		ConfluenceMinVotes: 3,
		ConfluenceBonus:    0.15,
		VolatilityCeiling:  1.2,
		StreakDampenAfter:  3,
		StreakDampenFactor: 1.5,
		DivergenceLookback: 10,
	}
}

func newTestAgent(t *testing.T, ex exchange.Exchange, src market.Source) *Agent {
	t.Helper()
	a, err := New(Options{
		Symbol:          "BTCUSDT",
		CycleInterval:   time.Minute,
		ExchangeTimeout: time.Second,
		PanicTTL:        5 * time.Minute,
		StrategyName:    "basic",
	}, ex, src, market.NewHistory(200), risk.NewGate(testGateLimits()), testStrategyParams(), indicator.DefaultSettings())
	require.NoError(t, err)
	return a
}

func drainEvents(a *Agent) []Event {
	var out []Event
	for {
		select {
		case ev := <-a.outbox:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventsOfType(evs []Event, typ EventType) []Event {
	var out []Event
	for _, ev := range evs {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// 权威持仓读不到时必须失败关闭：本轮 HOLD，镜像保持原样，绝不下单。
func TestCycleFailsClosedOnPositionFetchError(t *testing.T) {
	ex := &MockExchange{}
	ex.On("GetOpenPositions", mock.Anything).Return(nil, errors.New("venue timeout"))

	a := newTestAgent(t, ex, &scriptedSource{price: 50_000})
	seeded := exchange.Position{ID: "p1", Side: exchange.SideLong, MarginSats: 5_000, EntryPrice: 49_000, Leverage: 2}
	a.mirror = []exchange.Position{seeded}

	a.runCycle(context.Background())

	assert.Equal(t, strategy.ActionHold, a.lastDecision.Action)
	assert.Contains(t, a.lastDecision.Reasons, "position tracking failure")
	require.Len(t, a.mirror, 1, "mirror must stay untouched on authoritative failure")
	assert.Equal(t, seeded, a.mirror[0])
	ex.AssertNotCalled(t, "OpenPosition", mock.Anything, mock.Anything)
	ex.AssertNotCalled(t, "GetBalance", mock.Anything)
}

// 报价拿不到时也要留痕：记一笔 HOLD，并且不触碰交易所。
func TestCycleHoldsWhenPriceUnavailable(t *testing.T) {
	ex := &MockExchange{}
	a := newTestAgent(t, ex, &scriptedSource{err: market.ErrPriceUnavailable})

	a.runCycle(context.Background())

	assert.Equal(t, strategy.ActionHold, a.lastDecision.Action)
	require.NotEmpty(t, a.lastDecision.Reasons)
	assert.Contains(t, a.lastDecision.Reasons[0], "price unavailable")
	ex.AssertNotCalled(t, "GetOpenPositions", mock.Anything)
	assert.NotEmpty(t, eventsOfType(drainEvents(a), EventDecision))
}

func TestReconcileIdempotent(t *testing.T) {
	a := newTestAgent(t, &MockExchange{}, &scriptedSource{price: 50_000})
	a.mirror = []exchange.Position{
		{ID: "keep", Side: exchange.SideLong, MarginSats: 5_000, EntryPrice: 50_000, Leverage: 2},
		{ID: "gone", Side: exchange.SideShort, MarginSats: 4_000, EntryPrice: 51_000, Leverage: 2},
	}
	upstream := []exchange.Position{
		{ID: "keep", Side: exchange.SideLong, MarginSats: 5_000, EntryPrice: 50_000, Leverage: 2},
		{ID: "new", Side: exchange.SideLong, MarginSats: 3_000, EntryPrice: 50_500, Leverage: 2},
	}

	a.reconcile(upstream, 50_000)
	evs := drainEvents(a)
	closed := eventsOfType(evs, EventTradeClosed)
	opened := eventsOfType(evs, EventTradeOpened)
	require.Len(t, closed, 1)
	assert.Equal(t, "gone", closed[0].Closed.PositionID)
	assert.True(t, closed[0].Closed.External)
	assert.Equal(t, 50_000.0, closed[0].Closed.ExitPrice, "externally closed settles at latest price")
	require.Len(t, opened, 1)
	assert.Equal(t, "new", opened[0].Opened.PositionID)
	assert.Equal(t, upstream, a.mirror)

	// 同一快照再跑一遍不得产生任何新事件
	a.reconcile(upstream, 50_000)
	assert.Empty(t, drainEvents(a))
	assert.Equal(t, upstream, a.mirror)
}

func TestPanicConfirmTimeout(t *testing.T) {
	ex := &MockExchange{}
	a := newTestAgent(t, ex, &scriptedSource{price: 50_000})

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	offset := time.Duration(0)
	a.now = func() time.Time { return base.Add(offset) }

	t.Run("confirm without request", func(t *testing.T) {
		res := a.handlePanicConfirm(context.Background())
		assert.False(t, res.OK)
		assert.Contains(t, res.Message, "no panic request pending")
	})

	t.Run("confirm after 6 minutes is rejected", func(t *testing.T) {
		res := a.handlePanicRequest()
		require.True(t, res.OK)
		offset = 6 * time.Minute
		res = a.handlePanicConfirm(context.Background())
		assert.False(t, res.OK)
		assert.Contains(t, res.Message, "expired")
		assert.Nil(t, a.panicReq, "expired request is cleared")
	})

	t.Run("confirm after 4 minutes executes", func(t *testing.T) {
		a.running = true
		offset = 10 * time.Minute
		res := a.handlePanicRequest()
		require.True(t, res.OK)
		offset = 14 * time.Minute
		res = a.handlePanicConfirm(context.Background())
		assert.True(t, res.OK)
		assert.False(t, a.running, "loop stops before closing positions")
		assert.Nil(t, a.panicReq)
	})
}

// 紧急平仓容忍单笔失败：失败的留在镜像里，结果逐笔上报。
func TestPanicCloseAllPartialFailure(t *testing.T) {
	ex := &MockExchange{}
	a := newTestAgent(t, ex, &scriptedSource{price: 50_000})
	a.running = true
	p1 := exchange.Position{ID: "p1", Side: exchange.SideLong, MarginSats: 5_000, EntryPrice: 50_000, Leverage: 2}
	p2 := exchange.Position{ID: "p2", Side: exchange.SideShort, MarginSats: 4_000, EntryPrice: 51_000, Leverage: 2}
	a.mirror = []exchange.Position{p1, p2}

	ex.On("ClosePosition", mock.Anything, "p1").Return(exchange.CloseResult{}, errors.New("rate limited"))
	ex.On("ClosePosition", mock.Anything, "p2").Return(exchange.CloseResult{
		Position: p2, ExitPrice: 50_500, PnLSats: 78, ClosedAt: time.Now(),
	}, nil)

	a.handlePanicRequest()
	res := a.handlePanicConfirm(context.Background())

	assert.False(t, res.OK, "partial failure is not full success")
	assert.Contains(t, res.Message, "closed 1/2")
	require.Len(t, res.Closed, 2)
	require.Len(t, a.mirror, 1)
	assert.Equal(t, "p1", a.mirror[0].ID, "failed close stays in the mirror")
	ex.AssertExpectations(t)
}

// 完整的买入链路:资金 100,000 sats,横盘后缓步上涨约 2%,RSI 升过 50 但
// 未到超买。期望产生 BUY、通过风控并在交易所落一笔仓位。
func TestEndToEndBuyCycle(t *testing.T) {
	price := 50_000.0
	paper := exchange.NewPaper(100_000, func() (float64, bool) { return price, true })
	src := &scriptedSource{price: 50_000}
	a := newTestAgent(t, paper, src)

	// 预热历史:带小幅回撤的缓慢爬升,净涨约 2%
	p := 50_000.0
	for i := 0; i < 110; i++ {
		if i%2 == 0 {
			p += 40
		} else {
			p -= 22
		}
		a.history.Append(market.Sample{Price: p, Time: time.Now()})
	}
	price = p + 30
	src.price = price

	a.runCycle(context.Background())

	require.Equal(t, strategy.ActionBuy, a.lastDecision.Action, "reasons: %v", a.lastDecision.Reasons)
	require.Len(t, a.mirror, 1, "mirror reflects the newly opened position")

	positions, err := paper.GetOpenPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, exchange.SideLong, positions[0].Side)
	assert.Equal(t, int64(2_000), positions[0].MarginSats, "2%% of 100k sats")

	evs := drainEvents(a)
	assert.NotEmpty(t, eventsOfType(evs, EventTradeOpened))
	assert.NotEmpty(t, eventsOfType(evs, EventDecision))
}

func TestSwitchStrategy(t *testing.T) {
	a := newTestAgent(t, &MockExchange{}, &scriptedSource{price: 50_000})

	res := a.switchStrategy("fusion")
	assert.True(t, res.OK)
	assert.Equal(t, "fusion", a.strat.Name())

	res = a.switchStrategy("quantum")
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "unknown strategy")
	assert.Equal(t, "fusion", a.strat.Name(), "active strategy untouched on bad name")
}

func TestCommandLoopStatus(t *testing.T) {
	ex := &MockExchange{}
	a := newTestAgent(t, ex, &scriptedSource{price: 50_000})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = a.Run(ctx)
		close(done)
	}()

	res, err := a.Send(ctx, CmdStart, "")
	require.NoError(t, err)
	assert.True(t, res.OK)

	res, err = a.Send(ctx, CmdStatus, "")
	require.NoError(t, err)
	require.NotNil(t, res.Status)
	assert.True(t, res.Status.Running)
	assert.Equal(t, "basic", res.Status.Strategy)

	res, err = a.Send(ctx, CmdStop, "")
	require.NoError(t, err)
	assert.True(t, res.OK)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("agent loop did not stop")
	}
}
