package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceFunc supplies the current mark price. ok=false means no price yet.
type PriceFunc func() (float64, bool)

// Paper is an in-memory venue for dry runs and tests. It keeps the same
// margin accounting a real venue would: opening locks margin, closing
// settles margin plus realized P&L back into the balance.
type Paper struct {
	mu        sync.Mutex
	balance   int64
	locked    int64
	positions map[string]Position
	price     PriceFunc
	now       func() time.Time
}

func NewPaper(initialSats int64, price PriceFunc) *Paper {
	return &Paper{
		balance:   initialSats,
		positions: make(map[string]Position),
		price:     price,
		now:       time.Now,
	}
}

func (p *Paper) Name() string { return "paper" }

func (p *Paper) GetOpenPositions(ctx context.Context) ([]Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	return out, nil
}

func (p *Paper) GetBalance(ctx context.Context) (Balance, error) {
	if err := ctx.Err(); err != nil {
		return Balance{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return Balance{TotalSats: p.balance + p.locked, AvailableSats: p.balance}, nil
}

func (p *Paper) OpenPosition(ctx context.Context, req OpenRequest) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	if !req.Side.Valid() {
		return Position{}, newError(KindUnknown, "paper.open", "invalid side")
	}
	mark, ok := p.price()
	if !ok || mark <= 0 {
		return Position{}, newError(KindServer, "paper.open", "no mark price")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if req.MarginSats > p.balance {
		return Position{}, newError(KindInsufficientBalance, "paper.open", "margin exceeds available balance")
	}
	pos := Position{
		ID:         uuid.NewString(),
		Side:       req.Side,
		Quantity:   req.Quantity,
		MarginSats: req.MarginSats,
		EntryPrice: mark,
		Leverage:   req.Leverage,
		OpenedAt:   p.now(),
	}
	p.balance -= req.MarginSats
	p.locked += req.MarginSats
	p.positions[pos.ID] = pos
	return pos, nil
}

func (p *Paper) ClosePosition(ctx context.Context, id string) (CloseResult, error) {
	if err := ctx.Err(); err != nil {
		return CloseResult{}, err
	}
	mark, ok := p.price()
	if !ok || mark <= 0 {
		return CloseResult{}, newError(KindServer, "paper.close", "no mark price")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[id]
	if !ok {
		return CloseResult{}, newError(KindUnknown, "paper.close", "position not found: "+id)
	}
	pnl := SettlePnLSats(pos, mark)
	delete(p.positions, id)
	p.locked -= pos.MarginSats
	p.balance += pos.MarginSats + pnl
	return CloseResult{
		Position:  pos,
		ExitPrice: mark,
		PnLSats:   pnl,
		ClosedAt:  p.now(),
	}, nil
}

// Drop removes a position without settling, simulating an external close
// the agent has to discover through reconciliation.
func (p *Paper) Drop(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos, ok := p.positions[id]; ok {
		delete(p.positions, id)
		p.locked -= pos.MarginSats
		p.balance += pos.MarginSats
	}
}

// SettlePnLSats computes the realized P&L of a position at exit price:
// margin × leverage × price move, direction-signed, rounded to whole sats.
func SettlePnLSats(pos Position, exitPrice float64) int64 {
	if pos.EntryPrice <= 0 || exitPrice <= 0 {
		return 0
	}
	entry := decimal.NewFromFloat(pos.EntryPrice)
	exit := decimal.NewFromFloat(exitPrice)
	move := exit.Sub(entry).Div(entry)
	if pos.Side == SideShort {
		move = move.Neg()
	}
	lev := pos.Leverage
	if lev <= 0 {
		lev = 1
	}
	pnl := decimal.NewFromInt(pos.MarginSats).
		Mul(decimal.NewFromInt(int64(lev))).
		Mul(move)
	return pnl.Round(0).IntPart()
}
