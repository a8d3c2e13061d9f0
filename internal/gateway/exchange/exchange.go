// Package exchange defines the execution boundary of the agent. All money
// amounts are satoshis; quantity is base-asset (BTC) quantity.
package exchange

import (
	"context"
	"time"
)

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// Position is an open position as reported by the venue. The venue is the
// single source of truth; local copies are only mirrors of this shape.
type Position struct {
	ID         string
	Side       Side
	Quantity   float64
	MarginSats int64
	EntryPrice float64
	Leverage   int
	OpenedAt   time.Time
}

type Balance struct {
	TotalSats     int64
	AvailableSats int64
}

type OpenRequest struct {
	Side       Side
	MarginSats int64
	Quantity   float64
	Leverage   int
}

// CloseResult reports a settled close, including realized P&L in sats.
type CloseResult struct {
	Position  Position
	ExitPrice float64
	PnLSats   int64
	ClosedAt  time.Time
}

// Exchange is the venue-facing collaborator. Implementations must return
// structured *APIError values so callers can branch on the failure kind.
type Exchange interface {
	Name() string
	GetOpenPositions(ctx context.Context) ([]Position, error)
	OpenPosition(ctx context.Context, req OpenRequest) (Position, error)
	ClosePosition(ctx context.Context, id string) (CloseResult, error)
	GetBalance(ctx context.Context) (Balance, error)
}
