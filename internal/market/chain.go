package market

import (
	"context"
	"errors"

	"stacker/internal/logger"
	"stacker/internal/pkg/circuit"
)

// Chain 把主行情源与备用源串起来：主源连续失败触发熔断后，
// 冷却期内直接走备用源，避免反复敲打一个已经挂掉的接口。
type Chain struct {
	primary  Source
	fallback Source
	breaker  *circuit.Breaker
}

func NewChain(primary, fallback Source, breaker *circuit.Breaker) *Chain {
	return &Chain{primary: primary, fallback: fallback, breaker: breaker}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Latest(ctx context.Context) (Sample, error) {
	var primaryErr error
	if c.breaker == nil || c.breaker.Allow() {
		sample, err := c.primary.Latest(ctx)
		if err == nil {
			if c.breaker != nil {
				c.breaker.RecordSuccess()
			}
			return sample, nil
		}
		// 报价暂缺不算源故障，不计入熔断
		if errors.Is(err, ErrPriceUnavailable) {
			return Sample{}, err
		}
		if c.breaker != nil {
			c.breaker.RecordFailure()
		}
		primaryErr = err
	}
	if c.fallback == nil {
		if primaryErr != nil {
			return Sample{}, primaryErr
		}
		return Sample{}, ErrPriceUnavailable
	}
	if primaryErr != nil {
		logger.Warnf("primary source %s failed, falling back to %s: %v", c.primary.Name(), c.fallback.Name(), primaryErr)
	}
	return c.fallback.Latest(ctx)
}
