package market

import (
	"context"
	"errors"
)

// ErrPriceUnavailable 表示行情源暂时没有可用报价（冷启动、维护等），
// 不视为故障，调用方应跳过本轮继续等待。
var ErrPriceUnavailable = errors.New("price not available yet")

// Source 提供某个交易对的最新成交价。
type Source interface {
	Name() string
	Latest(ctx context.Context) (Sample, error)
}
