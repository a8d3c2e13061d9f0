package strategy

import (
	"fmt"

	"stacker/internal/indicator"
)

// ruleDivergence 在回看窗口内寻找价格与 RSI 的背离。
//
// 看涨背离：价格在窗口内创出新低，RSI 自己的近期低点却高于其参照段
// （窗口前 1/3）的低点；高点方向对称。两条序列的极值各自独立定位，
// 且价格的新极值必须落在窗口前 1/3 之后，贴着窗口边缘的极值视为
// 边界伪影，直接弃权。
func ruleDivergence(snap indicator.Snapshot, lookback int) vote {
	if lookback < 6 {
		return abstain()
	}
	prices, rsis, ok := alignedTails(snap.Closes, snap.RSISeries, lookback)
	if !ok {
		return abstain()
	}
	split := lookback / 3
	if split < 1 {
		return abstain()
	}

	priceLow := argMin(prices)
	rsiLow := split + argMin(rsis[split:])
	if priceLow >= split &&
		prices[priceLow] < prices[argMin(prices[:split])] &&
		rsis[rsiLow] > rsis[argMin(rsis[:split])] {
		return voteFor("divergence", +1, fmt.Sprintf(
			"bullish divergence: price low %.0f under %.0f while RSI %.1f above %.1f",
			prices[priceLow], prices[argMin(prices[:split])], rsis[rsiLow], rsis[argMin(rsis[:split])]))
	}

	priceHigh := argMax(prices)
	rsiHigh := split + argMax(rsis[split:])
	if priceHigh >= split &&
		prices[priceHigh] > prices[argMax(prices[:split])] &&
		rsis[rsiHigh] < rsis[argMax(rsis[:split])] {
		return voteFor("divergence", -1, fmt.Sprintf(
			"bearish divergence: price high %.0f over %.0f while RSI %.1f below %.1f",
			prices[priceHigh], prices[argMax(prices[:split])], rsis[rsiHigh], rsis[argMax(rsis[:split])]))
	}
	return abstain()
}

// alignedTails 取两条序列最后 n 个点并按时间对齐。
func alignedTails(prices, rsis []float64, n int) ([]float64, []float64, bool) {
	if len(prices) < n || len(rsis) < n {
		return nil, nil, false
	}
	return prices[len(prices)-n:], rsis[len(rsis)-n:], true
}

func argMin(s []float64) int {
	idx := 0
	for i, v := range s {
		if v < s[idx] {
			idx = i
		}
	}
	return idx
}

func argMax(s []float64) int {
	idx := 0
	for i, v := range s {
		if v > s[idx] {
			idx = i
		}
	}
	return idx
}
