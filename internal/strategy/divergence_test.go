package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stacker/internal/indicator"
)

func reversed(s []float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

func divergenceSnapshot(closes, rsis []float64) indicator.Snapshot {
	return indicator.Snapshot{Closes: closes, RSISeries: rsis}
}

func TestDivergenceBullish(t *testing.T) {
	// 价格在近期段创更低的低点，RSI 的低点却在抬高
	closes := []float64{101, 100, 102, 103, 99, 98, 97, 96, 95, 94, 96, 97}
	rsis := []float64{30, 28, 32, 33, 31, 32, 33, 34, 35, 36, 37, 38}

	v := ruleDivergence(divergenceSnapshot(closes, rsis), 12)
	require.True(t, v.fired)
	assert.Equal(t, +1, v.direction)
	assert.Contains(t, v.reason, "bullish divergence")
}

// 同一组数据倒序喂入不得再报背离：倒序后价格极值落进窗口前三分之一，
// 必须整体弃权，而不是翻个方向继续报。
func TestDivergenceOrderSensitive(t *testing.T) {
	closes := []float64{101, 100, 102, 99, 98, 97, 96, 95, 94, 103, 104, 105}
	rsis := []float64{30, 28, 32, 31, 33, 34, 35, 36, 37, 52, 55, 58}

	forward := ruleDivergence(divergenceSnapshot(closes, rsis), 12)
	backward := ruleDivergence(divergenceSnapshot(reversed(closes), reversed(rsis)), 12)

	require.True(t, forward.fired)
	assert.Equal(t, +1, forward.direction)
	assert.False(t, backward.fired,
		"reversed series puts the price extrema in the first third and must not fire at all")
}

// 极值落在窗口前三分之一（参照段）时不算背离。
func TestDivergenceExtremumMustBeRecent(t *testing.T) {
	t.Run("monotonic rise has no recent low", func(t *testing.T) {
		closes := []float64{94, 95, 96, 97, 98, 99, 100, 101, 102, 103, 104, 105}
		rsis := []float64{28, 30, 32, 34, 36, 38, 40, 42, 44, 46, 48, 50}
		v := ruleDivergence(divergenceSnapshot(closes, rsis), 12)
		assert.False(t, v.fired)
	})

	t.Run("price low inside the first third is an edge artifact", func(t *testing.T) {
		closes := []float64{100, 99, 94, 95, 96, 97, 98, 99, 100, 101, 102, 103}
		rsis := []float64{30, 29, 28, 30, 32, 34, 36, 38, 40, 42, 44, 46}
		v := ruleDivergence(divergenceSnapshot(closes, rsis), 12)
		assert.False(t, v.fired)
	})
}

func TestDivergenceBearish(t *testing.T) {
	closes := []float64{99, 100, 98, 97, 101, 102, 103, 104, 105, 106, 104, 103}
	rsis := []float64{70, 72, 68, 67, 66, 65, 64, 63, 62, 61, 60, 59}

	v := ruleDivergence(divergenceSnapshot(closes, rsis), 12)
	require.True(t, v.fired)
	assert.Equal(t, -1, v.direction)
	assert.Contains(t, v.reason, "bearish divergence")
}

func TestDivergenceInsufficientSeries(t *testing.T) {
	v := ruleDivergence(divergenceSnapshot([]float64{1, 2, 3}, []float64{50, 51, 52}), 10)
	assert.False(t, v.fired)
}
