package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatSeries(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func risingSeries(n int, start, stepPct float64) []float64 {
	out := make([]float64, n)
	price := start
	for i := range out {
		out[i] = price
		price *= 1 + stepPct
	}
	return out
}

func TestComputeInsufficientData(t *testing.T) {
	s := DefaultSettings()

	t.Run("empty series", func(t *testing.T) {
		snap := Compute(nil, s)
		assert.False(t, snap.HasCore())
		assert.Equal(t, TrendNeutral, snap.Trend)
	})

	t.Run("below slow period", func(t *testing.T) {
		snap := Compute(flatSeries(10, 50_000), s)
		assert.True(t, snap.FastMA.OK, "fast MA has enough samples")
		assert.False(t, snap.SlowMA.OK)
		assert.False(t, snap.MACD.OK)
		assert.False(t, snap.HasCore())
		assert.Equal(t, TrendNeutral, snap.Trend)
	})

	t.Run("invalid pieces are not zero-valued signals", func(t *testing.T) {
		snap := Compute(flatSeries(5, 50_000), s)
		assert.False(t, snap.RSI.OK)
		assert.False(t, snap.Volatility.OK)
	})
}

func TestComputeFlatSeries(t *testing.T) {
	s := DefaultSettings()
	snap := Compute(flatSeries(120, 50_000), s)

	require.True(t, snap.FastMA.OK)
	require.True(t, snap.SlowMA.OK)
	assert.InDelta(t, 50_000, snap.FastMA.V, 0.01)
	assert.InDelta(t, 50_000, snap.SlowMA.V, 0.01)
	assert.Equal(t, TrendNeutral, snap.Trend)

	require.True(t, snap.BandUpper.OK)
	assert.InDelta(t, snap.BandMiddle.V, snap.BandUpper.V, 0.01, "no deviation on a flat series")
	assert.InDelta(t, snap.BandMiddle.V, snap.BandLower.V, 0.01)

	require.True(t, snap.Volatility.OK)
	assert.InDelta(t, 0, snap.Volatility.V, 1e-9)
}

func TestComputeTrendLabels(t *testing.T) {
	s := DefaultSettings()

	t.Run("sustained rally is bullish", func(t *testing.T) {
		snap := Compute(risingSeries(80, 40_000, 0.01), s)
		require.True(t, snap.HasCore())
		assert.Equal(t, TrendBullish, snap.Trend)
		assert.Greater(t, snap.RSI.V, 70.0)
	})

	t.Run("sustained selloff is bearish", func(t *testing.T) {
		snap := Compute(risingSeries(80, 40_000, -0.01), s)
		require.True(t, snap.HasCore())
		assert.Equal(t, TrendBearish, snap.Trend)
		assert.Less(t, snap.RSI.V, 30.0)
	})
}

func TestComputeMACD(t *testing.T) {
	s := DefaultSettings()
	snap := Compute(risingSeries(120, 40_000, 0.005), s)
	require.True(t, snap.MACD.OK)
	require.True(t, snap.MACDSignal.OK)
	assert.Greater(t, snap.MACD.V, 0.0, "rising series keeps fast EMA above slow EMA")
	assert.NotEmpty(t, snap.HistSeries)
}

func TestAnnualizedVolatility(t *testing.T) {
	t.Run("too few samples", func(t *testing.T) {
		v := annualizedVolatility(flatSeries(10, 100), time.Minute)
		assert.False(t, v.OK)
	})

	t.Run("alternating series has positive volatility", func(t *testing.T) {
		series := make([]float64, 60)
		for i := range series {
			if i%2 == 0 {
				series[i] = 100
			} else {
				series[i] = 102
			}
		}
		v := annualizedVolatility(series, time.Minute)
		require.True(t, v.OK)
		assert.Greater(t, v.V, 0.0)
		assert.False(t, math.IsInf(v.V, 0))
	})
}

func TestSanitizeSeries(t *testing.T) {
	in := []float64{100, math.NaN(), 101, math.Inf(1), 102}
	out := sanitizeSeries(in)
	assert.Equal(t, []float64{100, 101, 102}, out)
}
