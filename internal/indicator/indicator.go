package indicator

import (
	"math"
	"time"

	talib "github.com/markcheno/go-talib"
)

// 中文说明：
// 指标流水线：从收盘价序列计算均线、RSI、布林带、MACD 等常用指标。
// 样本不足不是错误：对应指标置为无效（OK=false），由策略层保持观望。

// Settings 汇集全部指标周期参数。
type Settings struct {
	FastPeriod  int
	SlowPeriod  int
	RSIPeriod   int
	StochPeriod int
	BandPeriod  int
	BandWidth   float64
	MACDFast    int
	MACDSlow    int
	MACDSignal  int
	// SampleInterval 是相邻样本的时间间距，用于波动率年化。
	SampleInterval time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		FastPeriod:     9,
		SlowPeriod:     21,
		RSIPeriod:      14,
		StochPeriod:    14,
		BandPeriod:     20,
		BandWidth:      2.0,
		MACDFast:       12,
		MACDSlow:       26,
		MACDSignal:     9,
		SampleInterval: time.Minute,
	}
}

// Value 是一个可能无效的指标读数。
type Value struct {
	V  float64
	OK bool
}

func valid(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{V: v, OK: true}
}

// Trend 标签
const (
	TrendBullish = "bullish"
	TrendBearish = "bearish"
	TrendNeutral = "neutral"
)

// Snapshot 是一次计算的全部输出，附带策略层需要的原始序列。
type Snapshot struct {
	Closes []float64

	FastMA     Value
	SlowMA     Value
	FastMAPrev Value
	SlowMAPrev Value

	RSI       Value
	RSIPrev   Value
	RSISeries []float64

	StochK Value
	StochD Value

	BandUpper  Value
	BandMiddle Value
	BandLower  Value

	MACD           Value
	MACDSignal     Value
	MACDHist       Value
	MACDPrev       Value
	MACDSignalPrev Value
	HistSeries     []float64

	Volatility Value
	Trend      string
}

// Compute 从收盘价序列计算快照。closes 按从旧到新排列。
func Compute(closes []float64, s Settings) Snapshot {
	snap := Snapshot{Closes: closes, Trend: TrendNeutral}
	series := sanitizeSeries(closes)
	n := len(series)

	if n > s.FastPeriod {
		ema := talib.Ema(series, s.FastPeriod)
		snap.FastMA = lastOf(ema)
		snap.FastMAPrev = prevOf(ema)
	}
	if n > s.SlowPeriod {
		sma := talib.Sma(series, s.SlowPeriod)
		snap.SlowMA = lastOf(sma)
		snap.SlowMAPrev = prevOf(sma)
	}

	if n > s.RSIPeriod+1 {
		rsi := talib.Rsi(series, s.RSIPeriod)
		snap.RSI = lastOf(rsi)
		snap.RSIPrev = prevOf(rsi)
		snap.RSISeries = trimWarmup(rsi, s.RSIPeriod)
	}

	// stoch-RSI 需要两段周期叠加的热身样本
	if n > s.RSIPeriod+s.StochPeriod+4 {
		fastK, fastD := talib.StochRsi(series, s.RSIPeriod, s.StochPeriod, 3, talib.SMA)
		snap.StochK = lastOf(fastK)
		snap.StochD = lastOf(fastD)
	}

	if n > s.BandPeriod {
		upper, middle, lower := talib.BBands(series, s.BandPeriod, s.BandWidth, s.BandWidth, talib.SMA)
		snap.BandUpper = lastOf(upper)
		snap.BandMiddle = lastOf(middle)
		snap.BandLower = lastOf(lower)
	}

	if n > s.MACDSlow+s.MACDSignal {
		macd, signal, hist := talib.Macd(series, s.MACDFast, s.MACDSlow, s.MACDSignal)
		snap.MACD = lastOf(macd)
		snap.MACDSignal = lastOf(signal)
		snap.MACDHist = lastOf(hist)
		snap.MACDPrev = prevOf(macd)
		snap.MACDSignalPrev = prevOf(signal)
		snap.HistSeries = trimWarmup(hist, s.MACDSlow+s.MACDSignal-1)
	}

	snap.Volatility = annualizedVolatility(series, s.SampleInterval)

	if snap.FastMA.OK && snap.SlowMA.OK && snap.SlowMA.V != 0 {
		gap := (snap.FastMA.V - snap.SlowMA.V) / snap.SlowMA.V
		switch {
		case gap > 0.01:
			snap.Trend = TrendBullish
		case gap < -0.01:
			snap.Trend = TrendBearish
		}
	}
	return snap
}

// HasCore 表示核心指标（均线+RSI）是否齐备，策略依此判断能否给出方向。
func (s Snapshot) HasCore() bool {
	return s.FastMA.OK && s.SlowMA.OK && s.RSI.OK
}

// annualizedVolatility 用对数收益率标准差年化。样本太少时无效。
func annualizedVolatility(series []float64, interval time.Duration) Value {
	const minSamples = 21
	if len(series) < minSamples || interval <= 0 {
		return Value{}
	}
	returns := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		if series[i-1] <= 0 || series[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(series[i]/series[i-1]))
	}
	if len(returns) < minSamples-1 {
		return Value{}
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
	perYear := float64(365*24*time.Hour) / float64(interval)
	return valid(math.Sqrt(variance) * math.Sqrt(perYear))
}

// sanitizeSeries 去掉 NaN/Inf，避免污染 talib 输出。
func sanitizeSeries(in []float64) []float64 {
	out := make([]float64, 0, len(in))
	for _, v := range in {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func lastOf(series []float64) Value {
	if len(series) == 0 {
		return Value{}
	}
	return valid(series[len(series)-1])
}

func prevOf(series []float64) Value {
	if len(series) < 2 {
		return Value{}
	}
	return valid(series[len(series)-2])
}

// trimWarmup 去掉 talib 输出头部的热身补零段。
func trimWarmup(series []float64, warmup int) []float64 {
	if warmup < 0 || warmup >= len(series) {
		return nil
	}
	return series[warmup:]
}
