package indicators

// CrossKind classifies a MACD-vs-signal-line crossover between the last
// two bars.
type CrossKind string

const (
	CrossNone   CrossKind = "none"
	CrossGolden CrossKind = "golden"
	CrossDeath  CrossKind = "death"
)

// TrendKind classifies the sign of the MACD line.
type TrendKind string

const (
	TrendBullish TrendKind = "bullish"
	TrendBearish TrendKind = "bearish"
	TrendNeutral TrendKind = "neutral"
)

// MACD holds the full moving-average-convergence-divergence result.
type MACD struct {
	MACDLine   float64
	SignalLine float64
	Histogram  float64
	Trend      TrendKind
	Cross      CrossKind
}

// CalcMACD computes ema(fast) - ema(slow) as the MACD line series, then
// signal = ema(macdSeries, signalPeriod). Cross detection compares the
// sign of (macd-signal) across the last two bars: a negative-to-positive
// flip is golden, positive-to-negative is death. Falls back to a neutral
// zero-valued result when fewer than slow+signal prices are available.
func CalcMACD(prices []float64, fast, slow, signalPeriod int) MACD {
	if len(prices) < slow+signalPeriod {
		return MACD{Trend: TrendNeutral, Cross: CrossNone}
	}

	fastSeries := EMASeries(prices, fast)
	slowSeries := EMASeries(prices, slow)

	minLen := len(fastSeries)
	if len(slowSeries) < minLen {
		minLen = len(slowSeries)
	}
	macdSeries := make([]float64, minLen)
	for i := 0; i < minLen; i++ {
		macdSeries[i] = fastSeries[i] - slowSeries[i]
	}

	if len(macdSeries) < signalPeriod {
		last := 0.0
		if len(macdSeries) > 0 {
			last = macdSeries[len(macdSeries)-1]
		}
		return MACD{MACDLine: last, Trend: TrendNeutral, Cross: CrossNone}
	}

	signalSeries := EMASeries(macdSeries, signalPeriod)

	macdLine := macdSeries[len(macdSeries)-1]
	signalLine := signalSeries[len(signalSeries)-1]
	histogram := macdLine - signalLine

	trend := TrendNeutral
	switch {
	case macdLine > 0:
		trend = TrendBullish
	case macdLine < 0:
		trend = TrendBearish
	}

	cross := CrossNone
	if len(macdSeries) >= 2 && len(signalSeries) >= 2 {
		prevDiff := macdSeries[len(macdSeries)-2] - signalSeries[len(signalSeries)-2]
		currDiff := histogram
		switch {
		case prevDiff <= 0 && currDiff > 0:
			cross = CrossGolden
		case prevDiff >= 0 && currDiff < 0:
			cross = CrossDeath
		}
	}

	return MACD{
		MACDLine:   macdLine,
		SignalLine: signalLine,
		Histogram:  histogram,
		Trend:      trend,
		Cross:      cross,
	}
}
