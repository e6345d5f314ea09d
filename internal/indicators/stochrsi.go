package indicators

// StochRSI holds the stochastic-RSI %K/%D pair, each in [0,100].
type StochRSI struct {
	K float64
	D float64
}

// CalcStochRSI computes %K as the position of the latest RSI value within
// its rolling stochPeriod window, and %D as the 3-point mean of the last
// three %K values. Falls back to {50,50} when fewer than
// rsiPeriod+stochPeriod+1 prices are available.
func CalcStochRSI(prices []float64, rsiPeriod, stochPeriod int) StochRSI {
	if len(prices) < rsiPeriod+stochPeriod+1 {
		return StochRSI{K: 50.0, D: 50.0}
	}

	series := RSISeries(prices, rsiPeriod)
	if len(series) < stochPeriod {
		return StochRSI{K: 50.0, D: 50.0}
	}

	k := stochOf(series, len(series)-1, stochPeriod)

	kCount := 3
	if len(series) < kCount {
		kCount = len(series)
	}
	var sumK float64
	for j := len(series) - kCount; j < len(series); j++ {
		sumK += stochOf(series, j, stochPeriod)
	}
	d := sumK / float64(kCount)

	return StochRSI{K: k, D: d}
}

// stochOf computes the stochastic value of series[idx] within the trailing
// stochPeriod window ending at idx.
func stochOf(series []float64, idx, stochPeriod int) float64 {
	start := idx - stochPeriod + 1
	if start < 0 {
		start = 0
	}
	window := series[start : idx+1]

	min, max := window[0], window[0]
	for _, v := range window {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	rng := max - min
	if rng <= 0 {
		return 50.0
	}
	return (series[idx] - min) / rng * 100
}
