package indicators

import "math"

// ATR computes Wilder-smoothed average true range over highs/lows/closes,
// which must be equal-length and chronologically ordered. Returns 0 when
// fewer than two closes are available.
func ATR(highs, lows, closes []float64, period int) float64 {
	if len(closes) < 2 {
		return 0.0
	}

	trueRanges := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		trueRanges = append(trueRanges, math.Max(hl, math.Max(hc, lc)))
	}

	if len(trueRanges) < period {
		var sum float64
		for _, tr := range trueRanges {
			sum += tr
		}
		return sum / float64(len(trueRanges))
	}

	var atr float64
	for i := 0; i < period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(period)

	for i := period; i < len(trueRanges); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}
	return atr
}
