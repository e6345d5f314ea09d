package indicators

import "math"

// Bollinger holds a Bollinger Bands result.
type Bollinger struct {
	Upper     float64
	Middle    float64
	Lower     float64
	Bandwidth float64
	PercentB  float64
	Squeeze   bool
}

// CalcBollinger computes SMA +/- stdDevMult*sigma over the trailing period
// closes. PercentB is the current price's position between the bands;
// Squeeze flags a bandwidth below 0.03 (a pending-breakout signal). Falls
// back to a flat band centered on the last price when fewer than period
// closes are available.
func CalcBollinger(closes []float64, period int, stdDevMult float64) Bollinger {
	if len(closes) < period {
		current := 0.0
		if len(closes) > 0 {
			current = closes[len(closes)-1]
		}
		return Bollinger{Upper: current, Middle: current, Lower: current, PercentB: 0.5}
	}

	recent := closes[len(closes)-period:]
	var sum float64
	for _, p := range recent {
		sum += p
	}
	middle := sum / float64(period)

	var variance float64
	for _, p := range recent {
		d := p - middle
		variance += d * d
	}
	variance /= float64(period)
	std := math.Sqrt(variance)

	upper := middle + stdDevMult*std
	lower := middle - stdDevMult*std
	bandRange := upper - lower

	bandwidth := 0.0
	if middle > 0 {
		bandwidth = bandRange / middle
	}

	currentPrice := closes[len(closes)-1]
	percentB := 0.5
	if bandRange > 0 {
		percentB = (currentPrice - lower) / bandRange
	}

	return Bollinger{
		Upper:     upper,
		Middle:    middle,
		Lower:     lower,
		Bandwidth: bandwidth,
		PercentB:  percentB,
		Squeeze:   bandwidth < 0.03,
	}
}
