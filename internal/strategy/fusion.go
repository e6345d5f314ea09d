package strategy

import (
	"github.com/aristath/sentinel/internal/store"
)

// threeTFWeights applies when exactly {4h, 1h, 15m} are scored: the
// slower timeframe dominates since it is less noisy.
var threeTFWeights = map[store.Interval]float64{
	store.Interval4h:  0.50,
	store.Interval1h:  0.35,
	store.Interval15m: 0.15,
}

// fourTFWeights applies when {1d, 4h, 1h, 15m} are all scored: 1d enters
// at 0.40 and the other three are rescaled proportionally from
// threeTFWeights so they still sum to 0.60 among themselves.
var fourTFWeights = map[store.Interval]float64{
	store.Interval1d:  0.40,
	store.Interval4h:  0.30,
	store.Interval1h:  0.21,
	store.Interval15m: 0.09,
}

// Grade buckets a fused score into a confidence tier.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeNone Grade = "none" // below any actionable threshold
)

// gradeMultipliers scale the base position size by conviction tier.
var gradeMultipliers = map[Grade]float64{
	GradeA: 1.0,
	GradeB: 0.7,
	GradeC: 0.4,
}

// FusedSignal is the final multi-timeframe verdict for a symbol.
type FusedSignal struct {
	Symbol          string
	FusedScore      float64 // -1..1
	Grade           Grade
	PositionSizeMul float64
	PerTimeframe    []TimeframeScore
}

// Fuse combines per-timeframe scores using the weighting scheme that
// matches the set of timeframes present (3-tf or 4-tf). Timeframes
// outside those two known sets are weighted equally as a fallback.
func Fuse(symbol string, scores []TimeframeScore) FusedSignal {
	weights := weightsFor(scores)

	var fused float64
	var totalWeight float64
	for _, s := range scores {
		w, ok := weights[s.Interval]
		if !ok {
			w = 1.0 / float64(len(scores))
		}
		fused += s.Score * w
		totalWeight += w
	}
	if totalWeight > 0 {
		fused /= totalWeight
	}
	fused = clamp(fused, -1, 1)

	grade := gradeFor(fused)
	return FusedSignal{
		Symbol:          symbol,
		FusedScore:      fused,
		Grade:           grade,
		PositionSizeMul: gradeMultipliers[grade],
		PerTimeframe:    scores,
	}
}

func weightsFor(scores []TimeframeScore) map[store.Interval]float64 {
	has := func(iv store.Interval) bool {
		for _, s := range scores {
			if s.Interval == iv {
				return true
			}
		}
		return false
	}

	if len(scores) == 4 && has(store.Interval1d) && has(store.Interval4h) && has(store.Interval1h) && has(store.Interval15m) {
		return fourTFWeights
	}
	if len(scores) == 3 && has(store.Interval4h) && has(store.Interval1h) && has(store.Interval15m) {
		return threeTFWeights
	}
	return nil
}

// gradeFor buckets a fused score by magnitude: A needs strong conviction
// in either direction, B moderate, C weak-but-actionable, and anything
// inside the dead zone grades none.
func gradeFor(fused float64) Grade {
	abs := fused
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 0.6:
		return GradeA
	case abs >= 0.35:
		return GradeB
	case abs >= 0.15:
		return GradeC
	default:
		return GradeNone
	}
}
