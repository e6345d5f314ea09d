package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/store"
)

func ts(iv store.Interval, score float64) TimeframeScore {
	return TimeframeScore{Interval: iv, Score: score}
}

func TestFuse_ThreeTimeframeWeighting(t *testing.T) {
	scores := []TimeframeScore{
		ts(store.Interval4h, 0.8),
		ts(store.Interval1h, 0.8),
		ts(store.Interval15m, 0.8),
	}
	fused := Fuse("BTCUSDT", scores)
	require.InDelta(t, 0.8, fused.FusedScore, 1e-9)
	require.Equal(t, GradeA, fused.Grade)
	require.Equal(t, 1.0, fused.PositionSizeMul)
}

func TestFuse_FourTimeframeWeighting(t *testing.T) {
	scores := []TimeframeScore{
		ts(store.Interval1d, 1.0),
		ts(store.Interval4h, 0.0),
		ts(store.Interval1h, 0.0),
		ts(store.Interval15m, 0.0),
	}
	fused := Fuse("BTCUSDT", scores)
	require.InDelta(t, 0.40, fused.FusedScore, 1e-9)
	require.Equal(t, GradeB, fused.Grade)
}

func TestFuse_UnknownTimeframeSetFallsBackToEqualWeights(t *testing.T) {
	scores := []TimeframeScore{
		ts(store.Interval5m, 0.5),
		ts(store.Interval1d, 0.5),
	}
	fused := Fuse("BTCUSDT", scores)
	require.InDelta(t, 0.5, fused.FusedScore, 1e-9)
}

func TestFuse_GradeThresholds(t *testing.T) {
	cases := []struct {
		score float64
		grade Grade
	}{
		{0.65, GradeA},
		{0.40, GradeB},
		{0.20, GradeC},
		{0.05, GradeNone},
		{-0.65, GradeA},
	}
	for _, c := range cases {
		got := gradeFor(c.score)
		require.Equal(t, c.grade, got, "score %v", c.score)
	}
}

func TestFuse_ClampsOutOfRangeWeightedSum(t *testing.T) {
	scores := []TimeframeScore{ts(store.Interval1h, 2.0)}
	fused := Fuse("BTCUSDT", scores)
	require.Equal(t, 1.0, fused.FusedScore)
}
