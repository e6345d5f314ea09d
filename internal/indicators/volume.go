package indicators

// VolumeTrend classifies the latest volume against its recent average.
type VolumeTrend string

const (
	VolumeSurge  VolumeTrend = "surge"
	VolumeNormal VolumeTrend = "normal"
	VolumeDry    VolumeTrend = "dry"
)

// Volume holds the current-vs-average volume comparison.
type Volume struct {
	Current float64
	MA      float64
	Ratio   float64
	Trend   VolumeTrend
}

// CalcVolume compares the latest entry in volumes against the mean of the
// trailing period (or all available, if shorter), via the go-talib-backed
// SMA helper in ema.go. Ratio >= 2.0 is a surge, <= 0.5 is
// dry, otherwise normal.
func CalcVolume(volumes []float64, period int) Volume {
	if len(volumes) == 0 {
		return Volume{Ratio: 1.0, Trend: VolumeNormal}
	}

	current := volumes[len(volumes)-1]
	window := volumes
	if len(volumes) >= period {
		window = volumes[len(volumes)-period:]
	}

	ma := 1.0
	if sma := SMA(window, len(window)); sma != nil {
		ma = *sma
	}

	ratio := 1.0
	if ma > 0 {
		ratio = current / ma
	}

	trend := VolumeNormal
	switch {
	case ratio >= 2.0:
		trend = VolumeSurge
	case ratio <= 0.5:
		trend = VolumeDry
	}

	return Volume{Current: current, MA: ma, Ratio: ratio, Trend: trend}
}
