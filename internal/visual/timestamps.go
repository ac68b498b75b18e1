package visual

import "math"

// Stage is the narrative zone of a frame within a cooking video.
type Stage string

const (
	StageIntro   Stage = "intro"
	StageCooking Stage = "cooking"
	StageOutro   Stage = "outro"
)

var (
	// Points as fractions of duration. Intro previews the dish, the middle
	// four cover preparation, the last shows plating.
	shortFractions = []float64{0.05, 0.5, 0.9}
	baseFractions  = []float64{0.05, 0.25, 0.40, 0.55, 0.70, 0.90}
	longFractions  = []float64{0.05, 0.15, 0.25, 0.40, 0.55, 0.70, 0.80, 0.90}
)

const (
	shortVideoSecs = 10
	longVideoSecs  = 60
)

// Timestamps picks up to maxFrames strictly increasing offsets in seconds,
// each below duration. Videos under a second yield a single frame at 0.
func Timestamps(duration float64, maxFrames int) []float64 {
	if maxFrames <= 0 {
		maxFrames = DefaultConfig().MaxFrames
	}
	if duration < 1 || math.IsNaN(duration) {
		return []float64{0}
	}

	fractions := baseFractions
	switch {
	case duration < shortVideoSecs:
		fractions = shortFractions
	case duration >= longVideoSecs:
		fractions = longFractions
	}

	out := make([]float64, 0, len(fractions))
	for _, f := range fractions {
		ts := math.Floor(f*duration*10) / 10
		if ts >= duration {
			continue
		}
		if len(out) > 0 && ts <= out[len(out)-1] {
			continue
		}
		out = append(out, ts)
	}

	if len(out) <= maxFrames {
		return out
	}
	return sampleEvenly(out, maxFrames)
}

// sampleEvenly keeps n items including the first and last.
func sampleEvenly(in []float64, n int) []float64 {
	if n == 1 {
		return in[:1]
	}
	out := make([]float64, 0, n)
	last := len(in) - 1
	for i := 0; i < n; i++ {
		idx := int(math.Round(float64(i) * float64(last) / float64(n-1)))
		out = append(out, in[idx])
	}
	return out
}

// StageAt labels an offset by its position in the video.
func StageAt(ts, duration float64) Stage {
	if duration <= 0 {
		return StageCooking
	}
	return stageForFraction(ts / duration)
}

// stageForPosition labels the i-th of n images the same way.
func stageForPosition(i, n int) Stage {
	if n <= 1 {
		return StageCooking
	}
	return stageForFraction(float64(i) / float64(n-1))
}

func stageForFraction(f float64) Stage {
	switch {
	case f < 0.12:
		return StageIntro
	case f >= 0.85:
		return StageOutro
	default:
		return StageCooking
	}
}
