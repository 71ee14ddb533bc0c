package changepoint

import (
	"math"
	"sort"

	"diarize/internal/peaks"
)

const (
	// MinSpacing is the minimum distance in seconds between kept change points.
	MinSpacing = 1.0
	// fallbackStep spaces synthesized change points when none are detected.
	fallbackStep = 30.0
	// fallbackMinDuration is the shortest recording that receives synthesized points.
	fallbackMinDuration = 10.0
	// fallbackTailMargin keeps synthesized points away from the end.
	fallbackTailMargin = 10.0
	thresholdFloorMin   = 0.01
	thresholdFloorScale = 0.1
	adaptiveBlend       = 0.2
	localFloor          = 0.001
	localPeakScale      = 0.3
)

// Detector finds speaker change timestamps in a scored frame sequence.
type Detector struct{}

// Detection carries the intermediate values of a detection pass.
type Detection struct {
	Points    []float64
	Scores    []float64
	Threshold float64
	Fallback  bool
}

// Detect returns sorted change points strictly inside (0, duration), pairwise
// at least MinSpacing apart.
func (d Detector) Detect(frames []Frame, threshold, duration float64) []float64 {
	return d.Analyze(frames, threshold, duration).Points
}

// Analyze runs detection and keeps the scores and the adaptive threshold used.
func (Detector) Analyze(frames []Frame, threshold, duration float64) Detection {
	scores := Score(frames)
	adaptive := AdaptiveThreshold(scores, threshold)

	var detected []float64
	for _, idx := range peaks.Find(scores, adaptive, 1) {
		detected = append(detected, frames[idx].Time)
	}
	// Peaks in the padded tail lie at or past duration and do not count.
	points := normalize(detected, duration)
	fallback := false
	if len(points) == 0 {
		points = normalize(fallbackPoints(duration), duration)
		fallback = len(points) > 0
	}
	return Detection{
		Points:    points,
		Scores:    scores,
		Threshold: adaptive,
		Fallback:  fallback,
	}
}

// AdaptiveThreshold lifts the requested threshold toward the score maximum:
// max(floor, mean + 0.2*(max-mean)) with floor = max(0.01, requested*0.1).
func AdaptiveThreshold(scores []float64, requested float64) float64 {
	floor := math.Max(thresholdFloorMin, requested*thresholdFloorScale)
	if len(scores) == 0 {
		return floor
	}
	var sum, maxScore float64
	for _, s := range scores {
		sum += s
		if s > maxScore {
			maxScore = s
		}
	}
	mean := sum / float64(len(scores))
	return math.Max(floor, mean+adaptiveBlend*(maxScore-mean))
}

// LocalPeaks returns peak indices within one window's scores using
// max(0.001, min(threshold, 0.3*windowMax)) as the cutoff.
func LocalPeaks(scores []float64, threshold float64) []int {
	var windowMax float64
	for _, s := range scores {
		if s > windowMax {
			windowMax = s
		}
	}
	cutoff := math.Max(localFloor, math.Min(threshold, localPeakScale*windowMax))
	return peaks.Find(scores, cutoff, 1)
}

func fallbackPoints(duration float64) []float64 {
	if duration <= fallbackMinDuration {
		return nil
	}
	var points []float64
	for t := fallbackStep; t < duration-fallbackTailMargin; t += fallbackStep {
		points = append(points, t)
	}
	return points
}

// normalize filters to (0, duration), sorts, and merges points closer than
// MinSpacing to the last kept point, keeping the earlier one.
func normalize(points []float64, duration float64) []float64 {
	inside := make([]float64, 0, len(points))
	for _, p := range points {
		if p > 0 && p < duration {
			inside = append(inside, p)
		}
	}
	sort.Float64s(inside)
	var out []float64
	for _, p := range inside {
		if len(out) > 0 && p-out[len(out)-1] < MinSpacing {
			continue
		}
		out = append(out, p)
	}
	return out
}
