// Package changepoint turns per-frame speaker-class scores into speaker change
// timestamps.
package changepoint

import "math"

// probabilityFloor drops near-zero probabilities from the entropy sum.
const probabilityFloor = 1e-6

// Frame is one segmentation model output step.
type Frame struct {
	Window int
	Time   float64
	Scores []float32
}

// dominant returns the index of the highest score; the lowest index wins ties.
func dominant(scores []float32) int {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}

// Entropy returns the Shannon entropy of softmax(scores) normalized to [0,1]
// by ln(len(scores)). Fewer than two classes yields 0.
func Entropy(scores []float32) float64 {
	if len(scores) < 2 {
		return 0
	}
	maxScore := float64(scores[0])
	for _, s := range scores[1:] {
		if float64(s) > maxScore {
			maxScore = float64(s)
		}
	}
	exps := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		exps[i] = math.Exp(float64(s) - maxScore)
		sum += exps[i]
	}
	var entropy float64
	for _, e := range exps {
		p := e / sum
		if p > probabilityFloor {
			entropy -= p * math.Log(p)
		}
	}
	return entropy / math.Log(float64(len(scores)))
}

// Score assigns a change score in [0,1] to every frame. A frame scores zero
// unless its dominant class differs from the previous frame of the same
// window; the first frame of each window always scores zero.
func Score(frames []Frame) []float64 {
	scores := make([]float64, len(frames))
	prev := -1
	for i, f := range frames {
		if i == 0 || f.Window != frames[i-1].Window {
			prev = -1
		}
		if len(f.Scores) == 0 {
			prev = -1
			continue
		}
		current := dominant(f.Scores)
		if prev >= 0 && current != prev {
			scores[i] = math.Min(1, 2*Entropy(f.Scores))
		}
		prev = current
	}
	return scores
}
