package audio

import "math"

// silenceFloor is the peak below which a slice is left unscaled.
const silenceFloor = 1e-6

// PeakNormalize scales samples in place so the largest magnitude is 1.
// Near-silent input is left untouched.
func PeakNormalize(samples []float32) {
	var peak float64
	for _, s := range samples {
		if v := math.Abs(float64(s)); v > peak {
			peak = v
		}
	}
	if peak <= silenceFloor {
		return
	}
	for i := range samples {
		samples[i] = float32(float64(samples[i]) / peak)
	}
}

// PreEmphasis applies y[n] = x[n] - coef*x[n-1] in place, walking backwards so
// every output uses the original previous sample. A zero coefficient is a no-op.
func PreEmphasis(samples []float32, coef float64) {
	if coef == 0 {
		return
	}
	for i := len(samples) - 1; i > 0; i-- {
		samples[i] = float32(float64(samples[i]) - coef*float64(samples[i-1]))
	}
}

// FitLength returns a copy of samples padded with zeros or truncated to length.
func FitLength(samples []float32, length int) []float32 {
	if length < 0 {
		length = 0
	}
	out := make([]float32, length)
	copy(out, samples)
	return out
}

// PrepareEmbeddingInput fits a segment to the embedding model's fixed input
// length and peak-normalizes it.
func PrepareEmbeddingInput(samples []float32, length int) []float32 {
	out := FitLength(samples, length)
	PeakNormalize(out)
	return out
}
