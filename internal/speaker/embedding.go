// Package speaker groups segment embeddings into a bounded set of speaker
// identities.
package speaker

import "math"

// normFloor is the L2 norm below which a merged centroid is treated as
// degenerate.
const normFloor = 1e-6

// Embedding is a fixed-dimension speaker vector.
type Embedding []float64

// FromFloat32 converts raw model output into an Embedding.
func FromFloat32(raw []float32) Embedding {
	out := make(Embedding, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out
}

// Norm returns the L2 norm of e.
func (e Embedding) Norm() float64 {
	var sum float64
	for _, v := range e {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of e. Only the all-zero vector comes
// back unchanged. Components are scaled by the largest magnitude first so
// tiny vectors do not underflow.
func (e Embedding) Normalize() Embedding {
	out := make(Embedding, len(e))
	copy(out, e)
	var peak float64
	for _, v := range out {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 || math.IsNaN(peak) || math.IsInf(peak, 0) {
		return out
	}
	for i := range out {
		out[i] /= peak
	}
	norm := out.Norm()
	for i := range out {
		out[i] /= norm
	}
	return out
}

// Cosine returns the dot product of two unit vectors clipped to [-1, 1].
// Vectors of different length have similarity 0.
func Cosine(a, b Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return math.Max(-1, math.Min(1, dot))
}
