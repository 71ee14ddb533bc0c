// Package peaks locates strict local maxima in scored sequences.
package peaks

// Find returns the ascending indices i with minDistance <= i < len(scores)-minDistance
// where scores[i] exceeds threshold and is strictly greater than every other
// score within minDistance on both sides. Equal neighbours disqualify a
// candidate. A minDistance below 1 is treated as 1.
func Find(scores []float64, threshold float64, minDistance int) []int {
	if minDistance < 1 {
		minDistance = 1
	}
	var out []int
	for i := minDistance; i < len(scores)-minDistance; i++ {
		if scores[i] <= threshold {
			continue
		}
		if isPeak(scores, i, minDistance) {
			out = append(out, i)
		}
	}
	return out
}

func isPeak(scores []float64, i, minDistance int) bool {
	for j := i - minDistance; j <= i+minDistance; j++ {
		if j != i && scores[j] >= scores[i] {
			return false
		}
	}
	return true
}
