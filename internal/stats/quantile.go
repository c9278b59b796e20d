package stats

import "math"

// percentile returns the nearest-rank value for fraction p from an
// ascending-sorted slice: index = round((n-1)*p), clamped into [0, n-1].
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	idx := int(math.Round(float64(len(sorted)-1) * p))
	if idx < 0 {
		idx = 0
	}
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
