package stats

import (
	"math"
	"sort"
)

// Percentiles calculates the p-th percentiles (0-100) of the weights.
// Uses linear interpolation between closest ranks.
func Percentiles(weights []int, ps ...float64) []float64 {
	results := make([]float64, len(ps))
	if len(weights) == 0 {
		return results
	}

	// Sort once for all ps
	sorted := make([]int, len(weights))
	copy(sorted, weights)
	sort.Ints(sorted)

	n := float64(len(sorted))
	for i, p := range ps {
		if p < 0 {
			p = 0
		}
		if p > 100 {
			p = 100
		}

		index := p / 100.0 * (n - 1)
		lower := int(math.Floor(index))
		upper := int(math.Ceil(index))

		if lower == upper {
			results[i] = float64(sorted[lower])
		} else {
			weight := index - float64(lower)
			results[i] = float64(sorted[lower])*(1-weight) + float64(sorted[upper])*weight
		}
	}

	return results
}
