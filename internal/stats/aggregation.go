package stats

import (
	"github.com/jengzang/caseheat-backend-go/internal/models"
)

// Mean calculates the arithmetic mean of a slice of int values
func Mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

// Summarize computes count, total, min, max and mean of the weights.
// All fields are zero for an empty slice.
func Summarize(weights []int) models.WeightSummary {
	s := models.WeightSummary{Count: len(weights)}
	if len(weights) == 0 {
		return s
	}

	s.MinValue = weights[0]
	s.MaxValue = weights[0]
	for _, w := range weights {
		s.Total += w
		if w != 0 {
			s.NonZero++
		}
		if w < s.MinValue {
			s.MinValue = w
		}
		if w > s.MaxValue {
			s.MaxValue = w
		}
	}
	s.Mean = Mean(weights)
	q := Percentiles(weights, 50, 95)
	s.P50, s.P95 = q[0], q[1]
	return s
}

// SpatialWeights extracts the weights of spatial points
func SpatialWeights(points []models.SpatialPoint) []int {
	out := make([]int, len(points))
	for i, p := range points {
		out[i] = p.Weight
	}
	return out
}

// TemporalWeights extracts the weights of timeline points
func TemporalWeights(points []models.TemporalPoint) []int {
	out := make([]int, len(points))
	for i, p := range points {
		out[i] = p.Weight
	}
	return out
}
