// Package viz derives the values the filter UI and the renderer need from an
// aggregated dataset: the effective time filter, its soft range, axis labels
// and tooltips.
package viz

import (
	"errors"

	"github.com/jengzang/caseheat-backend-go/internal/models"
)

// ErrNoTimeRange is returned when there is neither an explicit filter nor a
// usable time range to fall back to.
var ErrNoTimeRange = errors.New("no time range available")

// ErrInvertedFilter is returned for a filter whose min is after its max
var ErrInvertedFilter = errors.New("filter min is after max")

// AnimationStepMillis is how far the range input advances per animation step
const AnimationStepMillis int64 = 24 * 60 * 60 * 1000

// Soft range blend weights
const (
	softOuter = 0.9
	softInner = 0.1
)

// ValidateFilter rejects inverted intervals
func ValidateFilter(fv models.FilterValue) error {
	if fv.Min > fv.Max {
		return ErrInvertedFilter
	}
	return nil
}

// Reconcile returns the external filter when set, otherwise the full range
func Reconcile(external *models.FilterValue, tr models.TimeRange) (models.FilterValue, error) {
	if external != nil {
		return *external, nil
	}
	if tr.Empty() {
		return models.FilterValue{}, ErrNoTimeRange
	}
	return models.FilterValue{Min: tr.Min, Max: tr.Max}, nil
}

// SoftRangeOf blends the filter bounds at 10% and 90%. The result is clamped
// so that min <= low <= high <= max holds despite float rounding.
func SoftRangeOf(fv models.FilterValue) models.SoftRange {
	lo, hi := float64(fv.Min), float64(fv.Max)
	low := lo*softOuter + hi*softInner
	high := lo*softInner + hi*softOuter
	if lo > hi {
		return models.SoftRange{Low: low, High: high}
	}

	low = clamp(low, lo, hi)
	high = clamp(high, lo, hi)
	if low > high {
		low, high = high, low
	}
	return models.SoftRange{Low: low, High: high}
}

// State assembles everything the range input needs
func State(datasetID string, external *models.FilterValue, tr models.TimeRange) (models.FilterState, error) {
	value, err := Reconcile(external, tr)
	if err != nil {
		return models.FilterState{}, err
	}
	return models.FilterState{
		DatasetID:  datasetID,
		TimeRange:  tr,
		Value:      value,
		SoftRange:  SoftRangeOf(value),
		Custom:     external != nil,
		MinLabel:   FormatLabel(value.Min),
		MaxLabel:   FormatLabel(value.Max),
		Markers:    TimelineMarkers(tr),
		StepMillis: AnimationStepMillis,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
