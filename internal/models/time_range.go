package models

import (
	"math"

	"github.com/goccy/go-json"
)

// TimeRange is the [Min, Max] span of point timestamps in Unix milliseconds.
// The empty range uses (MaxInt64, MinInt64) in place of (+inf, -inf) and
// must be checked with Empty before use.
type TimeRange struct {
	Min int64
	Max int64
}

// EmptyTimeRange returns the "no data" sentinel
func EmptyTimeRange() TimeRange {
	return TimeRange{Min: math.MaxInt64, Max: math.MinInt64}
}

// Empty reports whether the range is the sentinel (or otherwise inverted)
func (r TimeRange) Empty() bool {
	return r.Min > r.Max
}

// Extend widens the range to include ts
func (r TimeRange) Extend(ts int64) TimeRange {
	if ts < r.Min {
		r.Min = ts
	}
	if ts > r.Max {
		r.Max = ts
	}
	return r
}

// MarshalJSON renders the range as [min, max], or null when empty
func (r TimeRange) MarshalJSON() ([]byte, error) {
	if r.Empty() {
		return []byte("null"), nil
	}
	return json.Marshal([2]int64{r.Min, r.Max})
}

// UnmarshalJSON accepts the forms produced by MarshalJSON
func (r *TimeRange) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = EmptyTimeRange()
		return nil
	}
	var pair [2]int64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	r.Min, r.Max = pair[0], pair[1]
	return nil
}

// FilterValue is the active time interval selected by the range input.
// It is replaced on every update, never mutated.
type FilterValue struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// SoftRange is the inner interval at which rendering starts fading points out
type SoftRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// FilterState is everything the filter UI needs to draw the range input
type FilterState struct {
	DatasetID  string       `json:"dataset_id"`
	TimeRange  TimeRange    `json:"time_range"`
	Value      FilterValue  `json:"value"`
	SoftRange  SoftRange    `json:"soft_range"`
	Custom     bool         `json:"custom"` // false when Value defaults to TimeRange
	MinLabel   string       `json:"min_label"`
	MaxLabel   string       `json:"max_label"`
	Markers    []TimeMarker `json:"markers"`
	StepMillis int64        `json:"animation_speed"`
}

// TimeMarker is a labelled tick on the time axis
type TimeMarker struct {
	Timestamp int64  `json:"timestamp"`
	Label     string `json:"label"`
}

// DatasetInfo describes the currently loaded dataset
type DatasetInfo struct {
	ID             string         `json:"id"`
	Source         string         `json:"source"`
	LoadedAt       int64          `json:"loaded_at"` // Unix milliseconds
	Records        int            `json:"records"`
	SpatialPoints  int            `json:"spatial_points"`
	TemporalPoints int            `json:"temporal_points"`
	Locations      int            `json:"locations"`
	Dates          int            `json:"dates"`
	Skipped        map[string]int `json:"skipped"`         // Spatio-temporal pipeline
	SpatialSkipped map[string]int `json:"spatial_skipped"` // Spatial pipeline
	Samples        []string       `json:"samples,omitempty"`
	TimeRange      TimeRange      `json:"time_range"`
}
