// Package aggregation turns case records into weighted heatmap points.
//
// Two pipelines share the same key extraction: the spatial pipeline counts
// records per exact coordinate pair, the spatio-temporal pipeline counts
// them per (coordinate pair, effective date) and also derives the overall
// time range. Both are pure functions of their input.
package aggregation

import (
	"github.com/jengzang/caseheat-backend-go/internal/models"
)

// Options controls key extraction
type Options struct {
	ValidateRange bool // Reject pairs outside ±180 lon / ±90 lat; off for projected data
	MaxSamples    int  // Malformed record messages kept in the report
}

// DefaultOptions returns the options used by the service. Coordinates pass
// through as given, whatever their reference system.
func DefaultOptions() Options {
	return Options{ValidateRange: false, MaxSamples: 10}
}

// SpatialResult is the output of the spatial pipeline
type SpatialResult struct {
	Table  *SpatialTable
	Points []models.SpatialPoint
	Report Report
}

// TemporalResult is the output of the spatio-temporal pipeline
type TemporalResult struct {
	Table  *TemporalTable
	Points []models.TemporalPoint
	Range  models.TimeRange
	Report Report
}

// AggregateSpatial runs the spatial pipeline
func AggregateSpatial(records []models.CaseRecord, opts Options) (*SpatialResult, error) {
	table, report, err := BuildSpatialTable(records, opts)
	if err != nil {
		return nil, err
	}
	return &SpatialResult{
		Table:  table,
		Points: table.Flatten(),
		Report: report,
	}, nil
}

// AggregateTemporal runs the spatio-temporal pipeline
func AggregateTemporal(records []models.CaseRecord, opts Options) (*TemporalResult, error) {
	table, report, err := BuildTemporalTable(records, opts)
	if err != nil {
		return nil, err
	}
	points := table.Flatten()
	return &TemporalResult{
		Table:  table,
		Points: points,
		Range:  TimeRangeOf(points),
		Report: report,
	}, nil
}

// TimeRangeOf returns the min and max timestamps of points, or the empty
// sentinel when there are none.
func TimeRangeOf(points []models.TemporalPoint) models.TimeRange {
	r := models.EmptyTimeRange()
	for _, p := range points {
		r = r.Extend(p.Timestamp)
	}
	return r
}
