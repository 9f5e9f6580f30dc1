package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/jengzang/caseheat-backend-go/internal/aggregation"
	"github.com/jengzang/caseheat-backend-go/internal/ingest"
	"github.com/jengzang/caseheat-backend-go/internal/metrics"
	"github.com/jengzang/caseheat-backend-go/internal/models"
	"github.com/jengzang/caseheat-backend-go/internal/spatial"
	"github.com/jengzang/caseheat-backend-go/internal/stats"
	"github.com/jengzang/caseheat-backend-go/internal/viz"
)

// ErrNoDataset is returned before the first successful load
var ErrNoDataset = errors.New("no dataset loaded")

// dataset is one immutable aggregation result plus the active filter
type dataset struct {
	info     models.DatasetInfo
	heatmap  models.HeatmapResponse
	timeline models.TimelineResponse
	filter   *models.FilterValue
}

// HeatmapService owns the current dataset and its time filter
type HeatmapService struct {
	source ingest.Source
	opts   aggregation.Options

	reloadMu sync.Mutex // One load at a time
	mu       sync.RWMutex
	current  *dataset

	now func() time.Time
}

// NewHeatmapService creates a new heatmap service
func NewHeatmapService(source ingest.Source, opts aggregation.Options) *HeatmapService {
	return &HeatmapService{
		source: source,
		opts:   opts,
		now:    time.Now,
	}
}

// Reload reads the source and replaces the current dataset. The filter is
// reset. On error the previous dataset stays in place.
func (s *HeatmapService) Reload(ctx context.Context) (models.DatasetInfo, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := s.now()
	records, err := s.source.Load(ctx)
	if err != nil {
		metrics.ObserveAggregation(time.Since(start), metrics.OutcomeError)
		return models.DatasetInfo{}, fmt.Errorf("failed to load records from %s: %w", s.source.Name(), err)
	}

	ds, err := s.build(records)
	if err != nil {
		metrics.ObserveAggregation(time.Since(start), metrics.OutcomeError)
		return models.DatasetInfo{}, err
	}
	metrics.ObserveAggregation(time.Since(start), metrics.OutcomeSuccess)

	s.mu.Lock()
	s.current = ds
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"dataset":         ds.info.ID,
		"source":          ds.info.Source,
		"records":         ds.info.Records,
		"spatial_points":  ds.info.SpatialPoints,
		"temporal_points": ds.info.TemporalPoints,
		"duration":        time.Since(start).String(),
	}).Info("dataset loaded")

	return ds.info, nil
}

func (s *HeatmapService) build(records []models.CaseRecord) (*dataset, error) {
	spatialResult, err := aggregation.AggregateSpatial(records, s.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate spatial heatmap: %w", err)
	}
	temporalResult, err := aggregation.AggregateTemporal(records, s.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate timeline: %w", err)
	}

	s.recordReport(metrics.PipelineSpatial, spatialResult.Report)
	s.recordReport(metrics.PipelineTemporal, temporalResult.Report)
	metrics.SetOutputPoints(metrics.PipelineSpatial, len(spatialResult.Points))
	metrics.SetOutputPoints(metrics.PipelineTemporal, len(temporalResult.Points))

	id := uuid.NewString()
	info := models.DatasetInfo{
		ID:             id,
		Source:         s.source.Name(),
		LoadedAt:       s.now().UnixMilli(),
		Records:        len(records),
		SpatialPoints:  len(spatialResult.Points),
		TemporalPoints: len(temporalResult.Points),
		Locations:      len(temporalResult.Table.Locations()),
		Dates:          len(temporalResult.Table.Dates()),
		Skipped:        temporalResult.Report.SkippedByName(),
		SpatialSkipped: spatialResult.Report.SkippedByName(),
		Samples:        temporalResult.Report.Samples,
		TimeRange:      temporalResult.Range,
	}

	return &dataset{
		info: info,
		heatmap: models.HeatmapResponse{
			DatasetID: id,
			Points:    spatialResult.Points,
			Summary:   stats.Summarize(stats.SpatialWeights(spatialResult.Points)),
			Extent:    spatial.ComputeExtent(spatialResult.Points),
		},
		timeline: models.TimelineResponse{
			DatasetID: id,
			Points:    temporalResult.Points,
			TimeRange: temporalResult.Range,
			Summary:   stats.Summarize(stats.TemporalWeights(temporalResult.Points)),
		},
	}, nil
}

func (s *HeatmapService) recordReport(pipeline string, report aggregation.Report) {
	for reason, n := range report.Skipped {
		metrics.AddSkipped(pipeline, string(reason), n)
	}
	if skipped := report.SkippedTotal(); skipped > 0 {
		log.WithFields(log.Fields{
			"pipeline": pipeline,
			"skipped":  skipped,
			"total":    report.Total,
		}).Warn("malformed records skipped")
	}
}

func (s *HeatmapService) snapshot() (*dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoDataset
	}
	return s.current, nil
}

// Heatmap returns the spatial heatmap of the current dataset
func (s *HeatmapService) Heatmap() (models.HeatmapResponse, error) {
	ds, err := s.snapshot()
	if err != nil {
		return models.HeatmapResponse{}, err
	}
	return ds.heatmap, nil
}

// Timeline returns the spatio-temporal heatmap of the current dataset
func (s *HeatmapService) Timeline() (models.TimelineResponse, error) {
	ds, err := s.snapshot()
	if err != nil {
		return models.TimelineResponse{}, err
	}
	return ds.timeline, nil
}

// Info returns the metadata of the current dataset
func (s *HeatmapService) Info() (models.DatasetInfo, error) {
	ds, err := s.snapshot()
	if err != nil {
		return models.DatasetInfo{}, err
	}
	return ds.info, nil
}

// FilterState returns the effective filter of the current dataset
func (s *HeatmapService) FilterState() (models.FilterState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.FilterState{}, ErrNoDataset
	}
	return viz.State(s.current.info.ID, s.current.filter, s.current.info.TimeRange)
}

// SetFilter replaces the active filter. Concurrent updates are last write wins.
func (s *HeatmapService) SetFilter(fv models.FilterValue) (models.FilterState, error) {
	if err := viz.ValidateFilter(fv); err != nil {
		return models.FilterState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.FilterState{}, ErrNoDataset
	}
	s.current.filter = &fv
	metrics.IncFilterUpdate("set")
	return viz.State(s.current.info.ID, s.current.filter, s.current.info.TimeRange)
}

// ClearFilter drops the active filter so the full range applies again
func (s *HeatmapService) ClearFilter() (models.FilterState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.FilterState{}, ErrNoDataset
	}
	s.current.filter = nil
	metrics.IncFilterUpdate("clear")
	return viz.State(s.current.info.ID, nil, s.current.info.TimeRange)
}
