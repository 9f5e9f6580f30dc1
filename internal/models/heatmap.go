package models

// SpatialPoint is one location of the spatial heatmap
type SpatialPoint struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Weight    int     `json:"weight"` // Number of cases at this exact location
}

// TemporalPoint is one location×date cell of the spatio-temporal heatmap
type TemporalPoint struct {
	Timestamp int64   `json:"timestamp"` // Unix milliseconds, UTC
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Weight    int     `json:"numberCases"`
}

// WeightSummary describes the weights of a point set
type WeightSummary struct {
	Count    int     `json:"count"`
	Total    int     `json:"total"`
	NonZero  int     `json:"non_zero"`
	MinValue int     `json:"min_value"`
	MaxValue int     `json:"max_value"`
	Mean     float64 `json:"mean"`
	P50      float64 `json:"p50"`
	P95      float64 `json:"p95"` // Upper end of the renderer's colour domain
}

// Extent is the spatial bounding box and weighted centroid of a point set
type Extent struct {
	MinLat         float64 `json:"min_lat"`
	MaxLat         float64 `json:"max_lat"`
	MinLon         float64 `json:"min_lon"`
	MaxLon         float64 `json:"max_lon"`
	CenterLat      float64 `json:"center_lat"`
	CenterLon      float64 `json:"center_lon"`
	DiagonalMeters float64 `json:"diagonal_meters"`
}

// HeatmapResponse represents the spatial heatmap API response
type HeatmapResponse struct {
	DatasetID string         `json:"dataset_id"`
	Points    []SpatialPoint `json:"points"`
	Summary   WeightSummary  `json:"summary"`
	Extent    *Extent        `json:"extent,omitempty"`
}

// TimelineResponse represents the spatio-temporal heatmap API response
type TimelineResponse struct {
	DatasetID string          `json:"dataset_id"`
	Points    []TemporalPoint `json:"points"`
	TimeRange TimeRange       `json:"time_range"`
	Summary   WeightSummary   `json:"summary"`
}
