package ingest

import (
	"fmt"
	"io"
	"math"
	"regexp"

	"github.com/goccy/go-json"

	"github.com/jengzang/caseheat-backend-go/internal/models"
)

// nanToken matches the bare NaN literal some exporters write in place of a
// number. It is not valid JSON.
var nanToken = regexp.MustCompile(`\bNaN\b`)

// SanitizeNaN replaces every NaN token with null
func SanitizeNaN(data []byte) []byte {
	return nanToken.ReplaceAll(data, []byte("null"))
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Geometry   *geometry              `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ReadGeoJSON parses a FeatureCollection of Point features. Features whose
// geometry is missing, not a point, or contains null ordinates get nil
// coordinates and are left for aggregation to reject.
func ReadGeoJSON(r io.Reader, opts Options) ([]models.CaseRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read geojson: %w", err)
	}

	var fc featureCollection
	if err := json.Unmarshal(SanitizeNaN(data), &fc); err != nil {
		return nil, fmt.Errorf("failed to decode geojson: %w", err)
	}
	if fc.Type != "" && fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected FeatureCollection, got %q", fc.Type)
	}

	records := make([]models.CaseRecord, 0, len(fc.Features))
	for i, f := range fc.Features {
		records = append(records, models.CaseRecord{
			ID:           int64(i),
			Coordinates:  pointCoordinates(f.Geometry),
			ReportedDate: dateProperty(f.Properties, opts.ReportedField),
			FallbackDate: dateProperty(f.Properties, opts.FallbackField),
		})
	}
	return records, nil
}

func pointCoordinates(g *geometry) *models.Coordinates {
	if g == nil || len(g.Coordinates) == 0 {
		return nil
	}
	if g.Type != "" && g.Type != "Point" {
		return nil
	}

	var ords []*float64
	if err := json.Unmarshal(g.Coordinates, &ords); err != nil {
		return nil
	}
	if len(ords) < 2 || ords[0] == nil || ords[1] == nil {
		return nil
	}
	if math.IsNaN(*ords[0]) || math.IsNaN(*ords[1]) {
		return nil
	}
	return &models.Coordinates{Longitude: *ords[0], Latitude: *ords[1]}
}

func dateProperty(props map[string]interface{}, name string) *string {
	if name == "" {
		return nil
	}
	switch v := props[name].(type) {
	case string:
		return models.StringPtr(v)
	case nil:
		return nil
	case float64:
		// Some exports store dates as yyyymmdd numbers; keep the digits.
		return models.StringPtr(fmt.Sprintf("%.0f", v))
	default:
		return models.StringPtr(fmt.Sprint(v))
	}
}
