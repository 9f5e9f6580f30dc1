package aggregation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/s2"

	"github.com/jengzang/caseheat-backend-go/internal/models"
)

// LocationKey identifies a location by its exact coordinate pair. There is
// no snapping: pairs that differ in the last bit are distinct locations, and
// so are -0 and +0. Tables compare keys by their bit patterns, see id.
type LocationKey struct {
	Lon float64
	Lat float64
}

// locationID is the bit pattern of a LocationKey, used as the map key so
// that identity is bit-identical rather than float ==.
type locationID struct {
	lon uint64
	lat uint64
}

func (k LocationKey) id() locationID {
	return locationID{lon: math.Float64bits(k.Lon), lat: math.Float64bits(k.Lat)}
}

// String renders the key as "lon,lat" using the shortest representation
// that parses back to the same float64 values.
func (k LocationKey) String() string {
	return strconv.FormatFloat(k.Lon, 'g', -1, 64) + "," + strconv.FormatFloat(k.Lat, 'g', -1, 64)
}

// ParseLocationKey is the inverse of LocationKey.String
func ParseLocationKey(s string) (LocationKey, error) {
	lonStr, latStr, ok := strings.Cut(s, ",")
	if !ok {
		return LocationKey{}, fmt.Errorf("invalid location key %q", s)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return LocationKey{}, fmt.Errorf("invalid longitude in %q: %w", s, err)
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return LocationKey{}, fmt.Errorf("invalid latitude in %q: %w", s, err)
	}
	return LocationKey{Lon: lon, Lat: lat}, nil
}

// DateKey is a record's effective date string, used verbatim. "2020-01-01"
// and "2020-01-01T00:00:00" are different keys.
type DateKey string

func (k DateKey) String() string {
	return string(k)
}

// dateLayouts are tried in order when converting a DateKey to a timestamp.
// Layouts without a zone are read as UTC.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006/1/2",
}

// ParseDateKey converts a date key to Unix milliseconds (UTC)
func ParseDateKey(k DateKey) (int64, error) {
	s := strings.TrimSpace(string(k))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("unrecognised date %q", string(k))
}

// ExtractLocation derives the location key of a record. With validateRange
// the pair must also be a valid WGS84 longitude/latitude.
func ExtractLocation(rec models.CaseRecord, validateRange bool) (LocationKey, error) {
	if rec.Coordinates == nil {
		return LocationKey{}, malformed(ReasonMissingCoordinates, "no coordinates")
	}
	lon, lat := rec.Coordinates.Longitude, rec.Coordinates.Latitude
	if !finite(lon) || !finite(lat) {
		return LocationKey{}, malformed(ReasonInvalidCoordinates, "non-finite coordinates (%v, %v)", lon, lat)
	}
	if validateRange && !s2.LatLngFromDegrees(lat, lon).IsValid() {
		return LocationKey{}, malformed(ReasonInvalidCoordinates, "coordinates out of range (%v, %v)", lon, lat)
	}
	return LocationKey{Lon: lon, Lat: lat}, nil
}

// ExtractDate resolves the effective date of a record: the reported date
// when present, the fallback date otherwise. It returns the key and its
// timestamp in Unix milliseconds.
func ExtractDate(rec models.CaseRecord) (DateKey, int64, error) {
	var key DateKey
	switch {
	case rec.ReportedDate != nil && *rec.ReportedDate != "":
		key = DateKey(*rec.ReportedDate)
	case rec.FallbackDate != nil && *rec.FallbackDate != "":
		key = DateKey(*rec.FallbackDate)
	default:
		return "", 0, malformed(ReasonUnresolvedDate, "neither reported nor fallback date present")
	}
	ms, err := ParseDateKey(key)
	if err != nil {
		return "", 0, malformed(ReasonUnparseableDate, "%v", err)
	}
	return key, ms, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
