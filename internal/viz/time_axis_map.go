package viz

import (
	"time"

	"github.com/jengzang/caseheat-backend-go/internal/models"
)

// maxMarkers caps the ticks returned for very long ranges
const maxMarkers = 240

// TimelineMarkers returns one labelled marker per calendar month (UTC)
// between the start and end of the range, starting with the month that
// contains tr.Min. An empty range has no markers.
func TimelineMarkers(tr models.TimeRange) []models.TimeMarker {
	markers := make([]models.TimeMarker, 0)
	if tr.Empty() {
		return markers
	}

	start := time.UnixMilli(tr.Min).UTC()
	month := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for ts := month.UnixMilli(); ts <= tr.Max && len(markers) < maxMarkers; ts = month.UnixMilli() {
		markers = append(markers, models.TimeMarker{
			Timestamp: ts,
			Label:     FormatLabel(ts),
		})
		month = month.AddDate(0, 1, 0)
	}
	return markers
}
