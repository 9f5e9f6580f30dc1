package aggregation

import (
	"github.com/jengzang/caseheat-backend-go/internal/models"
)

// SpatialTable counts records per location. Every location of the key
// universe is present, starting at zero.
type SpatialTable struct {
	counts map[locationID]int
	order  []LocationKey // first-seen order, used for stable output
}

func newSpatialTable(universe []LocationKey) *SpatialTable {
	t := &SpatialTable{
		counts: make(map[locationID]int, len(universe)),
		order:  make([]LocationKey, 0, len(universe)),
	}
	for _, k := range universe {
		if _, ok := t.counts[k.id()]; ok {
			continue
		}
		t.counts[k.id()] = 0
		t.order = append(t.order, k)
	}
	return t
}

func (t *SpatialTable) increment(k LocationKey) error {
	id := k.id()
	if _, ok := t.counts[id]; !ok {
		return mismatch("location", k)
	}
	t.counts[id]++
	return nil
}

// Count returns the number of records at k
func (t *SpatialTable) Count(k LocationKey) int {
	return t.counts[k.id()]
}

// Len returns the number of locations
func (t *SpatialTable) Len() int {
	return len(t.order)
}

// Locations returns the location universe in first-seen order
func (t *SpatialTable) Locations() []LocationKey {
	out := make([]LocationKey, len(t.order))
	copy(out, t.order)
	return out
}

// Total returns the sum of all counts
func (t *SpatialTable) Total() int {
	total := 0
	for _, c := range t.counts {
		total += c
	}
	return total
}

// Flatten emits one point per location
func (t *SpatialTable) Flatten() []models.SpatialPoint {
	points := make([]models.SpatialPoint, 0, len(t.order))
	for _, k := range t.order {
		points = append(points, models.SpatialPoint{
			Longitude: k.Lon,
			Latitude:  k.Lat,
			Weight:    t.counts[k.id()],
		})
	}
	return points
}

// BuildSpatialTable scans the records twice: once to derive the location
// universe, once to count. Dates are ignored.
func BuildSpatialTable(records []models.CaseRecord, opts Options) (*SpatialTable, Report, error) {
	report := newReport(len(records))

	universe := make([]LocationKey, 0)
	for i, rec := range records {
		k, err := ExtractLocation(rec, opts.ValidateRange)
		if err != nil {
			report.skip(i, err, opts.MaxSamples)
			continue
		}
		universe = append(universe, k)
	}

	table := newSpatialTable(universe)
	keyed, err := countLocations(table, records, opts)
	if err != nil {
		return nil, report, err
	}
	report.Keyed = keyed
	return table, report, nil
}

func countLocations(table *SpatialTable, records []models.CaseRecord, opts Options) (int, error) {
	keyed := 0
	for _, rec := range records {
		k, err := ExtractLocation(rec, opts.ValidateRange)
		if err != nil {
			continue
		}
		if err := table.increment(k); err != nil {
			return keyed, err
		}
		keyed++
	}
	return keyed, nil
}
