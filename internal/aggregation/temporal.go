package aggregation

import (
	"github.com/jengzang/caseheat-backend-go/internal/models"
)

type cell struct {
	loc  locationID
	date DateKey
}

// TemporalTable counts records per (location, date) cell. Only non-zero
// cells are stored; every other cell of the locations × dates cross product
// reads as zero, and Flatten emits the full product.
type TemporalTable struct {
	locations  []LocationKey
	locIndex   map[locationID]struct{}
	dates      []DateKey
	dateMillis map[DateKey]int64
	counts     map[cell]int
}

func newTemporalTable(locations []LocationKey, dates []DateKey, millis map[DateKey]int64) *TemporalTable {
	t := &TemporalTable{
		locIndex:   make(map[locationID]struct{}, len(locations)),
		dateMillis: make(map[DateKey]int64, len(dates)),
		counts:     make(map[cell]int),
	}
	for _, l := range locations {
		if _, ok := t.locIndex[l.id()]; ok {
			continue
		}
		t.locIndex[l.id()] = struct{}{}
		t.locations = append(t.locations, l)
	}
	for _, d := range dates {
		if _, ok := t.dateMillis[d]; ok {
			continue
		}
		t.dateMillis[d] = millis[d]
		t.dates = append(t.dates, d)
	}
	return t
}

func (t *TemporalTable) increment(l LocationKey, d DateKey) error {
	if _, ok := t.locIndex[l.id()]; !ok {
		return mismatch("location", l)
	}
	if _, ok := t.dateMillis[d]; !ok {
		return mismatch("date", d)
	}
	t.counts[cell{loc: l.id(), date: d}]++
	return nil
}

// Count returns the number of records in a cell, zero for unobserved cells
func (t *TemporalTable) Count(l LocationKey, d DateKey) int {
	return t.counts[cell{loc: l.id(), date: d}]
}

// Locations returns the location universe in first-seen order
func (t *TemporalTable) Locations() []LocationKey {
	out := make([]LocationKey, len(t.locations))
	copy(out, t.locations)
	return out
}

// Dates returns the date universe in first-seen order
func (t *TemporalTable) Dates() []DateKey {
	out := make([]DateKey, len(t.dates))
	copy(out, t.dates)
	return out
}

// Cells returns |locations| × |dates|
func (t *TemporalTable) Cells() int {
	return len(t.locations) * len(t.dates)
}

// Total returns the sum of all cell counts
func (t *TemporalTable) Total() int {
	total := 0
	for _, c := range t.counts {
		total += c
	}
	return total
}

// Flatten emits one point per cell of the cross product, zero cells included
func (t *TemporalTable) Flatten() []models.TemporalPoint {
	points := make([]models.TemporalPoint, 0, t.Cells())
	for _, l := range t.locations {
		for _, d := range t.dates {
			points = append(points, models.TemporalPoint{
				Timestamp: t.dateMillis[d],
				Longitude: l.Lon,
				Latitude:  l.Lat,
				Weight:    t.counts[cell{loc: l.id(), date: d}],
			})
		}
	}
	return points
}

// BuildTemporalTable derives the location and date universes from the
// records, then counts each record into its (location, effective date) cell.
// Records without coordinates or without a usable date are skipped.
func BuildTemporalTable(records []models.CaseRecord, opts Options) (*TemporalTable, Report, error) {
	report := newReport(len(records))

	var locations []LocationKey
	var dates []DateKey
	millis := make(map[DateKey]int64)
	for i, rec := range records {
		l, err := ExtractLocation(rec, opts.ValidateRange)
		if err != nil {
			report.skip(i, err, opts.MaxSamples)
			continue
		}
		d, ms, err := ExtractDate(rec)
		if err != nil {
			report.skip(i, err, opts.MaxSamples)
			continue
		}
		locations = append(locations, l)
		dates = append(dates, d)
		millis[d] = ms
	}

	table := newTemporalTable(locations, dates, millis)
	keyed, err := countCells(table, records, opts)
	if err != nil {
		return nil, report, err
	}
	report.Keyed = keyed
	return table, report, nil
}

func countCells(table *TemporalTable, records []models.CaseRecord, opts Options) (int, error) {
	keyed := 0
	for _, rec := range records {
		l, err := ExtractLocation(rec, opts.ValidateRange)
		if err != nil {
			continue
		}
		d, _, err := ExtractDate(rec)
		if err != nil {
			continue
		}
		if err := table.increment(l, d); err != nil {
			return keyed, err
		}
		keyed++
	}
	return keyed, nil
}
