package aggregation

import (
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/jengzang/caseheat-backend-go/internal/models"
)

func ms(date string) int64 {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return t.UnixMilli()
}

func scenarioRecords() []models.CaseRecord {
	return []models.CaseRecord{
		models.NewCaseRecord(1, 2, "2020-01-01", ""),
		models.NewCaseRecord(1, 2, "2020-01-01", ""),
		models.NewCaseRecord(3, 4, "2020-01-02", ""),
	}
}

func TestAggregateSpatialScenario(t *testing.T) {
	res, err := AggregateSpatial(scenarioRecords(), DefaultOptions())
	if err != nil {
		t.Fatalf("AggregateSpatial: %v", err)
	}

	want := map[models.SpatialPoint]bool{
		{Longitude: 1, Latitude: 2, Weight: 2}: true,
		{Longitude: 3, Latitude: 4, Weight: 1}: true,
	}
	if len(res.Points) != len(want) {
		t.Fatalf("expected %d points, got %d: %v", len(want), len(res.Points), res.Points)
	}
	for _, p := range res.Points {
		if !want[p] {
			t.Errorf("unexpected point %+v", p)
		}
	}
	if res.Report.Keyed != 3 || res.Report.SkippedTotal() != 0 {
		t.Errorf("unexpected report %+v", res.Report)
	}
}

func TestAggregateTemporalScenario(t *testing.T) {
	res, err := AggregateTemporal(scenarioRecords(), DefaultOptions())
	if err != nil {
		t.Fatalf("AggregateTemporal: %v", err)
	}

	d1, d2 := ms("2020-01-01"), ms("2020-01-02")
	want := map[models.TemporalPoint]bool{
		{Timestamp: d1, Longitude: 1, Latitude: 2, Weight: 2}: true,
		{Timestamp: d1, Longitude: 3, Latitude: 4, Weight: 0}: true,
		{Timestamp: d2, Longitude: 1, Latitude: 2, Weight: 0}: true,
		{Timestamp: d2, Longitude: 3, Latitude: 4, Weight: 1}: true,
	}
	if len(res.Points) != len(want) {
		t.Fatalf("expected %d points, got %d: %v", len(want), len(res.Points), res.Points)
	}
	for _, p := range res.Points {
		if !want[p] {
			t.Errorf("unexpected point %+v", p)
		}
	}
	if res.Range.Min != d1 || res.Range.Max != d2 {
		t.Errorf("expected range [%d, %d], got %+v", d1, d2, res.Range)
	}
}

func TestAggregateEmpty(t *testing.T) {
	sp, err := AggregateSpatial(nil, DefaultOptions())
	if err != nil {
		t.Fatalf("AggregateSpatial: %v", err)
	}
	if len(sp.Points) != 0 {
		t.Errorf("expected no spatial points, got %v", sp.Points)
	}

	tp, err := AggregateTemporal(nil, DefaultOptions())
	if err != nil {
		t.Fatalf("AggregateTemporal: %v", err)
	}
	if len(tp.Points) != 0 {
		t.Errorf("expected no temporal points, got %v", tp.Points)
	}
	if !tp.Range.Empty() {
		t.Errorf("expected empty sentinel range, got %+v", tp.Range)
	}
	if tp.Range.Min != math.MaxInt64 || tp.Range.Max != math.MinInt64 {
		t.Errorf("sentinel should be (MaxInt64, MinInt64), got %+v", tp.Range)
	}
}

func TestFallbackDateUsedWhenReportedMissing(t *testing.T) {
	records := []models.CaseRecord{
		models.NewCaseRecord(5, 6, "", "2021-03-04"),
	}
	res, err := AggregateTemporal(records, DefaultOptions())
	if err != nil {
		t.Fatalf("AggregateTemporal: %v", err)
	}
	if len(res.Points) != 1 {
		t.Fatalf("expected 1 point, got %v", res.Points)
	}
	if res.Points[0].Timestamp != ms("2021-03-04") || res.Points[0].Weight != 1 {
		t.Errorf("expected fallback date cell, got %+v", res.Points[0])
	}
	if got := res.Table.Dates(); len(got) != 1 || got[0] != "2021-03-04" {
		t.Errorf("expected fallback date key, got %v", got)
	}
}

func TestMalformedRecordsAreSkipped(t *testing.T) {
	records := []models.CaseRecord{
		models.NewCaseRecord(1, 2, "2020-01-01", ""),
		{ReportedDate: models.StringPtr("2020-01-01")}, // no coordinates
		models.NewCaseRecord(1, 2, "", ""),             // no date at all
		models.NewCaseRecord(math.NaN(), 2, "2020-01-01", ""),
		models.NewCaseRecord(1, 2, "not a date", ""),
		models.NewCaseRecord(200, 2, "2020-01-01", ""), // longitude out of range
	}
	opts := DefaultOptions()
	opts.ValidateRange = true

	sp, err := AggregateSpatial(records, opts)
	if err != nil {
		t.Fatalf("AggregateSpatial: %v", err)
	}
	// The spatial pipeline ignores dates, so only coordinate problems count.
	if sp.Report.Keyed != 3 {
		t.Errorf("spatial: expected 3 keyed records, got %d", sp.Report.Keyed)
	}
	if sp.Report.Skipped[ReasonMissingCoordinates] != 1 || sp.Report.Skipped[ReasonInvalidCoordinates] != 2 {
		t.Errorf("spatial: unexpected skips %v", sp.Report.Skipped)
	}

	tp, err := AggregateTemporal(records, opts)
	if err != nil {
		t.Fatalf("AggregateTemporal: %v", err)
	}
	if tp.Report.Keyed != 1 {
		t.Errorf("temporal: expected 1 keyed record, got %d", tp.Report.Keyed)
	}
	wantSkips := map[Reason]int{
		ReasonMissingCoordinates: 1,
		ReasonInvalidCoordinates: 2,
		ReasonUnresolvedDate:     1,
		ReasonUnparseableDate:    1,
	}
	for reason, n := range wantSkips {
		if tp.Report.Skipped[reason] != n {
			t.Errorf("temporal: expected %d %s, got %d", n, reason, tp.Report.Skipped[reason])
		}
	}
	if tp.Report.Keyed+tp.Report.SkippedTotal() != tp.Report.Total {
		t.Errorf("keyed + skipped should equal total: %+v", tp.Report)
	}
	if len(tp.Report.Samples) != 5 {
		t.Errorf("expected 5 samples, got %v", tp.Report.Samples)
	}
}

func TestDefaultOptionsKeepProjectedCoordinates(t *testing.T) {
	// UTM-style easting/northing, far outside WGS84 degrees
	records := []models.CaseRecord{
		models.NewCaseRecord(630000, 4830000, "2020-01-01", ""),
		models.NewCaseRecord(630000, 4830000, "2020-01-01", ""),
	}

	sp, err := AggregateSpatial(records, DefaultOptions())
	if err != nil {
		t.Fatalf("AggregateSpatial: %v", err)
	}
	want := models.SpatialPoint{Longitude: 630000, Latitude: 4830000, Weight: 2}
	if len(sp.Points) != 1 || sp.Points[0] != want {
		t.Errorf("projected coordinates should pass through, got %v", sp.Points)
	}
	if sp.Report.SkippedTotal() != 0 {
		t.Errorf("nothing should be skipped, got %v", sp.Report.Skipped)
	}

	tp, err := AggregateTemporal(records, DefaultOptions())
	if err != nil {
		t.Fatalf("AggregateTemporal: %v", err)
	}
	if len(tp.Points) != 1 || tp.Points[0].Weight != 2 {
		t.Errorf("expected one cell of weight 2, got %v", tp.Points)
	}
	if tp.Range.Empty() || tp.Range.Min != ms("2020-01-01") {
		t.Errorf("expected a real time range, got %+v", tp.Range)
	}

	validated := DefaultOptions()
	validated.ValidateRange = true
	strict, err := AggregateSpatial(records, validated)
	if err != nil {
		t.Fatalf("AggregateSpatial: %v", err)
	}
	if len(strict.Points) != 0 || strict.Report.Skipped[ReasonInvalidCoordinates] != 2 {
		t.Errorf("range check should reject both records, got %v / %v", strict.Points, strict.Report.Skipped)
	}
}

func TestWeightsAndCellCounts(t *testing.T) {
	records := []models.CaseRecord{
		models.NewCaseRecord(-79.38, 43.65, "2020-04-01", ""),
		models.NewCaseRecord(-79.38, 43.65, "2020-04-02", ""),
		models.NewCaseRecord(-79.38, 43.65000000000001, "2020-04-02", ""),
		models.NewCaseRecord(-75.7, 45.42, "", "2020-04-03"),
		models.NewCaseRecord(-80.49, 43.45, "2020-04-01", ""),
		models.NewCaseRecord(-80.49, 43.45, "2020-04-01", ""),
		models.NewCaseRecord(-80.49, 43.45, "2020-04-01T12:00:00", ""),
	}

	sp, err := AggregateSpatial(records, DefaultOptions())
	if err != nil {
		t.Fatalf("AggregateSpatial: %v", err)
	}
	// Exact equality: 43.65 and 43.65000000000001 are different locations.
	if len(sp.Points) != 4 {
		t.Errorf("expected 4 locations, got %d", len(sp.Points))
	}
	if sum := sumSpatial(sp.Points); sum != len(records) {
		t.Errorf("spatial weights sum to %d, want %d", sum, len(records))
	}

	tp, err := AggregateTemporal(records, DefaultOptions())
	if err != nil {
		t.Fatalf("AggregateTemporal: %v", err)
	}
	// "2020-04-01T12:00:00" is its own date key.
	if len(tp.Table.Dates()) != 4 {
		t.Errorf("expected 4 date keys, got %v", tp.Table.Dates())
	}
	if len(tp.Points) != 4*4 || tp.Table.Cells() != 16 {
		t.Errorf("expected 16 cells, got %d points / %d cells", len(tp.Points), tp.Table.Cells())
	}
	if sum := sumTemporal(tp.Points); sum != len(records) {
		t.Errorf("temporal weights sum to %d, want %d", sum, len(records))
	}
	if tp.Table.Total() != len(records) {
		t.Errorf("table total %d, want %d", tp.Table.Total(), len(records))
	}
	if tp.Range.Min > tp.Range.Max {
		t.Errorf("range inverted: %+v", tp.Range)
	}
	loc := LocationKey{Lon: -80.49, Lat: 43.45}
	if got := tp.Table.Count(loc, "2020-04-01"); got != 2 {
		t.Errorf("expected 2 cases at %s on 2020-04-01, got %d", loc, got)
	}
	if got := tp.Table.Count(loc, "2020-04-03"); got != 0 {
		t.Errorf("unobserved cell should read zero, got %d", got)
	}
}

func TestAggregationIsIdempotent(t *testing.T) {
	records := scenarioRecords()
	first, err := AggregateTemporal(records, DefaultOptions())
	if err != nil {
		t.Fatalf("AggregateTemporal: %v", err)
	}
	second, err := AggregateTemporal(records, DefaultOptions())
	if err != nil {
		t.Fatalf("AggregateTemporal: %v", err)
	}
	a, b := sortedTemporal(first.Points), sortedTemporal(second.Points)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("point %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestKeyUniverseMismatchIsFatal(t *testing.T) {
	records := scenarioRecords()

	table := newSpatialTable([]LocationKey{{Lon: 1, Lat: 2}})
	if _, err := countLocations(table, records, DefaultOptions()); !errors.Is(err, ErrKeyUniverseMismatch) {
		t.Errorf("expected ErrKeyUniverseMismatch, got %v", err)
	}

	temporal := newTemporalTable(
		[]LocationKey{{Lon: 1, Lat: 2}, {Lon: 3, Lat: 4}},
		[]DateKey{"2020-01-01"},
		map[DateKey]int64{"2020-01-01": ms("2020-01-01")},
	)
	if _, err := countCells(temporal, records, DefaultOptions()); !errors.Is(err, ErrKeyUniverseMismatch) {
		t.Errorf("expected ErrKeyUniverseMismatch, got %v", err)
	}
}

func TestTimeRangeOf(t *testing.T) {
	points := []models.TemporalPoint{
		{Timestamp: 30}, {Timestamp: 10}, {Timestamp: 20},
	}
	r := TimeRangeOf(points)
	if r.Min != 10 || r.Max != 30 || r.Empty() {
		t.Errorf("unexpected range %+v", r)
	}
	if !TimeRangeOf(nil).Empty() {
		t.Errorf("expected empty range for no points")
	}
}

func sumSpatial(points []models.SpatialPoint) int {
	n := 0
	for _, p := range points {
		n += p.Weight
	}
	return n
}

func sumTemporal(points []models.TemporalPoint) int {
	n := 0
	for _, p := range points {
		n += p.Weight
	}
	return n
}

func sortedTemporal(points []models.TemporalPoint) []models.TemporalPoint {
	out := make([]models.TemporalPoint, len(points))
	copy(out, points)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		if out[i].Longitude != out[j].Longitude {
			return out[i].Longitude < out[j].Longitude
		}
		return out[i].Latitude < out[j].Latitude
	})
	return out
}

func TestSignedZeroesAreDistinctLocations(t *testing.T) {
	negZero := math.Copysign(0, -1)
	records := []models.CaseRecord{
		models.NewCaseRecord(negZero, 1, "2020-01-01", ""),
		models.NewCaseRecord(0, 1, "2020-01-01", ""),
		models.NewCaseRecord(0, 1, "2020-01-01", ""),
	}

	sp, err := AggregateSpatial(records, DefaultOptions())
	if err != nil {
		t.Fatalf("AggregateSpatial: %v", err)
	}
	if len(sp.Points) != 2 {
		t.Fatalf("expected -0 and +0 to be two locations, got %v", sp.Points)
	}
	if !math.Signbit(sp.Points[0].Longitude) || sp.Points[0].Weight != 1 {
		t.Errorf("first location should keep the sign of -0, got %+v", sp.Points[0])
	}
	if math.Signbit(sp.Points[1].Longitude) || sp.Points[1].Weight != 2 {
		t.Errorf("unexpected +0 location %+v", sp.Points[1])
	}
	if got := sp.Table.Count(LocationKey{Lon: negZero, Lat: 1}); got != 1 {
		t.Errorf("Count(-0, 1) = %d, want 1", got)
	}

	tp, err := AggregateTemporal(records, DefaultOptions())
	if err != nil {
		t.Fatalf("AggregateTemporal: %v", err)
	}
	if tp.Table.Cells() != 2 || tp.Table.Total() != 3 {
		t.Errorf("expected 2 cells totalling 3, got %d cells / %d", tp.Table.Cells(), tp.Table.Total())
	}

	key := sp.Table.Locations()[0]
	back, err := ParseLocationKey(key.String())
	if err != nil || math.Float64bits(back.Lon) != math.Float64bits(negZero) {
		t.Errorf("-0 should round trip through the key string, got %v (%v)", back, err)
	}
}
