package models

// Coordinates is a longitude/latitude pair in the order GeoJSON stores it
type Coordinates struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// CaseRecord represents one reported case event as delivered by a loader.
// A nil pointer means the source value was missing (or was the token NaN).
type CaseRecord struct {
	ID           int64        `json:"id,omitempty" db:"id"`
	Coordinates  *Coordinates `json:"coordinates"`
	ReportedDate *string      `json:"reportedDate" db:"reported_date"` // Case_Reported_Date
	FallbackDate *string      `json:"fallbackDate" db:"fallback_date"` // Test_Reported_Date
	Source       string       `json:"source,omitempty" db:"source"`
}

// NewCaseRecord builds a record with coordinates and the given dates.
// Empty date strings are stored as nil.
func NewCaseRecord(lon, lat float64, reported, fallback string) CaseRecord {
	return CaseRecord{
		Coordinates:  &Coordinates{Longitude: lon, Latitude: lat},
		ReportedDate: StringPtr(reported),
		FallbackDate: StringPtr(fallback),
	}
}

// StringPtr returns nil for an empty string
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
