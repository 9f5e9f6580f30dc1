// Package ingest loads case records from GeoJSON feature collections, CSV
// line lists and other sources, and cleans them up enough for aggregation.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"

	"github.com/jengzang/caseheat-backend-go/internal/models"
)

// Source provides the raw records of one dataset load
type Source interface {
	Name() string
	Load(ctx context.Context) ([]models.CaseRecord, error)
}

// Format is the file format of a FileSource
type Format string

const (
	FormatGeoJSON Format = "geojson"
	FormatCSV     Format = "csv"
)

// Options names the fields records are read from
type Options struct {
	ReportedField  string // Primary date property / column
	FallbackField  string // Date used when the primary one is empty
	LongitudeField string // CSV only
	LatitudeField  string // CSV only
}

// DefaultOptions returns the field names of the Ontario case line list
func DefaultOptions() Options {
	return Options{
		ReportedField:  "Case_Reported_Date",
		FallbackField:  "Test_Reported_Date",
		LongitudeField: "Reporting_PHU_Longitude",
		LatitudeField:  "Reporting_PHU_Latitude",
	}
}

// DetectFormat guesses the format from the file extension
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return FormatGeoJSON, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("cannot detect format of %q", path)
}

// FileSource reads records from a GeoJSON or CSV file on every Load
type FileSource struct {
	Path    string
	Format  Format // Detected from the extension when empty
	Options Options
}

// NewFileSource creates a file source
func NewFileSource(path string, format Format, opts Options) *FileSource {
	return &FileSource{Path: path, Format: format, Options: opts}
}

// Name returns a description of the source
func (s *FileSource) Name() string {
	return "file:" + s.Path
}

// Load reads and parses the file
func (s *FileSource) Load(ctx context.Context) ([]models.CaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format := s.Format
	if format == "" {
		detected, err := DetectFormat(s.Path)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.Path, err)
	}
	defer f.Close()

	var records []models.CaseRecord
	switch format {
	case FormatGeoJSON:
		records, err = ReadGeoJSON(f, s.Options)
	case FormatCSV:
		records, err = ReadCSV(ctx, f, s.Options)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}

	for i := range records {
		records[i].Source = s.Path
	}

	log.WithFields(log.Fields{
		"path":    s.Path,
		"format":  format,
		"records": len(records),
	}).Info("loaded case records")
	return records, nil
}
