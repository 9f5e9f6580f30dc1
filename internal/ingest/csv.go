package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jengzang/caseheat-backend-go/internal/models"
)

// ctxCheckEvery is how many rows are read between context checks
const ctxCheckEvery = 10000

// ReadCSV parses a case line list with a header row. Empty and NaN cells
// are treated as missing values.
func ReadCSV(ctx context.Context, r io.Reader, opts Options) ([]models.CaseRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	lonIdx, ok := columns[opts.LongitudeField]
	if !ok {
		return nil, fmt.Errorf("csv has no %q column", opts.LongitudeField)
	}
	latIdx, ok := columns[opts.LatitudeField]
	if !ok {
		return nil, fmt.Errorf("csv has no %q column", opts.LatitudeField)
	}
	reportedIdx := columnIndex(columns, opts.ReportedField)
	fallbackIdx := columnIndex(columns, opts.FallbackField)

	var records []models.CaseRecord
	for row := 0; ; row++ {
		if row%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", row+1, err)
		}

		rec := models.CaseRecord{
			ID:           int64(row),
			ReportedDate: cell(fields, reportedIdx),
			FallbackDate: cell(fields, fallbackIdx),
		}
		lon, lonOK := floatCell(fields, lonIdx)
		lat, latOK := floatCell(fields, latIdx)
		if lonOK && latOK {
			rec.Coordinates = &models.Coordinates{Longitude: lon, Latitude: lat}
		}
		records = append(records, rec)
	}
	return records, nil
}

func columnIndex(columns map[string]int, name string) int {
	if name == "" {
		return -1
	}
	if i, ok := columns[name]; ok {
		return i
	}
	return -1
}

func cell(fields []string, idx int) *string {
	if idx < 0 || idx >= len(fields) {
		return nil
	}
	v := strings.TrimSpace(fields[idx])
	if v == "NaN" {
		return nil
	}
	return models.StringPtr(v)
}

func floatCell(fields []string, idx int) (float64, bool) {
	v := cell(fields, idx)
	if v == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(*v, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
