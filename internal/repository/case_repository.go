package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/caseheat-backend-go/internal/models"
)

// CaseRepository handles database operations for case records
type CaseRepository struct {
	db *sql.DB
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *sql.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// Name identifies the repository when used as a dataset source
func (r *CaseRepository) Name() string {
	return "sqlite:case_records"
}

// Load returns every stored case record in insertion order
func (r *CaseRepository) Load(ctx context.Context) ([]models.CaseRecord, error) {
	query := `SELECT id, longitude, latitude, reported_date, fallback_date, source
		FROM case_records
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query case records: %w", err)
	}
	defer rows.Close()

	var records []models.CaseRecord
	for rows.Next() {
		var (
			rec                models.CaseRecord
			lon, lat           sql.NullFloat64
			reported, fallback sql.NullString
		)
		if err := rows.Scan(&rec.ID, &lon, &lat, &reported, &fallback, &rec.Source); err != nil {
			return nil, fmt.Errorf("failed to scan case record: %w", err)
		}
		if lon.Valid && lat.Valid {
			rec.Coordinates = &models.Coordinates{Longitude: lon.Float64, Latitude: lat.Float64}
		}
		if reported.Valid {
			rec.ReportedDate = models.StringPtr(reported.String)
		}
		if fallback.Valid {
			rec.FallbackDate = models.StringPtr(fallback.String)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// InsertCases stores records in a single transaction and returns how many
// were written
func (r *CaseRepository) InsertCases(ctx context.Context, records []models.CaseRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertCases(ctx, tx, records); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return len(records), nil
}

// ReplaceSource deletes the records previously imported from source and
// inserts records in their place. Both happen in one transaction, so a
// failed insert leaves the old rows untouched.
func (r *CaseRepository) ReplaceSource(ctx context.Context, source string, records []models.CaseRecord) (int64, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM case_records WHERE source = ?", source)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to delete case records: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if len(records) > 0 {
		if err := insertCases(ctx, tx, records); err != nil {
			return 0, 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return deleted, len(records), nil
}

func insertCases(ctx context.Context, tx *sql.Tx, records []models.CaseRecord) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO case_records (
			longitude, latitude, reported_date, fallback_date, source
		) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var lon, lat interface{}
		if rec.Coordinates != nil {
			lon, lat = rec.Coordinates.Longitude, rec.Coordinates.Latitude
		}
		if _, err := stmt.ExecContext(ctx, lon, lat, nullable(rec.ReportedDate), nullable(rec.FallbackDate), rec.Source); err != nil {
			return fmt.Errorf("failed to insert case record: %w", err)
		}
	}
	return nil
}

// DeleteBySource removes the records imported from one source
func (r *CaseRepository) DeleteBySource(ctx context.Context, source string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM case_records WHERE source = ?", source)
	if err != nil {
		return 0, fmt.Errorf("failed to delete case records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

// Count returns the number of stored records
func (r *CaseRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM case_records").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count case records: %w", err)
	}
	return n, nil
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
