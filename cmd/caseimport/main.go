// Command caseimport loads a GeoJSON or CSV case list into the SQLite case
// store, or prints its aggregated heatmap as JSON.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/apex/log"
	"github.com/goccy/go-json"

	"github.com/jengzang/caseheat-backend-go/internal/aggregation"
	"github.com/jengzang/caseheat-backend-go/internal/database"
	"github.com/jengzang/caseheat-backend-go/internal/ingest"
	"github.com/jengzang/caseheat-backend-go/internal/models"
	"github.com/jengzang/caseheat-backend-go/internal/repository"
)

type options struct {
	input      string
	format     string
	dbPath     string
	replace    bool
	dump       string
	rangeCheck bool
	reported   string
	fallback   string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("caseimport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.input, "in", "", "GeoJSON or CSV file to read (required)")
	fs.StringVar(&o.format, "format", "", "geojson or csv; detected from the extension when empty")
	fs.StringVar(&o.dbPath, "db", "./data/cases/cases.db", "SQLite database to import into")
	fs.BoolVar(&o.replace, "replace", false, "delete rows previously imported from the same file first")
	fs.StringVar(&o.dump, "dump", "", "print the spatial or temporal heatmap as JSON instead of importing")
	fs.BoolVar(&o.rangeCheck, "range-check", false, "skip coordinates outside WGS84 lon/lat bounds")
	fs.StringVar(&o.reported, "reported-field", "Case_Reported_Date", "primary date property")
	fs.StringVar(&o.fallback, "fallback-field", "Test_Reported_Date", "fallback date property")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if o.input == "" {
		return o, fmt.Errorf("-in is required")
	}
	if o.dump != "" && o.dump != "spatial" && o.dump != "temporal" {
		return o, fmt.Errorf("-dump must be spatial or temporal, got %q", o.dump)
	}
	return o, nil
}

func run(ctx context.Context, o options, stdout io.Writer) error {
	opts := ingest.DefaultOptions()
	opts.ReportedField = o.reported
	opts.FallbackField = o.fallback

	source := ingest.NewFileSource(o.input, ingest.Format(o.format), opts)
	records, err := source.Load(ctx)
	if err != nil {
		return err
	}

	if o.dump != "" {
		return dump(records, o, stdout)
	}

	db, err := database.Open(database.Config{Path: o.dbPath})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.NewMigrationManager(db).RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	repo := repository.NewCaseRepository(db)
	var inserted int
	if o.replace {
		var deleted int64
		deleted, inserted, err = repo.ReplaceSource(ctx, o.input, records)
		if err != nil {
			return err
		}
		log.WithField("rows", deleted).Info("replaced previous import")
	} else {
		inserted, err = repo.InsertCases(ctx, records)
		if err != nil {
			return err
		}
	}
	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"file":     o.input,
		"inserted": inserted,
		"total":    total,
	}).Info("import completed")
	return nil
}

func dump(records []models.CaseRecord, o options, stdout io.Writer) error {
	aggOpts := aggregation.DefaultOptions()
	aggOpts.ValidateRange = o.rangeCheck

	var out interface{}
	var report aggregation.Report
	switch o.dump {
	case "spatial":
		res, err := aggregation.AggregateSpatial(records, aggOpts)
		if err != nil {
			return err
		}
		out, report = res.Points, res.Report
	case "temporal":
		res, err := aggregation.AggregateTemporal(records, aggOpts)
		if err != nil {
			return err
		}
		out = map[string]interface{}{
			"points":     res.Points,
			"time_range": res.Range,
		}
		report = res.Report
	}

	if skipped := report.SkippedTotal(); skipped > 0 {
		log.WithFields(log.Fields{
			"skipped": skipped,
			"total":   report.Total,
		}).Warn("malformed records skipped")
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.WithError(err).Fatal("invalid arguments")
	}

	if err := run(context.Background(), o, os.Stdout); err != nil {
		log.WithError(err).Fatal("caseimport failed")
	}
}
