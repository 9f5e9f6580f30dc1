package database

import (
	"database/sql"
	"errors"
	"testing"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db := openMemory(t)
	m := NewMigrationManager(db)

	if err := m.RunMigrations(); err != nil {
		t.Fatalf("first RunMigrations: %v", err)
	}
	if err := m.RunMigrations(); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}

	applied, err := m.GetAppliedMigrations()
	if err != nil {
		t.Fatalf("GetAppliedMigrations: %v", err)
	}
	if !applied[1] || !applied[2] || len(applied) != 2 {
		t.Errorf("unexpected applied migrations %v", applied)
	}

	if _, err := db.Exec("INSERT INTO case_records (longitude, latitude) VALUES (1, 2)"); err != nil {
		t.Errorf("case_records should exist: %v", err)
	}
}

func TestLoadMigrationsSorted(t *testing.T) {
	m := NewMigrationManager(openMemory(t))
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i-1].Version >= migrations[i].Version {
			t.Errorf("migrations not sorted: %v", migrations)
		}
	}
}

func TestTransactionRollsBack(t *testing.T) {
	db := openMemory(t)
	if _, err := db.Exec("CREATE TABLE t (v INTEGER)"); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := Transaction(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO t (v) VALUES (1)"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM t").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected rollback, found %d rows", n)
	}
}

func TestMustSubPanicsOnMissingDirectory(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for a missing migrations directory")
		}
	}()
	mustSub(embeddedMigrations, "no-such-dir")
}

func TestMustSubInvalidPath(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for an invalid path")
		}
	}()
	mustSub(embeddedMigrations, "../migrations")
}

func TestEmbeddedMigrationFiles(t *testing.T) {
	migrations, err := NewMigrationManager(nil).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migrations) == 0 || migrations[0].Version != 1 {
		t.Fatalf("expected embedded migrations starting at version 1, got %+v", migrations)
	}
}
