package db

import (
	"path/filepath"
	"testing"
)

func TestOpenSQLiteAppliesPragmas(t *testing.T) {
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var fk int
	if err := db.Get(&fk, "PRAGMA foreign_keys"); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if fk != 1 {
		t.Fatalf("expected foreign keys on, got %d", fk)
	}

	if got := db.Rebind("SELECT ? , ?"); got != "SELECT ? , ?" {
		t.Fatalf("expected question binds, got %q", got)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil {
		t.Fatalf("expected error")
	}
}
