package db

import (
	"path/filepath"
	"testing"
)

func TestOpenFileAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zaloga.sqlite3")

	database, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer database.Close()

	if err := Migrate(database); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// Migrations are idempotent.
	if err := Migrate(database); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	var mode string
	if err := database.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("reading journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("expected wal journal mode, got %q", mode)
	}

	for _, table := range []string{"users", "items", "goods_out", "issues", "settings", "revoked_tokens"} {
		var name string
		err := database.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestNewTestDB(t *testing.T) {
	database := NewTestDB(t)

	if _, err := database.Exec(`INSERT INTO settings (key, value) VALUES ('k', 'v')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var v string
	if err := database.QueryRow(`SELECT value FROM settings WHERE key = 'k'`).Scan(&v); err != nil {
		t.Fatalf("select: %v", err)
	}
	if v != "v" {
		t.Errorf("expected 'v', got %q", v)
	}
}
