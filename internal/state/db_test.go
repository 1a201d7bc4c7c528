package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "test.db")
}

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file does not exist at %s", path)
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	path := filepath.Join(nested, "state.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
}

func TestMigrate(t *testing.T) {
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	tables := []string{"schema_version", "tasks", "audit_entries"}
	for _, table := range tables {
		var count int
		row := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table)
		if err := row.Scan(&count); err != nil {
			t.Errorf("failed to check table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	// Running migrations again must be a no-op.
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var count int
	row := db.QueryRow("SELECT COUNT(*) FROM schema_version")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count schema_version: %v", err)
	}
	if count != 2 {
		t.Errorf("schema_version has %d rows, want 2", count)
	}
}

func TestFormatTime_FixedWidthSortsChronologically(t *testing.T) {
	// A whole-second timestamp must sort before a fractional one inside
	// the same second; the stored format is compared as text by ORDER BY.
	whole := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fractional := whole.Add(500 * time.Millisecond)

	a, b := formatTime(whole), formatTime(fractional)
	if len(a) != len(b) {
		t.Fatalf("stored timestamps differ in width: %q vs %q", a, b)
	}
	if !(a < b) {
		t.Errorf("formatTime(%v) = %q does not sort before %q", whole, a, b)
	}

	for i, pair := range []struct {
		stored string
		want   time.Time
	}{{a, whole}, {b, fractional}} {
		parsed, err := parseTime(pair.stored)
		if err != nil {
			t.Fatalf("parseTime(%q) failed: %v", pair.stored, err)
		}
		if !parsed.Equal(pair.want) {
			t.Errorf("round trip %d: parseTime(%q) = %v, want %v", i, pair.stored, parsed, pair.want)
		}
	}
}

func TestListTasks_WholeSecondSortsBeforeFractional(t *testing.T) {
	db := setupTestDB(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := newTask("first", "created on the second", 1, base)
	second := newTask("second", "created half a second later", 1, base.Add(500*time.Millisecond))

	// Insert in reverse so storage order cannot mask a sort bug.
	if err := db.CreateTask(second, creationEntry(second)); err != nil {
		t.Fatalf("CreateTask(second) failed: %v", err)
	}
	if err := db.CreateTask(first, creationEntry(first)); err != nil {
		t.Fatalf("CreateTask(first) failed: %v", err)
	}

	all, err := db.ListTasks(Filter{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListTasks returned %d tasks, want 2", len(all))
	}
	if all[0].ID != "first" || all[1].ID != "second" {
		t.Errorf("order = [%s, %s], want [first, second]", all[0].ID, all[1].ID)
	}
}

func TestClose(t *testing.T) {
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	_, err = db.Query("SELECT 1")
	if err == nil {
		t.Error("expected error after close, got nil")
	}
}
