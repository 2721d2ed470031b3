package db

import (
	"path/filepath"
	"testing"
	"time"
)

func TestMigrateFreshDatabase(t *testing.T) {
	sqdb, err := OpenSQLite(filepath.Join(t.TempDir(), "app.db"), 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqdb.Close() })

	if err := Migrate(sqdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{"users", "images", "albums", "album_images"} {
		var name string
		err := sqdb.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("expected table %s: %v", table, err)
		}
	}
	var version int
	if err := sqdb.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != migrations[len(migrations)-1].version {
		t.Fatalf("expected version %d, got %d", migrations[len(migrations)-1].version, version)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	sqdb, err := OpenSQLite(filepath.Join(t.TempDir(), "app.db"), 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqdb.Close() })

	if err := Migrate(sqdb); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	if err := Migrate(sqdb); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var count int
	if err := sqdb.QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != len(migrations) {
		t.Fatalf("expected %d recorded migrations, got %d", len(migrations), count)
	}
}
