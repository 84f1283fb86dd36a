package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRollbackMigrationsUndoesOnlyTheLatest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	databaseURL := getTestDatabaseURL(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	db, err := Open(ctx, databaseURL)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	// The real migrations plus one throwaway migration on top.
	dir := t.TempDir()
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(dir, entry.Name()), data, 0o644); err != nil {
			t.Fatalf("copy %s: %v", entry.Name(), err)
		}
	}
	writeFile := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	writeFile("9001_rollback_marker.up.sql", "CREATE TABLE rollback_marker (id int);")
	writeFile("9001_rollback_marker.down.sql", "DROP TABLE IF EXISTS rollback_marker;")

	if err := ApplyMigrations(ctx, db, dir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	t.Cleanup(func() {
		if version, _, ok, err := MigrationVersion(context.Background(), db, dir); err == nil && ok && version == 9001 {
			_ = RollbackMigrations(context.Background(), db, dir)
		}
	})

	if err := RollbackMigrations(ctx, db, dir); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	version, dirty, ok, err := MigrationVersion(ctx, db, dir)
	if err != nil {
		t.Fatalf("read version: %v", err)
	}
	if !ok || dirty || version != 1 {
		t.Fatalf("expected clean version 1 after one rollback, got version=%d dirty=%v ok=%v", version, dirty, ok)
	}

	var navTable, markerTable *string
	if err := db.QueryRowContext(ctx, `SELECT to_regclass('nav_items')::text, to_regclass('rollback_marker')::text`).Scan(&navTable, &markerTable); err != nil {
		t.Fatalf("inspect schema: %v", err)
	}
	if navTable == nil {
		t.Fatal("expected nav_items to survive a single rollback")
	}
	if markerTable != nil {
		t.Fatal("expected the latest migration to be rolled back")
	}
}
