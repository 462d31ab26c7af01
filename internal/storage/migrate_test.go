package storage

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	return db
}

var testMigrations = []Migration{
	{
		Up:   []string{"CREATE TABLE alpha (id INTEGER PRIMARY KEY)"},
		Down: []string{"DROP TABLE alpha"},
	},
	{
		Up:   []string{"CREATE TABLE beta (id INTEGER PRIMARY KEY)"},
		Down: []string{"DROP TABLE beta"},
	},
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	var n int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&n)
	if err != nil {
		t.Fatalf("checking for table %q: %v", name, err)
	}
	return n > 0
}

func mustVersion(t *testing.T, e *Engine, db *sql.DB) int {
	t.Helper()

	v, err := e.Version(context.Background(), db)
	if err != nil {
		t.Fatalf("read version: %v", err)
	}
	return v
}

func TestGotoLatest(t *testing.T) {
	db := openTestDB(t)
	e := NewEngine(testMigrations, testLogger())

	if err := e.ToLatest(context.Background(), db); err != nil {
		t.Fatalf("ToLatest: %v", err)
	}

	if v := mustVersion(t, e, db); v != 2 {
		t.Errorf("version = %d, want 2", v)
	}
	if !tableExists(t, db, "alpha") || !tableExists(t, db, "beta") {
		t.Error("expected both tables after migrating to latest")
	}
}

func TestGotoPartial(t *testing.T) {
	db := openTestDB(t)
	e := NewEngine(testMigrations, testLogger())

	if err := e.Goto(context.Background(), db, 1); err != nil {
		t.Fatalf("Goto(1): %v", err)
	}

	if v := mustVersion(t, e, db); v != 1 {
		t.Errorf("version = %d, want 1", v)
	}
	if !tableExists(t, db, "alpha") {
		t.Error("expected alpha after migrating to version 1")
	}
	if tableExists(t, db, "beta") {
		t.Error("beta should not exist at version 1")
	}
}

func TestGotoBackward(t *testing.T) {
	db := openTestDB(t)
	e := NewEngine(testMigrations, testLogger())
	ctx := context.Background()

	if err := e.ToLatest(ctx, db); err != nil {
		t.Fatalf("ToLatest: %v", err)
	}
	if err := e.Goto(ctx, db, 0); err != nil {
		t.Fatalf("Goto(0): %v", err)
	}

	if v := mustVersion(t, e, db); v != 0 {
		t.Errorf("version = %d, want 0", v)
	}
	if tableExists(t, db, "alpha") || tableExists(t, db, "beta") {
		t.Error("expected no tables after migrating back to version 0")
	}
}

func TestGotoSameVersionIsNoOp(t *testing.T) {
	db := openTestDB(t)
	e := NewEngine(testMigrations, testLogger())
	ctx := context.Background()

	if err := e.Goto(ctx, db, 1); err != nil {
		t.Fatalf("Goto(1): %v", err)
	}
	if err := e.Goto(ctx, db, 1); err != nil {
		t.Fatalf("repeated Goto(1): %v", err)
	}
	if v := mustVersion(t, e, db); v != 1 {
		t.Errorf("version = %d, want 1", v)
	}
}

func TestGotoInvalidTarget(t *testing.T) {
	db := openTestDB(t)
	e := NewEngine(testMigrations, testLogger())
	ctx := context.Background()

	for _, target := range []int{-1, 3, 100} {
		err := e.Goto(ctx, db, target)
		if !errors.Is(err, ErrInvalidTargetVersion) {
			t.Errorf("Goto(%d) error = %v, want ErrInvalidTargetVersion", target, err)
		}
	}
	if v := mustVersion(t, e, db); v != 0 {
		t.Errorf("version = %d after invalid targets, want 0", v)
	}
}

func TestGotoMissingDown(t *testing.T) {
	migrations := []Migration{
		{
			Up:   []string{"CREATE TABLE alpha (id INTEGER PRIMARY KEY)"},
			Down: []string{"DROP TABLE alpha"},
		},
		{
			Up: []string{"CREATE TABLE beta (id INTEGER PRIMARY KEY)"},
		},
	}

	db := openTestDB(t)
	e := NewEngine(migrations, testLogger())
	ctx := context.Background()

	if err := e.ToLatest(ctx, db); err != nil {
		t.Fatalf("ToLatest: %v", err)
	}

	err := e.Goto(ctx, db, 0)
	if !errors.Is(err, ErrCannotRevertMigration) {
		t.Fatalf("Goto(0) error = %v, want ErrCannotRevertMigration", err)
	}

	// The failed revert must leave the schema untouched.
	if v := mustVersion(t, e, db); v != 2 {
		t.Errorf("version = %d, want 2", v)
	}
	if !tableExists(t, db, "alpha") || !tableExists(t, db, "beta") {
		t.Error("tables should survive a refused revert")
	}
}

func TestGotoFailureRollsBackWholeJump(t *testing.T) {
	migrations := []Migration{
		{
			Up:   []string{"CREATE TABLE alpha (id INTEGER PRIMARY KEY)"},
			Down: []string{"DROP TABLE alpha"},
		},
		{
			Up:   []string{"THIS IS NOT SQL"},
			Down: []string{"DROP TABLE beta"},
		},
	}

	db := openTestDB(t)
	e := NewEngine(migrations, testLogger())
	ctx := context.Background()

	if err := e.ToLatest(ctx, db); err == nil {
		t.Fatal("ToLatest should fail on the malformed statement")
	}

	// The first migration ran inside the same transaction, so nothing of
	// the jump survives.
	if v := mustVersion(t, e, db); v != 0 {
		t.Errorf("version = %d after failed jump, want 0", v)
	}
	if tableExists(t, db, "alpha") {
		t.Error("alpha should have been rolled back with the failed jump")
	}
}

func TestEmptyMigrationList(t *testing.T) {
	db := openTestDB(t)
	e := NewEngine(nil, testLogger())
	ctx := context.Background()

	if err := e.ToLatest(ctx, db); err != nil {
		t.Fatalf("ToLatest with no migrations: %v", err)
	}
	if v := mustVersion(t, e, db); v != 0 {
		t.Errorf("version = %d, want 0", v)
	}
	if err := e.Goto(ctx, db, 1); !errors.Is(err, ErrInvalidTargetVersion) {
		t.Errorf("Goto(1) error = %v, want ErrInvalidTargetVersion", err)
	}
}

func TestSchemaMigrationsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	e := NewEngine(schemaMigrations, testLogger())
	ctx := context.Background()

	if err := e.ToLatest(ctx, db); err != nil {
		t.Fatalf("ToLatest: %v", err)
	}
	if v := mustVersion(t, e, db); v != len(schemaMigrations) {
		t.Errorf("version = %d, want %d", v, len(schemaMigrations))
	}

	if err := e.Goto(ctx, db, 0); err != nil {
		t.Fatalf("Goto(0): %v", err)
	}
	if tableExists(t, db, "purchase") || tableExists(t, db, "user") {
		t.Error("expected base tables gone after full revert")
	}
}
