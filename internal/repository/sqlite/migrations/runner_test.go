package migrations_test

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/msomdec/taskmate/internal/repository/sqlite/migrations"
	_ "modernc.org/sqlite"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	return db
}

func TestRunMigrations(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first migration run: %v", err)
	}

	// Verify the identities and tasks tables exist by inserting rows.
	if _, err := db.ExecContext(ctx,
		"INSERT INTO identities (id, email, password_hash) VALUES (?, ?, ?)",
		"user-1", "test@example.com", "hash123",
	); err != nil {
		t.Fatalf("insert into identities: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO tasks (user_id, title) VALUES (?, ?)", "user-1", "Buy milk",
	); err != nil {
		t.Fatalf("insert into tasks: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 migrations recorded, got %d", count)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	first, err := migrations.RunFS(ctx, db, migrations.FS)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(first) != 4 {
		t.Fatalf("expected 4 migrations applied, got %v", first)
	}

	second, err := migrations.RunFS(ctx, db, migrations.FS)
	if err != nil {
		t.Fatalf("second run (idempotent): %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected no migrations on second run, got %v", second)
	}
}

func TestRunFS_AppliesInLexicalOrder(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"002_add_column.sql": {Data: []byte("ALTER TABLE widgets ADD COLUMN size INTEGER;")},
		"001_create.sql":     {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
		"README.md":          {Data: []byte("not a migration")},
	}

	ran, err := migrations.RunFS(ctx, db, fsys)
	if err != nil {
		t.Fatalf("RunFS: %v", err)
	}
	if len(ran) != 2 || ran[0] != "001_create.sql" || ran[1] != "002_add_column.sql" {
		t.Fatalf("unexpected migration order: %v", ran)
	}
}

func TestRunFS_FailedMigrationIsNotRecorded(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABLE broken (")},
	}

	if _, err := migrations.RunFS(ctx, db, fsys); err == nil {
		t.Fatal("expected error for broken migration")
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no recorded migrations, got %d", count)
	}
}
