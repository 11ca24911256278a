package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func TestApplyMigrationsRecordsApplied(t *testing.T) {
	db := openInMemoryDB(t)

	migrations := fstest.MapFS{
		"001_create.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREATE TABLE items(id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE items;"),
		},
	}

	if err := ApplyMigrations(context.Background(), db, migrations, ""); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if rows := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); rows != 1 {
		t.Fatalf("expected 1 migration row, got %d", rows)
	}
	if !tableExists(t, db, "items") {
		t.Fatal("expected applied table to exist")
	}
}

func TestApplyMigrationsSkipsAlreadyApplied(t *testing.T) {
	db := openInMemoryDB(t)

	migrations := fstest.MapFS{
		"001_create.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREATE TABLE items(id TEXT PRIMARY KEY);"),
		},
		"002_index.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREATE INDEX items_id ON items(id);"),
		},
	}
	ctx := context.Background()
	if err := ApplyMigrations(ctx, db, migrations, ""); err != nil {
		t.Fatalf("apply initial migrations: %v", err)
	}
	if err := ApplyMigrations(ctx, db, migrations, ""); err != nil {
		t.Fatalf("re-apply migrations should be idempotent: %v", err)
	}

	names, err := Applied(ctx, db)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if strings.Join(names, ",") != "001_create.sql,002_index.sql" {
		t.Fatalf("applied = %v, want both files once", names)
	}
}

func TestApplyMigrationsDoesNotRecordFailedMigration(t *testing.T) {
	db := openInMemoryDB(t)
	ctx := context.Background()

	bad := fstest.MapFS{
		"001_bad.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREAT table things(id INT);"),
		},
	}
	if err := ApplyMigrations(ctx, db, bad, ""); err == nil {
		t.Fatalf("expected bad migration to fail")
	}
	if rows := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); rows != 0 {
		t.Fatalf("expected failed migration to stay unrecorded, got %d rows", rows)
	}

	good := fstest.MapFS{
		"001_bad.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREATE TABLE things(id INTEGER PRIMARY KEY);"),
		},
	}
	if err := ApplyMigrations(ctx, db, good, ""); err != nil {
		t.Fatalf("apply fixed migration: %v", err)
	}
	if rows := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); rows != 1 {
		t.Fatalf("expected fixed migration to be recorded, got %d rows", rows)
	}
}

func TestApplyMigrationsRespectsMigrationRoot(t *testing.T) {
	db := openInMemoryDB(t)

	migrations := fstest.MapFS{
		"events/001_events.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREATE TABLE event_rows(id TEXT PRIMARY KEY);"),
		},
	}

	if err := ApplyMigrations(context.Background(), db, migrations, "events"); err != nil {
		t.Fatalf("apply migrations with root: %v", err)
	}

	if key := queryString(t, db, "SELECT name FROM schema_migrations LIMIT 1"); key != "events/001_events.sql" {
		t.Fatalf("expected migration key with root path, got %q", key)
	}
	if !tableExists(t, db, "event_rows") {
		t.Fatal("expected migrated table in root-based migration")
	}
}

func TestApplyMigrationsHonorsCancelledContext(t *testing.T) {
	db := openInMemoryDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	migrations := fstest.MapFS{
		"001_create.sql": &fstest.MapFile{Data: []byte("CREATE TABLE items(id TEXT);")},
	}
	err := ApplyMigrations(ctx, db, migrations, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestExtractSections(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a(id INT);\n-- +migrate Down\nDROP TABLE a;\n"
	if got := strings.TrimSpace(ExtractUpMigration(content)); got != "CREATE TABLE a(id INT);" {
		t.Fatalf("up = %q", got)
	}
	if got := strings.TrimSpace(ExtractDownMigration(content)); got != "DROP TABLE a;" {
		t.Fatalf("down = %q", got)
	}
	if got := ExtractDownMigration("CREATE TABLE a(id INT);"); got != "" {
		t.Fatalf("down without marker = %q, want empty", got)
	}
	if got := ExtractUpMigration("CREATE TABLE a(id INT);"); got != "CREATE TABLE a(id INT);" {
		t.Fatalf("up without marker = %q", got)
	}
}

func TestIsAlreadyExistsError(t *testing.T) {
	if IsAlreadyExistsError(nil) {
		t.Fatal("nil should not match")
	}
	if !IsAlreadyExistsError(errors.New("table items already exists")) {
		t.Fatal("expected already exists match")
	}
	if !IsAlreadyExistsError(errors.New("duplicate column name: x")) {
		t.Fatal("expected duplicate column match")
	}
	if IsAlreadyExistsError(errors.New("syntax error")) {
		t.Fatal("syntax error should not match")
	}
}

func openInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})
	return db
}

func queryInt64(t *testing.T, db *sql.DB, query string) int64 {
	t.Helper()
	var value int64
	if err := db.QueryRow(query).Scan(&value); err != nil {
		t.Fatalf("query int value: %v", err)
	}
	return value
}

func queryString(t *testing.T, db *sql.DB, query string) string {
	t.Helper()
	var value string
	if err := db.QueryRow(query).Scan(&value); err != nil {
		t.Fatalf("query string value: %v", err)
	}
	return value
}

func tableExists(t *testing.T, db *sql.DB, tableName string) bool {
	t.Helper()
	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", tableName).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		t.Fatalf("check table exists: %v", err)
	}
	return name == tableName
}
