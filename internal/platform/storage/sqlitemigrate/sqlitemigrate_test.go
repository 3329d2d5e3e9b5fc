package sqlitemigrate

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

const createItems = "-- +migrate Up\nCREATE TABLE items(id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE items;\n"

func TestApplyMigrationsRecordsApplied(t *testing.T) {
	t.Parallel()
	db := openTempDB(t)

	migrations := fstest.MapFS{
		"0001_create.sql": &fstest.MapFile{Data: []byte(createItems)},
	}

	ran, err := ApplyMigrations(db, migrations, "")
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if len(ran) != 1 || ran[0] != "0001_create.sql" {
		t.Fatalf("ran = %v, want [0001_create.sql]", ran)
	}
	if rows := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); rows != 1 {
		t.Fatalf("expected 1 migration row, got %d", rows)
	}
	if !tableExists(t, db, "items") {
		t.Fatal("expected applied table to exist")
	}
}

func TestApplyMigrationsSkipsAlreadyApplied(t *testing.T) {
	t.Parallel()
	db := openTempDB(t)

	migrations := fstest.MapFS{
		"0001_create.sql": &fstest.MapFile{Data: []byte(createItems)},
	}
	if _, err := ApplyMigrations(db, migrations, ""); err != nil {
		t.Fatalf("apply initial migrations: %v", err)
	}
	ran, err := ApplyMigrations(db, migrations, "")
	if err != nil {
		t.Fatalf("re-apply migrations should be idempotent: %v", err)
	}
	if len(ran) != 0 {
		t.Fatalf("expected nothing to run on replay, got %v", ran)
	}
	if rows := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); rows != 1 {
		t.Fatalf("expected single migration row after replay, got %d", rows)
	}
}

func TestApplyMigrationsDoesNotRecordFailedMigration(t *testing.T) {
	t.Parallel()
	db := openTempDB(t)

	bad := fstest.MapFS{
		"0001_bad.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREAT table things(id INT);")},
	}
	if _, err := ApplyMigrations(db, bad, ""); err == nil {
		t.Fatal("expected bad migration to fail")
	}
	if rows := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); rows != 0 {
		t.Fatalf("expected failed migration to stay unrecorded, got %d rows", rows)
	}

	good := fstest.MapFS{
		"0001_bad.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREATE TABLE things(id INTEGER PRIMARY KEY);")},
	}
	if _, err := ApplyMigrations(db, good, ""); err != nil {
		t.Fatalf("apply fixed migration: %v", err)
	}
	if rows := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations"); rows != 1 {
		t.Fatalf("expected fixed migration to be recorded, got %d rows", rows)
	}
}

func TestApplyMigrationsRespectsMigrationRoot(t *testing.T) {
	t.Parallel()
	db := openTempDB(t)

	migrations := fstest.MapFS{
		"pages/0001_pages.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREATE TABLE page_rows(id INTEGER PRIMARY KEY);"),
		},
	}
	if _, err := ApplyMigrations(db, migrations, "pages"); err != nil {
		t.Fatalf("apply migrations with root: %v", err)
	}
	if key := queryString(t, db, "SELECT name FROM schema_migrations LIMIT 1"); key != "pages/0001_pages.sql" {
		t.Fatalf("expected migration key with root path, got %q", key)
	}
	if !tableExists(t, db, "page_rows") {
		t.Fatal("expected migrated table in root-based migration")
	}
}

func TestStatusReportsPendingAndApplied(t *testing.T) {
	t.Parallel()
	db := openTempDB(t)

	first := fstest.MapFS{
		"0001_create.sql": &fstest.MapFile{Data: []byte(createItems)},
	}
	if _, err := ApplyMigrations(db, first, ""); err != nil {
		t.Fatalf("apply: %v", err)
	}
	both := fstest.MapFS{
		"0001_create.sql": &fstest.MapFile{Data: []byte(createItems)},
		"0002_more.sql":   &fstest.MapFile{Data: []byte("-- +migrate Up\nCREATE TABLE more(id INTEGER);")},
	}
	status, err := Status(db, both, "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(status) != 2 {
		t.Fatalf("status len = %d, want 2", len(status))
	}
	if !status[0].Applied || status[0].AppliedAt.IsZero() {
		t.Fatalf("expected first migration applied, got %+v", status[0])
	}
	if status[1].Applied {
		t.Fatalf("expected second migration pending, got %+v", status[1])
	}
}

func TestRollbackRevertsLastMigration(t *testing.T) {
	t.Parallel()
	db := openTempDB(t)

	migrations := fstest.MapFS{
		"0001_create.sql": &fstest.MapFile{Data: []byte(createItems)},
		"0002_more.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREATE TABLE more(id INTEGER);\n-- +migrate Down\nDROP TABLE more;"),
		},
	}
	if _, err := ApplyMigrations(db, migrations, ""); err != nil {
		t.Fatalf("apply: %v", err)
	}

	name, err := Rollback(db, migrations, "")
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if name != "0002_more.sql" {
		t.Fatalf("rolled back %q, want 0002_more.sql", name)
	}
	if tableExists(t, db, "more") {
		t.Fatal("expected table more to be dropped")
	}
	if !tableExists(t, db, "items") {
		t.Fatal("expected table items to remain")
	}

	if _, err := Rollback(db, migrations, ""); err != nil {
		t.Fatalf("second rollback: %v", err)
	}
	if _, err := Rollback(db, migrations, ""); !errors.Is(err, ErrNothingToRollback) {
		t.Fatalf("err = %v, want ErrNothingToRollback", err)
	}
}

func TestRollbackRequiresDownSection(t *testing.T) {
	t.Parallel()
	db := openTempDB(t)

	migrations := fstest.MapFS{
		"0001_up_only.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREATE TABLE up_only(id INTEGER);")},
	}
	if _, err := ApplyMigrations(db, migrations, ""); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := Rollback(db, migrations, ""); err == nil {
		t.Fatal("expected missing down section error")
	}
}

func TestExtractSections(t *testing.T) {
	t.Parallel()

	up := ExtractUpMigration(createItems)
	if up != "\nCREATE TABLE items(id TEXT PRIMARY KEY);\n" {
		t.Fatalf("up = %q", up)
	}
	down, ok := ExtractDownMigration(createItems)
	if !ok || down != "\nDROP TABLE items;\n" {
		t.Fatalf("down = %q, %v", down, ok)
	}
	if got := ExtractUpMigration("CREATE TABLE x(id INT);"); got != "CREATE TABLE x(id INT);" {
		t.Fatalf("markerless up = %q", got)
	}
	if _, ok := ExtractDownMigration("CREATE TABLE x(id INT);"); ok {
		t.Fatal("expected no down section")
	}
}

func openTempDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
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
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false
		}
		t.Fatalf("check table exists: %v", err)
	}
	return name == tableName
}
