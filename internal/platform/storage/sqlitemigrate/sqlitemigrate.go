// Package sqlitemigrate applies ordered, embedded SQL migrations to SQLite.
//
// Each migration is one .sql file with a "-- +migrate Up" section and an
// optional "-- +migrate Down" section. Files apply in lexical order, each at
// most once, and are recorded in schema_migrations.
package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

const (
	migrationTable = "schema_migrations"

	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// ErrNothingToRollback is returned by Rollback when no migration is applied.
var ErrNothingToRollback = errors.New("no applied migrations")

// Migration is one migration file and its applied state.
type Migration struct {
	Name      string
	Applied   bool
	AppliedAt time.Time
}

// ApplyMigrations executes pending migrations from migrationRoot and returns
// the names applied by this call.
func ApplyMigrations(sqlDB *sql.DB, migrationFS fs.FS, migrationRoot string) ([]string, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("sql db is required")
	}
	files, err := listMigrationFiles(migrationFS, migrationRoot)
	if err != nil {
		return nil, err
	}
	if err := ensureMigrationTable(sqlDB); err != nil {
		return nil, err
	}
	applied, err := appliedMigrations(sqlDB)
	if err != nil {
		return nil, err
	}

	var ran []string
	for _, file := range files {
		if _, ok := applied[file.key]; ok {
			continue
		}
		content, err := fs.ReadFile(migrationFS, file.path)
		if err != nil {
			return ran, fmt.Errorf("read migration %s: %w", file.key, err)
		}
		upSQL := ExtractUpMigration(string(content))
		if err := runInTx(sqlDB, func(tx *sql.Tx) error {
			if strings.TrimSpace(upSQL) != "" {
				if _, err := tx.Exec(upSQL); err != nil && !IsAlreadyExistsError(err) {
					return fmt.Errorf("exec migration %s: %w", file.key, err)
				}
			}
			if _, err := tx.Exec(
				"INSERT OR IGNORE INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
				file.key,
				time.Now().UTC().UnixMilli(),
			); err != nil {
				return fmt.Errorf("record migration %s: %w", file.key, err)
			}
			return nil
		}); err != nil {
			return ran, err
		}
		ran = append(ran, file.key)
	}
	return ran, nil
}

// Status lists every known migration, plus recorded migrations whose file
// no longer exists, ordered by name.
func Status(sqlDB *sql.DB, migrationFS fs.FS, migrationRoot string) ([]Migration, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("sql db is required")
	}
	files, err := listMigrationFiles(migrationFS, migrationRoot)
	if err != nil {
		return nil, err
	}
	if err := ensureMigrationTable(sqlDB); err != nil {
		return nil, err
	}
	applied, err := appliedMigrations(sqlDB)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(files))
	out := make([]Migration, 0, len(files))
	for _, file := range files {
		seen[file.key] = true
		at, ok := applied[file.key]
		out = append(out, Migration{Name: file.key, Applied: ok, AppliedAt: at})
	}
	for name, at := range applied {
		if !seen[name] {
			out = append(out, Migration{Name: name, Applied: true, AppliedAt: at})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Rollback reverts the most recently applied migration using its Down
// section and returns its name.
func Rollback(sqlDB *sql.DB, migrationFS fs.FS, migrationRoot string) (string, error) {
	if sqlDB == nil {
		return "", fmt.Errorf("sql db is required")
	}
	if err := ensureMigrationTable(sqlDB); err != nil {
		return "", err
	}
	var name string
	err := sqlDB.QueryRow(
		"SELECT name FROM " + migrationTable + " ORDER BY applied_at DESC, name DESC LIMIT 1",
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNothingToRollback
	}
	if err != nil {
		return "", fmt.Errorf("find last migration: %w", err)
	}

	content, err := fs.ReadFile(migrationFS, readPath(migrationRoot, name))
	if err != nil {
		return "", fmt.Errorf("read migration %s: %w", name, err)
	}
	downSQL, ok := ExtractDownMigration(string(content))
	if !ok {
		return "", fmt.Errorf("migration %s has no down section", name)
	}
	err = runInTx(sqlDB, func(tx *sql.Tx) error {
		if strings.TrimSpace(downSQL) != "" {
			if _, err := tx.Exec(downSQL); err != nil {
				return fmt.Errorf("exec rollback %s: %w", name, err)
			}
		}
		if _, err := tx.Exec("DELETE FROM "+migrationTable+" WHERE name = ?", name); err != nil {
			return fmt.Errorf("unrecord migration %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// ExtractUpMigration returns the SQL in the -- +migrate Up section. Files
// without markers are treated as all-up.
func ExtractUpMigration(content string) string {
	upIdx := strings.Index(content, upMarker)
	if upIdx == -1 {
		if downIdx := strings.Index(content, downMarker); downIdx != -1 {
			return content[:downIdx]
		}
		return content
	}
	body := content[upIdx+len(upMarker):]
	if downIdx := strings.Index(body, downMarker); downIdx != -1 {
		return body[:downIdx]
	}
	return body
}

// ExtractDownMigration returns the SQL in the -- +migrate Down section and
// whether the section exists.
func ExtractDownMigration(content string) (string, bool) {
	downIdx := strings.Index(content, downMarker)
	if downIdx == -1 {
		return "", false
	}
	body := content[downIdx+len(downMarker):]
	if upIdx := strings.Index(body, upMarker); upIdx != -1 {
		body = body[:upIdx]
	}
	return body, true
}

// IsAlreadyExistsError reports whether this error indicates idempotent DDL success.
func IsAlreadyExistsError(err error) bool {
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "already exists") || strings.Contains(value, "duplicate column name")
}

type migrationFile struct {
	key  string
	path string
}

func listMigrationFiles(migrationFS fs.FS, migrationRoot string) ([]migrationFile, error) {
	root := strings.TrimSpace(migrationRoot)
	if root == "" {
		root = "."
	}
	entries, err := fs.ReadDir(migrationFS, root)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []migrationFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, migrationFile{
			key:  migrationKey(root, entry.Name()),
			path: path.Join(root, entry.Name()),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].key < files[j].key })
	return files, nil
}

// migrationKey is the name recorded in schema_migrations.
func migrationKey(root, file string) string {
	if root == "." {
		return file
	}
	return path.Join(root, file)
}

func readPath(migrationRoot, key string) string {
	root := strings.TrimSpace(migrationRoot)
	if root == "" || root == "." {
		return key
	}
	if strings.HasPrefix(key, root+"/") {
		return key
	}
	return path.Join(root, key)
}

func ensureMigrationTable(sqlDB *sql.DB) error {
	_, err := sqlDB.Exec(`
CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);`)
	if err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	return nil
}

func appliedMigrations(sqlDB *sql.DB) (map[string]time.Time, error) {
	rows, err := sqlDB.Query("SELECT name, applied_at FROM " + migrationTable)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var name string
		var at int64
		if err := rows.Scan(&name, &at); err != nil {
			return nil, fmt.Errorf("list applied migrations: %w", err)
		}
		applied[name] = time.UnixMilli(at).UTC()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	return applied, nil
}

func runInTx(sqlDB *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := sqlDB.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
