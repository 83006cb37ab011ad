// Package storage persists enriched program models to SQLite for
// downstream tooling. Each write is one run; runs are immutable and
// identified by UUID.
package storage

import (
	"database/sql"
	"fmt"
	"time"
)

const schemaVersion = "1.0"

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	file TEXT NOT NULL,
	source_root TEXT NOT NULL DEFAULT '',
	traversal_gaps INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
)`

const createStatementsTable = `
CREATE TABLE IF NOT EXISTS statements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	identifier TEXT NOT NULL,
	prefix TEXT NOT NULL DEFAULT '',
	file TEXT NOT NULL,
	line INTEGER NOT NULL,
	col INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	end_col INTEGER NOT NULL,
	section TEXT,
	external INTEGER NOT NULL DEFAULT 0
)`

const createSymbolsTable = `
CREATE TABLE IF NOT EXISTS symbols (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	statement_id INTEGER NOT NULL REFERENCES statements(id) ON DELETE CASCADE,
	role TEXT NOT NULL CHECK (role IN ('define', 'dependency')),
	name TEXT NOT NULL,
	arity INTEGER NOT NULL,
	file TEXT NOT NULL,
	line INTEGER NOT NULL,
	col INTEGER NOT NULL,
	description TEXT
)`

const createVariablesTable = `
CREATE TABLE IF NOT EXISTS variables (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	line INTEGER NOT NULL,
	col INTEGER NOT NULL,
	description TEXT
)`

const createCommentsTable = `
CREATE TABLE IF NOT EXISTS comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	line INTEGER NOT NULL,
	col INTEGER NOT NULL,
	is_block INTEGER NOT NULL DEFAULT 0,
	content TEXT NOT NULL
)`

const createDirectivesTable = `
CREATE TABLE IF NOT EXISTS directives (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	line INTEGER NOT NULL,
	kind TEXT NOT NULL,
	parameters TEXT NOT NULL DEFAULT ''
)`

const createDiagnosticsTable = `
CREATE TABLE IF NOT EXISTS diagnostics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	message TEXT NOT NULL,
	line INTEGER NOT NULL,
	col INTEGER NOT NULL
)`

const createMetadataTable = `
CREATE TABLE IF NOT EXISTS metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

func allIndexes() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_statements_run ON statements(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_statements_kind ON statements(run_id, kind)`,
		`CREATE INDEX IF NOT EXISTS idx_statements_identifier ON statements(run_id, identifier)`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_statement ON symbols(statement_id)`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_signature ON symbols(run_id, name, arity)`,
		`CREATE INDEX IF NOT EXISTS idx_variables_run ON variables(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_run ON comments(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_directives_run ON directives(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,
	}
}

// CreateSchema creates all tables and indexes. All schema creation
// succeeds or fails together. Must be called with PRAGMA foreign_keys
// already on.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"runs", createRunsTable},
		{"statements", createStatementsTable},
		{"symbols", createSymbolsTable},
		{"variables", createVariablesTable},
		{"comments", createCommentsTable},
		{"directives", createDirectivesTable},
		{"diagnostics", createDiagnosticsTable},
		{"metadata", createMetadataTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range allIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)`,
		schemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion retrieves the schema version from metadata. Returns
// "0" for a new database without a metadata table.
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='metadata'",
	).Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Open opens the database at path, enabling foreign keys and creating
// the schema on first use.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check schema version: %w", err)
	}
	if version == "0" {
		if err := CreateSchema(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return db, nil
}
