package storage

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Run describes one persisted model build.
type Run struct {
	ID            string
	File          string
	SourceRoot    string
	TraversalGaps int
	CreatedAt     string
}

// StoredStatement is the persisted form of an enriched statement.
type StoredStatement struct {
	ID         int64
	Kind       string
	Identifier string
	Prefix     string
	File       string
	Line       int
	Column     int
	Section    string
	External   bool
}

// SymbolOccurrence is one persisted define or dependency reference.
type SymbolOccurrence struct {
	StatementID int64
	Role        string
	Name        string
	Arity       int
	File        string
	Line        int
	Column      int
	Description string
}

// Reader reads persisted runs.
type Reader struct {
	db *sql.DB
}

// NewReader opens the database at path for reading.
func NewReader(path string) (*Reader, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{db: db}, nil
}

// NewReaderDB wraps an already-open database. The caller keeps
// ownership of the connection.
func NewReaderDB(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// LatestRun returns the most recent run for the given file, or any file
// when file is empty. sql.ErrNoRows when nothing has been written.
func (r *Reader) LatestRun(file string) (*Run, error) {
	q := sq.Select("run_id", "file", "source_root", "traversal_gaps", "created_at").
		From("runs").
		OrderBy("created_at DESC", "run_id DESC").
		Limit(1)
	if file != "" {
		q = q.Where(sq.Eq{"file": file})
	}

	var run Run
	err := q.RunWith(r.db).QueryRow().
		Scan(&run.ID, &run.File, &run.SourceRoot, &run.TraversalGaps, &run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}
	return &run, nil
}

// Runs returns every run, newest first.
func (r *Reader) Runs() ([]*Run, error) {
	rows, err := sq.Select("run_id", "file", "source_root", "traversal_gaps", "created_at").
		From("runs").
		OrderBy("created_at DESC", "run_id DESC").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.File, &run.SourceRoot, &run.TraversalGaps, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// Statements returns the statements of a run in source order. An empty
// kind matches every statement; external statements are included only
// when includeExternal is set.
func (r *Reader) Statements(runID, kind string, includeExternal bool) ([]*StoredStatement, error) {
	q := sq.Select("id", "kind", "identifier", "prefix", "file", "line", "col", "COALESCE(section, '')", "external").
		From("statements").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("external ASC", "line ASC", "col ASC")
	if kind != "" {
		q = q.Where(sq.Eq{"kind": kind})
	}
	if !includeExternal {
		q = q.Where(sq.Eq{"external": false})
	}

	rows, err := q.RunWith(r.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query statements: %w", err)
	}
	defer rows.Close()

	var stmts []*StoredStatement
	for rows.Next() {
		var s StoredStatement
		if err := rows.Scan(&s.ID, &s.Kind, &s.Identifier, &s.Prefix, &s.File, &s.Line, &s.Column, &s.Section, &s.External); err != nil {
			return nil, fmt.Errorf("failed to scan statement: %w", err)
		}
		stmts = append(stmts, &s)
	}
	return stmts, rows.Err()
}

// SymbolOccurrences returns every persisted occurrence of one predicate
// signature within a run, defines and dependencies both.
func (r *Reader) SymbolOccurrences(runID, name string, arity int) ([]*SymbolOccurrence, error) {
	rows, err := sq.Select("statement_id", "role", "name", "arity", "file", "line", "col", "COALESCE(description, '')").
		From("symbols").
		Where(sq.Eq{"run_id": runID, "name": name, "arity": arity}).
		OrderBy("file ASC", "line ASC", "col ASC").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var occurrences []*SymbolOccurrence
	for rows.Next() {
		var o SymbolOccurrence
		if err := rows.Scan(&o.StatementID, &o.Role, &o.Name, &o.Arity, &o.File, &o.Line, &o.Column, &o.Description); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		occurrences = append(occurrences, &o)
	}
	return occurrences, rows.Err()
}

// Close closes the database connection.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
