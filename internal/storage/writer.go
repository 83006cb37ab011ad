package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lplens/lplens/internal/enrich"
)

// Writer persists enriched models. Each WriteModel call produces one
// immutable run; all inserts for a run are atomic.
type Writer struct {
	db *sql.DB
}

// NewWriter opens or creates the database at path.
func NewWriter(path string) (*Writer, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &Writer{db: db}, nil
}

// NewWriterDB wraps an already-open database. The caller keeps
// ownership of the connection.
func NewWriterDB(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// WriteModel writes one model as a new run and returns the run ID.
func (w *Writer) WriteModel(m *enrich.Model) (string, error) {
	runID := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := w.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	_, err = sq.Insert("runs").
		Columns("run_id", "file", "source_root", "traversal_gaps", "created_at").
		Values(runID, m.File, m.SourceRoot, m.TraversalGaps, now).
		RunWith(tx).
		Exec()
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	writeStatements := func(stmts []*enrich.Statement, external bool) error {
		for _, stmt := range stmts {
			if err := w.writeStatement(tx, runID, stmt, external); err != nil {
				return err
			}
		}
		return nil
	}
	if err := writeStatements(m.Statements, false); err != nil {
		return "", err
	}
	if err := writeStatements(m.ExternalStatements, true); err != nil {
		return "", err
	}

	for _, v := range m.Variables {
		_, err := sq.Insert("variables").
			Columns("run_id", "name", "line", "col", "description").
			Values(runID, v.Name, v.Loc.Begin.Line, v.Loc.Begin.Column, nullableString(v.Description())).
			RunWith(tx).
			Exec()
		if err != nil {
			return "", fmt.Errorf("failed to insert variable %s: %w", v.Name, err)
		}
	}

	for _, c := range m.Comments {
		_, err := sq.Insert("comments").
			Columns("run_id", "line", "col", "is_block", "content").
			Values(runID, c.Loc.Begin.Line, c.Loc.Begin.Column, c.IsBlock, c.Content).
			RunWith(tx).
			Exec()
		if err != nil {
			return "", fmt.Errorf("failed to insert comment at line %d: %w", c.Loc.Begin.Line, err)
		}
	}

	for _, d := range m.Directives {
		_, err := sq.Insert("directives").
			Columns("run_id", "line", "kind", "parameters").
			Values(runID, d.LineNumber, d.Kind, strings.Join(d.Parameters, " ")).
			RunWith(tx).
			Exec()
		if err != nil {
			return "", fmt.Errorf("failed to insert directive at line %d: %w", d.LineNumber, err)
		}
	}

	for _, diag := range m.Diagnostics {
		_, err := sq.Insert("diagnostics").
			Columns("run_id", "kind", "message", "line", "col").
			Values(runID, string(diag.Kind), diag.Message, diag.Loc.Begin.Line, diag.Loc.Begin.Column).
			RunWith(tx).
			Exec()
		if err != nil {
			return "", fmt.Errorf("failed to insert diagnostic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return runID, nil
}

func (w *Writer) writeStatement(tx *sql.Tx, runID string, stmt *enrich.Statement, external bool) error {
	section := ""
	if stmt.Section != nil {
		section = stmt.Section.Name()
	}

	res, err := sq.Insert("statements").
		Columns("run_id", "kind", "identifier", "prefix", "file", "line", "col", "end_line", "end_col", "section", "external").
		Values(
			runID,
			string(stmt.Kind),
			stmt.Identifier,
			stmt.Prefix,
			stmt.Loc.Begin.File,
			stmt.Loc.Begin.Line,
			stmt.Loc.Begin.Column,
			stmt.Loc.End.Line,
			stmt.Loc.End.Column,
			nullableString(section),
			external,
		).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to insert statement %s: %w", stmt.Identifier, err)
	}

	stmtID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read statement id: %w", err)
	}

	writeSymbols := func(symbols []*enrich.Symbol, role string) error {
		for _, sym := range symbols {
			var description interface{}
			if sym.Directive != nil {
				description = sym.Directive.Description()
			}
			_, err := sq.Insert("symbols").
				Columns("run_id", "statement_id", "role", "name", "arity", "file", "line", "col", "description").
				Values(runID, stmtID, role, sym.Name, sym.Arity, sym.Loc.Begin.File, sym.Loc.Begin.Line, sym.Loc.Begin.Column, description).
				RunWith(tx).
				Exec()
			if err != nil {
				return fmt.Errorf("failed to insert symbol %s: %w", sym.Signature(), err)
			}
		}
		return nil
	}
	if err := writeSymbols(stmt.Defines, "define"); err != nil {
		return err
	}
	return writeSymbols(stmt.Dependencies, "dependency")
}

// Close closes the database connection.
func (w *Writer) Close() error {
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// nullableString converts the empty string to NULL.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
