package storage

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lplens/lplens/internal/enrich"
	"github.com/lplens/lplens/internal/lang"
)

func testModel(t *testing.T, source string) *enrich.Model {
	t.Helper()
	stmts, err := lang.Parse("prog.lp", source)
	require.NoError(t, err)
	return enrich.Build(stmts, strings.Split(source, "\n"), "prog.lp", "")
}

func testDB(t *testing.T) (*Writer, *Reader) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lplens.db")
	w, err := NewWriter(path)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	r, err := NewReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return w, r
}

func TestSchema_CreatedOnOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fresh.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	version, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, version)

	// Opening again is idempotent.
	db2, err := Open(path)
	require.NoError(t, err)
	defer db2.Close()
}

func TestWriteModel_RoundTrip(t *testing.T) {
	t.Parallel()

	w, r := testDB(t)

	source := strings.Join([]string{
		"%!section Core",
		"%!var X a node",
		"reach(X) :- node(X). % base case",
		"node(1).",
		":- reach(9).",
	}, "\n")
	runID, err := w.WriteModel(testModel(t, source))
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	run, err := r.LatestRun("prog.lp")
	require.NoError(t, err)
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, "prog.lp", run.File)

	stmts, err := r.Statements(runID, "", false)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Equal(t, "reach/1", stmts[0].Identifier)
	assert.Equal(t, "Rule", stmts[0].Kind)
	assert.Equal(t, "Core", stmts[0].Section)
	assert.Equal(t, "Constraint#0", stmts[2].Identifier)

	rules, err := r.Statements(runID, "Rule", false)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestWriteModel_SymbolOccurrences(t *testing.T) {
	t.Parallel()

	w, r := testDB(t)

	runID, err := w.WriteModel(testModel(t, "reach(X) :- node(X).\nreach(Y) :- reach(X), edge(X,Y).\n"))
	require.NoError(t, err)

	occurrences, err := r.SymbolOccurrences(runID, "reach", 1)
	require.NoError(t, err)
	require.Len(t, occurrences, 3)

	var defines, dependencies int
	for _, o := range occurrences {
		switch o.Role {
		case "define":
			defines++
		case "dependency":
			dependencies++
		}
	}
	assert.Equal(t, 2, defines)
	assert.Equal(t, 1, dependencies)
}

func TestWriteModel_RunsAreIsolated(t *testing.T) {
	t.Parallel()

	w, r := testDB(t)

	first, err := w.WriteModel(testModel(t, "a.\n"))
	require.NoError(t, err)
	second, err := w.WriteModel(testModel(t, "b.\nc.\n"))
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	stmts, err := r.Statements(first, "", true)
	require.NoError(t, err)
	assert.Len(t, stmts, 1)

	stmts, err = r.Statements(second, "", true)
	require.NoError(t, err)
	assert.Len(t, stmts, 2)

	runs, err := r.Runs()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestWriteModel_DiagnosticsPersisted(t *testing.T) {
	t.Parallel()

	w, _ := testDB(t)

	runID, err := w.WriteModel(testModel(t, "1 < 2.\na.\n"))
	require.NoError(t, err)

	db, err := Open(filepathOf(t, w))
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM diagnostics WHERE run_id = ?", runID,
	).Scan(&count))
	assert.Equal(t, 1, count)
}

// filepathOf recovers the database path from a writer's connection.
func filepathOf(t *testing.T, w *Writer) string {
	t.Helper()
	var path string
	require.NoError(t, w.db.QueryRow(
		"SELECT file FROM pragma_database_list WHERE name = 'main'",
	).Scan(&path))
	return path
}

func TestLatestRun_Empty(t *testing.T) {
	t.Parallel()

	_, r := testDB(t)

	_, err := r.LatestRun("")
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
