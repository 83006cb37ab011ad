package search

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lplens/lplens/internal/enrich"
	"github.com/lplens/lplens/internal/lang"
)

func newSearcher(t *testing.T, source string) Searcher {
	t.Helper()
	stmts, err := lang.Parse("test.lp", source)
	require.NoError(t, err)
	m := enrich.Build(stmts, strings.Split(source, "\n"), "test.lp", "")
	s, err := New(context.Background(), m)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

const routingProgram = `%!predicate route/2 selected transport edge
route(X,Y) :- edge(X,Y), chosen(X). % pick the cheapest edge
cost(X,Y,C) :- route(X,Y), weight(X,Y,C).
:- route(X,Y), forbidden(X,Y).
depot(1).
`

func TestSearch_ByIdentifier(t *testing.T) {
	t.Parallel()

	s := newSearcher(t, routingProgram)

	results, err := s.Search(context.Background(), `identifier:"route/2"`, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "route/2", results[0].Identifier)
	assert.Equal(t, "Rule", results[0].Kind)
	assert.Equal(t, 2, results[0].Line)
}

func TestSearch_ByCommentText(t *testing.T) {
	t.Parallel()

	s := newSearcher(t, routingProgram)

	results, err := s.Search(context.Background(), "cheapest", nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "route/2", results[0].Identifier)
	assert.NotEmpty(t, results[0].Highlights)
}

func TestSearch_DirectiveProseIsSearchable(t *testing.T) {
	t.Parallel()

	s := newSearcher(t, routingProgram)

	results, err := s.Search(context.Background(), "transport", nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Contains(t, r.Text, "transport")
	}
}

func TestSearch_KindFilter(t *testing.T) {
	t.Parallel()

	s := newSearcher(t, routingProgram)

	// "edge" appears in the prose of rules and the constraint alike; the
	// kind filter narrows to rules only.
	results, err := s.Search(context.Background(), "edge", &Options{Kind: "Rule"})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, "Rule", r.Kind)
	}
}

func TestSearch_Limit(t *testing.T) {
	t.Parallel()

	s := newSearcher(t, "a(1).\na(2).\na(3).\n")

	results, err := s.Search(context.Background(), `identifier:"a/1"`, &Options{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_NoMatches(t *testing.T) {
	t.Parallel()

	s := newSearcher(t, routingProgram)

	results, err := s.Search(context.Background(), `identifier:"absent/7"`, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_CancelledContext(t *testing.T) {
	t.Parallel()

	stmts, err := lang.Parse("test.lp", "a.\n")
	require.NoError(t, err)
	m := enrich.Build(stmts, []string{"a."}, "test.lp", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(ctx, m)
	assert.ErrorIs(t, err, context.Canceled)
}
