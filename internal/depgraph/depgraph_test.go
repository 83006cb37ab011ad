package depgraph

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lplens/lplens/internal/enrich"
	"github.com/lplens/lplens/internal/lang"
)

func buildGraph(t *testing.T, source string) *Graph {
	t.Helper()
	stmts, err := lang.Parse("test.lp", source)
	require.NoError(t, err)
	m := enrich.Build(stmts, strings.Split(source, "\n"), "test.lp", "")
	dg, err := Build(m)
	require.NoError(t, err)
	return dg
}

func TestBuild_EdgesFollowStatementRoles(t *testing.T) {
	t.Parallel()

	dg := buildGraph(t, "reach(X) :- node(X).\nreach(Y) :- reach(X), edge(X,Y).\n")

	assert.Equal(t, []string{"edge/2", "node/1", "reach/1"}, dg.Signatures())
	// The self-recursive edge does not echo the start vertex back.
	assert.Equal(t, []string{"edge/2", "node/1"}, dg.Dependencies("reach/1", 1))
	assert.Equal(t, []string{"reach/1"}, dg.Dependents("edge/2", 1))
	assert.Empty(t, dg.Dependencies("node/1", 1))
}

func TestBuild_TransitiveDepth(t *testing.T) {
	t.Parallel()

	dg := buildGraph(t, "a :- b.\nb :- c.\nc :- d.\n")

	assert.Equal(t, []string{"b/0"}, dg.Dependencies("a/0", 1))
	assert.Equal(t, []string{"b/0", "c/0"}, dg.Dependencies("a/0", 2))
	assert.Equal(t, []string{"b/0", "c/0", "d/0"}, dg.Dependencies("a/0", 3))

	assert.Equal(t, []string{"a/0", "b/0", "c/0"}, dg.Dependents("d/0", 10))
}

func TestBuild_CycleTerminates(t *testing.T) {
	t.Parallel()

	dg := buildGraph(t, "even(X) :- odd(X).\nodd(X) :- even(X).\n")

	deps := dg.Dependencies("even/1", 5)
	assert.Equal(t, []string{"odd/1"}, deps)
}

func TestBuild_ConstraintsContributeNoEdges(t *testing.T) {
	t.Parallel()

	dg := buildGraph(t, "a.\n:- a, b.\n")

	// Constraint dependencies still become vertices, just without a
	// defining source.
	assert.Equal(t, []string{"a/0", "b/0"}, dg.Signatures())
	assert.Empty(t, dg.Dependents("a/0", 1))
	assert.Empty(t, dg.Dependents("b/0", 1))
}

func TestBuild_PredicateDirectiveOnVertex(t *testing.T) {
	t.Parallel()

	dg := buildGraph(t, "%!predicate reach/1 reachable nodes\nreach(X) :- node(X).\n")

	v, err := dg.Vertex("reach/1")
	require.NoError(t, err)
	assert.Equal(t, "reachable nodes", v.Description)

	_, err = dg.Vertex("missing/9")
	assert.Error(t, err)
}

func TestGraph_DOT(t *testing.T) {
	t.Parallel()

	dg := buildGraph(t, "p :- q.\n")

	var buf bytes.Buffer
	require.NoError(t, dg.DOT(&buf))
	out := buf.String()
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, "p/0")
	assert.Contains(t, out, "q/0")
}
