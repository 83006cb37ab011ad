package lang

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the parser:
// - Facts, rules and constraints produce Rule nodes with head/body fields
// - Directive statements (#const, #show, #defined, #include) map to their kinds
// - Conditional literals keep literal/condition structure in head and body
// - Choice aggregates and disjunctions parse in head position
// - Locations are 1-indexed and carry the source file
// - Malformed input fails with a positioned ParseError

func TestParse_Statements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
		check  func(*testing.T, []*Node)
	}{
		{
			name:   "fact",
			source: "a.",
			check: func(t *testing.T, stmts []*Node) {
				require.Len(t, stmts, 1)
				assert.Equal(t, KindRule, stmts[0].Kind)
				head := stmts[0].Child("head")
				require.NotNil(t, head)
				require.Equal(t, KindLiteral, head.Kind)
				atom := head.Child("atom")
				require.Equal(t, KindSymbolicAtom, atom.Kind)
				assert.Equal(t, "a", atom.Child("symbol").Name)
				assert.Nil(t, stmts[0].Field("body"))
			},
		},
		{
			name:   "rule with negated body literal",
			source: "p(X) :- q(X), not r(X).",
			check: func(t *testing.T, stmts []*Node) {
				require.Len(t, stmts, 1)
				body := stmts[0].Field("body")
				require.Len(t, body, 2)
				assert.Equal(t, "", body[0].Value)
				assert.Equal(t, "not", body[1].Value)
				assert.Equal(t, "r", body[1].Child("atom").Child("symbol").Name)
			},
		},
		{
			name:   "constraint",
			source: ":- b, c.",
			check: func(t *testing.T, stmts []*Node) {
				require.Len(t, stmts, 1)
				assert.Nil(t, stmts[0].Field("head"))
				assert.Len(t, stmts[0].Field("body"), 2)
			},
		},
		{
			name:   "constant definition",
			source: "#const n = 10.",
			check: func(t *testing.T, stmts []*Node) {
				require.Len(t, stmts, 1)
				assert.Equal(t, KindDefinition, stmts[0].Kind)
				assert.Equal(t, "n", stmts[0].Name)
				require.NotNil(t, stmts[0].Child("value"))
				assert.Equal(t, "10", stmts[0].Child("value").Value)
			},
		},
		{
			name:   "show signature",
			source: "#show route/2.",
			check: func(t *testing.T, stmts []*Node) {
				require.Len(t, stmts, 1)
				assert.Equal(t, KindShowSignature, stmts[0].Kind)
				assert.Equal(t, "route", stmts[0].Name)
				assert.Equal(t, 2, stmts[0].Arity)
			},
		},
		{
			name:   "show term with body",
			source: "#show visited(X) : visited(X).",
			check: func(t *testing.T, stmts []*Node) {
				require.Len(t, stmts, 1)
				assert.Equal(t, KindShowTerm, stmts[0].Kind)
				term := stmts[0].Child("term")
				require.NotNil(t, term)
				assert.Equal(t, "visited", term.Name)
				assert.Len(t, stmts[0].Field("body"), 1)
			},
		},
		{
			name:   "defined declaration",
			source: "#defined input/3.",
			check: func(t *testing.T, stmts []*Node) {
				require.Len(t, stmts, 1)
				assert.Equal(t, KindDefined, stmts[0].Kind)
				assert.Equal(t, "input", stmts[0].Name)
				assert.Equal(t, 3, stmts[0].Arity)
			},
		},
		{
			name:   "include statement",
			source: "#include \"base.lp\".",
			check: func(t *testing.T, stmts []*Node) {
				require.Len(t, stmts, 1)
				assert.Equal(t, KindInclude, stmts[0].Kind)
				assert.Equal(t, "base.lp", stmts[0].Value)
			},
		},
		{
			name:   "conditional literal in head",
			source: "p(X) : s(X) :- q(X).",
			check: func(t *testing.T, stmts []*Node) {
				require.Len(t, stmts, 1)
				head := stmts[0].Child("head")
				require.Equal(t, KindConditionalLiteral, head.Kind)
				require.NotNil(t, head.Child("literal"))
				require.Len(t, head.Field("condition"), 1)
			},
		},
		{
			name:   "disjunctive head",
			source: "a; b :- c.",
			check: func(t *testing.T, stmts []*Node) {
				require.Len(t, stmts, 1)
				head := stmts[0].Child("head")
				require.Equal(t, KindDisjunction, head.Kind)
				assert.Len(t, head.Field("elements"), 2)
			},
		},
		{
			name:   "choice rule",
			source: "{ assign(X) : task(X) } :- ready.",
			check: func(t *testing.T, stmts []*Node) {
				require.Len(t, stmts, 1)
				head := stmts[0].Child("head")
				require.Equal(t, KindAggregate, head.Kind)
				elems := head.Field("elements")
				require.Len(t, elems, 1)
				assert.Equal(t, KindConditionalLiteral, elems[0].Kind)
			},
		},
		{
			name:   "guarded count aggregate in body",
			source: ":- 2 < #count { X : hit(X) }.",
			check: func(t *testing.T, stmts []*Node) {
				require.Len(t, stmts, 1)
				body := stmts[0].Field("body")
				require.Len(t, body, 1)
				assert.Equal(t, KindAggregate, body[0].Kind)
				assert.Equal(t, "count", body[0].Name)
				require.NotNil(t, body[0].Child("left_guard"))
			},
		},
		{
			name:   "comparison literal",
			source: ":- cost(C), C > 100.",
			check: func(t *testing.T, stmts []*Node) {
				require.Len(t, stmts, 1)
				body := stmts[0].Field("body")
				require.Len(t, body, 2)
				cmp := body[1].Child("atom")
				require.Equal(t, KindComparison, cmp.Kind)
			},
		},
		{
			name:   "interval term",
			source: "slot(1..n).",
			check: func(t *testing.T, stmts []*Node) {
				require.Len(t, stmts, 1)
				atom := stmts[0].Child("head").Child("atom")
				arg := atom.Child("symbol").Field("arguments")[0]
				assert.Equal(t, KindInterval, arg.Kind)
			},
		},
		{
			name:   "comments are skipped",
			source: "% leading comment\na. %* block *% b.\n",
			check: func(t *testing.T, stmts []*Node) {
				assert.Len(t, stmts, 2)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			stmts, err := Parse("test.lp", tt.source)
			require.NoError(t, err)
			tt.check(t, stmts)
		})
	}
}

func TestParse_Locations(t *testing.T) {
	t.Parallel()

	stmts, err := Parse("prog.lp", "a.\n\np(X) :- q(X).\n")
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assert.Equal(t, "prog.lp", stmts[0].Loc.Begin.File)
	assert.Equal(t, 1, stmts[0].Loc.Begin.Line)
	assert.Equal(t, 1, stmts[0].Loc.Begin.Column)

	assert.Equal(t, 3, stmts[1].Loc.Begin.Line)
	q := stmts[1].Field("body")[0].Child("atom").Child("symbol")
	assert.Equal(t, 3, q.Loc.Begin.Line)
	assert.Equal(t, 9, q.Loc.Begin.Column)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
	}{
		{name: "missing dot", source: "a"},
		{name: "unterminated string", source: "#include \"x."},
		{name: "unterminated block comment", source: "%* never closed"},
		{name: "stray operator", source: "p :- *."},
		{name: "missing const value", source: "#const n = ."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse("bad.lp", tt.source)
			require.Error(t, err)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "bad.lp", perr.Pos.File)
		})
	}
}

func TestParseFile_ResolvesIncludes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := filepath.Join(dir, "base.lp")
	main := filepath.Join(dir, "main.lp")
	require.NoError(t, os.WriteFile(base, []byte("shared.\n"), 0o644))
	require.NoError(t, os.WriteFile(main, []byte("#include \"base.lp\".\nlocal.\n"), 0o644))

	stmts, err := ParseFile(main)
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assert.Equal(t, base, stmts[0].Loc.Begin.File)
	assert.Equal(t, main, stmts[1].Loc.Begin.File)
}

func TestParseFile_IncludeCycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.lp")
	b := filepath.Join(dir, "b.lp")
	require.NoError(t, os.WriteFile(a, []byte("#include \"b.lp\".\nfrom_a.\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("#include \"a.lp\".\nfrom_b.\n"), 0o644))

	stmts, err := ParseFile(a)
	require.NoError(t, err)
	assert.Len(t, stmts, 2)
}

func TestParseFile_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := ParseFile(filepath.Join(t.TempDir(), "absent.lp"))
	require.Error(t, err)
}

func TestLocation_Before(t *testing.T) {
	t.Parallel()

	at := func(file string, line, col int) Location {
		return Location{Begin: Position{File: file, Line: line, Column: col}}
	}
	assert.True(t, at("a.lp", 1, 1).Before(at("b.lp", 1, 1)))
	assert.True(t, at("a.lp", 1, 9).Before(at("a.lp", 2, 1)))
	assert.True(t, at("a.lp", 2, 1).Before(at("a.lp", 2, 5)))
	assert.False(t, at("a.lp", 2, 5).Before(at("a.lp", 2, 5)))
}
