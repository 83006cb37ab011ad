package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lplens/lplens/internal/lang"
)

// Test Plan for the classifier:
// - Rule-shaped nodes split into Rule/Fact/Constraint by role sets
// - Directive statements map to Input/Definition/Output
// - Identifier derivation per kind, deterministic across rebuilds
// - Constraint identifiers count up within one build and reset per build
// - Prefix derivation from the owning file path
// - Unclassifiable and unhandled nodes become diagnostics, not failures

func TestClassifier_Kinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		source     string
		kind       StatementKind
		identifier string
	}{
		{name: "rule", source: "p(X) :- q(X).", kind: KindRule, identifier: "p/1"},
		{name: "fact", source: "a.", kind: KindFact, identifier: "a/0"},
		{name: "fact with arguments", source: "edge(1,2).", kind: KindFact, identifier: "edge/2"},
		{name: "constraint", source: ":- b, c.", kind: KindConstraint, identifier: "Constraint#0"},
		{name: "definition", source: "#const n = 10.", kind: KindDefinition, identifier: "n"},
		{name: "input", source: "#defined input/3.", kind: KindInput, identifier: "input/3"},
		{name: "output signature", source: "#show route/2.", kind: KindOutput, identifier: "route/2"},
		{name: "output term", source: "#show cost(C) : cost(C).", kind: KindOutput, identifier: "cost/1"},
		{name: "output constant term", source: "#show mode : mode.", kind: KindOutput, identifier: "mode/0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := buildSource(t, tt.source)
			require.Len(t, m.Statements, 1)
			require.Empty(t, m.Diagnostics)
			assert.Equal(t, tt.kind, m.Statements[0].Kind)
			assert.Equal(t, tt.identifier, m.Statements[0].Identifier)
		})
	}
}

func TestClassifier_KindInvariants(t *testing.T) {
	t.Parallel()

	m := buildSource(t, "a.\np(X) :- q(X).\n:- r.\n")

	for _, stmt := range m.Statements {
		assert.NotEmpty(t, stmt.Identifier)
		switch stmt.Kind {
		case KindFact:
			assert.NotEmpty(t, stmt.Defines)
			assert.Empty(t, stmt.Dependencies)
		case KindConstraint:
			assert.Empty(t, stmt.Defines)
			assert.NotEmpty(t, stmt.Dependencies)
		case KindRule:
			assert.NotEmpty(t, stmt.Defines)
			assert.NotEmpty(t, stmt.Dependencies)
		}
	}
}

func TestClassifier_ConstraintCounterScopedToBuild(t *testing.T) {
	t.Parallel()

	m := buildSource(t, ":- a.\n:- b.\n:- c.\n")
	require.Len(t, m.Statements, 3)
	assert.Equal(t, "Constraint#0", m.Statements[0].Identifier)
	assert.Equal(t, "Constraint#1", m.Statements[1].Identifier)
	assert.Equal(t, "Constraint#2", m.Statements[2].Identifier)

	// A fresh build starts over.
	m2 := buildSource(t, ":- d.\n")
	assert.Equal(t, "Constraint#0", m2.Statements[0].Identifier)
}

func TestClassifier_IdentifierDeterministic(t *testing.T) {
	t.Parallel()

	source := "p(X); r(X) :- q(X).\na.\n#const k = 1.\n"
	first := buildSource(t, source)
	second := buildSource(t, source)

	require.Equal(t, len(first.Statements), len(second.Statements))
	for i := range first.Statements {
		assert.Equal(t, first.Statements[i].Identifier, second.Statements[i].Identifier)
	}
	// The disjunctive rule takes the first head signature in source order.
	assert.Equal(t, "p/1", first.Statements[0].Identifier)
}

func TestClassifier_UnclassifiableRuleDiagnostic(t *testing.T) {
	t.Parallel()

	// A head with no symbolic atoms and an empty body defines nothing.
	m := buildSource(t, "1 < 2.\na.\n")

	require.Len(t, m.Diagnostics, 1)
	assert.Equal(t, DiagUnclassifiable, m.Diagnostics[0].Kind)
	// The rest of the file still classifies.
	require.Len(t, m.Statements, 1)
	assert.Equal(t, "a/0", m.Statements[0].Identifier)
}

func TestClassifier_UnhandledStatementDiagnostic(t *testing.T) {
	t.Parallel()

	// An unresolved include node reaches the classifier only when Build
	// is fed raw Parse output; it has no classifier rule.
	stmts, err := lang.Parse("test.lp", "#include \"other.lp\".\na.\n")
	require.NoError(t, err)
	m := Build(stmts, []string{"#include \"other.lp\".", "a."}, "test.lp", "")

	require.Len(t, m.Diagnostics, 1)
	assert.Equal(t, DiagUnhandled, m.Diagnostics[0].Kind)
	assert.Len(t, m.Statements, 1)
}

func TestDerivePrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		file       string
		sourceRoot string
		want       string
	}{
		{name: "nested path", file: "/src/encodings/routing/core.lp", sourceRoot: "/src", want: "encodings.routing.core."},
		{name: "root file", file: "/src/main.lp", sourceRoot: "/src", want: "main."},
		{name: "no source root", file: "main.lp", sourceRoot: "", want: "main."},
		{name: "relative path", file: "sub/prog.lp", sourceRoot: "", want: "sub.prog."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, derivePrefix(tt.file, tt.sourceRoot))
		})
	}
}
