package enrich

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lplens/lplens/internal/docs"
	"github.com/lplens/lplens/internal/lang"
)

// StatementKind classifies a top-level statement. The set is closed:
// every well-formed statement maps to exactly one kind.
type StatementKind string

const (
	KindRule       StatementKind = "Rule"
	KindConstraint StatementKind = "Constraint"
	KindFact       StatementKind = "Fact"
	KindDefinition StatementKind = "Definition"
	KindInput      StatementKind = "Input"
	KindConstant   StatementKind = "Constant"
	KindOutput     StatementKind = "Output"
)

// Kinds lists every statement kind in a stable order.
func Kinds() []StatementKind {
	return []StatementKind{
		KindRule, KindConstraint, KindFact, KindDefinition,
		KindInput, KindConstant, KindOutput,
	}
}

// Statement is one enriched top-level statement of the program.
type Statement struct {
	// Node is the underlying tree node, owned by the parser.
	Node *lang.Node

	Kind StatementKind

	// Defines are the signatures this statement introduces;
	// Dependencies the signatures it consumes. Both are in discovery
	// order and share no symbol.
	Defines      []*Symbol
	Dependencies []*Symbol

	// Identifier is the stable external-facing name, derived per kind.
	Identifier string

	Loc lang.Location

	// Section is the enclosing section directive, if any.
	Section *docs.Directive

	// Comments are the comment spans starting on the statement's line.
	Comments []*docs.Comment

	// Prefix is the dotted namespace derived from the owning file path,
	// advisory metadata for multi-file programs.
	Prefix string
}

// DiagnosticKind tags a recoverable classification problem.
type DiagnosticKind string

const (
	// DiagUnclassifiable marks a rule-shaped node with empty define and
	// dependency sets.
	DiagUnclassifiable DiagnosticKind = "unclassifiable_statement"

	// DiagUnhandled marks a node kind with no classifier rule.
	DiagUnhandled DiagnosticKind = "unhandled_statement"
)

// Diagnostic is a recoverable problem found while building the model.
// Diagnostics are collected as a batch; they never abort the build.
type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
	Loc     lang.Location
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Loc, d.Kind, d.Message)
}

// classifier turns raw statement nodes into typed Statements. The
// constraint counter is scoped to one model construction, so constraint
// identifiers are unique within a build and the first is Constraint#0.
type classifier struct {
	sourceRoot   string
	constraintID int
}

// classify produces the Statement for a node, or a Diagnostic when the
// node cannot be classified. Exactly one of the two return values is
// non-nil.
func (c *classifier) classify(node *lang.Node, defines, dependencies []*Symbol) (*Statement, *Diagnostic) {
	stmt := &Statement{
		Node:         node,
		Defines:      defines,
		Dependencies: dependencies,
		Loc:          node.Loc,
	}

	switch node.Kind {
	case lang.KindRule:
		switch {
		case len(defines) > 0 && len(dependencies) > 0:
			stmt.Kind = KindRule
			stmt.Identifier = defines[0].Signature()
		case len(defines) > 0:
			stmt.Kind = KindFact
			stmt.Identifier = defines[0].Signature()
		case len(dependencies) > 0:
			stmt.Kind = KindConstraint
			stmt.Identifier = fmt.Sprintf("Constraint#%d", c.constraintID)
			c.constraintID++
		default:
			return nil, &Diagnostic{
				Kind:    DiagUnclassifiable,
				Message: "rule defines nothing and depends on nothing",
				Loc:     node.Loc,
			}
		}

	case lang.KindDefined:
		stmt.Kind = KindInput
		stmt.Identifier = fmt.Sprintf("%s/%d", node.Name, node.Arity)

	case lang.KindDefinition:
		stmt.Kind = KindDefinition
		stmt.Identifier = node.Name

	case lang.KindShowSignature:
		stmt.Kind = KindOutput
		stmt.Identifier = fmt.Sprintf("%s/%d", node.Name, node.Arity)

	case lang.KindShowTerm:
		stmt.Kind = KindOutput
		stmt.Identifier = showTermIdentifier(node)

	default:
		return nil, &Diagnostic{
			Kind:    DiagUnhandled,
			Message: fmt.Sprintf("no classifier rule for %s statement", node.Kind),
			Loc:     node.Loc,
		}
	}

	stmt.Prefix = derivePrefix(node.Loc.Begin.File, c.sourceRoot)
	return stmt, nil
}

// showTermIdentifier derives `name/argument-count` from the shown term.
func showTermIdentifier(node *lang.Node) string {
	term := node.Child("term")
	if term == nil {
		return "#show"
	}
	switch term.Kind {
	case lang.KindFunction:
		return fmt.Sprintf("%s/%d", term.Name, len(term.Field("arguments")))
	case lang.KindSymbolicTerm:
		return fmt.Sprintf("%s/0", term.Name)
	}
	return fmt.Sprintf("%s/0", term.Value)
}

// derivePrefix turns a statement's owning file path into a dotted
// namespace: the source root is stripped, path separators become dots,
// the .lp extension is dropped and a trailing dot is appended.
func derivePrefix(file, sourceRoot string) string {
	prefix := file
	if sourceRoot != "" {
		prefix = strings.TrimPrefix(prefix, sourceRoot)
	}
	prefix = strings.TrimPrefix(prefix, string(filepath.Separator))
	prefix = strings.TrimPrefix(prefix, "/")
	prefix = strings.ReplaceAll(prefix, string(filepath.Separator), "/")
	prefix = strings.TrimSuffix(prefix, ".lp")
	prefix = strings.ReplaceAll(prefix, "/", ".")
	return prefix + "."
}
