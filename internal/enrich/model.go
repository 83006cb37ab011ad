package enrich

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lplens/lplens/internal/docs"
	"github.com/lplens/lplens/internal/lang"
)

// Model is the enriched view of one program file: classified statements,
// symbol occurrences, variables, comments and directives, plus the
// lookup indices over them. A model is built eagerly in one pass and is
// immutable afterwards; all queries are read-only and safe for
// concurrent readers.
type Model struct {
	File       string
	SourceRoot string

	// Statements are the enriched statements local to File;
	// ExternalStatements come from transitively included files.
	Statements         []*Statement
	ExternalStatements []*Statement

	Symbols    []*Symbol
	Variables  []*Variable
	Comments   []*docs.Comment
	Directives []*docs.Directive

	// Diagnostics collects the recoverable problems found during the
	// build. TraversalGaps counts references classified through the
	// structural fallback.
	Diagnostics   []Diagnostic
	TraversalGaps int

	symbolIndex    map[symbolKey]*Symbol
	sortedSections []*docs.Directive
}

// FromFile reads, parses and enriches one program file. The source root
// anchors prefix derivation for multi-file programs. A parse failure
// fails the whole construction; there is no partial model for a file
// that does not parse.
func FromFile(path, sourceRoot string) (*Model, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	stmts, err := lang.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return Build(stmts, strings.Split(string(source), "\n"), path, sourceRoot), nil
}

// Build constructs the model from parsed statement nodes and the raw
// source lines of the primary file. Nodes whose location names another
// file (pulled in by #include) land in ExternalStatements.
func Build(nodes []*lang.Node, lines []string, file, sourceRoot string) *Model {
	m := &Model{
		File:        file,
		SourceRoot:  sourceRoot,
		symbolIndex: make(map[symbolKey]*Symbol),
	}

	byKind := docs.ExtractDirectives(lines)
	for _, ds := range byKind {
		m.Directives = append(m.Directives, ds...)
	}
	sort.Slice(m.Directives, func(i, j int) bool {
		return m.Directives[i].LineNumber < m.Directives[j].LineNumber
	})

	m.Comments = docs.ExtractComments(lines, file)

	m.Symbols = extractSymbols(nodes, byKind[docs.DirectivePredicate])
	for _, sym := range m.Symbols {
		m.symbolIndex[keyOf(sym.Name, sym.Loc)] = sym
	}

	m.Variables = extractVariables(nodes, byKind[docs.DirectiveVar], file)

	m.sortedSections = append(m.sortedSections, byKind[docs.DirectiveSection]...)
	sort.Slice(m.sortedSections, func(i, j int) bool {
		return m.sortedSections[i].LineNumber < m.sortedSections[j].LineNumber
	})

	res := &resolver{lookup: m.resolveSymbolAt}
	cls := &classifier{sourceRoot: sourceRoot}

	for _, node := range nodes {
		defines, dependencies := res.resolve(node)
		stmt, diag := cls.classify(node, defines, dependencies)
		if diag != nil {
			m.Diagnostics = append(m.Diagnostics, *diag)
			continue
		}
		stmt.Section = m.Section(stmt.Loc)
		stmt.Comments = m.CommentsAt(node)

		if stmt.Loc.Begin.File == file {
			m.Statements = append(m.Statements, stmt)
		} else {
			m.ExternalStatements = append(m.ExternalStatements, stmt)
		}
	}
	m.TraversalGaps = res.gaps

	return m
}

// StatementsByKind returns the statements of the given kind in source
// order. An empty kind matches every statement. External statements are
// appended after local ones when includeExternal is set.
func (m *Model) StatementsByKind(kind StatementKind, includeExternal bool) []*Statement {
	pool := m.Statements
	if includeExternal {
		pool = make([]*Statement, 0, len(m.Statements)+len(m.ExternalStatements))
		pool = append(pool, m.Statements...)
		pool = append(pool, m.ExternalStatements...)
	}

	if kind == "" {
		out := make([]*Statement, len(pool))
		copy(out, pool)
		return out
	}
	var out []*Statement
	for _, stmt := range pool {
		if stmt.Kind == kind {
			out = append(out, stmt)
		}
	}
	return out
}

// Section returns the nearest section directive preceding the location,
// or nil when no section precedes it. A section on the line directly
// above a statement does not enclose it; the directive must sit strictly
// above that.
func (m *Model) Section(loc lang.Location) *docs.Directive {
	line := loc.Begin.Line - 1
	// First section with LineNumber >= line; the one before it wins.
	i := sort.Search(len(m.sortedSections), func(i int) bool {
		return m.sortedSections[i].LineNumber >= line
	})
	if i == 0 {
		return nil
	}
	return m.sortedSections[i-1]
}

// ResolveSymbol resolves a reference by its (name, line, column) key to
// the canonical Symbol from the index. A miss synthesizes a detached
// placeholder with the same key; it never fails.
func (m *Model) ResolveSymbol(name string, loc lang.Location) *Symbol {
	if sym, ok := m.symbolIndex[keyOf(name, loc)]; ok {
		return sym
	}
	return &Symbol{Name: name, Loc: loc, Placeholder: true}
}

func (m *Model) resolveSymbolAt(name string, loc lang.Location) *Symbol {
	return m.ResolveSymbol(name, loc)
}

// CommentsAt returns the comments whose span begins on the same line as
// the node.
func (m *Model) CommentsAt(node *lang.Node) []*docs.Comment {
	var out []*docs.Comment
	for _, c := range m.Comments {
		if c.Loc.Begin.Line == node.Loc.Begin.Line {
			out = append(out, c)
		}
	}
	return out
}

// ElementsAtLine returns every directive, comment, variable and
// statement at the given line. An element one line below also matches.
func (m *Model) ElementsAtLine(line int) []any {
	var out []any
	for _, d := range m.Directives {
		if d.LineNumber == line || d.LineNumber-1 == line {
			out = append(out, d)
		}
	}
	for _, c := range m.Comments {
		if c.Loc.Begin.Line == line || c.Loc.Begin.Line-1 == line {
			out = append(out, c)
		}
	}
	for _, v := range m.Variables {
		if v.Loc.Begin.Line == line || v.Loc.Begin.Line-1 == line {
			out = append(out, v)
		}
	}
	for _, stmt := range m.Statements {
		if stmt.Loc.Begin.Line == line || stmt.Loc.Begin.Line-1 == line {
			out = append(out, stmt)
		}
	}
	return out
}
