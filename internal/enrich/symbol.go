// Package enrich builds an enriched, queryable model of a parsed logic
// program: every top-level statement is classified, its defined and
// depended-on predicate signatures are computed from tree position, and
// documentation metadata (comments, directives, sections) is attached.
package enrich

import (
	"fmt"

	"github.com/lplens/lplens/internal/docs"
	"github.com/lplens/lplens/internal/lang"
)

// Symbol is one reference to an atomic proposition at a source location.
// Two symbols with the same Signature in different statements denote the
// same predicate; identity for index lookups is (Name, begin line,
// begin column).
type Symbol struct {
	Name  string
	Arity int
	Loc   lang.Location

	// Directive is the %!predicate annotation matching this symbol's
	// signature, if any.
	Directive *docs.Directive

	// Placeholder marks a symbol synthesized for a reference that was
	// absent from the index. Placeholders carry no directive.
	Placeholder bool
}

// Signature returns the name/arity form identifying the predicate's
// shape, e.g. "route/2".
func (s *Symbol) Signature() string {
	return fmt.Sprintf("%s/%d", s.Name, s.Arity)
}

func (s *Symbol) String() string {
	return s.Signature()
}

// symbolKey is the exact-match index key for a symbol occurrence.
type symbolKey struct {
	name string
	line int
	col  int
}

func keyOf(name string, loc lang.Location) symbolKey {
	return symbolKey{name: name, line: loc.Begin.Line, col: loc.Begin.Column}
}

// atomSymbol reads the name, arity and location out of a SymbolicAtom
// node. Returns false for atoms whose symbol child carries no name
// (tuples, arithmetic).
func atomSymbol(atom *lang.Node) (name string, arity int, loc lang.Location, ok bool) {
	sym := atom.Child("symbol")
	if sym == nil {
		return "", 0, lang.Location{}, false
	}
	switch sym.Kind {
	case lang.KindFunction:
		if sym.Name == "" {
			return "", 0, lang.Location{}, false
		}
		return sym.Name, len(sym.Field("arguments")), sym.Loc, true
	case lang.KindSymbolicTerm:
		return sym.Name, 0, sym.Loc, true
	}
	return "", 0, lang.Location{}, false
}

// extractSymbols walks all statement trees and collects one Symbol per
// symbolic atom occurrence, in source order. Predicate directives are
// linked by signature.
func extractSymbols(stmts []*lang.Node, predicateDirectives []*docs.Directive) []*Symbol {
	bySignature := make(map[string]*docs.Directive)
	for _, d := range predicateDirectives {
		if len(d.Parameters) > 0 {
			bySignature[d.Parameters[0]] = d
		}
	}

	var symbols []*Symbol
	var walk func(n *lang.Node)
	walk = func(n *lang.Node) {
		if n.Kind == lang.KindSymbolicAtom {
			if name, arity, loc, ok := atomSymbol(n); ok {
				sym := &Symbol{Name: name, Arity: arity, Loc: loc}
				sym.Directive = bySignature[sym.Signature()]
				symbols = append(symbols, sym)
			}
		}
		for _, f := range n.Fields {
			for _, child := range f.Nodes {
				walk(child)
			}
		}
	}
	for _, stmt := range stmts {
		walk(stmt)
	}
	return symbols
}
