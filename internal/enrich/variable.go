package enrich

import (
	"github.com/lplens/lplens/internal/docs"
	"github.com/lplens/lplens/internal/lang"
)

// Variable is one variable occurrence in the tree. Occurrences of the
// same name are not deduplicated; each carries its own location and an
// optional %!var directive matched by name.
type Variable struct {
	Name      string
	Loc       lang.Location
	Directive *docs.Directive
}

// Description returns the free text of the linked var directive, if any.
func (v *Variable) Description() string {
	if v.Directive == nil {
		return ""
	}
	return v.Directive.Description()
}

// extractVariables collects every variable occurrence from statements
// local to the given file, in source order.
func extractVariables(stmts []*lang.Node, varDirectives []*docs.Directive, file string) []*Variable {
	byName := make(map[string]*docs.Directive)
	for _, d := range varDirectives {
		if len(d.Parameters) > 0 {
			byName[d.Parameters[0]] = d
		}
	}

	var vars []*Variable
	var walk func(n *lang.Node)
	walk = func(n *lang.Node) {
		if n.Kind == lang.KindVariable {
			vars = append(vars, &Variable{
				Name:      n.Name,
				Loc:       n.Loc,
				Directive: byName[n.Name],
			})
		}
		for _, f := range n.Fields {
			for _, child := range f.Nodes {
				walk(child)
			}
		}
	}
	for _, stmt := range stmts {
		if stmt.Loc.Begin.File == file {
			walk(stmt)
		}
	}
	return vars
}
