package enrich

import "github.com/lplens/lplens/internal/lang"

// walkContext records where the walk currently sits inside a statement.
// It is threaded by value through the recursion, so flags set on the way
// down never need unwinding.
type walkContext struct {
	head        bool // inside a rule's head field
	body        bool // inside a rule's body field
	conditional bool // inside a conditional literal
	condition   bool // inside the condition field of a conditional literal
}

// resolver computes the defined and depended-on symbol sets of one
// statement. The lookup resolves a reference back to its canonical
// Symbol from the model index.
type resolver struct {
	lookup func(name string, loc lang.Location) *Symbol

	// gaps counts references classified by the structural fallback,
	// i.e. reached with neither head nor body context. These indicate
	// tree shapes the walk does not understand and would otherwise be
	// silent data loss.
	gaps int
}

// roleSet accumulates symbols for one role, deduplicating occurrences by
// (name, line, column) while preserving discovery order.
type roleSet struct {
	symbols []*Symbol
	seen    map[symbolKey]bool
}

func newRoleSet() *roleSet {
	return &roleSet{seen: make(map[symbolKey]bool)}
}

func (rs *roleSet) add(sym *Symbol) {
	key := keyOf(sym.Name, sym.Loc)
	if rs.seen[key] {
		return
	}
	rs.seen[key] = true
	rs.symbols = append(rs.symbols, sym)
}

// resolve walks a statement tree and returns its defines and
// dependencies, in discovery order. The walk is read-only and visits
// every structural field exactly once.
func (r *resolver) resolve(stmt *lang.Node) (defines, dependencies []*Symbol) {
	def := newRoleSet()
	dep := newRoleSet()
	r.walk(stmt, walkContext{}, def, dep)
	return def.symbols, dep.symbols
}

func (r *resolver) walk(n *lang.Node, ctx walkContext, def, dep *roleSet) {
	if n.Kind == lang.KindSymbolicAtom {
		name, _, loc, ok := atomSymbol(n)
		if !ok {
			return
		}
		r.classify(name, loc, ctx, def, dep)
		return
	}

	if n.Kind == lang.KindConditionalLiteral {
		ctx.conditional = true
	}

	for _, f := range n.Fields {
		child := ctx
		switch f.Name {
		case "head":
			child.head = true
		case "body":
			child.body = true
		case "condition":
			if n.Kind == lang.KindConditionalLiteral {
				child.condition = true
			}
		}
		for _, node := range f.Nodes {
			r.walk(node, child, def, dep)
		}
	}
}

// classify assigns a reference to its role. A reference inside the
// condition of a conditional literal is a usage even when the
// conditional sits in the head.
func (r *resolver) classify(name string, loc lang.Location, ctx walkContext, def, dep *roleSet) {
	sym := r.lookup(name, loc)
	switch {
	case ctx.head && ctx.conditional && ctx.condition:
		dep.add(sym)
	case ctx.head:
		def.add(sym)
	case ctx.body:
		dep.add(sym)
	default:
		// Neither marker: an unrecognized shape above this reference.
		// Fall back to a define and count the gap.
		r.gaps++
		def.add(sym)
	}
}
