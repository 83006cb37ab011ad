package lang

import "fmt"

// Kind identifies the shape of a syntax tree node.
type Kind string

const (
	KindProgram            Kind = "program"
	KindRule               Kind = "rule"
	KindLiteral            Kind = "literal"
	KindSymbolicAtom       Kind = "symbolic_atom"
	KindFunction           Kind = "function"
	KindVariable           Kind = "variable"
	KindSymbolicTerm       Kind = "symbolic_term"
	KindNumber             Kind = "number"
	KindString             Kind = "string"
	KindInterval           Kind = "interval"
	KindBinaryOperation    Kind = "binary_operation"
	KindUnaryOperation     Kind = "unary_operation"
	KindComparison         Kind = "comparison"
	KindGuard              Kind = "guard"
	KindConditionalLiteral Kind = "conditional_literal"
	KindDisjunction        Kind = "disjunction"
	KindAggregate          Kind = "aggregate"
	KindAggregateElement   Kind = "aggregate_element"
	KindBooleanConstant    Kind = "boolean_constant"
	KindDefinition         Kind = "definition"
	KindDefined            Kind = "defined"
	KindShowSignature      Kind = "show_signature"
	KindShowTerm           Kind = "show_term"
	KindInclude            Kind = "include"
)

// Position is a 1-indexed point in a source file.
type Position struct {
	File   string
	Line   int
	Column int
}

// Location is a begin/end range in a source file.
type Location struct {
	Begin Position
	End   Position
}

// Before reports whether l orders before other by (file, line, column).
func (l Location) Before(other Location) bool {
	if l.Begin.File != other.Begin.File {
		return l.Begin.File < other.Begin.File
	}
	if l.Begin.Line != other.Begin.Line {
		return l.Begin.Line < other.Begin.Line
	}
	return l.Begin.Column < other.Begin.Column
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

func (l Location) String() string {
	return l.Begin.String()
}

// Field is a named structural child slot of a Node. A field holds zero,
// one, or an ordered sequence of child nodes.
type Field struct {
	Name  string
	Nodes []*Node
}

// Node is one syntax tree node. Name carries the identifier for
// name-bearing kinds (functions, variables, constants, signatures) and
// Value carries literal text (numbers, strings, operators, negation
// signs). Nodes are immutable once the parser returns them.
type Node struct {
	Kind   Kind
	Loc    Location
	Name   string
	Value  string
	Arity  int // signature arity for Defined / ShowSignature nodes
	Fields []Field
}

// Field returns the child nodes stored under the given field name, or
// nil if the field is absent.
func (n *Node) Field(name string) []*Node {
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Nodes
		}
	}
	return nil
}

// Child returns the single child stored under the given field name, or
// nil if the field is absent or empty.
func (n *Node) Child(name string) *Node {
	nodes := n.Field(name)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func (n *Node) addField(name string, nodes ...*Node) {
	if len(nodes) == 0 {
		return
	}
	n.Fields = append(n.Fields, Field{Name: name, Nodes: nodes})
}
