package docs

import (
	"regexp"
	"strings"
)

// Directive kinds recognized in annotation comments.
const (
	DirectiveSection   = "section"
	DirectivePredicate = "predicate"
	DirectiveVar       = "var"
)

// Directive is a structured annotation mined from a `%!` comment, e.g.
//
//	%!section Fleet assignment
//	%!var V the vehicle being routed
//	%!predicate route/2 an edge selected for the tour
//
// The first token after `%!` is the kind; the remaining whitespace-split
// tokens are the parameters.
type Directive struct {
	LineNumber int
	Kind       string
	Parameters []string
}

// Description joins the parameters that follow the subject parameter.
// For var and predicate directives the first parameter names the subject
// and the rest are free text.
func (d *Directive) Description() string {
	if len(d.Parameters) < 2 {
		return ""
	}
	return strings.Join(d.Parameters[1:], " ")
}

// Name returns the directive's subject: the full parameter list for
// sections, the first parameter otherwise.
func (d *Directive) Name() string {
	if len(d.Parameters) == 0 {
		return ""
	}
	if d.Kind == DirectiveSection {
		return strings.Join(d.Parameters, " ")
	}
	return d.Parameters[0]
}

var directivePattern = regexp.MustCompile(`%!\s*([a-z]+)\s*(.*)$`)

// ExtractDirectives scans source lines for annotation directives and
// returns them grouped by kind. Line numbers are 1-indexed.
func ExtractDirectives(lines []string) map[string][]*Directive {
	byKind := make(map[string][]*Directive)

	for i, line := range lines {
		m := directivePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		kind := m[1]
		d := &Directive{
			LineNumber: i + 1,
			Kind:       kind,
			Parameters: strings.Fields(m[2]),
		}
		byKind[kind] = append(byKind[kind], d)
	}

	return byKind
}
