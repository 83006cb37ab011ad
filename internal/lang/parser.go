package lang

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// parser is a recursive-descent parser over the pre-lexed token stream.
// It produces the generic Node tree consumed by the enrichment layer.
type parser struct {
	file string
	toks []token
	idx  int
}

// Parse parses program source into a list of top-level statement nodes.
// #include statements are returned as Include nodes; ParseFile resolves
// them recursively.
func Parse(file, source string) ([]*Node, error) {
	toks, err := tokenize(file, source)
	if err != nil {
		return nil, err
	}
	p := &parser{file: file, toks: toks}
	var stmts []*Node
	for p.peek().typ != tokEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// ParseFile reads and parses a program file, resolving #include
// statements recursively. Include paths are relative to the including
// file; each file is parsed at most once per call. Node locations carry
// the file they were parsed from, which is what distinguishes local
// statements from included ones downstream.
func ParseFile(path string) ([]*Node, error) {
	visited := make(map[string]bool)
	return parseFileRec(path, visited)
}

func parseFileRec(path string, visited map[string]bool) ([]*Node, error) {
	abs, err := filepath.Abs(path)
	if err == nil {
		if visited[abs] {
			return nil, nil
		}
		visited[abs] = true
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program file: %w", err)
	}

	stmts, err := Parse(path, string(source))
	if err != nil {
		return nil, err
	}

	var out []*Node
	for _, stmt := range stmts {
		if stmt.Kind != KindInclude {
			out = append(out, stmt)
			continue
		}
		included := stmt.Value
		if !filepath.IsAbs(included) {
			included = filepath.Join(filepath.Dir(path), included)
		}
		sub, err := parseFileRec(included, visited)
		if err != nil {
			return nil, fmt.Errorf("failed to include %s: %w", stmt.Value, err)
		}
		out = append(out, sub...)
	}
	return out, nil
}

func (p *parser) peek() token {
	return p.toks[p.idx]
}

func (p *parser) advance() token {
	tok := p.toks[p.idx]
	if tok.typ != tokEOF {
		p.idx++
	}
	return tok
}

func (p *parser) prevEnd() Position {
	tok := p.toks[p.idx-1]
	end := tok.pos
	end.Column += len(tok.text)
	return end
}

func (p *parser) expect(typ tokenType, what string) (token, error) {
	tok := p.peek()
	if tok.typ != typ {
		return token{}, &ParseError{Pos: tok.pos, Message: fmt.Sprintf("expected %s, found %q", what, tok.text)}
	}
	return p.advance(), nil
}

func (p *parser) errHere(format string, args ...any) error {
	return &ParseError{Pos: p.peek().pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) loc(begin Position) Location {
	return Location{Begin: begin, End: p.prevEnd()}
}

// parseStatement parses one top-level statement terminated by '.'.
func (p *parser) parseStatement() (*Node, error) {
	tok := p.peek()
	if tok.typ == tokDirective {
		switch tok.text {
		case "const":
			return p.parseConst()
		case "show":
			return p.parseShow()
		case "defined":
			return p.parseDefined()
		case "include":
			return p.parseInclude()
		}
	}
	return p.parseRule()
}

// parseConst parses `#const name = term.` into a Definition node.
func (p *parser) parseConst() (*Node, error) {
	begin := p.advance().pos
	name, err := p.expect(tokIdentifier, "constant name")
	if err != nil {
		return nil, err
	}
	eq := p.peek()
	if eq.typ != tokOperator || eq.text != "=" {
		return nil, p.errHere("expected '=' in #const statement")
	}
	p.advance()
	value, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokDot, "'.'"); err != nil {
		return nil, err
	}
	node := &Node{Kind: KindDefinition, Name: name.text, Loc: p.loc(begin)}
	node.addField("value", value)
	return node, nil
}

// parseShow parses `#show.`, `#show name/arity.` and `#show term : body.`.
func (p *parser) parseShow() (*Node, error) {
	begin := p.advance().pos

	if p.peek().typ == tokDot {
		p.advance()
		return &Node{Kind: KindShowSignature, Name: "", Arity: 0, Loc: p.loc(begin)}, nil
	}

	// Signature form: identifier '/' number '.'
	if p.peek().typ == tokIdentifier && p.peekAhead(1).typ == tokOperator && p.peekAhead(1).text == "/" {
		name := p.advance()
		p.advance()
		arity, err := p.expect(tokNumber, "signature arity")
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(arity.text)
		if err != nil {
			return nil, &ParseError{Pos: arity.pos, Message: "invalid arity"}
		}
		if _, err := p.expect(tokDot, "'.'"); err != nil {
			return nil, err
		}
		return &Node{Kind: KindShowSignature, Name: name.text, Arity: n, Loc: p.loc(begin)}, nil
	}

	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	node := &Node{Kind: KindShowTerm}
	node.addField("term", term)
	if p.peek().typ == tokColon {
		p.advance()
		body, err := p.parseLiteralSeq()
		if err != nil {
			return nil, err
		}
		node.addField("body", body...)
	}
	if _, err := p.expect(tokDot, "'.'"); err != nil {
		return nil, err
	}
	node.Loc = p.loc(begin)
	return node, nil
}

// parseDefined parses `#defined name/arity.`.
func (p *parser) parseDefined() (*Node, error) {
	begin := p.advance().pos
	name, err := p.expect(tokIdentifier, "predicate name")
	if err != nil {
		return nil, err
	}
	slash := p.peek()
	if slash.typ != tokOperator || slash.text != "/" {
		return nil, p.errHere("expected '/' in #defined statement")
	}
	p.advance()
	arity, err := p.expect(tokNumber, "signature arity")
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(arity.text)
	if err != nil {
		return nil, &ParseError{Pos: arity.pos, Message: "invalid arity"}
	}
	if _, err := p.expect(tokDot, "'.'"); err != nil {
		return nil, err
	}
	return &Node{Kind: KindDefined, Name: name.text, Arity: n, Loc: p.loc(begin)}, nil
}

// parseInclude parses `#include "path".`.
func (p *parser) parseInclude() (*Node, error) {
	begin := p.advance().pos
	path, err := p.expect(tokString, "include path")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokDot, "'.'"); err != nil {
		return nil, err
	}
	return &Node{Kind: KindInclude, Value: path.text, Loc: p.loc(begin)}, nil
}

// parseRule parses facts, rules and constraints:
// `head.`, `head :- body.`, `:- body.`.
func (p *parser) parseRule() (*Node, error) {
	begin := p.peek().pos
	node := &Node{Kind: KindRule}

	if p.peek().typ != tokIf {
		head, err := p.parseHead()
		if err != nil {
			return nil, err
		}
		node.addField("head", head)
	}

	if p.peek().typ == tokIf {
		p.advance()
		body, err := p.parseLiteralSeq()
		if err != nil {
			return nil, err
		}
		node.addField("body", body...)
	}

	if _, err := p.expect(tokDot, "'.'"); err != nil {
		return nil, err
	}
	node.Loc = p.loc(begin)
	return node, nil
}

// parseHead parses a rule head: a single literal, a conditional literal,
// a brace aggregate (choice), or a disjunction of those separated by ';'
// or '|'.
func (p *parser) parseHead() (*Node, error) {
	begin := p.peek().pos
	first, err := p.parseHeadElement()
	if err != nil {
		return nil, err
	}

	elements := []*Node{first}
	for p.isDisjunctionSeparator() {
		p.advance()
		next, err := p.parseHeadElement()
		if err != nil {
			return nil, err
		}
		elements = append(elements, next)
	}

	if len(elements) == 1 {
		return first, nil
	}
	node := &Node{Kind: KindDisjunction, Loc: p.loc(begin)}
	node.addField("elements", elements...)
	return node, nil
}

func (p *parser) isDisjunctionSeparator() bool {
	tok := p.peek()
	return tok.typ == tokSemicolon || (tok.typ == tokOperator && tok.text == "|")
}

// parseHeadElement parses one disjunct: `literal` or `literal : cond`.
func (p *parser) parseHeadElement() (*Node, error) {
	if p.peek().typ == tokLBrace || p.isAggregateDirective() || p.isGuardedBrace() {
		return p.parseAggregate()
	}

	begin := p.peek().pos
	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	if p.peek().typ != tokColon {
		return lit, nil
	}
	p.advance()
	cond, err := p.parseConditionSeq()
	if err != nil {
		return nil, err
	}
	node := &Node{Kind: KindConditionalLiteral}
	node.addField("literal", lit)
	node.addField("condition", cond...)
	node.Loc = p.loc(begin)
	return node, nil
}

// isGuardedBrace reports whether the upcoming tokens are a left guard
// followed by a brace aggregate, e.g. `1 { a } 2` or `1 <= #count{..}`.
func (p *parser) isGuardedBrace() bool {
	if p.peek().typ != tokNumber && p.peek().typ != tokVariable {
		return false
	}
	next := p.peekAhead(1)
	if next.typ == tokLBrace || next.typ == tokDirective {
		return true
	}
	if next.typ == tokOperator && isComparisonOp(next.text) {
		after := p.peekAhead(2)
		return after.typ == tokLBrace || after.typ == tokDirective
	}
	return false
}

func isComparisonOp(op string) bool {
	switch op {
	case "=", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

// parseLiteralSeq parses a rule body: elements separated by ',' or ';'.
func (p *parser) parseLiteralSeq() ([]*Node, error) {
	var out []*Node
	for {
		elem, err := p.parseBodyElement()
		if err != nil {
			return nil, err
		}
		out = append(out, elem)
		tok := p.peek()
		if tok.typ == tokComma || tok.typ == tokSemicolon {
			p.advance()
			continue
		}
		return out, nil
	}
}

// parseBodyElement parses one body element: a literal, a conditional
// literal `lit : cond, cond`, or an aggregate.
func (p *parser) parseBodyElement() (*Node, error) {
	if p.peek().typ == tokLBrace || p.isAggregateDirective() || p.isGuardedBrace() {
		return p.parseAggregate()
	}

	begin := p.peek().pos
	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	if p.peek().typ != tokColon {
		return lit, nil
	}
	p.advance()
	cond, err := p.parseConditionSeq()
	if err != nil {
		return nil, err
	}
	node := &Node{Kind: KindConditionalLiteral}
	node.addField("literal", lit)
	node.addField("condition", cond...)
	node.Loc = p.loc(begin)
	return node, nil
}

func (p *parser) isAggregateDirective() bool {
	tok := p.peek()
	if tok.typ != tokDirective {
		return false
	}
	switch tok.text {
	case "count", "sum", "min", "max":
		return true
	}
	return false
}

// parseConditionSeq parses the comma-separated literals of a condition.
// The condition extends to the next ';', '.', ':-' or closing brace,
// which is how the language delimits conditional literals.
func (p *parser) parseConditionSeq() ([]*Node, error) {
	var out []*Node
	for {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		out = append(out, lit)
		if p.peek().typ == tokComma {
			p.advance()
			continue
		}
		return out, nil
	}
}

// parseAggregate parses brace aggregates with optional guards and an
// optional aggregate function name:
// `l { elems } u`, `#count { elems } > t`, `{ a : b }`.
func (p *parser) parseAggregate() (*Node, error) {
	begin := p.peek().pos
	node := &Node{Kind: KindAggregate}

	if p.peek().typ == tokNumber || p.peek().typ == tokVariable {
		guard, err := p.parseGuardBefore()
		if err != nil {
			return nil, err
		}
		node.addField("left_guard", guard)
	}

	if p.peek().typ == tokDirective {
		node.Name = p.advance().text
	}

	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return nil, err
	}

	var elements []*Node
	if p.peek().typ != tokRBrace {
		for {
			elem, err := p.parseAggregateElement()
			if err != nil {
				return nil, err
			}
			elements = append(elements, elem)
			if p.peek().typ == tokSemicolon {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}
	node.addField("elements", elements...)

	tok := p.peek()
	if tok.typ == tokNumber || tok.typ == tokVariable ||
		(tok.typ == tokOperator && isComparisonOp(tok.text)) {
		guard, err := p.parseGuardAfter()
		if err != nil {
			return nil, err
		}
		node.addField("right_guard", guard)
	}

	node.Loc = p.loc(begin)
	return node, nil
}

// parseGuardBefore parses `term [op]` ahead of an aggregate. A bare term
// means `term <=` per language convention.
func (p *parser) parseGuardBefore() (*Node, error) {
	begin := p.peek().pos
	term, err := p.parsePrimaryTerm()
	if err != nil {
		return nil, err
	}
	op := "<="
	if p.peek().typ == tokOperator && isComparisonOp(p.peek().text) {
		op = p.advance().text
	}
	node := &Node{Kind: KindGuard, Value: op, Loc: p.loc(begin)}
	node.addField("term", term)
	return node, nil
}

// parseGuardAfter parses `[op] term` after an aggregate.
func (p *parser) parseGuardAfter() (*Node, error) {
	begin := p.peek().pos
	op := "<="
	if p.peek().typ == tokOperator && isComparisonOp(p.peek().text) {
		op = p.advance().text
	}
	term, err := p.parsePrimaryTerm()
	if err != nil {
		return nil, err
	}
	node := &Node{Kind: KindGuard, Value: op, Loc: p.loc(begin)}
	node.addField("term", term)
	return node, nil
}

// parseAggregateElement parses one `{...}` element. Elements of the form
// `lit : cond` become ConditionalLiteral nodes so that condition
// references keep their usage role; named-aggregate tuple elements
// `t1,t2 : cond` become AggregateElement nodes.
func (p *parser) parseAggregateElement() (*Node, error) {
	begin := p.peek().pos
	first, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}

	// Tuple element: more terms before the colon.
	if p.peek().typ == tokComma {
		terms := []*Node{first}
		for p.peek().typ == tokComma {
			p.advance()
			t, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			terms = append(terms, t)
		}
		node := &Node{Kind: KindAggregateElement}
		node.addField("terms", terms...)
		if p.peek().typ == tokColon {
			p.advance()
			cond, err := p.parseConditionSeq()
			if err != nil {
				return nil, err
			}
			node.addField("condition", cond...)
		}
		node.Loc = p.loc(begin)
		return node, nil
	}

	node := &Node{Kind: KindConditionalLiteral}
	node.addField("literal", first)
	if p.peek().typ == tokColon {
		p.advance()
		cond, err := p.parseConditionSeq()
		if err != nil {
			return nil, err
		}
		node.addField("condition", cond...)
	}
	node.Loc = p.loc(begin)
	return node, nil
}

// parseLiteral parses `[not [not]] atom-or-comparison`.
func (p *parser) parseLiteral() (*Node, error) {
	begin := p.peek().pos
	sign := ""
	for p.peek().typ == tokNot {
		p.advance()
		if sign == "" {
			sign = "not"
		} else {
			sign = "not not"
		}
	}

	atom, err := p.parseAtomOrComparison()
	if err != nil {
		return nil, err
	}

	node := &Node{Kind: KindLiteral, Value: sign}
	node.addField("atom", atom)
	node.Loc = p.loc(begin)
	return node, nil
}

// parseAtomOrComparison parses a term and wraps it as a SymbolicAtom,
// or as a Comparison when a relational operator follows.
func (p *parser) parseAtomOrComparison() (*Node, error) {
	begin := p.peek().pos
	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	tok := p.peek()
	if tok.typ == tokOperator && isComparisonOp(tok.text) {
		op := p.advance().text
		rightBegin := p.peek().pos
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		guard := &Node{Kind: KindGuard, Value: op, Loc: Location{Begin: rightBegin, End: p.prevEnd()}}
		guard.addField("term", right)
		node := &Node{Kind: KindComparison, Loc: p.loc(begin)}
		node.addField("term", term)
		node.addField("guards", guard)
		return node, nil
	}

	if term.Kind == KindFunction || term.Kind == KindSymbolicTerm {
		node := &Node{Kind: KindSymbolicAtom, Loc: term.Loc}
		node.addField("symbol", term)
		return node, nil
	}
	return term, nil
}

// parseTerm parses a term with left-associative binary operators.
func (p *parser) parseTerm() (*Node, error) {
	begin := p.peek().pos
	left, err := p.parsePrimaryTerm()
	if err != nil {
		return nil, err
	}

	if p.peek().typ == tokRange {
		p.advance()
		right, err := p.parsePrimaryTerm()
		if err != nil {
			return nil, err
		}
		node := &Node{Kind: KindInterval, Loc: p.loc(begin)}
		node.addField("left", left)
		node.addField("right", right)
		return node, nil
	}

	for p.peek().typ == tokOperator && isArithmeticOp(p.peek().text) {
		op := p.advance().text
		right, err := p.parsePrimaryTerm()
		if err != nil {
			return nil, err
		}
		node := &Node{Kind: KindBinaryOperation, Value: op, Loc: p.loc(begin)}
		node.addField("left", left)
		node.addField("right", right)
		left = node
	}
	return left, nil
}

func isArithmeticOp(op string) bool {
	switch op {
	case "+", "-", "*", "/", "\\", "&", "|", "~":
		return true
	}
	return false
}

// parsePrimaryTerm parses an atomic term: number, string, variable,
// constant or function term, parenthesized tuple, or unary minus.
func (p *parser) parsePrimaryTerm() (*Node, error) {
	tok := p.peek()
	begin := tok.pos

	switch tok.typ {
	case tokNumber:
		p.advance()
		return &Node{Kind: KindNumber, Value: tok.text, Loc: p.loc(begin)}, nil

	case tokString:
		p.advance()
		return &Node{Kind: KindString, Value: tok.text, Loc: p.loc(begin)}, nil

	case tokVariable:
		p.advance()
		return &Node{Kind: KindVariable, Name: tok.text, Loc: p.loc(begin)}, nil

	case tokDirective:
		if tok.text == "true" || tok.text == "false" {
			p.advance()
			return &Node{Kind: KindBooleanConstant, Value: tok.text, Loc: p.loc(begin)}, nil
		}
		return nil, p.errHere("unexpected directive #%s in term", tok.text)

	case tokOperator:
		if tok.text == "-" || tok.text == "~" {
			p.advance()
			inner, err := p.parsePrimaryTerm()
			if err != nil {
				return nil, err
			}
			node := &Node{Kind: KindUnaryOperation, Value: tok.text, Loc: p.loc(begin)}
			node.addField("argument", inner)
			return node, nil
		}
		return nil, p.errHere("unexpected operator %q", tok.text)

	case tokLParen:
		p.advance()
		var items []*Node
		if p.peek().typ != tokRParen {
			for {
				item, err := p.parseTerm()
				if err != nil {
					return nil, err
				}
				items = append(items, item)
				if p.peek().typ == tokComma {
					p.advance()
					continue
				}
				break
			}
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		if len(items) == 1 {
			return items[0], nil
		}
		node := &Node{Kind: KindFunction, Name: "", Loc: p.loc(begin)}
		node.addField("arguments", items...)
		return node, nil

	case tokIdentifier:
		p.advance()
		if p.peek().typ != tokLParen {
			return &Node{Kind: KindSymbolicTerm, Name: tok.text, Loc: p.loc(begin)}, nil
		}
		p.advance()
		var args []*Node
		if p.peek().typ != tokRParen {
			for {
				arg, err := p.parseTerm()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.peek().typ == tokComma {
					p.advance()
					continue
				}
				break
			}
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		node := &Node{Kind: KindFunction, Name: tok.text, Loc: p.loc(begin)}
		node.addField("arguments", args...)
		return node, nil
	}

	return nil, p.errHere("unexpected token %q", tok.text)
}

func (p *parser) peekAhead(n int) token {
	if p.idx+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.idx+n]
}
