package lang

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokIdentifier
	tokVariable
	tokNumber
	tokString
	tokDirective // #const, #show, #defined, #include, #count, ...
	tokIf        // :-
	tokDot
	tokComma
	tokSemicolon
	tokColon
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokOperator // arithmetic and comparison operators
	tokRange    // ..
	tokNot      // the "not" keyword
)

type token struct {
	typ  tokenType
	text string
	pos  Position
}

// ParseError is a lexing or parsing failure with a source position.
type ParseError struct {
	Pos     Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// lexer produces tokens from program source, skipping comments. Comments
// are handled separately by the documentation extractor; the lexer only
// needs to step over them.
type lexer struct {
	file   string
	src    []rune
	offset int
	line   int
	col    int
}

func newLexer(file, source string) *lexer {
	return &lexer{file: file, src: []rune(source), line: 1, col: 1}
}

func (lx *lexer) pos() Position {
	return Position{File: lx.file, Line: lx.line, Column: lx.col}
}

func (lx *lexer) peek() rune {
	if lx.offset >= len(lx.src) {
		return 0
	}
	return lx.src[lx.offset]
}

func (lx *lexer) peekAt(n int) rune {
	if lx.offset+n >= len(lx.src) {
		return 0
	}
	return lx.src[lx.offset+n]
}

func (lx *lexer) advance() rune {
	r := lx.src[lx.offset]
	lx.offset++
	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return r
}

func (lx *lexer) skipSpaceAndComments() error {
	for lx.offset < len(lx.src) {
		r := lx.peek()
		switch {
		case unicode.IsSpace(r):
			lx.advance()
		case r == '%' && lx.peekAt(1) == '*':
			start := lx.pos()
			lx.advance()
			lx.advance()
			closed := false
			for lx.offset < len(lx.src) {
				if lx.peek() == '*' && lx.peekAt(1) == '%' {
					lx.advance()
					lx.advance()
					closed = true
					break
				}
				lx.advance()
			}
			if !closed {
				return &ParseError{Pos: start, Message: "unterminated block comment"}
			}
		case r == '%':
			for lx.offset < len(lx.src) && lx.peek() != '\n' {
				lx.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// next returns the next token. Returns tokEOF at end of input.
func (lx *lexer) next() (token, error) {
	if err := lx.skipSpaceAndComments(); err != nil {
		return token{}, err
	}
	start := lx.pos()
	if lx.offset >= len(lx.src) {
		return token{typ: tokEOF, pos: start}, nil
	}

	r := lx.peek()
	switch {
	case isIdentStart(r):
		var sb strings.Builder
		for lx.offset < len(lx.src) && isIdentPart(lx.peek()) {
			sb.WriteRune(lx.advance())
		}
		text := sb.String()
		if text == "not" {
			return token{typ: tokNot, text: text, pos: start}, nil
		}
		if r == '_' || unicode.IsUpper(r) {
			return token{typ: tokVariable, text: text, pos: start}, nil
		}
		return token{typ: tokIdentifier, text: text, pos: start}, nil

	case unicode.IsDigit(r):
		var sb strings.Builder
		for lx.offset < len(lx.src) && unicode.IsDigit(lx.peek()) {
			sb.WriteRune(lx.advance())
		}
		return token{typ: tokNumber, text: sb.String(), pos: start}, nil

	case r == '"':
		lx.advance()
		var sb strings.Builder
		for {
			if lx.offset >= len(lx.src) {
				return token{}, &ParseError{Pos: start, Message: "unterminated string"}
			}
			c := lx.advance()
			if c == '\\' && lx.offset < len(lx.src) {
				sb.WriteRune(c)
				sb.WriteRune(lx.advance())
				continue
			}
			if c == '"' {
				break
			}
			sb.WriteRune(c)
		}
		return token{typ: tokString, text: sb.String(), pos: start}, nil

	case r == '#':
		lx.advance()
		var sb strings.Builder
		for lx.offset < len(lx.src) && isIdentPart(lx.peek()) {
			sb.WriteRune(lx.advance())
		}
		if sb.Len() == 0 {
			return token{}, &ParseError{Pos: start, Message: "expected directive name after '#'"}
		}
		return token{typ: tokDirective, text: sb.String(), pos: start}, nil

	case r == ':':
		lx.advance()
		if lx.peek() == '-' {
			lx.advance()
			return token{typ: tokIf, text: ":-", pos: start}, nil
		}
		return token{typ: tokColon, text: ":", pos: start}, nil

	case r == '.':
		lx.advance()
		if lx.peek() == '.' {
			lx.advance()
			return token{typ: tokRange, text: "..", pos: start}, nil
		}
		return token{typ: tokDot, text: ".", pos: start}, nil

	case r == ',':
		lx.advance()
		return token{typ: tokComma, text: ",", pos: start}, nil

	case r == ';':
		lx.advance()
		return token{typ: tokSemicolon, text: ";", pos: start}, nil

	case r == '(':
		lx.advance()
		return token{typ: tokLParen, text: "(", pos: start}, nil

	case r == ')':
		lx.advance()
		return token{typ: tokRParen, text: ")", pos: start}, nil

	case r == '{':
		lx.advance()
		return token{typ: tokLBrace, text: "{", pos: start}, nil

	case r == '}':
		lx.advance()
		return token{typ: tokRBrace, text: "}", pos: start}, nil

	case r == '!' && lx.peekAt(1) == '=':
		lx.advance()
		lx.advance()
		return token{typ: tokOperator, text: "!=", pos: start}, nil

	case r == '<' || r == '>':
		lx.advance()
		if lx.peek() == '=' {
			lx.advance()
			return token{typ: tokOperator, text: string(r) + "=", pos: start}, nil
		}
		return token{typ: tokOperator, text: string(r), pos: start}, nil

	case r == '=':
		lx.advance()
		return token{typ: tokOperator, text: "=", pos: start}, nil

	case r == '+' || r == '-' || r == '*' || r == '/' || r == '\\' || r == '|' || r == '&' || r == '~':
		lx.advance()
		return token{typ: tokOperator, text: string(r), pos: start}, nil
	}

	return token{}, &ParseError{Pos: start, Message: fmt.Sprintf("unexpected character %q", r)}
}

// tokenize lexes the whole input up front so the parser can look ahead.
func tokenize(file, source string) ([]token, error) {
	lx := newLexer(file, source)
	var toks []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.typ == tokEOF {
			return toks, nil
		}
	}
}
