// Package query is the SQL front end over the storage engine: a lexer and
// parser for the supported statement forms, and an executor that maps
// parsed statements onto engine operations.
package query

import (
	"strings"
	"unicode"
)

// Lexer breaks a statement string into tokens. Keywords match
// case-insensitively; string literals keep their case.
type Lexer struct {
	input string
	pos   int
}

// NewLexer returns a lexer over input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// NextToken scans and returns the next token, TokenEOF once the input is
// exhausted, or TokenInvalid on a byte that starts no token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}
	}

	start := l.pos
	ch := l.input[l.pos]

	if tt, ok := singleCharTokens[ch]; ok {
		l.pos++
		return Token{Type: tt, Literal: string(ch), Pos: start}
	}

	switch {
	case ch == '\'':
		return l.lexString()
	case isDigit(ch) || ch == '-':
		return l.lexNumber()
	case isIdentStart(ch):
		return l.lexIdent()
	default:
		l.pos++
		return Token{Type: TokenInvalid, Literal: string(ch), Pos: start}
	}
}

// lexString scans a single-quoted literal. A doubled quote inside the
// literal stands for one quote character.
func (l *Lexer) lexString() Token {
	start := l.pos
	l.pos++ // opening quote

	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch != '\'' {
			sb.WriteByte(ch)
			l.pos++
			continue
		}
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '\'' {
			sb.WriteByte('\'')
			l.pos += 2
			continue
		}
		l.pos++ // closing quote
		return Token{Type: TokenString, Literal: sb.String(), Pos: start}
	}
	return Token{Type: TokenInvalid, Literal: l.input[start:], Pos: start}
}

func (l *Lexer) lexNumber() Token {
	start := l.pos
	if l.input[l.pos] == '-' {
		l.pos++
		if l.pos >= len(l.input) || !isDigit(l.input[l.pos]) {
			return Token{Type: TokenInvalid, Literal: "-", Pos: start}
		}
	}
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	return Token{Type: TokenNumber, Literal: l.input[start:l.pos], Pos: start}
}

func (l *Lexer) lexIdent() Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	literal := l.input[start:l.pos]
	if tt, ok := keywords[strings.ToUpper(literal)]; ok {
		return Token{Type: tt, Literal: literal, Pos: start}
	}
	return Token{Type: TokenIdent, Literal: literal, Pos: start}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
