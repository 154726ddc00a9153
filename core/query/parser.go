package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shaledb/shale/core/storage/record"
)

var (
	// ErrSyntax reports input that does not match the supported grammar.
	ErrSyntax = errors.New("syntax error")

	// ErrUnknownStatement reports a statement that is not SELECT, INSERT,
	// or DELETE.
	ErrUnknownStatement = errors.New("unknown statement")

	// ErrUnknownColumn reports a WHERE clause on anything but the id
	// column, the only indexed access path.
	ErrUnknownColumn = errors.New("unknown column")
)

// Statement is a parsed statement, one of InsertStatement,
// SelectStatement, or DeleteStatement.
type Statement interface {
	stmt()
}

// InsertStatement is INSERT INTO <table> VALUES (<id>, '<username>',
// '<email>').
type InsertStatement struct {
	Table string
	Row   record.Row
}

// SelectStatement is SELECT * FROM <table>, optionally WHERE id = <n>.
// ID is nil for a full scan.
type SelectStatement struct {
	Table string
	ID    *int64
}

// DeleteStatement is DELETE FROM <table> WHERE id = <n>.
type DeleteStatement struct {
	Table string
	ID    int64
}

func (*InsertStatement) stmt() {}
func (*SelectStatement) stmt() {}
func (*DeleteStatement) stmt() {}

// Parse turns one statement string into a Statement. The single table
// name is accepted in any form; there is only one table to address.
func Parse(input string) (Statement, error) {
	lex := NewLexer(input)
	var tokens []Token
	for {
		tok := lex.NextToken()
		if tok.Type == TokenInvalid {
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, tok.Literal, tok.Pos)
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}

	p := &parser{tokens: tokens}
	var (
		st  Statement
		err error
	)
	switch p.current().Type {
	case TokenSelect:
		st, err = p.parseSelect()
	case TokenInsert:
		st, err = p.parseInsert()
	case TokenDelete:
		st, err = p.parseDelete()
	case TokenEOF, TokenSemicolon:
		return nil, fmt.Errorf("%w: empty statement", ErrSyntax)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatement, p.current().Literal)
	}
	if err != nil {
		return nil, err
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	return st, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) current() Token {
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(tt TokenType, what string) (Token, error) {
	tok := p.current()
	if tok.Type != tt {
		return Token{}, fmt.Errorf("%w: expected %s at offset %d, got %q", ErrSyntax, what, tok.Pos, tok.Literal)
	}
	return p.advance(), nil
}

// finish accepts an optional trailing semicolon and requires the end of
// the input.
func (p *parser) finish() error {
	if p.current().Type == TokenSemicolon {
		p.advance()
	}
	if tok := p.current(); tok.Type != TokenEOF {
		return fmt.Errorf("%w: trailing input at offset %d, got %q", ErrSyntax, tok.Pos, tok.Literal)
	}
	return nil
}

// parseSelect handles SELECT * FROM <table> [WHERE id = <n>].
func (p *parser) parseSelect() (Statement, error) {
	p.advance() // SELECT
	if _, err := p.expect(TokenAsterisk, "'*'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenFrom, "FROM"); err != nil {
		return nil, err
	}
	table, err := p.expect(TokenIdent, "a table name")
	if err != nil {
		return nil, err
	}

	st := &SelectStatement{Table: table.Literal}
	if p.current().Type == TokenWhere {
		id, err := p.parseIDPredicate()
		if err != nil {
			return nil, err
		}
		st.ID = &id
	}
	return st, nil
}

// parseInsert handles INSERT INTO <table> VALUES (<id>, '<a>', '<b>').
func (p *parser) parseInsert() (Statement, error) {
	p.advance() // INSERT
	if _, err := p.expect(TokenInto, "INTO"); err != nil {
		return nil, err
	}
	table, err := p.expect(TokenIdent, "a table name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenValues, "VALUES"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen, "'('"); err != nil {
		return nil, err
	}
	id, err := p.parseNumber()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenComma, "','"); err != nil {
		return nil, err
	}
	username, err := p.expect(TokenString, "a quoted username")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenComma, "','"); err != nil {
		return nil, err
	}
	email, err := p.expect(TokenString, "a quoted email")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen, "')'"); err != nil {
		return nil, err
	}

	return &InsertStatement{
		Table: table.Literal,
		Row: record.Row{
			ID:       id,
			Username: username.Literal,
			Email:    email.Literal,
		},
	}, nil
}

// parseDelete handles DELETE FROM <table> WHERE id = <n>.
func (p *parser) parseDelete() (Statement, error) {
	p.advance() // DELETE
	if _, err := p.expect(TokenFrom, "FROM"); err != nil {
		return nil, err
	}
	table, err := p.expect(TokenIdent, "a table name")
	if err != nil {
		return nil, err
	}
	if p.current().Type != TokenWhere {
		return nil, fmt.Errorf("%w: DELETE requires WHERE id = <n>", ErrSyntax)
	}
	id, err := p.parseIDPredicate()
	if err != nil {
		return nil, err
	}
	return &DeleteStatement{Table: table.Literal, ID: id}, nil
}

// parseIDPredicate handles WHERE id = <n>.
func (p *parser) parseIDPredicate() (int64, error) {
	p.advance() // WHERE
	col, err := p.expect(TokenIdent, "a column name")
	if err != nil {
		return 0, err
	}
	if !strings.EqualFold(col.Literal, "id") {
		return 0, fmt.Errorf("%w: %q, only id can be filtered", ErrUnknownColumn, col.Literal)
	}
	if _, err := p.expect(TokenEquals, "'='"); err != nil {
		return 0, err
	}
	return p.parseNumber()
}

func (p *parser) parseNumber() (int64, error) {
	tok, err := p.expect(TokenNumber, "a number")
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(tok.Literal, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: number %q out of range", ErrSyntax, tok.Literal)
	}
	return n, nil
}
