package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// tokenize drains the lexer, EOF token excluded.
func tokenize(input string) []Token {
	lex := NewLexer(input)
	var tokens []Token
	for {
		tok := lex.NextToken()
		if tok.Type == TokenEOF {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

// TestLexerTokenizesInsert walks a full INSERT statement and checks every
// token type and literal in sequence.
func TestLexerTokenizesInsert(t *testing.T) {
	tokens := tokenize("INSERT INTO users VALUES (7, 'alice', 'alice@example.com');")

	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	require.Equal(t, []TokenType{
		TokenInsert, TokenInto, TokenIdent, TokenValues, TokenLParen,
		TokenNumber, TokenComma, TokenString, TokenComma, TokenString,
		TokenRParen, TokenSemicolon,
	}, types)

	require.Equal(t, "users", tokens[2].Literal)
	require.Equal(t, "7", tokens[5].Literal)
	require.Equal(t, "alice", tokens[7].Literal)
	require.Equal(t, "alice@example.com", tokens[9].Literal)
}

// TestLexerKeywordsAreCaseInsensitive checks keyword recognition ignores
// case while identifiers and literals keep theirs.
func TestLexerKeywordsAreCaseInsensitive(t *testing.T) {
	tokens := tokenize("select * FROM Users where ID = 1")

	require.Equal(t, TokenSelect, tokens[0].Type)
	require.Equal(t, "select", tokens[0].Literal)
	require.Equal(t, TokenFrom, tokens[2].Type)
	require.Equal(t, TokenIdent, tokens[3].Type)
	require.Equal(t, "Users", tokens[3].Literal)
	require.Equal(t, TokenWhere, tokens[4].Type)
	require.Equal(t, "ID", tokens[5].Literal)
}

// TestLexerStringLiterals covers quoting: embedded spaces, the doubled
// quote escape, and the empty string.
func TestLexerStringLiterals(t *testing.T) {
	cases := map[string]string{
		"'plain'":          "plain",
		"'two words here'": "two words here",
		"'O''Brien'":       "O'Brien",
		"''''":             "'",
		"''":               "",
	}
	for input, want := range cases {
		tokens := tokenize(input)
		require.Len(t, tokens, 1, "input %q", input)
		require.Equal(t, TokenString, tokens[0].Type, "input %q", input)
		require.Equal(t, want, tokens[0].Literal, "input %q", input)
	}
}

// TestLexerNumbers accepts plain and negative integers and rejects a bare
// minus sign.
func TestLexerNumbers(t *testing.T) {
	tokens := tokenize("42 -17")
	require.Equal(t, TokenNumber, tokens[0].Type)
	require.Equal(t, "42", tokens[0].Literal)
	require.Equal(t, TokenNumber, tokens[1].Type)
	require.Equal(t, "-17", tokens[1].Literal)

	tokens = tokenize("- 5")
	require.Equal(t, TokenInvalid, tokens[0].Type)
}

// TestLexerInvalidInput checks unterminated strings and stray bytes come
// back as TokenInvalid with their position.
func TestLexerInvalidInput(t *testing.T) {
	tokens := tokenize("'never closed")
	require.Equal(t, TokenInvalid, tokens[0].Type)
	require.Equal(t, 0, tokens[0].Pos)

	tokens = tokenize("SELECT @")
	require.Equal(t, TokenSelect, tokens[0].Type)
	require.Equal(t, TokenInvalid, tokens[1].Type)
	require.Equal(t, "@", tokens[1].Literal)
	require.Equal(t, 7, tokens[1].Pos)
}
