package query

// TokenType classifies a lexed token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenInvalid

	TokenIdent
	TokenNumber
	TokenString

	TokenSelect
	TokenFrom
	TokenWhere
	TokenInsert
	TokenInto
	TokenValues
	TokenDelete

	TokenComma
	TokenSemicolon
	TokenLParen
	TokenRParen
	TokenAsterisk
	TokenEquals
)

// Token is one lexed unit of a statement. Pos is the byte offset in the
// input, for error messages.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}

// keywords maps uppercased identifiers to their keyword token types.
var keywords = map[string]TokenType{
	"SELECT": TokenSelect,
	"FROM":   TokenFrom,
	"WHERE":  TokenWhere,
	"INSERT": TokenInsert,
	"INTO":   TokenInto,
	"VALUES": TokenValues,
	"DELETE": TokenDelete,
}

// singleCharTokens maps punctuation bytes to their token types.
var singleCharTokens = map[byte]TokenType{
	',': TokenComma,
	';': TokenSemicolon,
	'(': TokenLParen,
	')': TokenRParen,
	'*': TokenAsterisk,
	'=': TokenEquals,
}
