// Package token defines the lexical tokens of the bullet script language.
package token

// Type represents the type of a token.
type Type int

// Token types
const (
	// Special tokens
	ERROR Type = iota
	EOF

	// Single-character delimiters
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	DOT       // .
	COMMA     // ,
	SEMICOLON // ;
	BACKSLASH // \ (lambda)

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	BANG    // !
	ASSIGN  // :=
	EQ      // ==
	NOT_EQ  // !=
	GT      // >
	GTE     // >=
	LT      // <
	LTE     // <=
	AND     // &&
	OR      // ||
	ARROW   // ->

	// Domain literal brackets
	VEC_OPEN  // <<
	VEC_CLOSE // >>
	PT_OPEN   // [[
	PT_CLOSE  // ]]

	// Literals
	IDENT
	STRING
	INT
	FLOAT

	// Keywords
	ELSE
	FALSE
	FOR
	IF
	INCLUDE
	LET
	PRINT
	RETURN
	TRUE
	VAR
	WAIT
	WHILE
	YIELD

	typeCount
)

// Token is a single lexeme. Lexeme is a slice of the source buffer and
// holds the diagnostic message for ERROR tokens.
type Token struct {
	Type   Type
	Lexeme string
	Line   int
	Column int
}

var typeNames = [...]string{
	ERROR: "ERROR",
	EOF:   "EOF",

	LPAREN:    "(",
	RPAREN:    ")",
	LBRACE:    "{",
	RBRACE:    "}",
	DOT:       ".",
	COMMA:     ",",
	SEMICOLON: ";",
	BACKSLASH: "\\",

	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	PERCENT: "%",
	BANG:    "!",
	ASSIGN:  ":=",
	EQ:      "==",
	NOT_EQ:  "!=",
	GT:      ">",
	GTE:     ">=",
	LT:      "<",
	LTE:     "<=",
	AND:     "&&",
	OR:      "||",
	ARROW:   "->",

	VEC_OPEN:  "<<",
	VEC_CLOSE: ">>",
	PT_OPEN:   "[[",
	PT_CLOSE:  "]]",

	IDENT:  "IDENT",
	STRING: "STRING",
	INT:    "INT",
	FLOAT:  "FLOAT",

	ELSE:    "else",
	FALSE:   "false",
	FOR:     "for",
	IF:      "if",
	INCLUDE: "include",
	LET:     "let",
	PRINT:   "print",
	RETURN:  "return",
	TRUE:    "true",
	VAR:     "var",
	WAIT:    "wait",
	WHILE:   "while",
	YIELD:   "yield",
}

// String returns a string representation of the token type.
func (t Type) String() string {
	if t >= 0 && t < typeCount {
		return typeNames[t]
	}
	return "UNKNOWN"
}

// Count returns the number of token types. The compiler sizes its rule
// table with it.
func Count() int {
	return int(typeCount)
}

// IsKeyword returns true if the token type is a keyword.
func (t Type) IsKeyword() bool {
	return t >= ELSE && t <= YIELD
}

// StartsStatement reports whether a token of this type begins a statement.
// Used as a resynchronization point after a syntax error.
func (t Type) StartsStatement() bool {
	switch t {
	case LET, VAR, FOR, IF, WHILE, PRINT, RETURN, WAIT, YIELD, INCLUDE:
		return true
	}
	return false
}
