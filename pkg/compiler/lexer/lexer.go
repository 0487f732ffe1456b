// Package lexer provides lexical analysis for bullet scripts.
package lexer

import (
	"github.com/zurustar/danmaku/pkg/compiler/token"
)

// Lexer tokenizes bullet script source code on demand.
// Tokens reference the source string and never copy it.
type Lexer struct {
	input   string
	start   int // start of the current lexeme
	current int // next byte to read
	line    int // current line number
	column  int // column of current (1-indexed)

	startLine   int
	startColumn int
}

// New creates a new Lexer.
func New(input string) *Lexer {
	return &Lexer{
		input:  input,
		line:   1,
		column: 1,
	}
}

// Next returns the next token. After the end of input it returns EOF
// forever. Lexical problems are reported as ERROR tokens whose Lexeme is
// the message; it is up to the caller to decide how to react.
func (l *Lexer) Next() token.Token {
	l.skipWhitespace()

	l.start = l.current
	l.startLine = l.line
	l.startColumn = l.column

	if l.isAtEnd() {
		return l.makeToken(token.EOF)
	}

	ch := l.advance()

	if isAlpha(ch) {
		return l.identifier()
	}
	if isDigit(ch) {
		return l.number()
	}

	switch ch {
	case '(':
		return l.makeToken(token.LPAREN)
	case ')':
		return l.makeToken(token.RPAREN)
	case '{':
		return l.makeToken(token.LBRACE)
	case '}':
		return l.makeToken(token.RBRACE)
	case '.':
		return l.makeToken(token.DOT)
	case ',':
		return l.makeToken(token.COMMA)
	case ';':
		return l.makeToken(token.SEMICOLON)
	case '\\':
		return l.makeToken(token.BACKSLASH)
	case '+':
		return l.makeToken(token.PLUS)
	case '*':
		return l.makeToken(token.STAR)
	case '/':
		return l.makeToken(token.SLASH)
	case '%':
		return l.makeToken(token.PERCENT)
	case '-':
		if l.match('>') {
			return l.makeToken(token.ARROW)
		}
		return l.makeToken(token.MINUS)
	case '!':
		if l.match('=') {
			return l.makeToken(token.NOT_EQ)
		}
		return l.makeToken(token.BANG)
	case ':':
		if l.match('=') {
			return l.makeToken(token.ASSIGN)
		}
	case '=':
		if l.match('=') {
			return l.makeToken(token.EQ)
		}
	case '<':
		if l.match('<') {
			return l.makeToken(token.VEC_OPEN)
		}
		if l.match('=') {
			return l.makeToken(token.LTE)
		}
		return l.makeToken(token.LT)
	case '>':
		if l.match('>') {
			return l.makeToken(token.VEC_CLOSE)
		}
		if l.match('=') {
			return l.makeToken(token.GTE)
		}
		return l.makeToken(token.GT)
	case '[':
		if l.match('[') {
			return l.makeToken(token.PT_OPEN)
		}
	case ']':
		if l.match(']') {
			return l.makeToken(token.PT_CLOSE)
		}
	case '&':
		if l.match('&') {
			return l.makeToken(token.AND)
		}
	case '|':
		if l.match('|') {
			return l.makeToken(token.OR)
		}
	case '"':
		return l.string()
	}

	return l.errorToken("Unexpected character.")
}

// Source returns the source code the lexer reads from.
func (l *Lexer) Source() string {
	return l.input
}

func (l *Lexer) isAtEnd() bool {
	return l.current >= len(l.input)
}

func (l *Lexer) advance() byte {
	ch := l.input[l.current]
	l.current++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.input[l.current]
}

func (l *Lexer) peekNext() byte {
	if l.current+1 >= len(l.input) {
		return 0
	}
	return l.input[l.current+1]
}

func (l *Lexer) match(expected byte) bool {
	if l.isAtEnd() || l.input[l.current] != expected {
		return false
	}
	l.advance()
	return true
}

// skipWhitespace skips blanks, newlines and both comment forms.
func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() {
		switch l.peek() {
		case ' ', '\t', '\r', '\n':
			l.advance()
		case '#':
			// Line comment
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		case '~':
			// Block comment; an unterminated one runs to end of input
			l.advance()
			for !l.isAtEnd() && l.peek() != '~' {
				l.advance()
			}
			if !l.isAtEnd() {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) makeToken(t token.Type) token.Token {
	return token.Token{
		Type:   t,
		Lexeme: l.input[l.start:l.current],
		Line:   l.startLine,
		Column: l.startColumn,
	}
}

func (l *Lexer) errorToken(message string) token.Token {
	return token.Token{
		Type:   token.ERROR,
		Lexeme: message,
		Line:   l.startLine,
		Column: l.startColumn,
	}
}

// string reads a string literal. No escape processing is done.
func (l *Lexer) string() token.Token {
	for !l.isAtEnd() && l.peek() != '"' {
		l.advance()
	}
	if l.isAtEnd() {
		return l.errorToken("Unterminated string.")
	}
	l.advance() // closing quote
	return l.makeToken(token.STRING)
}

// number reads an integer or float literal. A float needs at least one
// digit after the decimal point.
func (l *Lexer) number() token.Token {
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance() // consume '.'
		for isDigit(l.peek()) {
			l.advance()
		}
		return l.makeToken(token.FLOAT)
	}
	return l.makeToken(token.INT)
}

func (l *Lexer) identifier() token.Token {
	for isAlpha(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}
	return l.makeToken(l.identifierType())
}

// identifierType classifies the current lexeme with a small trie keyed
// on the first one or two characters.
func (l *Lexer) identifierType() token.Type {
	lexeme := l.input[l.start:l.current]
	switch lexeme[0] {
	case 'e':
		return l.checkKeyword(1, "lse", token.ELSE)
	case 'f':
		if len(lexeme) > 1 {
			switch lexeme[1] {
			case 'a':
				return l.checkKeyword(2, "lse", token.FALSE)
			case 'o':
				return l.checkKeyword(2, "r", token.FOR)
			}
		}
	case 'i':
		if len(lexeme) > 1 {
			switch lexeme[1] {
			case 'f':
				return l.checkKeyword(2, "", token.IF)
			case 'n':
				return l.checkKeyword(2, "clude", token.INCLUDE)
			}
		}
	case 'l':
		return l.checkKeyword(1, "et", token.LET)
	case 'p':
		return l.checkKeyword(1, "rint", token.PRINT)
	case 'r':
		return l.checkKeyword(1, "eturn", token.RETURN)
	case 't':
		return l.checkKeyword(1, "rue", token.TRUE)
	case 'v':
		return l.checkKeyword(1, "ar", token.VAR)
	case 'w':
		if len(lexeme) > 1 {
			switch lexeme[1] {
			case 'a':
				return l.checkKeyword(2, "it", token.WAIT)
			case 'h':
				return l.checkKeyword(2, "ile", token.WHILE)
			}
		}
	case 'y':
		return l.checkKeyword(1, "ield", token.YIELD)
	}
	return token.IDENT
}

func (l *Lexer) checkKeyword(offset int, rest string, t token.Type) token.Type {
	lexeme := l.input[l.start:l.current]
	if len(lexeme) == offset+len(rest) && lexeme[offset:] == rest {
		return t
	}
	return token.IDENT
}

// isAlpha checks if a character can start an identifier.
func isAlpha(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

// isDigit checks if a character is a digit.
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
