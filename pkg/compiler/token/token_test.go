package token

import "testing"

func TestType_String(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{VEC_OPEN, "<<"},
		{PT_CLOSE, "]]"},
		{ARROW, "->"},
		{INCLUDE, "include"},
		{IDENT, "IDENT"},
		{Type(-1), "UNKNOWN"},
		{Type(Count()), "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.typ.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestType_IsKeyword(t *testing.T) {
	keywords := []Type{ELSE, FALSE, FOR, IF, INCLUDE, LET, PRINT, RETURN, TRUE, VAR, WAIT, WHILE, YIELD}
	for _, k := range keywords {
		if !k.IsKeyword() {
			t.Errorf("%s should be a keyword", k)
		}
	}
	for _, k := range []Type{IDENT, STRING, LPAREN, EOF, ERROR} {
		if k.IsKeyword() {
			t.Errorf("%s should not be a keyword", k)
		}
	}
}

func TestType_StartsStatement(t *testing.T) {
	for _, k := range []Type{LET, VAR, FOR, IF, WHILE, PRINT, RETURN, WAIT, YIELD, INCLUDE} {
		if !k.StartsStatement() {
			t.Errorf("%s should start a statement", k)
		}
	}
	for _, k := range []Type{ELSE, TRUE, IDENT, LBRACE} {
		if k.StartsStatement() {
			t.Errorf("%s should not start a statement", k)
		}
	}
}
