package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zurustar/danmaku/pkg/compiler/compiler"
)

// Compilation phases reported in CompileError.Phase.
const (
	PhaseLexer  = "lexer"
	PhaseParser = "parser"
)

// CompileError represents a compilation error with location information
// and the surrounding source lines.
type CompileError struct {
	// Phase is PhaseLexer for lexical errors and PhaseParser otherwise.
	Phase string

	// File is the script file name, empty when compiling a string.
	File string

	Message string

	// Line and Column are 1-indexed.
	Line   int
	Column int

	// Context holds up to 2 lines before and after the error line, with a
	// caret under the error column.
	Context string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	loc := fmt.Sprintf("line %d, column %d", e.Line, e.Column)
	if e.File != "" {
		loc = e.File + ": " + loc
	}
	if e.Context != "" {
		return fmt.Sprintf("%s error at %s: %s\n%s", e.Phase, loc, e.Message, e.Context)
	}
	return fmt.Sprintf("%s error at %s: %s", e.Phase, loc, e.Message)
}

// NewLexerError creates a CompileError for the lexer phase.
func NewLexerError(message string, line, column int) *CompileError {
	return &CompileError{
		Phase:   PhaseLexer,
		Message: message,
		Line:    line,
		Column:  column,
	}
}

// NewParserErrorWithContext creates a CompileError for the parser phase
// with source context.
func NewParserErrorWithContext(message string, line, column int, source string) *CompileError {
	return &CompileError{
		Phase:   PhaseParser,
		Message: message,
		Line:    line,
		Column:  column,
		Context: GenerateErrorContext(source, line, column),
	}
}

// fromCompilerError converts an error of the single-pass compiler.
func fromCompilerError(err error, source string) error {
	ce, ok := err.(*compiler.CompilerError)
	if !ok {
		return err
	}
	if ce.Lexical {
		e := NewLexerError(ce.Message, ce.Line, ce.Column)
		e.Context = GenerateErrorContext(source, ce.Line, ce.Column)
		return e
	}
	msg := ce.Message
	if ce.Where != "" {
		msg = strings.TrimPrefix(ce.Where, " ") + ": " + msg
	}
	return NewParserErrorWithContext(msg, ce.Line, ce.Column, source)
}

// GenerateErrorContext returns the lines around line with line numbers
// and a caret under column.
//
// Example output:
//
//	  2 | let x := 5;
//	  3 | let y := 10;
//	> 4 | let z := ;
//	    |          ^
//	  5 | print x;
//	  6 | print y;
func GenerateErrorContext(source string, line, column int) string {
	if source == "" || line <= 0 {
		return ""
	}

	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}

	first := max(line-3, 0)
	last := min(line+2, len(lines))
	width := len(strconv.Itoa(last))

	var buf strings.Builder
	for i := first; i < last; i++ {
		n := i + 1
		text := strings.TrimRight(lines[i], "\r")
		if n != line {
			fmt.Fprintf(&buf, "  %*d | %s\n", width, n, text)
			continue
		}
		fmt.Fprintf(&buf, "> %*d | %s\n", width, n, text)
		fmt.Fprintf(&buf, "  %*s | %s^\n", width, "", strings.Repeat(" ", max(column-1, 0)))
	}

	return buf.String()
}
