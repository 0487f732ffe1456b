package compiler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/danmaku/pkg/opcode"
)

// TestPropertyCompileTotal checks that compiling arbitrary input never
// panics and yields exactly one of a function or errors.
func TestPropertyCompileTotal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("compile returns a function xor errors", prop.ForAll(
		func(src string) bool {
			fn, errs := Compile(src)
			return (fn == nil) == (len(errs) > 0)
		},
		gen.AnyString(),
	))

	tokens := []string{
		"let", "var", "x", "y", ":=", "1", "2.5", `"s"`, "+", "-", "*", "/", "%",
		"(", ")", "{", "}", ";", ",", ".", "<<", ">>", "[[", "]]", "\\", "->",
		"if", "else", "while", "for", "wait", "yield", "print", "return", "&&", "||",
	}
	properties.Property("token soup never panics", prop.ForAll(
		func(picks []int) bool {
			parts := make([]string, len(picks))
			for i, p := range picks {
				parts[i] = tokens[p%len(tokens)]
			}
			fn, errs := Compile(strings.Join(parts, " "))
			return (fn == nil) == (len(errs) > 0)
		},
		gen.SliceOf(gen.IntRange(0, len(tokens)-1)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// TestPropertyCompileArithmetic checks that well-formed arithmetic always
// compiles into a program ending with PRINT END and a line per byte.
func TestPropertyCompileArithmetic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	ops := []string{"+", "-", "*", "/", "==", "<", ">=", "&&", "||"}
	properties.Property("binary chains compile", prop.ForAll(
		func(operands []int32, opIdx []int) bool {
			var sb strings.Builder
			sb.WriteString("print 0")
			for i, n := range operands {
				o := ops[0]
				if len(opIdx) > 0 {
					o = ops[opIdx[i%len(opIdx)]%len(ops)]
				}
				fmt.Fprintf(&sb, " %s (%d)", o, n&0xffff)
			}
			sb.WriteString(";")

			fn, errs := Compile(sb.String())
			if len(errs) > 0 {
				return false
			}
			code := fn.Program.Code
			n := len(code)
			return n >= 2 &&
				code[n-2] == byte(opcode.Print) &&
				code[n-1] == byte(opcode.End) &&
				len(fn.Program.Lines) == n
		},
		gen.SliceOfN(20, gen.Int32()),
		gen.SliceOf(gen.IntRange(0, len(ops)-1)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
