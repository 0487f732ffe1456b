package vm

import (
	"bytes"
	"fmt"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/danmaku/pkg/compiler/compiler"
)

// runQuiet compiles and runs source to completion, returning what it
// printed. ok is false when compilation or execution fails.
func runQuiet(source string) (string, bool) {
	fn, errs := compiler.Compile(source)
	if len(errs) > 0 {
		return "", false
	}
	out := &bytes.Buffer{}
	vm := New(DefaultNatives(), WithOutput(out), WithLogger(quietLogger()))
	if err := vm.Load(fn); err != nil {
		return "", false
	}
	for i := 0; i < 10000; i++ {
		status, _ := vm.Resume()
		switch status {
		case StatusSuccess:
			return out.String(), true
		case StatusError:
			return out.String(), false
		}
	}
	return out.String(), false
}

// TestPropertyIntegerArithmetic checks int32 arithmetic against Go.
func TestPropertyIntegerArithmetic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("add, subtract and multiply match Go", prop.ForAll(
		func(a, b int32) bool {
			src := fmt.Sprintf("let a := %d; let b := %d; print a + b; print a - b; print a * b;", a, b)
			got, ok := runQuiet(src)
			want := fmt.Sprintf("%d\n%d\n%d\n", a+b, a-b, a*b)
			return ok && got == want
		},
		gen.Int32Range(-100000, 100000),
		gen.Int32Range(-100000, 100000),
	))

	properties.Property("division and modulo match Go", prop.ForAll(
		func(a, b int32) bool {
			if b == 0 {
				return true
			}
			src := fmt.Sprintf("print %d / %d; print %d %% %d;", a, b, a, b)
			got, ok := runQuiet(src)
			return ok && got == fmt.Sprintf("%d\n%d\n", a/b, a%b)
		},
		gen.Int32Range(-1000, 1000),
		gen.Int32Range(-50, 50),
	))

	properties.Property("comparisons agree with Go", prop.ForAll(
		func(a, b int32) bool {
			src := fmt.Sprintf("print %d < %d; print %d >= %d; print %d == %d;", a, b, a, b, a, b)
			got, ok := runQuiet(src)
			want := strconv.FormatBool(a < b) + "\n" + strconv.FormatBool(a >= b) + "\n" + strconv.FormatBool(a == b) + "\n"
			return ok && got == want
		},
		gen.Int32Range(-20, 20),
		gen.Int32Range(-20, 20),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// TestPropertyYieldCount checks that a script yields exactly as often as
// it executes yield, and that the stack is empty after it completes.
func TestPropertyYieldCount(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("n iterations yield n times", prop.ForAll(
		func(n int) bool {
			src := fmt.Sprintf("for (var i := 0; i < %d; i := i + 1) { let v := <<i, i>>; yield; }", n)
			fn, errs := compiler.Compile(src)
			if len(errs) > 0 {
				return false
			}
			vm := New(nil, WithLogger(quietLogger()))
			if err := vm.Load(fn); err != nil {
				return false
			}
			yields := 0
			for {
				status, _ := vm.Resume()
				if status != StatusYielded {
					return status == StatusSuccess && yields == n && vm.StackDepth() == 0
				}
				yields++
				if yields > n {
					return false
				}
			}
		},
		gen.IntRange(0, 40),
	))

	properties.Property("recursion depth below the frame limit succeeds", prop.ForAll(
		func(depth int) bool {
			src := fmt.Sprintf("let down := \\(n) -> { if (n == 0) { return 0; } return 1 + down(n - 1); }; print down(%d);", depth)
			got, ok := runQuiet(src)
			if depth < FramesMax-1 {
				return ok && got == fmt.Sprintf("%d\n", depth)
			}
			return !ok
		},
		gen.IntRange(0, FramesMax+4),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
