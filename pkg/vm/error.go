package vm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of runtime error.
type ErrorType string

const (
	ErrorStackOverflow     ErrorType = "STACK_OVERFLOW"
	ErrorCallStackOverflow ErrorType = "CALL_STACK_OVERFLOW"
	ErrorTypeMismatch      ErrorType = "TYPE_MISMATCH"
	ErrorUndefinedVar      ErrorType = "UNDEFINED_VARIABLE"
	ErrorArity             ErrorType = "ARITY_MISMATCH"
	ErrorNotCallable       ErrorType = "NOT_CALLABLE"
	ErrorDivisionByZero    ErrorType = "DIVISION_BY_ZERO"
	ErrorInvalidAccess     ErrorType = "INVALID_ACCESS"
	ErrorNative            ErrorType = "NATIVE_ERROR"
	ErrorInternal          ErrorType = "INTERNAL_ERROR"
)

var (
	// ErrNotResumable is returned by Resume when the VM is not Ready or
	// Suspended.
	ErrNotResumable = errors.New("vm is not resumable")

	// ErrNoProgram is returned by Resume before Load or after Reset.
	ErrNoProgram = errors.New("no program loaded")
)

// TraceEntry is one call frame of a stack trace.
type TraceEntry struct {
	Function string
	Line     int
}

// RuntimeError is a fault raised while executing a script. Trace lists
// the active frames innermost first.
type RuntimeError struct {
	Type    ErrorType
	Message string
	Line    int // line of the faulting instruction, -1 if unknown
	Trace   []TraceEntry
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Line >= 0 {
		return fmt.Sprintf("[%s] %s at line %d", e.Type, e.Message, e.Line)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// StackTrace formats the trace one frame per line.
//
//	[line 3] in spin()
//	[line 9] in script
func (e *RuntimeError) StackTrace() string {
	var sb strings.Builder
	for i, entry := range e.Trace {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "[line %d] in %s", entry.Line, entry.Function)
	}
	return sb.String()
}

// NewRuntimeError creates a new RuntimeError.
func NewRuntimeError(errType ErrorType, message string) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: message,
		Line:    -1,
	}
}

// NewRuntimeErrorWithLine creates a new RuntimeError with line information.
func NewRuntimeErrorWithLine(errType ErrorType, message string, line int) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: message,
		Line:    line,
	}
}

// NewArityError reports a call with the wrong number of arguments.
func NewArityError(expected, got int) *RuntimeError {
	return NewRuntimeError(ErrorArity, fmt.Sprintf("Expected %d arguments but got %d.", expected, got))
}

// NewUndefinedVariableError reports a read or write of an unknown global.
func NewUndefinedVariableError(name string) *RuntimeError {
	return NewRuntimeError(ErrorUndefinedVar, fmt.Sprintf("Undefined variable '%s'.", name))
}

// NewDivisionByZeroError reports an integer division or modulo by zero.
func NewDivisionByZeroError() *RuntimeError {
	return NewRuntimeError(ErrorDivisionByZero, "Division by zero.")
}

// NewStackOverflowError reports a full value stack.
func NewStackOverflowError() *RuntimeError {
	return NewRuntimeError(ErrorStackOverflow, "Stack overflow.")
}

// NewCallStackOverflowError reports a full call frame stack.
func NewCallStackOverflowError() *RuntimeError {
	return NewRuntimeError(ErrorCallStackOverflow, fmt.Sprintf("Call stack overflow: more than %d frames.", FramesMax))
}

// typeError creates a type mismatch error.
func typeError(format string, args ...any) *RuntimeError {
	return NewRuntimeError(ErrorTypeMismatch, fmt.Sprintf(format, args...))
}
