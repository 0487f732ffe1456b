package value

import (
	"errors"
)

// MaxLiterals is the capacity of a literal pool; indexes fit in one byte.
const MaxLiterals = 256

// ErrTooManyLiterals is returned by Literals.Add when the pool is full.
var ErrTooManyLiterals = errors.New("too many constants in one chunk")

// Program is the compiled body of one function: bytecode, a source line
// for every byte of it, and the literal pool the bytecode indexes into.
type Program struct {
	Code     []byte
	Lines    []int
	Literals *Literals
}

// NewProgram creates an empty program. The interner is owned by the
// program when ownsStrings is true (the script) and borrowed from the
// enclosing program otherwise (nested functions).
func NewProgram(strings *Interner, ownsStrings bool) *Program {
	if strings == nil {
		strings = NewInterner()
		ownsStrings = true
	}
	return &Program{
		Code:  make([]byte, 0, 64),
		Lines: make([]int, 0, 64),
		Literals: &Literals{
			strings: strings,
			owned:   ownsStrings,
		},
	}
}

// Write appends a byte with the source line it came from.
func (p *Program) Write(b byte, line int) {
	p.Code = append(p.Code, b)
	p.Lines = append(p.Lines, line)
}

// Len returns the number of bytes written.
func (p *Program) Len() int {
	return len(p.Code)
}

// Truncate drops everything written after offset n.
func (p *Program) Truncate(n int) {
	if n < 0 || n > len(p.Code) {
		return
	}
	p.Code = p.Code[:n]
	p.Lines = p.Lines[:n]
}

// LineAt returns the source line of the byte at offset, or 0.
func (p *Program) LineAt(offset int) int {
	if offset < 0 || offset >= len(p.Lines) {
		return 0
	}
	return p.Lines[offset]
}

// Literals is the constant pool of a program.
type Literals struct {
	values  []Value
	strings *Interner
	owned   bool
}

// Add appends a literal and returns its index. Equal literals are shared,
// so the same name or number used many times costs one slot.
func (l *Literals) Add(v Value) (int, error) {
	for i, existing := range l.values {
		if Equal(existing, v) {
			return i, nil
		}
	}
	if len(l.values) >= MaxLiterals {
		return 0, ErrTooManyLiterals
	}
	l.values = append(l.values, v)
	return len(l.values) - 1, nil
}

// Get returns the literal at index i.
func (l *Literals) Get(i int) Value {
	return l.values[i]
}

// Len returns the number of literals.
func (l *Literals) Len() int {
	return len(l.values)
}

// Strings returns the interner string literals are deduplicated in.
func (l *Literals) Strings() *Interner {
	return l.strings
}

// OwnsStrings reports whether the interner belongs to this pool rather
// than to an enclosing function's pool.
func (l *Literals) OwnsStrings() bool {
	return l.owned
}
