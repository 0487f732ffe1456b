package value

import (
	"fmt"
	"log/slog"
)

// ObjectType identifies the variant of a heap object.
type ObjectType uint8

// Heap object variants.
const (
	ObjString ObjectType = iota
	ObjFunction
	ObjNative
)

// String returns the name of the object type.
func (t ObjectType) String() string {
	switch t {
	case ObjString:
		return "string"
	case ObjFunction:
		return "function"
	case ObjNative:
		return "native function"
	}
	return "object"
}

// Object is a heap-allocated value.
type Object interface {
	Type() ObjectType
	String() string
}

// StringObject is an immutable, interned string. Two StringObjects with
// equal contents obtained from the same Interner are the same pointer.
type StringObject struct {
	Chars string
	Hash  uint32
}

// Type implements Object.
func (s *StringObject) Type() ObjectType { return ObjString }

// String implements Object.
func (s *StringObject) String() string { return s.Chars }

// FunctionObject is a compiled function or the top-level script.
// Depth is the static nesting level: 0 for the script, enclosing+1 for
// every function literal.
type FunctionObject struct {
	Name    string
	Arity   int
	Depth   int
	Program *Program
}

// NewFunction creates an empty function whose program uses the given
// interner for its string literals.
func NewFunction(name string, depth int, strings *Interner, ownsStrings bool) *FunctionObject {
	return &FunctionObject{
		Name:    name,
		Depth:   depth,
		Program: NewProgram(strings, ownsStrings),
	}
}

// Type implements Object.
func (f *FunctionObject) Type() ObjectType { return ObjFunction }

// String implements Object.
func (f *FunctionObject) String() string {
	if f.Depth == 0 {
		return "<script>"
	}
	if f.Name == "" {
		return "<fn>"
	}
	return fmt.Sprintf("<fn %s>", f.Name)
}

// DisplayName is used in stack traces.
func (f *FunctionObject) DisplayName() string {
	if f.Depth == 0 {
		return "script"
	}
	if f.Name == "" {
		return "<lambda>"
	}
	return f.Name + "()"
}

// NativeContext is what a native function sees of the VM calling it.
// Host is whatever the embedding application attached to the VM (for
// example the entity the script drives).
type NativeContext interface {
	Host() any
	Intern(s string) *StringObject
	Logger() *slog.Logger
}

// NativeFn is a host function callable from scripts. args aliases the
// VM stack and must not be retained.
type NativeFn func(ctx NativeContext, args []Value) (Value, error)

// NativeFunctionObject wraps a host function.
type NativeFunctionObject struct {
	Name string
	Fn   NativeFn
}

// Type implements Object.
func (n *NativeFunctionObject) Type() ObjectType { return ObjNative }

// String implements Object.
func (n *NativeFunctionObject) String() string {
	return fmt.Sprintf("<native fn %s>", n.Name)
}
