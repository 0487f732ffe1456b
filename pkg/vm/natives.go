package vm

import (
	"fmt"

	"github.com/zurustar/danmaku/pkg/value"
)

// NativeSet is a table of host functions registered as globals when a
// program is loaded. A set is read-only once VMs use it and may be
// shared between them.
type NativeSet struct {
	names []string
	fns   map[string]value.NativeFn
}

// NewNativeSet creates an empty set.
func NewNativeSet() *NativeSet {
	return &NativeSet{fns: make(map[string]value.NativeFn)}
}

// Add registers fn under name, replacing an earlier registration.
func (s *NativeSet) Add(name string, fn value.NativeFn) {
	if _, exists := s.fns[name]; !exists {
		s.names = append(s.names, name)
	}
	s.fns[name] = fn
}

// Merge adds every function of other.
func (s *NativeSet) Merge(other *NativeSet) {
	if other == nil {
		return
	}
	for _, name := range other.names {
		s.Add(name, other.fns[name])
	}
}

// Lookup returns the function registered under name.
func (s *NativeSet) Lookup(name string) (value.NativeFn, bool) {
	fn, ok := s.fns[name]
	return fn, ok
}

// Names returns the registered names in registration order.
func (s *NativeSet) Names() []string {
	return s.names
}

// Len returns the number of registered functions.
func (s *NativeSet) Len() int {
	return len(s.names)
}

// checkArity is used by natives to validate their argument count.
func checkArity(name string, args []value.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s expects %d arguments but got %d", name, n, len(args))
	}
	return nil
}

func argNumber(name string, args []value.Value, i int) (float32, error) {
	if !args[i].IsNumber() {
		return 0, fmt.Errorf("%s: argument %d must be a number, got %s", name, i+1, args[i].TypeName())
	}
	return args[i].Number(), nil
}

func argPoint(name string, args []value.Value, i int) (value.Point, error) {
	if !args[i].IsPoint() {
		return value.Point{}, fmt.Errorf("%s: argument %d must be a point, got %s", name, i+1, args[i].TypeName())
	}
	return args[i].AsPoint(), nil
}

func argVector(name string, args []value.Value, i int) (value.Vector, error) {
	if !args[i].IsVector() {
		return value.Vector{}, fmt.Errorf("%s: argument %d must be a vector, got %s", name, i+1, args[i].TypeName())
	}
	return args[i].AsVector(), nil
}

// DefaultNatives returns a new set holding the builtin math, conversion
// and geometry functions.
func DefaultNatives() *NativeSet {
	s := NewNativeSet()
	registerMathBuiltins(s)
	registerStringBuiltins(s)
	return s
}
