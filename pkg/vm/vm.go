// Package vm executes compiled bullet scripts.
// A VM runs one script incrementally: Resume executes until the script
// yields, finishes or faults, and a later Resume continues after the
// yield point. Each VM is single-threaded; run many VMs for many
// scripts. VMs may share a NativeSet and compiled functions.
package vm

import (
	"io"
	"log/slog"
	"os"

	"github.com/zurustar/danmaku/pkg/logger"
	"github.com/zurustar/danmaku/pkg/value"
)

const (
	// StackMax is the capacity of the value stack.
	StackMax = 256
	// FramesMax is the maximum call depth, the script frame included.
	FramesMax = 16
)

// State is the lifecycle state of a VM.
type State int

const (
	Ready State = iota
	Running
	Suspended
	Completed
	Faulted
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Completed:
		return "completed"
	case Faulted:
		return "faulted"
	}
	return "unknown"
}

// Status is the outcome of one Resume.
type Status int

const (
	// StatusSuccess means the script ran to its end.
	StatusSuccess Status = iota
	// StatusYielded means the script suspended at a yield or wait.
	StatusYielded
	// StatusError means the script faulted or could not be resumed.
	StatusError
)

// String returns the name of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusYielded:
		return "yielded"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// CallFrame is one active function invocation. base is the stack index
// of local slot 0; the callee value sits at base-1. access is the frame
// index of the lexically enclosing invocation, -1 for the script.
type CallFrame struct {
	fn     *value.FunctionObject
	ip     int
	base   int
	access int
}

// VM is a stack machine executing one loaded script.
type VM struct {
	stack [StackMax]value.Value
	sp    int

	frames     [FramesMax]CallFrame
	frameCount int

	globals map[*value.StringObject]value.Value
	strings *value.Interner
	merged  map[*value.Interner]bool

	// heap holds every object allocated while the program runs. It is
	// released as a whole at Load and Reset.
	heap []value.Object

	natives *NativeSet
	state   State
	fault   *RuntimeError

	host  any
	out   io.Writer
	trace bool
	log   *slog.Logger
}

// Option is a functional option for configuring the VM.
type Option func(*VM)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(vm *VM) {
		vm.log = log
	}
}

// WithOutput sets where print writes. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) {
		vm.out = w
	}
}

// WithHost attaches a host object that natives can reach through
// NativeContext.Host.
func WithHost(host any) Option {
	return func(vm *VM) {
		vm.host = host
	}
}

// WithTrace logs every executed instruction at debug level.
func WithTrace(enabled bool) Option {
	return func(vm *VM) {
		vm.trace = enabled
	}
}

// New creates an empty VM. natives may be nil.
func New(natives *NativeSet, opts ...Option) *VM {
	if natives == nil {
		natives = NewNativeSet()
	}
	vm := &VM{
		natives: natives,
		out:     os.Stdout,
		log:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.clear()
	return vm
}

func (vm *VM) clear() {
	for i := 0; i < vm.sp; i++ {
		vm.stack[i] = value.Value{}
	}
	vm.sp = 0
	vm.frameCount = 0
	vm.globals = make(map[*value.StringObject]value.Value)
	vm.strings = value.NewInterner()
	vm.merged = make(map[*value.Interner]bool)
	vm.heap = nil
	vm.state = Ready
	vm.fault = nil
}

// Load prepares fn, a compiled script, to run from its first
// instruction. Anything from a previous program is discarded.
func (vm *VM) Load(fn *value.FunctionObject) error {
	if fn == nil {
		return ErrNoProgram
	}
	vm.clear()

	scriptStrings := fn.Program.Literals.Strings()
	vm.strings = scriptStrings.Clone()
	vm.merged[scriptStrings] = true

	for _, name := range vm.natives.Names() {
		nf, _ := vm.natives.Lookup(name)
		obj := &value.NativeFunctionObject{Name: name, Fn: nf}
		vm.heap = append(vm.heap, obj)
		vm.globals[vm.intern(name)] = value.Obj(obj)
	}

	vm.push(value.Obj(fn))
	vm.frames[0] = CallFrame{fn: fn, base: 1, access: -1}
	vm.frameCount = 1

	vm.log.Debug("program loaded", "function", fn.DisplayName(), "natives", vm.natives.Len(), "code", fn.Program.Len())
	return nil
}

// Reset discards the loaded program, its globals and its heap. The
// native set is kept for the next Load.
func (vm *VM) Reset() {
	vm.clear()
}

// Resume runs the program until it yields, ends or faults.
func (vm *VM) Resume() (status Status, err error) {
	if vm.state != Ready && vm.state != Suspended {
		return StatusError, ErrNotResumable
	}
	if vm.frameCount == 0 {
		return StatusError, ErrNoProgram
	}

	vm.state = Running
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(*RuntimeError)
			if !ok {
				rerr = NewRuntimeError(ErrorInternal, panicMessage(r))
			}
			status, err = StatusError, vm.fail(rerr)
		}
	}()

	status, rerr := vm.run()
	if rerr != nil {
		return StatusError, vm.fail(rerr)
	}
	return status, nil
}

// fail records a fault, attaching the line and the call stack.
func (vm *VM) fail(e *RuntimeError) error {
	e.Trace = e.Trace[:0]
	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		e.Trace = append(e.Trace, TraceEntry{
			Function: frame.fn.DisplayName(),
			Line:     frame.fn.Program.LineAt(frame.ip - 1),
		})
	}
	if e.Line < 0 && len(e.Trace) > 0 {
		e.Line = e.Trace[0].Line
	}
	vm.state = Faulted
	vm.fault = e
	vm.log.Error("runtime error", "type", e.Type, "message", e.Message, "trace", e.StackTrace())
	return e
}

// State returns the lifecycle state.
func (vm *VM) State() State {
	return vm.state
}

// Fault returns the error that faulted the VM, or nil.
func (vm *VM) Fault() *RuntimeError {
	return vm.fault
}

// HeapSize returns the number of objects allocated since Load.
func (vm *VM) HeapSize() int {
	return len(vm.heap)
}

// StackDepth returns the number of values on the stack.
func (vm *VM) StackDepth() int {
	return vm.sp
}

// FrameDepth returns the number of active call frames.
func (vm *VM) FrameDepth() int {
	return vm.frameCount
}

// Global returns the value of a global variable.
func (vm *VM) Global(name string) (value.Value, bool) {
	if key, ok := vm.strings.Lookup(name); ok {
		if v, ok := vm.globals[key]; ok {
			return v, true
		}
	}
	key, ok := vm.findGlobal(&value.StringObject{Chars: name, Hash: value.HashString(name)})
	if !ok {
		return value.Value{}, false
	}
	return vm.globals[key], true
}

// Host implements value.NativeContext.
func (vm *VM) Host() any {
	return vm.host
}

// Intern implements value.NativeContext.
func (vm *VM) Intern(s string) *value.StringObject {
	return vm.intern(s)
}

// Logger implements value.NativeContext.
func (vm *VM) Logger() *slog.Logger {
	return vm.log
}

func (vm *VM) intern(s string) *value.StringObject {
	obj, created := vm.strings.Insert(s)
	if created {
		vm.heap = append(vm.heap, obj)
	}
	return obj
}

// findGlobal resolves a name whose object is not the key the global was
// stored under, as happens for strings of a function compiled separately.
func (vm *VM) findGlobal(name *value.StringObject) (*value.StringObject, bool) {
	if _, ok := vm.globals[name]; ok {
		return name, true
	}
	for key := range vm.globals {
		if key.Hash == name.Hash && key.Chars == name.Chars {
			return key, true
		}
	}
	return nil, false
}

func (vm *VM) push(v value.Value) {
	if vm.sp >= StackMax {
		panic(NewStackOverflowError())
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() value.Value {
	vm.sp--
	v := vm.stack[vm.sp]
	vm.stack[vm.sp] = value.Value{}
	return v
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.sp-1-distance]
}
