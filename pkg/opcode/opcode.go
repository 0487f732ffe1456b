// Package opcode defines the instruction set for the bullet script virtual machine.
// This package is the foundation that both the compiler and VM depend on.
// The compiler emits opcodes into a byte buffer, and the VM decodes them.
//
// Encoding: literal indexes are 1 byte, jump offsets are 2 bytes
// big-endian, local access is a slot byte followed by an access-hop byte.
package opcode

// Op is a single bytecode instruction.
type Op byte

// Opcodes for all supported operations.
const (
	// Constant pushes a literal.
	// Operands: [index]
	Constant Op = iota

	// True pushes boolean true.
	True

	// False pushes boolean false.
	False

	// Pop discards the top of the stack.
	Pop

	// GetLocal pushes a local found hops access links up from the current frame.
	// Operands: [slot, hops]
	GetLocal

	// SetLocal stores the top of the stack into a local, leaving the value pushed.
	// Operands: [slot, hops]
	SetLocal

	// GetGlobal pushes a global named by a string literal.
	// Operands: [index]
	GetGlobal

	// DefineGlobal pops the top of the stack into a new global.
	// Operands: [index]
	DefineGlobal

	// SetGlobal stores the top of the stack into an existing global.
	// Operands: [index]
	SetGlobal

	// GetField replaces a vector or point on the stack by one of its members.
	// Operands: [field]
	GetField

	// SetLocalField writes a numeric member of a vector/point local in place.
	// Operands: [slot, hops, field]
	SetLocalField

	// SetGlobalField writes a numeric member of a vector/point global in place.
	// Operands: [index, field]
	SetGlobalField

	// Equal pops two values and pushes their equality.
	Equal

	// Greater pops two numbers and pushes a > b.
	Greater

	// Less pops two numbers and pushes a < b.
	Less

	// Add pops two values and pushes their sum (numbers, strings, vectors, points).
	Add

	// Subtract pops two values and pushes a - b.
	Subtract

	// Multiply pops two values and pushes a * b.
	Multiply

	// Divide pops two values and pushes a / b.
	Divide

	// Modulo pops two integers and pushes a % b.
	Modulo

	// Not negates a boolean.
	Not

	// Negate negates a number or vector.
	Negate

	// Vector pops magnitude and angle and pushes a polar vector.
	Vector

	// Point pops x and y and pushes a point.
	Point

	// Print pops and prints a value.
	Print

	// Jump moves the instruction pointer forward.
	// Operands: [offset_hi, offset_lo]
	Jump

	// JumpIfFalse moves forward when the top of the stack is false. The value is not popped.
	// Operands: [offset_hi, offset_lo]
	JumpIfFalse

	// Loop moves the instruction pointer backward.
	// Operands: [offset_hi, offset_lo]
	Loop

	// Call invokes the callee found below argc arguments.
	// Operands: [argc]
	Call

	// Return pops the result and leaves the current frame.
	Return

	// Yield suspends the VM. Execution resumes at the next instruction.
	Yield

	// End terminates the top-level script.
	End

	opCount
)

// Field selects a member of a vector or point value.
type Field byte

// Member selectors for GetField/SetLocalField/SetGlobalField.
const (
	FieldR Field = iota // vector magnitude
	FieldT              // vector angle in degrees
	FieldX              // point x
	FieldY              // point y
)

// FieldByName maps a member name to its selector.
func FieldByName(name string) (Field, bool) {
	switch name {
	case "r":
		return FieldR, true
	case "t":
		return FieldT, true
	case "x":
		return FieldX, true
	case "y":
		return FieldY, true
	}
	return 0, false
}

// String returns the member name.
func (f Field) String() string {
	switch f {
	case FieldR:
		return "r"
	case FieldT:
		return "t"
	case FieldX:
		return "x"
	case FieldY:
		return "y"
	}
	return "?"
}

// IsVectorField reports whether the selector addresses a vector member.
func (f Field) IsVectorField() bool {
	return f == FieldR || f == FieldT
}

var names = [...]string{
	Constant:       "CONSTANT",
	True:           "TRUE",
	False:          "FALSE",
	Pop:            "POP",
	GetLocal:       "GET_LOCAL",
	SetLocal:       "SET_LOCAL",
	GetGlobal:      "GET_GLOBAL",
	DefineGlobal:   "DEFINE_GLOBAL",
	SetGlobal:      "SET_GLOBAL",
	GetField:       "GET_FIELD",
	SetLocalField:  "SET_LOCAL_FIELD",
	SetGlobalField: "SET_GLOBAL_FIELD",
	Equal:          "EQUAL",
	Greater:        "GREATER",
	Less:           "LESS",
	Add:            "ADD",
	Subtract:       "SUBTRACT",
	Multiply:       "MULTIPLY",
	Divide:         "DIVIDE",
	Modulo:         "MODULO",
	Not:            "NOT",
	Negate:         "NEGATE",
	Vector:         "VECTOR",
	Point:          "POINT",
	Print:          "PRINT",
	Jump:           "JUMP",
	JumpIfFalse:    "JUMP_IF_FALSE",
	Loop:           "LOOP",
	Call:           "CALL",
	Return:         "RETURN",
	Yield:          "YIELD",
	End:            "END",
}

// String returns the mnemonic of the opcode.
func (op Op) String() string {
	if op < opCount {
		return names[op]
	}
	return "UNKNOWN"
}

// OperandWidth returns the number of operand bytes following the opcode.
func (op Op) OperandWidth() int {
	switch op {
	case Constant, GetGlobal, DefineGlobal, SetGlobal, GetField, Call:
		return 1
	case GetLocal, SetLocal, SetGlobalField, Jump, JumpIfFalse, Loop:
		return 2
	case SetLocalField:
		return 3
	}
	return 0
}

// Valid reports whether op is a known opcode.
func (op Op) Valid() bool {
	return op < opCount
}
