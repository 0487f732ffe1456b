package value

import (
	"fmt"
	"io"

	"github.com/zurustar/danmaku/pkg/opcode"
)

// Disassemble writes a listing of fn and every function literal nested
// in it.
func Disassemble(w io.Writer, fn *FunctionObject) {
	p := fn.Program
	fmt.Fprintf(w, "== %s ==\n", fn.DisplayName())
	for offset := 0; offset < p.Len(); {
		offset = DisassembleInstruction(w, p, offset)
	}
	for i := 0; i < p.Literals.Len(); i++ {
		if nested, ok := p.Literals.Get(i).AsFunction(); ok {
			fmt.Fprintln(w)
			Disassemble(w, nested)
		}
	}
}

// DisassembleInstruction writes the instruction at offset and returns the
// offset of the next one.
func DisassembleInstruction(w io.Writer, p *Program, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && p.Lines[offset] == p.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", p.Lines[offset])
	}

	op := opcode.Op(p.Code[offset])
	if !op.Valid() {
		fmt.Fprintf(w, "Unknown opcode %d\n", op)
		return offset + 1
	}
	if offset+op.OperandWidth() >= len(p.Code) {
		fmt.Fprintf(w, "%-16s <truncated>\n", op)
		return len(p.Code)
	}

	code := p.Code
	switch op {
	case opcode.Constant, opcode.GetGlobal, opcode.DefineGlobal, opcode.SetGlobal:
		idx := int(code[offset+1])
		fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, p.Literals.Get(idx))
	case opcode.GetLocal, opcode.SetLocal:
		fmt.Fprintf(w, "%-16s %4d ^%d\n", op, code[offset+1], code[offset+2])
	case opcode.GetField:
		fmt.Fprintf(w, "%-16s .%s\n", op, opcode.Field(code[offset+1]))
	case opcode.SetLocalField:
		fmt.Fprintf(w, "%-16s %4d ^%d .%s\n", op, code[offset+1], code[offset+2], opcode.Field(code[offset+3]))
	case opcode.SetGlobalField:
		idx := int(code[offset+1])
		fmt.Fprintf(w, "%-16s %4d '%s' .%s\n", op, idx, p.Literals.Get(idx), opcode.Field(code[offset+2]))
	case opcode.Call:
		fmt.Fprintf(w, "%-16s %4d\n", op, code[offset+1])
	case opcode.Jump, opcode.JumpIfFalse:
		jump := int(code[offset+1])<<8 | int(code[offset+2])
		fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, offset+3+jump)
	case opcode.Loop:
		jump := int(code[offset+1])<<8 | int(code[offset+2])
		fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, offset+3-jump)
	default:
		fmt.Fprintf(w, "%s\n", op)
	}
	return offset + 1 + op.OperandWidth()
}
