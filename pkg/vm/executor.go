package vm

import (
	"fmt"
	"strings"

	"github.com/zurustar/danmaku/pkg/opcode"
	"github.com/zurustar/danmaku/pkg/value"
)

// run is the dispatch loop. It returns when the script yields, ends or
// raises a runtime error.
func (vm *VM) run() (Status, *RuntimeError) {
	frame := &vm.frames[vm.frameCount-1]

	readByte := func() byte {
		b := frame.fn.Program.Code[frame.ip]
		frame.ip++
		return b
	}
	readShort := func() int {
		hi := int(frame.fn.Program.Code[frame.ip])
		lo := int(frame.fn.Program.Code[frame.ip+1])
		frame.ip += 2
		return hi<<8 | lo
	}
	readLiteral := func() value.Value {
		return frame.fn.Program.Literals.Get(int(readByte()))
	}
	readName := func() *value.StringObject {
		lit := readLiteral()
		s, ok := lit.AsString()
		if !ok {
			panic(NewRuntimeError(ErrorInternal, fmt.Sprintf("global name literal is %s", lit.TypeName())))
		}
		return s
	}

	for {
		if vm.trace {
			vm.traceInstruction(frame)
		}

		op := opcode.Op(readByte())
		switch op {
		case opcode.Constant:
			vm.push(readLiteral())

		case opcode.True:
			vm.push(value.Bool(true))

		case opcode.False:
			vm.push(value.Bool(false))

		case opcode.Pop:
			vm.pop()

		case opcode.GetLocal:
			slot, hops := int(readByte()), int(readByte())
			idx, err := vm.localIndex(frame, slot, hops)
			if err != nil {
				return StatusError, err
			}
			vm.push(vm.stack[idx])

		case opcode.SetLocal:
			slot, hops := int(readByte()), int(readByte())
			idx, err := vm.localIndex(frame, slot, hops)
			if err != nil {
				return StatusError, err
			}
			vm.stack[idx] = vm.peek(0)

		case opcode.GetGlobal:
			name := readName()
			key, ok := vm.findGlobal(name)
			if !ok {
				return StatusError, NewUndefinedVariableError(name.Chars)
			}
			vm.push(vm.globals[key])

		case opcode.DefineGlobal:
			name := readName()
			if key, ok := vm.findGlobal(name); ok {
				name = key
			}
			vm.globals[name] = vm.peek(0)
			vm.pop()

		case opcode.SetGlobal:
			name := readName()
			key, ok := vm.findGlobal(name)
			if !ok {
				return StatusError, NewUndefinedVariableError(name.Chars)
			}
			vm.globals[key] = vm.peek(0)

		case opcode.GetField:
			field := opcode.Field(readByte())
			v, err := getField(vm.pop(), field)
			if err != nil {
				return StatusError, err
			}
			vm.push(v)

		case opcode.SetLocalField:
			slot, hops := int(readByte()), int(readByte())
			field := opcode.Field(readByte())
			idx, err := vm.localIndex(frame, slot, hops)
			if err != nil {
				return StatusError, err
			}
			updated, err := setField(vm.stack[idx], field, vm.peek(0))
			if err != nil {
				return StatusError, err
			}
			vm.stack[idx] = updated

		case opcode.SetGlobalField:
			name := readName()
			field := opcode.Field(readByte())
			key, ok := vm.findGlobal(name)
			if !ok {
				return StatusError, NewUndefinedVariableError(name.Chars)
			}
			updated, err := setField(vm.globals[key], field, vm.peek(0))
			if err != nil {
				return StatusError, err
			}
			vm.globals[key] = updated

		case opcode.Equal:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))

		case opcode.Greater, opcode.Less:
			b := vm.pop()
			a := vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return StatusError, typeError("Operands must be numbers.")
			}
			if op == opcode.Greater {
				vm.push(value.Bool(greater(a, b)))
			} else {
				vm.push(value.Bool(greater(b, a)))
			}

		case opcode.Add:
			b := vm.pop()
			a := vm.pop()
			v, err := vm.add(a, b)
			if err != nil {
				return StatusError, err
			}
			vm.push(v)

		case opcode.Subtract:
			b := vm.pop()
			a := vm.pop()
			v, err := subtract(a, b)
			if err != nil {
				return StatusError, err
			}
			vm.push(v)

		case opcode.Multiply:
			b := vm.pop()
			a := vm.pop()
			v, err := multiply(a, b)
			if err != nil {
				return StatusError, err
			}
			vm.push(v)

		case opcode.Divide:
			b := vm.pop()
			a := vm.pop()
			v, err := divide(a, b)
			if err != nil {
				return StatusError, err
			}
			vm.push(v)

		case opcode.Modulo:
			b := vm.pop()
			a := vm.pop()
			if !a.IsInt() || !b.IsInt() {
				return StatusError, typeError("Operands must be integers.")
			}
			if b.AsInt() == 0 {
				return StatusError, NewDivisionByZeroError()
			}
			vm.push(value.Int(a.AsInt() % b.AsInt()))

		case opcode.Not:
			v := vm.pop()
			if !v.IsBool() {
				return StatusError, typeError("Operand must be a bool.")
			}
			vm.push(value.Bool(!v.AsBool()))

		case opcode.Negate:
			v := vm.pop()
			switch v.Kind() {
			case value.KindInt:
				vm.push(value.Int(-v.AsInt()))
			case value.KindFloat:
				vm.push(value.Float(-v.AsFloat()))
			case value.KindVector:
				vm.push(value.FromVector(v.AsVector().Neg()))
			default:
				return StatusError, typeError("Operand must be a number or a vector.")
			}

		case opcode.Vector:
			t := vm.pop()
			r := vm.pop()
			if !r.IsNumber() || !t.IsNumber() {
				return StatusError, typeError("Vector components must be numbers.")
			}
			vm.push(value.Vec(r.Number(), t.Number()))

		case opcode.Point:
			y := vm.pop()
			x := vm.pop()
			if !x.IsNumber() || !y.IsNumber() {
				return StatusError, typeError("Point components must be numbers.")
			}
			vm.push(value.Pt(x.Number(), y.Number()))

		case opcode.Print:
			fmt.Fprintln(vm.out, vm.pop().String())

		case opcode.Jump:
			offset := readShort()
			frame.ip += offset

		case opcode.JumpIfFalse:
			offset := readShort()
			cond := vm.peek(0)
			if !cond.IsBool() {
				return StatusError, typeError("Condition must be a bool.")
			}
			if !cond.AsBool() {
				frame.ip += offset
			}

		case opcode.Loop:
			offset := readShort()
			frame.ip -= offset

		case opcode.Call:
			argc := int(readByte())
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return StatusError, err
			}
			frame = &vm.frames[vm.frameCount-1]

		case opcode.Return:
			result := vm.pop()
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.sp = 0
				vm.state = Completed
				return StatusSuccess, nil
			}
			for vm.sp > frame.base-1 {
				vm.pop()
			}
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]

		case opcode.Yield:
			vm.state = Suspended
			return StatusYielded, nil

		case opcode.End:
			for vm.sp > 0 {
				vm.pop()
			}
			vm.frameCount = 0
			vm.state = Completed
			return StatusSuccess, nil

		default:
			return StatusError, NewRuntimeError(ErrorInternal, fmt.Sprintf("unknown opcode %d", op))
		}
	}
}

// localIndex follows hops access links from frame and returns the stack
// index of the slot.
func (vm *VM) localIndex(frame *CallFrame, slot, hops int) (int, *RuntimeError) {
	target := frame
	for ; hops > 0; hops-- {
		if target.access < 0 {
			return 0, NewRuntimeError(ErrorInvalidAccess, "Variable is out of reach of the current function.")
		}
		target = &vm.frames[target.access]
	}
	idx := target.base + slot
	if idx < 0 || idx >= StackMax {
		return 0, NewRuntimeError(ErrorInvalidAccess, fmt.Sprintf("Local slot %d is outside the stack.", slot))
	}
	return idx, nil
}

func (vm *VM) callValue(callee value.Value, argc int) *RuntimeError {
	if fn, ok := callee.AsFunction(); ok {
		return vm.call(fn, argc)
	}
	if nf, ok := callee.AsNative(); ok {
		args := vm.stack[vm.sp-argc : vm.sp]
		result, err := nf.Fn(vm, args)
		if err != nil {
			if rerr, ok := err.(*RuntimeError); ok {
				return rerr
			}
			return NewRuntimeError(ErrorNative, fmt.Sprintf("%s: %v", nf.Name, err))
		}
		for n := argc + 1; n > 0; n-- {
			vm.pop()
		}
		vm.push(result)
		return nil
	}
	return NewRuntimeError(ErrorNotCallable, "Can only call functions.")
}

func (vm *VM) call(fn *value.FunctionObject, argc int) *RuntimeError {
	if argc != fn.Arity {
		return NewArityError(fn.Arity, argc)
	}
	if vm.frameCount == FramesMax {
		return NewCallStackOverflowError()
	}

	// The access link points at the frame of the function that encloses
	// fn in the source. A callee at most one level deeper than the caller
	// finds it by walking the caller's own links.
	callerIdx := vm.frameCount - 1
	caller := &vm.frames[callerIdx]
	access := callerIdx
	if fn.Depth <= caller.fn.Depth+1 {
		for hops := caller.fn.Depth - fn.Depth + 1; hops > 0 && access >= 0; hops-- {
			access = vm.frames[access].access
		}
	}

	if strs := fn.Program.Literals.Strings(); !vm.merged[strs] {
		vm.strings.Merge(strs)
		vm.merged[strs] = true
	}

	vm.frames[vm.frameCount] = CallFrame{
		fn:     fn,
		base:   vm.sp - argc,
		access: access,
	}
	vm.frameCount++
	return nil
}

func (vm *VM) traceInstruction(frame *CallFrame) {
	var stack strings.Builder
	for i := 0; i < vm.sp; i++ {
		fmt.Fprintf(&stack, "[ %s ]", vm.stack[i])
	}
	var instr strings.Builder
	value.DisassembleInstruction(&instr, frame.fn.Program, frame.ip)
	vm.log.Debug("exec",
		"function", frame.fn.DisplayName(),
		"instr", strings.TrimSpace(instr.String()),
		"stack", stack.String())
}

func greater(a, b value.Value) bool {
	if a.IsInt() && b.IsInt() {
		return a.AsInt() > b.AsInt()
	}
	return a.Number() > b.Number()
}

// arith applies an operator to two numbers: int with int stays int,
// anything involving a float is float.
func arith(a, b value.Value, ints func(x, y int32) int32, floats func(x, y float32) float32) value.Value {
	if a.IsInt() && b.IsInt() {
		return value.Int(ints(a.AsInt(), b.AsInt()))
	}
	return value.Float(floats(a.Number(), b.Number()))
}

func (vm *VM) add(a, b value.Value) (value.Value, *RuntimeError) {
	switch {
	case a.IsNumber() && b.IsNumber():
		return arith(a, b,
			func(x, y int32) int32 { return x + y },
			func(x, y float32) float32 { return x + y }), nil
	case a.IsString() && b.IsString():
		sa, _ := a.AsString()
		sb, _ := b.AsString()
		return value.Obj(vm.intern(sa.Chars + sb.Chars)), nil
	case a.IsVector() && b.IsVector():
		return value.FromVector(a.AsVector().Add(b.AsVector())), nil
	case a.IsVector() && b.IsPoint():
		return value.FromPoint(b.AsPoint().Translate(a.AsVector())), nil
	case a.IsPoint() && b.IsVector():
		return value.FromPoint(a.AsPoint().Translate(b.AsVector())), nil
	}
	return value.Value{}, typeError("Cannot add %s and %s.", a.TypeName(), b.TypeName())
}

func subtract(a, b value.Value) (value.Value, *RuntimeError) {
	switch {
	case a.IsNumber() && b.IsNumber():
		return arith(a, b,
			func(x, y int32) int32 { return x - y },
			func(x, y float32) float32 { return x - y }), nil
	case a.IsVector() && b.IsVector():
		return value.FromVector(a.AsVector().Sub(b.AsVector())), nil
	case a.IsPoint() && b.IsVector():
		return value.FromPoint(a.AsPoint().Translate(b.AsVector().Neg())), nil
	}
	return value.Value{}, typeError("Cannot subtract %s from %s.", b.TypeName(), a.TypeName())
}

func multiply(a, b value.Value) (value.Value, *RuntimeError) {
	switch {
	case a.IsNumber() && b.IsNumber():
		return arith(a, b,
			func(x, y int32) int32 { return x * y },
			func(x, y float32) float32 { return x * y }), nil
	case a.IsVector() && b.IsNumber():
		return value.FromVector(a.AsVector().Scale(b.Number())), nil
	case a.IsNumber() && b.IsVector():
		return value.FromVector(b.AsVector().Scale(a.Number())), nil
	}
	return value.Value{}, typeError("Cannot multiply %s by %s.", a.TypeName(), b.TypeName())
}

func divide(a, b value.Value) (value.Value, *RuntimeError) {
	switch {
	case a.IsInt() && b.IsInt():
		if b.AsInt() == 0 {
			return value.Value{}, NewDivisionByZeroError()
		}
		return value.Int(a.AsInt() / b.AsInt()), nil
	case a.IsNumber() && b.IsNumber():
		return value.Float(a.Number() / b.Number()), nil
	case a.IsVector() && b.IsNumber():
		if b.Number() == 0 {
			return value.Value{}, NewDivisionByZeroError()
		}
		return value.FromVector(a.AsVector().Scale(1 / b.Number())), nil
	}
	return value.Value{}, typeError("Cannot divide %s by %s.", a.TypeName(), b.TypeName())
}

func getField(v value.Value, field opcode.Field) (value.Value, *RuntimeError) {
	switch {
	case v.IsVector() && field.IsVectorField():
		vec := v.AsVector()
		if field == opcode.FieldR {
			return value.Float(vec.R), nil
		}
		return value.Float(vec.T), nil
	case v.IsPoint() && !field.IsVectorField():
		p := v.AsPoint()
		if field == opcode.FieldX {
			return value.Float(p.X), nil
		}
		return value.Float(p.Y), nil
	}
	return value.Value{}, NewRuntimeError(ErrorInvalidAccess,
		fmt.Sprintf("%s has no member '%s'.", v.TypeName(), field))
}

// setField returns target with one member replaced by n.
func setField(target value.Value, field opcode.Field, n value.Value) (value.Value, *RuntimeError) {
	if !n.IsNumber() {
		return value.Value{}, typeError("Member value must be a number.")
	}
	switch {
	case target.IsVector() && field.IsVectorField():
		vec := target.AsVector()
		if field == opcode.FieldR {
			vec.R = n.Number()
		} else {
			vec.T = n.Number()
		}
		return value.FromVector(vec), nil
	case target.IsPoint() && !field.IsVectorField():
		p := target.AsPoint()
		if field == opcode.FieldX {
			p.X = n.Number()
		} else {
			p.Y = n.Number()
		}
		return value.FromPoint(p), nil
	}
	return value.Value{}, NewRuntimeError(ErrorInvalidAccess,
		fmt.Sprintf("%s has no member '%s'.", target.TypeName(), field))
}

func panicMessage(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(r)
}
