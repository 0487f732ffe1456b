package value

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/zurustar/danmaku/pkg/opcode"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-3
}

func TestValueString(t *testing.T) {
	interner := NewInterner()
	tests := []struct {
		name     string
		value    Value
		expected string
	}{
		{"true", Bool(true), "true"},
		{"false", Bool(false), "false"},
		{"zero value", Value{}, "false"},
		{"int", Int(-42), "-42"},
		{"float", Float(2.5), "2.5"},
		{"whole float", Float(5), "5"},
		{"vector", Vec(6, 0), "<<6, 0>>"},
		{"point", Pt(1, 2.5), "[[1, 2.5]]"},
		{"string", Obj(interner.Intern("ab")), "ab"},
		{"script", Obj(&FunctionObject{}), "<script>"},
		{"named fn", Obj(&FunctionObject{Name: "spin", Depth: 1}), "<fn spin>"},
		{"anonymous fn", Obj(&FunctionObject{Depth: 2}), "<fn>"},
		{"native", Obj(&NativeFunctionObject{Name: "sin"}), "<native fn sin>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	interner := NewInterner()
	a := interner.Intern("abc")
	fn := &FunctionObject{Depth: 1}

	tests := []struct {
		name     string
		a, b     Value
		expected bool
	}{
		{"same bools", Bool(true), Bool(true), true},
		{"different bools", Bool(true), Bool(false), false},
		{"same ints", Int(3), Int(3), true},
		{"int vs float never equal", Int(1), Float(1), false},
		{"same floats", Float(1.5), Float(1.5), true},
		{"vectors compare members", Vec(1, 90), Vec(1, 90), true},
		{"vectors differ in angle", Vec(1, 90), Vec(1, 91), false},
		{"points compare members", Pt(3, 4), Pt(3, 4), true},
		{"vector vs point", Vec(3, 4), Pt(3, 4), false},
		{"interned strings", Obj(a), Obj(interner.Intern("abc")), true},
		{"different strings", Obj(a), Obj(interner.Intern("abd")), false},
		{"non-interned copy is a different object", Obj(a), Obj(&StringObject{Chars: "abc"}), false},
		{"function identity", Obj(fn), Obj(fn), true},
		{"bool vs int", Bool(false), Int(0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.expected {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestAccessors(t *testing.T) {
	s := NewInterner().Intern("x")
	v := Obj(s)
	if !v.IsString() {
		t.Error("expected IsString")
	}
	if got, ok := v.AsString(); !ok || got != s {
		t.Error("AsString did not return the wrapped object")
	}
	if _, ok := v.AsFunction(); ok {
		t.Error("string must not convert to function")
	}
	if _, ok := Int(1).AsString(); ok {
		t.Error("int must not convert to string")
	}
	if Int(7).Number() != 7 || Float(1.5).Number() != 1.5 {
		t.Error("Number() conversion wrong")
	}
	if Vec(1, 2).TypeName() != "vector" || v.TypeName() != "string" {
		t.Errorf("TypeName wrong: %s, %s", Vec(1, 2).TypeName(), v.TypeName())
	}
}

func TestVectorArithmetic(t *testing.T) {
	t.Run("scale", func(t *testing.T) {
		v := Vector{R: 2, T: 0}.Scale(3)
		if v.R != 6 || v.T != 0 {
			t.Errorf("Scale = %+v, want <<6, 0>>", v)
		}
	})

	t.Run("sum of perpendicular vectors", func(t *testing.T) {
		v := Vector{R: 3, T: 0}.Add(Vector{R: 4, T: 90})
		if !approx(v.R, 5) {
			t.Errorf("magnitude = %v, want 5", v.R)
		}
		want := float32(math.Atan2(4, 3) * 180 / math.Pi)
		if !approx(v.T, want) {
			t.Errorf("angle = %v, want %v", v.T, want)
		}
	})

	t.Run("difference with itself is zero", func(t *testing.T) {
		v := Vector{R: 5, T: 33}.Sub(Vector{R: 5, T: 33})
		if !approx(v.R, 0) {
			t.Errorf("magnitude = %v, want 0", v.R)
		}
	})

	t.Run("translate point", func(t *testing.T) {
		p := Point{X: 1, Y: 2}.Translate(Vector{R: 2, T: 90})
		if !approx(p.X, 1) || !approx(p.Y, 4) {
			t.Errorf("Translate = %+v, want [[1, 4]]", p)
		}
	})

	t.Run("translate by zero vector", func(t *testing.T) {
		p := Point{X: 1, Y: 2}.Translate(Vector{})
		if p.X != 1 || p.Y != 2 {
			t.Errorf("Translate = %+v, want [[1, 2]]", p)
		}
	})

	t.Run("negation reverses direction", func(t *testing.T) {
		x, y := Vector{R: 2, T: 30}.Neg().Cartesian()
		ex, ey := Vector{R: 2, T: 30}.Cartesian()
		if !approx(x, -ex) || !approx(y, -ey) {
			t.Errorf("Neg cartesian = (%v, %v), want (%v, %v)", x, y, -ex, -ey)
		}
	})
}

func TestInterner(t *testing.T) {
	in := NewInterner()
	a := in.Intern("hello")
	b := in.Intern("hel" + "lo")
	if a != b {
		t.Fatal("equal strings must intern to the same object")
	}
	if in.Len() != 1 {
		t.Errorf("Len = %d, want 1", in.Len())
	}
	if a.Hash != HashString("hello") {
		t.Error("hash is not cached on the object")
	}

	if _, created := in.Insert("hello"); created {
		t.Error("Insert reported allocation for an existing string")
	}
	if _, created := in.Insert("world"); !created {
		t.Error("Insert did not report allocation for a new string")
	}

	t.Run("clone shares objects", func(t *testing.T) {
		c := in.Clone()
		if c.Intern("hello") != a {
			t.Error("clone must return the original object")
		}
		c.Intern("only in clone")
		if _, ok := in.Lookup("only in clone"); ok {
			t.Error("clone must not write through to the original")
		}
	})

	t.Run("merge keeps existing objects", func(t *testing.T) {
		other := NewInterner()
		otherHello := other.Intern("hello")
		otherNew := other.Intern("new")

		in.Merge(other)
		if in.Intern("hello") != a || in.Intern("hello") == otherHello {
			t.Error("merge replaced an existing entry")
		}
		if in.Intern("new") != otherNew {
			t.Error("merge did not adopt the missing entry")
		}
	})
}

func TestLiterals(t *testing.T) {
	p := NewProgram(nil, false)
	if !p.Literals.OwnsStrings() {
		t.Error("a program created without an interner must own one")
	}

	i1, err := p.Literals.Add(Int(1))
	if err != nil {
		t.Fatal(err)
	}
	i2, _ := p.Literals.Add(Float(1))
	i3, _ := p.Literals.Add(Int(1))
	if i1 == i2 {
		t.Error("int 1 and float 1 must be distinct literals")
	}
	if i1 != i3 {
		t.Error("equal literals must share a slot")
	}

	s := p.Literals.Strings().Intern("name")
	j1, _ := p.Literals.Add(Obj(s))
	j2, _ := p.Literals.Add(Obj(p.Literals.Strings().Intern("name")))
	if j1 != j2 {
		t.Error("interned string literals must share a slot")
	}

	t.Run("overflow", func(t *testing.T) {
		q := NewProgram(nil, true)
		for i := 0; i < MaxLiterals; i++ {
			if _, err := q.Literals.Add(Int(int32(i))); err != nil {
				t.Fatalf("literal %d: %v", i, err)
			}
		}
		if _, err := q.Literals.Add(Int(-1)); !errors.Is(err, ErrTooManyLiterals) {
			t.Errorf("expected ErrTooManyLiterals, got %v", err)
		}
		// An existing literal still resolves once the pool is full
		if idx, err := q.Literals.Add(Int(7)); err != nil || idx != 7 {
			t.Errorf("Add(existing) = %d, %v", idx, err)
		}
	})
}

func TestProgramWriteAndTruncate(t *testing.T) {
	p := NewProgram(nil, true)
	p.Write(byte(opcode.True), 1)
	p.Write(byte(opcode.Pop), 2)
	p.Write(byte(opcode.End), 3)

	if p.Len() != 3 || len(p.Lines) != 3 {
		t.Fatalf("code/lines out of step: %d/%d", p.Len(), len(p.Lines))
	}
	if p.LineAt(1) != 2 || p.LineAt(99) != 0 {
		t.Error("LineAt wrong")
	}

	p.Truncate(1)
	if p.Len() != 1 || len(p.Lines) != 1 {
		t.Errorf("Truncate left %d bytes, %d lines", p.Len(), len(p.Lines))
	}
}

func TestDisassemble(t *testing.T) {
	strs := NewInterner()
	script := NewFunction("", 0, strs, true)
	inner := NewFunction("spin", 1, strs, false)
	inner.Program.Write(byte(opcode.GetLocal), 1)
	inner.Program.Write(0, 1)
	inner.Program.Write(1, 1)
	inner.Program.Write(byte(opcode.Return), 1)

	p := script.Program
	fnIdx, _ := p.Literals.Add(Obj(inner))
	nameIdx, _ := p.Literals.Add(Obj(strs.Intern("spin")))
	p.Write(byte(opcode.Constant), 1)
	p.Write(byte(fnIdx), 1)
	p.Write(byte(opcode.DefineGlobal), 1)
	p.Write(byte(nameIdx), 1)
	p.Write(byte(opcode.Jump), 2)
	p.Write(0, 2)
	p.Write(1, 2)
	p.Write(byte(opcode.Yield), 2)
	p.Write(byte(opcode.End), 3)

	var buf bytes.Buffer
	Disassemble(&buf, script)
	out := buf.String()

	for _, want := range []string{
		"== script ==",
		"CONSTANT",
		"'<fn spin>'",
		"DEFINE_GLOBAL",
		"'spin'",
		"JUMP",
		"4 -> 8",
		"YIELD",
		"END",
		"== spin() ==",
		"GET_LOCAL",
		"^1",
		"RETURN",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}

func TestHashString(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
	}{
		{"", 0x811c9dc5},
		{"a", 0xe40c292c},
		{"foobar", 0xbf9cf968},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := HashString(tt.in); got != tt.want {
				t.Errorf("HashString(%q) = %#x, want %#x", tt.in, got, tt.want)
			}
		})
	}
}
