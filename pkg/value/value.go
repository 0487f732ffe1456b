// Package value provides the value and object model of the bullet script
// language: a tagged-union Value, the two domain types (polar vector and
// point), heap objects, string interning and compiled programs.
package value

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the tag of a Value.
type Kind uint8

// Value kinds. The zero Value is the boolean false.
const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindVector
	KindPoint
	KindObject
)

// String returns the name of the kind as used in error messages.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindVector:
		return "vector"
	case KindPoint:
		return "point"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Vector is a polar vector. T is the angle in degrees.
type Vector struct {
	R float32
	T float32
}

// Point is a position in the plane.
type Point struct {
	X float32
	Y float32
}

// Value is a tagged union over bool, int32, float32, Vector, Point and
// heap object references. Values are copied; object values alias the
// object they reference.
type Value struct {
	kind Kind
	i    int32      // bool (0/1) and int payload
	f    [2]float32 // float, vector and point payload
	obj  Object
}

// Bool creates a boolean value.
func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

// Int creates an integer value.
func Int(i int32) Value {
	return Value{kind: KindInt, i: i}
}

// Float creates a float value.
func Float(f float32) Value {
	return Value{kind: KindFloat, f: [2]float32{f, 0}}
}

// Vec creates a vector value from magnitude and angle in degrees.
func Vec(r, t float32) Value {
	return Value{kind: KindVector, f: [2]float32{r, t}}
}

// FromVector wraps a Vector.
func FromVector(v Vector) Value {
	return Vec(v.R, v.T)
}

// Pt creates a point value.
func Pt(x, y float32) Value {
	return Value{kind: KindPoint, f: [2]float32{x, y}}
}

// FromPoint wraps a Point.
func FromPoint(p Point) Value {
	return Pt(p.X, p.Y)
}

// Obj wraps a heap object.
func Obj(o Object) Value {
	return Value{kind: KindObject, obj: o}
}

// Kind returns the tag of the value.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsBool() bool { return v.kind == KindBool }
func (v Value) IsInt() bool { return v.kind == KindInt }
func (v Value) IsFloat() bool { return v.kind == KindFloat }
func (v Value) IsVector() bool { return v.kind == KindVector }
func (v Value) IsPoint() bool { return v.kind == KindPoint }
func (v Value) IsObject() bool { return v.kind == KindObject }

// IsNumber reports whether the value is an int or a float.
func (v Value) IsNumber() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// IsString reports whether the value references a string object.
func (v Value) IsString() bool {
	_, ok := v.obj.(*StringObject)
	return v.kind == KindObject && ok
}

func (v Value) AsBool() bool { return v.i != 0 }
func (v Value) AsInt() int32 { return v.i }
func (v Value) AsFloat() float32 { return v.f[0] }

// AsVector returns the vector payload.
func (v Value) AsVector() Vector { return Vector{R: v.f[0], T: v.f[1]} }

// AsPoint returns the point payload.
func (v Value) AsPoint() Point { return Point{X: v.f[0], Y: v.f[1]} }

// AsObject returns the referenced object, or nil.
func (v Value) AsObject() Object { return v.obj }

// AsString returns the string object the value references.
func (v Value) AsString() (*StringObject, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	s, ok := v.obj.(*StringObject)
	return s, ok
}

// AsFunction returns the function object the value references.
func (v Value) AsFunction() (*FunctionObject, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	fn, ok := v.obj.(*FunctionObject)
	return fn, ok
}

// AsNative returns the native function object the value references.
func (v Value) AsNative() (*NativeFunctionObject, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	fn, ok := v.obj.(*NativeFunctionObject)
	return fn, ok
}

// Number returns an int or float value as float32.
func (v Value) Number() float32 {
	if v.kind == KindInt {
		return float32(v.i)
	}
	return v.f[0]
}

// TypeName describes the dynamic type for diagnostics.
func (v Value) TypeName() string {
	if v.kind == KindObject && v.obj != nil {
		return v.obj.Type().String()
	}
	return v.kind.String()
}

// String formats the value the way print shows it.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(int64(v.i), 10)
	case KindFloat:
		return formatFloat(v.f[0])
	case KindVector:
		return fmt.Sprintf("<<%s, %s>>", formatFloat(v.f[0]), formatFloat(v.f[1]))
	case KindPoint:
		return fmt.Sprintf("[[%s, %s]]", formatFloat(v.f[0]), formatFloat(v.f[1]))
	case KindObject:
		if v.obj == nil {
			return "<nil>"
		}
		return v.obj.String()
	}
	return "<unknown>"
}

// Equal compares two values. Kinds must match; vectors and points compare
// members; objects compare by identity, which for interned strings is
// content equality.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindBool, KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f[0] == b.f[0]
	case KindVector, KindPoint:
		return a.f == b.f
	case KindObject:
		return a.obj == b.obj
	}
	return false
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

// Cartesian returns the x and y components of the vector.
func (v Vector) Cartesian() (x, y float32) {
	rad := float64(v.T) * math.Pi / 180
	return float32(float64(v.R) * math.Cos(rad)), float32(float64(v.R) * math.Sin(rad))
}

// PolarFrom builds a vector from cartesian components.
func PolarFrom(x, y float32) Vector {
	r := math.Hypot(float64(x), float64(y))
	if r == 0 {
		return Vector{}
	}
	t := math.Atan2(float64(y), float64(x)) * 180 / math.Pi
	return Vector{R: float32(r), T: float32(t)}
}

// Add returns the vector sum.
func (v Vector) Add(o Vector) Vector {
	x1, y1 := v.Cartesian()
	x2, y2 := o.Cartesian()
	return PolarFrom(x1+x2, y1+y2)
}

// Sub returns v - o.
func (v Vector) Sub(o Vector) Vector {
	return v.Add(o.Neg())
}

// Scale multiplies the magnitude by k.
func (v Vector) Scale(k float32) Vector {
	return Vector{R: v.R * k, T: v.T}
}

// Neg returns the vector pointing the opposite way.
func (v Vector) Neg() Vector {
	return v.Scale(-1)
}

// Translate moves the point by the vector.
func (p Point) Translate(v Vector) Point {
	dx, dy := v.Cartesian()
	return Point{X: p.X + dx, Y: p.Y + dy}
}
