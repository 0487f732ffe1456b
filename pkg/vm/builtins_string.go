package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zurustar/danmaku/pkg/value"
)

// registerStringBuiltins registers conversions between numbers and
// strings.
func registerStringBuiltins(s *NativeSet) {
	// int(x) - truncates floats toward zero, parses strings
	s.Add("int", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		if err := checkArity("int", args, 1); err != nil {
			return value.Value{}, err
		}
		v := args[0]
		switch {
		case v.IsInt():
			return v, nil
		case v.IsFloat():
			f := float64(v.AsFloat())
			if math.IsNaN(f) || f > math.MaxInt32 || f < math.MinInt32 {
				return value.Value{}, fmt.Errorf("int: %s is out of range", v)
			}
			return value.Int(int32(f)), nil
		case v.IsBool():
			if v.AsBool() {
				return value.Int(1), nil
			}
			return value.Int(0), nil
		case v.IsString():
			str, _ := v.AsString()
			n, err := strconv.ParseInt(strings.TrimSpace(str.Chars), 10, 32)
			if err != nil {
				return value.Value{}, fmt.Errorf("int: cannot parse %q", str.Chars)
			}
			return value.Int(int32(n)), nil
		}
		return value.Value{}, fmt.Errorf("int: cannot convert %s", v.TypeName())
	})

	// float(x)
	s.Add("float", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		if err := checkArity("float", args, 1); err != nil {
			return value.Value{}, err
		}
		v := args[0]
		switch {
		case v.IsNumber():
			return value.Float(v.Number()), nil
		case v.IsString():
			str, _ := v.AsString()
			f, err := strconv.ParseFloat(strings.TrimSpace(str.Chars), 32)
			if err != nil {
				return value.Value{}, fmt.Errorf("float: cannot parse %q", str.Chars)
			}
			return value.Float(float32(f)), nil
		}
		return value.Value{}, fmt.Errorf("float: cannot convert %s", v.TypeName())
	})

	// str(x) - the text print would show for x
	s.Add("str", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		if err := checkArity("str", args, 1); err != nil {
			return value.Value{}, err
		}
		if args[0].IsString() {
			return args[0], nil
		}
		return value.Obj(ctx.Intern(args[0].String())), nil
	})

	// len(s) - number of characters
	s.Add("len", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		if err := checkArity("len", args, 1); err != nil {
			return value.Value{}, err
		}
		str, ok := args[0].AsString()
		if !ok {
			return value.Value{}, fmt.Errorf("len: argument must be a string, got %s", args[0].TypeName())
		}
		return value.Int(int32(utf8.RuneCountInString(str.Chars))), nil
	})
}
