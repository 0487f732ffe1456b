package vm

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/zurustar/danmaku/pkg/value"
)

var processStart = time.Now()

func rad2deg(r float64) float32 { return float32(r * 180 / math.Pi) }

// registerMathBuiltins registers math and geometry functions. Angles are
// in degrees, like vector angles.
func registerMathBuiltins(s *NativeSet) {
	// clock() - seconds since the process started
	s.Add("clock", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		if err := checkArity("clock", args, 0); err != nil {
			return value.Value{}, err
		}
		return value.Float(float32(time.Since(processStart).Seconds())), nil
	})

	s.Add("sqrt", unaryFloat("sqrt", math.Sqrt))
	s.Add("sin", unaryFloat("sin", func(d float64) float64 { return math.Sin(d * math.Pi / 180) }))
	s.Add("cos", unaryFloat("cos", func(d float64) float64 { return math.Cos(d * math.Pi / 180) }))

	// atan2(y, x) - angle of (x, y) in degrees
	s.Add("atan2", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		if err := checkArity("atan2", args, 2); err != nil {
			return value.Value{}, err
		}
		y, err := argNumber("atan2", args, 0)
		if err != nil {
			return value.Value{}, err
		}
		x, err := argNumber("atan2", args, 1)
		if err != nil {
			return value.Value{}, err
		}
		return value.Float(rad2deg(math.Atan2(float64(y), float64(x)))), nil
	})

	// abs(n) keeps the kind of its argument
	s.Add("abs", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		if err := checkArity("abs", args, 1); err != nil {
			return value.Value{}, err
		}
		switch {
		case args[0].IsInt():
			n := args[0].AsInt()
			if n < 0 {
				n = -n
			}
			return value.Int(n), nil
		case args[0].IsFloat():
			return value.Float(float32(math.Abs(float64(args[0].AsFloat())))), nil
		}
		return value.Value{}, fmt.Errorf("abs: argument must be a number, got %s", args[0].TypeName())
	})

	// floor(n) - largest integer not greater than n
	s.Add("floor", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		if err := checkArity("floor", args, 1); err != nil {
			return value.Value{}, err
		}
		n, err := argNumber("floor", args, 0)
		if err != nil {
			return value.Value{}, err
		}
		f := math.Floor(float64(n))
		if math.IsNaN(f) || f > math.MaxInt32 || f < math.MinInt32 {
			return value.Value{}, fmt.Errorf("floor: %s is out of range", args[0])
		}
		return value.Int(int32(f)), nil
	})

	s.Add("min", minMax("min", func(a, b float32) bool { return a < b }))
	s.Add("max", minMax("max", func(a, b float32) bool { return a > b }))

	// random() - float in [0, 1)
	// random(n) - int in [0, n)
	// random(a, b) - number in [a, b), int when both bounds are ints
	s.Add("random", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		switch len(args) {
		case 0:
			return value.Float(rand.Float32()), nil
		case 1:
			if !args[0].IsInt() {
				return value.Value{}, fmt.Errorf("random: max must be an integer")
			}
			n := args[0].AsInt()
			if n <= 0 {
				return value.Int(0), nil
			}
			return value.Int(rand.Int31n(n)), nil
		case 2:
			if args[0].IsInt() && args[1].IsInt() {
				lo, hi := args[0].AsInt(), args[1].AsInt()
				if hi <= lo {
					return value.Int(lo), nil
				}
				return value.Int(lo + rand.Int31n(hi-lo)), nil
			}
			lo, err := argNumber("random", args, 0)
			if err != nil {
				return value.Value{}, err
			}
			hi, err := argNumber("random", args, 1)
			if err != nil {
				return value.Value{}, err
			}
			return value.Float(lo + rand.Float32()*(hi-lo)), nil
		}
		return value.Value{}, fmt.Errorf("random expects 0 to 2 arguments but got %d", len(args))
	})

	// polar(p) - vector from the origin to p
	s.Add("polar", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		if err := checkArity("polar", args, 1); err != nil {
			return value.Value{}, err
		}
		p, err := argPoint("polar", args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.FromVector(value.PolarFrom(p.X, p.Y)), nil
	})

	// cartesian(v) - the point v reaches from the origin
	s.Add("cartesian", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		if err := checkArity("cartesian", args, 1); err != nil {
			return value.Value{}, err
		}
		v, err := argVector("cartesian", args, 0)
		if err != nil {
			return value.Value{}, err
		}
		x, y := v.Cartesian()
		return value.Pt(x, y), nil
	})

	// angleTo(p, q) - direction from p to q in degrees
	s.Add("angleTo", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		p, q, err := twoPoints("angleTo", args)
		if err != nil {
			return value.Value{}, err
		}
		return value.Float(rad2deg(math.Atan2(float64(q.Y-p.Y), float64(q.X-p.X)))), nil
	})

	// distance(p, q)
	s.Add("distance", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		p, q, err := twoPoints("distance", args)
		if err != nil {
			return value.Value{}, err
		}
		return value.Float(float32(math.Hypot(float64(q.X-p.X), float64(q.Y-p.Y)))), nil
	})
}

func unaryFloat(name string, f func(float64) float64) value.NativeFn {
	return func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		if err := checkArity(name, args, 1); err != nil {
			return value.Value{}, err
		}
		n, err := argNumber(name, args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.Float(float32(f(float64(n)))), nil
	}
}

// minMax returns an int when both arguments are ints.
func minMax(name string, pick func(a, b float32) bool) value.NativeFn {
	return func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		if err := checkArity(name, args, 2); err != nil {
			return value.Value{}, err
		}
		a, err := argNumber(name, args, 0)
		if err != nil {
			return value.Value{}, err
		}
		b, err := argNumber(name, args, 1)
		if err != nil {
			return value.Value{}, err
		}
		if args[0].IsInt() && args[1].IsInt() {
			if pick(a, b) {
				return args[0], nil
			}
			return args[1], nil
		}
		if pick(a, b) {
			return value.Float(a), nil
		}
		return value.Float(b), nil
	}
}

func twoPoints(name string, args []value.Value) (value.Point, value.Point, error) {
	if err := checkArity(name, args, 2); err != nil {
		return value.Point{}, value.Point{}, err
	}
	p, err := argPoint(name, args, 0)
	if err != nil {
		return value.Point{}, value.Point{}, err
	}
	q, err := argPoint(name, args, 1)
	if err != nil {
		return value.Point{}, value.Point{}, err
	}
	return p, q, nil
}
