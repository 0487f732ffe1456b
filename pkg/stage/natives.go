package stage

import (
	"errors"
	"fmt"

	"github.com/zurustar/danmaku/pkg/value"
	"github.com/zurustar/danmaku/pkg/vm"
)

// entityOf returns the entity a native was called for.
func entityOf(ctx value.NativeContext) (*Entity, error) {
	e, ok := ctx.Host().(*Entity)
	if !ok || e == nil {
		return nil, vm.NewRuntimeError(vm.ErrorInvalidAccess, "No entity is attached to this script.")
	}
	return e, nil
}

func arity(name string, args []value.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s expects %d arguments but got %d", name, n, len(args))
	}
	return nil
}

// entityNatives returns the functions scripts use to drive their entity.
func entityNatives() *vm.NativeSet {
	s := vm.NewNativeSet()

	// pos() - current position
	s.Add("pos", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		e, err := entityOf(ctx)
		if err != nil {
			return value.Value{}, err
		}
		if err := arity("pos", args, 0); err != nil {
			return value.Value{}, err
		}
		return value.FromPoint(e.Pos), nil
	})

	// setPos(p)
	s.Add("setPos", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		e, err := entityOf(ctx)
		if err != nil {
			return value.Value{}, err
		}
		if err := arity("setPos", args, 1); err != nil {
			return value.Value{}, err
		}
		if !args[0].IsPoint() {
			return value.Value{}, fmt.Errorf("setPos: argument must be a point, got %s", args[0].TypeName())
		}
		e.Pos = args[0].AsPoint()
		return args[0], nil
	})

	// vel() - velocity per tick
	s.Add("vel", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		e, err := entityOf(ctx)
		if err != nil {
			return value.Value{}, err
		}
		if err := arity("vel", args, 0); err != nil {
			return value.Value{}, err
		}
		return value.FromVector(e.Vel), nil
	})

	// setVel(v)
	s.Add("setVel", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		e, err := entityOf(ctx)
		if err != nil {
			return value.Value{}, err
		}
		if err := arity("setVel", args, 1); err != nil {
			return value.Value{}, err
		}
		if !args[0].IsVector() {
			return value.Value{}, fmt.Errorf("setVel: argument must be a vector, got %s", args[0].TypeName())
		}
		e.Vel = args[0].AsVector()
		return args[0], nil
	})

	// spawn(name, p, v) - id of the new entity, false at the entity limit
	s.Add("spawn", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		e, err := entityOf(ctx)
		if err != nil {
			return value.Value{}, err
		}
		if err := arity("spawn", args, 3); err != nil {
			return value.Value{}, err
		}
		name, ok := args[0].AsString()
		if !ok {
			return value.Value{}, fmt.Errorf("spawn: script name must be a string, got %s", args[0].TypeName())
		}
		if !args[1].IsPoint() || !args[2].IsVector() {
			return value.Value{}, fmt.Errorf("spawn: expected a point and a vector, got %s and %s",
				args[1].TypeName(), args[2].TypeName())
		}

		child, err := e.stage.Spawn(name.Chars, args[1].AsPoint(), args[2].AsVector())
		if errors.Is(err, ErrCapacity) {
			ctx.Logger().Debug("spawn skipped", "script", name.Chars, "reason", err)
			return value.Bool(false), nil
		}
		if err != nil {
			return value.Value{}, fmt.Errorf("spawn: %w", err)
		}
		return value.Obj(ctx.Intern(child.ID.String())), nil
	})

	// die() - removes the entity at the end of the tick
	s.Add("die", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		e, err := entityOf(ctx)
		if err != nil {
			return value.Value{}, err
		}
		if err := arity("die", args, 0); err != nil {
			return value.Value{}, err
		}
		if e.Alive {
			e.Alive = false
			e.stage.stats.Died++
		}
		return value.Bool(true), nil
	})

	// tick() - ticks since the stage started
	s.Add("tick", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		e, err := entityOf(ctx)
		if err != nil {
			return value.Value{}, err
		}
		if err := arity("tick", args, 0); err != nil {
			return value.Value{}, err
		}
		return value.Int(int32(e.stage.stats.Tick)), nil
	})

	// id() - the entity id as a string
	s.Add("id", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		e, err := entityOf(ctx)
		if err != nil {
			return value.Value{}, err
		}
		if err := arity("id", args, 0); err != nil {
			return value.Value{}, err
		}
		return value.Obj(ctx.Intern(e.ID.String())), nil
	})

	// player() - the player position
	s.Add("player", func(ctx value.NativeContext, args []value.Value) (value.Value, error) {
		e, err := entityOf(ctx)
		if err != nil {
			return value.Value{}, err
		}
		if err := arity("player", args, 0); err != nil {
			return value.Value{}, err
		}
		return value.FromPoint(e.stage.player), nil
	})

	return s
}
