package container

import (
	"fmt"
	"reflect"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
)

// DecoratorFunc receives a freshly built value and returns the value to use
// in its place.
type DecoratorFunc func(ctx *Context, instance any) (any, error)

// Decorator returns a stage that passes every built value assignable to
// target through fn. It runs after injection and only for values the
// stages build, so instances and factories are not decorated.
func Decorator(target reflect.Type, fn DecoratorFunc) Stage {
	return decoratorStage{target: target, fn: fn}
}

type decoratorStage struct {
	target reflect.Type
	fn     DecoratorFunc
}

func (decoratorStage) Name() string { return "decorator" }

func (s decoratorStage) Plan(p *Plan) (Step, error) {
	if p.Registration.Contract.Type != s.target && !p.Target.AssignableTo(s.target) {
		return nil, nil
	}

	return func(ctx *Context) error {
		if !ctx.Existing.IsValid() {
			return nil
		}

		v, err := s.fn(ctx, ctx.Existing.Interface())
		if err != nil {
			return classify(ctx, fmt.Sprintf("decorating %s", ireflect.TypeName(s.target)), err)
		}

		rv, ok := ireflect.AssignableValue(v, ctx.Contract.Type)
		if !ok {
			return errResolutionFailed(ctx, fmt.Sprintf("decorator returned %T", v), nil)
		}
		ctx.Existing = addressable(rv)
		return nil
	}, nil
}
