package container

import (
	"errors"
	"fmt"
	"reflect"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/registry"
	"github.com/danpasecinic/thimble/introspect"
)

// Plan is what stages see when preparing a build. Stages record their
// decisions on it so later stages can use them.
type Plan struct {
	Registration *registry.Registration
	Target       reflect.Type
	Info         *introspect.TypeInfo
	// Scope is the scope owning the registration.
	Scope    *registry.Scope
	Selected *Selection
}

// Step is one stage's part of a build. It works on ctx.Existing.
type Step func(ctx *Context) error

// Stage prepares one step of building a value. A stage that has nothing to
// do for a plan returns a nil step.
type Stage interface {
	Name() string
	Plan(p *Plan) (Step, error)
}

func builtinStages(e *engine) []Stage {
	return []Stage{
		selectionStage{engine: e},
		constructionStage{},
		fieldStage{},
		methodStage{},
		propertyStage{},
	}
}

func (e *engine) newPlan(reg *registry.Registration) (*Plan, error) {
	target := reg.Target()
	info, err := e.introspector.Describe(target)
	if err != nil {
		if !errors.Is(err, introspect.ErrNotBuildable) || reg.Constructor == nil || !reg.Constructor.Func.IsValid() {
			return nil, errResolutionFailed(nil, fmt.Sprintf("%s cannot be built", ireflect.TypeName(target)), err)
		}
		info = &introspect.TypeInfo{Type: target}
	}

	return &Plan{
		Registration: reg,
		Target:       target,
		Info:         info,
		Scope:        reg.Owner,
	}, nil
}

// selectionStage decides the constructor while planning. It has no step.
type selectionStage struct {
	engine *engine
}

func (selectionStage) Name() string { return "selection" }

func (s selectionStage) Plan(p *Plan) (Step, error) {
	sel, err := s.engine.selectConstructor(p)
	if err != nil {
		return nil, err
	}
	p.Selected = sel
	return nil, nil
}

type constructionStage struct{}

func (constructionStage) Name() string { return "construction" }

func (constructionStage) Plan(p *Plan) (Step, error) {
	sel := p.Selected
	target := p.Target

	return func(ctx *Context) error {
		args := make([]reflect.Value, len(sel.Params))
		for i := range sel.Params {
			v, err := ctx.resolveDependency(&sel.Params[i])
			if err != nil {
				return err
			}
			args[i] = v
		}

		if sel.Constructor.IsZero() {
			ctx.Existing = zeroInstance(target)
			return nil
		}

		out := sel.Constructor.Func.Call(args)
		if sel.Constructor.ReturnsError && !out[1].IsNil() {
			return classify(ctx, "constructor failed", out[1].Interface().(error))
		}
		ctx.Existing = addressable(out[0])
		return nil
	}, nil
}

type fieldStage struct{}

func (fieldStage) Name() string { return "fields" }

type fieldTarget struct {
	index []int
	dep   Dependency
}

func (fieldStage) Plan(p *Plan) (Step, error) {
	targets, err := planFields(p)
	if err != nil || len(targets) == 0 {
		return nil, err
	}

	return func(ctx *Context) error {
		sv, ok := structTarget(ctx.Existing)
		if !ok {
			return errResolutionFailed(ctx, fmt.Sprintf("cannot inject fields into %s", ctx.Existing.Type()), nil)
		}
		for i := range targets {
			v, err := ctx.resolveDependency(&targets[i].dep)
			if err != nil {
				return err
			}
			sv.FieldByIndex(targets[i].index).Set(v)
		}
		return nil
	}, nil
}

type methodStage struct{}

func (methodStage) Name() string { return "methods" }

type methodCall struct {
	name         string
	params       []Dependency
	returnsError bool
}

func (methodStage) Plan(p *Plan) (Step, error) {
	calls, err := planMethods(p)
	if err != nil || len(calls) == 0 {
		return nil, err
	}

	return func(ctx *Context) error {
		recv := receiver(ctx.Existing)
		for _, call := range calls {
			args := make([]reflect.Value, len(call.params))
			for i := range call.params {
				v, err := ctx.resolveDependency(&call.params[i])
				if err != nil {
					return err
				}
				args[i] = v
			}
			if err := invoke(ctx, recv, call.name, args, call.returnsError); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

type propertyStage struct{}

func (propertyStage) Name() string { return "properties" }

type propertySet struct {
	setter       string
	dep          Dependency
	returnsError bool
}

func (propertyStage) Plan(p *Plan) (Step, error) {
	sets, err := planProperties(p)
	if err != nil || len(sets) == 0 {
		return nil, err
	}

	return func(ctx *Context) error {
		recv := receiver(ctx.Existing)
		for i := range sets {
			v, err := ctx.resolveDependency(&sets[i].dep)
			if err != nil {
				return err
			}
			if err := invoke(ctx, recv, sets[i].setter, []reflect.Value{v}, sets[i].returnsError); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

func membersOf(reg *registry.Registration, kind registry.MemberKind) map[string]registry.Member {
	var out map[string]registry.Member
	for _, m := range reg.Members {
		if m.Kind != kind {
			continue
		}
		if out == nil {
			out = make(map[string]registry.Member)
		}
		out[m.Name] = m
	}
	return out
}

func unknownMembers(p *Plan, kind registry.MemberKind, left map[string]registry.Member) error {
	for name := range left {
		return errInvalidRegistration(
			nil,
			fmt.Sprintf("%s has no injectable %s %q", ireflect.TypeName(p.Target), kind, name),
			introspect.ErrInvalidMember,
		)
	}
	return nil
}

func invoke(ctx *Context, recv reflect.Value, name string, args []reflect.Value, returnsError bool) error {
	fn := recv.MethodByName(name)
	if !fn.IsValid() {
		return errResolutionFailed(ctx, fmt.Sprintf("%s has no method %s", recv.Type(), name), nil)
	}

	out := fn.Call(args)
	if returnsError {
		if errv := out[len(out)-1]; !errv.IsNil() {
			return classify(ctx, fmt.Sprintf("calling %s", name), errv.Interface().(error))
		}
	}
	return nil
}

func zeroInstance(t reflect.Type) reflect.Value {
	if t.Kind() == reflect.Ptr {
		return reflect.New(t.Elem())
	}
	return reflect.New(t).Elem()
}

// addressable copies struct values so fields and pointer methods can be
// reached on them.
func addressable(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Struct && !v.CanAddr() {
		cp := reflect.New(v.Type()).Elem()
		cp.Set(v)
		return cp
	}
	return v
}

func receiver(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	if v.Kind() != reflect.Ptr && v.CanAddr() {
		return v.Addr()
	}
	return v
}

func structTarget(v reflect.Value) (reflect.Value, bool) {
	r := receiver(v)
	if r.Kind() == reflect.Ptr && !r.IsNil() && r.Elem().Kind() == reflect.Struct {
		return r.Elem(), true
	}
	return reflect.Value{}, false
}
