package container

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/danpasecinic/thimble/internal/contract"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/registry"
	"github.com/danpasecinic/thimble/lifetime"
)

func (c *Container) Resolve(ctx context.Context, t reflect.Type, name string, overrides ...Override) (any, error) {
	if t == nil {
		return nil, errResolutionFailed(nil, "cannot resolve a nil type", nil)
	}

	rc := c.newRootContext(ctx, contract.New(t, name), overrides)
	v, err := c.engine.resolve(rc)
	if err != nil {
		var e *Error
		if errors.As(err, &e) && e.Requested.IsZero() {
			e.Requested = rc.Contract
		}
		rc.Logger().Debug().Err(err).Stringer("contract", rc.Contract).Msg("resolve failed")
		return nil, err
	}
	return v, nil
}

// ResolveAll resolves every named registration of elem.
func (c *Container) ResolveAll(ctx context.Context, elem reflect.Type, overrides ...Override) ([]any, error) {
	if elem == nil {
		return nil, errResolutionFailed(nil, "cannot resolve a nil type", nil)
	}

	v, err := c.Resolve(ctx, reflect.SliceOf(elem), "", overrides...)
	if err != nil {
		return nil, err
	}

	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func (e *engine) resolve(ctx *Context) (any, error) {
	if ctx.depth > e.maxDepth {
		return nil, errResolutionFailed(ctx, fmt.Sprintf("maximum resolve depth %d exceeded", e.maxDepth), nil)
	}
	if e.mode == ModeDiagnostic && ctx.building(ctx.Contract) {
		return nil, errCircularDependency(ctx)
	}

	reg, owner, err := e.find(ctx)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		if elem, seq, ok := collectionElem(ctx.Contract.Type); ok {
			return e.resolveCollection(ctx, elem, seq)
		}
		if ctx.Contract.Type == contextType {
			return ctx.Context(), nil
		}
		if reg, owner, err = e.implicit(ctx); err != nil {
			return nil, err
		}
	}

	ctx.Registration = reg
	ctx.BuildScope = ctx.Scope
	if reg.Lifetime.Kind().OwnedByRegistrar() || reg.Category == registry.Instance {
		ctx.BuildScope = owner
	}

	if e.mode == ModeOptimized {
		if _, synchronized := reg.Lifetime.(lifetime.TimeoutConfigurable); synchronized {
			if _, busy := ctx.state.building.LoadOrStore(reg, struct{}{}); busy {
				return nil, errCircularDependency(ctx)
			}
			defer ctx.state.building.Delete(reg)
		}
	}

	v, ok, err := reg.Lifetime.GetValue(ctx)
	if err != nil {
		return nil, classify(ctx, "waiting for another goroutine to build the value", err)
	}
	if ok {
		return v, nil
	}

	v, err = e.build(ctx)
	if err != nil {
		reg.Lifetime.Recover(ctx)
		return nil, err
	}

	if err := reg.Lifetime.SetValue(v, ctx); err != nil {
		return nil, classify(ctx, "storing built value", err)
	}
	return v, nil
}

func (e *engine) find(ctx *Context) (*registry.Registration, *registry.Scope, error) {
	if reg, owner := ctx.Scope.Lookup(ctx.Contract); reg != nil {
		return reg, owner, nil
	}
	return e.bindGeneric(ctx)
}

// implicit returns the registration synthesized for a buildable type that
// was never registered.
func (e *engine) implicit(ctx *Context) (*registry.Registration, *registry.Scope, error) {
	t := ctx.Contract.Type
	if _, err := e.introspector.Describe(t); err != nil {
		return nil, nil, errResolutionFailed(ctx, fmt.Sprintf("no registration for %s", ctx.Contract), err)
	}

	reg := ctx.Scope.Implicit(ctx.Contract, func() *registry.Registration {
		m := lifetime.New(e.defaultLifetime)
		m.Claim()
		e.configureLifetime(m)

		ctx.Logger().Debug().
			Stringer("contract", ctx.Contract).
			Stringer("lifetime", m.Kind()).
			Msg("synthesized implicit registration")

		return &registry.Registration{
			Contract: ctx.Contract,
			Category: registry.Cache,
			MappedTo: t,
			Lifetime: m,
		}
	})
	return reg, reg.Owner, nil
}

func (e *engine) build(ctx *Context) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errResolutionFailed(ctx, fmt.Sprintf("panic while building %s: %v", ctx.Contract, r), nil)
		}
	}()

	p, err := e.pipelineFor(ctx)
	if err != nil {
		return nil, err
	}
	return p(ctx)
}

var contextType = ireflect.TypeOf[context.Context]()

func collectionElem(t reflect.Type) (reflect.Type, bool, bool) {
	if elem, ok := ireflect.SeqElem(t); ok {
		return elem, true, true
	}
	if elem, ok := ireflect.SliceElem(t); ok {
		return elem, false, true
	}
	return nil, false, false
}
