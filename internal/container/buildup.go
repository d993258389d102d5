package container

import (
	"context"
	"errors"
	"reflect"

	"github.com/danpasecinic/thimble/internal/contract"
	"github.com/danpasecinic/thimble/internal/registry"
	"github.com/danpasecinic/thimble/lifetime"
)

// BuildUp runs the injection stages over a value that already exists. The
// value is neither constructed nor stored in a lifetime. Members come from
// the registration of its type and name when that registration maps the
// type to itself.
func (c *Container) BuildUp(ctx context.Context, v any, name string, overrides ...Override) (any, error) {
	if v == nil {
		return nil, errResolutionFailed(nil, "cannot build up a nil value", nil)
	}

	t := reflect.TypeOf(v)
	rc := c.newRootContext(ctx, contract.New(t, name), overrides)
	rc.Registration = c.buildUpRegistration(rc.Contract)
	rc.BuildScope = c.scope

	out, err := c.engine.buildUp(rc, reflect.ValueOf(v))
	if err != nil {
		var e *Error
		if errors.As(err, &e) && e.Requested.IsZero() {
			e.Requested = rc.Contract
		}
		return nil, err
	}
	return out, nil
}

func (c *Container) buildUpRegistration(ct contract.Contract) *registry.Registration {
	if reg, _ := c.scope.Lookup(ct); reg != nil && reg.Category == registry.TypeMapping && reg.Target() == ct.Type {
		return reg
	}

	return &registry.Registration{
		Contract: ct,
		Category: registry.Cache,
		MappedTo: ct.Type,
		Lifetime: lifetime.NewTransient(),
		Owner:    c.scope,
	}
}

func (e *engine) buildUp(ctx *Context, v reflect.Value) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, errResolutionFailed(ctx, "panic while building up value", nil)
		}
	}()

	plan, err := e.newPlan(ctx.Registration)
	if err != nil {
		return nil, attach(ctx, err)
	}

	ctx.Existing = addressable(v)
	for _, stage := range e.stages {
		switch stage.(type) {
		case selectionStage, constructionStage:
			continue
		}

		step, err := stage.Plan(plan)
		if err != nil {
			return nil, attach(ctx, err)
		}
		if step == nil {
			continue
		}
		if err := step(ctx); err != nil {
			return nil, err
		}
	}
	return result(ctx), nil
}
