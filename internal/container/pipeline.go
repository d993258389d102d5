package container

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/danpasecinic/thimble/internal/contract"
	"github.com/danpasecinic/thimble/internal/registry"
	"github.com/danpasecinic/thimble/lifetime"
)

// Pipeline builds the value of one registration.
type Pipeline func(ctx *Context) (any, error)

// pipelineFor returns the build procedure for ctx.Registration. Compiled
// pipelines are cached on the registration until the registry chain of its
// owner or the introspector changes. Interpreted pipelines are planned again
// on every call.
func (e *engine) pipelineFor(ctx *Context) (Pipeline, error) {
	if e.pipeline == PipelineInterpreted {
		return e.interpret, nil
	}

	reg := ctx.Registration
	chainVersion := reg.Owner.ChainVersion()
	catalogVersion := e.introspector.Version()
	if cached := reg.Pipeline(); cached != nil &&
		cached.ChainVersion == chainVersion &&
		cached.CatalogVersion == catalogVersion {
		return cached.Build.(Pipeline), nil
	}

	p, err := e.compile(reg)
	if err != nil {
		return nil, attach(ctx, err)
	}
	reg.SetPipeline(&registry.PipelineCache{
		ChainVersion:   chainVersion,
		CatalogVersion: catalogVersion,
		Build:          p,
	})

	ctx.Logger().Debug().
		Stringer("contract", reg.Contract).
		Uint64("chain_version", chainVersion).
		Msg("compiled pipeline")
	return p, nil
}

func (e *engine) compile(reg *registry.Registration) (Pipeline, error) {
	if p, ok := e.shortcut(reg); ok {
		return p, nil
	}

	plan, err := e.newPlan(reg)
	if err != nil {
		return nil, err
	}

	var steps []Step
	for _, stage := range e.stages {
		step, err := stage.Plan(plan)
		if err != nil {
			return nil, err
		}
		if step != nil {
			steps = append(steps, step)
		}
	}

	return func(ctx *Context) (any, error) {
		ctx.Existing = reflect.Value{}
		for _, step := range steps {
			if err := step(ctx); err != nil {
				return nil, err
			}
		}
		return result(ctx), nil
	}, nil
}

// interpret plans and runs each stage in turn without keeping the plan.
func (e *engine) interpret(ctx *Context) (any, error) {
	reg := ctx.Registration
	if p, ok := e.shortcut(reg); ok {
		return p(ctx)
	}

	plan, err := e.newPlan(reg)
	if err != nil {
		return nil, attach(ctx, err)
	}

	ctx.Existing = reflect.Value{}
	for _, stage := range e.stages {
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

// shortcut returns the pipeline of registrations that do not go through
// the stages.
func (e *engine) shortcut(reg *registry.Registration) (Pipeline, bool) {
	switch reg.Category {
	case registry.Instance:
		return instancePipeline(reg), true
	case registry.Factory:
		return factoryPipeline(reg), true
	}
	if delegates(reg) {
		return delegatePipeline(contract.New(reg.MappedTo, reg.Contract.Name)), true
	}
	return nil, false
}

// delegates reports transient mappings that are resolved through the
// registration of the type they map to.
func delegates(reg *registry.Registration) bool {
	return reg.Category == registry.TypeMapping &&
		reg.MappedTo != nil && reg.MappedTo != reg.Contract.Type &&
		reg.Lifetime.Kind() == lifetime.Transient && !reg.Injects()
}

func instancePipeline(reg *registry.Registration) Pipeline {
	return func(ctx *Context) (any, error) {
		if reg.Instance == nil && reg.Lifetime.Kind() == lifetime.ExternallyControlled {
			return nil, errResolutionFailed(ctx, "externally controlled instance is no longer available", nil)
		}
		return reg.Instance, nil
	}
}

func factoryPipeline(reg *registry.Registration) Pipeline {
	return func(ctx *Context) (any, error) {
		v, err := reg.Factory(ctx.Context(), ctx, ctx.Contract.Type, ctx.Contract.Name)
		if err != nil {
			return nil, classify(ctx, "factory failed", err)
		}
		if v != nil && !reflect.TypeOf(v).AssignableTo(ctx.Contract.Type) {
			return nil, errResolutionFailed(ctx, fmt.Sprintf("factory returned %T", v), nil)
		}
		return v, nil
	}
}

func delegatePipeline(to contract.Contract) Pipeline {
	return func(ctx *Context) (any, error) {
		return ctx.container.engine.resolve(ctx.child(to))
	}
}

func result(ctx *Context) any {
	if !ctx.Existing.IsValid() {
		return nil
	}
	return ctx.Existing.Interface()
}

// attach fills the resolve chain of planning errors, which are created
// without a context.
func attach(ctx *Context, err error) error {
	var e *Error
	if errors.As(err, &e) && len(e.Chain) == 0 {
		e.Failing = ctx.Contract
		e.Chain = ctx.chain()
		return e
	}
	return classify(ctx, "planning build", err)
}
