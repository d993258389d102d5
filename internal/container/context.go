package container

import (
	"context"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/danpasecinic/thimble/internal/contract"
	"github.com/danpasecinic/thimble/internal/registry"
	"github.com/danpasecinic/thimble/lifetime"
)

// resolveState is shared by every context of one top-level resolve.
type resolveState struct {
	id       uuid.UUID
	ctx      context.Context
	store    sync.Map
	logger   zerolog.Logger
	building sync.Map
}

// Context is the state of one build within a resolve. Contexts form a
// chain through Parent, from the dependency being built up to the contract
// that was requested.
type Context struct {
	Contract     contract.Contract
	Registration *registry.Registration
	// Scope is where the request was made.
	Scope *registry.Scope
	// BuildScope is where the value is built and dependencies are looked
	// up: the registration's scope for lifetimes owned by it, otherwise
	// Scope.
	BuildScope *registry.Scope
	Overrides  []Override
	Parent     *Context
	// Existing holds the value under construction once the construction
	// step ran. Later stages may replace it.
	Existing reflect.Value

	container *Container
	state     *resolveState
	depth     int
}

func (c *Container) newRootContext(ctx context.Context, ct contract.Contract, overrides []Override) *Context {
	if ctx == nil {
		ctx = context.Background()
	}

	id := uuid.New()
	state := &resolveState{
		id:     id,
		ctx:    ctx,
		logger: c.engine.logger.With().Str("resolve_id", id.String()).Logger(),
	}
	return &Context{
		Contract:  ct,
		Scope:     c.scope,
		Overrides: overrides,
		container: c,
		state:     state,
	}
}

func (ctx *Context) child(ct contract.Contract) *Context {
	scope := ctx.BuildScope
	if scope == nil {
		scope = ctx.Scope
	}
	return &Context{
		Contract:  ct,
		Scope:     scope,
		Overrides: ctx.Overrides,
		Parent:    ctx,
		container: ctx.container,
		state:     ctx.state,
		depth:     ctx.depth + 1,
	}
}

// ResolveID identifies the top-level resolve this context belongs to.
func (ctx *Context) ResolveID() uuid.UUID {
	return ctx.state.id
}

func (ctx *Context) Logger() *zerolog.Logger {
	return &ctx.state.logger
}

func (ctx *Context) Depth() int {
	return ctx.depth
}

// Lifetime is the disposables list values built by this context belong to.
func (ctx *Context) Lifetime() *lifetime.Container {
	if ctx.BuildScope != nil {
		return ctx.BuildScope.Lifetime()
	}
	return ctx.Scope.Lifetime()
}

func (ctx *Context) ResolveStore() *sync.Map {
	return &ctx.state.store
}

func (ctx *Context) Context() context.Context {
	return ctx.state.ctx
}

// Resolve resolves a dependency of the value this context builds.
func (ctx *Context) Resolve(t reflect.Type, name string) (any, error) {
	return ctx.container.engine.resolve(ctx.child(contract.New(t, name)))
}

func (ctx *Context) IsRegistered(t reflect.Type, name string) bool {
	scope := ctx.BuildScope
	if scope == nil {
		scope = ctx.Scope
	}
	return ctx.container.engine.isRegistered(scope, t, name)
}

// chain returns the contracts from the outermost request to ctx.
func (ctx *Context) chain() []contract.Contract {
	var out []contract.Contract
	for cur := ctx; cur != nil; cur = cur.Parent {
		out = append(out, cur.Contract)
	}
	slices.Reverse(out)
	return out
}

// building reports whether an ancestor is already building ct.
func (ctx *Context) building(ct contract.Contract) bool {
	for cur := ctx.Parent; cur != nil; cur = cur.Parent {
		if cur.Contract == ct {
			return true
		}
	}
	return false
}

// target is the type being built, used to scope overrides with OnType.
func (ctx *Context) target() reflect.Type {
	if ctx.Registration != nil {
		if t := ctx.Registration.Target(); t != nil {
			return t
		}
	}
	return ctx.Contract.Type
}

var _ lifetime.Scope = (*Context)(nil)
var _ registry.Resolver = (*Context)(nil)
