package container

import (
	"fmt"
	"reflect"

	"github.com/danpasecinic/thimble/internal/contract"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/registry"
	"github.com/danpasecinic/thimble/introspect"
	"github.com/danpasecinic/thimble/lifetime"
)

// bindGeneric finds an open registration for the instantiated generic type
// requested by ctx and returns the closed registration derived from it. The
// closed registration is kept on the open one, so its lifetime is shared by
// every later request of the same contract.
func (e *engine) bindGeneric(ctx *Context) (*registry.Registration, *registry.Scope, error) {
	c := ctx.Contract
	open, owner, args := e.openFor(ctx.Scope, c)
	if open == nil {
		return nil, nil, nil
	}
	if bound, ok := open.Bound(c); ok {
		return bound, owner, nil
	}

	closed, err := closeOpen(open, c, args)
	if err != nil {
		return nil, nil, attach(ctx, err)
	}

	m := open.Lifetime.Clone()
	m.Claim()
	e.configureLifetime(m)

	reg := open.BindClosed(c, closedRegistration(open, c, closed, m, owner))

	ctx.Logger().Debug().
		Stringer("contract", c).
		Stringer("open", open.Contract).
		Str("closed", ireflect.TypeName(closed)).
		Msg("bound open generic registration")
	return reg, owner, nil
}

// openFor looks up the open registration visible from scope that can serve
// the instantiated generic contract c, and the type arguments of c.
func (e *engine) openFor(scope *registry.Scope, c contract.Contract) (*registry.Registration, *registry.Scope, []reflect.Type) {
	if c.Type == nil {
		return nil, nil, nil
	}
	def, args, ok := e.introspector.GenericOf(c.Type)
	if !ok {
		return nil, nil, nil
	}
	open, owner := scope.Lookup(contract.Open(def, c.Name))
	if open == nil {
		return nil, nil, nil
	}
	return open, owner, args
}

// closeOpen instantiates the mapped definition of open over args. Failures
// wrap introspect.ErrConstraint and carry no resolve chain.
func closeOpen(open *registry.Registration, c contract.Contract, args []reflect.Type) (reflect.Type, error) {
	closed, err := open.MappedGeneric.Close(args...)
	if err != nil {
		return nil, errInvalidRegistration(nil, fmt.Sprintf("cannot bind %s to %s", open.Contract, c), err)
	}
	if !closed.AssignableTo(c.Type) {
		return nil, errInvalidRegistration(
			nil,
			fmt.Sprintf("%s bound from %s is not assignable to %s", ireflect.TypeName(closed), open.MappedGeneric, ireflect.TypeName(c.Type)),
			introspect.ErrConstraint,
		)
	}
	return closed, nil
}

func closedRegistration(open *registry.Registration, c contract.Contract, closed reflect.Type, m lifetime.Manager, owner *registry.Scope) *registry.Registration {
	return &registry.Registration{
		Contract:    c,
		Category:    registry.TypeMapping,
		MappedTo:    closed,
		Lifetime:    m,
		Constructor: open.Constructor,
		Members:     open.Members,
		Seq:         open.Seq,
		Owner:       owner,
	}
}
