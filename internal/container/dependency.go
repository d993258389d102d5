package container

import (
	"fmt"
	"reflect"

	"github.com/danpasecinic/thimble/internal/contract"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/registry"
	"github.com/danpasecinic/thimble/introspect"
)

type DependencyKind int

const (
	DependencyParameter DependencyKind = iota
	DependencyField
	DependencyProperty
)

func (k DependencyKind) String() string {
	switch k {
	case DependencyField:
		return "field"
	case DependencyProperty:
		return "property"
	default:
		return "parameter"
	}
}

// Dependency is one value a build needs: a constructor or method
// parameter, a field, or a property.
type Dependency struct {
	Kind DependencyKind
	// Name is the member or parameter name overrides match against.
	Name string
	Type reflect.Type
	// Contract is the registration name the value is resolved under.
	Contract   string
	Optional   bool
	ByRef      bool
	Default    any
	HasDefault bool
	// Explicit is set when the registration supplied the value or how to
	// resolve it.
	Explicit *registry.Param
}

func paramDependency(p introspect.Param) Dependency {
	return Dependency{
		Kind:     DependencyParameter,
		Name:     p.Name,
		Type:     p.Type,
		Contract: p.Dependency,
		Optional: p.Optional,
		ByRef:    p.ByRef,
	}
}

func paramDependencies(params []introspect.Param, explicit []registry.Param) []Dependency {
	deps := make([]Dependency, len(params))
	for i, p := range params {
		deps[i] = paramDependency(p)
		if len(explicit) == len(params) {
			deps[i].apply(&explicit[i])
		}
	}
	return deps
}

func (d *Dependency) apply(p *registry.Param) {
	d.Explicit = p
	switch p.Kind {
	case registry.ParamResolved, registry.ParamOptional:
		d.Contract = p.Name
		d.Optional = p.Kind == registry.ParamOptional
		d.Default = p.Default
		d.HasDefault = p.HasDefault
	}
}

// resolveType is the type the dependency is looked up as.
func (d *Dependency) resolveType() reflect.Type {
	if d.Explicit != nil && d.Explicit.Kind != registry.ParamValue && d.Explicit.Type != nil {
		return d.Explicit.Type
	}
	return d.Type
}

func (d *Dependency) fromValue() bool {
	return d.Explicit != nil && d.Explicit.Kind == registry.ParamValue
}

// resolveDependency produces the value for d while ctx builds its
// registration. Overrides win over explicit values, explicit values over
// resolution.
func (ctx *Context) resolveDependency(d *Dependency) (reflect.Value, error) {
	if v, ok := ctx.override(d); ok {
		return ctx.convert(d, v)
	}
	if d.fromValue() {
		return ctx.convert(d, d.Explicit.Value)
	}

	v, err := ctx.container.engine.resolve(ctx.child(contract.New(d.resolveType(), d.Contract)))
	if err != nil {
		if d.Optional && IsResolutionFailed(err) {
			ctx.Logger().Debug().
				Stringer("contract", ctx.Contract).
				Str(d.Kind.String(), d.Name).
				Err(err).
				Msg("optional dependency not resolved")

			if d.HasDefault {
				return ctx.convert(d, d.Default)
			}
			return reflect.Zero(d.Type), nil
		}
		return reflect.Value{}, err
	}
	return ctx.convert(d, v)
}

func (ctx *Context) convert(d *Dependency, v any) (reflect.Value, error) {
	rv, ok := ireflect.AssignableValue(v, d.Type)
	if !ok {
		return reflect.Value{}, errResolutionFailed(
			ctx,
			fmt.Sprintf("%T cannot be used for %s %q of type %s", v, d.Kind, d.Name, ireflect.TypeName(d.Type)),
			nil,
		)
	}
	return rv, nil
}
