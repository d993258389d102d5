package container

import (
	"reflect"
)

type OverrideKind int

const (
	// OverrideParameter replaces a constructor or method parameter by name.
	OverrideParameter OverrideKind = iota
	OverrideField
	OverrideProperty
	// OverrideDependency replaces every dependency of a type.
	OverrideDependency
)

// Override supplies a value for a dependency during one resolve. Overrides
// apply to every build in the resolve unless Target narrows them to builds
// of one type.
type Override struct {
	Kind  OverrideKind
	Name  string
	Type  reflect.Type
	Value any
	// Target restricts the override to builds of this type.
	Target reflect.Type
}

// OnType returns o restricted to builds of t.
func (o Override) OnType(t reflect.Type) Override {
	o.Target = t
	return o
}

func (o *Override) matches(target reflect.Type, d *Dependency) bool {
	if o.Target != nil && o.Target != target {
		return false
	}

	switch o.Kind {
	case OverrideParameter:
		return d.Kind == DependencyParameter && d.Name != "" && d.Name == o.Name
	case OverrideField:
		return d.Kind == DependencyField && d.Name == o.Name
	case OverrideProperty:
		return d.Kind == DependencyProperty && d.Name == o.Name
	case OverrideDependency:
		return o.Type == d.Type && (o.Name == "" || o.Name == d.Contract)
	}
	return false
}

// override returns the value of the last override matching d.
func (ctx *Context) override(d *Dependency) (any, bool) {
	if len(ctx.Overrides) == 0 {
		return nil, false
	}

	target := ctx.target()
	for i := len(ctx.Overrides) - 1; i >= 0; i-- {
		if ctx.Overrides[i].matches(target, d) {
			return ctx.Overrides[i].Value, true
		}
	}
	return nil, false
}
