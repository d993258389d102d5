package thimble

import (
	"reflect"

	"github.com/danpasecinic/thimble/internal/container"
)

// Override replaces a dependency for the duration of one resolve.
type Override = container.Override

func ParameterOverride(name string, v any) Override {
	return Override{Kind: container.OverrideParameter, Name: name, Value: v}
}

func FieldOverride(name string, v any) Override {
	return Override{Kind: container.OverrideField, Name: name, Value: v}
}

func PropertyOverride(name string, v any) Override {
	return Override{Kind: container.OverrideProperty, Name: name, Value: v}
}

// DependencyOverride replaces every dependency of type t.
func DependencyOverride(t reflect.Type, v any) Override {
	return Override{Kind: container.OverrideDependency, Type: t, Value: v}
}

// DependencyOverrideFor is DependencyOverride for T.
func DependencyOverrideFor[T any](v T) Override {
	return DependencyOverride(reflect.TypeFor[T](), v)
}
