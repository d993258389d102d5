package thimble

import (
	"context"
	"reflect"
)

// Resolve builds or returns the value registered for t under name.
func (c *Container) Resolve(t reflect.Type, name string, overrides ...Override) (any, error) {
	return c.internal.Resolve(context.Background(), t, name, overrides...)
}

// ResolveCtx is Resolve with ctx bounding lifetime waits. ctx is also
// handed to factories.
func (c *Container) ResolveCtx(ctx context.Context, t reflect.Type, name string, overrides ...Override) (any, error) {
	return c.internal.Resolve(ctx, t, name, overrides...)
}

// ResolveAll resolves every named registration of elem visible from c.
func (c *Container) ResolveAll(elem reflect.Type, overrides ...Override) ([]any, error) {
	return c.internal.ResolveAll(context.Background(), elem, overrides...)
}

func Resolve[T any](c *Container, overrides ...Override) (T, error) {
	return ResolveNamedCtx[T](context.Background(), c, "", overrides...)
}

func ResolveCtx[T any](ctx context.Context, c *Container, overrides ...Override) (T, error) {
	return ResolveNamedCtx[T](ctx, c, "", overrides...)
}

func ResolveNamed[T any](c *Container, name string, overrides ...Override) (T, error) {
	return ResolveNamedCtx[T](context.Background(), c, name, overrides...)
}

func ResolveNamedCtx[T any](ctx context.Context, c *Container, name string, overrides ...Override) (T, error) {
	v, err := c.internal.Resolve(ctx, reflect.TypeFor[T](), name, overrides...)
	if err != nil {
		var zero T
		return zero, err
	}
	return typed[T](v)
}

func MustResolve[T any](c *Container, overrides ...Override) T {
	v, err := Resolve[T](c, overrides...)
	if err != nil {
		panic(err)
	}
	return v
}

func MustResolveNamed[T any](c *Container, name string, overrides ...Override) T {
	v, err := ResolveNamed[T](c, name, overrides...)
	if err != nil {
		panic(err)
	}
	return v
}

func TryResolve[T any](c *Container) (T, bool) {
	v, err := Resolve[T](c)
	return v, err == nil
}

func TryResolveNamed[T any](c *Container, name string) (T, bool) {
	v, err := ResolveNamed[T](c, name)
	return v, err == nil
}

// ResolveAll resolves every named registration of T, in registration
// order.
func ResolveAll[T any](c *Container, overrides ...Override) ([]T, error) {
	v, err := c.internal.Resolve(context.Background(), reflect.TypeFor[[]T](), "", overrides...)
	if err != nil {
		return nil, err
	}
	return typed[[]T](v)
}

// From resolves T through the Resolver handed to a factory.
func From[T any](r Resolver, name string) (T, error) {
	v, err := r.Resolve(reflect.TypeFor[T](), name)
	if err != nil {
		var zero T
		return zero, err
	}
	return typed[T](v)
}

func IsRegistered[T any](c *Container) bool {
	return c.IsRegistered(reflect.TypeFor[T](), "")
}

func IsRegisteredNamed[T any](c *Container, name string) bool {
	return c.IsRegistered(reflect.TypeFor[T](), name)
}

func typed[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, errTypeMismatch(typeName[T](), v)
	}
	return t, nil
}

// Maybe holds a value that may be absent.
type Maybe[T any] struct {
	value   T
	present bool
}

func (m Maybe[T]) Get() (T, bool) {
	return m.value, m.present
}

func (m Maybe[T]) Value() T {
	return m.value
}

func (m Maybe[T]) Present() bool {
	return m.present
}

func (m Maybe[T]) OrElse(defaultValue T) T {
	if m.present {
		return m.value
	}
	return defaultValue
}

func (m Maybe[T]) OrElseFunc(fn func() T) T {
	if m.present {
		return m.value
	}
	return fn()
}

func Some[T any](value T) Maybe[T] {
	return Maybe[T]{value: value, present: true}
}

func None[T any]() Maybe[T] {
	return Maybe[T]{}
}

// ResolveOptional resolves T, returning None when it cannot be resolved.
// Errors other than resolution failures, such as cycles, are returned.
func ResolveOptional[T any](c *Container, overrides ...Override) (Maybe[T], error) {
	return ResolveOptionalNamed[T](c, "", overrides...)
}

func ResolveOptionalNamed[T any](c *Container, name string, overrides ...Override) (Maybe[T], error) {
	v, err := ResolveNamed[T](c, name, overrides...)
	if err != nil {
		if IsResolutionFailed(err) {
			return None[T](), nil
		}
		return None[T](), err
	}
	return Some(v), nil
}
