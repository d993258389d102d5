// Package thimbletest wraps a container for tests: failures stop the test
// and the container is disposed when the test ends.
package thimbletest

import (
	"reflect"

	"github.com/danpasecinic/thimble"
)

type TB interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Cleanup(f func())
}

type TestContainer struct {
	*thimble.Container
	tb TB
}

// New returns a root container disposed at the end of the test.
func New(tb TB, opts ...thimble.Option) *TestContainer {
	tb.Helper()

	c := thimble.New(opts...)
	tc := &TestContainer{
		Container: c,
		tb:        tb,
	}

	tb.Cleanup(func() {
		if err := c.Close(); err != nil {
			tb.Fatalf("failed to dispose container: %v", err)
		}
	})

	return tc
}

// Child returns a child container disposed at the end of the test, before
// its parent.
func (tc *TestContainer) Child(name string) *TestContainer {
	tc.tb.Helper()

	child := tc.CreateChildContainer(name)
	tc.tb.Cleanup(func() {
		if err := child.Close(); err != nil {
			tc.tb.Fatalf("failed to dispose child container %s: %v", name, err)
		}
	})

	return &TestContainer{Container: child, tb: tc.tb}
}

func (tc *TestContainer) RequireValidate() {
	tc.tb.Helper()

	if err := tc.Validate(); err != nil {
		tc.tb.Fatalf("container validation failed: %v", err)
	}
}

// Replace registers value for T, replacing any registration of T in this
// container. The container does not dispose value.
func Replace[T any](tc *TestContainer, value T, opts ...thimble.RegisterOption) {
	tc.tb.Helper()

	opts = append(opts, thimble.AsTransient())
	if err := thimble.RegisterInstance(tc.Container, value, opts...); err != nil {
		tc.tb.Fatalf("failed to replace %s: %v", typeName[T](), err)
	}
}

func ReplaceNamed[T any](tc *TestContainer, name string, value T) {
	tc.tb.Helper()
	Replace(tc, value, thimble.WithName(name))
}

func AssertRegistered[T any](tc *TestContainer) {
	tc.tb.Helper()

	if !thimble.IsRegistered[T](tc.Container) {
		tc.tb.Fatalf("expected %s to be registered", typeName[T]())
	}
}

func AssertRegisteredNamed[T any](tc *TestContainer, name string) {
	tc.tb.Helper()

	if !thimble.IsRegisteredNamed[T](tc.Container, name) {
		tc.tb.Fatalf("expected %s#%s to be registered", typeName[T](), name)
	}
}

func AssertNotRegistered[T any](tc *TestContainer) {
	tc.tb.Helper()

	if thimble.IsRegistered[T](tc.Container) {
		tc.tb.Fatalf("expected %s not to be registered", typeName[T]())
	}
}

func MustResolve[T any](tc *TestContainer, overrides ...thimble.Override) T {
	tc.tb.Helper()

	v, err := thimble.Resolve[T](tc.Container, overrides...)
	if err != nil {
		tc.tb.Fatalf("failed to resolve %s: %v", typeName[T](), err)
	}
	return v
}

func MustResolveNamed[T any](tc *TestContainer, name string, overrides ...thimble.Override) T {
	tc.tb.Helper()

	v, err := thimble.ResolveNamed[T](tc.Container, name, overrides...)
	if err != nil {
		tc.tb.Fatalf("failed to resolve %s#%s: %v", typeName[T](), name, err)
	}
	return v
}

func MustRegister[T any](tc *TestContainer, opts ...thimble.RegisterOption) {
	tc.tb.Helper()

	if err := thimble.Register[T](tc.Container, opts...); err != nil {
		tc.tb.Fatalf("failed to register %s: %v", typeName[T](), err)
	}
}

func MustRegisterType[From, To any](tc *TestContainer, opts ...thimble.RegisterOption) {
	tc.tb.Helper()

	if err := thimble.RegisterType[From, To](tc.Container, opts...); err != nil {
		tc.tb.Fatalf("failed to register %s as %s: %v", typeName[To](), typeName[From](), err)
	}
}

func MustRegisterInstance[T any](tc *TestContainer, value T, opts ...thimble.RegisterOption) {
	tc.tb.Helper()

	if err := thimble.RegisterInstance(tc.Container, value, opts...); err != nil {
		tc.tb.Fatalf("failed to register instance %s: %v", typeName[T](), err)
	}
}

func MustRegisterFactory[T any](tc *TestContainer, factory thimble.Factory[T], opts ...thimble.RegisterOption) {
	tc.tb.Helper()

	if err := thimble.RegisterFactory(tc.Container, factory, opts...); err != nil {
		tc.tb.Fatalf("failed to register factory %s: %v", typeName[T](), err)
	}
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
