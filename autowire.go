package thimble

import (
	"context"
	"fmt"
	"reflect"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/introspect"
)

// TagKey is the struct tag that marks fields for injection:
//
//	Log  Logger `thimble:""`
//	Repo Store  `thimble:"primary,optional"`
const TagKey = introspect.TagKey

// RegisterConstructor registers T as built by constructor, a function
// returning a value assignable to T and optionally an error. Its parameters
// are resolved like those of introspected constructors. params fill them
// positionally when given.
func RegisterConstructor[T any](c *Container, constructor any, params []Param, opts ...RegisterOption) error {
	if constructor == nil {
		return errInvalidRegistration("nil constructor for "+typeName[T](), nil)
	}
	ft := reflect.TypeOf(constructor)
	if ft.Kind() != reflect.Func {
		return errInvalidRegistration(fmt.Sprintf("constructor must be a function, got %s", ft), nil)
	}
	if ft.NumOut() == 0 || ft.NumOut() > 2 || (ft.NumOut() == 2 && !ireflect.ReturnsError(ft)) {
		return errInvalidRegistration(fmt.Sprintf("constructor %s must return T or (T, error)", ft), nil)
	}

	want := reflect.TypeFor[T]()
	out := ft.Out(0)
	if !out.AssignableTo(want) {
		return errInvalidRegistration(fmt.Sprintf("constructor returns %s, expected %s", out, want), nil)
	}
	if params != nil && len(params) != ft.NumIn() {
		return errInvalidRegistration(
			fmt.Sprintf("constructor %s takes %d parameters, %d given", ft, ft.NumIn(), len(params)),
			nil,
		)
	}

	opts = append(opts, WithInjection(InjectionConstructor(constructor, params...)))
	return c.RegisterType(want, out, opts...)
}

func MustRegisterConstructor[T any](c *Container, constructor any, params []Param, opts ...RegisterOption) {
	if err := RegisterConstructor[T](c, constructor, params, opts...); err != nil {
		panic(err)
	}
}

// BuildUp injects the tagged or registered members of v without
// constructing it. Pass a pointer to have fields set in place.
func (c *Container) BuildUp(v any, name string, overrides ...Override) (any, error) {
	return c.internal.BuildUp(context.Background(), v, name, overrides...)
}

func (c *Container) BuildUpCtx(ctx context.Context, v any, name string, overrides ...Override) (any, error) {
	return c.internal.BuildUp(ctx, v, name, overrides...)
}

// BuildUp is the typed form of Container.BuildUp.
func BuildUp[T any](c *Container, v T, overrides ...Override) (T, error) {
	out, err := c.internal.BuildUp(context.Background(), v, "", overrides...)
	if err != nil {
		var zero T
		return zero, err
	}
	return typed[T](out)
}
