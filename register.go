package thimble

import (
	"context"
	"fmt"
	"reflect"

	"github.com/danpasecinic/thimble/internal/contract"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/registry"
	"github.com/danpasecinic/thimble/introspect"
	"github.com/danpasecinic/thimble/lifetime"
)

type (
	// Resolver is handed to factories. Resolves made through it join the
	// resolve that invoked the factory.
	Resolver    = registry.Resolver
	FactoryFunc = registry.FactoryFunc
)

// Factory builds a T for RegisterFactory.
type Factory[T any] func(ctx context.Context, r Resolver) (T, error)

type RegisterOption func(*registerConfig)

type registerConfig struct {
	name     string
	lifetime lifetime.Manager
	members  []Member
}

func WithName(name string) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.name = name
	}
}

// WithLifetime sets the lifetime manager of the registration. A manager
// serves one registration only.
func WithLifetime(m lifetime.Manager) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.lifetime = m
	}
}

// WithInjection attaches injection members. They apply to type mappings
// only.
func WithInjection(members ...Member) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.members = append(cfg.members, members...)
	}
}

func applyRegisterOptions(opts []RegisterOption) *registerConfig {
	cfg := &registerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (cfg *registerConfig) registration(ct contract.Contract, category registry.Category) *registry.Registration {
	reg := &registry.Registration{
		Contract: ct,
		Category: category,
		Lifetime: cfg.lifetime,
	}
	for _, m := range cfg.members {
		reg.Members = append(reg.Members, registry.Member(m))
	}
	return reg
}

// RegisterType maps from to to. A nil to registers from as its own
// implementation.
func (c *Container) RegisterType(from, to reflect.Type, opts ...RegisterOption) error {
	if from == nil {
		return errInvalidRegistration("cannot register a nil type", nil)
	}
	cfg := applyRegisterOptions(opts)

	reg := cfg.registration(contract.New(from, cfg.name), registry.TypeMapping)
	reg.MappedTo = to
	return c.internal.Register(reg)
}

// RegisterInstance stores instance under t. The container disposes it
// unless the lifetime is externally controlled.
func (c *Container) RegisterInstance(t reflect.Type, instance any, opts ...RegisterOption) error {
	if t == nil {
		if instance == nil {
			return errInvalidRegistration("cannot register a nil instance without a type", nil)
		}
		t = reflect.TypeOf(instance)
	}
	cfg := applyRegisterOptions(opts)
	if len(cfg.members) > 0 {
		return errInvalidRegistration("injection members cannot be applied to an instance", nil)
	}

	reg := cfg.registration(contract.New(t, cfg.name), registry.Instance)
	reg.Instance = instance
	if reg.Lifetime == nil {
		reg.Lifetime = lifetime.NewContainerControlled()
	}
	return c.internal.Register(reg)
}

func (c *Container) RegisterFactory(t reflect.Type, factory FactoryFunc, opts ...RegisterOption) error {
	if t == nil {
		return errInvalidRegistration("cannot register a nil type", nil)
	}
	cfg := applyRegisterOptions(opts)
	if len(cfg.members) > 0 {
		return errInvalidRegistration("injection members cannot be applied to a factory", nil)
	}

	reg := cfg.registration(contract.New(t, cfg.name), registry.Factory)
	reg.Factory = factory
	return c.internal.Register(reg)
}

// RegisterGeneric maps the open definition from to to. Closed requests for
// instantiations of from build the matching instantiation of to.
func (c *Container) RegisterGeneric(from, to *introspect.Generic, opts ...RegisterOption) error {
	if from == nil || to == nil {
		return errInvalidRegistration("cannot register a nil generic definition", nil)
	}
	cfg := applyRegisterOptions(opts)

	reg := cfg.registration(contract.Open(from, cfg.name), registry.TypeMapping)
	reg.MappedGeneric = to
	return c.internal.Register(reg)
}

// Register registers T as its own implementation.
func Register[T any](c *Container, opts ...RegisterOption) error {
	return c.RegisterType(reflect.TypeFor[T](), nil, opts...)
}

func MustRegister[T any](c *Container, opts ...RegisterOption) {
	if err := Register[T](c, opts...); err != nil {
		panic(err)
	}
}

// RegisterType maps From to To.
func RegisterType[From, To any](c *Container, opts ...RegisterOption) error {
	return c.RegisterType(reflect.TypeFor[From](), reflect.TypeFor[To](), opts...)
}

func MustRegisterType[From, To any](c *Container, opts ...RegisterOption) {
	if err := RegisterType[From, To](c, opts...); err != nil {
		panic(err)
	}
}

func RegisterInstance[T any](c *Container, instance T, opts ...RegisterOption) error {
	return c.RegisterInstance(reflect.TypeFor[T](), instance, opts...)
}

func MustRegisterInstance[T any](c *Container, instance T, opts ...RegisterOption) {
	if err := RegisterInstance(c, instance, opts...); err != nil {
		panic(err)
	}
}

func RegisterFactory[T any](c *Container, factory Factory[T], opts ...RegisterOption) error {
	if factory == nil {
		return errInvalidRegistration(fmt.Sprintf("nil factory for %s", typeName[T]()), nil)
	}
	return c.RegisterFactory(
		reflect.TypeFor[T](),
		func(ctx context.Context, r Resolver, _ reflect.Type, _ string) (any, error) {
			return factory(ctx, r)
		},
		opts...,
	)
}

func MustRegisterFactory[T any](c *Container, factory Factory[T], opts ...RegisterOption) {
	if err := RegisterFactory(c, factory, opts...); err != nil {
		panic(err)
	}
}

func typeName[T any]() string {
	return ireflect.TypeName(reflect.TypeFor[T]())
}

func typeNameOf(v any) string {
	return ireflect.TypeName(reflect.TypeOf(v))
}
