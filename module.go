package thimble

import (
	"reflect"

	"github.com/danpasecinic/thimble/introspect"
)

// Module groups registrations so they can be applied to several
// containers. Submodules are applied first, then the module's own
// registrations in the order they were added.
type Module struct {
	name       string
	entries    []func(c *Container) error
	submodules []*Module
}

func NewModule(name string) *Module {
	return &Module{
		name: name,
	}
}

func (m *Module) Name() string {
	return m.name
}

func (m *Module) add(register func(c *Container) error) *Module {
	m.entries = append(m.entries, register)
	return m
}

func (m *Module) Type(from, to reflect.Type, opts ...RegisterOption) *Module {
	return m.add(func(c *Container) error {
		return c.RegisterType(from, to, opts...)
	})
}

func (m *Module) Instance(t reflect.Type, instance any, opts ...RegisterOption) *Module {
	return m.add(func(c *Container) error {
		return c.RegisterInstance(t, instance, opts...)
	})
}

func (m *Module) Factory(t reflect.Type, factory FactoryFunc, opts ...RegisterOption) *Module {
	return m.add(func(c *Container) error {
		return c.RegisterFactory(t, factory, opts...)
	})
}

func (m *Module) Generic(from, to *introspect.Generic, opts ...RegisterOption) *Module {
	return m.add(func(c *Container) error {
		return c.RegisterGeneric(from, to, opts...)
	})
}

func (m *Module) Include(submodule *Module) *Module {
	m.submodules = append(m.submodules, submodule)
	return m
}

func (m *Module) apply(c *Container) error {
	for _, sub := range m.submodules {
		if err := sub.apply(c); err != nil {
			return err
		}
	}

	for _, register := range m.entries {
		if err := register(c); err != nil {
			return err
		}
	}
	return nil
}

// Apply registers the content of each module in c. It stops at the first
// failing registration; registrations made before it are kept.
func (c *Container) Apply(modules ...*Module) error {
	for _, m := range modules {
		if err := m.apply(c); err != nil {
			return errModuleApplyFailed(m.name, err)
		}
	}
	return nil
}

func errModuleApplyFailed(moduleName string, cause error) *Error {
	return errInvalidRegistration("failed to apply module "+moduleName, cause)
}

func ModuleRegister[T any](m *Module, opts ...RegisterOption) *Module {
	return m.add(func(c *Container) error {
		return Register[T](c, opts...)
	})
}

func ModuleRegisterType[From, To any](m *Module, opts ...RegisterOption) *Module {
	return m.add(func(c *Container) error {
		return RegisterType[From, To](c, opts...)
	})
}

func ModuleRegisterInstance[T any](m *Module, instance T, opts ...RegisterOption) *Module {
	return m.add(func(c *Container) error {
		return RegisterInstance(c, instance, opts...)
	})
}

func ModuleRegisterFactory[T any](m *Module, factory Factory[T], opts ...RegisterOption) *Module {
	return m.add(func(c *Container) error {
		return RegisterFactory(c, factory, opts...)
	})
}
