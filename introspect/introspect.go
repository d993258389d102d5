// Package introspect describes how values of a type are built and which of
// their members receive injected dependencies.
//
// Go has no constructors, overloads or properties, so the descriptors use
// Go-shaped stand-ins:
//
//   - a constructor is any function returning T or (T, error), added to a
//     Catalog with AddConstructor; struct and pointer-to-struct types without
//     one get a zero-value constructor
//   - a field is an exported struct field, injected when it carries a
//     `thimble:"name,optional"` tag or was marked with InjectField
//   - a property is a SetX setter method, injected when marked with
//     InjectProperty
//   - a method is any exported method, injected when marked with
//     InjectMethod
//
// Open generic types are modelled by Generic definitions whose closed
// instantiations are bound explicitly, since Go cannot instantiate generic
// types at run time.
package introspect

import (
	"errors"
	"reflect"
)

var (
	// ErrNotBuildable means a type has no constructor and no zero-value
	// construction (interfaces, scalars, funcs).
	ErrNotBuildable = errors.New("type is not buildable")

	// ErrConstraint means a generic definition cannot be closed over the
	// given type arguments.
	ErrConstraint = errors.New("generic constraint not satisfied")

	// ErrInvalidMember means a constructor, method or member cannot be used
	// for injection.
	ErrInvalidMember = errors.New("member cannot be used for injection")
)

// Introspector is what the resolution engine consumes. Catalog is the
// default implementation.
type Introspector interface {
	Describe(t reflect.Type) (*TypeInfo, error)
	GenericOf(t reflect.Type) (*Generic, []reflect.Type, bool)
	// Version changes whenever a descriptor may have changed.
	Version() uint64
}

type Param struct {
	// Name identifies the parameter for overrides. Unnamed parameters can
	// only be overridden by type.
	Name string
	Type reflect.Type
	// Dependency is the registration name the value is resolved under.
	Dependency string
	Optional   bool
	ByRef      bool
}

type Constructor struct {
	// Func is invalid for the zero-value constructor.
	Func         reflect.Value
	Params       []Param
	ReturnsError bool
	// Index is the declaration order within the type.
	Index int
}

func (c *Constructor) IsZero() bool {
	return !c.Func.IsValid()
}

type Field struct {
	Name       string
	Type       reflect.Type
	Index      []int
	Inject     bool
	Dependency string
	Optional   bool
}

type Property struct {
	Name         string
	Setter       string
	Type         reflect.Type
	ReturnsError bool
	Inject       bool
	Dependency   string
	Optional     bool
}

type Method struct {
	Name         string
	Params       []Param
	ReturnsError bool
	Inject       bool
}

// TypeInfo is the immutable descriptor of one type.
type TypeInfo struct {
	Type         reflect.Type
	Constructors []Constructor
	Fields       []Field
	Properties   []Property
	Methods      []Method
}

func (ti *TypeInfo) Buildable() bool {
	return ti != nil && len(ti.Constructors) > 0
}

func (ti *TypeInfo) Field(name string) (*Field, bool) {
	for i := range ti.Fields {
		if ti.Fields[i].Name == name {
			return &ti.Fields[i], true
		}
	}
	return nil, false
}

func (ti *TypeInfo) Property(name string) (*Property, bool) {
	for i := range ti.Properties {
		if ti.Properties[i].Name == name {
			return &ti.Properties[i], true
		}
	}
	return nil, false
}

func (ti *TypeInfo) Method(name string) (*Method, bool) {
	for i := range ti.Methods {
		if ti.Methods[i].Name == name {
			return &ti.Methods[i], true
		}
	}
	return nil, false
}
