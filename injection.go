package thimble

import (
	"reflect"

	"github.com/danpasecinic/thimble/internal/registry"
)

type (
	// Member tells a type mapping how to inject one constructor, field,
	// property or method.
	Member = registry.Member
	// Param is the value of one injected parameter, field or property.
	Param = registry.Param
)

// InjectionConstructor selects the constructor used to build the mapped
// type. A nil fn picks the introspected constructor whose parameter count
// matches params. Empty params resolve every parameter the default way.
func InjectionConstructor(fn any, params ...Param) Member {
	m := Member{
		Kind:   registry.MemberConstructor,
		Params: params,
	}
	if fn != nil {
		m.Func = reflect.ValueOf(fn)
	}
	return m
}

// InjectionField injects the exported field name. Without param the field
// is resolved by its type.
func InjectionField(name string, param ...Param) Member {
	return Member{
		Kind:   registry.MemberField,
		Name:   name,
		Params: param,
	}
}

// InjectionProperty injects through the setter SetName.
func InjectionProperty(name string, param ...Param) Member {
	return Member{
		Kind:   registry.MemberProperty,
		Name:   name,
		Params: param,
	}
}

// InjectionMethod calls the method name after construction.
func InjectionMethod(name string, params ...Param) Member {
	return Member{
		Kind:   registry.MemberMethod,
		Name:   name,
		Params: params,
	}
}

// Value supplies v as is.
func Value(v any) Param {
	return Param{
		Kind:  registry.ParamValue,
		Value: v,
		Type:  reflect.TypeOf(v),
	}
}

// Resolved resolves the value as t under name. A nil t uses the type of
// the injected member.
func Resolved(t reflect.Type, name string) Param {
	return Param{
		Kind: registry.ParamResolved,
		Type: t,
		Name: name,
	}
}

// Optional is Resolved that falls back to def, or to the zero value when
// def is nil, if the value cannot be resolved.
func Optional(t reflect.Type, name string, def any) Param {
	return Param{
		Kind:       registry.ParamOptional,
		Type:       t,
		Name:       name,
		Default:    def,
		HasDefault: def != nil,
	}
}

// ResolvedAs is Resolved for T.
func ResolvedAs[T any](name string) Param {
	return Resolved(reflect.TypeFor[T](), name)
}
