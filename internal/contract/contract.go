package contract

import (
	"reflect"

	"github.com/cespare/xxhash/v2"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
)

// Definition is an open generic type definition. It is implemented by
// *introspect.Generic and kept as an interface so contracts stay free of the
// introspection package.
type Definition interface {
	Key() string
}

// Contract identifies a requested dependency: a type, or an open generic
// definition, plus an optional name. Contracts are comparable and can be used
// as map keys directly.
type Contract struct {
	Type    reflect.Type
	Generic Definition
	Name    string
	hash    uint32
}

func New(t reflect.Type, name string) Contract {
	return Contract{
		Type: t,
		Name: name,
		hash: hashOf(ireflect.TypeKey(t), name),
	}
}

func Open(def Definition, name string) Contract {
	return Contract{
		Generic: def,
		Name:    name,
		hash:    hashOf(def.Key(), name),
	}
}

func hashOf(typeKey, name string) uint32 {
	d := xxhash.New()
	_, _ = d.WriteString(typeKey)
	_, _ = d.WriteString("#")
	_, _ = d.WriteString(name)
	sum := d.Sum64()
	return uint32(sum>>32) ^ uint32(sum)
}

func (c Contract) Hash() uint32 {
	return c.hash
}

func (c Contract) IsOpen() bool {
	return c.Generic != nil
}

func (c Contract) IsZero() bool {
	return c.Type == nil && c.Generic == nil
}

func (c Contract) WithName(name string) Contract {
	if c.Generic != nil {
		return Open(c.Generic, name)
	}
	return New(c.Type, name)
}

func (c Contract) Default() Contract {
	return c.WithName("")
}

func (c Contract) TypeKey() string {
	if c.Generic != nil {
		return c.Generic.Key()
	}
	return ireflect.TypeKey(c.Type)
}

func (c Contract) String() string {
	var s string
	if c.Generic != nil {
		s = c.Generic.Key()
	} else {
		s = ireflect.TypeName(c.Type)
	}
	if c.Name != "" {
		s += "#" + c.Name
	}
	return s
}
