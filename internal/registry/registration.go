package registry

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/danpasecinic/thimble/internal/contract"
	"github.com/danpasecinic/thimble/introspect"
	"github.com/danpasecinic/thimble/lifetime"
)

type Category int

const (
	TypeMapping Category = iota
	Instance
	Factory
	Cache
)

func (c Category) String() string {
	switch c {
	case TypeMapping:
		return "type"
	case Instance:
		return "instance"
	case Factory:
		return "factory"
	case Cache:
		return "implicit"
	default:
		return "unknown"
	}
}

// Resolver is what factories receive. It resolves within the resolve that
// invoked the factory.
type Resolver interface {
	Resolve(t reflect.Type, name string) (any, error)
	IsRegistered(t reflect.Type, name string) bool
	Context() context.Context
}

type FactoryFunc func(ctx context.Context, r Resolver, t reflect.Type, name string) (any, error)

type ParamKind int

const (
	ParamValue ParamKind = iota
	ParamResolved
	ParamOptional
)

// Param is a parameter supplied by the registration instead of the
// introspected default.
type Param struct {
	Kind       ParamKind
	Value      any
	Type       reflect.Type
	Name       string
	Default    any
	HasDefault bool
}

type MemberKind int

const (
	MemberConstructor MemberKind = iota
	MemberField
	MemberProperty
	MemberMethod
)

func (k MemberKind) String() string {
	switch k {
	case MemberConstructor:
		return "constructor"
	case MemberField:
		return "field"
	case MemberProperty:
		return "property"
	default:
		return "method"
	}
}

// Member is an injection member attached to a registration.
type Member struct {
	Kind   MemberKind
	Name   string
	Func   reflect.Value
	Params []Param
}

// PipelineCache is a compiled build procedure and the versions it was
// compiled against.
type PipelineCache struct {
	ChainVersion   uint64
	CatalogVersion uint64
	Build          any
}

type Registration struct {
	Contract      contract.Contract
	Category      Category
	MappedTo      reflect.Type
	MappedGeneric *introspect.Generic
	Instance      any
	Factory       FactoryFunc
	Lifetime      lifetime.Manager
	Constructor   *Member
	Members       []Member
	Seq           uint64
	Previous      *Registration
	Owner         *Scope

	pipeline atomic.Pointer[PipelineCache]

	mu    sync.Mutex
	bound map[contract.Contract]*Registration
}

func (r *Registration) Pipeline() *PipelineCache {
	return r.pipeline.Load()
}

func (r *Registration) SetPipeline(p *PipelineCache) {
	r.pipeline.Store(p)
}

func (r *Registration) IsOpen() bool {
	return r.Contract.IsOpen()
}

// Bound returns the closed registration created from this open one.
func (r *Registration) Bound(c contract.Contract) (*Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bound[c]
	return b, ok
}

// BindClosed stores a closed registration unless one already exists, and
// returns the winner.
func (r *Registration) BindClosed(c contract.Contract, closed *Registration) *Registration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.bound[c]; ok {
		return existing
	}
	if r.bound == nil {
		r.bound = make(map[contract.Contract]*Registration)
	}
	r.bound[c] = closed
	return closed
}

// Injects reports whether the registration carries explicit injection
// members.
func (r *Registration) Injects() bool {
	return r.Constructor != nil || len(r.Members) > 0
}

// Target is the type the registration builds.
func (r *Registration) Target() reflect.Type {
	if r.MappedTo != nil {
		return r.MappedTo
	}
	return r.Contract.Type
}
