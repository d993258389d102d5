package registry

import (
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/google/uuid"

	"github.com/danpasecinic/thimble/internal/contract"
	"github.com/danpasecinic/thimble/lifetime"
)

// Scope is one node of the registry hierarchy. It owns its table and its
// lifetime container; the parent link is used for lookups only.
type Scope struct {
	id     uuid.UUID
	name   string
	parent *Scope

	mu        sync.RWMutex
	table     *table
	seq       uint64
	byType    map[reflect.Type][]*Registration
	byGeneric map[contract.Definition][]*Registration
	children  []weak.Pointer[Scope]
	version   atomic.Uint64

	lifetime *lifetime.Container

	implicitMu sync.Mutex
	implicit   map[contract.Contract]*Registration
}

func NewRoot(name string) *Scope {
	return newScope(name, nil)
}

func newScope(name string, parent *Scope) *Scope {
	return &Scope{
		id:        uuid.New(),
		name:      name,
		parent:    parent,
		table:     newTable(),
		byType:    make(map[reflect.Type][]*Registration),
		byGeneric: make(map[contract.Definition][]*Registration),
		lifetime:  lifetime.NewContainer(),
	}
}

func (s *Scope) NewChild(name string) *Scope {
	child := newScope(name, s)

	s.mu.Lock()
	s.children = slices.DeleteFunc(s.children, func(p weak.Pointer[Scope]) bool {
		return p.Value() == nil
	})
	s.children = append(s.children, weak.Make(child))
	s.mu.Unlock()

	return child
}

func (s *Scope) ID() uuid.UUID {
	return s.id
}

func (s *Scope) Name() string {
	return s.name
}

func (s *Scope) Parent() *Scope {
	return s.parent
}

func (s *Scope) Root() *Scope {
	root := s
	for root.parent != nil {
		root = root.parent
	}
	return root
}

func (s *Scope) Lifetime() *lifetime.Container {
	return s.lifetime
}

// Children returns the child scopes that are still reachable.
func (s *Scope) Children() []*Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Scope, 0, len(s.children))
	for _, p := range s.children {
		if child := p.Value(); child != nil {
			out = append(out, child)
		}
	}
	return out
}

func (s *Scope) Version() uint64 {
	return s.version.Load()
}

// ChainVersion changes whenever this scope or any ancestor changes.
func (s *Scope) ChainVersion() uint64 {
	var v uint64
	for cur := s; cur != nil; cur = cur.parent {
		v += cur.version.Load()
	}
	return v
}

// Register stores reg under its contract and returns the registration it
// replaced in this scope, if any.
func (s *Scope) Register(reg *Registration) *Registration {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	reg.Seq = s.seq
	reg.Owner = s

	previous, grew := s.table.set(reg.Contract, reg)
	reg.Previous = previous
	if previous != nil {
		s.unindex(previous)
	}
	s.index(reg)

	s.version.Add(1)
	if grew {
		s.version.Add(1)
	}
	return previous
}

func (s *Scope) index(reg *Registration) {
	if reg.Contract.IsOpen() {
		s.byGeneric[reg.Contract.Generic] = append(s.byGeneric[reg.Contract.Generic], reg)
		return
	}
	s.byType[reg.Contract.Type] = append(s.byType[reg.Contract.Type], reg)
}

func (s *Scope) unindex(reg *Registration) {
	drop := func(r *Registration) bool { return r == reg }
	if reg.Contract.IsOpen() {
		s.byGeneric[reg.Contract.Generic] = slices.DeleteFunc(s.byGeneric[reg.Contract.Generic], drop)
		return
	}
	s.byType[reg.Contract.Type] = slices.DeleteFunc(s.byType[reg.Contract.Type], drop)
}

// Get looks in this scope only.
func (s *Scope) Get(c contract.Contract) (*Registration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.get(c)
}

// Lookup walks from this scope to the root and returns the first
// registration found together with the scope holding it.
func (s *Scope) Lookup(c contract.Contract) (*Registration, *Scope) {
	for cur := s; cur != nil; cur = cur.parent {
		if reg, ok := cur.Get(c); ok {
			return reg, cur
		}
	}
	return nil, nil
}

// Contains reports whether any scope of the chain has a registration for t
// under any name.
func (s *Scope) Contains(t reflect.Type) bool {
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		n := len(cur.byType[t])
		cur.mu.RUnlock()
		if n > 0 {
			return true
		}
	}
	return false
}

// ByType returns this scope's registrations for t in registration order.
func (s *Scope) ByType(t reflect.Type) []*Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.byType[t])
}

// ByGeneric returns this scope's open registrations for def in
// registration order.
func (s *Scope) ByGeneric(def contract.Definition) []*Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.byGeneric[def])
}

// Collect gathers the registrations of t, and of the open definition def
// when it is not nil, across the chain. Scopes are visited root first and a
// name registered again in a descendant replaces the ancestor's entry in
// place.
func (s *Scope) Collect(t reflect.Type, def contract.Definition) []*Registration {
	var chain []*Scope
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}

	var (
		out   []*Registration
		index = make(map[string]int)
	)
	for i := len(chain) - 1; i >= 0; i-- {
		local := chain[i].ByType(t)
		if def != nil {
			local = append(local, chain[i].ByGeneric(def)...)
			slices.SortStableFunc(local, func(a, b *Registration) int {
				return compareSeq(a.Seq, b.Seq)
			})
		}

		for _, reg := range local {
			name := reg.Contract.Name
			if pos, ok := index[name]; ok {
				if out[pos].Owner != reg.Owner {
					out[pos] = reg
				}
				continue
			}
			index[name] = len(out)
			out = append(out, reg)
		}
	}
	return out
}

// Names returns every name t is registered under across the chain.
func (s *Scope) Names(t reflect.Type) []string {
	regs := s.Collect(t, nil)
	names := make([]string, len(regs))
	for i, reg := range regs {
		names[i] = reg.Contract.Name
	}
	return names
}

// All returns this scope's registrations in registration order.
func (s *Scope) All() []*Registration {
	s.mu.RLock()
	out := make([]*Registration, 0, s.table.count)
	s.table.each(func(r *Registration) { out = append(out, r) })
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Registration) int {
		return compareSeq(a.Seq, b.Seq)
	})
	return out
}

func (s *Scope) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.count
}

// Implicit returns the synthesized registration for c held by the root,
// creating it with build on first use. Implicit registrations are not part
// of any table.
func (s *Scope) Implicit(c contract.Contract, build func() *Registration) *Registration {
	root := s.Root()

	root.implicitMu.Lock()
	defer root.implicitMu.Unlock()

	if reg, ok := root.implicit[c]; ok {
		return reg
	}
	reg := build()
	if reg == nil {
		return nil
	}
	reg.Owner = root
	if root.implicit == nil {
		root.implicit = make(map[contract.Contract]*Registration)
	}
	root.implicit[c] = reg
	return reg
}

func compareSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
