package introspect

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
)

// Constraint rejects type arguments a definition cannot be closed over.
type Constraint func(args []reflect.Type) error

// Generic is an open generic type definition such as Repository[T]. Its
// closed instantiations are bound with Bind.
type Generic struct {
	cat   *Catalog
	name  string
	arity int

	mu          sync.RWMutex
	closed      map[string]reflect.Type
	constraints []Constraint
}

func (g *Generic) Name() string {
	return g.name
}

func (g *Generic) Arity() int {
	return g.arity
}

func (g *Generic) Key() string {
	return g.name + "`" + strconv.Itoa(g.arity)
}

func (g *Generic) String() string {
	return g.name + "[" + strings.Repeat(",", g.arity-1) + "]"
}

// Constrain adds a check every Close must pass.
func (g *Generic) Constrain(c Constraint) *Generic {
	g.mu.Lock()
	g.constraints = append(g.constraints, c)
	g.mu.Unlock()

	g.cat.bump()
	return g
}

// Bind records closed as the instantiation of g over args.
func (g *Generic) Bind(closed reflect.Type, args ...reflect.Type) error {
	if closed == nil {
		return fmt.Errorf("bind %s: nil closed type", g)
	}
	if len(args) != g.arity {
		return fmt.Errorf("bind %s: %w: got %d type arguments", g, ErrConstraint, len(args))
	}

	g.mu.Lock()
	g.closed[argsKey(args)] = closed
	g.mu.Unlock()

	g.cat.bindClosed(closed, g, args)
	return nil
}

// Close returns the instantiation of g over args.
func (g *Generic) Close(args ...reflect.Type) (reflect.Type, error) {
	if len(args) != g.arity {
		return nil, fmt.Errorf("close %s: %w: got %d type arguments", g, ErrConstraint, len(args))
	}

	g.mu.RLock()
	constraints := g.constraints
	closed, ok := g.closed[argsKey(args)]
	g.mu.RUnlock()

	for _, c := range constraints {
		if err := c(args); err != nil {
			return nil, fmt.Errorf("close %s over [%s]: %w: %w", g, argsKey(args), ErrConstraint, err)
		}
	}
	if !ok {
		return nil, fmt.Errorf("close %s over [%s]: %w: no instantiation bound", g, argsKey(args), ErrConstraint)
	}
	return closed, nil
}

// Instances returns the bound closed types.
func (g *Generic) Instances() []reflect.Type {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]reflect.Type, 0, len(g.closed))
	for _, t := range g.closed {
		out = append(out, t)
	}
	return out
}

// Bind records the type T as the instantiation of def over args.
func Bind[T any](def *Generic, args ...reflect.Type) error {
	return def.Bind(reflect.TypeFor[T](), args...)
}

func MustBind[T any](def *Generic, args ...reflect.Type) {
	if err := Bind[T](def, args...); err != nil {
		panic(err)
	}
}

// Implements constrains the i-th type argument to implement iface.
func Implements(i int, iface reflect.Type) Constraint {
	return func(args []reflect.Type) error {
		if i >= len(args) {
			return fmt.Errorf("no type argument %d", i)
		}
		if !args[i].Implements(iface) {
			return fmt.Errorf("%s does not implement %s", args[i], iface)
		}
		return nil
	}
}

// Kinds constrains the i-th type argument to one of the given kinds.
func Kinds(i int, kinds ...reflect.Kind) Constraint {
	return func(args []reflect.Type) error {
		if i >= len(args) {
			return fmt.Errorf("no type argument %d", i)
		}
		for _, k := range kinds {
			if args[i].Kind() == k {
				return nil
			}
		}
		return fmt.Errorf("%s has kind %s", args[i], args[i].Kind())
	}
}

func argsKey(args []reflect.Type) string {
	keys := make([]string, len(args))
	for i, a := range args {
		keys[i] = ireflect.TypeKey(a)
	}
	return strings.Join(keys, ",")
}
