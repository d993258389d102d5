package introspect

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	ireflect "github.com/danpasecinic/thimble/internal/reflect"
)

type binding struct {
	def  *Generic
	args []reflect.Type
}

type paramSpec struct {
	name string
	tag  tag
}

// Catalog is the default Introspector. It derives descriptors from struct
// tags and method sets, and holds what reflection cannot discover:
// constructors, parameter names, injection marks and generic definitions.
type Catalog struct {
	mu          sync.RWMutex
	ctors       map[reflect.Type][]Constructor
	fieldMarks  map[reflect.Type]map[string]tag
	propMarks   map[reflect.Type]map[string]tag
	methodMarks map[reflect.Type]map[string][]paramSpec
	generics    map[string]*Generic
	closed      map[reflect.Type]binding
	described   map[reflect.Type]*TypeInfo
	version     atomic.Uint64
}

func NewCatalog() *Catalog {
	return &Catalog{
		ctors:       make(map[reflect.Type][]Constructor),
		fieldMarks:  make(map[reflect.Type]map[string]tag),
		propMarks:   make(map[reflect.Type]map[string]tag),
		methodMarks: make(map[reflect.Type]map[string][]paramSpec),
		generics:    make(map[string]*Generic),
		closed:      make(map[reflect.Type]binding),
		described:   make(map[reflect.Type]*TypeInfo),
	}
}

func (c *Catalog) Version() uint64 {
	return c.version.Load()
}

// AddConstructor adds fn as a constructor of the type it returns. fn must
// return T or (T, error). Each param spec names the parameter at the same
// position as "name", "name=dependency" or "name=dependency,optional".
// Constructors are ranked in the order they were added.
func (c *Catalog) AddConstructor(fn any, params ...string) error {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Errorf("%w: constructor must be a non-nil function, got %T", ErrInvalidMember, fn)
	}

	ft := v.Type()
	if ft.IsVariadic() {
		return fmt.Errorf("%w: variadic constructor %s", ErrInvalidMember, ft)
	}
	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == ireflect.ErrorType():
	default:
		return fmt.Errorf("%w: constructor %s must return T or (T, error)", ErrInvalidMember, ft)
	}
	if len(params) > ft.NumIn() {
		return fmt.Errorf("%w: %d param specs for %d parameters", ErrInvalidMember, len(params), ft.NumIn())
	}

	t := ft.Out(0)
	ps := make([]Param, ft.NumIn())
	for i := range ps {
		ps[i] = Param{Type: ft.In(i), ByRef: ireflect.IsByRef(ft.In(i))}
		if i < len(params) {
			name, tg := parseParam(params[i])
			ps[i].Name = name
			ps[i].Dependency = tg.name
			ps[i].Optional = tg.optional
		}
	}

	c.mu.Lock()
	c.ctors[t] = append(c.ctors[t], Constructor{
		Func:         v,
		Params:       ps,
		ReturnsError: ft.NumOut() == 2,
		Index:        len(c.ctors[t]),
	})
	c.invalidateLocked()
	c.mu.Unlock()
	return nil
}

func (c *Catalog) MustAddConstructor(fn any, params ...string) {
	if err := c.AddConstructor(fn, params...); err != nil {
		panic(err)
	}
}

// InjectField marks an exported field for injection. spec has the struct
// tag syntax "dependency,optional".
func (c *Catalog) InjectField(t reflect.Type, name, spec string) error {
	st := structOf(t)
	if st == nil {
		return fmt.Errorf("%w: %s is not a struct", ErrInvalidMember, t)
	}
	f, ok := st.FieldByName(name)
	if !ok || !f.IsExported() {
		return fmt.Errorf("%w: %s has no exported field %s", ErrInvalidMember, t, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	mark(c.fieldMarks, st, name, parseTag(spec))
	c.invalidateLocked()
	return nil
}

// InjectProperty marks the setter SetName for injection.
func (c *Catalog) InjectProperty(t reflect.Type, name, spec string) error {
	m, ok := methodSet(t).MethodByName("Set" + name)
	if !ok || !isSetter(m) {
		return fmt.Errorf("%w: %s has no setter Set%s", ErrInvalidMember, t, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	mark(c.propMarks, markKey(t), name, parseTag(spec))
	c.invalidateLocked()
	return nil
}

// InjectMethod marks a method to be called after construction. params
// follow the AddConstructor syntax.
func (c *Catalog) InjectMethod(t reflect.Type, name string, params ...string) error {
	m, ok := methodSet(t).MethodByName(name)
	if !ok {
		return fmt.Errorf("%w: %s has no method %s", ErrInvalidMember, t, name)
	}
	if m.Type.IsVariadic() {
		return fmt.Errorf("%w: variadic method %s.%s", ErrInvalidMember, t, name)
	}

	specs := make([]paramSpec, len(params))
	for i, p := range params {
		specs[i].name, specs[i].tag = parseParam(p)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	key := markKey(t)
	if c.methodMarks[key] == nil {
		c.methodMarks[key] = make(map[string][]paramSpec)
	}
	c.methodMarks[key][name] = specs
	c.invalidateLocked()
	return nil
}

// Generic returns the definition called name with the given arity,
// creating it on first use.
func (c *Catalog) Generic(name string, arity int) *Generic {
	if arity < 1 {
		arity = 1
	}
	key := name + "`" + fmt.Sprint(arity)

	c.mu.Lock()
	defer c.mu.Unlock()

	if g, ok := c.generics[key]; ok {
		return g
	}
	g := &Generic{cat: c, name: name, arity: arity, closed: make(map[string]reflect.Type)}
	c.generics[key] = g
	return g
}

func (c *Catalog) GenericOf(t reflect.Type) (*Generic, []reflect.Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.closed[t]
	if !ok {
		return nil, nil, false
	}
	return b.def, b.args, true
}

func (c *Catalog) Describe(t reflect.Type) (*TypeInfo, error) {
	if t == nil {
		return nil, fmt.Errorf("describe: %w: nil type", ErrNotBuildable)
	}

	c.mu.RLock()
	if ti, ok := c.described[t]; ok {
		c.mu.RUnlock()
		return ti, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if ti, ok := c.described[t]; ok {
		return ti, nil
	}
	ti, err := c.describeLocked(t)
	if err != nil {
		return nil, err
	}
	c.described[t] = ti
	return ti, nil
}

func (c *Catalog) describeLocked(t reflect.Type) (*TypeInfo, error) {
	ti := &TypeInfo{Type: t}
	ti.Constructors = append(ti.Constructors, c.ctors[t]...)

	st := structOf(t)
	if len(ti.Constructors) == 0 {
		if st == nil {
			return nil, fmt.Errorf("%s: %w", t, ErrNotBuildable)
		}
		ti.Constructors = []Constructor{{}}
	}

	key := markKey(t)
	if st != nil {
		ti.Fields = c.fieldsLocked(st, key)
	}
	if t.Kind() != reflect.Interface {
		ti.Properties, ti.Methods = c.methodsLocked(methodSet(t), key)
	}
	return ti, nil
}

func (c *Catalog) fieldsLocked(st, key reflect.Type) []Field {
	var fields []Field
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() {
			continue
		}

		raw, tagged := f.Tag.Lookup(TagKey)
		tg := parseTag(raw)
		if tg.skip {
			continue
		}
		if m, ok := c.fieldMarks[key][f.Name]; ok {
			tg, tagged = m, true
		}

		fields = append(fields, Field{
			Name:       f.Name,
			Type:       f.Type,
			Index:      f.Index,
			Inject:     tagged,
			Dependency: tg.name,
			Optional:   tg.optional,
		})
	}
	return fields
}

func (c *Catalog) methodsLocked(mt, key reflect.Type) ([]Property, []Method) {
	var (
		props   []Property
		methods []Method
	)
	for i := 0; i < mt.NumMethod(); i++ {
		m := mt.Method(i)
		if !m.IsExported() {
			continue
		}

		if isSetter(m) {
			name := strings.TrimPrefix(m.Name, "Set")
			p := Property{
				Name:         name,
				Setter:       m.Name,
				Type:         m.Type.In(1),
				ReturnsError: m.Type.NumOut() == 1,
			}
			if tg, ok := c.propMarks[key][name]; ok {
				p.Inject, p.Dependency, p.Optional = true, tg.name, tg.optional
			}
			props = append(props, p)
			continue
		}

		method := Method{
			Name:         m.Name,
			ReturnsError: m.Type.NumOut() > 0 && m.Type.Out(m.Type.NumOut()-1) == ireflect.ErrorType(),
		}
		specs, marked := c.methodMarks[key][m.Name]
		method.Inject = marked
		for j := 1; j < m.Type.NumIn(); j++ {
			p := Param{Type: m.Type.In(j), ByRef: ireflect.IsByRef(m.Type.In(j))}
			if j-1 < len(specs) {
				p.Name, p.Dependency, p.Optional = specs[j-1].name, specs[j-1].tag.name, specs[j-1].tag.optional
			}
			method.Params = append(method.Params, p)
		}
		methods = append(methods, method)
	}
	return props, methods
}

func (c *Catalog) bindClosed(closed reflect.Type, def *Generic, args []reflect.Type) {
	c.mu.Lock()
	c.closed[closed] = binding{def: def, args: append([]reflect.Type(nil), args...)}
	c.invalidateLocked()
	c.mu.Unlock()
}

func (c *Catalog) bump() {
	c.mu.Lock()
	c.invalidateLocked()
	c.mu.Unlock()
}

func (c *Catalog) invalidateLocked() {
	clear(c.described)
	c.version.Add(1)
}

func mark(marks map[reflect.Type]map[string]tag, key reflect.Type, name string, t tag) {
	if marks[key] == nil {
		marks[key] = make(map[string]tag)
	}
	marks[key][name] = t
}

func structOf(t reflect.Type) reflect.Type {
	switch {
	case t.Kind() == reflect.Struct:
		return t
	case t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct:
		return t.Elem()
	default:
		return nil
	}
}

// markKey is the type marks are recorded under, so that S and *S share
// them.
func markKey(t reflect.Type) reflect.Type {
	if st := structOf(t); st != nil {
		return st
	}
	return t
}

// methodSet is the method set used for injection. Struct values are
// injected through their address, so they get the pointer method set.
func methodSet(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Struct {
		return reflect.PointerTo(t)
	}
	return t
}

func isSetter(m reflect.Method) bool {
	if len(m.Name) <= 3 || !strings.HasPrefix(m.Name, "Set") || m.Type.NumIn() != 2 {
		return false
	}
	switch m.Type.NumOut() {
	case 0:
		return true
	case 1:
		return m.Type.Out(0) == ireflect.ErrorType()
	default:
		return false
	}
}
