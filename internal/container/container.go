package container

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/danpasecinic/thimble/internal/contract"
	ireflect "github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/registry"
	"github.com/danpasecinic/thimble/introspect"
	"github.com/danpasecinic/thimble/lifetime"
)

type PipelineKind int

const (
	PipelineCompiled PipelineKind = iota
	PipelineInterpreted
)

func (k PipelineKind) String() string {
	if k == PipelineInterpreted {
		return "interpreted"
	}
	return "compiled"
}

type Mode int

const (
	ModeDiagnostic Mode = iota
	ModeOptimized
)

func (m Mode) String() string {
	if m == ModeOptimized {
		return "optimized"
	}
	return "diagnostic"
}

const DefaultMaxDepth = 512

type Config struct {
	Name            string
	Logger          *zerolog.Logger
	Introspector    introspect.Introspector
	Pipeline        PipelineKind
	Mode            Mode
	LockTimeout     time.Duration
	DefaultLifetime lifetime.Kind
	MaxDepth        int
	Stages          []Stage
}

// engine holds what every scope of one container tree shares.
type engine struct {
	logger          zerolog.Logger
	introspector    introspect.Introspector
	pipeline        PipelineKind
	mode            Mode
	lockTimeout     time.Duration
	defaultLifetime lifetime.Kind
	maxDepth        int
	stages          []Stage
}

// Container is one scope of a container tree.
type Container struct {
	engine   *engine
	scope    *registry.Scope
	parent   *Container
	disposed atomic.Bool
}

func New(cfg *Config) *Container {
	if cfg == nil {
		cfg = &Config{}
	}

	logger := zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	in := cfg.Introspector
	if in == nil {
		in = introspect.NewCatalog()
	}

	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	e := &engine{
		logger:          logger,
		introspector:    in,
		pipeline:        cfg.Pipeline,
		mode:            cfg.Mode,
		lockTimeout:     cfg.LockTimeout,
		defaultLifetime: cfg.DefaultLifetime,
		maxDepth:        maxDepth,
	}
	e.stages = append(builtinStages(e), cfg.Stages...)

	return &Container{
		engine: e,
		scope:  registry.NewRoot(cfg.Name),
	}
}

func (c *Container) NewChild(name string) *Container {
	child := &Container{
		engine: c.engine,
		scope:  c.scope.NewChild(name),
		parent: c,
	}
	c.engine.logger.Debug().
		Str("scope", child.scope.ID().String()).
		Str("parent", c.scope.ID().String()).
		Msg("created child scope")
	return child
}

func (c *Container) Parent() *Container {
	return c.parent
}

func (c *Container) Name() string {
	return c.scope.Name()
}

func (c *Container) Scope() *registry.Scope {
	return c.scope
}

func (c *Container) Introspector() introspect.Introspector {
	return c.engine.introspector
}

func (c *Container) Logger() *zerolog.Logger {
	return &c.engine.logger
}

// NewLifetime returns a manager of the container's default lifetime.
func (c *Container) NewLifetime() lifetime.Manager {
	return lifetime.New(c.engine.defaultLifetime)
}

// Register validates reg and stores it in this scope. The previous
// registration of the same contract in this scope, if any, is replaced.
func (c *Container) Register(reg *registry.Registration) error {
	if err := c.prepare(reg); err != nil {
		return err
	}

	if reg.Category == registry.Instance {
		if err := reg.Lifetime.SetValue(reg.Instance, instanceScope{lt: c.scope.Lifetime()}); err != nil {
			return errInvalidRegistration(nil, fmt.Sprintf("storing instance for %s", reg.Contract), err)
		}
		if reg.Lifetime.Kind() == lifetime.ExternallyControlled {
			reg.Instance = nil
		}
	}

	previous := c.scope.Register(reg)

	c.engine.logger.Debug().
		Stringer("contract", reg.Contract).
		Stringer("category", reg.Category).
		Stringer("lifetime", reg.Lifetime.Kind()).
		Str("scope", c.scope.ID().String()).
		Bool("replaced", previous != nil).
		Msg("registered")
	return nil
}

func (c *Container) prepare(reg *registry.Registration) error {
	if reg.Contract.IsZero() {
		return errInvalidRegistration(nil, "registration without a contract type", nil)
	}

	for i := range reg.Members {
		if reg.Members[i].Kind == registry.MemberConstructor {
			if reg.Constructor != nil {
				return errInvalidRegistration(nil, fmt.Sprintf("%s has more than one constructor member", reg.Contract), nil)
			}
			m := reg.Members[i]
			reg.Constructor = &m
		}
	}
	reg.Members = removeConstructors(reg.Members)

	if err := c.checkCategory(reg); err != nil {
		return err
	}

	if reg.Lifetime == nil {
		reg.Lifetime = c.NewLifetime()
	}
	if !reg.Lifetime.Claim() {
		return errInvalidRegistration(
			nil,
			fmt.Sprintf("lifetime manager for %s is already used by another registration", reg.Contract),
			nil,
		)
	}
	c.engine.configureLifetime(reg.Lifetime)
	return nil
}

func (c *Container) checkCategory(reg *registry.Registration) error {
	switch reg.Category {
	case registry.TypeMapping:
		return c.prepareMapping(reg)
	case registry.Instance:
		if reg.Contract.IsOpen() {
			return errInvalidRegistration(nil, "instances cannot be registered for open generic types", nil)
		}
		if reg.Instance != nil && !reflect.TypeOf(reg.Instance).AssignableTo(reg.Contract.Type) {
			return errInvalidRegistration(
				nil,
				fmt.Sprintf("instance of %T is not assignable to %s", reg.Instance, reg.Contract.Type),
				nil,
			)
		}
	case registry.Factory:
		if reg.Factory == nil {
			return errInvalidRegistration(nil, fmt.Sprintf("nil factory for %s", reg.Contract), nil)
		}
	}
	return nil
}

func (c *Container) prepareMapping(reg *registry.Registration) error {
	if reg.Contract.IsOpen() {
		if reg.MappedGeneric == nil {
			return errInvalidRegistration(nil, fmt.Sprintf("open registration %s has no implementation", reg.Contract), nil)
		}
		if from, ok := reg.Contract.Generic.(*introspect.Generic); ok && from.Arity() != reg.MappedGeneric.Arity() {
			return errInvalidRegistration(
				nil,
				fmt.Sprintf("%s and %s have different arity", from, reg.MappedGeneric),
				nil,
			)
		}
		return nil
	}

	if reg.MappedTo == nil {
		reg.MappedTo = reg.Contract.Type
	}
	if !reg.MappedTo.AssignableTo(reg.Contract.Type) {
		return errInvalidRegistration(
			nil,
			fmt.Sprintf("%s is not assignable to %s", reg.MappedTo, reg.Contract.Type),
			nil,
		)
	}
	if reg.Constructor != nil && reg.Constructor.Func.IsValid() {
		out := reg.Constructor.Func.Type().Out(0)
		if !out.AssignableTo(reg.MappedTo) && !out.AssignableTo(reg.Contract.Type) {
			return errInvalidRegistration(
				nil,
				fmt.Sprintf("constructor returns %s, expected %s", out, reg.MappedTo),
				nil,
			)
		}
	}
	return nil
}

func removeConstructors(members []registry.Member) []registry.Member {
	out := members[:0]
	for _, m := range members {
		if m.Kind != registry.MemberConstructor {
			out = append(out, m)
		}
	}
	return out
}

func (e *engine) configureLifetime(m lifetime.Manager) {
	if tc, ok := m.(lifetime.TimeoutConfigurable); ok && e.lockTimeout > 0 {
		tc.SetDefaultTimeout(e.lockTimeout)
	}
}

// IsRegistered reports whether the chain has an explicit registration for
// t and name, directly or through an open generic registration.
func (c *Container) IsRegistered(t reflect.Type, name string) bool {
	return c.engine.isRegistered(c.scope, t, name)
}

func (e *engine) isRegistered(scope *registry.Scope, t reflect.Type, name string) bool {
	if t == nil {
		return false
	}
	if reg, _ := scope.Lookup(contract.New(t, name)); reg != nil {
		return true
	}
	if def, _, ok := e.introspector.GenericOf(t); ok {
		if reg, _ := scope.Lookup(contract.Open(def, name)); reg != nil {
			return true
		}
	}
	return false
}

// RegistrationInfo describes one visible registration.
type RegistrationInfo struct {
	Contract contract.Contract
	Category registry.Category
	Lifetime lifetime.Kind
	MappedTo string
	Scope    string
	Cached   bool
}

// Registrations lists the registrations visible from this scope. A
// registration shadowed by a descendant is omitted.
func (c *Container) Registrations() []RegistrationInfo {
	var chain []*registry.Scope
	for s := c.scope; s != nil; s = s.Parent() {
		chain = append(chain, s)
	}

	var (
		out   []RegistrationInfo
		index = make(map[contract.Contract]int)
	)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, reg := range chain[i].All() {
			info := RegistrationInfo{
				Contract: reg.Contract,
				Category: reg.Category,
				Lifetime: reg.Lifetime.Kind(),
				Scope:    chain[i].Name(),
			}
			switch {
			case reg.MappedGeneric != nil:
				info.MappedTo = reg.MappedGeneric.String()
			case reg.MappedTo != nil:
				info.MappedTo = ireflect.TypeName(reg.MappedTo)
			}
			_, info.Cached = reg.Lifetime.TryGetValue(instanceScope{lt: chain[i].Lifetime()})

			if pos, ok := index[reg.Contract]; ok {
				out[pos] = info
				continue
			}
			index[reg.Contract] = len(out)
			out = append(out, info)
		}
	}
	return out
}

// instanceScope is the lifetime view used outside of a resolve.
type instanceScope struct {
	lt *lifetime.Container
}

func (s instanceScope) Lifetime() *lifetime.Container { return s.lt }
func (s instanceScope) ResolveStore() *sync.Map       { return nil }
func (s instanceScope) Context() context.Context      { return context.Background() }
