package thimble

import (
	"context"
	"os"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/danpasecinic/thimble/internal/container"
	"github.com/danpasecinic/thimble/internal/contract"
	"github.com/danpasecinic/thimble/internal/registry"
	"github.com/danpasecinic/thimble/introspect"
	"github.com/danpasecinic/thimble/lifetime"
)

// Container is one scope of a container tree. Child containers see the
// registrations of their ancestors; registrations made in a child are
// invisible to its parent.
type Container struct {
	internal *container.Container
	catalog  *introspect.Catalog
	parent   *Container
}

// New creates the root container of a container tree.
func New(opts ...Option) *Container {
	return newContainer(opts...)
}

func newContainer(opts ...Option) *Container {
	cfg := &containerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.introspector == nil {
		cfg.catalog = introspect.NewCatalog()
		cfg.introspector = cfg.catalog
	}

	internal := container.New(
		&container.Config{
			Name:            cfg.name,
			Logger:          cfg.logger,
			Introspector:    cfg.introspector,
			Pipeline:        cfg.pipeline,
			Mode:            cfg.mode,
			LockTimeout:     cfg.lockTimeout,
			DefaultLifetime: cfg.defaultLifetime,
			MaxDepth:        cfg.maxDepth,
			Stages:          cfg.stages,
		},
	)

	c := &Container{
		internal: internal,
		catalog:  cfg.catalog,
	}
	c.registerSelf()
	return c
}

// registerSelf makes *Container resolvable from every scope as the scope
// the request was made in.
func (c *Container) registerSelf() {
	_ = c.internal.Register(&registry.Registration{
		Contract: contract.New(containerType, ""),
		Category: registry.Instance,
		Instance: c,
		Lifetime: lifetime.NewTransient(),
	})
}

var containerType = reflect.TypeFor[*Container]()

// CreateChildContainer returns a new scope below c.
func (c *Container) CreateChildContainer(name string) *Container {
	child := &Container{
		internal: c.internal.NewChild(name),
		catalog:  c.catalog,
		parent:   c,
	}
	child.registerSelf()
	return child
}

func (c *Container) Parent() *Container {
	return c.parent
}

func (c *Container) Name() string {
	return c.internal.Name()
}

// Catalog returns the catalog used to describe types, or nil when the
// container was created WithIntrospector over another implementation.
func (c *Container) Catalog() *introspect.Catalog {
	return c.catalog
}

func (c *Container) Validate() error {
	return c.internal.Validate()
}

func (c *Container) IsRegistered(t reflect.Type, name string) bool {
	return c.internal.IsRegistered(t, name)
}

type RegistrationInfo = container.RegistrationInfo

func (c *Container) Registrations() []RegistrationInfo {
	return c.internal.Registrations()
}

// Run blocks until ctx is done or the process receives SIGINT or SIGTERM,
// then disposes the container.
func (c *Container) Run(ctx context.Context) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-quit:
	}

	signal.Stop(quit)
	close(quit)

	return c.Close()
}
