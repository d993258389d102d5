package thimble_test

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/thimble"
	"github.com/danpasecinic/thimble/config"
)

type Config struct {
	Port int
	Host string
}

type Database struct {
	Config *Config
	Name   string
}

func NewDatabase(cfg *Config) *Database {
	return &Database{Config: cfg, Name: "primary"}
}

type Store interface {
	Kind() string
}

type memoryStore struct {
	db *Database
}

func NewMemoryStore(db *Database) *memoryStore {
	return &memoryStore{db: db}
}

func (s *memoryStore) Kind() string { return "memory" }

type diskStore struct {
	path string
}

func NewDiskStore(path string) *diskStore {
	return &diskStore{path: path}
}

func (s *diskStore) Kind() string { return "disk" }

type Client struct {
	Timeout time.Duration
	Config  *Config
}

func NewClient(timeout time.Duration, cfg *Config) *Client {
	return &Client{Timeout: timeout, Config: cfg}
}

type Service struct {
	Config   *Config `thimble:""`
	Store    Store   `thimble:",optional"`
	Internal string

	name string
	db   *Database
}

func (s *Service) SetName(name string) {
	s.name = name
}

func (s *Service) Init(db *Database) {
	s.db = db
}

func newContainer(t *testing.T, opts ...thimble.Option) *thimble.Container {
	t.Helper()

	opts = append([]thimble.Option{thimble.WithLogger(zerolog.Nop())}, opts...)
	c := thimble.New(opts...)
	t.Cleanup(c.Dispose)
	return c
}

// forEachPipeline runs fn against a compiled and an interpreted container.
func forEachPipeline(t *testing.T, fn func(t *testing.T, c *thimble.Container), opts ...thimble.Option) {
	t.Helper()

	kinds := []thimble.PipelineKind{thimble.PipelineCompiled, thimble.PipelineInterpreted}
	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()
			fn(t, newContainer(t, append([]thimble.Option{thimble.WithPipeline(kind)}, opts...)...))
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	require.NotNil(t, c)
	assert.Nil(t, c.Parent())
	assert.NotNil(t, c.Catalog())
}

func TestNewWithLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	c := thimble.New(thimble.WithLogger(logger), thimble.WithContainerName("app"))

	require.NoError(t, thimble.RegisterInstance(c, &Config{Port: 1}))
	assert.Equal(t, "app", c.Name())
	assert.Contains(t, buf.String(), "registered")
}

func TestWithSettings(t *testing.T) {
	t.Parallel()

	s := config.Defaults()
	s.Mode = config.ModeOptimized
	s.MaxDepth = 8
	s.DefaultLifetime = "container"

	c := newContainer(t, thimble.WithSettings(&s), thimble.WithLogger(zerolog.Nop()))

	first := thimble.MustResolve[*Config](c)
	second := thimble.MustResolve[*Config](c)
	assert.Same(t, first, second, "implicit registrations use the configured default lifetime")
}

func TestRegisterInstanceAndResolve(t *testing.T) {
	t.Parallel()

	c := newContainer(t)
	cfg := &Config{Port: 3000, Host: "0.0.0.0"}
	require.NoError(t, thimble.RegisterInstance(c, cfg))

	got, err := thimble.Resolve[*Config](c)
	require.NoError(t, err)
	assert.Same(t, cfg, got)
	assert.True(t, thimble.IsRegistered[*Config](c))
}

func TestRegisterTypeWithConstructor(t *testing.T) {
	t.Parallel()

	forEachPipeline(t, func(t *testing.T, c *thimble.Container) {
		c.Catalog().MustAddConstructor(NewDatabase)
		c.Catalog().MustAddConstructor(NewMemoryStore)

		require.NoError(t, thimble.RegisterInstance(c, &Config{Port: 5432}))
		require.NoError(t, thimble.RegisterType[Store, *memoryStore](c))

		s, err := thimble.Resolve[Store](c)
		require.NoError(t, err)

		mem, ok := s.(*memoryStore)
		require.True(t, ok, "expected *memoryStore, got %T", s)
		assert.Equal(t, "primary", mem.db.Name)
		assert.Equal(t, 5432, mem.db.Config.Port)
	})
}

func TestNamedRegistrations(t *testing.T) {
	t.Parallel()

	c := newContainer(t)
	require.NoError(t, thimble.RegisterInstance(c, &Config{Port: 1}, thimble.WithName("primary")))
	require.NoError(t, thimble.RegisterInstance(c, &Config{Port: 2}, thimble.WithName("replica")))

	primary := thimble.MustResolveNamed[*Config](c, "primary")
	replica := thimble.MustResolveNamed[*Config](c, "replica")
	assert.Equal(t, 1, primary.Port)
	assert.Equal(t, 2, replica.Port)

	assert.True(t, thimble.IsRegisteredNamed[*Config](c, "primary"))
	assert.False(t, thimble.IsRegistered[*Config](c))
}

func TestRegisterFactory(t *testing.T) {
	t.Parallel()

	forEachPipeline(t, func(t *testing.T, c *thimble.Container) {
		require.NoError(t, thimble.RegisterInstance(c, &Config{Port: 8080}))
		require.NoError(t, thimble.RegisterFactory(c, func(ctx context.Context, r thimble.Resolver) (*Database, error) {
			cfg, err := thimble.From[*Config](r, "")
			if err != nil {
				return nil, err
			}
			return &Database{Config: cfg, Name: "factory"}, nil
		}))

		db, err := thimble.Resolve[*Database](c)
		require.NoError(t, err)
		assert.Equal(t, "factory", db.Name)
		assert.Equal(t, 8080, db.Config.Port)
	})
}

func TestFactoryError(t *testing.T) {
	t.Parallel()

	c := newContainer(t)
	boom := errors.New("boom")
	require.NoError(t, thimble.RegisterFactory(c, func(context.Context, thimble.Resolver) (*Config, error) {
		return nil, boom
	}))

	_, err := thimble.Resolve[*Config](c)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, thimble.IsResolutionFailed(err))
}

func TestFactoryReceivesContext(t *testing.T) {
	t.Parallel()

	type key struct{}
	c := newContainer(t)
	require.NoError(t, thimble.RegisterFactory(c, func(ctx context.Context, _ thimble.Resolver) (*Config, error) {
		host, _ := ctx.Value(key{}).(string)
		return &Config{Host: host}, nil
	}))

	ctx := context.WithValue(context.Background(), key{}, "from-ctx")
	cfg, err := thimble.ResolveCtx[*Config](ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "from-ctx", cfg.Host)
}

func TestResolveUnregisteredInterface(t *testing.T) {
	t.Parallel()

	c := newContainer(t)
	_, err := thimble.Resolve[Store](c)
	require.Error(t, err)
	assert.True(t, thimble.IsResolutionFailed(err))
	assert.ErrorIs(t, err, thimble.ErrResolutionFailed)

	var e *thimble.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, reflect.TypeFor[Store](), e.Requested.Type)
}

func TestTryAndOptionalResolve(t *testing.T) {
	t.Parallel()

	c := newContainer(t)

	_, ok := thimble.TryResolve[Store](c)
	assert.False(t, ok)

	maybe, err := thimble.ResolveOptional[Store](c)
	require.NoError(t, err)
	assert.False(t, maybe.Present())
	assert.Equal(t, "fallback", maybe.OrElseFunc(func() Store { return &diskStore{path: "fallback"} }).(*diskStore).path)

	require.NoError(t, thimble.RegisterInstance[Store](c, &diskStore{path: "/data"}))
	maybe, err = thimble.ResolveOptional[Store](c)
	require.NoError(t, err)
	v, present := maybe.Get()
	assert.True(t, present)
	assert.Equal(t, "disk", v.Kind())
}

func TestMustResolvePanics(t *testing.T) {
	t.Parallel()

	c := newContainer(t)
	assert.Panics(t, func() {
		thimble.MustResolve[Store](c)
	})
}

func TestResolveContainer(t *testing.T) {
	t.Parallel()

	c := newContainer(t)
	child := c.CreateChildContainer("child")

	assert.Same(t, c, thimble.MustResolve[*thimble.Container](c))
	assert.Same(t, child, thimble.MustResolve[*thimble.Container](child))
}

func TestInjectionMembers(t *testing.T) {
	t.Parallel()

	forEachPipeline(t, func(t *testing.T, c *thimble.Container) {
		require.NoError(t, thimble.RegisterInstance(c, &Config{Port: 1}))
		require.NoError(t, thimble.RegisterInstance(c, &Database{Name: "injected"}))
		require.NoError(t, thimble.RegisterType[Store, *diskStore](c, thimble.WithInjection(
			thimble.InjectionConstructor(NewDiskStore, thimble.Value("/var/lib")),
		)))
		require.NoError(t, thimble.Register[*Service](c, thimble.WithInjection(
			thimble.InjectionProperty("Name", thimble.Value("svc")),
			thimble.InjectionMethod("Init"),
			thimble.InjectionField("Internal", thimble.Value("set")),
		)))

		svc, err := thimble.Resolve[*Service](c)
		require.NoError(t, err)
		assert.Equal(t, 1, svc.Config.Port)
		assert.Equal(t, "svc", svc.name)
		assert.Equal(t, "set", svc.Internal)
		require.NotNil(t, svc.db)
		assert.Equal(t, "injected", svc.db.Name)

		disk, ok := svc.Store.(*diskStore)
		require.True(t, ok, "expected *diskStore, got %T", svc.Store)
		assert.Equal(t, "/var/lib", disk.path)
	})
}

func TestOptionalFieldLeftZero(t *testing.T) {
	t.Parallel()

	c := newContainer(t)
	require.NoError(t, thimble.RegisterInstance(c, &Config{Port: 1}))

	svc, err := thimble.Resolve[*Service](c)
	require.NoError(t, err)
	assert.Nil(t, svc.Store)
	assert.Equal(t, 1, svc.Config.Port)
}

func TestUnknownInjectionMember(t *testing.T) {
	t.Parallel()

	c := newContainer(t)
	require.NoError(t, thimble.Register[*Service](c, thimble.WithInjection(
		thimble.InjectionMethod("Missing"),
	)))

	_, err := thimble.Resolve[*Service](c)
	require.Error(t, err)
	assert.True(t, thimble.IsInvalidRegistration(err))
}

func TestOverrides(t *testing.T) {
	t.Parallel()

	forEachPipeline(t, func(t *testing.T, c *thimble.Container) {
		c.Catalog().MustAddConstructor(NewClient, "timeout")
		require.NoError(t, thimble.RegisterInstance(c, &Config{Port: 1}))

		_, err := thimble.Resolve[*Client](c)
		require.Error(t, err, "a bare duration cannot be resolved")

		client, err := thimble.Resolve[*Client](c, thimble.ParameterOverride("timeout", 5*time.Second))
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, client.Timeout)
		assert.Equal(t, 1, client.Config.Port)

		other := &Config{Port: 2}
		client, err = thimble.Resolve[*Client](c,
			thimble.ParameterOverride("timeout", time.Second),
			thimble.DependencyOverrideFor(other).OnType(reflect.TypeFor[*Client]()),
		)
		require.NoError(t, err)
		assert.Same(t, other, client.Config)
	})
}

func TestFieldAndPropertyOverrides(t *testing.T) {
	t.Parallel()

	c := newContainer(t)
	cfg := &Config{Port: 9}

	svc, err := thimble.Resolve[*Service](c,
		thimble.FieldOverride("Config", cfg),
		thimble.DependencyOverride(reflect.TypeFor[*Database](), &Database{Name: "over"}),
	)
	require.NoError(t, err)
	assert.Same(t, cfg, svc.Config)
}

func TestOverrideOnOtherTypeIgnored(t *testing.T) {
	t.Parallel()

	c := newContainer(t)
	c.Catalog().MustAddConstructor(NewClient, "timeout")

	_, err := thimble.Resolve[*Client](c,
		thimble.ParameterOverride("timeout", time.Second).OnType(reflect.TypeFor[*Service]()),
	)
	require.Error(t, err)
}

func TestConstructorSelection(t *testing.T) {
	t.Parallel()

	forEachPipeline(t, func(t *testing.T, c *thimble.Container) {
		c.Catalog().MustAddConstructor(NewClient, "timeout")
		c.Catalog().MustAddConstructor(func(cfg *Config) *Client {
			return &Client{Config: cfg, Timeout: time.Minute}
		})
		require.NoError(t, thimble.RegisterInstance(c, &Config{Port: 1}))

		client, err := thimble.Resolve[*Client](c)
		require.NoError(t, err)
		assert.Equal(t, time.Minute, client.Timeout, "the constructor whose parameters resolve wins")
	})
}

func TestPanickingConstructor(t *testing.T) {
	t.Parallel()

	c := newContainer(t)
	c.Catalog().MustAddConstructor(func() *Config { panic("no config") })

	_, err := thimble.Resolve[*Config](c)
	require.Error(t, err)
	assert.True(t, thimble.IsResolutionFailed(err))
	assert.Contains(t, err.Error(), "no config")
}

func TestDecorator(t *testing.T) {
	t.Parallel()

	decorate := thimble.WithDecorator(func(_ *thimble.Context, cfg *Config) (*Config, error) {
		cfg.Host = "decorated"
		return cfg, nil
	})

	forEachPipeline(t, func(t *testing.T, c *thimble.Container) {
		cfg := thimble.MustResolve[*Config](c)
		assert.Equal(t, "decorated", cfg.Host)

		instance := &Config{Host: "registered"}
		require.NoError(t, thimble.RegisterInstance(c, instance, thimble.WithName("instance")))
		assert.Equal(t, "registered", thimble.MustResolveNamed[*Config](c, "instance").Host)
	}, decorate)
}

func TestDecoratorError(t *testing.T) {
	t.Parallel()

	boom := errors.New("rejected")
	c := newContainer(t, thimble.WithDecorator(func(*thimble.Context, *Config) (*Config, error) {
		return nil, boom
	}))

	_, err := thimble.Resolve[*Config](c)
	assert.ErrorIs(t, err, boom)
}

func TestExtensionStage(t *testing.T) {
	t.Parallel()

	var built atomic.Int32
	c := newContainer(t, thimble.WithStages(countingStage{count: &built}))

	thimble.MustResolve[*Config](c)
	thimble.MustResolve[*Database](c)
	assert.Equal(t, int32(2), built.Load())
}

type countingStage struct {
	count *atomic.Int32
}

func (countingStage) Name() string { return "counting" }

func (s countingStage) Plan(*thimble.Plan) (thimble.Step, error) {
	return func(*thimble.Context) error {
		s.count.Add(1)
		return nil
	}, nil
}

func TestInvalidRegistrations(t *testing.T) {
	t.Parallel()

	c := newContainer(t)

	tests := []struct {
		name string
		err  error
	}{
		{"nil type", c.RegisterType(nil, nil)},
		{"not assignable", thimble.RegisterType[Store, *Config](c)},
		{"instance of wrong type", c.RegisterInstance(reflect.TypeFor[Store](), &Config{})},
		{"nil factory", c.RegisterFactory(reflect.TypeFor[*Config](), nil)},
		{"members on instance", c.RegisterInstance(nil, &Config{}, thimble.WithInjection(thimble.InjectionMethod("Init")))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.True(t, thimble.IsInvalidRegistration(tt.err), "got %v", tt.err)
		})
	}
}

func TestLifetimeManagerReuse(t *testing.T) {
	t.Parallel()

	c := newContainer(t)
	shared := thimble.AsSingleton()

	require.NoError(t, thimble.Register[*Config](c, shared))
	err := thimble.Register[*Database](c, shared)
	require.Error(t, err)
	assert.True(t, thimble.IsInvalidRegistration(err))
}

func TestResolveAll(t *testing.T) {
	t.Parallel()

	c := newContainer(t)
	require.NoError(t, thimble.RegisterInstance[Store](c, &diskStore{path: "a"}, thimble.WithName("a")))
	require.NoError(t, thimble.RegisterInstance[Store](c, &diskStore{path: "b"}, thimble.WithName("b")))
	require.NoError(t, thimble.RegisterInstance[Store](c, &diskStore{path: "default"}))

	stores, err := thimble.ResolveAll[Store](c)
	require.NoError(t, err)
	require.Len(t, stores, 2)
	assert.Equal(t, "a", stores[0].(*diskStore).path)
	assert.Equal(t, "b", stores[1].(*diskStore).path)

	untyped, err := c.ResolveAll(reflect.TypeFor[Store]())
	require.NoError(t, err)
	assert.Len(t, untyped, 2)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	c := newContainer(t)
	c.Catalog().MustAddConstructor(NewDatabase)
	c.Catalog().MustAddConstructor(NewMemoryStore)
	require.NoError(t, thimble.RegisterType[Store, *memoryStore](c))
	require.NoError(t, thimble.RegisterInstance(c, &Config{}))
	require.NoError(t, c.Validate())

	c.Catalog().MustAddConstructor(NewCycleA)
	c.Catalog().MustAddConstructor(NewCycleB)
	require.NoError(t, thimble.Register[*cycleA](c))

	err := c.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, thimble.ErrCircularDependency)
}
