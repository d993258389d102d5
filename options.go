package thimble

import (
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/danpasecinic/thimble/config"
	"github.com/danpasecinic/thimble/internal/container"
	"github.com/danpasecinic/thimble/introspect"
	"github.com/danpasecinic/thimble/lifetime"
)

type Option func(*containerConfig)

type containerConfig struct {
	name            string
	logger          *zerolog.Logger
	catalog         *introspect.Catalog
	introspector    introspect.Introspector
	pipeline        container.PipelineKind
	mode            container.Mode
	lockTimeout     time.Duration
	defaultLifetime lifetime.Kind
	maxDepth        int
	stages          []container.Stage
}

type (
	PipelineKind = container.PipelineKind
	Mode         = container.Mode
	Stage        = container.Stage
	Plan         = container.Plan
	Step         = container.Step
	Context      = container.Context
)

const (
	PipelineCompiled    = container.PipelineCompiled
	PipelineInterpreted = container.PipelineInterpreted

	ModeDiagnostic = container.ModeDiagnostic
	ModeOptimized  = container.ModeOptimized
)

// WithContainerName names the root scope in logs and Registrations.
func WithContainerName(name string) Option {
	return func(cfg *containerConfig) {
		cfg.name = name
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *containerConfig) {
		cfg.logger = &logger
	}
}

// WithCatalog sets the catalog the container describes types with. The
// catalog may be shared by several containers.
func WithCatalog(catalog *introspect.Catalog) Option {
	return func(cfg *containerConfig) {
		cfg.catalog = catalog
		cfg.introspector = catalog
	}
}

// WithIntrospector replaces the catalog with another source of type
// descriptors. Catalog() returns nil on such containers.
func WithIntrospector(in introspect.Introspector) Option {
	return func(cfg *containerConfig) {
		cfg.catalog = nil
		cfg.introspector = in
		if cat, ok := in.(*introspect.Catalog); ok {
			cfg.catalog = cat
		}
	}
}

func WithPipeline(kind PipelineKind) Option {
	return func(cfg *containerConfig) {
		cfg.pipeline = kind
	}
}

func WithMode(mode Mode) Option {
	return func(cfg *containerConfig) {
		cfg.mode = mode
	}
}

// WithLockTimeout bounds how long a resolve waits for another goroutine
// building the same synchronized value. Zero waits until the context is
// done.
func WithLockTimeout(d time.Duration) Option {
	return func(cfg *containerConfig) {
		cfg.lockTimeout = d
	}
}

// WithDefaultLifetime sets the lifetime of registrations made without
// WithLifetime and of implicitly registered types.
func WithDefaultLifetime(kind lifetime.Kind) Option {
	return func(cfg *containerConfig) {
		cfg.defaultLifetime = kind
	}
}

func WithMaxDepth(depth int) Option {
	return func(cfg *containerConfig) {
		cfg.maxDepth = depth
	}
}

// WithStages appends stages that run after the built-in injection stages.
func WithStages(stages ...Stage) Option {
	return func(cfg *containerConfig) {
		cfg.stages = append(cfg.stages, stages...)
	}
}

// WithDecorator passes every built value of type T through fn.
func WithDecorator[T any](fn func(ctx *Context, v T) (T, error)) Option {
	t := reflect.TypeFor[T]()
	return WithStages(container.Decorator(t, func(ctx *Context, v any) (any, error) {
		typed, ok := v.(T)
		if !ok {
			return nil, errTypeMismatch(typeName[T](), v)
		}
		return fn(ctx, typed)
	}))
}

// WithSettings applies loaded settings. Options given after it override
// the settings.
func WithSettings(s *config.Settings) Option {
	return func(cfg *containerConfig) {
		if s == nil {
			return
		}
		cfg.pipeline = PipelineCompiled
		if s.Pipeline == config.PipelineInterpreted {
			cfg.pipeline = PipelineInterpreted
		}
		cfg.mode = ModeDiagnostic
		if s.Mode == config.ModeOptimized {
			cfg.mode = ModeOptimized
		}
		if kind, err := lifetime.ParseKind(s.DefaultLifetime); err == nil {
			cfg.defaultLifetime = kind
		}
		cfg.lockTimeout = s.LockTimeout
		cfg.maxDepth = s.MaxDepth
		if logger := s.Logger(); logger != nil {
			cfg.logger = logger
		}
	}
}
