package thimble

import (
	"github.com/danpasecinic/thimble/lifetime"
)

// Lifetime is the caching policy of a registration.
type Lifetime = lifetime.Kind

const (
	Transient           = lifetime.Transient
	ContainerControlled = lifetime.ContainerControlled
	Hierarchical        = lifetime.Hierarchical
	PerThread           = lifetime.PerThread
	PerResolve          = lifetime.PerResolve
	External            = lifetime.ExternallyControlled
)

// WithScope gives the registration a fresh manager of kind.
func WithScope(kind Lifetime) RegisterOption {
	return WithLifetime(lifetime.New(kind))
}

// AsSingleton caches the value in the registering container. Descendants
// share it.
func AsSingleton() RegisterOption {
	return WithScope(ContainerControlled)
}

func AsTransient() RegisterOption {
	return WithScope(Transient)
}

// AsHierarchical caches one value per resolving container.
func AsHierarchical() RegisterOption {
	return WithScope(Hierarchical)
}

func AsPerThread() RegisterOption {
	return WithScope(PerThread)
}

// AsPerResolve shares one value within a single top-level resolve.
func AsPerResolve() RegisterOption {
	return WithScope(PerResolve)
}
