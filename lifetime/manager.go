// Package lifetime implements the policies that decide whether a built value
// is cached, where it is cached, and who disposes it.
//
// A Manager is attached to exactly one registration. The resolution engine
// asks it for a cached value with GetValue; on a miss the engine builds the
// value and hands it back with SetValue, or calls Recover when the build
// failed. Synchronized managers hold a lock between a missing GetValue and the
// matching SetValue/Recover so concurrent callers never build twice.
package lifetime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTimeout is returned by GetValue when a synchronized manager could not
// acquire its lock within the configured wait.
var ErrTimeout = errors.New("timed out acquiring lifetime lock")

// Scope is the view of the resolving container a manager needs.
type Scope interface {
	// Lifetime is the disposables list of the scope the value belongs to.
	Lifetime() *Container
	// ResolveStore is shared by every context of one top-level resolve.
	ResolveStore() *sync.Map
	// Context bounds lock waits.
	Context() context.Context
}

type Manager interface {
	Kind() Kind
	GetValue(s Scope) (any, bool, error)
	// TryGetValue never blocks.
	TryGetValue(s Scope) (any, bool)
	SetValue(value any, s Scope) error
	Recover(s Scope)
	// Clone returns an unused manager with the same policy and options.
	Clone() Manager
	// Claim marks the manager as used by a registration. It returns false if
	// another registration already claimed it.
	Claim() bool
	InUse() bool
}

type Option func(*options)

type options struct {
	timeout    time.Duration
	hasTimeout bool
}

// WithTimeout bounds how long GetValue waits for another goroutine that is
// building the value. Zero or negative means wait forever.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
		o.hasTimeout = true
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// TimeoutConfigurable is implemented by managers whose wait can be bounded.
// The container applies its default to managers that were created without
// an explicit WithTimeout.
type TimeoutConfigurable interface {
	SetDefaultTimeout(d time.Duration)
}

type base struct {
	inUse atomic.Bool
}

func (b *base) Claim() bool {
	return b.inUse.CompareAndSwap(false, true)
}

func (b *base) InUse() bool {
	return b.inUse.Load()
}

type box struct {
	value any
}

func scopeContext(s Scope) context.Context {
	if s == nil {
		return context.Background()
	}
	if ctx := s.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
