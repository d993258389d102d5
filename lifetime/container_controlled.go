package lifetime

import (
	"sync/atomic"
	"time"
)

// ContainerControlledManager caches one value for the scope that owns the
// registration. Descendant scopes share it. The value is disposed together
// with the owning scope's lifetime container.
type ContainerControlledManager struct {
	base
	opts    options
	sync    *synchronized
	value   atomic.Pointer[box]
	tracked atomic.Bool
}

func NewContainerControlled(opts ...Option) *ContainerControlledManager {
	o := applyOptions(opts)
	return &ContainerControlledManager{
		opts: o,
		sync: newSynchronized(o),
	}
}

func (m *ContainerControlledManager) Kind() Kind {
	return ContainerControlled
}

func (m *ContainerControlledManager) GetValue(s Scope) (any, bool, error) {
	if b := m.value.Load(); b != nil {
		return b.value, true, nil
	}

	if err := m.sync.enter(scopeContext(s)); err != nil {
		return nil, false, err
	}

	if b := m.value.Load(); b != nil {
		m.sync.leave()
		return b.value, true, nil
	}
	return nil, false, nil
}

func (m *ContainerControlledManager) TryGetValue(Scope) (any, bool) {
	if b := m.value.Load(); b != nil {
		return b.value, true
	}
	return nil, false
}

func (m *ContainerControlledManager) SetValue(value any, s Scope) error {
	m.value.Store(&box{value: value})
	if s != nil && s.Lifetime() != nil && m.tracked.CompareAndSwap(false, true) {
		s.Lifetime().Add(m)
	}
	m.sync.leave()
	return nil
}

func (m *ContainerControlledManager) Recover(Scope) {
	m.sync.leave()
}

// Close disposes the cached value. Only the first call after a SetValue has
// any effect.
func (m *ContainerControlledManager) Close() error {
	m.tracked.Store(false)
	b := m.value.Swap(nil)
	if b == nil {
		return nil
	}
	return disposeValue(b.value)
}

func (m *ContainerControlledManager) Clone() Manager {
	clone := NewContainerControlled()
	clone.opts = m.opts
	clone.sync = newSynchronized(m.opts)
	clone.sync.setDefaultTimeout(m.sync.currentTimeout())
	return clone
}

func (m *ContainerControlledManager) SetDefaultTimeout(d time.Duration) {
	m.sync.setDefaultTimeout(d)
}
