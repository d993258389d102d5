package lifetime

import (
	"sync"
	"sync/atomic"
	"time"
)

// HierarchicalManager behaves like ContainerControlledManager, except that
// every scope which resolves the registration gets, caches and later
// disposes its own instance.
type HierarchicalManager struct {
	base
	opts    options
	timeout atomic.Int64

	mu    sync.Mutex
	slots map[*Container]*hierarchicalSlot
}

type hierarchicalSlot struct {
	owner *HierarchicalManager
	scope *Container
	sync  *synchronized
	value atomic.Pointer[box]
}

func NewHierarchical(opts ...Option) *HierarchicalManager {
	o := applyOptions(opts)
	m := &HierarchicalManager{
		opts:  o,
		slots: make(map[*Container]*hierarchicalSlot),
	}
	m.timeout.Store(int64(o.timeout))
	return m
}

func (m *HierarchicalManager) Kind() Kind {
	return Hierarchical
}

func (m *HierarchicalManager) slot(s Scope, create bool) *hierarchicalSlot {
	var key *Container
	if s != nil {
		key = s.Lifetime()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if sl, ok := m.slots[key]; ok {
		return sl
	}
	if !create {
		return nil
	}

	o := m.opts
	o.timeout = time.Duration(m.timeout.Load())
	sl := &hierarchicalSlot{owner: m, scope: key, sync: newSynchronized(o)}
	m.slots[key] = sl
	return sl
}

func (m *HierarchicalManager) GetValue(s Scope) (any, bool, error) {
	sl := m.slot(s, true)
	if b := sl.value.Load(); b != nil {
		return b.value, true, nil
	}

	if err := sl.sync.enter(scopeContext(s)); err != nil {
		return nil, false, err
	}

	if b := sl.value.Load(); b != nil {
		sl.sync.leave()
		return b.value, true, nil
	}
	return nil, false, nil
}

func (m *HierarchicalManager) TryGetValue(s Scope) (any, bool) {
	sl := m.slot(s, false)
	if sl == nil {
		return nil, false
	}
	if b := sl.value.Load(); b != nil {
		return b.value, true
	}
	return nil, false
}

func (m *HierarchicalManager) SetValue(value any, s Scope) error {
	sl := m.slot(s, true)
	if sl.value.Swap(&box{value: value}) == nil && sl.scope != nil {
		sl.scope.Add(sl)
	}
	sl.sync.leave()
	return nil
}

func (m *HierarchicalManager) Recover(s Scope) {
	if sl := m.slot(s, false); sl != nil {
		sl.sync.leave()
	}
}

func (m *HierarchicalManager) Clone() Manager {
	clone := NewHierarchical()
	clone.opts = m.opts
	clone.timeout.Store(m.timeout.Load())
	return clone
}

func (m *HierarchicalManager) SetDefaultTimeout(d time.Duration) {
	if m.opts.hasTimeout {
		return
	}
	m.timeout.Store(int64(d))
}

// Scopes returns how many scopes currently hold an instance.
func (m *HierarchicalManager) Scopes() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, sl := range m.slots {
		if sl.value.Load() != nil {
			n++
		}
	}
	return n
}

func (sl *hierarchicalSlot) Close() error {
	sl.owner.mu.Lock()
	if sl.owner.slots[sl.scope] == sl {
		delete(sl.owner.slots, sl.scope)
	}
	sl.owner.mu.Unlock()

	b := sl.value.Swap(nil)
	if b == nil {
		return nil
	}
	return disposeValue(b.value)
}
