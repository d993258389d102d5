package lifetime

import (
	"sync"

	"github.com/petermattis/goid"
)

// PerThreadManager caches one value per goroutine. Values are never
// disposed by the container and stay cached after their goroutine exits.
type PerThreadManager struct {
	base
	mu     sync.RWMutex
	values map[int64]any
}

func NewPerThread() *PerThreadManager {
	return &PerThreadManager{values: make(map[int64]any)}
}

func (m *PerThreadManager) Kind() Kind {
	return PerThread
}

func (m *PerThreadManager) GetValue(s Scope) (any, bool, error) {
	v, ok := m.TryGetValue(s)
	return v, ok, nil
}

func (m *PerThreadManager) TryGetValue(Scope) (any, bool) {
	id := goid.Get()

	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[id]
	return v, ok
}

func (m *PerThreadManager) SetValue(value any, _ Scope) error {
	id := goid.Get()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[id] = value
	return nil
}

func (m *PerThreadManager) Recover(Scope) {}

func (m *PerThreadManager) Clone() Manager {
	return NewPerThread()
}
