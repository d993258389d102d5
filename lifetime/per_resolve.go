package lifetime

// PerResolveManager shares one value across a single top-level resolve and
// its nested dependency resolves. Nothing outlives that call.
type PerResolveManager struct {
	base
}

func NewPerResolve() *PerResolveManager {
	return &PerResolveManager{}
}

func (m *PerResolveManager) Kind() Kind {
	return PerResolve
}

func (m *PerResolveManager) GetValue(s Scope) (any, bool, error) {
	v, ok := m.TryGetValue(s)
	return v, ok, nil
}

func (m *PerResolveManager) TryGetValue(s Scope) (any, bool) {
	if s == nil || s.ResolveStore() == nil {
		return nil, false
	}
	return s.ResolveStore().Load(m)
}

func (m *PerResolveManager) SetValue(value any, s Scope) error {
	if s == nil || s.ResolveStore() == nil {
		return nil
	}
	s.ResolveStore().Store(m, value)
	return nil
}

func (m *PerResolveManager) Recover(Scope) {}

func (m *PerResolveManager) Clone() Manager {
	return NewPerResolve()
}
