package lifetime

// TransientManager never caches; every resolve runs the pipeline.
type TransientManager struct {
	base
}

func NewTransient() *TransientManager {
	return &TransientManager{}
}

func (m *TransientManager) Kind() Kind {
	return Transient
}

func (m *TransientManager) GetValue(Scope) (any, bool, error) {
	return nil, false, nil
}

func (m *TransientManager) TryGetValue(Scope) (any, bool) {
	return nil, false
}

func (m *TransientManager) SetValue(any, Scope) error {
	return nil
}

func (m *TransientManager) Recover(Scope) {}

func (m *TransientManager) Clone() Manager {
	return NewTransient()
}
