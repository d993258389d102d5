package lifetime

import (
	"reflect"
	"sync"
	"unsafe"
	"weak"
)

// ExternallyControlledManager keeps only a weak reference to pointer values,
// so the container never extends their life and never disposes them. Once
// the value has been garbage collected, the next resolve builds a new one.
//
// Values that are not non-nil pointers to heap memory (scalars, structs,
// interfaces holding values) cannot be referenced weakly and are held
// strongly instead.
type ExternallyControlledManager struct {
	base
	mu     sync.RWMutex
	ref    weak.Pointer[byte]
	typ    reflect.Type
	strong *box
}

func NewExternallyControlled() *ExternallyControlledManager {
	return &ExternallyControlledManager{}
}

func (m *ExternallyControlledManager) Kind() Kind {
	return ExternallyControlled
}

func (m *ExternallyControlledManager) GetValue(s Scope) (any, bool, error) {
	v, ok := m.TryGetValue(s)
	return v, ok, nil
}

func (m *ExternallyControlledManager) TryGetValue(Scope) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.strong != nil {
		return m.strong.value, true
	}
	if m.typ == nil {
		return nil, false
	}

	p := m.ref.Value()
	if p == nil {
		return nil, false
	}
	return reflect.NewAt(m.typ.Elem(), unsafe.Pointer(p)).Interface(), true
}

func (m *ExternallyControlledManager) SetValue(value any, _ Scope) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rv := reflect.ValueOf(value)
	if value != nil && rv.Kind() == reflect.Ptr && !rv.IsNil() && rv.Type().Elem().Size() > 0 {
		m.ref = weak.Make((*byte)(rv.UnsafePointer()))
		m.typ = rv.Type()
		m.strong = nil
		return nil
	}

	m.ref = weak.Pointer[byte]{}
	m.typ = nil
	m.strong = &box{value: value}
	return nil
}

func (m *ExternallyControlledManager) Recover(Scope) {}

func (m *ExternallyControlledManager) Clone() Manager {
	return NewExternallyControlled()
}
