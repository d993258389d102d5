package reflect

import (
	"reflect"
	"strconv"
	"sync"
	"unsafe"
)

var typeKeyCache sync.Map

func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

func TypeKey(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if cached, ok := typeKeyCache.Load(t); ok {
		return cached.(string)
	}

	key := buildTypeKey(t)
	typeKeyCache.Store(t, key)
	return key
}

func buildTypeKey(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Ptr:
		return "*" + buildTypeKey(t.Elem())
	case reflect.Slice:
		return "[]" + buildTypeKey(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + buildTypeKey(t.Elem())
	case reflect.Map:
		return "map[" + buildTypeKey(t.Key()) + "]" + buildTypeKey(t.Elem())
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + buildTypeKey(t.Elem())
		case reflect.SendDir:
			return "chan<- " + buildTypeKey(t.Elem())
		default:
			return "chan " + buildTypeKey(t.Elem())
		}
	case reflect.Func:
		return t.String()
	default:
		if t.PkgPath() != "" {
			return t.PkgPath() + "." + t.Name()
		}
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}

func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

var (
	errorType      = reflect.TypeFor[error]()
	unsafePtrType  = reflect.TypeFor[unsafe.Pointer]()
	boolType       = reflect.TypeFor[bool]()
	uintptrTypeKey = reflect.Uintptr
)

func ErrorType() reflect.Type {
	return errorType
}

// SeqElem reports whether t has the shape of iter.Seq[E], func(yield func(E) bool),
// and returns E.
func SeqElem(t reflect.Type) (reflect.Type, bool) {
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != 1 || t.NumOut() != 0 {
		return nil, false
	}
	yield := t.In(0)
	if yield.Kind() != reflect.Func || yield.NumIn() != 1 || yield.NumOut() != 1 || yield.Out(0) != boolType {
		return nil, false
	}
	return yield.In(0), true
}

func SliceElem(t reflect.Type) (reflect.Type, bool) {
	if t == nil || t.Kind() != reflect.Slice {
		return nil, false
	}
	return t.Elem(), true
}

// IsByRef reports parameter types that can only act as out parameters.
func IsByRef(t reflect.Type) bool {
	if t == nil {
		return true
	}
	if t == unsafePtrType || t.Kind() == uintptrTypeKey {
		return true
	}
	return t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Ptr
}

// Zero returns the zero value of t, or nil for interface and pointer-like kinds.
func Zero(t reflect.Type) any {
	if t == nil {
		return nil
	}
	return reflect.Zero(t).Interface()
}

// AssignableValue converts v into a value assignable to t, using the zero value for nil.
func AssignableValue(v any, t reflect.Type) (reflect.Value, bool) {
	if v == nil {
		switch t.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return reflect.Zero(t), true
		default:
			return reflect.Value{}, false
		}
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		if rv.Type() != t {
			converted := reflect.New(t).Elem()
			converted.Set(rv)
			return converted, true
		}
		return rv, true
	}
	if rv.Type().ConvertibleTo(t) && rv.Kind() == t.Kind() {
		return rv.Convert(t), true
	}
	return reflect.Value{}, false
}

func ReturnsError(t reflect.Type) bool {
	return t.Kind() == reflect.Func && t.NumOut() == 2 && t.Out(1).Implements(errorType)
}
