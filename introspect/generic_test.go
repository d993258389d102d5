package introspect

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repo[T any] struct{ items []T }

type pair[K comparable, V any] struct {
	k K
	v V
}

func TestGenericBindAndClose(t *testing.T) {
	t.Parallel()

	cat := NewCatalog()
	def := cat.Generic("repo", 1)
	assert.Same(t, def, cat.Generic("repo", 1))
	assert.NotSame(t, def, cat.Generic("repo", 2))

	intType := reflect.TypeFor[int]()
	require.NoError(t, Bind[*repo[int]](def, intType))

	closed, err := def.Close(intType)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[*repo[int]](), closed)

	got, args, ok := cat.GenericOf(reflect.TypeFor[*repo[int]]())
	require.True(t, ok)
	assert.Same(t, def, got)
	assert.Equal(t, []reflect.Type{intType}, args)

	_, _, ok = cat.GenericOf(reflect.TypeFor[*repo[string]]())
	assert.False(t, ok)
	assert.Len(t, def.Instances(), 1)
}

func TestGenericCloseFailures(t *testing.T) {
	t.Parallel()

	cat := NewCatalog()
	def := cat.Generic("pair", 2)
	str, num := reflect.TypeFor[string](), reflect.TypeFor[int]()
	MustBind[pair[string, int]](def, str, num)

	_, err := def.Close(str)
	assert.True(t, errors.Is(err, ErrConstraint))

	_, err = def.Close(num, num)
	assert.True(t, errors.Is(err, ErrConstraint))

	assert.Error(t, Bind[pair[int, int]](def, num))

	def.Constrain(Kinds(0, reflect.Int))
	_, err = def.Close(str, num)
	assert.True(t, errors.Is(err, ErrConstraint))
}

func TestImplementsConstraint(t *testing.T) {
	t.Parallel()

	stringer := reflect.TypeFor[fmt.Stringer]()
	c := Implements(0, stringer)

	assert.Error(t, c([]reflect.Type{reflect.TypeFor[int]()}))
	assert.NoError(t, c([]reflect.Type{reflect.TypeFor[reflect.Kind]()}))
	assert.Error(t, c(nil))
}

func TestGenericKeyAndString(t *testing.T) {
	t.Parallel()

	def := NewCatalog().Generic("pair", 2)
	assert.Equal(t, "pair`2", def.Key())
	assert.Equal(t, "pair[,]", def.String())
	assert.Equal(t, 2, def.Arity())
	assert.Equal(t, "pair", def.Name())
}

func TestBindBumpsVersion(t *testing.T) {
	t.Parallel()

	cat := NewCatalog()
	def := cat.Generic("repo", 1)
	v := cat.Version()
	MustBind[*repo[int]](def, reflect.TypeFor[int]())
	assert.Greater(t, cat.Version(), v)
}
