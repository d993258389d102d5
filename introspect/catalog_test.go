package introspect

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logger struct{}

type store struct {
	Log     *logger `thimble:""`
	Cache   *logger `thimble:"cache,optional"`
	Skipped *logger `thimble:"-"`
	Plain   int
	hidden  int
	level   int
}

func (s *store) SetLevel(level int)       { s.level = level }
func (s *store) SetName(string) error     { return nil }
func (s *store) Init(l *logger, n int)    {}
func (s *store) Describe() string         { return "" }
func (s *store) SetMany(a, b int)         {}
func (s *store) Out(target **logger) bool { return false }

func newStore(l *logger) *store            { return &store{Log: l} }
func newStoreErr(l *logger) (*store, error) { return &store{Log: l}, nil }

func TestDescribeZeroValueConstructor(t *testing.T) {
	t.Parallel()

	cat := NewCatalog()
	ti, err := cat.Describe(reflect.TypeFor[*store]())
	require.NoError(t, err)
	require.True(t, ti.Buildable())
	require.Len(t, ti.Constructors, 1)
	assert.True(t, ti.Constructors[0].IsZero())
}

func TestDescribeFields(t *testing.T) {
	t.Parallel()

	cat := NewCatalog()
	ti, err := cat.Describe(reflect.TypeFor[*store]())
	require.NoError(t, err)

	names := make([]string, 0, len(ti.Fields))
	for _, f := range ti.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Log", "Cache", "Plain"}, names)

	log, ok := ti.Field("Log")
	require.True(t, ok)
	assert.True(t, log.Inject)
	assert.Empty(t, log.Dependency)
	assert.False(t, log.Optional)

	cache, ok := ti.Field("Cache")
	require.True(t, ok)
	assert.True(t, cache.Inject)
	assert.Equal(t, "cache", cache.Dependency)
	assert.True(t, cache.Optional)

	plain, ok := ti.Field("Plain")
	require.True(t, ok)
	assert.False(t, plain.Inject)
}

func TestDescribePropertiesAndMethods(t *testing.T) {
	t.Parallel()

	cat := NewCatalog()
	ti, err := cat.Describe(reflect.TypeFor[*store]())
	require.NoError(t, err)

	level, ok := ti.Property("Level")
	require.True(t, ok)
	assert.Equal(t, "SetLevel", level.Setter)
	assert.Equal(t, reflect.TypeFor[int](), level.Type)
	assert.False(t, level.ReturnsError)
	assert.False(t, level.Inject)

	name, ok := ti.Property("Name")
	require.True(t, ok)
	assert.True(t, name.ReturnsError)

	_, ok = ti.Property("Many")
	assert.False(t, ok)

	initMethod, ok := ti.Method("Init")
	require.True(t, ok)
	require.Len(t, initMethod.Params, 2)
	assert.False(t, initMethod.Inject)

	out, ok := ti.Method("Out")
	require.True(t, ok)
	assert.True(t, out.Params[0].ByRef)
}

func TestStructValueUsesPointerMethods(t *testing.T) {
	t.Parallel()

	cat := NewCatalog()
	ti, err := cat.Describe(reflect.TypeFor[store]())
	require.NoError(t, err)

	_, ok := ti.Property("Level")
	assert.True(t, ok)
}

func TestAddConstructor(t *testing.T) {
	t.Parallel()

	cat := NewCatalog()
	v0 := cat.Version()
	require.NoError(t, cat.AddConstructor(newStore, "log=primary,optional"))
	require.NoError(t, cat.AddConstructor(newStoreErr))
	assert.Greater(t, cat.Version(), v0)

	ti, err := cat.Describe(reflect.TypeFor[*store]())
	require.NoError(t, err)
	require.Len(t, ti.Constructors, 2)

	first := ti.Constructors[0]
	assert.Equal(t, 0, first.Index)
	assert.False(t, first.ReturnsError)
	assert.Equal(t, "log", first.Params[0].Name)
	assert.Equal(t, "primary", first.Params[0].Dependency)
	assert.True(t, first.Params[0].Optional)

	second := ti.Constructors[1]
	assert.Equal(t, 1, second.Index)
	assert.True(t, second.ReturnsError)
	assert.Empty(t, second.Params[0].Name)
}

func TestAddConstructorRejects(t *testing.T) {
	t.Parallel()

	cat := NewCatalog()
	tests := []struct {
		name string
		fn   any
	}{
		{"nil", nil},
		{"not a func", 42},
		{"no result", func() {}},
		{"variadic", func(...int) *store { return nil }},
		{"second result not error", func() (*store, int) { return nil, 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cat.AddConstructor(tt.fn)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidMember))
		})
	}

	err := cat.AddConstructor(newStore, "a", "b")
	assert.True(t, errors.Is(err, ErrInvalidMember))
}

func TestNotBuildable(t *testing.T) {
	t.Parallel()

	cat := NewCatalog()
	for _, typ := range []reflect.Type{
		reflect.TypeFor[int](),
		reflect.TypeFor[error](),
		reflect.TypeFor[func()](),
		nil,
	} {
		_, err := cat.Describe(typ)
		assert.True(t, errors.Is(err, ErrNotBuildable), "%v", typ)
	}
}

func TestInjectionMarks(t *testing.T) {
	t.Parallel()

	cat := NewCatalog()
	typ := reflect.TypeFor[*store]()

	require.NoError(t, cat.InjectField(typ, "Plain", "answer,optional"))
	require.NoError(t, cat.InjectProperty(typ, "Level", "level"))
	require.NoError(t, cat.InjectMethod(typ, "Init", "log", "n=count"))

	assert.Error(t, cat.InjectField(typ, "hidden", ""))
	assert.Error(t, cat.InjectField(typ, "Missing", ""))
	assert.Error(t, cat.InjectProperty(typ, "Many", ""))
	assert.Error(t, cat.InjectMethod(typ, "Missing"))
	assert.Error(t, cat.InjectField(reflect.TypeFor[int](), "X", ""))

	ti, err := cat.Describe(typ)
	require.NoError(t, err)

	plain, _ := ti.Field("Plain")
	assert.True(t, plain.Inject)
	assert.Equal(t, "answer", plain.Dependency)
	assert.True(t, plain.Optional)

	level, _ := ti.Property("Level")
	assert.True(t, level.Inject)
	assert.Equal(t, "level", level.Dependency)

	initMethod, _ := ti.Method("Init")
	assert.True(t, initMethod.Inject)
	assert.Equal(t, "n", initMethod.Params[1].Name)
	assert.Equal(t, "count", initMethod.Params[1].Dependency)

	value, err := cat.Describe(reflect.TypeFor[store]())
	require.NoError(t, err)
	plain, _ = value.Field("Plain")
	assert.True(t, plain.Inject)
}

func TestDescribeCachesUntilChanged(t *testing.T) {
	t.Parallel()

	cat := NewCatalog()
	typ := reflect.TypeFor[*store]()

	a, err := cat.Describe(typ)
	require.NoError(t, err)
	b, err := cat.Describe(typ)
	require.NoError(t, err)
	assert.Same(t, a, b)

	require.NoError(t, cat.AddConstructor(newStore))
	c, err := cat.Describe(typ)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestParseTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want tag
	}{
		{"", tag{}},
		{"-", tag{skip: true}},
		{"primary", tag{name: "primary"}},
		{",optional", tag{optional: true}},
		{"cache, optional", tag{name: "cache", optional: true}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseTag(tt.in), tt.in)
	}

	name, tg := parseParam("db=replica,optional")
	assert.Equal(t, "db", name)
	assert.Equal(t, tag{name: "replica", optional: true}, tg)

	name, tg = parseParam("db,optional")
	assert.Equal(t, "db", name)
	assert.Equal(t, tag{optional: true}, tg)
}
