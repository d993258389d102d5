package registry

import (
	"fmt"
	"reflect"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/danpasecinic/thimble/internal/contract"
	"github.com/danpasecinic/thimble/introspect"
	"github.com/danpasecinic/thimble/lifetime"
)

type service struct{}

var serviceType = reflect.TypeFor[*service]()

func reg(t reflect.Type, name string) *Registration {
	return &Registration{
		Contract: contract.New(t, name),
		Category: TypeMapping,
		Lifetime: lifetime.NewTransient(),
	}
}

func TestRegisterReplaces(t *testing.T) {
	t.Parallel()

	s := NewRoot("root")
	first := reg(serviceType, "")
	assert.Nil(t, s.Register(first))

	v := s.Version()
	second := reg(serviceType, "")
	assert.Same(t, first, s.Register(second))
	assert.Same(t, first, second.Previous)
	assert.Greater(t, s.Version(), v)

	got, ok := s.Get(contract.New(serviceType, ""))
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []*Registration{second}, s.ByType(serviceType))
}

func TestLookupWalksChain(t *testing.T) {
	t.Parallel()

	root := NewRoot("root")
	child := root.NewChild("child")
	grandchild := child.NewChild("grandchild")

	r := reg(serviceType, "a")
	root.Register(r)

	got, owner := grandchild.Lookup(contract.New(serviceType, "a"))
	assert.Same(t, r, got)
	assert.Same(t, root, owner)

	shadow := reg(serviceType, "a")
	child.Register(shadow)
	got, owner = grandchild.Lookup(contract.New(serviceType, "a"))
	assert.Same(t, shadow, got)
	assert.Same(t, child, owner)

	got, _ = root.Lookup(contract.New(serviceType, "a"))
	assert.Same(t, r, got)

	got, owner = root.Lookup(contract.New(serviceType, "missing"))
	assert.Nil(t, got)
	assert.Nil(t, owner)

	_, ok := grandchild.Get(contract.New(serviceType, "a"))
	assert.False(t, ok)
}

func TestTableGrowth(t *testing.T) {
	t.Parallel()

	s := NewRoot("")
	for i := range 1000 {
		s.Register(reg(serviceType, fmt.Sprint(i)))
	}
	assert.Equal(t, 1000, s.Len())

	for i := range 1000 {
		_, ok := s.Get(contract.New(serviceType, fmt.Sprint(i)))
		require.True(t, ok, i)
	}
	assert.Greater(t, s.Version(), uint64(1000))

	all := s.All()
	require.Len(t, all, 1000)
	for i, r := range all {
		assert.Equal(t, fmt.Sprint(i), r.Contract.Name)
	}
}

func TestCollectShadowsAndOrders(t *testing.T) {
	t.Parallel()

	root := NewRoot("root")
	child := root.NewChild("child")

	root.Register(reg(serviceType, "a"))
	root.Register(reg(serviceType, "b"))
	override := reg(serviceType, "a")
	child.Register(override)
	child.Register(reg(serviceType, "c"))

	assert.Equal(t, []string{"a", "b", "c"}, child.Names(serviceType))
	assert.Same(t, override, child.Collect(serviceType, nil)[0])
	assert.Equal(t, []string{"a", "b"}, root.Names(serviceType))
	assert.True(t, child.Contains(serviceType))
	assert.False(t, root.Contains(reflect.TypeFor[int]()))
}

func TestCollectIncludesOpen(t *testing.T) {
	t.Parallel()

	cat := introspect.NewCatalog()
	def := cat.Generic("repo", 1)

	s := NewRoot("")
	s.Register(reg(serviceType, "closed"))
	s.Register(&Registration{Contract: contract.Open(def, "open"), Lifetime: lifetime.NewTransient()})
	s.Register(reg(serviceType, "later"))

	assert.Len(t, s.ByGeneric(def), 1)

	names := []string{}
	for _, r := range s.Collect(serviceType, def) {
		names = append(names, r.Contract.Name)
	}
	assert.Equal(t, []string{"closed", "open", "later"}, names)
}

func TestChainVersion(t *testing.T) {
	t.Parallel()

	root := NewRoot("")
	child := root.NewChild("")
	v := child.ChainVersion()

	root.Register(reg(serviceType, ""))
	assert.Greater(t, child.ChainVersion(), v)
}

func TestImplicitCachedAtRoot(t *testing.T) {
	t.Parallel()

	root := NewRoot("")
	child := root.NewChild("")
	c := contract.New(serviceType, "")

	builds := 0
	build := func() *Registration {
		builds++
		return &Registration{Contract: c, Category: Cache, Lifetime: lifetime.NewTransient()}
	}

	a := child.Implicit(c, build)
	b := root.Implicit(c, build)
	assert.Same(t, a, b)
	assert.Same(t, root, a.Owner)
	assert.Equal(t, 1, builds)

	got, _ := root.Lookup(c)
	assert.Nil(t, got)
}

func TestChildrenAreWeak(t *testing.T) {
	t.Parallel()

	root := NewRoot("")
	kept := root.NewChild("kept")
	func() {
		_ = root.NewChild("dropped")
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		return len(root.Children()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Same(t, kept, root.Children()[0])
	runtime.KeepAlive(kept)
}

func TestConcurrentRegisterSameContract(t *testing.T) {
	t.Parallel()

	s := NewRoot("")
	var g errgroup.Group
	for range 64 {
		g.Go(func() error {
			s.Register(reg(serviceType, ""))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, s.Len())
	assert.Len(t, s.ByType(serviceType), 1)

	winner, ok := s.Get(contract.New(serviceType, ""))
	require.True(t, ok)
	history := 0
	for r := winner.Previous; r != nil; r = r.Previous {
		history++
	}
	assert.Equal(t, 63, history)
}

func TestBindClosedKeepsFirst(t *testing.T) {
	t.Parallel()

	open := reg(serviceType, "")
	c := contract.New(reflect.TypeFor[int](), "")
	first := reg(reflect.TypeFor[int](), "")

	assert.Same(t, first, open.BindClosed(c, first))
	assert.Same(t, first, open.BindClosed(c, reg(reflect.TypeFor[int](), "")))

	got, ok := open.Bound(c)
	require.True(t, ok)
	assert.Same(t, first, got)
}
