package lifetime

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
)

// Container is the list of disposables a scope must close when it is itself
// disposed. Items are closed in reverse order of addition.
type Container struct {
	mu       sync.Mutex
	items    []io.Closer
	disposed bool
}

func NewContainer() *Container {
	return &Container{}
}

func (c *Container) Add(item io.Closer) {
	if item == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
}

// AddFunc tracks a cleanup function as a disposable.
func (c *Container) AddFunc(fn func() error) {
	if fn == nil {
		return
	}
	c.Add(&funcCloser{fn: fn})
}

func (c *Container) Remove(item io.Closer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.items) - 1; i >= 0; i-- {
		if same(c.items[i], item) {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Container) Contains(item io.Closer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.items {
		if same(existing, item) {
			return true
		}
	}
	return false
}

func (c *Container) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Disposed reports whether Dispose has been called at least once.
func (c *Container) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Dispose closes every tracked item exactly once. A failing item does not
// stop the others; the failures are returned joined. Calling Dispose again
// only closes items added since the previous call.
func (c *Container) Dispose() error {
	c.mu.Lock()
	items := c.items
	c.items = nil
	c.disposed = true
	c.mu.Unlock()

	var errs []error
	for i := len(items) - 1; i >= 0; i-- {
		if err := closeSafely(items[i]); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func closeSafely(item io.Closer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while disposing %T: %v", item, r)
		}
	}()

	if cerr := item.Close(); cerr != nil {
		return fmt.Errorf("disposing %T: %w", item, cerr)
	}
	return nil
}

type funcCloser struct {
	fn func() error
}

func (f *funcCloser) Close() error {
	return f.fn()
}

func same(a, b io.Closer) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}

// disposeValue closes v when it is an io.Closer.
func disposeValue(v any) error {
	closer, ok := v.(io.Closer)
	if !ok || closer == nil {
		return nil
	}
	return closeSafely(closer)
}
