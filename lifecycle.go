package thimble

import (
	"context"
)

// Dispose releases the values owned by this scope. Errors are logged, not
// returned. Children are not disposed.
func (c *Container) Dispose() {
	_ = c.internal.Dispose(context.Background())
}

// Close is Dispose reporting the errors of the disposed values.
func (c *Container) Close() error {
	return c.internal.Dispose(context.Background())
}

// CloseCtx is Close bounded by ctx.
func (c *Container) CloseCtx(ctx context.Context) error {
	return c.internal.Dispose(ctx)
}

// OnDispose runs fn when the container is disposed, in reverse order of
// registration together with the values the container owns.
func (c *Container) OnDispose(fn func() error) {
	c.internal.OnDispose(fn)
}

func (c *Container) Disposed() bool {
	return c.internal.Disposed()
}
