package container

import (
	"context"
	"fmt"
	"time"
)

// OnDispose registers fn to run when this scope is disposed. Functions run
// in reverse order of registration, interleaved with the values the scope
// owns.
func (c *Container) OnDispose(fn func() error) {
	c.scope.Lifetime().AddFunc(fn)
}

// Dispose releases everything this scope owns, most recently stored first.
// Child scopes are not disposed. Calling Dispose again releases only what
// the scope acquired since the previous call, such as a singleton resolved
// after disposal.
//
// When ctx is done before disposal finishes, Dispose returns the context
// error and disposal continues in the background.
func (c *Container) Dispose(ctx context.Context) error {
	first := c.disposed.CompareAndSwap(false, true)
	if !first && c.scope.Lifetime().Len() == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- c.scope.Lifetime().Dispose()
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = fmt.Errorf("dispose timeout exceeded: %w", ctx.Err())
	}

	if err != nil {
		c.engine.logger.Warn().
			Err(err).
			Str("scope", c.scope.ID().String()).
			Dur("duration", time.Since(start)).
			Msg("errors while disposing scope")
		return err
	}

	c.engine.logger.Debug().
		Str("scope", c.scope.ID().String()).
		Bool("again", !first).
		Dur("duration", time.Since(start)).
		Msg("disposed scope")
	return nil
}

func (c *Container) Disposed() bool {
	return c.disposed.Load()
}
