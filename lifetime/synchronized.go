package lifetime

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// synchronized is a lock that may be acquired by one goroutine and released
// by whichever goroutine finishes the build.
type synchronized struct {
	sem     *semaphore.Weighted
	held    atomic.Bool
	timeout atomic.Int64
	fixed   bool
}

func newSynchronized(o options) *synchronized {
	s := &synchronized{sem: semaphore.NewWeighted(1), fixed: o.hasTimeout}
	s.timeout.Store(int64(o.timeout))
	return s
}

func (s *synchronized) enter(ctx context.Context) error {
	if d := time.Duration(s.timeout.Load()); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTimeout, time.Duration(s.timeout.Load()))
		}
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	s.held.Store(true)
	return nil
}

func (s *synchronized) leave() {
	if s.held.CompareAndSwap(true, false) {
		s.sem.Release(1)
	}
}

func (s *synchronized) setDefaultTimeout(d time.Duration) {
	if s.fixed {
		return
	}
	s.timeout.Store(int64(d))
}

func (s *synchronized) currentTimeout() time.Duration {
	return time.Duration(s.timeout.Load())
}
