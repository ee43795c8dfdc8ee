// Package lifecycle acquires run-scoped resources in order and releases them
// in strict reverse order, exactly once, however the run ends.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/entrhq/jobscout/pkg/logging"
)

// DefaultReleaseTimeout bounds the whole teardown.
const DefaultReleaseTimeout = 60 * time.Second

// Resource is something a run holds between Acquire and Release.
type Resource interface {
	Name() string
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// Func adapts a pair of functions to Resource. A nil ReleaseFn releases nothing.
type Func struct {
	ResourceName string
	AcquireFn    func(ctx context.Context) error
	ReleaseFn    func(ctx context.Context) error
}

func (f Func) Name() string { return f.ResourceName }

func (f Func) Acquire(ctx context.Context) error {
	if f.AcquireFn == nil {
		return nil
	}
	return f.AcquireFn(ctx)
}

func (f Func) Release(ctx context.Context) error {
	if f.ReleaseFn == nil {
		return nil
	}
	return f.ReleaseFn(ctx)
}

// Stack holds acquired resources. A failed Acquire is not pushed: the
// resource is responsible for cleaning up after its own failed acquisition.
type Stack struct {
	log            *logging.Logger
	releaseTimeout time.Duration

	mu       sync.Mutex
	held     []Resource
	released bool
}

// NewStack returns an empty stack. A zero timeout selects DefaultReleaseTimeout.
func NewStack(log *logging.Logger, releaseTimeout time.Duration) *Stack {
	if log == nil {
		log = logging.Nop()
	}
	if releaseTimeout <= 0 {
		releaseTimeout = DefaultReleaseTimeout
	}
	return &Stack{log: log, releaseTimeout: releaseTimeout}
}

// Acquire acquires r and pushes it on success.
func (s *Stack) Acquire(ctx context.Context, r Resource) error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return fmt.Errorf("acquire %s: stack already released", r.Name())
	}
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("acquire %s: %w", r.Name(), err)
	}
	s.log.Debugf("acquiring %s", r.Name())
	if err := r.Acquire(ctx); err != nil {
		return fmt.Errorf("acquire %s: %w", r.Name(), err)
	}

	s.mu.Lock()
	s.held = append(s.held, r)
	s.mu.Unlock()
	return nil
}

// Len returns the number of held resources.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held)
}

// Release releases every held resource, last acquired first. It runs under a
// fresh context bounded by the release timeout, detached from ctx's
// cancellation, so an interrupted run still tears down. Later calls are no-ops.
func (s *Stack) Release(ctx context.Context) error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	held := s.held
	s.held = nil
	s.mu.Unlock()

	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.releaseTimeout)
	defer cancel()

	var errs error
	for i := len(held) - 1; i >= 0; i-- {
		r := held[i]
		s.log.Debugf("releasing %s", r.Name())
		if err := r.Release(releaseCtx); err != nil {
			s.log.Warnf("release %s: %v", r.Name(), err)
			errs = multierr.Append(errs, fmt.Errorf("release %s: %w", r.Name(), err))
		}
	}
	return errs
}
