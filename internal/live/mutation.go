package live

import (
	"context"
	"sync"
)

// Coordinator owns the UI-visible local copy of one remote entity and runs
// optimistic mutations against it. A mutation moves through
// Idle -> Applying -> Committed | RolledBack: the local value changes
// synchronously before the remote write is issued, a successful write
// leaves it alone (it already holds the intended value), and a failed write
// restores the snapshot captured before the mutation and returns the error.
//
// Each mutation's intent runs against the value current at invocation time,
// never a stale capture, so rapid repeated mutations (double-click
// like/unlike) serialize logically instead of losing updates. The remote
// store remains the source of truth: server echoes come back through
// Reconcile and simply replace the local value.
type Coordinator[T any] struct {
	mu       sync.Mutex
	current  T
	closed   bool
	onChange func(T)
}

// NewCoordinator seeds the local value. onChange observes every local state
// transition (optimistic apply, rollback, reconcile) and may be nil.
func NewCoordinator[T any](initial T, onChange func(T)) *Coordinator[T] {
	return &Coordinator[T]{current: initial, onChange: onChange}
}

// Current returns the UI-visible value.
func (c *Coordinator[T]) Current() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Mutate applies intent to the current value, publishes the result
// immediately, then issues write with the new value. On write failure the
// pre-mutation value is restored and the error returned. A rollback that
// lands after Close is a no-op.
func (c *Coordinator[T]) Mutate(ctx context.Context, intent func(T) T, write func(context.Context, T) error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	prev := c.current
	next := intent(prev)
	c.current = next
	notify := c.onChange
	c.mu.Unlock()

	if notify != nil {
		notify(next)
	}

	if err := write(ctx, next); err != nil {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return err
		}
		c.current = prev
		notify = c.onChange
		c.mu.Unlock()
		if notify != nil {
			notify(prev)
		}
		return err
	}
	return nil
}

// Reconcile replaces the local value with a settled server echo. No-op
// after Close.
func (c *Coordinator[T]) Reconcile(v T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.current = v
	notify := c.onChange
	c.mu.Unlock()
	if notify != nil {
		notify(v)
	}
}

// Close detaches the coordinator from its view; subsequent mutations,
// rollbacks, and reconciliations do not touch state or fire onChange.
func (c *Coordinator[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.onChange = nil
	c.mu.Unlock()
}
