package live

import (
	"encoding/json"
	"sync"
)

// View couples one managed subscription with a materializer: every snapshot
// of the collection at path is flattened, filtered, and sorted, and the
// result handed to onChange. After Close, late snapshots are dropped and
// onChange is never invoked again.
type View[T any] struct {
	mu     sync.Mutex
	closed bool
	handle *Handle
}

// Watch opens a materialized view over a collection path. onChange runs on
// the subscription's delivery goroutine, in snapshot order.
func Watch[T any](m *Manager, path, scope string, less func(a, b Keyed[T]) bool, keep func(Keyed[T]) bool, onChange func([]Keyed[T])) (*View[T], error) {
	v := &View[T]{}
	handle, err := m.Acquire(path, scope, func(data json.RawMessage) {
		v.mu.Lock()
		if v.closed {
			v.mu.Unlock()
			return
		}
		v.mu.Unlock()
		onChange(Materialize(data, less, keep))
	})
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	if v.closed {
		// Closed while Acquire was in flight.
		v.mu.Unlock()
		handle.Release()
		return nil, nil
	}
	v.handle = handle
	v.mu.Unlock()
	return v, nil
}

// Close releases the underlying subscription. Idempotent.
func (v *View[T]) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	handle := v.handle
	v.handle = nil
	v.mu.Unlock()
	if handle != nil {
		handle.Release()
	}
}
