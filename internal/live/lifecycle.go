package live

import (
	"encoding/json"
	"sync"

	"github.com/foxncici/mincici/internal/store"
)

// Manager tracks active subscriptions keyed by (path, scope) and guarantees
// exactly one underlying store listener per key, however many views are
// interested. Views acquire a handle on mount and release it on teardown;
// the last release detaches the listener. scope distinguishes logical views
// that watch the same path with different intent (e.g. the conversations
// list and an open thread both watch "messages").
type Manager struct {
	store store.Store

	mu   sync.Mutex
	subs map[subKey]*subEntry
}

type subKey struct {
	path  string
	scope string
}

type subEntry struct {
	cancel  func()
	handles map[*Handle]store.SnapshotFunc
	last    json.RawMessage
	seeded  bool
}

// Handle is one view's claim on a shared subscription. Release is
// idempotent, so deferred releases on error paths are safe.
type Handle struct {
	m        *Manager
	key      subKey
	released bool
}

// NewManager builds a Manager over the given store.
func NewManager(st store.Store) *Manager {
	return &Manager{store: st, subs: make(map[subKey]*subEntry)}
}

// Acquire registers fn for (path, scope), opening the underlying
// subscription only if this is the first interested view. If the
// subscription has already delivered a snapshot, fn receives it
// synchronously before Acquire returns.
func (m *Manager) Acquire(path, scope string, fn store.SnapshotFunc) (*Handle, error) {
	key := subKey{path: path, scope: scope}
	h := &Handle{m: m, key: key}

	m.mu.Lock()
	entry, ok := m.subs[key]
	if ok {
		entry.handles[h] = fn
		seeded, last := entry.seeded, entry.last
		m.mu.Unlock()
		if seeded {
			fn(last)
		}
		return h, nil
	}

	entry = &subEntry{handles: map[*Handle]store.SnapshotFunc{h: fn}}
	m.subs[key] = entry
	m.mu.Unlock()

	cancel, err := m.store.Subscribe(path, func(data json.RawMessage) {
		m.dispatch(key, data)
	})
	if err != nil {
		m.mu.Lock()
		delete(m.subs, key)
		m.mu.Unlock()
		return nil, err
	}

	m.mu.Lock()
	if cur, ok := m.subs[key]; !ok || cur != entry {
		// Every handle was released while Subscribe was in flight.
		m.mu.Unlock()
		cancel()
		return nil, store.ErrClosed
	}
	entry.cancel = cancel
	m.mu.Unlock()
	return h, nil
}

// Release detaches the handle; the last release for a key tears down the
// underlying subscription. Calling Release twice is a no-op.
func (h *Handle) Release() {
	m := h.m
	m.mu.Lock()
	if h.released {
		m.mu.Unlock()
		return
	}
	h.released = true
	entry, ok := m.subs[h.key]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(entry.handles, h)
	var cancel func()
	if len(entry.handles) == 0 {
		cancel = entry.cancel
		delete(m.subs, h.key)
	}
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// ActiveSubscriptions reports the number of live underlying subscriptions.
func (m *Manager) ActiveSubscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// dispatch fans a snapshot out to every handle still attached to key. A
// snapshot racing a teardown finds no entry and is dropped, which is the
// required late-callback no-op.
func (m *Manager) dispatch(key subKey, data json.RawMessage) {
	m.mu.Lock()
	entry, ok := m.subs[key]
	if !ok {
		m.mu.Unlock()
		return
	}
	entry.last = data
	entry.seeded = true
	fns := make([]store.SnapshotFunc, 0, len(entry.handles))
	for _, fn := range entry.handles {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(data)
	}
}
