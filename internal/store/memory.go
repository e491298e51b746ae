package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// MemoryStore is an in-process Store backed by a JSON-shaped tree. It
// serializes all mutations, applies last-write-wins at the path level, and
// fans each change out to subscribers as full snapshots, which makes it both
// the local-mode backend and the test double for the remote tree store.
type MemoryStore struct {
	mu      sync.Mutex
	root    any
	subs    map[int]*memorySub
	nextSub int
	errs    chan error
	closed  bool
}

type memorySub struct {
	path []string

	// mailbox coalesces pending snapshots to the latest one; every snapshot
	// is full, so intermediate states may be skipped but never reordered.
	mu      sync.Mutex
	cond    *sync.Cond
	pending json.RawMessage
	dirty   bool
	done    bool
}

// NewMemoryStore returns an empty in-memory tree store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs: make(map[int]*memorySub),
		errs: make(chan error, 16),
	}
}

func (s *MemoryStore) Subscribe(path string, fn SnapshotFunc) (func(), error) {
	sub := &memorySub{path: splitPath(path)}
	sub.cond = sync.NewCond(&sub.mu)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub
	initial := s.snapshotLocked(sub.path)
	s.mu.Unlock()

	sub.offer(initial)
	go sub.run(fn)

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		sub.stop()
	}
	return cancel, nil
}

func (s *MemoryStore) Get(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	data := s.snapshotLocked(splitPath(path))
	s.mu.Unlock()

	if string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (s *MemoryStore) Write(ctx context.Context, path string, v any) error {
	return s.Merge(ctx, map[string]any{path: v})
}

func (s *MemoryStore) Merge(ctx context.Context, updates map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	type patch struct {
		path  []string
		value any
	}
	patches := make([]patch, 0, len(updates))
	for p, v := range updates {
		decoded, err := toTree(v)
		if err != nil {
			return fmt.Errorf("encode value for %q: %w", p, err)
		}
		patches = append(patches, patch{path: splitPath(p), value: decoded})
	}
	for i := range patches {
		for j := i + 1; j < len(patches); j++ {
			if pathsOverlap(patches[i].path, patches[j].path) {
				return ErrConflictingPaths
			}
		}
	}

	now := time.Now().UnixMilli()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	for _, p := range patches {
		s.root = setAt(s.root, p.path, resolveServerTimestamps(p.value, now))
	}
	// Fan out after the whole update is applied: a subscriber can observe
	// all of the patches or none, never a subset.
	for _, sub := range s.subs {
		for _, p := range patches {
			if pathsOverlap(sub.path, p.path) {
				sub.offer(s.snapshotLocked(sub.path))
				break
			}
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Claim(ctx context.Context, path string, value any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	decoded, err := toTree(value)
	if err != nil {
		return false, fmt.Errorf("encode value for %q: %w", path, err)
	}
	segs := splitPath(path)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	// Check and write under the same lock every mutation takes; a rival
	// claimant is either fully before us or fully after us.
	current := s.nodeLocked(segs)
	if current != nil && !reflect.DeepEqual(current, decoded) {
		s.mu.Unlock()
		return false, nil
	}
	s.root = setAt(s.root, segs, resolveServerTimestamps(decoded, time.Now().UnixMilli()))
	for _, sub := range s.subs {
		if pathsOverlap(sub.path, segs) {
			sub.offer(s.snapshotLocked(sub.path))
		}
	}
	s.mu.Unlock()
	return true, nil
}

func (s *MemoryStore) PushKey(string) string {
	return newPushKey()
}

func (s *MemoryStore) Errors() <-chan error { return s.errs }

// Close detaches every subscriber and fails subsequent operations with
// ErrClosed.
func (s *MemoryStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = map[int]*memorySub{}
	s.mu.Unlock()
	for _, sub := range subs {
		sub.stop()
	}
}

// SubscriberCount reports the number of live subscriptions. Test hook.
func (s *MemoryStore) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// nodeLocked returns the subtree at path, nil when absent; callers hold
// s.mu.
func (s *MemoryStore) nodeLocked(path []string) any {
	node := s.root
	for _, seg := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = m[seg]
	}
	return node
}

// snapshotLocked marshals the subtree at path; callers hold s.mu.
func (s *MemoryStore) snapshotLocked(path []string) json.RawMessage {
	data, err := json.Marshal(s.nodeLocked(path))
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

func (sub *memorySub) offer(data json.RawMessage) {
	sub.mu.Lock()
	sub.pending = data
	sub.dirty = true
	sub.mu.Unlock()
	sub.cond.Signal()
}

func (sub *memorySub) stop() {
	sub.mu.Lock()
	sub.done = true
	sub.mu.Unlock()
	sub.cond.Signal()
}

func (sub *memorySub) run(fn SnapshotFunc) {
	for {
		sub.mu.Lock()
		for !sub.dirty && !sub.done {
			sub.cond.Wait()
		}
		if sub.done {
			sub.mu.Unlock()
			return
		}
		data := sub.pending
		sub.dirty = false
		sub.mu.Unlock()
		fn(data)
	}
}

// toTree round-trips a value through JSON into the store's canonical tree
// representation (maps, slices, float64, string, bool, nil).
func toTree(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveServerTimestamps replaces {".sv":"timestamp"} nodes with now.
func resolveServerTimestamps(node any, now int64) any {
	switch n := node.(type) {
	case map[string]any:
		if len(n) == 1 {
			if sv, ok := n[".sv"].(string); ok && sv == "timestamp" {
				return float64(now)
			}
		}
		for k, v := range n {
			n[k] = resolveServerTimestamps(v, now)
		}
		return n
	case []any:
		for i, v := range n {
			n[i] = resolveServerTimestamps(v, now)
		}
		return n
	default:
		return node
	}
}

// setAt writes value at path inside node, creating intermediate maps and
// pruning empty ones on delete, and returns the new node.
func setAt(node any, path []string, value any) any {
	if len(path) == 0 {
		return value
	}
	m, ok := node.(map[string]any)
	if !ok {
		m = make(map[string]any)
	}
	child := setAt(m[path[0]], path[1:], value)
	if child == nil {
		delete(m, path[0])
	} else {
		m[path[0]] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
