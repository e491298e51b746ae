package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// SnapshotFunc receives a full JSON snapshot of the subscribed path. The
// snapshot is always the complete current value, never a diff. An absent
// path is delivered as JSON null.
type SnapshotFunc func(data json.RawMessage)

// Store is a path-addressed tree store: the single abstraction every live
// view and mutation in this codebase is built on. Paths are slash-separated
// ("posts/<id>", "notifications/<uid>/<id>") and values are flat or shallow
// JSON records; the store enforces no schema.
type Store interface {
	// Subscribe delivers the current snapshot of path immediately, then a
	// new full snapshot after every change at, below, or replacing the
	// path. Snapshots for one subscription arrive in order from a single
	// goroutine. The returned cancel function detaches the listener and is
	// safe to call more than once.
	Subscribe(path string, fn SnapshotFunc) (cancel func(), err error)

	// Get reads the value at path once, unmarshalling into v. An absent
	// path leaves v untouched and returns nil.
	Get(ctx context.Context, path string, v any) error

	// Write replaces the value at path. A nil value deletes the path.
	Write(ctx context.Context, path string, v any) error

	// Merge applies every root-relative path/value pair atomically: either
	// all of them become observable or none do. A nil value deletes its
	// path. This is the only legal way to touch more than one path in a
	// single logical operation (follow edges, counter + record combos).
	Merge(ctx context.Context, updates map[string]any) error

	// Claim atomically writes value at path when the path is absent or
	// already holds value, and reports whether the claim took. The check
	// and the write are one atomic step, so of any number of competing
	// claimants for an empty path exactly one wins; the rest observe
	// false. Plain writes resolve last-write-wins and carry no failure
	// signal, which makes Claim the only way to reserve a unique name.
	Claim(ctx context.Context, path string, value any) (bool, error)

	// PushKey returns a fresh child key for path. Keys are unique and
	// lexicographically ordered by generation time, so key order is
	// creation order.
	PushKey(path string) string

	// Errors carries asynchronous subscription failures. They are never
	// delivered through snapshot callbacks and never silently dropped by
	// the store itself.
	Errors() <-chan error
}

// ErrClosed is returned by operations against a store that has been shut
// down.
var ErrClosed = errors.New("store: closed")

// ErrConflictingPaths is returned by Merge when one update path is an
// ancestor of another; the result of applying both would depend on map
// iteration order.
var ErrConflictingPaths = errors.New("store: conflicting update paths")

// serverTimestampSentinel is the wire form the backing store resolves to
// its own clock at apply time.
const serverTimestampSentinel = `{".sv":"timestamp"}`

// Timestamp is a millisecond Unix timestamp. The zero value marshals to the
// server-timestamp sentinel, so a record written with a zero Timestamp gets
// the store's clock, not the client's.
type Timestamp int64

// MarshalJSON emits the server-timestamp sentinel for the zero value.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t == 0 {
		return []byte(serverTimestampSentinel), nil
	}
	return json.Marshal(int64(t))
}

// UnmarshalJSON accepts both a number and an unresolved sentinel (which can
// round-trip through an optimistic local snapshot before the server echo).
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if strings.HasPrefix(s, "{") {
		*t = 0
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = Timestamp(v)
	return nil
}

// splitPath normalizes a path into its non-empty segments.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// pathsOverlap reports whether a change at one path is visible from a
// subscription at the other: true when either is an ancestor of (or equal
// to) the other.
func pathsOverlap(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
