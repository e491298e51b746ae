package live

import (
	"encoding/json"
	"sort"
)

// Keyed pairs a decoded child record with the store key it lives under.
type Keyed[T any] struct {
	ID    string
	Value T
}

// Materialize turns a raw collection snapshot (child key -> record) into an
// ordered, typed slice. It is a pure function of its inputs: the same
// snapshot always yields the same output, an absent or empty snapshot
// yields an empty slice, and children that fail to decode are skipped
// rather than failing the whole view (a record referencing deleted data
// must degrade, not error). keep may be nil to take everything; less may be
// nil to order by key alone.
func Materialize[T any](snap json.RawMessage, less func(a, b Keyed[T]) bool, keep func(Keyed[T]) bool) []Keyed[T] {
	out := []Keyed[T]{}
	if len(snap) == 0 || string(snap) == "null" {
		return out
	}
	var children map[string]json.RawMessage
	if err := json.Unmarshal(snap, &children); err != nil {
		return out
	}
	for id, raw := range children {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		entry := Keyed[T]{ID: id, Value: v}
		if keep != nil && !keep(entry) {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if less == nil {
			return out[i].ID < out[j].ID
		}
		if less(out[i], out[j]) {
			return true
		}
		if less(out[j], out[i]) {
			return false
		}
		// Key order is creation order; it breaks timestamp ties so the
		// output is deterministic.
		return out[i].ID < out[j].ID
	})
	return out
}

// MaterializeOne decodes a single-record snapshot. ok is false for an
// absent or undecodable snapshot.
func MaterializeOne[T any](snap json.RawMessage) (v T, ok bool) {
	if len(snap) == 0 || string(snap) == "null" {
		return v, false
	}
	if err := json.Unmarshal(snap, &v); err != nil {
		return v, false
	}
	return v, true
}
