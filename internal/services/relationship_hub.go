package services

import "sync"

// StatusHub delivers change signals for relationship rows keyed by user id.
// The relational store has no change feed, so mutations notify the hub and
// interested views block on their channel. Signals are edge-triggered and
// coalesce: a watcher that missed two notifies sees one.
type StatusHub struct {
	mu       sync.Mutex
	watchers map[string]map[chan struct{}]struct{}
}

// NewStatusHub builds an empty hub.
func NewStatusHub() *StatusHub {
	return &StatusHub{watchers: make(map[string]map[chan struct{}]struct{})}
}

// Watch registers interest in userID's rows. The returned channel receives
// a signal after every mutation touching that user; cancel unregisters and
// must be called on teardown.
func (h *StatusHub) Watch(userID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	set, ok := h.watchers[userID]
	if !ok {
		set = make(map[chan struct{}]struct{})
		h.watchers[userID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.watchers[userID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.watchers, userID)
				}
			}
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Notify signals every watcher of each given user. Non-blocking: a watcher
// with a pending signal is not signalled again.
func (h *StatusHub) Notify(userIDs ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		for ch := range h.watchers[id] {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}
