package presence

import (
	"context"
	"sync"
)

// Hub is an in-memory liveness channel. Client heartbeats land here via Set
// and fan out synchronously to per-identity and aggregate watchers.
type Hub struct {
	mu          sync.Mutex
	entries     map[string]Entry
	watchers    map[string]map[int]func(Entry, bool)
	allWatchers map[int]func(map[string]Entry)
	nextID      int
}

// NewHub creates an empty liveness hub.
func NewHub() *Hub {
	return &Hub{
		entries:     make(map[string]Entry),
		watchers:    make(map[string]map[int]func(Entry, bool)),
		allWatchers: make(map[int]func(map[string]Entry)),
	}
}

// Set records the liveness state for an identity and notifies watchers.
func (h *Hub) Set(id string, state State) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[id] = Entry{State: state}
	for _, fn := range h.watchers[id] {
		fn(h.entries[id], true)
	}
	h.notifyAllLocked()
}

// Remove drops an identity from the channel entirely; its watchers observe
// a not-present entry.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.entries, id)
	for _, fn := range h.watchers[id] {
		fn(Entry{}, false)
	}
	h.notifyAllLocked()
}

// Watch observes one identity, delivering its current entry immediately.
func (h *Hub) Watch(_ context.Context, id string, fn func(Entry, bool)) (Unsubscribe, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.watchers[id] == nil {
		h.watchers[id] = make(map[int]func(Entry, bool))
	}
	watchID := h.nextID
	h.nextID++
	h.watchers[id][watchID] = fn

	entry, present := h.entries[id]
	fn(entry, present)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.watchers[id], watchID)
			if len(h.watchers[id]) == 0 {
				delete(h.watchers, id)
			}
		})
	}, nil
}

// WatchAll observes the whole channel, delivering the current map immediately.
func (h *Hub) WatchAll(_ context.Context, fn func(map[string]Entry)) (Unsubscribe, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	watchID := h.nextID
	h.nextID++
	h.allWatchers[watchID] = fn
	fn(h.snapshotLocked())

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.allWatchers, watchID)
		})
	}, nil
}

// WatcherCount reports how many per-identity watchers are currently open.
// Used by tests to verify subscriptions do not leak as the view churns.
func (h *Hub) WatcherCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := 0
	for _, w := range h.watchers {
		count += len(w)
	}
	return count
}

func (h *Hub) snapshotLocked() map[string]Entry {
	out := make(map[string]Entry, len(h.entries))
	for id, entry := range h.entries {
		out[id] = entry
	}
	return out
}

func (h *Hub) notifyAllLocked() {
	snapshot := h.snapshotLocked()
	for _, fn := range h.allWatchers {
		fn(snapshot)
	}
}

var _ Channel = (*Hub)(nil)
