package presence

import (
	"context"
	"log/slog"
	"sync"
)

// Tracker composes per-record liveness into the console view. Each rendered
// record gets its own channel subscription whose lifetime is bound to that
// record's presence in the view: SyncView opens subscriptions for records
// entering the view and releases them for records leaving it, so open
// subscriptions never accumulate as the view churns.
//
// An independent aggregate subscription counts distinct online identities
// channel-wide, regardless of what the view currently shows.
type Tracker struct {
	channel Channel
	logger  *slog.Logger

	mu     sync.Mutex
	subs   map[string]Unsubscribe
	states map[string]State
	online int

	aggUnsub Unsubscribe
}

// TrackerOption configures the Tracker.
type TrackerOption func(*Tracker)

// WithLogger sets the logger for the tracker.
func WithLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker creates a tracker over the given liveness channel.
func NewTracker(channel Channel, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		channel: channel,
		logger:  slog.Default(),
		subs:    make(map[string]Unsubscribe),
		states:  make(map[string]State),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start opens the aggregate subscription. Starting an already started
// tracker is a no-op.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	already := t.aggUnsub != nil
	t.mu.Unlock()
	if already {
		return nil
	}

	unsub, err := t.channel.WatchAll(ctx, func(entries map[string]Entry) {
		count := 0
		for _, entry := range entries {
			if entry.State == StateOnline {
				count++
			}
		}
		t.mu.Lock()
		t.online = count
		t.mu.Unlock()
	})
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.aggUnsub = unsub
	t.mu.Unlock()
	return nil
}

// SyncView reconciles open per-record subscriptions with the record
// identities currently in the rendered view.
func (t *Tracker) SyncView(ctx context.Context, ids []string) {
	inView := make(map[string]bool, len(ids))
	for _, id := range ids {
		inView[id] = true
	}

	t.mu.Lock()
	departed := make(map[string]Unsubscribe)
	for id, unsub := range t.subs {
		if !inView[id] {
			departed[id] = unsub
			delete(t.subs, id)
		}
	}
	var entering []string
	for _, id := range ids {
		if _, ok := t.subs[id]; !ok {
			entering = append(entering, id)
		}
	}
	t.mu.Unlock()

	for _, unsub := range departed {
		unsub()
	}
	t.mu.Lock()
	for id := range departed {
		delete(t.states, id)
	}
	t.mu.Unlock()

	for _, id := range entering {
		unsub, err := t.channel.Watch(ctx, id, func(entry Entry, present bool) {
			state := StateUnknown
			if present {
				state = entry.State
			}
			t.mu.Lock()
			t.states[id] = state
			t.mu.Unlock()
		})
		if err != nil {
			t.logger.Error("presence watch failed", "record_id", id, "error", err)
			continue
		}
		t.mu.Lock()
		if _, dup := t.subs[id]; dup {
			// A concurrent SyncView already opened this one.
			t.mu.Unlock()
			unsub()
			continue
		}
		t.subs[id] = unsub
		t.mu.Unlock()
	}
}

// Status returns the liveness state for a record identity. Identities
// without a subscription or without a channel entry report unknown.
func (t *Tracker) Status(id string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if state, ok := t.states[id]; ok && state != "" {
		return state
	}
	return StateUnknown
}

// OnlineCount returns the number of distinct identities currently online
// across the whole channel.
func (t *Tracker) OnlineCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.online
}

// Stop releases every open subscription. Idempotent.
func (t *Tracker) Stop() {
	t.mu.Lock()
	subs := t.subs
	t.subs = make(map[string]Unsubscribe)
	t.states = make(map[string]State)
	agg := t.aggUnsub
	t.aggUnsub = nil
	t.mu.Unlock()

	for _, unsub := range subs {
		unsub()
	}
	if agg != nil {
		agg()
	}
}
