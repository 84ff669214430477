// Package presence tracks the liveness of the actors behind submission
// records. Liveness arrives on a channel independent of the submission
// snapshot, keyed by record identity.
package presence

import "context"

// State is the liveness state of a single identity.
type State string

const (
	// StateUnknown is reported before the first liveness message for an
	// identity arrives, and for identities the channel has no entry for.
	StateUnknown State = "unknown"
	StateOnline  State = "online"
	StateOffline State = "offline"
)

// Entry is the channel's view of one identity.
type Entry struct {
	State State `json:"state"`
}

// Unsubscribe releases a liveness subscription. Synchronous and idempotent.
type Unsubscribe func()

// Channel is the liveness feed. Watch observes a single identity: fn is
// invoked with the current entry on registration (present=false when the
// channel has no entry yet) and on every change. WatchAll observes the whole
// channel and receives the full identity map on every change.
type Channel interface {
	Watch(ctx context.Context, id string, fn func(entry Entry, present bool)) (Unsubscribe, error)
	WatchAll(ctx context.Context, fn func(entries map[string]Entry)) (Unsubscribe, error)
}
