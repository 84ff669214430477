package engine

import (
	"sync"
	"time"
)

// MessageKind distinguishes success from error status messages.
type MessageKind string

const (
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
)

// StatusMessage is a transient operator-facing notification. At most one is
// visible at a time; posting a new one replaces the current one.
type StatusMessage struct {
	Kind MessageKind `json:"kind"`
	Text string      `json:"text"`
}

// MessageCenter holds the current transient message and auto-dismisses it
// after a fixed interval.
type MessageCenter struct {
	mu      sync.Mutex
	ttl     time.Duration
	current *StatusMessage
	seq     uint64
}

// NewMessageCenter creates a message center with the given display interval.
func NewMessageCenter(ttl time.Duration) *MessageCenter {
	return &MessageCenter{ttl: ttl}
}

// Post replaces the current message and schedules its dismissal. A message
// replaced before its interval elapses is not affected by the superseded
// message's timer.
func (c *MessageCenter) Post(kind MessageKind, text string) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.current = &StatusMessage{Kind: kind, Text: text}
	c.mu.Unlock()

	time.AfterFunc(c.ttl, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.seq == seq {
			c.current = nil
		}
	})
}

// Current returns the visible message, if any.
func (c *MessageCenter) Current() (StatusMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return StatusMessage{}, false
	}
	return *c.current, true
}
