package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageCenter_AutoDismissal(t *testing.T) {
	c := NewMessageCenter(50 * time.Millisecond)

	c.Post(MessageSuccess, "submission approved")
	msg, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, MessageSuccess, msg.Kind)
	assert.Equal(t, "submission approved", msg.Text)

	assert.Eventually(t, func() bool {
		_, ok := c.Current()
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMessageCenter_ReplacementOutlivesSupersededTimer(t *testing.T) {
	c := NewMessageCenter(80 * time.Millisecond)

	c.Post(MessageError, "failed to clear submission")
	time.Sleep(50 * time.Millisecond)
	c.Post(MessageSuccess, "submission cleared")

	// The first message's timer fires now; the replacement must survive it.
	time.Sleep(50 * time.Millisecond)
	msg, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "submission cleared", msg.Text)

	assert.Eventually(t, func() bool {
		_, ok := c.Current()
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMessageCenter_EmptyByDefault(t *testing.T) {
	c := NewMessageCenter(time.Second)
	_, ok := c.Current()
	assert.False(t, ok)
}
