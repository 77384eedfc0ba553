package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	first := hub.Subscribe(4)
	second := hub.Subscribe(4)
	require.Equal(t, 2, hub.Len())

	hub.Broadcast([]byte("payload"))

	assert.Equal(t, []byte("payload"), <-first.C)
	assert.Equal(t, []byte("payload"), <-second.C)
}

func TestHubSlowSubscriberMissesPayload(t *testing.T) {
	hub := NewHub()
	slow := hub.Subscribe(1)

	hub.Broadcast([]byte("one"))
	hub.Broadcast([]byte("two"))

	assert.Equal(t, []byte("one"), <-slow.C)
	select {
	case payload := <-slow.C:
		t.Fatalf("expected no payload, got %q", payload)
	default:
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(1)

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	assert.Zero(t, hub.Len())

	_, open := <-sub.C
	assert.False(t, open)

	hub.Broadcast([]byte("ignored"))
}
