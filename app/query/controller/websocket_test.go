package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientSubscriptions(t *testing.T) {
	subs := NewClientSubscriptions()

	require.False(t, subs.IsSubscribed("0xpair"))

	subs.Subscribe("0xpair")
	require.True(t, subs.IsSubscribed("0xpair"))
	require.False(t, subs.IsSubscribed("0xother"))

	subs.Unsubscribe("0xpair")
	require.False(t, subs.IsSubscribed("0xpair"))
}

func TestEnqueueGivesUpOnDeadConnection(t *testing.T) {
	// Writer gone, buffer full: the read loop must not block forever.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	send := make(chan ServerMessage, 1)
	send <- ServerMessage{Type: "event"}

	require.False(t, enqueue(ctx, send, ServerMessage{Type: "subscribed"}))
}

func TestEnqueueDeliversWhileConnectionLives(t *testing.T) {
	send := make(chan ServerMessage, 1)
	require.True(t, enqueue(context.Background(), send, ServerMessage{Type: "subscribed"}))
	require.Equal(t, "subscribed", (<-send).Type)
}

func TestClientSubscriptionsWildcard(t *testing.T) {
	subs := NewClientSubscriptions()

	subs.Subscribe("*")
	require.True(t, subs.IsSubscribed("0xpair"))
	require.True(t, subs.IsSubscribed("0xanything"))

	subs.Unsubscribe("*")
	require.False(t, subs.IsSubscribed("0xpair"))
}
