package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func join(h *Hub, buffer int) *Client {
	c := &Client{hub: h, send: make(chan Message, buffer)}
	h.register <- c
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case m, ok := <-c.send:
		require.True(t, ok, "client channel closed")
		return m
	case <-time.After(time.Second):
		t.Fatal("no message")
	}
	return Message{}
}

func TestPublishFansOut(t *testing.T) {
	h, _ := startHub(t)
	a, b := join(h, 4), join(h, 4)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, h.Publish("tracks", map[string]int{"count": 3}))

	for _, c := range []*Client{a, b} {
		m := receive(t, c)
		require.Equal(t, JSONMessage, m.Type)
		var env Envelope
		require.NoError(t, json.Unmarshal(m.Data, &env))
		require.Equal(t, "tracks", env.Event)
		require.JSONEq(t, `{"count":3}`, string(env.Data))
	}
}

func TestLatestReplayedToNewClient(t *testing.T) {
	h, _ := startHub(t)
	h.Broadcast(NewBinaryMessage([]byte{1, 2, 3}))

	c := join(h, 4)
	m := receive(t, c)
	require.Equal(t, BinaryMessage, m.Type)
	require.Equal(t, []byte{1, 2, 3}, m.Data)
}

func TestSlowClientDropped(t *testing.T) {
	h, _ := startHub(t)
	slow := join(h, 0)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	h.Broadcast(NewBinaryMessage([]byte{1}))
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)

	_, ok := <-slow.send
	require.False(t, ok)
}

func TestUnregisterAndShutdown(t *testing.T) {
	h, cancel := startHub(t)
	a, b := join(h, 1), join(h, 1)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, time.Millisecond)

	h.unregister <- a
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)
	_, ok := <-a.send
	require.False(t, ok)

	cancel()
	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	_, ok = <-b.send
	require.False(t, ok)
}

func TestNewEventRejectsUnencodable(t *testing.T) {
	_, err := NewEvent("bad", make(chan int))
	require.Error(t, err)
}
