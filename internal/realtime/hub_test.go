package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()

	c1 := NewClient(1, "alice")
	c2 := NewClient(1, "alice") // second device

	assert.True(t, hub.Register(c1), "first connection should report firstConn")
	assert.False(t, hub.Register(c2), "second connection should not")
	assert.Equal(t, 2, hub.UserConnCount(1))
	assert.Equal(t, 2, hub.ClientCount())

	assert.False(t, hub.Unregister(c1), "user still has a live connection")
	assert.True(t, hub.Unregister(c2), "last connection should report lastConn")
	assert.Equal(t, 0, hub.UserConnCount(1))
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_SubscribeBroadcast(t *testing.T) {
	hub := NewHub()
	c1 := NewClient(1, "alice")
	c2 := NewClient(2, "bob")
	hub.Register(c1)
	hub.Register(c2)

	assert.True(t, hub.Subscribe(c1, "chat.42"))
	assert.False(t, hub.Subscribe(c1, "chat.42"), "duplicate subscribe is a no-op")
	hub.Subscribe(c2, "chat.42")

	sent := hub.Broadcast("chat.42", []byte(`{"event":"x"}`))
	assert.Equal(t, 2, sent)
	assert.Len(t, c1.Send, 1)
	assert.Len(t, c2.Send, 1)

	assert.True(t, hub.Unsubscribe(c1, "chat.42"))
	assert.False(t, hub.Unsubscribe(c1, "chat.42"))
	sent = hub.Broadcast("chat.42", []byte(`{}`))
	assert.Equal(t, 1, sent)
}

func TestHub_BroadcastUnknownChannel(t *testing.T) {
	hub := NewHub()
	assert.Equal(t, 0, hub.Broadcast("chat.999", []byte(`{}`)))
}

func TestHub_UnregisterDropsSubscriptions(t *testing.T) {
	hub := NewHub()
	c := NewClient(1, "alice")
	hub.Register(c)
	hub.Subscribe(c, "chat.42")
	hub.Subscribe(c, "user.1")

	hub.Unregister(c)
	assert.Equal(t, 0, hub.Broadcast("chat.42", []byte(`{}`)))
	assert.Equal(t, 0, hub.Broadcast("user.1", []byte(`{}`)))
}

func TestClient_TrySend(t *testing.T) {
	c := NewClient(1, "alice")
	assert.True(t, c.TrySend([]byte("a")))

	c.Close()
	assert.False(t, c.TrySend([]byte("b")), "closed client drops the frame")
	c.Close() // double close is safe
}

func TestClient_TrySendFullBuffer(t *testing.T) {
	c := NewClient(1, "alice")
	for i := 0; i < cap(c.Send); i++ {
		assert.True(t, c.TrySend([]byte("x")))
	}
	assert.False(t, c.TrySend([]byte("overflow")), "full buffer drops rather than blocks")
}
