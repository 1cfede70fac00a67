package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Client represents a single WebSocket connection with user context. One
// user may hold several clients at once (multi-device); the hub keys
// presence and online detection off the per-user connection count.
type Client struct {
	ID       string
	UserID   uint
	Username string
	Send     chan []byte

	mu       sync.Mutex
	closed   bool
	channels map[string]struct{}
}

func NewClient(userID uint, username string) *Client {
	return &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: username,
		Send:     make(chan []byte, 256),
		channels: make(map[string]struct{}),
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// TrySend queues the payload without blocking. It reports false when the
// client is closed or its buffer is full; either way the frame is dropped.
func (c *Client) TrySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) addChannel(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.channels[name]; ok {
		return false
	}
	c.channels[name] = struct{}{}
	return true
}

func (c *Client) removeChannel(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.channels[name]; !ok {
		return false
	}
	delete(c.channels, name)
	return true
}

// Channels returns a snapshot of the client's subscriptions.
func (c *Client) Channels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.channels))
	for name := range c.channels {
		out = append(out, name)
	}
	return out
}
