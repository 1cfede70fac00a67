package realtime

import "sync"

// Hub owns the live connections and their channel subscriptions. Sends are
// non-blocking: a client whose buffer is full misses the frame rather than
// stalling the broadcast.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	byUser    map[uint]map[*Client]struct{}
	byChannel map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		byUser:    make(map[uint]map[*Client]struct{}),
		byChannel: make(map[string]map[*Client]struct{}),
	}
}

// Register adds the connection and reports whether it is the user's first,
// which is what flips the user online.
func (h *Hub) Register(c *Client) (firstConn bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if h.byUser[c.UserID] == nil {
		h.byUser[c.UserID] = make(map[*Client]struct{})
	}
	h.byUser[c.UserID][c] = struct{}{}
	return len(h.byUser[c.UserID]) == 1
}

// Unregister drops the connection and all its subscriptions, reporting
// whether it was the user's last connection.
func (h *Hub) Unregister(c *Client) (lastConn bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	if m := h.byUser[c.UserID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byUser, c.UserID)
			lastConn = true
		}
	}
	for _, name := range c.Channels() {
		h.dropSubscription(c, name)
	}
	return lastConn
}

// Subscribe attaches the client to a channel. Returns false when the client
// was already subscribed.
func (h *Hub) Subscribe(c *Client, channel string) bool {
	if !c.addChannel(channel) {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byChannel[channel] == nil {
		h.byChannel[channel] = make(map[*Client]struct{})
	}
	h.byChannel[channel][c] = struct{}{}
	return true
}

func (h *Hub) Unsubscribe(c *Client, channel string) bool {
	if !c.removeChannel(channel) {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropSubscription(c, channel)
	return true
}

// dropSubscription must run under h.mu.
func (h *Hub) dropSubscription(c *Client, channel string) {
	if m := h.byChannel[channel]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byChannel, channel)
		}
	}
}

// Broadcast sends the payload to every subscriber of the channel and
// returns the number of clients reached.
func (h *Hub) Broadcast(channel string, data []byte) int {
	h.mu.RLock()
	m := h.byChannel[channel]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	sent := 0
	for _, c := range clients {
		if c.TrySend(data) {
			sent++
		}
	}
	return sent
}

func (h *Hub) UserConnCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
