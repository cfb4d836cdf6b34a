// Package realtime fans portal events out to connected browsers over
// websockets. Events are "dumb pokes": they never carry diffs, the client
// re-runs its full fetch on receipt.
package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/opsdesk/opsdesk/internal/metrics"
)

// Event names understood by portal clients.
const (
	EventTicketsChanged = "tickets_changed"
	EventUnreadCounts   = "unread_counts"
)

// Event is the wire envelope pushed to clients.
type Event struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// UnreadPayload carries both header counters in one push.
type UnreadPayload struct {
	Messages      int `json:"messages"`
	Notifications int `json:"notifications"`
}

// Hub tracks connected clients by user. Safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	byUser  map[string]map[*Client]struct{}
	closed  bool

	logger *log.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		byUser:  make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		c.close()
		return
	}
	h.clients[c] = struct{}{}
	if h.byUser[c.userID] == nil {
		h.byUser[c.userID] = make(map[*Client]struct{})
	}
	h.byUser[c.userID][c] = struct{}{}
	metrics.Get().RealtimeClients.Inc()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if peers := h.byUser[c.userID]; peers != nil {
		delete(peers, c)
		if len(peers) == 0 {
			delete(h.byUser, c.userID)
		}
	}
	c.close()
	metrics.Get().RealtimeClients.Dec()
}

// UserIDs returns the users with at least one open connection. The refresh
// scheduler uses this as its recompute set.
func (h *Hub) UserIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.byUser))
	for id := range h.byUser {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast pushes an event to every connected client.
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Printf("realtime: marshal %s event: %v", event.Event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.trySend(data)
	}
	metrics.Get().RealtimeBroadcasts.WithLabelValues(event.Event).Inc()
}

// SendToUser pushes an event to one user's open connections. Unconnected
// users are skipped silently.
func (h *Hub) SendToUser(userID string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Printf("realtime: marshal %s event: %v", event.Event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byUser[userID] {
		c.trySend(data)
	}
}

// Close disconnects all clients. The hub accepts no registrations after.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		c.close()
	}
	h.clients = make(map[*Client]struct{})
	h.byUser = make(map[string]map[*Client]struct{})
}
