// Package websocket streams protocol messages to connected dashboards.
// Clients subscribe with topic filters in MQTT style: an exact topic such as
// "/icu/bed5/cardiac", a prefix filter such as "/icu/bed5/#", or "#" for
// every bed.
package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

const EventProtocol = "protocol"

// Event is the frame written to dashboards.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ClientMessage is an inbound subscribe or unsubscribe request.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// Client is one dashboard connection. Filters are guarded by the hub lock.
type Client struct {
	ID      string
	Send    chan []byte
	filters map[string]struct{}
}

func NewClient(id string, buffer int, filters ...string) *Client {
	c := &Client{ID: id, Send: make(chan []byte, buffer), filters: make(map[string]struct{})}
	for _, f := range filters {
		if f = strings.TrimSpace(f); f != "" {
			c.filters[f] = struct{}{}
		}
	}
	return c
}

// Match reports whether a topic filter selects topic.
func Match(filter, topic string) bool {
	switch {
	case filter == "#":
		return true
	case strings.HasSuffix(filter, "/#"):
		base := strings.TrimSuffix(filter, "/#")
		return topic == base || strings.HasPrefix(topic, base+"/")
	default:
		return filter == topic
	}
}

// Hub tracks dashboard clients and fans events out to matching filters.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
	now     func() time.Time
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{}), now: time.Now}
}

// Register adds a client. A hub that is already closed closes the client
// immediately.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(c.Send)
		return
	}
	h.clients[c] = struct{}{}
}

// Unregister removes a client and closes its Send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.Send)
}

func (h *Hub) Subscribe(c *Client, filters []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, f := range filters {
		if f = strings.TrimSpace(f); f != "" {
			c.filters[f] = struct{}{}
		}
	}
}

func (h *Hub) Unsubscribe(c *Client, filters []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, f := range filters {
		delete(c.filters, strings.TrimSpace(f))
	}
}

func (h *Hub) ProcessMessage(c *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		h.Subscribe(c, msg.Topics)
	case "unsubscribe":
		h.Unsubscribe(c, msg.Topics)
	}
}

// Broadcast writes the event to every client with a matching filter and
// returns how many received it. Clients with a full buffer are skipped.
func (h *Hub) Broadcast(event Event) (int, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients {
		if !c.wants(event.Topic) {
			continue
		}
		select {
		case c.Send <- data:
			delivered++
		default:
		}
	}
	return delivered, nil
}

func (c *Client) wants(topic string) bool {
	for f := range c.filters {
		if Match(f, topic) {
			return true
		}
	}
	return false
}

// Publish wraps a protocol message payload in an Event. Having no
// subscribers is not an error. It satisfies notification.Publisher.
func (h *Hub) Publish(_ context.Context, topic string, payload []byte) error {
	data := json.RawMessage(payload)
	if !json.Valid(payload) {
		quoted, err := json.Marshal(string(payload))
		if err != nil {
			return err
		}
		data = quoted
	}
	_, err := h.Broadcast(Event{
		Type:      EventProtocol,
		Topic:     topic,
		Timestamp: h.now().UTC(),
		Data:      data,
	})
	return err
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.Send)
	}
	h.clients = make(map[*Client]struct{})
	h.closed = true
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribers returns the number of clients that would receive topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.wants(topic) {
			n++
		}
	}
	return n
}
