package hub

import (
	"encoding/json"
	"sync"

	"squadup/backend/internal/engine"
)

// Client represents a single in-process subscriber to a topic. It's
// essentially a channel the subscriber reads serialized events from.
type Client chan []byte

// Hub fans committed-state-change events out to per-aggregate topics
// ("party:<id>", "lobby:<id>"). It implements engine.Broadcaster; the
// engine only publishes after a transaction has committed, so nothing a
// subscriber sees can later roll back.
type Hub struct {
	topics map[string]map[Client]bool
	mu     sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[Client]bool),
	}
}

// Subscribe adds a new client to a topic.
func (h *Hub) Subscribe(topic string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[Client]bool)
	}
	h.topics[topic][client] = true
}

// Unsubscribe removes a client from a topic.
func (h *Hub) Unsubscribe(topic string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.topics[topic]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client) // Close the channel to signal the subscriber to stop.
			if len(clients) == 0 {
				delete(h.topics, topic)
			}
		}
	}
}

// Publish sends an event to every client on the topic. Fire-and-forget:
// a slow or gone subscriber is skipped, never waited on.
func (h *Hub) Publish(topic string, event engine.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.topics[topic]; ok {
		messageBytes, err := json.Marshal(event)
		if err != nil {
			return
		}

		for client := range clients {
			// Non-blocking send so one slow client cannot stall the hub.
			select {
			case client <- messageBytes:
			default:
			}
		}
	}
}
