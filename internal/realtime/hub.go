// Package realtime is the in-process notification feed: every dispatched
// notification is mirrored onto a topic, and SSE-attached clients of this
// instance receive the ones for topics they subscribed to. Cross-instance
// delivery rides the redis bus.
package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gatherhub/gatherhub-backend/internal/platform/logger"
)

type Message struct {
	Topic string            `json:"topic"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	// Origin identifies the instance that published the message on the
	// cross-instance bus, so a forwarder can drop its own echoes.
	Origin string `json:"origin,omitempty"`
}

type FeedClient struct {
	ID       uuid.UUID
	UserID   string
	Topics   map[string]bool
	Outbound chan Message
	done     chan struct{}
}

type FeedHub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	subscriptions map[string]map[*FeedClient]bool
}

func NewFeedHub(log *logger.Logger) *FeedHub {
	return &FeedHub{
		log:           log.With("component", "FeedHub"),
		subscriptions: make(map[string]map[*FeedClient]bool),
	}
}

func (hub *FeedHub) NewFeedClient(userID string) *FeedClient {
	return &FeedClient{
		ID:       uuid.New(),
		UserID:   userID,
		Topics:   make(map[string]bool),
		Outbound: make(chan Message, 16),
		done:     make(chan struct{}),
	}
}

func (hub *FeedHub) Subscribe(client *FeedClient, topic string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return
	}

	client.Topics[topic] = true

	clients, exists := hub.subscriptions[topic]
	if !exists {
		clients = make(map[*FeedClient]bool)
		hub.subscriptions[topic] = clients
	}
	clients[client] = true

	hub.log.Debug("Feed client subscribed", "clientID", client.ID, "topic", topic)
}

func (hub *FeedHub) Unsubscribe(client *FeedClient, topic string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return
	}
	delete(client.Topics, topic)

	if subMap, ok := hub.subscriptions[topic]; ok {
		delete(subMap, client)
		if len(subMap) == 0 {
			delete(hub.subscriptions, topic)
		}
	}
}

func (hub *FeedHub) RemoveClient(client *FeedClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for topic := range client.Topics {
		if subMap, ok := hub.subscriptions[topic]; ok {
			delete(subMap, client)
			if len(subMap) == 0 {
				delete(hub.subscriptions, topic)
			}
		}
	}
	client.Topics = make(map[string]bool)
}

// Broadcast never blocks: a subscriber that cannot keep up loses messages
// rather than stalling dispatch.
func (hub *FeedHub) Broadcast(msg Message) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if msg.Topic == "" {
		return
	}
	clientsMap, ok := hub.subscriptions[msg.Topic]
	if !ok {
		return
	}
	for c := range clientsMap {
		select {
		case c.Outbound <- msg:
		default:
			hub.log.Warn("Dropping feed message; outbound buffer full", "clientID", c.ID, "topic", msg.Topic)
		}
	}
}

func (hub *FeedHub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *FeedClient) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg := <-client.Outbound:
			jsonBytes, err := json.Marshal(msg)
			if err != nil {
				hub.log.Warn("Failed to marshal feed message", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: notification\ndata: %s\n\n", string(jsonBytes))
			flusher.Flush()
		}
	}
}

func (hub *FeedHub) CloseClient(client *FeedClient) {
	close(client.done)
	hub.RemoveClient(client)
	close(client.Outbound)
}
