package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"NovaCS/entity"
	"NovaCS/internal/push"
)

// Hub maintains the set of active WebSocket subscribers and fans push
// events out by topic. Delivery is best effort: a subscriber that
// cannot keep up is dropped and will reconcile through polling, the
// hub never blocks on a slow connection.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *push.Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        *slog.Logger
}

// NewHub creates a new Hub instance.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *push.Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run starts the hub's event loop. Should be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				if client.topic != event.Topic {
					continue
				}
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) publish(evType, topic string, record any) {
	data, err := json.Marshal(record)
	if err != nil {
		h.log.Warn("failed to marshal push record", slog.String("error", err.Error()))
		return
	}
	h.broadcast <- &push.Event{
		Type:   evType,
		Topic:  topic,
		Record: data,
	}
}

// PublishMessage notifies the conversation's subscribers of a new or
// changed message.
func (h *Hub) PublishMessage(evType string, msg entity.Message) {
	h.publish(evType, push.MessageTopic(msg.ConversationID), msg)
}

// PublishConversation notifies inbox subscribers of a conversation
// change, status transitions included.
func (h *Hub) PublishConversation(conv entity.Conversation) {
	h.publish(push.EventUpdate, push.ConversationTopic, conv)
}
