package push

import (
	"encoding/json"
	"fmt"

	"NovaCS/entity"
)

// Event kinds delivered over a topic. Arrival order is not timestamp
// order, and delivery is at-least-once with gaps during disconnects;
// consumers reconcile through the merge policy and the poller.
const (
	EventInsert = "insert"
	EventUpdate = "update"
)

// Event is one change notification from the push channel.
type Event struct {
	Type   string          `json:"type"`
	Topic  string          `json:"topic"`
	Record json.RawMessage `json:"record"`
}

// MessageTopic is the topic carrying one conversation's messages.
func MessageTopic(conversationID string) string {
	return "messages:" + conversationID
}

// ConversationTopic carries status updates for all conversations.
const ConversationTopic = "conversations"

// Message decodes the event record as a chat message.
func (e Event) Message() (entity.Message, error) {
	var msg entity.Message
	if err := json.Unmarshal(e.Record, &msg); err != nil {
		return entity.Message{}, fmt.Errorf("decode message event: %w", err)
	}
	return msg, nil
}

// Conversation decodes the event record as a conversation update.
func (e Event) Conversation() (entity.Conversation, error) {
	var conv entity.Conversation
	if err := json.Unmarshal(e.Record, &conv); err != nil {
		return entity.Conversation{}, fmt.Errorf("decode conversation event: %w", err)
	}
	return conv, nil
}
