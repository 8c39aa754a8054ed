package entity

import "time"

// Message roles. The engine treats system messages as timeline entries
// like any other; only rendering differs.
const (
	RoleCustomer  = "customer"
	RoleAssistant = "assistant"
	RoleAgent     = "agent"
	RoleSystem    = "system"
)

// Attachment references a voice recording attached to a message. The
// audio URL is opaque storage; transcript and duration are filled in
// later by the transcription side-channel.
type Attachment struct {
	AudioURL   string `json:"audio_url" bson:"audio_url"`
	Transcript string `json:"transcript,omitempty" bson:"transcript,omitempty"`
	Duration   int    `json:"duration_seconds,omitempty" bson:"duration_seconds,omitempty"`
}

// OrderCard is an order summary the assistant attaches to a reply.
// The sync engine carries it through untouched.
type OrderCard struct {
	OrderID    string `json:"order_id" bson:"order_id"`
	Title      string `json:"title" bson:"title"`
	PaidAmount int64  `json:"paid_amount" bson:"paid_amount"`
	Status     string `json:"status" bson:"status"`
}

// Message is one chat turn. The id is minted client-side and is the
// permanent record id; the backend treats it as authoritative, so the
// same id is the idempotency key for realtime, polling and optimistic
// ingestion alike.
type Message struct {
	ID              string      `json:"id" bson:"_id"`
	ClientMessageID string      `json:"client_message_id,omitempty" bson:"client_message_id,omitempty"`
	ConversationID  string      `json:"conversation_id" bson:"conversation_id"`
	Role            string      `json:"role" bson:"role"`
	Content         string      `json:"content" bson:"content"`
	Attachment      *Attachment `json:"attachment,omitempty" bson:"attachment,omitempty"`
	OrderCards      []OrderCard `json:"order_cards,omitempty" bson:"order_cards,omitempty"`
	CreatedAt       time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" bson:"updated_at"`
}

// HasAudio reports whether the message carries a voice attachment.
func (m Message) HasAudio() bool {
	return m.Attachment != nil && m.Attachment.AudioURL != ""
}
