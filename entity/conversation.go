package entity

import "time"

// Conversation statuses. Transition legality lives in the handoff
// package; everything else only reads these values.
const (
	StatusAI           = "ai"
	StatusPendingAgent = "pending_agent"
	StatusAgent        = "agent"
	StatusClosed       = "closed"
)

// Conversation is one customer thread. DisplayName and AvatarURL are
// denormalized from the customer profile for the inbox list.
type Conversation struct {
	ID              string    `json:"id" bson:"_id"`
	UserID          string    `json:"user_id" bson:"user_id"`
	Title           string    `json:"title,omitempty" bson:"title,omitempty"`
	Status          string    `json:"status" bson:"status"`
	AssignedAgentID string    `json:"assigned_agent_id,omitempty" bson:"assigned_agent_id,omitempty"`
	LastContent     string    `json:"last_content,omitempty" bson:"last_content,omitempty"`
	DisplayName     string    `json:"display_name,omitempty" bson:"display_name,omitempty"`
	AvatarURL       string    `json:"avatar_url,omitempty" bson:"avatar_url,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
}
