package gateway

import (
	"context"
	"fmt"

	"NovaCS/entity"
)

// SendRequest is the write payload for one message. The id is minted by
// the caller and echoed back by the backend, which deduplicates retries
// on it.
type SendRequest struct {
	ConversationID  string             `json:"conversation_id" validate:"required"`
	ID              string             `json:"id" validate:"required,uuid4"`
	ClientMessageID string             `json:"client_message_id" validate:"required,uuid4"`
	Role            string             `json:"role" validate:"required,oneof=customer assistant agent system"`
	Content         string             `json:"content" validate:"required_without=Attachment"`
	Attachment      *entity.Attachment `json:"attachment,omitempty"`
}

// ListMessages fetches the full ordered timeline of one conversation.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]entity.Message, error) {
	var msgs []entity.Message
	path := fmt.Sprintf("/conversations/%s/messages", conversationID)
	if err := c.doJSON(ctx, "GET", path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// PostMessage persists a message and returns the authoritative record.
func (c *Client) PostMessage(ctx context.Context, req SendRequest) (entity.Message, error) {
	if err := c.validate.Struct(req); err != nil {
		return entity.Message{}, fmt.Errorf("invalid send request: %w", err)
	}

	var msg entity.Message
	if err := c.doJSON(ctx, "POST", "/messages", req, &msg); err != nil {
		return entity.Message{}, err
	}
	return msg, nil
}
