package core

import (
	"NovaCS/ai/assistant"
	"NovaCS/entity"
	"NovaCS/internal/push"
	"context"
	"fmt"
)

// SaveMessage persists a message under its client-minted id, pushes it
// to subscribers and, for voice messages, fires the transcription
// side-channel.
func (c *Core) SaveMessage(msg entity.Message) (entity.Message, error) {
	if c.repo == nil {
		return entity.Message{}, fmt.Errorf("repository is not set")
	}

	saved, err := c.repo.SaveMessage(msg)
	if err != nil {
		return entity.Message{}, err
	}

	if c.hub != nil {
		c.hub.PublishMessage(push.EventInsert, saved)
	}

	if saved.HasAudio() && saved.Attachment.Transcript == "" && c.ass != nil {
		go c.ass.TranscribeAndPublish(context.Background(), saved)
	}

	return saved, nil
}

// StreamReply delegates to the assistant, which decides between a
// streamed answer, an escalation and a skip.
func (c *Core) StreamReply(ctx context.Context, conversationID, userMsg string) (<-chan assistant.Chunk, error) {
	if c.ass == nil {
		return nil, fmt.Errorf("assistant is not set")
	}
	return c.ass.Reply(ctx, conversationID, userMsg)
}
