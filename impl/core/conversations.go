package core

import (
	"NovaCS/entity"
	"NovaCS/internal/ident"
	"NovaCS/internal/lib/sl"
	"NovaCS/internal/push"
	"errors"
	"fmt"
	"log/slog"

	repository "NovaCS/internal/database"
)

// ErrAlreadyAssigned reports a lost assign race, carrying the winner
// through the returned conversation.
var ErrAlreadyAssigned = repository.ErrConversationAssigned

// ErrNotAssignee reports a release attempt by someone who does not
// hold the conversation.
var ErrNotAssignee = repository.ErrNotAssignee

// ErrNotFound reports a missing record.
var ErrNotFound = repository.ErrNotFound

func (c *Core) GetConversations() ([]entity.Conversation, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("repository is not set")
	}
	return c.repo.GetConversations()
}

func (c *Core) GetMessages(conversationID string) ([]entity.Message, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("repository is not set")
	}
	return c.repo.GetMessages(conversationID)
}

// AssignConversation claims a conversation for an agent. Exclusivity
// is decided inside the database; this layer adds the system notice
// and the push fan-out on success, and passes the winner through on a
// lost race.
func (c *Core) AssignConversation(conversationID, agentID string) (entity.Conversation, error) {
	if c.repo == nil {
		return entity.Conversation{}, fmt.Errorf("repository is not set")
	}

	conv, err := c.repo.AssignConversation(conversationID, agentID)
	if err != nil {
		if errors.Is(err, ErrAlreadyAssigned) {
			c.log.With(
				slog.String("conversation_id", conversationID),
				slog.String("loser", agentID),
				slog.String("winner", conv.AssignedAgentID),
			).Info("assign race lost")
		}
		return conv, err
	}

	c.systemNotice(conversationID, fmt.Sprintf("客服 %s 为您服务", agentID))

	if c.hub != nil {
		c.hub.PublishConversation(conv)
	}

	c.log.With(
		slog.String("conversation_id", conversationID),
		slog.String("agent_id", agentID),
	).Info("conversation assigned")

	return conv, nil
}

// ReleaseConversation hands the conversation back to automated
// handling. Only the current assignee may do this.
func (c *Core) ReleaseConversation(conversationID, agentID string) (entity.Conversation, error) {
	if c.repo == nil {
		return entity.Conversation{}, fmt.Errorf("repository is not set")
	}

	conv, err := c.repo.ReleaseConversation(conversationID, agentID)
	if err != nil {
		return entity.Conversation{}, err
	}

	c.systemNotice(conversationID, "对话已转回智能助手。")

	if c.hub != nil {
		c.hub.PublishConversation(conv)
	}

	c.log.With(
		slog.String("conversation_id", conversationID),
		slog.String("agent_id", agentID),
	).Info("conversation released")

	return conv, nil
}

// systemNotice records a system message in the timeline and pushes it.
// Failures are logged only; the triggering action already succeeded.
func (c *Core) systemNotice(conversationID, content string) {
	msg, err := c.repo.SaveMessage(entity.Message{
		ID:             ident.NewMessageID(),
		ConversationID: conversationID,
		Role:           entity.RoleSystem,
		Content:        content,
	})
	if err != nil {
		c.log.With(
			slog.String("conversation_id", conversationID),
			sl.Err(err),
		).Error("saving system notice")
		return
	}

	if c.hub != nil {
		c.hub.PublishMessage(push.EventInsert, msg)
	}
}
