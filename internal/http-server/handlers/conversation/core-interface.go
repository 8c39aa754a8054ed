package conversation

import (
	"NovaCS/entity"
)

type Core interface {
	GetConversations() ([]entity.Conversation, error)
	GetMessages(conversationID string) ([]entity.Message, error)
	AssignConversation(conversationID, agentID string) (entity.Conversation, error)
	ReleaseConversation(conversationID, agentID string) (entity.Conversation, error)
}
