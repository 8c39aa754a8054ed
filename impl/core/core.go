package core

import (
	"NovaCS/ai/assistant"
	"NovaCS/entity"
	"NovaCS/internal/lib/sl"
	"context"
	"log/slog"
	"sync"
)

type Repository interface {
	CheckApiKey(key string) (string, error)
	GenerateApiKey(username string) (string, error)

	GetConversations() ([]entity.Conversation, error)
	GetConversation(id string) (entity.Conversation, error)
	AssignConversation(conversationID, agentID string) (entity.Conversation, error)
	ReleaseConversation(conversationID, agentID string) (entity.Conversation, error)
	CloseConversation(conversationID string) (entity.Conversation, error)

	SaveMessage(msg entity.Message) (entity.Message, error)
	GetMessages(conversationID string) ([]entity.Message, error)

	GetOrder(id string) (entity.Order, error)
	GetUserOrders(userID string) ([]entity.Order, error)

	GetUserReturns(userID string) ([]entity.ReturnRecord, error)
	GetActiveReturn(orderID string) (entity.ReturnRecord, error)
	SaveReturn(record entity.ReturnRecord) error
	DeleteReturn(id string) error
	MarkReturnRefunded(id string, amount int64) (entity.ReturnRecord, error)
}

// Assistant produces streamed automated replies and the voice
// transcription side-channel.
type Assistant interface {
	Reply(ctx context.Context, conversationID, userMsg string) (<-chan assistant.Chunk, error)
	TranscribeAndPublish(ctx context.Context, msg entity.Message)
}

// Hub fans events out to websocket subscribers.
type Hub interface {
	PublishMessage(evType string, msg entity.Message)
	PublishConversation(conv entity.Conversation)
}

// Core wires the repository, the assistant and the push hub into the
// surface the HTTP handlers call.
type Core struct {
	repo Repository
	ass  Assistant
	hub  Hub

	autoRefundThreshold int64

	mu   sync.RWMutex
	keys map[string]string

	log *slog.Logger
}

func New(log *slog.Logger) *Core {
	return &Core{
		log:  log.With(sl.Module("core")),
		keys: make(map[string]string),
	}
}

func (c *Core) SetRepository(repo Repository) {
	c.repo = repo
}

func (c *Core) SetAssistant(ass Assistant) {
	c.ass = ass
}

func (c *Core) SetHub(hub Hub) {
	c.hub = hub
}

func (c *Core) SetAutoRefundThreshold(cents int64) {
	c.autoRefundThreshold = cents
}
