package assistant

import (
	"NovaCS/entity"
	"NovaCS/internal/config"
	"NovaCS/internal/ident"
	"NovaCS/internal/lib/sl"
	"NovaCS/internal/push"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// Skip reasons reported instead of a reply.
const (
	ReasonHumanTakeover     = "human_takeover"
	ReasonTransferRequested = "transfer_requested"
)

const contextWindow = 20

// transferPhrases mark a customer asking for a human. Matching any of
// them escalates the conversation instead of answering.
var transferPhrases = []string{
	"转人工", "人工客服", "找客服", "真人",
	"human agent", "real person", "speak to a human",
}

// Repository is the storage slice the assistant needs.
type Repository interface {
	GetConversation(id string) (entity.Conversation, error)
	GetRecentMessages(conversationID string, limit int) ([]entity.Message, error)
	EscalateConversation(conversationID string) (entity.Conversation, error)
	SaveMessage(msg entity.Message) (entity.Message, error)
	UpdateTranscript(messageID, transcript string) (entity.Message, error)
}

// Hub publishes realtime events to connected clients.
type Hub interface {
	PublishMessage(evType string, msg entity.Message)
	PublishConversation(conv entity.Conversation)
}

// Chunk is one streamed piece of an automated reply. Exactly one of
// Content, Done or Skip is meaningful.
type Chunk struct {
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
	Skip    bool   `json:"skip,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type Service struct {
	client     *openai.Client
	model      string
	devPrefix  string
	repository Repository
	hub        Hub
	locker     *LockConversations
	log        *slog.Logger
}

// LockConversations serializes assistant work per conversation, so two
// replies to the same thread never interleave.
type LockConversations struct {
	mutex         sync.Mutex
	conversations map[string]*sync.Mutex
}

func (l *LockConversations) Lock(conversationID string) {
	l.mutex.Lock()

	mutex, exists := l.conversations[conversationID]
	if !exists {
		mutex = &sync.Mutex{}
		l.conversations[conversationID] = mutex
	}

	l.mutex.Unlock()

	mutex.Lock()
}

func (l *LockConversations) Unlock(conversationID string) {
	l.mutex.Lock()

	mutex, exists := l.conversations[conversationID]
	if !exists {
		l.mutex.Unlock()
		return
	}
	l.mutex.Unlock()

	mutex.Unlock()
}

func NewService(conf *config.Config, logger *slog.Logger) *Service {
	return &Service{
		client:    openai.NewClient(conf.OpenAI.ApiKey),
		model:     conf.OpenAI.Model,
		devPrefix: conf.OpenAI.DevPrefix,
		locker:    &LockConversations{conversations: make(map[string]*sync.Mutex)},
		log:       logger.With(sl.Module("assistant")),
	}
}

func (s *Service) SetRepository(repository Repository) {
	s.repository = repository
}

func (s *Service) SetHub(hub Hub) {
	s.hub = hub
}

// Reply streams the automated answer for a customer message. The
// channel closes after a terminal chunk: Done on success, Skip when a
// human handles the conversation or the customer asked for one.
func (s *Service) Reply(ctx context.Context, conversationID, userMsg string) (<-chan Chunk, error) {
	s.locker.Lock(conversationID)

	conv, err := s.repository.GetConversation(conversationID)
	if err != nil {
		s.locker.Unlock(conversationID)
		return nil, fmt.Errorf("loading conversation: %w", err)
	}

	if conv.Status != entity.StatusAI {
		s.locker.Unlock(conversationID)
		return terminal(Chunk{Skip: true, Reason: ReasonHumanTakeover}), nil
	}

	if wantsHuman(userMsg) {
		defer s.locker.Unlock(conversationID)
		if err := s.escalate(conversationID); err != nil {
			return nil, err
		}
		return terminal(Chunk{Skip: true, Reason: ReasonTransferRequested}), nil
	}

	history, err := s.repository.GetRecentMessages(conversationID, contextWindow)
	if err != nil {
		s.locker.Unlock(conversationID)
		return nil, fmt.Errorf("loading history: %w", err)
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: s.chatContext(history, userMsg),
		Stream:   true,
	})
	if err != nil {
		s.locker.Unlock(conversationID)
		return nil, fmt.Errorf("creating completion stream: %w", err)
	}

	chunks := make(chan Chunk)
	go func() {
		defer s.locker.Unlock(conversationID)
		defer close(chunks)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				s.log.Error("completion stream failed",
					slog.String("conversation_id", conversationID), sl.Err(err))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case chunks <- Chunk{Content: delta}:
			case <-ctx.Done():
				return
			}
		}

		// An agent may have claimed the conversation while the model
		// was generating; the half-finished reply is then discarded.
		// The terminal send selects on ctx like the delta sends: a
		// consumer that went away must not park this goroutine with
		// the conversation lock held.
		out := Chunk{Done: true}
		current, err := s.repository.GetConversation(conversationID)
		if err == nil && current.Status != entity.StatusAI {
			out = Chunk{Skip: true, Reason: ReasonHumanTakeover}
		}

		select {
		case chunks <- out:
		case <-ctx.Done():
		}
	}()

	return chunks, nil
}

// escalate moves the conversation to pending_agent, records a system
// message and notifies every connected client.
func (s *Service) escalate(conversationID string) error {
	conv, err := s.repository.EscalateConversation(conversationID)
	if err != nil {
		return fmt.Errorf("escalating conversation: %w", err)
	}

	msg, err := s.repository.SaveMessage(entity.Message{
		ID:             ident.NewMessageID(),
		ConversationID: conversationID,
		Role:           entity.RoleSystem,
		Content:        "您的对话已转接人工客服，请稍候。",
	})
	if err != nil {
		return fmt.Errorf("saving transfer notice: %w", err)
	}

	if s.hub != nil {
		s.hub.PublishConversation(conv)
		s.hub.PublishMessage(push.EventInsert, msg)
	}

	s.log.Info("conversation escalated",
		slog.String("conversation_id", conversationID))
	return nil
}

func (s *Service) chatContext(history []entity.Message, userMsg string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: s.devPrefix,
	})

	for _, m := range history {
		content := m.Content
		if content == "" && m.Attachment != nil {
			content = m.Attachment.Transcript
		}
		if content == "" {
			continue
		}
		role := openai.ChatMessageRoleUser
		if m.Role == entity.RoleAssistant || m.Role == entity.RoleAgent {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: content})
	}

	return append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMsg,
	})
}

func wantsHuman(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range transferPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

func terminal(c Chunk) <-chan Chunk {
	chunks := make(chan Chunk, 1)
	chunks <- c
	close(chunks)
	return chunks
}
