package chat

import (
	"context"

	"NovaCS/entity"
	"NovaCS/internal/gateway"
	"NovaCS/internal/handoff"
	"NovaCS/internal/push"
)

// Gateway is the slice of the backend API the engine talks to.
type Gateway interface {
	// ListMessages returns the full message history of a conversation.
	ListMessages(ctx context.Context, conversationID string) ([]entity.Message, error)

	// PostMessage persists a message under the client-minted id.
	PostMessage(ctx context.Context, req gateway.SendRequest) (entity.Message, error)

	// StreamReply asks the assistant to answer and streams the reply.
	StreamReply(ctx context.Context, conversationID, content string) (<-chan gateway.StreamEvent, error)
}

// PushSource delivers realtime events for a topic. The channel closes
// when ctx is cancelled.
type PushSource interface {
	Subscribe(ctx context.Context, topic string) (<-chan push.Event, error)
}

// HandoffState is the engine's view of the conversation hand-off
// machine. The engine consults it to gate assistant auto-replies and
// feeds it backend pushes.
type HandoffState interface {
	// AllowAutoReply reports whether the assistant may answer.
	AllowAutoReply() bool

	// Observe applies a backend-confirmed status to the machine.
	Observe(status, assignedAgentID string)
}

var (
	_ Gateway      = (*gateway.Client)(nil)
	_ PushSource   = (*push.Subscriber)(nil)
	_ HandoffState = (*handoff.Machine)(nil)
)
