package chat

import (
	"NovaCS/ai/assistant"
	"context"
)

type Core interface {
	StreamReply(ctx context.Context, conversationID, userMsg string) (<-chan assistant.Chunk, error)
}
