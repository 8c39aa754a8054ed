package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"NovaCS/entity"
	"NovaCS/internal/gateway"
	"NovaCS/internal/ident"
	"NovaCS/internal/lib/sl"
)

// ErrClosed is returned by mutating calls after Close.
var ErrClosed = errors.New("chat engine closed")

// SendText runs the optimistic send pipeline for a text message: the
// placeholder is in the list before this call touches the network. On
// success the backend record replaces it under the same id; on failure
// the placeholder is rolled back and the error returned for the UI.
// The caller may resubmit; the engine does not retry.
func (e *Engine) SendText(ctx context.Context, text string) error {
	return e.send(ctx, entity.Message{Content: text}, text)
}

// SendVoice sends a voice message. The attachment's transcript, when
// already available, doubles as the prompt for the automated reply.
func (e *Engine) SendVoice(ctx context.Context, att *entity.Attachment) error {
	prompt := att.Transcript
	if prompt == "" {
		prompt = "[voice message]"
	}
	return e.send(ctx, entity.Message{Attachment: att}, prompt)
}

func (e *Engine) send(ctx context.Context, draft entity.Message, prompt string) error {
	id := ident.NewMessageID()
	now := e.now()

	draft.ID = id
	draft.ClientMessageID = id
	draft.ConversationID = e.conversationID
	draft.Role = e.actorRole
	if draft.Role == "" {
		draft.Role = entity.RoleCustomer
	}
	draft.CreatedAt = now
	draft.UpdatedAt = now

	if !e.apply(func() { e.ingest(draft) }) {
		return ErrClosed
	}

	confirmed, err := e.gw.PostMessage(ctx, gateway.SendRequest{
		ConversationID:  e.conversationID,
		ID:              id,
		ClientMessageID: id,
		Role:            draft.Role,
		Content:         draft.Content,
		Attachment:      draft.Attachment,
	})
	if err != nil {
		e.apply(func() { e.remove(id) })
		e.log.Warn("send failed, placeholder rolled back",
			slog.String("message_id", id), sl.Err(err))
		return fmt.Errorf("send message: %w", err)
	}

	if !e.apply(func() { e.ingest(confirmed) }) {
		return ErrClosed
	}

	// A reply failure is not a send failure: the customer message is
	// already persisted, so it is logged and the poller moves on.
	if draft.Role == entity.RoleCustomer && e.handoff.AllowAutoReply() {
		if err := e.streamAssistantReply(ctx, prompt); err != nil {
			e.log.Warn("automated reply failed", sl.Err(err))
		}
	}
	return nil
}

// streamAssistantReply renders the automated answer token by token
// into an assistant placeholder, then persists the finished content
// under the placeholder's id. A skip event means a human took over
// mid-stream: the placeholder vanishes without leaving a record.
func (e *Engine) streamAssistantReply(ctx context.Context, prompt string) error {
	// The stream reader selects on this context for every send:
	// cancelling on return unblocks it on any early exit below, even
	// when the host handed the engine context.Background().
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := e.gw.StreamReply(ctx, e.conversationID, prompt)
	if err != nil {
		return err
	}

	id := ident.NewMessageID()
	now := e.now()
	placeholder := entity.Message{
		ID:              id,
		ClientMessageID: id,
		ConversationID:  e.conversationID,
		Role:            entity.RoleAssistant,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !e.apply(func() { e.ingest(placeholder) }) {
		return ErrClosed
	}

	var content strings.Builder
	for ev := range events {
		switch {
		case ev.Err != nil:
			e.apply(func() { e.remove(id) })
			return ev.Err

		case ev.Skip:
			e.apply(func() { e.remove(id) })
			e.log.Debug("automated reply preempted by takeover",
				slog.String("message_id", id))
			return nil

		case ev.Done:
			return e.finalizeAssistantReply(ctx, id, content.String())

		case ev.Delta != "":
			content.WriteString(ev.Delta)
			if !e.apply(func() { e.updateContent(id, content.String()) }) {
				return ErrClosed
			}
		}
	}

	// Stream ended without a terminal event: treat as interrupted and
	// drop the half-written placeholder.
	e.apply(func() { e.remove(id) })
	return errors.New("reply stream ended unexpectedly")
}

func (e *Engine) finalizeAssistantReply(ctx context.Context, id, content string) error {
	if content == "" {
		e.apply(func() { e.remove(id) })
		return nil
	}

	confirmed, err := e.gw.PostMessage(ctx, gateway.SendRequest{
		ConversationID:  e.conversationID,
		ID:              id,
		ClientMessageID: id,
		Role:            entity.RoleAssistant,
		Content:         content,
	})
	if err != nil {
		// Keep the streamed text on screen; the poller reconciles
		// once the backend is reachable again.
		return fmt.Errorf("persist assistant reply: %w", err)
	}

	if !e.apply(func() { e.ingest(confirmed) }) {
		return ErrClosed
	}
	return nil
}
