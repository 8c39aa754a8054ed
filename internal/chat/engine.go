package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"NovaCS/entity"
	"NovaCS/internal/cache"
	"NovaCS/internal/lib/sl"
	"NovaCS/internal/push"
)

const defaultPollInterval = 3 * time.Second

// Engine synchronizes one conversation's message list. It owns the
// list: optimistic sends, realtime pushes and poll results all funnel
// into a single run loop, so no two merges ever interleave. Reads are
// snapshots and safe from any goroutine.
//
// One engine serves one conversation. Switching conversations means
// closing this engine and starting a new one; anything still in flight
// here is dropped on the floor, never merged into the next
// conversation's list.
type Engine struct {
	conversationID string
	actorID        string
	actorRole      string

	gw      Gateway
	src     PushSource
	store   cache.Store
	handoff HandoffState
	log     *slog.Logger

	pollInterval time.Duration
	now          func() time.Time

	applyCh   chan func()
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.RWMutex
	msgs     []entity.Message
	onChange func([]entity.Message)
}

// NewEngine creates an engine bound to one conversation. The actor
// defaults to the customer role; call SetActor for the agent console.
func NewEngine(conversationID string, gw Gateway, store cache.Store, handoff HandoffState, logger *slog.Logger) *Engine {
	return &Engine{
		conversationID: conversationID,
		actorRole:      entity.RoleCustomer,
		gw:             gw,
		store:          store,
		handoff:        handoff,
		log: logger.With(sl.Module("chat"),
			slog.String("conversation_id", conversationID)),
		pollInterval: defaultPollInterval,
		now:          time.Now,
		applyCh:      make(chan func()),
		done:         make(chan struct{}),
	}
}

// SetPushSource wires the realtime channel. Without one the engine
// still works, carried entirely by the poller.
func (e *Engine) SetPushSource(src PushSource) {
	e.src = src
}

// SetActor sets who is typing into this engine.
func (e *Engine) SetActor(id, role string) {
	e.actorID = id
	e.actorRole = role
}

// SetPollInterval overrides the reconciliation poll period.
func (e *Engine) SetPollInterval(d time.Duration) {
	if d > 0 {
		e.pollInterval = d
	}
}

// SetOnChange registers the list observer. The callback runs on the
// engine's run loop with a snapshot; it must not call back into the
// engine's mutating methods.
func (e *Engine) SetOnChange(fn func([]entity.Message)) {
	e.onChange = fn
}

// Start seeds the list from the cache, then brings up the run loop,
// the push subscriptions and the poller. The cached list shows
// immediately; the first poll reconciles it against the backend.
func (e *Engine) Start(ctx context.Context) error {
	if cached, ok := e.store.Get(e.conversationID); ok {
		e.mu.Lock()
		e.msgs = cached
		e.mu.Unlock()
		e.log.Debug("seeded from cache", slog.Int("messages", len(cached)))
		if e.onChange != nil {
			e.onChange(e.Messages())
		}
	}

	go e.run(ctx)

	if e.src != nil {
		for _, topic := range []string{push.MessageTopic(e.conversationID), push.ConversationTopic} {
			events, err := e.src.Subscribe(ctx, topic)
			if err != nil {
				e.log.Warn("push subscribe failed, relying on polling",
					slog.String("topic", topic), sl.Err(err))
				continue
			}
			go e.consumePush(events)
		}
	}

	go e.pollLoop(ctx)
	return nil
}

// Close stops the engine. In-flight fetches and sends resolve against
// a closed engine and are discarded. Idempotent.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.done)
		e.log.Debug("engine closed")
	})
}

// Messages returns a snapshot of the current list.
func (e *Engine) Messages() []entity.Message {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]entity.Message, len(e.msgs))
	copy(out, e.msgs)
	return out
}

func (e *Engine) run(ctx context.Context) {
	for {
		select {
		case fn := <-e.applyCh:
			fn()
		case <-e.done:
			return
		case <-ctx.Done():
			e.Close()
			return
		}
	}
}

// apply runs fn on the run loop and waits for it. Returns false when
// the engine closed first, in which case fn never ran; callers drop
// whatever they were about to merge.
func (e *Engine) apply(fn func()) bool {
	ran := make(chan struct{})
	select {
	case e.applyCh <- func() { fn(); close(ran) }:
		<-ran
		return true
	case <-e.done:
		return false
	}
}

// The helpers below run only on the run loop.

func (e *Engine) setMessages(msgs []entity.Message) {
	e.mu.Lock()
	e.msgs = msgs
	e.mu.Unlock()

	if err := e.store.Put(e.conversationID, msgs); err != nil {
		e.log.Warn("cache write failed", sl.Err(err))
	}
	if e.onChange != nil {
		e.onChange(e.Messages())
	}
}

func (e *Engine) ingest(incoming ...entity.Message) {
	e.setMessages(Merge(e.msgs, incoming))
}

func (e *Engine) remove(id string) {
	out := make([]entity.Message, 0, len(e.msgs))
	for _, m := range e.msgs {
		if m.ID != id {
			out = append(out, m)
		}
	}
	e.setMessages(out)
}

// updateContent rewrites one message's content in place, used for
// streamed deltas. A miss is fine: the placeholder may already have
// been discarded by a skip.
func (e *Engine) updateContent(id, content string) {
	for i, m := range e.msgs {
		if m.ID == id {
			msgs := make([]entity.Message, len(e.msgs))
			copy(msgs, e.msgs)
			msgs[i].Content = content
			msgs[i].UpdatedAt = e.now()
			e.setMessages(msgs)
			return
		}
	}
}

func (e *Engine) consumePush(events <-chan push.Event) {
	for ev := range events {
		switch ev.Topic {
		case push.MessageTopic(e.conversationID):
			msg, err := ev.Message()
			if err != nil {
				e.log.Warn("dropping malformed push event", sl.Err(err))
				continue
			}
			if !e.apply(func() { e.ingest(msg) }) {
				return
			}
		case push.ConversationTopic:
			conv, err := ev.Conversation()
			if err != nil {
				e.log.Warn("dropping malformed push event", sl.Err(err))
				continue
			}
			if conv.ID == e.conversationID {
				e.handoff.Observe(conv.Status, conv.AssignedAgentID)
			}
		}
	}
}
